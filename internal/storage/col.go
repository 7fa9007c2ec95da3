package storage

import (
	"fmt"
)

// ColRow is the single collection bookkeeping row.
type ColRow struct {
	Crt  int64
	Mod  int64
	USN  int
	Conf string // config JSON, decoded by the collection layer
}

// LoadCol reads the collection row.
func (db *DB) LoadCol() (*ColRow, error) {
	row := &ColRow{}
	err := db.q.QueryRow("SELECT crt, mod, usn, conf FROM col WHERE id = 1").
		Scan(&row.Crt, &row.Mod, &row.USN, &row.Conf)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection row: %w", err)
	}
	return row, nil
}

// SaveCol writes the collection row back.
func (db *DB) SaveCol(row *ColRow) error {
	_, err := db.q.Exec(
		"UPDATE col SET crt = ?, mod = ?, usn = ?, conf = ? WHERE id = 1",
		row.Crt, row.Mod, row.USN, row.Conf)
	if err != nil {
		return fmt.Errorf("failed to save collection row: %w", err)
	}
	return nil
}

package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoteNotFound is returned when a note id has no backing row.
var ErrNoteNotFound = errors.New("note not found")

// GetNote reads one note row.
func (db *DB) GetNote(id int64) (*Note, error) {
	n := &Note{}
	err := db.q.QueryRow("SELECT id, mod, usn, tags FROM notes WHERE id = ?", id).
		Scan(&n.ID, &n.Mod, &n.USN, &n.Tags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note %d: %w", id, err)
	}
	return n, nil
}

// CreateNote inserts a note row.
func (db *DB) CreateNote(n *Note) error {
	res, err := db.q.Exec(
		"INSERT INTO notes (id, mod, usn, tags) VALUES (?,?,?,?)",
		nullableID(n.ID), n.Mod, n.USN, n.Tags)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	if n.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get note ID: %w", err)
		}
		n.ID = id
	}
	return nil
}

// FlushNote writes a note row back.
func (db *DB) FlushNote(n *Note) error {
	_, err := db.q.Exec(
		"UPDATE notes SET mod = ?, usn = ?, tags = ? WHERE id = ?",
		n.Mod, n.USN, n.Tags, n.ID)
	if err != nil {
		return fmt.Errorf("failed to flush note %d: %w", n.ID, err)
	}
	return nil
}

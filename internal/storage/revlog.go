package storage

import (
	"fmt"
	"time"
)

// AppendRevlog inserts one review-log row. The primary key is the
// millisecond answer timestamp, so two answers inside the same
// millisecond collide; on conflict the insert is retried once after
// 10ms with a fresh timestamp from restamp. A second failure is
// surfaced to the caller.
func (db *DB) AppendRevlog(e *RevlogEntry, restamp func() int64) error {
	insert := func() error {
		_, err := db.q.Exec(
			"INSERT INTO revlog (id, cid, usn, ease, ivl, lastIvl, factor, time, type) VALUES (?,?,?,?,?,?,?,?,?)",
			e.ID, e.CID, e.USN, e.Ease, e.Ivl, e.LastIvl, e.Factor, e.Time, e.Kind)
		return err
	}
	if err := insert(); err != nil {
		time.Sleep(10 * time.Millisecond)
		if restamp != nil {
			e.ID = restamp()
		}
		if err := insert(); err != nil {
			return fmt.Errorf("failed to append revlog for card %d: %w", e.CID, err)
		}
	}
	return nil
}

// RevlogForCard returns a card's review history, oldest first.
func (db *DB) RevlogForCard(cid int64) ([]*RevlogEntry, error) {
	rows, err := db.q.Query(
		"SELECT id, cid, usn, ease, ivl, lastIvl, factor, time, type FROM revlog WHERE cid = ? ORDER BY id",
		cid)
	if err != nil {
		return nil, fmt.Errorf("failed to read revlog for card %d: %w", cid, err)
	}
	defer rows.Close()

	var out []*RevlogEntry
	for rows.Next() {
		e := &RevlogEntry{}
		if err := rows.Scan(&e.ID, &e.CID, &e.USN, &e.Ease, &e.Ivl, &e.LastIvl,
			&e.Factor, &e.Time, &e.Kind); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteRevlogSince removes a card's revlog rows from the given
// millisecond timestamp on; used when an answer is undone.
func (db *DB) DeleteRevlogSince(cid int64, ms int64) error {
	_, err := db.q.Exec("DELETE FROM revlog WHERE cid = ? AND id >= ?", cid, ms)
	if err != nil {
		return fmt.Errorf("failed to delete revlog for card %d: %w", cid, err)
	}
	return nil
}

// CountRevlogSince counts review-log rows at or after the given
// millisecond timestamp; used for today's study statistics.
func (db *DB) CountRevlogSince(ms int64) (int, error) {
	return db.scalarInt("SELECT count() FROM revlog WHERE id >= ?", ms)
}

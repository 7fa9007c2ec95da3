package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mfield/retain/internal/deck"
)

// SaveDeck writes one deck row, counters and filtered-deck terms as
// JSON. Implements deck.Store.
func (db *DB) SaveDeck(d *deck.Deck) error {
	newT, _ := json.Marshal(d.NewToday)
	revT, _ := json.Marshal(d.RevToday)
	lrnT, _ := json.Marshal(d.LrnToday)
	timeT, _ := json.Marshal(d.TimeToday)

	var terms any
	dyn := 0
	if d.IsDyn() {
		dyn = 1
		raw, err := json.Marshal(d.Dyn)
		if err != nil {
			return fmt.Errorf("failed to encode deck terms: %w", err)
		}
		terms = string(raw)
	}

	_, err := db.q.Exec(`
		INSERT INTO decks (id, name, mod, usn, dyn, conf_id, new_today, rev_today, lrn_today, time_today, terms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, mod = excluded.mod, usn = excluded.usn,
			dyn = excluded.dyn, conf_id = excluded.conf_id,
			new_today = excluded.new_today, rev_today = excluded.rev_today,
			lrn_today = excluded.lrn_today, time_today = excluded.time_today,
			terms = excluded.terms`,
		d.ID, d.Name, d.Mod, d.USN, dyn, d.ConfID,
		string(newT), string(revT), string(lrnT), string(timeT), terms)
	if err != nil {
		return fmt.Errorf("failed to save deck %q: %w", d.Name, err)
	}
	return nil
}

// LoadDecks reads every deck row.
func (db *DB) LoadDecks() ([]*deck.Deck, error) {
	rows, err := db.q.Query(`
		SELECT id, name, mod, usn, dyn, conf_id, new_today, rev_today, lrn_today, time_today, terms
		FROM decks`)
	if err != nil {
		return nil, fmt.Errorf("failed to load decks: %w", err)
	}
	defer rows.Close()

	var out []*deck.Deck
	for rows.Next() {
		d := &deck.Deck{}
		var dyn int
		var newT, revT, lrnT, timeT string
		var terms sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &d.Mod, &d.USN, &dyn, &d.ConfID,
			&newT, &revT, &lrnT, &timeT, &terms); err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		_ = json.Unmarshal([]byte(newT), &d.NewToday)
		_ = json.Unmarshal([]byte(revT), &d.RevToday)
		_ = json.Unmarshal([]byte(lrnT), &d.LrnToday)
		_ = json.Unmarshal([]byte(timeT), &d.TimeToday)
		if dyn != 0 {
			d.Dyn = &deck.DynConfig{}
			if terms.Valid {
				if err := json.Unmarshal([]byte(terms.String), d.Dyn); err != nil {
					return nil, fmt.Errorf("failed to decode terms for deck %q: %w", d.Name, err)
				}
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveConfig writes one deck-options preset. Implements deck.Store.
func (db *DB) SaveConfig(c *deck.Config) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode deck config: %w", err)
	}
	_, err = db.q.Exec(`
		INSERT INTO deck_config (id, name, mod, usn, config)
		VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, mod = excluded.mod,
			usn = excluded.usn, config = excluded.config`,
		c.ID, c.Name, c.Mod, c.USN, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save deck config %q: %w", c.Name, err)
	}
	return nil
}

// LoadDeckConfigs reads every deck-options preset.
func (db *DB) LoadDeckConfigs() ([]*deck.Config, error) {
	rows, err := db.q.Query("SELECT id, config FROM deck_config")
	if err != nil {
		return nil, fmt.Errorf("failed to load deck configs: %w", err)
	}
	defer rows.Close()

	var out []*deck.Config
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan deck config: %w", err)
		}
		c := &deck.Config{}
		if err := json.Unmarshal([]byte(raw), c); err != nil {
			return nil, fmt.Errorf("failed to decode deck config %d: %w", id, err)
		}
		c.ID = id
		out = append(out, c)
	}
	return out, rows.Err()
}

package storage

const createTablesSQL = `
-- Collection bookkeeping: creation time, sync counters, config JSON
CREATE TABLE IF NOT EXISTS col (
    id INTEGER PRIMARY KEY,
    crt INTEGER NOT NULL,
    mod INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,
    conf TEXT NOT NULL DEFAULT '{}'
);

-- Deck tree; hierarchy is implied by "::" in name
CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    mod INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,
    dyn INTEGER NOT NULL DEFAULT 0,
    conf_id INTEGER NOT NULL DEFAULT 1,
    new_today TEXT NOT NULL DEFAULT '[0,0]',
    rev_today TEXT NOT NULL DEFAULT '[0,0]',
    lrn_today TEXT NOT NULL DEFAULT '[0,0]',
    time_today TEXT NOT NULL DEFAULT '[0,0]',
    terms TEXT -- filtered decks: JSON DynConfig
);

-- Shared deck-options presets
CREATE TABLE IF NOT EXISTS deck_config (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    mod INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,
    config TEXT NOT NULL
);

-- Notes: the weak relation cards share; the scheduler only touches tags
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY,
    mod INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,
    tags TEXT NOT NULL DEFAULT ''
);

-- Cards; column order mirrors the collection file format
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY,
    nid INTEGER NOT NULL,
    did INTEGER NOT NULL,
    ord INTEGER NOT NULL DEFAULT 0,
    mod INTEGER NOT NULL DEFAULT 0,
    usn INTEGER NOT NULL DEFAULT 0,
    type INTEGER NOT NULL DEFAULT 0,
    queue INTEGER NOT NULL DEFAULT 0,
    due INTEGER NOT NULL DEFAULT 0,
    ivl INTEGER NOT NULL DEFAULT 0,
    factor INTEGER NOT NULL DEFAULT 0,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    left INTEGER NOT NULL DEFAULT 0,
    odue INTEGER NOT NULL DEFAULT 0,
    odid INTEGER NOT NULL DEFAULT 0,
    flags INTEGER NOT NULL DEFAULT 0,
    data TEXT NOT NULL DEFAULT ''
);

-- Append-only review log; id is a millisecond timestamp
CREATE TABLE IF NOT EXISTS revlog (
    id INTEGER PRIMARY KEY,
    cid INTEGER NOT NULL,
    usn INTEGER NOT NULL DEFAULT 0,
    ease INTEGER NOT NULL,
    ivl INTEGER NOT NULL,
    lastIvl INTEGER NOT NULL,
    factor INTEGER NOT NULL,
    time INTEGER NOT NULL,
    type INTEGER NOT NULL
);

-- The queue builder's working set: everything is fetched by deck+queue
CREATE INDEX IF NOT EXISTS idx_cards_sched ON cards(did, queue, due);
CREATE INDEX IF NOT EXISTS idx_cards_nid ON cards(nid);
CREATE INDEX IF NOT EXISTS idx_revlog_cid ON revlog(cid);
`

// MigrateDatabase creates all tables and indexes and seeds the col row.
// Safe to run multiple times due to IF NOT EXISTS clauses.
func MigrateDatabase(db *DB) error {
	if _, err := db.q.Exec(createTablesSQL); err != nil {
		return err
	}
	// Seed the collection row; crt is backfilled by the collection
	// layer on first open.
	_, err := db.q.Exec(`INSERT OR IGNORE INTO col (id, crt, conf) VALUES (1, 0, '{}')`)
	return err
}

package collection

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/storage"
)

// Clock supplies wall-clock time; swapped for a fake in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Conf holds the collection-level configuration JSON.
type Conf struct {
	CollapseTime  int              `json:"collapseTime"` // seconds
	NextPos       int64            `json:"nextPos"`
	CurDeck       int64            `json:"curDeck"`
	ActiveDecks   []int64          `json:"activeDecks"`
	LastUnburied  int              `json:"lastUnburied"` // day index
	SchedVer      int              `json:"schedVer"`
	DueCounts     bool             `json:"dueCounts"`
	NewSpread     domain.NewSpread `json:"newSpread"`
	LimitAllCards bool             `json:"limitAllCards"`
}

func defaultConf() Conf {
	return Conf{
		CollapseTime: 1200,
		NextPos:      1,
		CurDeck:      1,
		ActiveDecks:  []int64{1},
		SchedVer:     1,
		DueCounts:    true,
	}
}

// Collection is the explicit context value every scheduler operation
// receives: the row store, the deck tree, collection config, clock and
// event bus. There are no package-level singletons.
type Collection struct {
	DB    *storage.DB
	Decks *deck.Manager
	Hooks *Bus
	// Conf is shared by pointer so transaction views see and keep
	// config mutations such as position allocation.
	Conf *Conf
	Log  *slog.Logger

	Crt int64 // collection creation time, unix seconds

	usn   int
	clock Clock
}

// Option customises collection opening.
type Option func(*Collection)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(col *Collection) { col.clock = c }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(col *Collection) { col.Log = l }
}

// Open loads the collection state from an initialised database,
// seeding the creation timestamp, default deck and default config on
// first use.
func Open(db *storage.DB, opts ...Option) (*Collection, error) {
	conf := defaultConf()
	col := &Collection{
		DB:    db,
		Hooks: NewBus(),
		Conf:  &conf,
		Log:   slog.Default(),
		clock: realClock{},
	}
	for _, opt := range opts {
		opt(col)
	}

	row, err := db.LoadCol()
	if err != nil {
		return nil, err
	}
	col.usn = row.USN
	col.Crt = row.Crt
	if row.Conf != "" && row.Conf != "{}" {
		if err := json.Unmarshal([]byte(row.Conf), col.Conf); err != nil {
			return nil, fmt.Errorf("failed to decode collection config: %w", err)
		}
	}
	if col.Crt == 0 {
		// collection creation is anchored to the local start of day so
		// the day index stays stable across restarts
		now := col.clock.Now()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		col.Crt = start.Unix()
		row.Crt = col.Crt
		if err := db.SaveCol(row); err != nil {
			return nil, err
		}
	}

	decks, err := db.LoadDecks()
	if err != nil {
		return nil, err
	}
	configs, err := db.LoadDeckConfigs()
	if err != nil {
		return nil, err
	}
	col.Decks = deck.NewManager(db, decks, configs)
	if col.Decks.Get(1) == nil {
		if _, err := col.Decks.Create("Default", nil); err != nil {
			return nil, err
		}
	}
	col.Decks.SetActive(col.Conf.ActiveDecks)
	return col, nil
}

// Transaction runs fn against a collection view bound to one database
// transaction. The deck manager, hooks and config are shared; only the
// row store is transaction-scoped.
func (col *Collection) Transaction(fn func(*Collection) error) error {
	return col.DB.Transaction(func(tx *storage.DB) error {
		txCol := *col
		txCol.DB = tx
		txCol.Decks = col.Decks.WithStore(tx)
		return fn(&txCol)
	})
}

// Now returns the current wall-clock time.
func (col *Collection) Now() time.Time { return col.clock.Now() }

// TimeS returns unix seconds.
func (col *Collection) TimeS() int64 { return col.clock.Now().Unix() }

// TimeMS returns unix milliseconds.
func (col *Collection) TimeMS() int64 { return col.clock.Now().UnixMilli() }

// USN returns the collection's update sequence number.
func (col *Collection) USN() int { return col.usn }

// FlushConf persists the collection config JSON.
func (col *Collection) FlushConf() error {
	raw, err := json.Marshal(col.Conf)
	if err != nil {
		return fmt.Errorf("failed to encode collection config: %w", err)
	}
	row := &storage.ColRow{
		Crt:  col.Crt,
		Mod:  col.TimeS(),
		USN:  col.usn,
		Conf: string(raw),
	}
	return col.DB.SaveCol(row)
}

// NextPos allocates the next new-card position.
func (col *Collection) NextPos() int64 {
	pos := col.Conf.NextPos
	col.Conf.NextPos++
	if err := col.FlushConf(); err != nil {
		col.Log.Error("failed to persist next position", "err", err)
	}
	return pos
}

// FlushCard stamps modification metadata and writes the card row.
func (col *Collection) FlushCard(c *storage.Card) error {
	c.Mod = col.TimeS()
	c.USN = col.usn
	return col.DB.FlushCard(c)
}

// AddNoteTag adds a tag to a note if not already present. Tags are
// stored space-separated with surrounding spaces.
func (col *Collection) AddNoteTag(nid int64, tag string) error {
	n, err := col.DB.GetNote(nid)
	if err != nil {
		return err
	}
	for _, t := range strings.Fields(n.Tags) {
		if strings.EqualFold(t, tag) {
			return nil
		}
	}
	fields := append(strings.Fields(n.Tags), tag)
	n.Tags = " " + strings.Join(fields, " ") + " "
	n.Mod = col.TimeS()
	n.USN = col.usn
	return col.DB.FlushNote(n)
}

// RemNoteTag removes a tag from a note if present.
func (col *Collection) RemNoteTag(nid int64, tag string) error {
	n, err := col.DB.GetNote(nid)
	if err != nil {
		return err
	}
	var kept []string
	removed := false
	for _, t := range strings.Fields(n.Tags) {
		if strings.EqualFold(t, tag) {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	if !removed {
		return nil
	}
	if len(kept) == 0 {
		n.Tags = ""
	} else {
		n.Tags = " " + strings.Join(kept, " ") + " "
	}
	n.Mod = col.TimeS()
	n.USN = col.usn
	return col.DB.FlushNote(n)
}

// NewCard inserts a fresh card for a note at the end of the new queue.
func (col *Collection) NewCard(nid, did int64, ord int) (*storage.Card, error) {
	c := &storage.Card{
		NID:    nid,
		DID:    did,
		Ord:    ord,
		Mod:    col.TimeS(),
		USN:    col.usn,
		Type:   domain.TypeNew,
		Queue:  domain.QueueNew,
		Due:    col.NextPos(),
		Factor: 0,
	}
	if err := col.DB.CreateCard(c); err != nil {
		return nil, err
	}
	return c, nil
}

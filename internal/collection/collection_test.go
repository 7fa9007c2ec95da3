package collection

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfield/retain/internal/storage"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func openTestCollection(t *testing.T) (*Collection, *storage.DB, *fakeClock) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "collection.db")
	db, err := storage.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	col, err := Open(db, WithClock(clock), WithLogger(quiet))
	if err != nil {
		t.Fatalf("Failed to open collection: %v", err)
	}
	return col, db, clock
}

func TestOpenSeedsDefaults(t *testing.T) {
	col, _, clock := openTestCollection(t)

	// creation is anchored to the local start of day
	wantCrt := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).Unix()
	if col.Crt != wantCrt {
		t.Errorf("Expected crt %d, got %d", wantCrt, col.Crt)
	}
	if col.Conf.CollapseTime != 1200 {
		t.Errorf("Expected default collapse time 1200, got %d", col.Conf.CollapseTime)
	}
	if d := col.Decks.Get(1); d == nil || d.Name != "Default" {
		t.Errorf("Expected default deck seeded, got %+v", d)
	}
	_ = clock
}

func TestOpenIsIdempotent(t *testing.T) {
	col, db, clock := openTestCollection(t)
	col.Conf.CollapseTime = 900
	if err := col.FlushConf(); err != nil {
		t.Fatalf("FlushConf failed: %v", err)
	}

	again, err := Open(db, WithClock(clock))
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if again.Crt != col.Crt {
		t.Errorf("Expected stable crt, got %d and %d", col.Crt, again.Crt)
	}
	if again.Conf.CollapseTime != 900 {
		t.Errorf("Expected persisted config back, got %d", again.Conf.CollapseTime)
	}
}

func TestNextPosAllocatesSequentially(t *testing.T) {
	col, _, _ := openTestCollection(t)
	first := col.NextPos()
	second := col.NextPos()
	if second != first+1 {
		t.Errorf("Expected sequential positions, got %d then %d", first, second)
	}
}

func TestAddNoteTag(t *testing.T) {
	col, db, _ := openTestCollection(t)
	n := &storage.Note{}
	if err := db.CreateNote(n); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	if err := col.AddNoteTag(n.ID, "leech"); err != nil {
		t.Fatalf("AddNoteTag failed: %v", err)
	}
	got, err := db.GetNote(n.ID)
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if got.Tags != " leech " {
		t.Errorf("Expected canonical tag string, got %q", got.Tags)
	}

	// adding the same tag again is a no-op, case-insensitively
	if err := col.AddNoteTag(n.ID, "Leech"); err != nil {
		t.Fatalf("AddNoteTag failed: %v", err)
	}
	got, _ = db.GetNote(n.ID)
	if got.Tags != " leech " {
		t.Errorf("Expected no duplicate tag, got %q", got.Tags)
	}
}

func TestRemNoteTag(t *testing.T) {
	col, db, _ := openTestCollection(t)
	n := &storage.Note{Tags: " vocab leech "}
	if err := db.CreateNote(n); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	if err := col.RemNoteTag(n.ID, "LEECH"); err != nil {
		t.Fatalf("RemNoteTag failed: %v", err)
	}
	got, _ := db.GetNote(n.ID)
	if got.Tags != " vocab " {
		t.Errorf("Expected leech removed, got %q", got.Tags)
	}

	// removing a missing tag is a no-op
	if err := col.RemNoteTag(n.ID, "absent"); err != nil {
		t.Fatalf("RemNoteTag failed: %v", err)
	}
	got, _ = db.GetNote(n.ID)
	if got.Tags != " vocab " {
		t.Errorf("Expected tags unchanged, got %q", got.Tags)
	}
}

func TestNewCardEntersNewQueue(t *testing.T) {
	col, db, _ := openTestCollection(t)
	n := &storage.Note{}
	if err := db.CreateNote(n); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	c1, err := col.NewCard(n.ID, 1, 0)
	if err != nil {
		t.Fatalf("NewCard failed: %v", err)
	}
	c2, err := col.NewCard(n.ID, 1, 1)
	if err != nil {
		t.Fatalf("NewCard failed: %v", err)
	}
	if c2.Due != c1.Due+1 {
		t.Errorf("Expected consecutive positions, got %d and %d", c1.Due, c2.Due)
	}
}

func TestHooksPublishInOrder(t *testing.T) {
	bus := NewBus()
	var calls []string
	bus.Subscribe(EventLeech, func(*storage.Card) { calls = append(calls, "first") })
	bus.Subscribe(EventLeech, func(*storage.Card) { calls = append(calls, "second") })
	bus.Subscribe(EventReset, func(*storage.Card) { calls = append(calls, "reset") })

	bus.Publish(EventLeech, nil)
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("Handlers out of order: %v", calls)
	}
}

func TestEventNames(t *testing.T) {
	tests := map[Event]string{
		EventLeech:             "leech",
		EventRevertedCard:      "revertedCard",
		EventReset:             "reset",
		EventBeforeStateChange: "beforeStateChange",
		EventAfterStateChange:  "afterStateChange",
	}
	for e, want := range tests {
		if e.String() != want {
			t.Errorf("Event %d = %q, want %q", e, e.String(), want)
		}
	}
}

func TestTransactionSharesDeckState(t *testing.T) {
	col, _, _ := openTestCollection(t)
	err := col.Transaction(func(tx *Collection) error {
		d := tx.Decks.Get(1)
		d.NewToday = [2]int{1, 5}
		return tx.Decks.Save(d)
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
	// the in-memory deck map is shared with the transaction view
	if col.Decks.Get(1).NewToday.Count() != 5 {
		t.Error("Expected deck mutation visible after commit")
	}
}

package study

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfield/retain/internal/collection"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/sched"
	"github.com/mfield/retain/internal/storage"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func setupService(t *testing.T) (*Service, *collection.Collection, *storage.DB) {
	t.Helper()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "collection.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	col, err := collection.Open(db, collection.WithClock(clock), collection.WithLogger(quiet))
	if err != nil {
		t.Fatalf("Failed to open collection: %v", err)
	}
	s := sched.New(col)
	s.SetSpreadRev(false)
	return NewService(col, s), col, db
}

func addCards(t *testing.T, col *collection.Collection, db *storage.DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		note := &storage.Note{}
		if err := db.CreateNote(note); err != nil {
			t.Fatalf("CreateNote failed: %v", err)
		}
		if _, err := col.NewCard(note.ID, 1, 0); err != nil {
			t.Fatalf("NewCard failed: %v", err)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, col, db := setupService(t)
	addCards(t, col, db, 3)

	session, err := svc.StartSession(1, 0)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("Expected a session id")
	}

	reviewed := 0
	for {
		card, err := svc.NextCard(session.ID)
		if err != nil {
			t.Fatalf("NextCard failed: %v", err)
		}
		if card == nil {
			break
		}
		// grade everything Easy so cards graduate out of today
		if err := svc.Answer(session.ID, domain.Ease(3)); err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
		reviewed++
		if reviewed > 10 {
			t.Fatal("Session did not converge")
		}
	}
	if reviewed != 3 {
		t.Errorf("Expected 3 cards reviewed, got %d", reviewed)
	}

	stats, err := svc.EndSession(session.ID)
	if err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if stats.CardsReviewed != 3 {
		t.Errorf("Expected 3 in stats, got %d", stats.CardsReviewed)
	}

	if _, err := svc.NextCard(session.ID); err == nil {
		t.Error("Expected an error after the session ended")
	}
}

func TestSessionMaxCards(t *testing.T) {
	svc, col, db := setupService(t)
	addCards(t, col, db, 5)

	session, err := svc.StartSession(1, 2)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	served := 0
	for {
		card, err := svc.NextCard(session.ID)
		if err != nil {
			t.Fatalf("NextCard failed: %v", err)
		}
		if card == nil {
			break
		}
		if err := svc.Answer(session.ID, domain.Ease(3)); err != nil {
			t.Fatalf("Answer failed: %v", err)
		}
		served++
	}
	if served != 2 {
		t.Errorf("Expected the session capped at 2 cards, got %d", served)
	}
}

func TestAnswerWithoutCardFails(t *testing.T) {
	svc, col, db := setupService(t)
	addCards(t, col, db, 1)

	session, err := svc.StartSession(1, 0)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := svc.Answer(session.ID, domain.Good); err == nil {
		t.Error("Expected an error with no card outstanding")
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	svc, _, _ := setupService(t)
	if _, err := svc.NextCard("nope"); err == nil {
		t.Error("Expected unknown session error")
	}
	if err := svc.Answer("nope", domain.Good); err == nil {
		t.Error("Expected unknown session error")
	}
	if _, err := svc.EndSession("nope"); err == nil {
		t.Error("Expected unknown session error")
	}
}

package sched

import (
	"testing"
	"time"

	"github.com/mfield/retain/internal/domain"
)

func TestSiblingBuryOnAnswer(t *testing.T) {
	env := setupTest(t)
	nid := env.addNote(t)
	c1 := env.addNewCard(t, nid)
	c2 := env.addNewCard(t, nid)
	c3 := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))

	if err := env.sched.AnswerCard(c1, 2, time.Second); err != nil {
		t.Fatalf("AnswerCard failed: %v", err)
	}

	for _, id := range []int64{c2.ID, c3.ID} {
		sib := env.reload(t, id)
		if sib.Queue != domain.QueueSchedBuried {
			t.Errorf("Expected sibling %d scheduler-buried, got %s", id, sib.Queue)
		}
	}

	// manual unbury only touches user-buried cards
	if err := env.sched.UnburyCards(); err != nil {
		t.Fatalf("UnburyCards failed: %v", err)
	}
	if q := env.reload(t, c2.ID).Queue; q != domain.QueueSchedBuried {
		t.Errorf("UnburyCards must leave sibling-buried cards alone, got %s", q)
	}

	// the day rollover brings them back
	env.clock.advance(25 * time.Hour)
	if err := env.sched.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if q := env.reload(t, c2.ID).Queue; q != domain.QueueNew {
		t.Errorf("Expected sibling back in new queue after rollover, got %s", q)
	}
	if q := env.reload(t, c3.ID).Queue; q != domain.QueueReview {
		t.Errorf("Expected sibling back in review queue after rollover, got %s", q)
	}
}

func TestSiblingBuryDisabled(t *testing.T) {
	env := setupTest(t)
	conf := env.col.Decks.Config(1)
	conf.New.Bury = false
	conf.Rev.Bury = false

	nid := env.addNote(t)
	c1 := env.addNewCard(t, nid)
	c2 := env.addNewCard(t, nid)

	if err := env.sched.AnswerCard(c1, 2, time.Second); err != nil {
		t.Fatalf("AnswerCard failed: %v", err)
	}
	if q := env.reload(t, c2.ID).Queue; q != domain.QueueNew {
		t.Errorf("Expected sibling untouched with bury off, got %s", q)
	}
}

func TestBuryUnburyRoundTrip(t *testing.T) {
	env := setupTest(t)
	nid := env.addNote(t)
	card := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))

	if err := env.sched.BuryCards([]int64{card.ID}, domain.BuryUser); err != nil {
		t.Fatalf("BuryCards failed: %v", err)
	}
	if q := env.reload(t, card.ID).Queue; q != domain.QueueUserBuried {
		t.Fatalf("Expected user-buried, got %s", q)
	}

	if err := env.sched.UnburyCards(); err != nil {
		t.Fatalf("UnburyCards failed: %v", err)
	}
	got := env.reload(t, card.ID)
	if got.Queue != domain.CardQueue(got.Type) {
		t.Errorf("Expected queue = type after unbury, got queue=%s type=%s", got.Queue, got.Type)
	}
}

func TestSuspendUnwindsFilteredDeck(t *testing.T) {
	env := setupTest(t)
	dyn := env.addDynDeck(t)
	nid := env.addNote(t)
	card := env.addReviewCard(t, nid, 5, int64(env.sched.Today()+3))

	if _, err := env.sched.RebuildDyn(dyn.ID); err != nil {
		t.Fatalf("RebuildDyn failed: %v", err)
	}
	if err := env.sched.SuspendCards([]int64{card.ID}); err != nil {
		t.Fatalf("SuspendCards failed: %v", err)
	}

	got := env.reload(t, card.ID)
	if got.Queue != domain.QueueSuspended {
		t.Errorf("Expected suspended queue, got %s", got.Queue)
	}
	if got.DID != 1 || got.ODid != 0 || got.ODue != 0 {
		t.Errorf("Expected card restored home before suspension, got did=%d odid=%d odue=%d",
			got.DID, got.ODid, got.ODue)
	}
	if got.Due != int64(env.sched.Today()+3) {
		t.Errorf("Expected original due back, got %d", got.Due)
	}

	if err := env.sched.UnsuspendCards([]int64{card.ID}); err != nil {
		t.Fatalf("UnsuspendCards failed: %v", err)
	}
	if q := env.reload(t, card.ID).Queue; q != domain.QueueReview {
		t.Errorf("Expected review queue after unsuspend, got %s", q)
	}
}

func TestSuspendedNeverPicked(t *testing.T) {
	env := setupTest(t)
	nid := env.addNote(t)
	card := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
	if err := env.sched.SuspendCards([]int64{card.ID}); err != nil {
		t.Fatalf("SuspendCards failed: %v", err)
	}

	got, err := env.sched.NextCard()
	if err != nil {
		t.Fatalf("NextCard failed: %v", err)
	}
	if got != nil {
		t.Errorf("Picker must never serve a suspended card, got %d", got.ID)
	}
}

func TestBuriedNeverPicked(t *testing.T) {
	env := setupTest(t)
	nid := env.addNote(t)
	user := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
	auto := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
	if err := env.sched.BuryCards([]int64{user.ID}, domain.BuryUser); err != nil {
		t.Fatalf("BuryCards failed: %v", err)
	}
	if err := env.sched.BuryCards([]int64{auto.ID}, domain.BurySibling); err != nil {
		t.Fatalf("BuryCards failed: %v", err)
	}

	got, err := env.sched.NextCard()
	if err != nil {
		t.Fatalf("NextCard failed: %v", err)
	}
	if got != nil {
		t.Errorf("Picker must never serve a buried card, got %d", got.ID)
	}
}

func TestUnburyForDeckScopedToActive(t *testing.T) {
	env := setupTest(t)
	other, err := env.col.Decks.Create("Other", nil)
	if err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}

	nid := env.addNote(t)
	inActive := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
	elsewhere := env.addReviewCard(t, nid, 5, int64(env.sched.Today()))
	elsewhere.DID = other.ID
	if err := env.db.FlushCard(elsewhere); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	if err := env.sched.BuryCards([]int64{inActive.ID, elsewhere.ID}, domain.BuryUser); err != nil {
		t.Fatalf("BuryCards failed: %v", err)
	}

	// active set is the default deck only
	if err := env.sched.UnburyCardsForDeck(); err != nil {
		t.Fatalf("UnburyCardsForDeck failed: %v", err)
	}
	if q := env.reload(t, inActive.ID).Queue; q != domain.QueueReview {
		t.Errorf("Expected active-deck card unburied, got %s", q)
	}
	if q := env.reload(t, elsewhere.ID).Queue; q != domain.QueueUserBuried {
		t.Errorf("Expected other-deck card still buried, got %s", q)
	}
}

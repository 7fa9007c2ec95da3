package sched

import (
	"testing"

	"github.com/mfield/retain/internal/domain"
)

func TestFuzzIvlRange(t *testing.T) {
	tests := []struct {
		ivl      int
		min, max int
	}{
		{1, 1, 1},
		{2, 2, 3},
		{4, 3, 5},   // 25%
		{6, 5, 7},   // 25% of 6 = 1
		{10, 8, 12}, // 15% floored to min 2
		{20, 17, 23},
		{100, 95, 105}, // 5%
		{40, 36, 44},   // 5% of 40 = 2, floored to min 4
	}
	for _, tt := range tests {
		lo, hi := fuzzIvlRange(tt.ivl)
		if lo != tt.min || hi != tt.max {
			t.Errorf("fuzzIvlRange(%d) = [%d,%d], want [%d,%d]", tt.ivl, lo, hi, tt.min, tt.max)
		}
	}
}

func TestFuzzedIvlStaysInRange(t *testing.T) {
	env := setupTest(t)
	for _, ivl := range []int{1, 2, 5, 15, 60} {
		lo, hi := fuzzIvlRange(ivl)
		for i := 0; i < 50; i++ {
			got := env.sched.fuzzedIvl(ivl)
			if got < lo || got > hi {
				t.Fatalf("fuzzedIvl(%d) = %d outside [%d,%d]", ivl, got, lo, hi)
			}
		}
	}
}

func TestAdjRevIvlIdentityWithoutSpread(t *testing.T) {
	env := setupTest(t)
	env.sched.SetSpreadRev(false)
	for _, ivl := range []int{1, 7, 42, 365} {
		if got := env.sched.adjRevIvl(ivl); got != ivl {
			t.Errorf("adjRevIvl(%d) = %d, want identity with spreading off", ivl, got)
		}
	}
}

func TestDelayForGrade(t *testing.T) {
	env := setupTest(t)
	delays := []float64{1, 10}

	tests := []struct {
		left int
		want int64
	}{
		{2, 60},     // full steps remaining: first delay
		{1, 600},    // one step left: last delay
		{0, 60},     // relearning entry point
		{2002, 60},  // packed values use only the low digits
		{1001, 600},
		{5, 60}, // out of range falls back to the first step
	}
	for _, tt := range tests {
		if got := env.sched.delayForGrade(delays, tt.left); got != tt.want {
			t.Errorf("delayForGrade(%v, %d) = %d, want %d", delays, tt.left, got, tt.want)
		}
	}

	// no steps configured: one minute
	if got := env.sched.delayForGrade(nil, 0); got != 60 {
		t.Errorf("delayForGrade(nil, 0) = %d, want 60", got)
	}
}

func TestLeftToday(t *testing.T) {
	env := setupTest(t)
	delays := []float64{1, 10}

	// 9am: both steps fit before midnight
	if got := env.sched.leftToday(delays, 2, 0); got != 2 {
		t.Errorf("Expected both steps to fit, got %d", got)
	}

	// 5 minutes before the cutoff only the 1 minute step fits
	late := env.sched.DayCutoff() - 300
	if got := env.sched.leftToday(delays, 2, late); got != 1 {
		t.Errorf("Expected one step to fit near the cutoff, got %d", got)
	}

	// 30 seconds before the cutoff nothing fits
	if got := env.sched.leftToday(delays, 2, env.sched.DayCutoff()-30); got != 0 {
		t.Errorf("Expected no steps to fit at the cutoff, got %d", got)
	}
}

func TestNextIvlPreviewMatchesAnswer(t *testing.T) {
	env := setupTest(t)
	nid := env.addNote(t)
	card := env.addReviewCard(t, nid, 10, int64(env.sched.Today()-2))

	want := env.sched.NextIvl(card, domain.Good)
	if want != 28*86400 {
		t.Fatalf("Expected preview of 28 days, got %d", want)
	}

	if err := env.sched.AnswerCard(card, domain.Good, 0); err != nil {
		t.Fatalf("AnswerCard failed: %v", err)
	}
	if int64(card.Ivl)*86400 != want {
		t.Errorf("Preview %d and applied interval %d disagree", want, card.Ivl*86400)
	}
}

func TestNextIvlPreviewForNewCard(t *testing.T) {
	env := setupTest(t)
	nid := env.addNote(t)
	card := env.addNewCard(t, nid)

	// Again restarts the steps: first delay
	if got := env.sched.NextIvl(card, domain.Again); got != 60 {
		t.Errorf("Expected 60s preview for Again, got %d", got)
	}
	// Easy graduates with the easy interval
	if got := env.sched.NextIvl(card, 3); got != 4*86400 {
		t.Errorf("Expected 4d preview for Easy, got %d", got)
	}
}

func TestDynIvlBoost(t *testing.T) {
	env := setupTest(t)
	dyn := env.addDynDeck(t)
	nid := env.addNote(t)
	card := env.addReviewCard(t, nid, 10, int64(env.sched.Today()+2))

	if _, err := env.sched.RebuildDyn(dyn.ID); err != nil {
		t.Fatalf("RebuildDyn failed: %v", err)
	}
	moved := env.reload(t, card.ID)
	// last review was odue - ivl = today+2-10 = 8 days ago; factor 2.5
	// gives (2.5+1.2)/2 = 1.85; 8*1.85 = 14.8 -> 14
	if got := env.sched.dynIvlBoost(moved); got != 14 {
		t.Errorf("Expected boosted interval 14, got %d", got)
	}
}

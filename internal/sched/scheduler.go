package sched

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mfield/retain/internal/collection"
	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/storage"
)

const (
	// queueLimit bounds one queue fill; reportLimit bounds counts and
	// stands in for "unlimited" on filtered decks.
	queueLimit  = 50
	reportLimit = 99999

	// answer times above this are clamped before entering the revlog
	maxAnswerTimeMS = 60 * 1000
)

var (
	// ErrInvalidEase is returned when an answer is graded outside 1-4.
	ErrInvalidEase = errors.New("ease must be between 1 and 4")
	// ErrInvalidQueue is returned when a card reaches the answer
	// engine from a queue it cannot be answered in.
	ErrInvalidQueue = errors.New("card is not in an answerable queue")
)

// Scheduler decides which card to show next and how to mutate its
// state when the user grades their recall. All operations run on the
// caller's goroutine and complete synchronously.
type Scheduler struct {
	col *collection.Collection

	// ver selects between the two scheduler generations. It controls
	// exactly two strategy points: sub-day learning-step fuzz and
	// leech-check timing.
	ver       int
	spreadRev bool

	today     int
	dayCutoff int64

	newCount int
	lrnCount int
	revCount int

	newQueue       []int64
	newDids        []int64
	newCardModulus int

	lrnQueue    lrnQueue
	lrnDayQueue []int64
	lrnDids     []int64

	revQueue []int64
	revDids  []int64

	haveQueues bool
	reps       int

	rng *rand.Rand

	lastTakenMS  int
	lastRevlogID int64
	undo         *undoState
}

// New builds a scheduler over an open collection and computes the
// current day window.
func New(col *collection.Collection) *Scheduler {
	s := &Scheduler{
		col:       col,
		ver:       col.Conf.SchedVer,
		spreadRev: true,
		rng:       rand.New(rand.NewSource(col.TimeMS())),
	}
	if s.ver == 0 {
		s.ver = 1
	}
	s.updateCutoff()
	return s
}

// SetSpreadRev toggles review-interval fuzzing; with it off the fuzz
// step is the identity.
func (s *Scheduler) SetSpreadRev(on bool) { s.spreadRev = on }

// Today returns the current day index since collection creation.
func (s *Scheduler) Today() int { return s.today }

// DayCutoff returns the unix second at which today rolls over.
func (s *Scheduler) DayCutoff() int64 { return s.dayCutoff }

// Reset recomputes the day window and rebuilds all queue state.
func (s *Scheduler) Reset() error {
	s.updateCutoff()
	if err := s.resetLrn(); err != nil {
		return err
	}
	if err := s.resetRev(); err != nil {
		return err
	}
	if err := s.resetNew(); err != nil {
		return err
	}
	s.haveQueues = true
	s.col.Hooks.Publish(collection.EventReset, nil)
	return nil
}

// NextCard pops the next card to study, or nil when the session is
// finished.
func (s *Scheduler) NextCard() (*storage.Card, error) {
	if err := s.checkDay(); err != nil {
		return nil, err
	}
	if !s.haveQueues {
		if err := s.Reset(); err != nil {
			return nil, err
		}
	}
	card, err := s.getCard()
	if err != nil {
		return nil, err
	}
	if card != nil {
		s.reps++
	}
	return card, nil
}

// getCard applies the selection policy across the three queues.
func (s *Scheduler) getCard() (*storage.Card, error) {
	// learning card due now?
	if c, err := s.getLrnCard(false); err != nil || c != nil {
		return c, err
	}
	// new first, or time for one?
	if s.timeForNewCard() {
		if c, err := s.getNewCard(); err != nil || c != nil {
			return c, err
		}
	}
	// card due for review?
	if c, err := s.getRevCard(); err != nil || c != nil {
		return c, err
	}
	// day learning card due?
	if c, err := s.getLrnDayCard(); err != nil || c != nil {
		return c, err
	}
	// new cards left?
	if c, err := s.getNewCard(); err != nil || c != nil {
		return c, err
	}
	// collapse or finish
	return s.getLrnCard(true)
}

// Counts returns the (new, learning, review) triple shown in the deck
// footer. When a card is in hand it is counted in its own column;
// day-learning counts as learning.
func (s *Scheduler) Counts(card *storage.Card) (int, int, int) {
	n, l, r := s.newCount, s.lrnCount, s.revCount
	if card != nil {
		switch s.CountIdx(card) {
		case domain.QueueLearning:
			l += card.Left / 1000
		case domain.QueueNew:
			n++
		case domain.QueueReview:
			r++
		}
	}
	return n, l, r
}

// CountIdx reports which column a card counts in: day-learning maps to
// learning, everything else to its own queue.
func (s *Scheduler) CountIdx(card *storage.Card) domain.CardQueue {
	if card.Queue == domain.QueueDayLearning {
		return domain.QueueLearning
	}
	return card.Queue
}

// AnswerButtons returns how many grading buttons the card supports in
// its current state (2, 3 or 4).
func (s *Scheduler) AnswerButtons(card *storage.Card) int {
	if card.ODue != 0 {
		// normal review in a filtered deck?
		if card.ODid != 0 && card.Queue == domain.QueueReview {
			return 4
		}
		conf := s.lrnConf(card)
		if card.Type == domain.TypeNew || card.Type == domain.TypeLearning || len(conf.Delays) > 1 {
			return 3
		}
		return 2
	}
	if card.Queue == domain.QueueReview {
		return 4
	}
	return 3
}

// TotalRevForActiveDecks counts every due review in the active decks
// without per-deck caps.
func (s *Scheduler) TotalRevForActiveDecks() (int, error) {
	return s.col.DB.CountRevTotal(s.col.Decks.Active(), int64(s.today), reportLimit)
}

// HaveBuried reports whether the active decks hold any buried card.
func (s *Scheduler) HaveBuried() (bool, error) {
	return s.col.DB.HaveBuried(s.col.Decks.Active())
}

// activeDecks returns the active deck id set.
func (s *Scheduler) activeDecks() []int64 {
	return s.col.Decks.Active()
}

// transact runs fn with the scheduler temporarily bound to a
// transaction-scoped collection view.
func (s *Scheduler) transact(fn func() error) error {
	return s.col.Transaction(func(txCol *collection.Collection) error {
		saved := s.col
		s.col = txCol
		defer func() { s.col = saved }()
		return fn()
	})
}

// cardConf resolves the options of the deck a card currently sits in;
// per-kind resolution for filtered cards happens in newConf/lapseConf/
// revConf.
func (s *Scheduler) cardConf(card *storage.Card) *deck.Config {
	return s.col.Decks.ConfForDid(card.DID)
}

// resched reports whether answering should reschedule the card; it is
// false only inside a filtered deck built without rescheduling.
func (s *Scheduler) resched(card *storage.Card) bool {
	conf := s.cardConf(card)
	if !conf.Dyn {
		return true
	}
	return conf.Resched
}

// stale logs and drops a queue entry whose backing row changed since
// the queue was built.
func (s *Scheduler) stale(id int64, reason string) {
	s.col.Log.Warn("dropping stale queue entry", "card", id, "reason", reason)
}

// fetchQueued materialises a queued id, skipping rows that vanished.
// Returns (nil, nil) for a stale entry.
func (s *Scheduler) fetchQueued(id int64, want domain.CardQueue) (*storage.Card, error) {
	card, err := s.col.DB.GetCard(id)
	if err != nil {
		if errors.Is(err, storage.ErrCardNotFound) {
			s.stale(id, "row deleted")
			return nil, nil
		}
		return nil, err
	}
	if card.Queue != want {
		s.stale(id, fmt.Sprintf("queue changed to %s", card.Queue))
		return nil, nil
	}
	return card, nil
}

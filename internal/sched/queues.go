package sched

import (
	"errors"
	"math/rand"

	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/storage"
)

// Daily limits
//////////////////////////////////////////////////////////////////////

// deckNewLimitSingle is a deck's own new-card allowance for today,
// ignoring ancestors. Filtered decks are effectively unlimited.
func (s *Scheduler) deckNewLimitSingle(d *deck.Deck) int {
	if d.IsDyn() {
		return reportLimit
	}
	conf := s.col.Decks.Config(d.ConfID)
	lim := conf.New.PerDay - d.NewToday.Count()
	if s.col.Conf.LimitAllCards {
		all := conf.PerDayAll - d.RevToday.Count() - d.NewToday.Count()
		if all < lim {
			lim = all
		}
	}
	if lim < 0 {
		lim = 0
	}
	return lim
}

// deckRevLimitSingle is the review counterpart of deckNewLimitSingle.
func (s *Scheduler) deckRevLimitSingle(d *deck.Deck) int {
	if d.IsDyn() {
		return reportLimit
	}
	conf := s.col.Decks.Config(d.ConfID)
	lim := conf.Rev.PerDay - d.RevToday.Count()
	if s.col.Conf.LimitAllCards {
		all := conf.PerDayAll - d.RevToday.Count() - d.NewToday.Count()
		if all < lim {
			lim = all
		}
	}
	if lim < 0 {
		lim = 0
	}
	return lim
}

// deckLimit resolves a deck's effective limit as the minimum of its own
// allowance and every ancestor's.
func (s *Scheduler) deckLimit(did int64, single func(*deck.Deck) int) int {
	d := s.col.Decks.Get(did)
	if d == nil {
		return 0
	}
	lim := single(d)
	for _, p := range s.col.Decks.Parents(did) {
		if l := single(p); l < lim {
			lim = l
		}
	}
	return lim
}

func (s *Scheduler) deckNewLimit(did int64) int {
	return s.deckLimit(did, s.deckNewLimitSingle)
}

func (s *Scheduler) deckRevLimit(did int64) int {
	return s.deckLimit(did, s.deckRevLimitSingle)
}

// walkingCount accumulates per-deck counts across the active decks
// while children consume their ancestors' remaining budget.
func (s *Scheduler) walkingCount(single func(*deck.Deck) int, cnt func(did int64, lim int) (int, error)) (int, error) {
	tot := 0
	remaining := map[int64]int{}
	for _, did := range s.activeDecks() {
		d := s.col.Decks.Get(did)
		if d == nil {
			continue
		}
		lim := single(d)
		if lim == 0 {
			continue
		}
		parents := s.col.Decks.Parents(did)
		for _, p := range parents {
			if _, ok := remaining[p.ID]; !ok {
				remaining[p.ID] = single(p)
			}
			if remaining[p.ID] < lim {
				lim = remaining[p.ID]
			}
		}
		n, err := cnt(did, lim)
		if err != nil {
			return 0, err
		}
		for _, p := range parents {
			remaining[p.ID] -= n
		}
		remaining[did] = lim - n
		tot += n
	}
	return tot, nil
}

// dayRand returns the PRNG used for queue shuffles. Seeding by the day
// index keeps the order stable when the queues are rebuilt mid-day.
func (s *Scheduler) dayRand() *rand.Rand {
	return rand.New(rand.NewSource(int64(s.today)))
}

// Learning queues
//////////////////////////////////////////////////////////////////////

func (s *Scheduler) resetLrn() error {
	dids := s.activeDecks()
	sub, err := s.col.DB.SumLearnStepsDue(dids, s.dayCutoff, reportLimit)
	if err != nil {
		return err
	}
	day, err := s.col.DB.CountDayLearn(dids, int64(s.today), reportLimit)
	if err != nil {
		return err
	}
	s.lrnCount = sub + day
	s.lrnQueue.clear()
	s.lrnDayQueue = nil
	s.lrnDids = dids
	return nil
}

// fillLrn populates the sub-day learning heap.
func (s *Scheduler) fillLrn() (bool, error) {
	if s.lrnCount == 0 {
		return false, nil
	}
	if s.lrnQueue.len() > 0 {
		return true, nil
	}
	entries, err := s.col.DB.LearnDueEntries(s.activeDecks(), s.dayCutoff, reportLimit)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		s.lrnQueue.push(e.Due, e.ID)
	}
	return s.lrnQueue.len() > 0, nil
}

// getLrnCard serves the top of the learning heap once it is due. With
// collapse set, cards due within collapseTime are served early so the
// session does not stall at the end.
func (s *Scheduler) getLrnCard(collapse bool) (*storage.Card, error) {
	for {
		ok, err := s.fillLrn()
		if err != nil || !ok {
			return nil, err
		}
		cutoff := s.col.TimeS()
		if collapse {
			cutoff += int64(s.col.Conf.CollapseTime)
		}
		if s.lrnQueue.peekDue() >= cutoff {
			return nil, nil
		}
		e := s.lrnQueue.pop()
		card, err := s.fetchQueued(e.id, domain.QueueLearning)
		if err != nil {
			return nil, err
		}
		if card == nil {
			continue
		}
		s.lrnCount -= card.Left / 1000
		return card, nil
	}
}

// fillLrnDay refills the day-learning queue one deck at a time.
func (s *Scheduler) fillLrnDay() (bool, error) {
	if s.lrnCount == 0 {
		return false, nil
	}
	if len(s.lrnDayQueue) > 0 {
		return true, nil
	}
	for len(s.lrnDids) > 0 {
		did := s.lrnDids[0]
		ids, err := s.col.DB.DayLearnIDs(did, int64(s.today), queueLimit)
		if err != nil {
			return false, err
		}
		if len(ids) > 0 {
			r := s.dayRand()
			r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			s.lrnDayQueue = ids
			if len(ids) < queueLimit {
				s.lrnDids = s.lrnDids[1:]
			}
			return true, nil
		}
		s.lrnDids = s.lrnDids[1:]
	}
	return false, nil
}

func (s *Scheduler) getLrnDayCard() (*storage.Card, error) {
	for {
		ok, err := s.fillLrnDay()
		if err != nil || !ok {
			return nil, err
		}
		id := s.lrnDayQueue[len(s.lrnDayQueue)-1]
		s.lrnDayQueue = s.lrnDayQueue[:len(s.lrnDayQueue)-1]
		card, err := s.fetchQueued(id, domain.QueueDayLearning)
		if err != nil {
			return nil, err
		}
		if card == nil {
			continue
		}
		s.lrnCount--
		return card, nil
	}
}

// Review queue
//////////////////////////////////////////////////////////////////////

func (s *Scheduler) resetRev() error {
	n, err := s.walkingCount(s.deckRevLimitSingle, func(did int64, lim int) (int, error) {
		return s.col.DB.CountRevForDeck(did, int64(s.today), lim)
	})
	if err != nil {
		return err
	}
	s.revCount = n
	s.revQueue = nil
	s.revDids = s.activeDecks()
	return nil
}

// fillRev fills the review queue one deck at a time, in active-deck
// order. Filtered decks keep their stored due order (reversed, since
// the queue is consumed from the end); regular decks are shuffled with
// the day-seeded PRNG.
func (s *Scheduler) fillRev() (bool, error) {
	return s.fillRevInner(true)
}

func (s *Scheduler) fillRevInner(allowReset bool) (bool, error) {
	if len(s.revQueue) > 0 {
		return true, nil
	}
	if s.revCount == 0 {
		return false, nil
	}
	for len(s.revDids) > 0 {
		did := s.revDids[0]
		lim := s.deckRevLimit(did)
		if lim > queueLimit {
			lim = queueLimit
		}
		if lim > 0 {
			ids, err := s.col.DB.RevIDs(did, int64(s.today), lim)
			if err != nil {
				return false, err
			}
			if len(ids) > 0 {
				d := s.col.Decks.Get(did)
				if d != nil && d.IsDyn() {
					for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
						ids[i], ids[j] = ids[j], ids[i]
					}
				} else {
					r := s.dayRand()
					r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
				}
				s.revQueue = ids
				if len(ids) < lim {
					s.revDids = s.revDids[1:]
				}
				return true, nil
			}
		}
		s.revDids = s.revDids[1:]
	}
	if s.revCount > 0 && allowReset {
		// the count is non-zero but the queues drained: entries were
		// removed from the queue without being answered. Rebuild once.
		if err := s.resetRev(); err != nil {
			return false, err
		}
		return s.fillRevInner(false)
	}
	return false, nil
}

func (s *Scheduler) getRevCard() (*storage.Card, error) {
	for {
		ok, err := s.fillRev()
		if err != nil || !ok {
			return nil, err
		}
		id := s.revQueue[len(s.revQueue)-1]
		s.revQueue = s.revQueue[:len(s.revQueue)-1]
		card, err := s.fetchQueued(id, domain.QueueReview)
		if err != nil {
			return nil, err
		}
		if card == nil {
			continue
		}
		s.revCount--
		return card, nil
	}
}

// New queue
//////////////////////////////////////////////////////////////////////

func (s *Scheduler) resetNew() error {
	n, err := s.walkingCount(s.deckNewLimitSingle, func(did int64, lim int) (int, error) {
		return s.col.DB.CountNewForDeck(did, lim)
	})
	if err != nil {
		return err
	}
	s.newCount = n
	s.newQueue = nil
	s.newDids = s.activeDecks()
	s.updateNewCardRatio()
	return nil
}

// updateNewCardRatio derives how often a new card is mixed into
// reviews when new cards are distributed.
func (s *Scheduler) updateNewCardRatio() {
	if s.col.Conf.NewSpread == domain.NewSpreadDistribute && s.newCount > 0 {
		s.newCardModulus = (s.newCount + s.revCount) / s.newCount
		// if there are reviews, pace new cards at least every other rep
		if s.revCount > 0 && s.newCardModulus < 2 {
			s.newCardModulus = 2
		}
		return
	}
	s.newCardModulus = 0
}

// timeForNewCard reports whether the picker should serve a new card
// before checking reviews.
func (s *Scheduler) timeForNewCard() bool {
	if s.newCount == 0 {
		return false
	}
	switch s.col.Conf.NewSpread {
	case domain.NewSpreadLast:
		return false
	case domain.NewSpreadFirst:
		return true
	default:
		return s.newCardModulus > 0 && s.reps > 0 && s.reps%s.newCardModulus == 0
	}
}

func (s *Scheduler) fillNew() (bool, error) {
	return s.fillNewInner(true)
}

// fillNewInner fills the new queue one deck at a time. Decks set to
// sequential order serve cards by position (reversed, since the queue
// is consumed from the end); decks set to random order are shuffled
// with the day-seeded PRNG. Filtered decks always keep due order.
func (s *Scheduler) fillNewInner(allowReset bool) (bool, error) {
	if len(s.newQueue) > 0 {
		return true, nil
	}
	if s.newCount == 0 {
		return false, nil
	}
	for len(s.newDids) > 0 {
		did := s.newDids[0]
		lim := s.deckNewLimit(did)
		if lim > queueLimit {
			lim = queueLimit
		}
		if lim > 0 {
			ids, err := s.col.DB.NewQueueIDs(did, lim)
			if err != nil {
				return false, err
			}
			if len(ids) > 0 {
				d := s.col.Decks.Get(did)
				if d != nil && !d.IsDyn() && s.col.Decks.Config(d.ConfID).New.Order == domain.NewCardsRandom {
					r := s.dayRand()
					r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
				} else {
					// position order; consumed from the end
					for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
						ids[i], ids[j] = ids[j], ids[i]
					}
				}
				s.newQueue = ids
				if len(ids) < lim {
					s.newDids = s.newDids[1:]
				}
				return true, nil
			}
		}
		s.newDids = s.newDids[1:]
	}
	if s.newCount > 0 && allowReset {
		if err := s.resetNew(); err != nil {
			return false, err
		}
		return s.fillNewInner(false)
	}
	return false, nil
}

func (s *Scheduler) getNewCard() (*storage.Card, error) {
	for {
		ok, err := s.fillNew()
		if err != nil || !ok {
			return nil, err
		}
		id := s.newQueue[len(s.newQueue)-1]
		s.newQueue = s.newQueue[:len(s.newQueue)-1]
		card, err := s.col.DB.GetCard(id)
		if err != nil {
			if errors.Is(err, storage.ErrCardNotFound) {
				s.stale(id, "row deleted")
				continue
			}
			return nil, err
		}
		if card.Queue != domain.QueueNew && card.Queue != domain.QueueCramNew {
			s.stale(id, "queue changed")
			continue
		}
		s.newCount--
		return card, nil
	}
}

package sched

import (
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/storage"
)

// removeFromMemQueues drops a card id from every in-memory queue so a
// just-buried or suspended card cannot be served this session.
func (s *Scheduler) removeFromMemQueues(id int64) {
	s.lrnQueue.remove(id)
	s.lrnDayQueue = removeID(s.lrnDayQueue, id)
	s.revQueue = removeID(s.revQueue, id)
	s.newQueue = removeID(s.newQueue, id)
}

func removeID(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// SuspendCards takes cards out of study entirely: restored from any
// filtered deck, pulled out of the learning queues, then parked in the
// suspended queue.
func (s *Scheduler) SuspendCards(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.transact(func() error {
		if err := s.col.DB.RestoreDynCards(ids, s.col.USN()); err != nil {
			return err
		}
		if err := s.removeLrn(ids); err != nil {
			return err
		}
		if err := s.col.DB.SetQueue(ids, domain.QueueSuspended, s.col.TimeS(), s.col.USN()); err != nil {
			return err
		}
		for _, id := range ids {
			s.removeFromMemQueues(id)
		}
		return nil
	})
}

// UnsuspendCards puts suspended cards back in the queue their type
// implies.
func (s *Scheduler) UnsuspendCards(ids []int64) error {
	return s.col.DB.Unsuspend(ids, s.col.TimeS(), s.col.USN())
}

// BuryCards hides cards until the next day (scheduler reason) or until
// the user unburies them.
func (s *Scheduler) BuryCards(ids []int64, reason domain.BuryReason) error {
	if len(ids) == 0 {
		return nil
	}
	return s.transact(func() error {
		if err := s.col.DB.RestoreDynCards(ids, s.col.USN()); err != nil {
			return err
		}
		if err := s.removeLrn(ids); err != nil {
			return err
		}
		if err := s.col.DB.SetQueue(ids, reason.Queue(), s.col.TimeS(), s.col.USN()); err != nil {
			return err
		}
		for _, id := range ids {
			s.removeFromMemQueues(id)
		}
		return nil
	})
}

// UnburyCards flips every user-buried card in the collection back to
// its type. Scheduler-buried cards are left for the day rollover.
func (s *Scheduler) UnburyCards() error {
	s.col.Conf.LastUnburied = s.today
	if err := s.col.FlushConf(); err != nil {
		return err
	}
	return s.col.DB.UnburyAll(domain.QueueUserBuried, s.col.TimeS(), s.col.USN())
}

// UnburyCardsForDeck unburies user-buried cards in the active decks
// only.
func (s *Scheduler) UnburyCardsForDeck() error {
	return s.col.DB.UnburyForDecks(domain.QueueUserBuried, s.activeDecks(), s.col.TimeS(), s.col.USN())
}

// removeLrn takes the given cards out of the learning queues:
// relearning reviews go back to the review queue, learning new cards
// are forgotten.
func (s *Scheduler) removeLrn(ids []int64) error {
	return s.col.DB.RemoveFromLearning(ids, nil, s.col.Conf.NextPos, s.col.TimeS(), s.col.USN())
}

// RemoveLrnForDecks clears the learning queues of every deck; used by
// integrity checks.
func (s *Scheduler) RemoveLrnForDecks() error {
	return s.col.DB.RemoveFromLearning(nil, s.col.Decks.AllIDs(), s.col.Conf.NextPos, s.col.TimeS(), s.col.USN())
}

// ForgetCards resets cards to new at the end of the new queue.
func (s *Scheduler) ForgetCards(ids []int64) error {
	start := s.col.Conf.NextPos
	s.col.Conf.NextPos += int64(len(ids))
	if err := s.col.FlushConf(); err != nil {
		return err
	}
	return s.col.DB.ForgetCards(ids, start, s.col.TimeS(), s.col.USN())
}

// burySiblings buries the other cards of the answered card's note so
// two sides of one fact never appear in the same session. Buried
// siblings come back at the next day rollover.
func (s *Scheduler) burySiblings(card *storage.Card) error {
	buryNew := s.newConf(card).Bury
	buryRev := s.revConf(card).Bury
	if !buryNew && !buryRev {
		return nil
	}
	sibs, err := s.col.DB.Siblings(card.NID, card.ID, int64(s.today))
	if err != nil {
		return err
	}
	var toBury []int64
	for _, sib := range sibs {
		if sib.Queue == domain.QueueReview {
			if buryRev {
				toBury = append(toBury, sib.ID)
			}
			s.revQueue = removeID(s.revQueue, sib.ID)
		} else {
			if buryNew {
				toBury = append(toBury, sib.ID)
			}
			s.newQueue = removeID(s.newQueue, sib.ID)
		}
	}
	if len(toBury) == 0 {
		return nil
	}
	return s.col.DB.SetQueue(toBury, domain.QueueSchedBuried, s.col.TimeS(), s.col.USN())
}

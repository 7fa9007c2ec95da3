package sched

import (
	"errors"

	"github.com/mfield/retain/internal/collection"
	"github.com/mfield/retain/internal/storage"
)

// ErrNothingToUndo is returned when no answer has been recorded this
// session.
var ErrNothingToUndo = errors.New("no review to undo")

// undoState holds one level of answer undo: the card row as it was
// before the answer, and where the revlog ended.
type undoState struct {
	card        storage.Card
	revlogAfter int64 // first revlog id that belongs to the undone answer
}

// markReview snapshots a card before the answer engine touches it.
func (s *Scheduler) markReview(card *storage.Card) {
	s.undo = &undoState{
		card:        *card,
		revlogAfter: s.col.TimeMS(),
	}
}

// UndoReview restores the last answered card's previous row, deletes
// the answer's revlog entries, and rebuilds the queues.
func (s *Scheduler) UndoReview() (*storage.Card, error) {
	if s.undo == nil {
		return nil, ErrNothingToUndo
	}
	u := s.undo
	s.undo = nil

	restored := u.card
	err := s.transact(func() error {
		if err := s.col.DB.FlushCard(&restored); err != nil {
			return err
		}
		return s.col.DB.DeleteRevlogSince(restored.ID, u.revlogAfter)
	})
	if err != nil {
		return nil, err
	}
	s.haveQueues = false
	s.col.Hooks.Publish(collection.EventRevertedCard, &restored)
	return &restored, nil
}

package sched

import (
	"github.com/mfield/retain/internal/collection"
	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/storage"
)

// leechTag is added to a note whose card keeps lapsing.
const leechTag = "leech"

// checkLeech tags and optionally suspends a card that has crossed the
// leech threshold: at the configured lapse count, then every half
// threshold after that. A zero threshold disables leeches entirely.
func (s *Scheduler) checkLeech(card *storage.Card, conf deck.LapseConfig) (bool, error) {
	lf := conf.LeechFails
	if lf == 0 {
		return false, nil
	}
	half := lf / 2
	if half < 1 {
		half = 1
	}
	if card.Lapses < lf || (card.Lapses-lf)%half != 0 {
		return false, nil
	}

	if err := s.col.AddNoteTag(card.NID, leechTag); err != nil {
		return false, err
	}
	if conf.LeechAction == domain.LeechSuspend {
		// pull it out of cram/relearning before suspending
		if card.ODue != 0 {
			card.Due = card.ODue
		}
		if card.ODid != 0 {
			card.DID = card.ODid
		}
		card.ODue = 0
		card.ODid = 0
		card.Queue = domain.QueueSuspended
	}
	s.col.Hooks.Publish(collection.EventLeech, card)
	return true, nil
}

package sched

import (
	"fmt"
	"strings"

	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/storage"
)

// RebuildDyn empties and refills a filtered deck from its first search
// term, and returns the ids moved in.
func (s *Scheduler) RebuildDyn(did int64) ([]int64, error) {
	d := s.col.Decks.Get(did)
	if d == nil || !d.IsDyn() {
		return nil, fmt.Errorf("deck %d is not a filtered deck", did)
	}
	var ids []int64
	err := s.transact(func() error {
		if err := s.col.DB.EmptyDynDeck(did, s.col.USN()); err != nil {
			return err
		}
		var err error
		ids, err = s.fillDyn(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.haveQueues = false
	return ids, nil
}

func (s *Scheduler) fillDyn(d *deck.Deck) ([]int64, error) {
	if len(d.Dyn.Terms) == 0 {
		return nil, nil
	}
	term := d.Dyn.Terms[0]
	filter, err := s.parseDynSearch(term)
	if err != nil {
		// an unusable search pulls in nothing rather than failing the
		// rebuild
		s.col.Log.Warn("unusable filtered-deck search", "deck", d.ID, "search", term.Search, "err", err)
		return nil, nil
	}
	ids, err := s.col.DB.DynCandidateIDs(filter)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := s.col.DB.MoveToDyn(d.ID, ids, int64(s.today), s.col.USN()); err != nil {
		return nil, err
	}
	return ids, nil
}

// EmptyDyn returns every card of a filtered deck to its home deck,
// restoring the saved due. Cards caught mid-learning revert to new.
func (s *Scheduler) EmptyDyn(did int64) error {
	err := s.transact(func() error {
		return s.col.DB.EmptyDynDeck(did, s.col.USN())
	})
	if err != nil {
		return err
	}
	s.haveQueues = false
	return nil
}

// parseDynSearch translates a filtered-deck search term into a storage
// filter. The supported vocabulary is the subset the scheduler itself
// relies on: deck:Name, is:due, tag:name, joined with spaces.
func (s *Scheduler) parseDynSearch(term deck.DynTerm) (storage.DynFilter, error) {
	f := storage.DynFilter{
		Order: term.Order,
		Limit: term.Limit,
		Today: int64(s.today),
	}
	if f.Limit <= 0 {
		f.Limit = reportLimit
	}
	for _, tok := range strings.Fields(term.Search) {
		switch {
		case strings.HasPrefix(tok, "deck:"):
			name := strings.TrimPrefix(tok, "deck:")
			var target *deck.Deck
			if name == "current" {
				target = s.col.Decks.Get(s.col.Conf.CurDeck)
			} else {
				target = s.col.Decks.ByName(strings.ReplaceAll(name, "_", " "))
			}
			if target == nil {
				return f, fmt.Errorf("unknown deck %q", name)
			}
			ids := []int64{target.ID}
			for _, c := range s.col.Decks.Children(target.ID) {
				ids = append(ids, c.ID)
			}
			f.DeckIDs = ids
		case tok == "is:due":
			f.DueOnly = true
		case strings.HasPrefix(tok, "tag:"):
			f.Tag = strings.TrimPrefix(tok, "tag:")
		default:
			return f, fmt.Errorf("unsupported search token %q", tok)
		}
	}
	return f, nil
}

package sched

import (
	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/storage"
)

// newConf resolves the new-card options for a card. Inside a filtered
// deck most fields come from the home deck's preset; the filtered deck
// may override the steps, is always consumed in due order, and is not
// subject to a daily cap.
func (s *Scheduler) newConf(card *storage.Card) deck.NewConfig {
	conf := s.cardConf(card)
	if !card.InDyn() {
		return conf.New
	}
	oconf := s.col.Decks.ConfForDid(card.ODid)
	delays := conf.New.Delays
	if len(delays) == 0 {
		delays = oconf.New.Delays
	}
	return deck.NewConfig{
		Ints:          oconf.New.Ints,
		InitialFactor: oconf.New.InitialFactor,
		Bury:          oconf.New.Bury,
		Delays:        delays,
		Order:         domain.NewCardsDue,
		PerDay:        reportLimit,
	}
}

// lapseConf resolves the lapse options for a card, with the same
// filtered-deck overrides as newConf.
func (s *Scheduler) lapseConf(card *storage.Card) deck.LapseConfig {
	conf := s.cardConf(card)
	if !card.InDyn() {
		return conf.Lapse
	}
	oconf := s.col.Decks.ConfForDid(card.ODid)
	delays := conf.Lapse.Delays
	if len(delays) == 0 {
		delays = oconf.Lapse.Delays
	}
	return deck.LapseConfig{
		Delays:      delays,
		Mult:        oconf.Lapse.Mult,
		MinInt:      oconf.Lapse.MinInt,
		LeechFails:  oconf.Lapse.LeechFails,
		LeechAction: oconf.Lapse.LeechAction,
	}
}

// revConf resolves the review options; filtered decks defer entirely
// to the home deck.
func (s *Scheduler) revConf(card *storage.Card) deck.RevConfig {
	if !card.InDyn() {
		return s.cardConf(card).Rev
	}
	return s.col.Decks.ConfForDid(card.ODid).Rev
}

// learnConf is the merged view the learning-answer path works from: a
// lapsed review relearns with the lapse options, a new card with the
// new options.
type learnConf struct {
	Delays        []float64
	Ints          [3]int
	InitialFactor int
	Mult          float64
	MinInt        int
	Lapse         bool
}

func (s *Scheduler) lrnConf(card *storage.Card) learnConf {
	if card.Type == domain.TypeReview {
		lc := s.lapseConf(card)
		return learnConf{
			Delays: lc.Delays,
			Mult:   lc.Mult,
			MinInt: lc.MinInt,
			Lapse:  true,
		}
	}
	nc := s.newConf(card)
	return learnConf{
		Delays:        nc.Delays,
		Ints:          nc.Ints,
		InitialFactor: nc.InitialFactor,
	}
}

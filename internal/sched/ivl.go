package sched

import (
	"math"

	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/storage"
)

// daysLate is how overdue a review card is, in days.
func (s *Scheduler) daysLate(card *storage.Card) int {
	late := s.today - int(card.Due)
	if late < 0 {
		return 0
	}
	return late
}

// nextRevIvl is the ideal next interval for a successfully reviewed
// card, before fuzzing. Each candidate is constrained to grow past the
// previous one so Hard < Good < Easy always holds.
func (s *Scheduler) nextRevIvl(card *storage.Card, ease domain.Ease) int {
	delay := s.daysLate(card)
	conf := s.revConf(card)
	fct := float64(card.Factor) / 1000

	ivl2 := s.constrainedIvl(float64(card.Ivl+delay/4)*1.2, conf, card.Ivl)
	ivl3 := s.constrainedIvl(float64(card.Ivl+delay/2)*fct, conf, ivl2)
	ivl4 := s.constrainedIvl(float64(card.Ivl+delay)*fct*conf.Ease4, conf, ivl3)

	var ivl int
	switch ease {
	case domain.Hard:
		ivl = ivl2
	case domain.Good:
		ivl = ivl3
	default:
		ivl = ivl4
	}
	if ivl > conf.MaxIvl {
		return conf.MaxIvl
	}
	return ivl
}

// constrainedIvl applies the deck's interval factor and keeps the
// result strictly above the previous candidate.
func (s *Scheduler) constrainedIvl(ivl float64, conf deck.RevConfig, prev int) int {
	fct := conf.IvlFct
	if fct == 0 {
		fct = 1
	}
	n := int(math.Ceil(ivl * fct))
	if n < prev+1 {
		n = prev + 1
	}
	return n
}

// updateRevIvl computes the next interval, fuzzes it, and keeps it
// within (old interval, maxIvl].
func (s *Scheduler) updateRevIvl(card *storage.Card, ease domain.Ease) {
	ideal := s.nextRevIvl(card, ease)
	ivl := s.adjRevIvl(ideal)
	if ivl < card.Ivl+1 {
		ivl = card.Ivl + 1
	}
	if max := s.revConf(card).MaxIvl; ivl > max {
		ivl = max
	}
	card.Ivl = ivl
}

// adjRevIvl randomises an interval so cards introduced together drift
// apart. Identity when review spreading is off.
func (s *Scheduler) adjRevIvl(ideal int) int {
	if !s.spreadRev {
		return ideal
	}
	return s.fuzzedIvl(ideal)
}

// fuzzIvlRange is the fuzz window for an interval; it widens as the
// interval grows.
func fuzzIvlRange(ivl int) (int, int) {
	switch {
	case ivl < 2:
		return 1, 1
	case ivl == 2:
		return 2, 3
	case ivl < 7:
		f := int(float64(ivl) * 0.25)
		return ivl - f, ivl + f
	case ivl < 30:
		f := int(float64(ivl) * 0.15)
		if f < 2 {
			f = 2
		}
		return ivl - f, ivl + f
	default:
		f := int(float64(ivl) * 0.05)
		if f < 4 {
			f = 4
		}
		return ivl - f, ivl + f
	}
}

func (s *Scheduler) fuzzedIvl(ivl int) int {
	lo, hi := fuzzIvlRange(ivl)
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// dynIvlBoost grows the interval of a review card answered early
// inside a filtered deck, scaled by how much of the wait had elapsed.
func (s *Scheduler) dynIvlBoost(card *storage.Card) int {
	lastReview := card.ODue - int64(card.Ivl)
	elapsed := s.today - int(lastReview)
	factor := (float64(card.Factor)/1000 + 1.2) / 2
	ivl := int(float64(elapsed) * factor)
	if ivl < card.Ivl {
		ivl = card.Ivl
	}
	if ivl < 1 {
		ivl = 1
	}
	if max := s.revConf(card).MaxIvl; ivl > max {
		ivl = max
	}
	return ivl
}

// Next-interval previews
//////////////////////////////////////////////////////////////////////

// NextIvl reports the interval in seconds the given ease would produce
// for the card, for labelling answer buttons. The card is not
// modified.
func (s *Scheduler) NextIvl(card *storage.Card, ease domain.Ease) int64 {
	switch card.Queue {
	case domain.QueueNew, domain.QueueCramNew, domain.QueueLearning, domain.QueueDayLearning:
		return s.nextLrnIvl(card, ease)
	}
	if ease == domain.Again {
		conf := s.lapseConf(card)
		if len(conf.Delays) > 0 {
			return int64(conf.Delays[0] * 60)
		}
		return int64(s.nextLapseIvl(card, conf)) * 86400
	}
	return int64(s.nextRevIvl(card, ease)) * 86400
}

// nextLrnIvl mirrors the learning-answer maths without side effects.
func (s *Scheduler) nextLrnIvl(card *storage.Card, ease domain.Ease) int64 {
	left := card.Left
	if card.Queue == domain.QueueNew || card.Queue == domain.QueueCramNew {
		left = s.startingLeft(card)
	}
	conf := s.lrnConf(card)
	switch {
	case ease == domain.Again:
		return s.delayForGrade(conf.Delays, len(conf.Delays))
	case ease == 3:
		// early removal
		if !s.resched(card) {
			return 0
		}
		return int64(s.graduatingIvl(card, conf, true, false)) * 86400
	default:
		rem := left%1000 - 1
		if rem <= 0 {
			// graduate
			if !s.resched(card) {
				return 0
			}
			return int64(s.graduatingIvl(card, conf, false, false)) * 86400
		}
		return s.delayForGrade(conf.Delays, rem+1)
	}
}

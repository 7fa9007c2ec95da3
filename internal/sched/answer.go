package sched

import (
	"time"

	"github.com/mfield/retain/internal/collection"
	"github.com/mfield/retain/internal/deck"
	"github.com/mfield/retain/internal/domain"
	"github.com/mfield/retain/internal/storage"
)

// AnswerCard applies a grade to a card returned by the picker: state
// transition, interval maths, revlog append, daily counters, sibling
// bury. All row writes happen in one transaction so a crash mid-answer
// leaves a consistent card.
func (s *Scheduler) AnswerCard(card *storage.Card, ease domain.Ease, taken time.Duration) error {
	if !ease.Valid() {
		return ErrInvalidEase
	}
	switch card.Queue {
	case domain.QueueNew, domain.QueueCramNew, domain.QueueLearning,
		domain.QueueDayLearning, domain.QueueReview:
	default:
		s.col.Log.Error("card answered from unanswerable queue",
			"card", card.ID, "queue", card.Queue.String())
		return ErrInvalidQueue
	}

	s.col.Hooks.Publish(collection.EventBeforeStateChange, card)
	err := s.transact(func() error {
		return s.answerCard(card, ease, taken)
	})
	if err != nil {
		return err
	}
	s.col.Hooks.Publish(collection.EventAfterStateChange, card)
	return nil
}

func (s *Scheduler) answerCard(card *storage.Card, ease domain.Ease, taken time.Duration) error {
	ms := int(taken.Milliseconds())
	if ms > maxAnswerTimeMS {
		ms = maxAnswerTimeMS
	}
	if ms < 0 {
		ms = 0
	}
	s.lastTakenMS = ms

	s.markReview(card)
	if err := s.burySiblings(card); err != nil {
		return err
	}

	card.Reps++
	// former is for logging new cards; latter also covers filtered decks
	card.WasNew = card.Type == domain.TypeNew
	wasNewQ := card.Queue == domain.QueueNew || card.Queue == domain.QueueCramNew
	if wasNewQ {
		// came from the new queue, move to learning
		card.Queue = domain.QueueLearning
		if card.Type == domain.TypeNew {
			card.Type = domain.TypeLearning
		}
		card.Left = s.startingLeft(card)
		// lapsed review shown again inside a filtered deck?
		if card.InDyn() && card.Type == domain.TypeReview && s.resched(card) {
			card.Ivl = s.dynIvlBoost(card)
			card.ODue = int64(s.today + card.Ivl)
		}
		s.updateStats(card, statNew, 1)
	}

	switch card.Queue {
	case domain.QueueLearning, domain.QueueDayLearning:
		if err := s.answerLrnCard(card, ease); err != nil {
			return err
		}
		if !wasNewQ {
			s.updateStats(card, statLrn, 1)
		}
	case domain.QueueReview:
		if err := s.answerRevCard(card, ease); err != nil {
			return err
		}
		s.updateStats(card, statRev, 1)
	default:
		s.col.Log.Error("card in unknown queue after transition",
			"card", card.ID, "queue", card.Queue.String())
		return ErrInvalidQueue
	}

	s.updateStats(card, statTime, ms)

	return s.col.FlushCard(card)
}

// Learning answers
//////////////////////////////////////////////////////////////////////

func (s *Scheduler) answerLrnCard(card *storage.Card, ease domain.Ease) error {
	conf := s.lrnConf(card)

	var kind domain.RevlogKind
	switch {
	case card.InDyn() && !card.WasNew:
		kind = domain.RevlogCram
	case card.Type == domain.TypeReview:
		kind = domain.RevlogRelearn
	default:
		kind = domain.RevlogLearn
	}

	leaving := false
	lastLeft := card.Left

	// learning cards show three buttons: 1 repeats the step, 2 advances,
	// 3 graduates immediately
	switch {
	case ease == 3:
		s.rescheduleAsRev(card, conf, true)
		leaving = true
	case ease == 2 && card.LeftTotal()-1 <= 0:
		s.rescheduleAsRev(card, conf, false)
		leaving = true
	default:
		// gradeLeft picks the step delay; it reflects the step being
		// left, not the one being entered
		var gradeLeft int
		if ease == 2 {
			// one step towards graduation
			rem := card.LeftTotal()
			card.Left = s.leftToday(conf.Delays, rem, 0)*1000 + (rem - 1)
			gradeLeft = rem
		} else {
			// failed; back to the first step
			card.Left = s.startingLeft(card)
			resched := s.resched(card)
			if conf.Lapse && conf.Mult > 0 && resched {
				// review that's lapsed during relearning
				ivl := int(float64(card.Ivl) * conf.Mult)
				if ivl < conf.MinInt {
					ivl = conf.MinInt
				}
				if ivl < 1 {
					ivl = 1
				}
				card.Ivl = ivl
			}
			if resched && card.InDyn() {
				card.ODue = int64(s.today + 1)
			}
			gradeLeft = card.LeftTotal()
		}
		delay := s.delayForGrade(conf.Delays, gradeLeft)
		now := s.col.TimeS()
		if card.Due < now {
			// not collapsed; add some randomness
			delay = s.lrnStepFuzz(delay)
		}
		card.Due = now + delay
		if card.Due < s.dayCutoff {
			// due today
			s.lrnCount += card.Left / 1000
			card.Queue = domain.QueueLearning
			// don't put the card at the head of the queue when there is
			// nothing else to study, or it would show twice in a row
			if s.lrnQueue.len() > 0 && s.revCount == 0 && s.newCount == 0 {
				if head := s.lrnQueue.peekDue(); card.Due <= head {
					card.Due = head + 1
				}
			}
			s.lrnQueue.push(card.Due, card.ID)
		} else {
			ahead := (card.Due-s.dayCutoff)/86400 + 1
			card.Due = int64(s.today) + ahead
			card.Queue = domain.QueueDayLearning
		}
	}

	return s.logLrn(card, ease, conf, leaving, kind, lastLeft)
}

// lrnStepFuzz spreads a learning-step delay. The two scheduler
// generations disagree here: the first multiplies by up to 1.25x, the
// second adds up to a quarter of the delay capped at five minutes.
func (s *Scheduler) lrnStepFuzz(delay int64) int64 {
	if s.ver >= 2 {
		maxExtra := delay / 4
		if maxExtra > 300 {
			maxExtra = 300
		}
		if maxExtra < 1 {
			maxExtra = 1
		}
		return delay + s.rng.Int63n(maxExtra)
	}
	return int64(float64(delay) * (1 + s.rng.Float64()*0.25))
}

// rescheduleAsRev graduates a card out of the learning queues.
func (s *Scheduler) rescheduleAsRev(card *storage.Card, conf learnConf, early bool) {
	lapse := card.Type == domain.TypeReview
	if lapse {
		// relearning done; the interval is untouched
		if s.resched(card) {
			due := int64(s.today + 1)
			if card.ODue > due {
				due = card.ODue
			}
			card.Due = due
		} else {
			card.Due = card.ODue
		}
		card.ODue = 0
	} else {
		s.rescheduleNew(card, conf, early)
	}
	card.Queue = domain.QueueReview
	card.Type = domain.TypeReview
	// graduating in a filtered deck means moving back home
	resched := s.resched(card)
	if card.InDyn() {
		card.DID = card.ODid
		card.ODue = 0
		card.ODid = 0
		// without rescheduling there is no interval to keep; back to new
		if !resched && !lapse {
			card.Queue = domain.QueueNew
			card.Type = domain.TypeNew
			card.Due = s.col.NextPos()
		}
	}
}

// rescheduleNew gives a freshly graduated card its first review
// interval and ease factor.
func (s *Scheduler) rescheduleNew(card *storage.Card, conf learnConf, early bool) {
	card.Ivl = s.graduatingIvl(card, conf, early, true)
	card.Due = int64(s.today + card.Ivl)
	card.Factor = conf.InitialFactor
}

// graduatingIvl is the first interval after leaving learning: the
// configured graduating (or easy) interval for new cards, the existing
// interval for relearned reviews, boosted inside a filtered deck.
func (s *Scheduler) graduatingIvl(card *storage.Card, conf learnConf, early, adj bool) int {
	if card.Type == domain.TypeReview {
		// lapsed card being relearnt
		if card.InDyn() && s.resched(card) {
			return s.dynIvlBoost(card)
		}
		return card.Ivl
	}
	var ideal int
	if early {
		ideal = conf.Ints[1]
	} else {
		ideal = conf.Ints[0]
	}
	if adj {
		return s.adjRevIvl(ideal)
	}
	return ideal
}

// startingLeft packs the initial learning progress: total steps in the
// low digits, steps reachable before the day cutoff in the thousands.
func (s *Scheduler) startingLeft(card *storage.Card) int {
	conf := s.lrnConf(card)
	tot := len(conf.Delays)
	tod := s.leftToday(conf.Delays, tot, 0)
	return tod*1000 + tot
}

// leftToday counts how many of the last `left` steps fit before the
// day cutoff.
func (s *Scheduler) leftToday(delays []float64, left int, now int64) int {
	if now == 0 {
		now = s.col.TimeS()
	}
	if left > len(delays) {
		left = len(delays)
	}
	ok := 0
	offset := len(delays) - left
	for i := 0; i < left; i++ {
		now += int64(delays[offset+i] * 60)
		if now > s.dayCutoff {
			break
		}
		ok = i + 1
	}
	return ok
}

// delayForGrade returns the delay in seconds for the step identified
// by the packed left value.
func (s *Scheduler) delayForGrade(delays []float64, left int) int64 {
	rem := left % 1000
	if len(delays) == 0 {
		return 60
	}
	idx := len(delays) - rem
	if rem == 0 || idx < 0 || idx >= len(delays) {
		idx = 0
	}
	return int64(delays[idx] * 60)
}

func (s *Scheduler) logLrn(card *storage.Card, ease domain.Ease, conf learnConf, leaving bool, kind domain.RevlogKind, lastLeft int) error {
	lastIvl := -int(s.delayForGrade(conf.Delays, lastLeft))
	ivl := -int(s.delayForGrade(conf.Delays, card.Left))
	if leaving {
		ivl = card.Ivl
	}
	return s.appendRevlog(card, ease, ivl, lastIvl, kind, card.Factor)
}

// Review answers
//////////////////////////////////////////////////////////////////////

func (s *Scheduler) answerRevCard(card *storage.Card, ease domain.Ease) error {
	var delay int64
	var err error
	if ease == domain.Again {
		delay, err = s.rescheduleLapse(card)
	} else {
		err = s.rescheduleRev(card, ease)
	}
	if err != nil {
		return err
	}
	return s.logRev(card, ease, delay)
}

// rescheduleLapse handles Again on a review card: interval penalty,
// ease drop, leech check, and the move into relearning when the lapse
// options carry steps. Returns the relearning delay in seconds, 0 when
// no step was scheduled.
func (s *Scheduler) rescheduleLapse(card *storage.Card) (int64, error) {
	conf := s.lapseConf(card)
	card.LastIvl = card.Ivl
	if s.resched(card) {
		card.Lapses++
		card.Ivl = s.nextLapseIvl(card, conf)
		if card.Factor-200 < 1300 {
			card.Factor = 1300
		} else {
			card.Factor -= 200
		}
		// the later generation checks for leeches before the new due
		// date lands
		if s.ver >= 2 {
			leech, err := s.checkLeech(card, conf)
			if err != nil {
				return 0, err
			}
			if leech && card.Queue == domain.QueueSuspended {
				return 0, nil
			}
		}
		card.Due = int64(s.today + card.Ivl)
		if card.InDyn() {
			card.ODue = card.Due
		}
	}
	if s.ver < 2 {
		leech, err := s.checkLeech(card, conf)
		if err != nil {
			return 0, err
		}
		// suspended as a leech: nothing more to do
		if leech && card.Queue == domain.QueueSuspended {
			return 0, nil
		}
	}
	// no relearning steps: the card stays in the review queue
	if len(conf.Delays) == 0 {
		return 0, nil
	}
	// remember the review due date for after relearning
	if card.ODue == 0 {
		card.ODue = card.Due
	}
	delay := s.delayForGrade(conf.Delays, 0)
	card.Due = s.col.TimeS() + delay
	card.Left = s.startingLeft(card)
	if card.Due < s.dayCutoff {
		s.lrnCount += card.Left / 1000
		card.Queue = domain.QueueLearning
		s.lrnQueue.push(card.Due, card.ID)
	} else {
		ahead := (card.Due-s.dayCutoff)/86400 + 1
		card.Due = int64(s.today) + ahead
		card.Queue = domain.QueueDayLearning
	}
	return delay, nil
}

// nextLapseIvl shrinks the interval by the lapse multiplier, floored
// at the configured minimum.
func (s *Scheduler) nextLapseIvl(card *storage.Card, conf deck.LapseConfig) int {
	ivl := int(float64(card.Ivl) * conf.Mult)
	if ivl < conf.MinInt {
		ivl = conf.MinInt
	}
	return ivl
}

// rescheduleRev handles a successful review: new interval, ease factor
// shift, and the move back home out of a filtered deck.
func (s *Scheduler) rescheduleRev(card *storage.Card, ease domain.Ease) error {
	card.LastIvl = card.Ivl
	if s.resched(card) {
		s.updateRevIvl(card, ease)
		card.Factor += [3]int{-150, 0, 150}[ease-2]
		if card.Factor < 1300 {
			card.Factor = 1300
		}
		card.Due = int64(s.today + card.Ivl)
	} else {
		card.Due = card.ODue
	}
	if card.InDyn() {
		card.DID = card.ODid
		card.ODid = 0
		card.ODue = 0
	}
	return nil
}

func (s *Scheduler) logRev(card *storage.Card, ease domain.Ease, delay int64) error {
	ivl := card.Ivl
	if delay > 0 {
		ivl = -int(delay)
	}
	return s.appendRevlog(card, ease, ivl, card.LastIvl, domain.RevlogReview, card.Factor)
}

// appendRevlog writes one review-log row, retrying once on a
// timestamp collision. Ids are kept monotonic within a session so two
// answers in the same millisecond cannot collide.
func (s *Scheduler) appendRevlog(card *storage.Card, ease domain.Ease, ivl, lastIvl int, kind domain.RevlogKind, factor int) error {
	id := s.col.TimeMS()
	if id <= s.lastRevlogID {
		id = s.lastRevlogID + 1
	}
	s.lastRevlogID = id
	entry := &storage.RevlogEntry{
		ID:      id,
		CID:     card.ID,
		USN:     s.col.USN(),
		Ease:    ease,
		Ivl:     ivl,
		LastIvl: lastIvl,
		Factor:  factor,
		Time:    s.lastTakenMS,
		Kind:    kind,
	}
	return s.col.DB.AppendRevlog(entry, s.col.TimeMS)
}

// Daily stats
//////////////////////////////////////////////////////////////////////

type statKind int

const (
	statNew statKind = iota
	statLrn
	statRev
	statTime
)

// updateStats bumps today's counter on the card's deck and every
// ancestor.
func (s *Scheduler) updateStats(card *storage.Card, kind statKind, cnt int) {
	d := s.col.Decks.Get(card.DID)
	if d == nil {
		return
	}
	all := append(s.col.Decks.Parents(card.DID), d)
	for _, g := range all {
		var c *deck.DayCount
		switch kind {
		case statNew:
			c = &g.NewToday
		case statLrn:
			c = &g.LrnToday
		case statRev:
			c = &g.RevToday
		case statTime:
			c = &g.TimeToday
		}
		c[0] = s.today
		c[1] += cnt
		if err := s.col.Decks.Save(g); err != nil {
			s.col.Log.Error("failed to save deck stats", "deck", g.ID, "err", err)
		}
	}
}

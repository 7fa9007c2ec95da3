package sched

import (
	"github.com/mfield/retain/internal/domain"
)

// updateCutoff recomputes the day index and rollover boundary, and on
// rollover resets stale per-deck counters and brings back cards the
// scheduler buried for sibling spacing.
func (s *Scheduler) updateCutoff() {
	oldToday := s.today
	// days since collection creation
	s.today = int((s.col.TimeS() - s.col.Crt) / 86400)
	if s.today < 0 {
		s.today = 0
	}
	// end of day cutoff
	s.dayCutoff = s.col.Crt + int64(s.today+1)*86400
	if oldToday != s.today {
		s.col.Log.Info("day rolled over", "today", s.today, "cutoff", s.dayCutoff)
	}

	// refresh daily counters; counts are only valid while their day
	// index equals today
	for _, d := range s.col.Decks.All() {
		if d.ResetStaleCounters(s.today) {
			if err := s.col.Decks.Save(d); err != nil {
				s.col.Log.Error("failed to reset daily counters", "deck", d.ID, "err", err)
			}
		}
	}

	// bring back sibling-buried cards once per day
	if s.col.Conf.LastUnburied < s.today {
		if err := s.col.DB.UnburyAll(domain.QueueSchedBuried, s.col.TimeS(), s.col.USN()); err != nil {
			s.col.Log.Error("failed to unbury scheduler-buried cards", "err", err)
		}
		s.col.Conf.LastUnburied = s.today
		if err := s.col.FlushConf(); err != nil {
			s.col.Log.Error("failed to persist unbury day", "err", err)
		}
	}
}

// checkDay rebuilds everything when the clock has crossed the cutoff.
func (s *Scheduler) checkDay() error {
	if s.col.TimeS() >= s.dayCutoff {
		return s.Reset()
	}
	return nil
}

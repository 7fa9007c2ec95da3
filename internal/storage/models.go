package storage

import (
	"github.com/mfield/retain/internal/domain"
)

// Card is the materialised view of one cards row. The meaning of Due
// depends on Queue: a position for new cards, a day index for review
// and day-learning cards, unix seconds for sub-day learning cards.
type Card struct {
	ID     int64
	NID    int64
	DID    int64
	Ord    int
	Mod    int64
	USN    int
	Type   domain.CardType
	Queue  domain.CardQueue
	Due    int64
	Ivl    int
	Factor int
	Reps   int
	Lapses int
	Left   int
	ODue   int64
	ODid   int64
	Flags  int
	Data   string

	// Transient answer-time state, never persisted.
	LastIvl int  `json:"-"`
	WasNew  bool `json:"-"`
}

// InDyn reports whether the card currently lives in a filtered deck.
func (c *Card) InDyn() bool { return c.ODid != 0 }

// LeftToday returns the number of learning steps still allowed today.
func (c *Card) LeftToday() int { return c.Left / 1000 }

// LeftTotal returns the number of learning steps remaining in total.
func (c *Card) LeftTotal() int { return c.Left % 1000 }

// normalize clamps fields that legacy rows may carry out of range:
// ease factors below the floor, sub-day intervals stored as negative
// seconds, and queue values outside the declared set.
func (c *Card) normalize() {
	if c.Factor != 0 && c.Factor < 1300 {
		c.Factor = 1300
	}
	if c.Ivl < 0 {
		days := int(-int64(c.Ivl) / 86400)
		if days < 1 {
			days = 1
		}
		c.Ivl = days
	}
	if !c.Queue.Valid() {
		c.Queue = domain.QueueRemoved
	}
}

// RevlogEntry is one append-only review-log row. ID is the millisecond
// timestamp of the answer and doubles as the primary key.
type RevlogEntry struct {
	ID      int64
	CID     int64
	USN     int
	Ease    domain.Ease
	Ivl     int // negative values are seconds, positive days
	LastIvl int
	Factor  int
	Time    int // time taken, milliseconds
	Kind    domain.RevlogKind
}

// Note is the slice of a notes row the scheduler needs: the tag list
// for leech marking and the id linking sibling cards.
type Note struct {
	ID   int64
	Mod  int64
	USN  int
	Tags string // space-separated
}

// LearnDue is one (due, id) pair feeding the learning heap.
type LearnDue struct {
	Due int64
	ID  int64
}

// SiblingCard is the minimal row used for sibling burying.
type SiblingCard struct {
	ID    int64
	Queue domain.CardQueue
}

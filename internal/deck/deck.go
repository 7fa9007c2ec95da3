package deck

import (
	"strings"

	"github.com/mfield/retain/internal/domain"
)

// DayCount is a (day index, count) pair. The count is only meaningful
// while the day index equals today; stale pairs are reset at rollover.
type DayCount [2]int

// Day returns the day index the count belongs to.
func (d DayCount) Day() int { return d[0] }

// Count returns the accumulated count.
func (d DayCount) Count() int { return d[1] }

// DynTerm is one search term of a filtered deck.
type DynTerm struct {
	Search string          `json:"search"`
	Limit  int             `json:"limit"`
	Order  domain.DynOrder `json:"order"`
}

// DynConfig is the ephemeral configuration a filtered deck carries in
// place of a shared preset.
type DynConfig struct {
	Resched bool      `json:"resched"`
	Delays  []float64 `json:"delays,omitempty"` // overrides home-deck steps when set
	Terms   []DynTerm `json:"terms"`
}

// Deck is one node of the deck tree. Hierarchy is implied by "::"
// separators in the name; children are found by prefix, not pointers.
type Deck struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Mod    int64  `json:"mod"`
	USN    int    `json:"usn"`
	ConfID int64  `json:"conf"`

	NewToday  DayCount `json:"newToday"`
	RevToday  DayCount `json:"revToday"`
	LrnToday  DayCount `json:"lrnToday"`
	TimeToday DayCount `json:"timeToday"` // milliseconds

	// Dyn is non-nil iff this is a filtered deck.
	Dyn *DynConfig `json:"dyn,omitempty"`
}

// IsDyn reports whether the deck is filtered.
func (d *Deck) IsDyn() bool { return d.Dyn != nil }

// ParentName returns the parent deck name, or "" for a top-level deck.
func (d *Deck) ParentName() string {
	return ParentName(d.Name)
}

// ResetStaleCounters zeroes any daily counter whose day index is not
// today. Reports whether anything changed.
func (d *Deck) ResetStaleCounters(today int) bool {
	changed := false
	for _, c := range []*DayCount{&d.NewToday, &d.RevToday, &d.LrnToday, &d.TimeToday} {
		if c[0] != today {
			*c = DayCount{today, 0}
			changed = true
		}
	}
	return changed
}

// ParentName returns the name of the parent of a "::"-separated deck
// name, or "" when there is none.
func ParentName(name string) string {
	idx := strings.LastIndex(name, "::")
	if idx < 0 {
		return ""
	}
	return name[:idx]
}

// Path splits a deck name into its "::"-separated components.
func Path(name string) []string {
	return strings.Split(name, "::")
}

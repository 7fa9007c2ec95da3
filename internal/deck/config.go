package deck

import (
	"github.com/mfield/retain/internal/domain"
)

// NewConfig covers cards that have not graduated yet.
type NewConfig struct {
	PerDay        int             `json:"perDay"`
	Delays        []float64       `json:"delays"` // learning steps, minutes
	Ints          [3]int          `json:"ints"`   // graduating, easy, unused
	InitialFactor int             `json:"initialFactor"`
	Order         domain.NewOrder `json:"order"`
	Bury          bool            `json:"bury"`
}

// RevConfig covers graduated cards.
type RevConfig struct {
	PerDay int     `json:"perDay"`
	Ease4  float64 `json:"ease4"`
	IvlFct float64 `json:"ivlFct"`
	MaxIvl int     `json:"maxIvl"`
	Bury   bool    `json:"bury"`
}

// LapseConfig covers failed reviews.
type LapseConfig struct {
	Delays      []float64          `json:"delays"` // relearning steps, minutes
	Mult        float64            `json:"mult"`   // interval multiplier on lapse
	MinInt      int                `json:"minInt"`
	LeechFails  int                `json:"leechFails"`
	LeechAction domain.LeechAction `json:"leechAction"`
}

// Config is a deck-options preset shared between decks via conf_id.
type Config struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Mod  int64  `json:"mod"`
	USN  int    `json:"usn"`

	New   NewConfig   `json:"new"`
	Rev   RevConfig   `json:"rev"`
	Lapse LapseConfig `json:"lapse"`

	Dyn     bool `json:"dyn"`
	Resched bool `json:"resched"`
	Timer   int  `json:"timer"`

	// PerDayAll caps new+review together when the collection option
	// limitAllCards is on.
	PerDayAll int `json:"perDay"`
}

// DefaultConfig returns the stock deck options preset.
func DefaultConfig() *Config {
	return &Config{
		ID:   1,
		Name: "Default",
		New: NewConfig{
			PerDay:        20,
			Delays:        []float64{1, 10},
			Ints:          [3]int{1, 4, 7},
			InitialFactor: 2500,
			Order:         domain.NewCardsDue,
			Bury:          true,
		},
		Rev: RevConfig{
			PerDay: 100,
			Ease4:  1.3,
			IvlFct: 1.0,
			MaxIvl: 36500,
			Bury:   true,
		},
		Lapse: LapseConfig{
			Delays:      []float64{10},
			Mult:        0,
			MinInt:      1,
			LeechFails:  8,
			LeechAction: domain.LeechSuspend,
		},
		Resched:   true,
		PerDayAll: 1000,
	}
}

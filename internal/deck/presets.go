package deck

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mfield/retain/internal/domain"
)

// presetFile is the on-disk shape of a deck-options preset file.
type presetFile struct {
	Presets []presetEntry `yaml:"presets"`
}

type presetEntry struct {
	Name string `yaml:"name"`
	New  struct {
		PerDay        *int      `yaml:"per_day"`
		Delays        []float64 `yaml:"delays"`
		Ints          []int     `yaml:"ints"`
		InitialFactor *int      `yaml:"initial_factor"`
		Random        bool      `yaml:"random_order"`
	} `yaml:"new"`
	Rev struct {
		PerDay *int     `yaml:"per_day"`
		Ease4  *float64 `yaml:"easy_bonus"`
		IvlFct *float64 `yaml:"interval_factor"`
		MaxIvl *int     `yaml:"max_interval"`
	} `yaml:"rev"`
	Lapse struct {
		Delays      []float64 `yaml:"delays"`
		Mult        *float64  `yaml:"multiplier"`
		MinInt      *int      `yaml:"min_interval"`
		LeechFails  *int      `yaml:"leech_fails"`
		LeechAction string    `yaml:"leech_action"` // "suspend" or "tag"
	} `yaml:"lapse"`
}

// LoadPresets reads deck-options presets from a YAML file. Fields left
// out fall back to the default preset's values.
func LoadPresets(path string) ([]*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}
	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse preset file: %w", err)
	}

	var out []*Config
	for i, p := range file.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset %d has no name", i+1)
		}
		c := DefaultConfig()
		c.ID = 0
		c.Name = p.Name

		if p.New.PerDay != nil {
			c.New.PerDay = *p.New.PerDay
		}
		if p.New.Delays != nil {
			c.New.Delays = p.New.Delays
		}
		for j, v := range p.New.Ints {
			if j < len(c.New.Ints) {
				c.New.Ints[j] = v
			}
		}
		if p.New.InitialFactor != nil {
			c.New.InitialFactor = *p.New.InitialFactor
		}
		if p.New.Random {
			c.New.Order = domain.NewCardsRandom
		}

		if p.Rev.PerDay != nil {
			c.Rev.PerDay = *p.Rev.PerDay
		}
		if p.Rev.Ease4 != nil {
			c.Rev.Ease4 = *p.Rev.Ease4
		}
		if p.Rev.IvlFct != nil {
			c.Rev.IvlFct = *p.Rev.IvlFct
		}
		if p.Rev.MaxIvl != nil {
			c.Rev.MaxIvl = *p.Rev.MaxIvl
		}

		if p.Lapse.Delays != nil {
			c.Lapse.Delays = p.Lapse.Delays
		}
		if p.Lapse.Mult != nil {
			c.Lapse.Mult = *p.Lapse.Mult
		}
		if p.Lapse.MinInt != nil {
			c.Lapse.MinInt = *p.Lapse.MinInt
		}
		if p.Lapse.LeechFails != nil {
			c.Lapse.LeechFails = *p.Lapse.LeechFails
		}
		switch p.Lapse.LeechAction {
		case "":
		case "suspend":
			c.Lapse.LeechAction = domain.LeechSuspend
		case "tag":
			c.Lapse.LeechAction = domain.LeechTagOnly
		default:
			return nil, fmt.Errorf("preset %q: unknown leech_action %q", p.Name, p.Lapse.LeechAction)
		}

		out = append(out, c)
	}
	return out, nil
}

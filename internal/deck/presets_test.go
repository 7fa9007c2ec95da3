package deck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mfield/retain/internal/domain"
)

func writePresetFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write preset file: %v", err)
	}
	return path
}

func TestLoadPresets(t *testing.T) {
	path := writePresetFile(t, `
presets:
  - name: Aggressive
    new:
      per_day: 40
      delays: [1, 5, 15]
      ints: [2, 5]
      random_order: true
    rev:
      per_day: 300
      easy_bonus: 1.5
      max_interval: 1825
    lapse:
      delays: [20]
      multiplier: 0.3
      leech_fails: 4
      leech_action: tag
  - name: Gentle
    new:
      per_day: 5
`)

	presets, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets failed: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("Expected 2 presets, got %d", len(presets))
	}

	a := presets[0]
	if a.Name != "Aggressive" {
		t.Errorf("Unexpected name %q", a.Name)
	}
	if a.New.PerDay != 40 {
		t.Errorf("Expected per_day 40, got %d", a.New.PerDay)
	}
	if len(a.New.Delays) != 3 || a.New.Delays[2] != 15 {
		t.Errorf("Unexpected delays %v", a.New.Delays)
	}
	if a.New.Ints != [3]int{2, 5, 7} {
		t.Errorf("Expected partial ints overlay, got %v", a.New.Ints)
	}
	if a.New.Order != domain.NewCardsRandom {
		t.Errorf("Expected random order, got %v", a.New.Order)
	}
	if a.Rev.Ease4 != 1.5 || a.Rev.MaxIvl != 1825 {
		t.Errorf("Unexpected rev config: %+v", a.Rev)
	}
	// untouched fields keep the defaults
	if a.Rev.IvlFct != 1.0 {
		t.Errorf("Expected default interval factor, got %v", a.Rev.IvlFct)
	}
	if a.Lapse.Mult != 0.3 || a.Lapse.LeechFails != 4 {
		t.Errorf("Unexpected lapse config: %+v", a.Lapse)
	}
	if a.Lapse.LeechAction != domain.LeechTagOnly {
		t.Errorf("Expected tag-only leech action, got %v", a.Lapse.LeechAction)
	}

	g := presets[1]
	if g.New.PerDay != 5 {
		t.Errorf("Expected per_day 5, got %d", g.New.PerDay)
	}
	if len(g.New.Delays) != 2 {
		t.Errorf("Expected default delays kept, got %v", g.New.Delays)
	}
}

func TestLoadPresetsRejectsAnonymous(t *testing.T) {
	path := writePresetFile(t, "presets:\n  - new:\n      per_day: 3\n")
	if _, err := LoadPresets(path); err == nil {
		t.Error("Expected an error for a preset without a name")
	}
}

func TestLoadPresetsRejectsUnknownLeechAction(t *testing.T) {
	path := writePresetFile(t, "presets:\n  - name: X\n    lapse:\n      leech_action: explode\n")
	if _, err := LoadPresets(path); err == nil {
		t.Error("Expected an error for an unknown leech action")
	}
}

func TestLoadPresetsMissingFile(t *testing.T) {
	if _, err := LoadPresets(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

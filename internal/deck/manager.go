package deck

import (
	"fmt"
	"sort"
)

// Store persists decks and option presets. Implemented by the sqlite
// layer; kept as an interface so the manager can be exercised in tests
// without a database.
type Store interface {
	SaveDeck(d *Deck) error
	SaveConfig(c *Config) error
}

// Manager owns the in-memory deck tree and the option presets. All
// lookups are served from memory; mutations are written through to the
// store.
type Manager struct {
	store   Store
	decks   map[int64]*Deck
	configs map[int64]*Config
	active  []int64

	nextDeckID int64
	nextConfID int64
}

// NewManager builds a manager over already-loaded decks and configs.
func NewManager(store Store, decks []*Deck, configs []*Config) *Manager {
	m := &Manager{
		store:      store,
		decks:      make(map[int64]*Deck),
		configs:    make(map[int64]*Config),
		nextDeckID: 1,
		nextConfID: 1,
	}
	for _, c := range configs {
		m.configs[c.ID] = c
		if c.ID >= m.nextConfID {
			m.nextConfID = c.ID + 1
		}
	}
	if _, ok := m.configs[1]; !ok {
		m.configs[1] = DefaultConfig()
		m.nextConfID = 2
	}
	for _, d := range decks {
		m.decks[d.ID] = d
		if d.ID >= m.nextDeckID {
			m.nextDeckID = d.ID + 1
		}
	}
	return m
}

// WithStore returns a view of the manager writing through a different
// store. The deck and config maps are shared, so in-memory state stays
// in sync; used to route saves through an open transaction.
func (m *Manager) WithStore(store Store) *Manager {
	cp := *m
	cp.store = store
	return &cp
}

// All returns every deck sorted by name.
func (m *Manager) All() []*Deck {
	out := make([]*Deck, 0, len(m.decks))
	for _, d := range m.decks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllIDs returns every deck id, unordered.
func (m *Manager) AllIDs() []int64 {
	out := make([]int64, 0, len(m.decks))
	for id := range m.decks {
		out = append(out, id)
	}
	return out
}

// Get returns the deck with the given id, or nil.
func (m *Manager) Get(id int64) *Deck {
	return m.decks[id]
}

// ByName returns the deck with the given full name, or nil.
func (m *Manager) ByName(name string) *Deck {
	for _, d := range m.decks {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Create adds a deck, creating any missing ancestors as regular decks.
func (m *Manager) Create(name string, dyn *DynConfig) (*Deck, error) {
	if name == "" {
		return nil, fmt.Errorf("deck name must not be empty")
	}
	if d := m.ByName(name); d != nil {
		return d, nil
	}
	if p := ParentName(name); p != "" && dyn == nil {
		if _, err := m.Create(p, nil); err != nil {
			return nil, err
		}
	} else if p := ParentName(name); p != "" && dyn != nil {
		// filtered decks may not be nested under other decks
		return nil, fmt.Errorf("filtered deck %q may not have a parent", name)
	}
	d := &Deck{
		ID:     m.nextDeckID,
		Name:   name,
		ConfID: 1,
		Dyn:    dyn,
	}
	m.nextDeckID++
	m.decks[d.ID] = d
	if err := m.store.SaveDeck(d); err != nil {
		return nil, fmt.Errorf("failed to save deck %q: %w", name, err)
	}
	return d, nil
}

// Save writes a deck through to the store.
func (m *Manager) Save(d *Deck) error {
	m.decks[d.ID] = d
	return m.store.SaveDeck(d)
}

// Parents returns the existing ancestors of a deck, root first.
func (m *Manager) Parents(id int64) []*Deck {
	d := m.decks[id]
	if d == nil {
		return nil
	}
	var out []*Deck
	name := d.Name
	for {
		name = ParentName(name)
		if name == "" {
			break
		}
		if p := m.ByName(name); p != nil {
			out = append([]*Deck{p}, out...)
		}
	}
	return out
}

// Children returns the strict descendants of a deck, sorted by name.
func (m *Manager) Children(id int64) []*Deck {
	d := m.decks[id]
	if d == nil {
		return nil
	}
	prefix := d.Name + "::"
	var out []*Deck
	for _, c := range m.decks {
		if len(c.Name) > len(prefix) && c.Name[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetActive replaces the active-deck set used by the queue builder.
func (m *Manager) SetActive(ids []int64) {
	m.active = append([]int64(nil), ids...)
}

// Active returns the active-deck ids in selection order.
func (m *Manager) Active() []int64 {
	return append([]int64(nil), m.active...)
}

// SelectDeck marks a deck and its subtree active.
func (m *Manager) SelectDeck(id int64) error {
	d := m.decks[id]
	if d == nil {
		return fmt.Errorf("unknown deck id: %d", id)
	}
	ids := []int64{id}
	for _, c := range m.Children(id) {
		ids = append(ids, c.ID)
	}
	m.active = ids
	return nil
}

// Config returns a preset by id, falling back to the default preset.
func (m *Manager) Config(id int64) *Config {
	if c, ok := m.configs[id]; ok {
		return c
	}
	return m.configs[1]
}

// AllConfigs returns every preset sorted by id.
func (m *Manager) AllConfigs() []*Config {
	out := make([]*Config, 0, len(m.configs))
	for _, c := range m.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddConfig registers a new preset and persists it.
func (m *Manager) AddConfig(c *Config) error {
	if c.ID == 0 {
		c.ID = m.nextConfID
		m.nextConfID++
	} else if c.ID >= m.nextConfID {
		m.nextConfID = c.ID + 1
	}
	m.configs[c.ID] = c
	return m.store.SaveConfig(c)
}

// UpdateConfig persists changes to an existing preset.
func (m *Manager) UpdateConfig(c *Config) error {
	m.configs[c.ID] = c
	return m.store.SaveConfig(c)
}

// ConfForDeck resolves the effective options for a deck. Filtered decks
// synthesize an ephemeral config from their own settings; the per-kind
// fields of that config are resolved against the card's home deck by
// the scheduler.
func (m *Manager) ConfForDeck(d *Deck) *Config {
	if d.IsDyn() {
		c := &Config{
			ID:      d.ID,
			Name:    d.Name,
			Dyn:     true,
			Resched: d.Dyn.Resched,
		}
		c.New.Delays = d.Dyn.Delays
		c.Lapse.Delays = d.Dyn.Delays
		return c
	}
	return m.Config(d.ConfID)
}

// ConfForDid resolves the effective options for a deck id.
func (m *Manager) ConfForDid(did int64) *Config {
	d := m.decks[did]
	if d == nil {
		return m.Config(1)
	}
	return m.ConfForDeck(d)
}

package collection

import (
	"github.com/mfield/retain/internal/storage"
)

// Event identifies a scheduler notification the embedding application
// can subscribe to.
type Event int

const (
	EventLeech Event = iota
	EventRevertedCard
	EventReset
	EventBeforeStateChange
	EventAfterStateChange
)

// String returns the event's wire name.
func (e Event) String() string {
	switch e {
	case EventLeech:
		return "leech"
	case EventRevertedCard:
		return "revertedCard"
	case EventReset:
		return "reset"
	case EventBeforeStateChange:
		return "beforeStateChange"
	case EventAfterStateChange:
		return "afterStateChange"
	default:
		return "unknown"
	}
}

// Handler receives the card an event concerns, or nil for
// collection-wide events such as reset.
type Handler func(card *storage.Card)

// Bus is a typed subscriber registry. The scheduler publishes, the UI
// layer subscribes; the core never subscribes to anything.
type Bus struct {
	subs map[Event][]Handler
}

// NewBus returns an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]Handler)}
}

// Subscribe registers a handler for an event.
func (b *Bus) Subscribe(e Event, h Handler) {
	b.subs[e] = append(b.subs[e], h)
}

// Publish invokes every handler registered for an event, in
// subscription order.
func (b *Bus) Publish(e Event, card *storage.Card) {
	for _, h := range b.subs[e] {
		h(card)
	}
}

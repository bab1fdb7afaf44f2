// Package event carries one-directional engine notifications to subscribers.
package event

import (
	"log"
	"sync"
	"time"

	"scavenge/internal/loot"
)

type Kind string

const (
	ItemFound    Kind = "item_found"
	StateChanged Kind = "state_changed"
	CatchUp      Kind = "catch_up"
	Transfer     Kind = "transfer"
	ItemUsed     Kind = "item_used"
)

// Event is a notification emitted by the engine. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind Kind
	At   time.Time

	// ItemFound
	Drop loot.Drop

	// StateChanged
	From string
	To   string

	// CatchUp
	Ticks   int
	Skipped int

	// Transfer
	Stackables int
	Durables   int

	// ItemUsed
	ItemID string
	Store  string
}

type Handler func(Event)

type subscription struct {
	id int
	h  Handler
}

// Bus delivers events synchronously, in subscription order. A panicking
// handler is logged and does not stop delivery to the rest.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
	logger *log.Logger
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	if b == nil || h == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s.h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("[event] subscriber panic on %s: %v", e.Kind, r)
		}
	}()
	h(e)
}

// Narrator receives found items for display.
type Narrator interface {
	OnItemFound(d loot.Drop)
}

// NarrateTo adapts n into a Handler that only sees ItemFound events.
func NarrateTo(n Narrator) Handler {
	return func(e Event) {
		if e.Kind == ItemFound {
			n.OnItemFound(e.Drop)
		}
	}
}

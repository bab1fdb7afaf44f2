// Package inventory implements the dual-typed item stores: stackable entries
// keyed by definition id, and durable instances tracked by identity.
package inventory

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"scavenge/internal/save"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrNilInstance     = errors.New("durable instance is nil")
)

// Durable is one individually tracked item. Its quantity is always 1 and two
// instances are never equal, even with identical fields.
type Durable struct {
	ID         uuid.UUID
	ItemID     string
	Durability int
}

func NewDurable(itemID string, durability int) *Durable {
	return &Durable{
		ID:         uuid.New(),
		ItemID:     normalizeID(itemID),
		Durability: durability,
	}
}

func (d *Durable) Quantity() int { return 1 }

// Stack is a stackable entry. Quantity is always > 0.
type Stack struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"count"`
}

// Keys names where a store is persisted.
type Keys struct {
	Stackables save.Key
	Durables   save.Key
}

var (
	InventoryKeys = Keys{Stackables: save.KeyInventoryStackables, Durables: save.KeyInventoryDurables}
	StashKeys     = Keys{Stackables: save.KeyStashStackables, Durables: save.KeyStashDurables}
	LoadoutKeys   = Keys{Stackables: save.KeyLoadoutStackables, Durables: save.KeyLoadoutDurables}
)

// Store exclusively owns its entries. It is not safe for concurrent use; the
// engine drives every store from a single timeline.
type Store struct {
	name     string
	keys     Keys
	stacks   map[string]int
	durables []*Durable
}

func NewStore(name string, keys Keys) *Store {
	return &Store{
		name:   name,
		keys:   keys,
		stacks: make(map[string]int),
	}
}

// Clone copies the entries into a new store with the same name and keys.
// Durable instances are shared, so identity still holds across the copy.
func (s *Store) Clone() *Store {
	c := NewStore(s.name, s.keys)
	for id, qty := range s.stacks {
		c.stacks[id] = qty
	}
	c.durables = append([]*Durable(nil), s.durables...)
	return c
}

func (s *Store) Name() string { return s.name }
func (s *Store) Keys() Keys   { return s.keys }

// AddStackable merges qty into the entry for itemID, creating it if needed.
func (s *Store) AddStackable(itemID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	itemID = normalizeID(itemID)
	if itemID == "" {
		return errors.New("item id is required")
	}
	s.stacks[itemID] += qty
	return nil
}

// AddDurable appends the instance. Adding an instance the store already holds
// is a no-op.
func (s *Store) AddDurable(d *Durable) error {
	if d == nil {
		return ErrNilInstance
	}
	if s.indexOf(d) >= 0 {
		return nil
	}
	s.durables = append(s.durables, d)
	return nil
}

// RemoveStackable decrements the entry and deletes it once it reaches zero.
// It reports false, leaving the store unchanged, when the entry is absent.
func (s *Store) RemoveStackable(itemID string, qty int) bool {
	if qty <= 0 {
		return false
	}
	itemID = normalizeID(itemID)
	have, ok := s.stacks[itemID]
	if !ok {
		return false
	}
	if have-qty <= 0 {
		delete(s.stacks, itemID)
	} else {
		s.stacks[itemID] = have - qty
	}
	return true
}

// RemoveDurable removes the given instance by identity.
func (s *Store) RemoveDurable(d *Durable) bool {
	i := s.indexOf(d)
	if i < 0 {
		return false
	}
	s.durables = append(s.durables[:i], s.durables[i+1:]...)
	return true
}

// DurableByID finds a held instance by its id.
func (s *Store) DurableByID(id uuid.UUID) (*Durable, bool) {
	for _, d := range s.durables {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// TransferAllTo moves every entry into dst and leaves s empty.
func (s *Store) TransferAllTo(dst *Store) {
	if dst == nil || dst == s {
		return
	}
	for id, qty := range s.stacks {
		dst.stacks[id] += qty
	}
	for _, d := range s.durables {
		_ = dst.AddDurable(d)
	}
	s.Clear()
}

func (s *Store) Clear() {
	s.stacks = make(map[string]int)
	s.durables = nil
}

// Quantity returns the stackable count for itemID.
func (s *Store) Quantity(itemID string) int {
	return s.stacks[normalizeID(itemID)]
}

// Stackables returns the entries sorted by item id.
func (s *Store) Stackables() []Stack {
	out := make([]Stack, 0, len(s.stacks))
	for id, qty := range s.stacks {
		out = append(out, Stack{ItemID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Durables returns the held instances in insertion order.
func (s *Store) Durables() []*Durable {
	out := make([]*Durable, len(s.durables))
	copy(out, s.durables)
	return out
}

func (s *Store) IsEmpty() bool {
	return len(s.stacks) == 0 && len(s.durables) == 0
}

func (s *Store) indexOf(d *Durable) int {
	if d == nil {
		return -1
	}
	for i, held := range s.durables {
		if held == d {
			return i
		}
	}
	return -1
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

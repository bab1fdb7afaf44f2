package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"scavenge/internal/catalog"
	"scavenge/internal/expedition"
	"scavenge/internal/inventory"
)

// GearUp moves qty units of a stash item into the loadout. For a durable item
// the stash instance with the most durability left is equipped and qty is
// ignored.
func (e *Engine) GearUp(ctx context.Context, itemID string, qty int) error {
	if err := e.requireBunker("gear up"); err != nil {
		return err
	}
	def, ok := e.catalog.Resolve(itemID)
	if !ok {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownItem, itemID)
	}
	if def.Durable {
		d := bestInstance(e.stash, def.ID)
		if d == nil {
			return fmt.Errorf("%w: %s in %s", ErrNotHeld, def.ID, StoreStash)
		}
		return e.equip(ctx, d)
	}
	return e.moveStack(ctx, e.stash, e.loadout, def.ID, qty)
}

// Ungear puts qty units of a loadout item back in the stash. For a durable
// item the equipped instance is returned.
func (e *Engine) Ungear(ctx context.Context, itemID string, qty int) error {
	if err := e.requireBunker("change gear"); err != nil {
		return err
	}
	def, ok := e.catalog.Resolve(itemID)
	if !ok {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownItem, itemID)
	}
	if def.Durable {
		for _, d := range e.loadout.Durables() {
			if d.ItemID == def.ID {
				return e.unequip(ctx, d)
			}
		}
		return fmt.Errorf("%w: %s in %s", ErrNotHeld, def.ID, StoreLoadout)
	}
	return e.moveStack(ctx, e.loadout, e.stash, def.ID, qty)
}

// GearUpDurable equips one specific stash instance.
func (e *Engine) GearUpDurable(ctx context.Context, id uuid.UUID) error {
	if err := e.requireBunker("gear up"); err != nil {
		return err
	}
	d, ok := e.stash.DurableByID(id)
	if !ok {
		return fmt.Errorf("%w: instance %s in %s", ErrNotHeld, id, StoreStash)
	}
	return e.equip(ctx, d)
}

// UngearDurable returns one equipped instance to the stash.
func (e *Engine) UngearDurable(ctx context.Context, id uuid.UUID) error {
	if err := e.requireBunker("change gear"); err != nil {
		return err
	}
	d, ok := e.loadout.DurableByID(id)
	if !ok {
		return fmt.Errorf("%w: instance %s in %s", ErrNotHeld, id, StoreLoadout)
	}
	return e.unequip(ctx, d)
}

func (e *Engine) requireBunker(action string) error {
	if phase := e.machine.CurrentState().Phase; phase != expedition.Bunker {
		return fmt.Errorf("%w: cannot %s while %s", expedition.ErrInvalidTransition, action, phase)
	}
	return nil
}

func (e *Engine) moveStack(ctx context.Context, from, to *inventory.Store, itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", inventory.ErrInvalidQuantity, qty)
	}
	if from.Quantity(itemID) < qty {
		return fmt.Errorf("%w: %d %s in %s", ErrNotHeld, qty, itemID, from.Name())
	}
	from.RemoveStackable(itemID, qty)
	if err := to.AddStackable(itemID, qty); err != nil {
		_ = from.AddStackable(itemID, qty)
		return err
	}
	if err := e.persist(ctx, from, to); err != nil {
		to.RemoveStackable(itemID, qty)
		_ = from.AddStackable(itemID, qty)
		return err
	}
	return nil
}

// equip moves d from the stash into the loadout. The loadout has one slot
// per equippable category; whatever held the slot goes back to the stash.
func (e *Engine) equip(ctx context.Context, d *inventory.Durable) error {
	def, ok := e.catalog.Resolve(d.ItemID)
	if !ok || (def.Category != catalog.Tool && def.Category != catalog.Weapon) {
		return fmt.Errorf("%w: %s", ErrNotEquippable, d.ItemID)
	}
	var swapped *inventory.Durable
	for _, held := range e.loadout.Durables() {
		if hd, ok := e.catalog.Resolve(held.ItemID); ok && hd.Category == def.Category {
			swapped = held
			break
		}
	}

	e.stash.RemoveDurable(d)
	_ = e.loadout.AddDurable(d)
	if swapped != nil {
		e.loadout.RemoveDurable(swapped)
		_ = e.stash.AddDurable(swapped)
	}
	if err := e.persist(ctx, e.stash, e.loadout); err != nil {
		if swapped != nil {
			e.stash.RemoveDurable(swapped)
			_ = e.loadout.AddDurable(swapped)
		}
		e.loadout.RemoveDurable(d)
		_ = e.stash.AddDurable(d)
		return err
	}
	if swapped != nil {
		e.logger.Printf("[game] %s slot: %s replaces %s", def.Category, d.ItemID, swapped.ItemID)
	}
	return nil
}

func (e *Engine) unequip(ctx context.Context, d *inventory.Durable) error {
	e.loadout.RemoveDurable(d)
	_ = e.stash.AddDurable(d)
	if err := e.persist(ctx, e.loadout, e.stash); err != nil {
		e.stash.RemoveDurable(d)
		_ = e.loadout.AddDurable(d)
		return err
	}
	return nil
}

func bestInstance(s *inventory.Store, itemID string) *inventory.Durable {
	var best *inventory.Durable
	for _, d := range s.Durables() {
		if d.ItemID == itemID && (best == nil || d.Durability > best.Durability) {
			best = d
		}
	}
	return best
}

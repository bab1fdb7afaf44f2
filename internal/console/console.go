// Package console drives the engine from line commands.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"scavenge/internal/catalog"
	"scavenge/internal/event"
	"scavenge/internal/expedition"
	"scavenge/internal/game"
	"scavenge/internal/inventory"
	"scavenge/internal/loot"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

const help = `commands:
  explore            leave the bunker
  return             head back with what you carry
  boost on|off       hold or release the boost
  skip <dur>         skip return travel time, e.g. skip 5m
  status             show the expedition
  inv [category]     list the inventory
  stash [category]   list the stash
  loadout [category] list gear packed for the next run
  gear <item> [n]    pack n of a stash item, or equip a tool or weapon
  ungear <item> [n]  put packed gear back in the stash
  use <item>         consume one item from the inventory
  quit               save and exit`

// Console serializes its own output: narration arrives from the host's
// ticker goroutine while commands print from the reader loop.
type Console struct {
	host *game.Host

	mu  sync.Mutex
	out io.Writer
}

func New(host *game.Host, out io.Writer) *Console {
	return &Console{host: host, out: out}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// OnItemFound narrates a drop.
func (c *Console) OnItemFound(d loot.Drop) {
	if d.IsDurable() {
		c.printf("found %s (%d/%d)\n", d.Def.DisplayName(), d.Durability, d.Def.MaxDurability)
		return
	}
	c.printf("found %s x%d\n", d.Def.DisplayName(), d.Quantity)
}

func (c *Console) onEvent(e event.Event) {
	switch e.Kind {
	case event.StateChanged:
		c.printf("[%s -> %s]\n", e.From, e.To)
	case event.CatchUp:
		if e.Ticks > 0 || e.Skipped > 0 {
			c.printf("while you were away: %d ticks (%d discarded)\n", e.Ticks, e.Skipped)
		}
	case event.Transfer:
		c.printf("stashed %d stacks and %d tools\n", e.Stackables, e.Durables)
	}
}

// Attach subscribes the console to engine events and returns the
// unsubscribe func.
func (c *Console) Attach() func() {
	var unsubs []func()
	_ = c.host.Do(func(e *game.Engine) error {
		unsubs = append(unsubs, e.Subscribe(event.NarrateTo(c)), e.Subscribe(c.onEvent))
		return nil
	})
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Run reads commands until EOF, quit, or ctx is cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	c.printf("%s\n", help)
	sc := bufio.NewScanner(in)
	for {
		c.printf("> ")
		if !sc.Scan() {
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		err := c.Exec(ctx, sc.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			c.printf("error: %v\n", err)
		}
	}
}

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "?":
		c.printf("%s\n", help)
	case "quit", "exit", "q":
		return ErrQuit
	case "explore":
		return c.host.Do(func(e *game.Engine) error { return e.Explore(ctx) })
	case "return":
		return c.host.Do(func(e *game.Engine) error { return e.Return(ctx) })
	case "boost":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return errors.New("usage: boost on|off")
		}
		return c.host.Do(func(e *game.Engine) error {
			e.SetBoost(args[0] == "on")
			return nil
		})
	case "skip":
		if len(args) != 1 {
			return errors.New("usage: skip <duration>")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid duration %q", args[0])
		}
		return c.host.Do(func(e *game.Engine) error { return e.Skip(ctx, d) })
	case "status":
		c.status()
	case "inv", "inventory":
		return c.list(game.StoreInventory, args)
	case "stash":
		return c.list(game.StoreStash, args)
	case "loadout":
		return c.list(game.StoreLoadout, args)
	case "gear", "ungear":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: %s <item> [n]", cmd)
		}
		return c.gear(ctx, cmd == "gear", args)
	case "use":
		if len(args) != 1 {
			return errors.New("usage: use <item>")
		}
		return c.use(ctx, args[0])
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (c *Console) status() {
	var st game.Status
	_ = c.host.Do(func(e *game.Engine) error {
		st = e.Status()
		return nil
	})
	switch st.Phase {
	case expedition.Exploring:
		boost := ""
		if st.Boosting {
			boost = " boosting"
		}
		c.printf("exploring %s%s stamina %.0f/%.0f\n", st.TimerText, boost, st.Stamina.Current, st.Stamina.Max)
	case expedition.Returning:
		c.printf("returning, %s left\n", st.TimerText)
	default:
		c.printf("in the bunker, stash has %d entries\n", st.Stash)
	}
}

func (c *Console) list(name game.StoreName, args []string) error {
	var category catalog.Category
	if len(args) > 0 {
		category = catalog.Category(args[0])
	}
	var entries []inventory.Entry
	err := c.host.Do(func(e *game.Engine) error {
		var err error
		entries, err = e.List(name, category)
		return err
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		c.printf("%s is empty\n", name)
		return nil
	}
	for _, en := range entries {
		if en.InstanceID != "" {
			c.printf("  %-24s %-10s %d/%d\n", en.Name, en.Rarity, en.Durability, en.MaxDurability)
			continue
		}
		c.printf("  %-24s %-10s x%d\n", en.Name, en.Rarity, en.Quantity)
	}
	return nil
}

func (c *Console) gear(ctx context.Context, equip bool, args []string) error {
	qty := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid count %q", args[1])
		}
		qty = n
	}
	err := c.host.Do(func(e *game.Engine) error {
		if equip {
			return e.GearUp(ctx, args[0], qty)
		}
		return e.Ungear(ctx, args[0], qty)
	})
	if err != nil {
		return err
	}
	if equip {
		c.printf("packed %s\n", args[0])
	} else {
		c.printf("unpacked %s\n", args[0])
	}
	return nil
}

func (c *Console) use(ctx context.Context, itemID string) error {
	var (
		def     *catalog.Definition
		suggest []string
	)
	err := c.host.Do(func(e *game.Engine) error {
		var err error
		def, err = e.UseItem(ctx, game.StoreInventory, itemID)
		if errors.Is(err, catalog.ErrUnknownItem) {
			suggest = e.Catalog().Suggest(itemID)
		}
		return err
	})
	if errors.Is(err, catalog.ErrUnknownItem) && len(suggest) > 0 {
		return fmt.Errorf("unknown item %q, did you mean %s?", itemID, strings.Join(suggest, ", "))
	}
	if err != nil {
		return err
	}
	c.printf("used %s\n", def.DisplayName())
	return nil
}

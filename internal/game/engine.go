// Package game assembles the exploration engine and drives it from a host loop.
package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"scavenge/internal/catalog"
	"scavenge/internal/clock"
	"scavenge/internal/config"
	"scavenge/internal/event"
	"scavenge/internal/expedition"
	"scavenge/internal/explore"
	"scavenge/internal/inventory"
	"scavenge/internal/loot"
	"scavenge/internal/save"
	"scavenge/internal/telemetry"
)

// StoreName selects one of the item stores.
type StoreName string

const (
	StoreInventory StoreName = "inventory"
	StoreStash     StoreName = "stash"
	StoreLoadout   StoreName = "loadout"
)

var (
	ErrUnknownStore  = errors.New("unknown store")
	ErrNotHeld       = errors.New("item not held")
	ErrNotConsumable = errors.New("item cannot be used")
	ErrNotEquippable = errors.New("item cannot be equipped")
)

// VitalsConsumer receives the restore effects of a used item.
type VitalsConsumer interface {
	Apply(def *catalog.Definition)
}

type NopVitals struct{}

func (NopVitals) Apply(*catalog.Definition) {}

type Options struct {
	Config    *config.Config
	Catalog   *catalog.Catalog
	Repo      save.Repository
	Clock     clock.Clock
	Source    loot.Source
	Vitals    VitalsConsumer
	Telemetry telemetry.Repository
	Logger    *log.Logger
}

// Engine is the explicit init/advance/shutdown surface over the expedition.
// It is not safe for concurrent use; Host serializes access.
type Engine struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	repo      save.Repository
	clock     clock.Clock
	logger    *log.Logger
	vitals    VitalsConsumer
	telemetry telemetry.Repository

	bus     *event.Bus
	table   *loot.Table
	sched   *explore.Scheduler
	machine *expedition.Machine
	inv     *inventory.Store
	stash   *inventory.Store
	loadout *inventory.Store
}

func New(opts Options) (*Engine, error) {
	if opts.Repo == nil {
		return nil, errors.New("game: repository is required")
	}
	if opts.Config == nil {
		cfg := config.Default()
		opts.Config = &cfg
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Catalog == nil {
		cat, err := catalog.Default(opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Catalog = cat
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Source == nil {
		opts.Source = loot.NewSource(opts.Config.Loot.Seed)
	}
	if opts.Vitals == nil {
		opts.Vitals = NopVitals{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewMemoryRepository(10000)
	}

	cfg := opts.Config
	e := &Engine{
		cfg:       cfg,
		catalog:   opts.Catalog,
		repo:      opts.Repo,
		clock:     opts.Clock,
		logger:    opts.Logger,
		vitals:    opts.Vitals,
		telemetry: opts.Telemetry,
		bus:       event.NewBus(opts.Logger),
		inv:       inventory.NewStore(string(StoreInventory), inventory.InventoryKeys),
		stash:     inventory.NewStore(string(StoreStash), inventory.StashKeys),
		loadout:   inventory.NewStore(string(StoreLoadout), inventory.LoadoutKeys),
	}
	telemetry.NewRecorder(e.telemetry, opts.Logger).Attach(e.bus)

	e.table = loot.NewTable(e.catalog, cfg.LootChance(), cfg.Loot.RarityWeights, opts.Source)
	e.sched = explore.New(e.table, e.inv, explore.Options{
		Interval:   cfg.Exploration.TickInterval,
		MaxCatchUp: cfg.MaxCatchUpTicks(),
		Clock:      e.clock,
		Bus:        e.bus,
		Logger:     e.logger,
	})
	e.machine = expedition.New(e.repo, e.sched, e.stash, expedition.Options{
		Clock:       e.clock,
		Bus:         e.bus,
		Logger:      e.logger,
		BoostFactor: cfg.Boost.Factor,
		ReturnRatio: cfg.Return.Ratio,
		Stamina:     expedition.NewStamina(cfg.Boost.StaminaMax, cfg.Boost.DrainRate, cfg.Boost.RegenRate),
		Loadout:     e.loadout,
	})
	return e, nil
}

// Init loads the stores and resumes any expedition in progress.
func (e *Engine) Init(ctx context.Context) error {
	for _, s := range []*inventory.Store{e.inv, e.stash, e.loadout} {
		loaded, err := inventory.Load(ctx, e.repo, s.Name(), s.Keys(), e.catalog, e.logger)
		if err != nil {
			return err
		}
		s.Clear()
		loaded.TransferAllTo(s)
	}
	if err := e.machine.Resume(ctx); err != nil {
		return fmt.Errorf("resume expedition: %w", err)
	}
	st := e.machine.CurrentState()
	e.logger.Printf("[game] resumed in %s (timer %s)", st.Phase, expedition.FormatTimer(e.machine.Timer()))
	return nil
}

func (e *Engine) Advance(ctx context.Context, dt time.Duration) error {
	return e.machine.Advance(ctx, dt)
}

// Shutdown writes a final checkpoint.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.machine.Shutdown(ctx)
}

func (e *Engine) Explore(ctx context.Context) error {
	return e.machine.ConfirmExploration(ctx)
}

func (e *Engine) Return(ctx context.Context) error {
	return e.machine.RequestReturn(ctx)
}

func (e *Engine) SetBoost(holding bool) {
	e.machine.SetHolding(holding)
}

func (e *Engine) Skip(ctx context.Context, d time.Duration) error {
	return e.machine.SkipReturn(ctx, d)
}

func (e *Engine) Subscribe(h event.Handler) func() {
	return e.bus.Subscribe(h)
}

// Ready reports whether the save backend answers reads.
func (e *Engine) Ready(ctx context.Context) error {
	_, _, err := e.repo.Get(ctx, save.KeyState)
	return err
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

func (e *Engine) Config() *config.Config { return e.cfg }

func (e *Engine) store(name StoreName) (*inventory.Store, error) {
	switch name {
	case StoreInventory, "":
		return e.inv, nil
	case StoreStash:
		return e.stash, nil
	case StoreLoadout:
		return e.loadout, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStore, name)
}

// List returns the named store's contents, optionally limited to a category.
func (e *Engine) List(name StoreName, category catalog.Category) ([]inventory.Entry, error) {
	s, err := e.store(name)
	if err != nil {
		return nil, err
	}
	return s.Entries(e.catalog, category), nil
}

// UseItem consumes one unit of a stackable item and applies its effects.
func (e *Engine) UseItem(ctx context.Context, name StoreName, itemID string) (*catalog.Definition, error) {
	s, err := e.store(name)
	if err != nil {
		return nil, err
	}
	def, ok := e.catalog.Resolve(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownItem, itemID)
	}
	if def.Durable || (def.RestoreHunger == 0 && def.RestoreThirst == 0 && def.RestoreHealth == 0) {
		return nil, fmt.Errorf("%w: %s", ErrNotConsumable, def.ID)
	}
	if !s.RemoveStackable(def.ID, 1) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotHeld, def.ID, name)
	}
	if err := e.persist(ctx, s); err != nil {
		_ = s.AddStackable(def.ID, 1)
		return nil, err
	}

	e.vitals.Apply(def)
	e.bus.Publish(event.Event{Kind: event.ItemUsed, At: e.clock.Now(), ItemID: def.ID, Store: s.Name()})
	return def, nil
}

// DiscardDurable removes one durable instance by id.
func (e *Engine) DiscardDurable(ctx context.Context, name StoreName, id uuid.UUID) error {
	s, err := e.store(name)
	if err != nil {
		return err
	}
	d, ok := s.DurableByID(id)
	if !ok {
		return fmt.Errorf("%w: instance %s in %s", ErrNotHeld, id, name)
	}
	s.RemoveDurable(d)
	if err := e.persist(ctx, s); err != nil {
		_ = s.AddDurable(d)
		return err
	}
	return nil
}

// ClearInventory empties the expedition inventory.
func (e *Engine) ClearInventory(ctx context.Context) error {
	held := inventory.NewStore("cleared", inventory.Keys{})
	e.inv.TransferAllTo(held)
	if err := e.persist(ctx, e.inv); err != nil {
		held.TransferAllTo(e.inv)
		return err
	}
	return nil
}

// Stats aggregates telemetry recorded since the given time.
func (e *Engine) Stats(since time.Time) (telemetry.Stats, error) {
	events, err := e.telemetry.GetEvents(since, nil)
	if err != nil {
		return telemetry.Stats{}, err
	}
	return telemetry.CalculateStats(events, since)
}

// persist writes the given stores in one batch.
func (e *Engine) persist(ctx context.Context, stores ...*inventory.Store) error {
	b := save.NewBatch()
	names := make([]string, 0, len(stores))
	for _, s := range stores {
		if err := s.WriteTo(b); err != nil {
			return err
		}
		names = append(names, s.Name())
	}
	if err := e.repo.Apply(ctx, b); err != nil {
		return fmt.Errorf("persist %s: %w", strings.Join(names, "+"), err)
	}
	return nil
}

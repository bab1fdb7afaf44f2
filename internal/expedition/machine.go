package expedition

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scavenge/internal/clock"
	"scavenge/internal/event"
	"scavenge/internal/explore"
	"scavenge/internal/inventory"
	"scavenge/internal/save"
)

const (
	DefaultBoostFactor = 4.0
	DefaultReturnRatio = 1.0
)

type Options struct {
	Clock  clock.Clock
	Bus    *event.Bus
	Logger *log.Logger
	Tracer trace.Tracer

	// BoostFactor multiplies exploring time while the boost is held.
	BoostFactor float64
	// ReturnRatio maps time spent exploring to time needed to return.
	ReturnRatio float64
	Stamina     Stamina

	// Loadout holds gear picked from the stash. It is carried into the
	// inventory when the expedition starts. Nil means no gear-up.
	Loadout *inventory.Store
}

// Machine drives one expedition at a time. Every transition is flushed to the
// repository before the call returns. Machine is not safe for concurrent use.
type Machine struct {
	repo  save.Repository
	sched *explore.Scheduler
	inv     *inventory.Store
	stash   *inventory.Store
	loadout *inventory.Store

	clock  clock.Clock
	bus    *event.Bus
	logger *log.Logger
	tracer trace.Tracer

	boostFactor float64
	returnRatio float64

	state   State
	timer   time.Duration
	holding bool
	stamina Stamina

	pending *event.Event
}

func New(repo save.Repository, sched *explore.Scheduler, stash *inventory.Store, opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("scavenge/expedition")
	}
	if opts.BoostFactor < 1 {
		opts.BoostFactor = DefaultBoostFactor
	}
	if opts.ReturnRatio <= 0 {
		opts.ReturnRatio = DefaultReturnRatio
	}
	if opts.Stamina.Max <= 0 {
		opts.Stamina = NewStamina(100, 20, 10)
	}
	return &Machine{
		repo:        repo,
		sched:       sched,
		inv:         sched.Inventory(),
		stash:       stash,
		loadout:     opts.Loadout,
		clock:       opts.Clock,
		bus:         opts.Bus,
		logger:      opts.Logger,
		tracer:      opts.Tracer,
		boostFactor: opts.BoostFactor,
		returnRatio: opts.ReturnRatio,
		state:       State{Phase: Bunker},
		stamina:     opts.Stamina,
	}
}

func (m *Machine) CurrentState() State         { return m.state }
func (m *Machine) Stamina() Stamina            { return m.stamina }
func (m *Machine) Holding() bool               { return m.holding }
func (m *Machine) Inventory() *inventory.Store { return m.inv }
func (m *Machine) Stash() *inventory.Store     { return m.stash }
func (m *Machine) Loadout() *inventory.Store   { return m.loadout }

// Timer is the exploring time so far while Exploring, the remaining
// countdown while Returning, and zero in the Bunker.
func (m *Machine) Timer() time.Duration { return m.timer }

// Boosting reports whether the next Advance would be accelerated.
func (m *Machine) Boosting() bool {
	return m.state.Phase == Exploring && m.holding && m.stamina.CanBoost()
}

// SetHolding records the external boost signal.
func (m *Machine) SetHolding(holding bool) { m.holding = holding }

// ConfirmExploration leaves the bunker, carrying any staged loadout into the
// inventory in the same write as the phase change.
func (m *Machine) ConfirmExploration(ctx context.Context) error {
	if m.state.Phase != Bunker {
		return fmt.Errorf("%w: cannot explore while %s", ErrInvalidTransition, m.state.Phase)
	}
	ctx, span := m.tracer.Start(ctx, "expedition.confirm_exploration")
	defer span.End()

	now := m.clock.Now()
	next := State{Phase: Exploring, ExploreAnchor: now, LootAnchor: now}
	b := save.NewBatch()
	next.stage(b)
	carry := m.loadout != nil && !m.loadout.IsEmpty()
	if carry {
		carried := m.inv.Clone()
		m.loadout.Clone().TransferAllTo(carried)
		if err := carried.WriteTo(b); err != nil {
			return err
		}
		if err := inventory.NewStore(m.loadout.Name(), m.loadout.Keys()).WriteTo(b); err != nil {
			return err
		}
		span.SetAttributes(
			attribute.Int("expedition.loadout_stackables", len(m.loadout.Stackables())),
			attribute.Int("expedition.loadout_durables", len(m.loadout.Durables())),
		)
	}
	if err := m.repo.Apply(ctx, b); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persist exploring: %w", err)
	}

	if carry {
		m.loadout.TransferAllTo(m.inv)
	}
	m.state = next
	m.timer = 0
	m.sched.Start(now)
	m.publishPhase(Bunker, Exploring, now)
	return nil
}

// RequestReturn ends exploration and starts the countdown home.
func (m *Machine) RequestReturn(ctx context.Context) error {
	if m.state.Phase != Exploring {
		return fmt.Errorf("%w: cannot return while %s", ErrInvalidTransition, m.state.Phase)
	}
	ctx, span := m.tracer.Start(ctx, "expedition.request_return")
	defer span.End()

	now := m.clock.Now()
	duration := time.Duration(float64(m.timer) * m.returnRatio)
	if floor := m.sched.Interval(); duration < floor {
		duration = floor
	}
	next := State{Phase: Returning, ReturnAnchor: now, ReturnDuration: duration}
	span.SetAttributes(attribute.Float64("expedition.return_seconds", duration.Seconds()))

	b := save.NewBatch()
	next.stage(b)
	if err := m.inv.WriteTo(b); err != nil {
		return err
	}
	if err := m.repo.Apply(ctx, b); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persist returning: %w", err)
	}

	m.sched.Stop()
	m.state = next
	m.timer = duration
	m.publishPhase(Exploring, Returning, now)
	return nil
}

// Advance moves the expedition forward by realDt of wall time.
func (m *Machine) Advance(ctx context.Context, realDt time.Duration) error {
	if realDt < 0 {
		realDt = 0
	}
	var boosted time.Duration
	if m.Boosting() {
		boosted = m.stamina.Boost(realDt)
	} else {
		m.stamina.Update(realDt, false)
	}

	switch m.state.Phase {
	case Exploring:
		// Only the stretch stamina paid for runs at the boost factor.
		effective := realDt - boosted + time.Duration(float64(boosted)*m.boostFactor)
		m.timer += effective
		if m.sched.Advance(effective) > 0 {
			return m.checkpoint(ctx)
		}
	case Returning:
		return m.evaluateReturn(ctx, m.clock.Now())
	}
	return nil
}

// SkipReturn shortens the remaining countdown by d. The persisted duration
// is unchanged; the return anchor moves back instead.
func (m *Machine) SkipReturn(ctx context.Context, d time.Duration) error {
	if m.state.Phase != Returning {
		return fmt.Errorf("%w: nothing to skip while %s", ErrInvalidTransition, m.state.Phase)
	}
	if d <= 0 {
		return nil
	}
	now := m.clock.Now()
	next := m.state
	next.ReturnAnchor = next.ReturnAnchor.Add(-d)
	if floor := now.Add(-next.ReturnDuration); next.ReturnAnchor.Before(floor) {
		next.ReturnAnchor = floor
	}

	b := save.NewBatch()
	b.Put(save.KeyReturnAnchor, save.FormatTime(next.ReturnAnchor))
	if err := m.repo.Apply(ctx, b); err != nil {
		return fmt.Errorf("persist skip: %w", err)
	}
	m.state = next
	return m.evaluateReturn(ctx, now)
}

// Resume reconstructs the session from persisted state. Malformed anchors
// resolve to Bunker; only repository failures are returned.
func (m *Machine) Resume(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "expedition.resume")
	defer span.End()

	st, ok, err := loadState(ctx, m.repo)
	if err != nil {
		span.RecordError(err)
		return err
	}
	now := m.clock.Now()
	m.sched.Stop()
	m.state = st
	m.timer = 0
	span.SetAttributes(attribute.String("expedition.phase", string(st.Phase)))

	if !ok {
		m.logger.Printf("[expedition] persisted expedition is malformed; resetting to bunker")
		b := save.NewBatch()
		st.stage(b)
		if err := m.repo.Apply(ctx, b); err != nil {
			m.logger.Printf("[expedition] reset persisted state: %v", err)
		}
		return nil
	}

	switch st.Phase {
	case Exploring:
		m.timer = now.Sub(st.ExploreAnchor)
		if m.timer < 0 {
			m.timer = 0
		}
		if m.sched.Start(st.LootAnchor) > 0 {
			return m.checkpoint(ctx)
		}
	case Returning:
		return m.evaluateReturn(ctx, now)
	}
	return nil
}

// Shutdown stops ticking and writes a final checkpoint.
func (m *Machine) Shutdown(ctx context.Context) error {
	err := m.checkpoint(ctx)
	m.sched.Stop()
	return err
}

// Checkpoint persists both stores and, while Exploring, re-anchors the
// expedition so a restart resumes from now rather than the original start.
func (m *Machine) Checkpoint(ctx context.Context) error {
	return m.checkpoint(ctx)
}

func (m *Machine) checkpoint(ctx context.Context) error {
	now := m.clock.Now()
	b := save.NewBatch()
	next := m.state
	if next.Phase == Exploring {
		next.ExploreAnchor = now.Add(-m.timer)
		next.LootAnchor = now.Add(-m.sched.Accumulator())
		b.Put(save.KeyExploreAnchor, save.FormatTime(next.ExploreAnchor))
		b.Put(save.KeyLootAnchor, save.FormatTime(next.LootAnchor))
	}
	if err := m.inv.WriteTo(b); err != nil {
		return err
	}
	if err := m.stash.WriteTo(b); err != nil {
		return err
	}
	if err := m.repo.Apply(ctx, b); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	m.state = next
	return nil
}

func (m *Machine) evaluateReturn(ctx context.Context, now time.Time) error {
	remaining := m.state.ReturnDuration - now.Sub(m.state.ReturnAnchor)
	if remaining > 0 {
		m.timer = remaining
		return nil
	}
	m.timer = 0
	return m.completeReturn(ctx, now)
}

// completeReturn drains the inventory into the stash and persists Bunker
// with both stores in one batch. If the write fails the machine stays in
// Returning, and the next call retries with an already-empty inventory.
func (m *Machine) completeReturn(ctx context.Context, now time.Time) error {
	ctx, span := m.tracer.Start(ctx, "expedition.complete_return")
	defer span.End()

	m.sched.Stop()
	if m.pending == nil {
		m.pending = &event.Event{
			Kind:       event.Transfer,
			Stackables: len(m.inv.Stackables()),
			Durables:   len(m.inv.Durables()),
		}
	}
	m.inv.TransferAllTo(m.stash)

	next := State{Phase: Bunker}
	b := save.NewBatch()
	next.stage(b)
	if err := m.inv.WriteTo(b); err != nil {
		return err
	}
	if err := m.stash.WriteTo(b); err != nil {
		return err
	}
	if err := m.repo.Apply(ctx, b); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persist bunker: %w", err)
	}

	transfer := *m.pending
	transfer.At = now
	m.pending = nil
	m.state = next
	m.timer = 0
	span.SetAttributes(
		attribute.Int("expedition.stackables_moved", transfer.Stackables),
		attribute.Int("expedition.durables_moved", transfer.Durables),
	)
	m.bus.Publish(transfer)
	m.publishPhase(Returning, Bunker, now)
	return nil
}

func (m *Machine) publishPhase(from, to Phase, at time.Time) {
	m.bus.Publish(event.Event{Kind: event.StateChanged, At: at, From: string(from), To: string(to)})
}

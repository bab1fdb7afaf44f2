// Package explore turns elapsed exploration time into loot ticks.
package explore

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scavenge/internal/clock"
	"scavenge/internal/event"
	"scavenge/internal/inventory"
	"scavenge/internal/loot"
)

const DefaultInterval = 10 * time.Second

// Roller produces the drops for one tick.
type Roller interface {
	Roll() []loot.Drop
}

type Options struct {
	Interval time.Duration
	// MaxCatchUp caps the ticks processed in one Start or Advance call.
	// Zero disables the cap.
	MaxCatchUp int
	Clock      clock.Clock
	Bus        *event.Bus
	Logger     *log.Logger
	Tracer     trace.Tracer
}

// Scheduler accumulates elapsed time into fixed ticks and deposits each
// tick's drops into the inventory. It is driven from a single timeline and
// holds no lock of its own.
type Scheduler struct {
	roller     Roller
	inv        *inventory.Store
	interval   time.Duration
	maxCatchUp int
	clock      clock.Clock
	bus        *event.Bus
	logger     *log.Logger
	tracer     trace.Tracer

	accumulator time.Duration
	running     bool
}

func New(roller Roller, inv *inventory.Store, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxCatchUp < 0 {
		opts.MaxCatchUp = 0
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("scavenge/explore")
	}
	return &Scheduler{
		roller:     roller,
		inv:        inv,
		interval:   opts.Interval,
		maxCatchUp: opts.MaxCatchUp,
		clock:      opts.Clock,
		bus:        opts.Bus,
		logger:     opts.Logger,
		tracer:     opts.Tracer,
	}
}

// Interval is the wall time between loot rolls.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Running reports whether Advance currently produces ticks.
func (s *Scheduler) Running() bool { return s.running }

// Accumulator is the partial tick carried toward the next roll.
func (s *Scheduler) Accumulator() time.Duration { return s.accumulator }

// Inventory is the store drops are delivered into.
func (s *Scheduler) Inventory() *inventory.Store { return s.inv }

// Start begins ticking and synchronously replays every whole tick between
// anchor and now. It returns the number of ticks replayed.
func (s *Scheduler) Start(anchor time.Time) int {
	now := s.clock.Now()
	elapsed := now.Sub(anchor)
	if elapsed < 0 {
		elapsed = 0
	}
	s.running = true
	due := int(elapsed / s.interval)
	s.accumulator = elapsed % s.interval

	_, span := s.tracer.Start(context.Background(), "explore.catch_up",
		trace.WithAttributes(
			attribute.Int64("explore.elapsed_ms", elapsed.Milliseconds()),
			attribute.Int("explore.ticks_due", due),
		))
	defer span.End()

	ran, skipped := s.runTicks(due)
	span.SetAttributes(attribute.Int("explore.ticks_run", ran), attribute.Int("explore.ticks_skipped", skipped))

	s.bus.Publish(event.Event{Kind: event.CatchUp, At: now, Ticks: ran, Skipped: skipped})
	return ran
}

// Advance feeds dt into the accumulator and processes every whole tick. It
// is a no-op while stopped and returns the number of ticks processed.
func (s *Scheduler) Advance(dt time.Duration) int {
	if !s.running || dt <= 0 {
		return 0
	}
	s.accumulator += dt
	due := int(s.accumulator / s.interval)
	s.accumulator -= time.Duration(due) * s.interval
	ran, _ := s.runTicks(due)
	return ran
}

// Stop halts ticking and drops any partial tick. Delivered loot stays put.
func (s *Scheduler) Stop() {
	s.running = false
	s.accumulator = 0
}

func (s *Scheduler) runTicks(due int) (ran, skipped int) {
	if s.maxCatchUp > 0 && due > s.maxCatchUp {
		skipped = due - s.maxCatchUp
		due = s.maxCatchUp
		s.logger.Printf("[explore] %d ticks due, replaying %d and discarding %d", due+skipped, due, skipped)
	}
	for i := 0; i < due; i++ {
		s.tick()
	}
	return due, skipped
}

func (s *Scheduler) tick() {
	for _, d := range s.roller.Roll() {
		if d.Def == nil {
			continue
		}
		var err error
		if d.IsDurable() {
			err = s.inv.AddDurable(inventory.NewDurable(d.Def.ID, d.Durability))
		} else {
			err = s.inv.AddStackable(d.Def.ID, d.Quantity)
		}
		if err != nil {
			s.logger.Printf("[explore] dropping %s: %v", d.Def.ID, err)
			continue
		}
		s.bus.Publish(event.Event{Kind: event.ItemFound, At: s.clock.Now(), Drop: d})
	}
}

package game

import (
	"context"
	"log"
	"sync"
	"time"

	"scavenge/internal/clock"
)

// Host owns the single timeline: the ticker and every caller of Do take the
// same lock, so the engine only ever sees one writer.
type Host struct {
	mu     sync.Mutex
	engine *Engine
	clock  clock.Clock
	tick   time.Duration
	logger *log.Logger
}

func NewHost(e *Engine, tick time.Duration) *Host {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	return &Host{engine: e, clock: e.clock, tick: tick, logger: e.logger}
}

// Do runs fn with exclusive access to the engine.
func (h *Host) Do(fn func(*Engine) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.engine)
}

// Run advances the engine by measured wall time every tick until ctx is
// cancelled, then writes a final checkpoint.
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	last := h.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return h.Do(func(e *Engine) error {
				return e.Shutdown(context.WithoutCancel(ctx))
			})
		case <-ticker.C:
			now := h.clock.Now()
			dt := now.Sub(last)
			last = now
			if err := h.Do(func(e *Engine) error { return e.Advance(ctx, dt) }); err != nil {
				h.logger.Printf("[game] advance: %v", err)
			}
		}
	}
}

package game

import (
	"bytes"
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scavenge/internal/clock"
	"scavenge/internal/config"
	"scavenge/internal/expedition"
	"scavenge/internal/save"
)

func TestHost_RunAdvancesAndCheckpointsOnCancel(t *testing.T) {
	repo := save.NewMemoryRepo()
	cfg := config.Default()
	cfg.Exploration.TickInterval = 20 * time.Millisecond
	cfg.Storage.Driver = config.StorageMemory
	e, err := New(Options{Config: &cfg, Catalog: testCatalog(), Repo: repo, Clock: clock.Real{}, Logger: log.New(&bytes.Buffer{}, "", 0)})
	require.NoError(t, err)
	require.NoError(t, e.Init(context.Background()))

	h := NewHost(e, 5*time.Millisecond)
	require.NoError(t, h.Do(func(e *Engine) error { return e.Explore(context.Background()) }))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = h.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		var timer time.Duration
		_ = h.Do(func(e *Engine) error {
			timer = e.Status().Timer
			return nil
		})
		return timer >= 50*time.Millisecond
	}, 2*time.Second, 5*time.Millisecond)

	writesBefore := repo.Writes()
	cancel()
	wg.Wait()
	require.NoError(t, runErr)

	assert.Greater(t, repo.Writes(), writesBefore, "shutdown writes a checkpoint")
	assert.Equal(t, string(expedition.Exploring), repo.Snapshot()[save.KeyState])
}

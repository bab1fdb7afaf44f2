package console

import (
	"bytes"
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scavenge/internal/catalog"
	"scavenge/internal/clock"
	"scavenge/internal/config"
	"scavenge/internal/game"
	"scavenge/internal/save"
)

func newConsole(t *testing.T) (*Console, *bytes.Buffer, *game.Host, *clock.Fake) {
	t.Helper()
	cfg := config.Default()
	chance := 1.0
	cfg.Loot.Chance = &chance
	cfg.Loot.RarityWeights = cfg.Loot.RarityWeights[:1]
	cfg.Storage.Driver = config.StorageMemory

	clk := clock.NewFake(time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC))
	e, err := game.New(game.Options{
		Config: &cfg,
		Catalog: catalog.New([]catalog.Definition{
			{ID: "canned_beans", Name: "Canned Beans", Category: catalog.Food, Rarity: catalog.Common, MinQuantity: 2, MaxQuantity: 2, DropChance: 1, RestoreHunger: 15},
		}, nil),
		Repo:   save.NewMemoryRepo(),
		Clock:  clk,
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	require.NoError(t, e.Init(context.Background()))

	host := game.NewHost(e, time.Second)
	var out bytes.Buffer
	c := New(host, &out)
	t.Cleanup(c.Attach())
	return c, &out, host, clk
}

func advance(t *testing.T, host *game.Host, clk *clock.Fake, d time.Duration) {
	t.Helper()
	clk.Advance(d)
	require.NoError(t, host.Do(func(e *game.Engine) error { return e.Advance(context.Background(), d) }))
}

func TestExec_ExpeditionCommands(t *testing.T) {
	ctx := context.Background()
	c, out, host, clk := newConsole(t)

	require.NoError(t, c.Exec(ctx, "explore"))
	assert.Contains(t, out.String(), "[bunker -> exploring]")

	advance(t, host, clk, 10*time.Second)
	assert.Contains(t, out.String(), "found Canned Beans x2")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "inv"))
	assert.Contains(t, out.String(), "Canned Beans")
	assert.Contains(t, out.String(), "x2")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "status"))
	assert.Contains(t, out.String(), "exploring 00:00:10")

	require.NoError(t, c.Exec(ctx, "boost on"))
	out.Reset()
	require.NoError(t, c.Exec(ctx, "status"))
	assert.Contains(t, out.String(), "boosting")

	require.NoError(t, c.Exec(ctx, "return"))
	require.NoError(t, c.Exec(ctx, "skip 1h"))
	assert.Contains(t, out.String(), "stashed 1 stacks and 0 tools")
	assert.Contains(t, out.String(), "[returning -> bunker]")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "stash food"))
	assert.Contains(t, out.String(), "Canned Beans")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "inv"))
	assert.Contains(t, out.String(), "inventory is empty")
}

func TestExec_Errors(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newConsole(t)

	assert.Error(t, c.Exec(ctx, "return"))
	assert.Error(t, c.Exec(ctx, "boost maybe"))
	assert.Error(t, c.Exec(ctx, "skip soon"))
	assert.Error(t, c.Exec(ctx, "dance"))
	assert.ErrorIs(t, c.Exec(ctx, "quit"), ErrQuit)
	assert.NoError(t, c.Exec(ctx, "   "))

	err := c.Exec(ctx, "use canned_bean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean canned_beans")
}

func TestExec_Use(t *testing.T) {
	ctx := context.Background()
	c, out, host, clk := newConsole(t)

	require.NoError(t, c.Exec(ctx, "explore"))
	advance(t, host, clk, 10*time.Second)
	require.NoError(t, c.Exec(ctx, "use canned_beans"))
	assert.Contains(t, out.String(), "used Canned Beans")
}

func TestRun_StopsOnQuit(t *testing.T) {
	c, out, _, _ := newConsole(t)
	in := strings.NewReader("status\nquit\nexplore\n")
	require.NoError(t, c.Run(context.Background(), in))
	assert.Contains(t, out.String(), "in the bunker")
	assert.NotContains(t, out.String(), "exploring")
}

func TestExec_Gear(t *testing.T) {
	ctx := context.Background()
	c, out, host, clk := newConsole(t)

	require.NoError(t, c.Exec(ctx, "explore"))
	advance(t, host, clk, 10*time.Second)
	require.NoError(t, c.Exec(ctx, "return"))
	require.NoError(t, c.Exec(ctx, "skip 1h"))

	out.Reset()
	require.NoError(t, c.Exec(ctx, "loadout"))
	assert.Contains(t, out.String(), "loadout is empty")

	require.NoError(t, c.Exec(ctx, "gear canned_beans 2"))
	assert.Contains(t, out.String(), "packed canned_beans")
	require.NoError(t, c.Exec(ctx, "ungear canned_beans"))

	out.Reset()
	require.NoError(t, c.Exec(ctx, "loadout food"))
	assert.Contains(t, out.String(), "Canned Beans")
	assert.Contains(t, out.String(), "x1")

	assert.Error(t, c.Exec(ctx, "gear canned_beans lots"))
	assert.Error(t, c.Exec(ctx, "gear"))
	assert.ErrorIs(t, c.Exec(ctx, "ungear canned_beans 5"), game.ErrNotHeld)

	require.NoError(t, c.Exec(ctx, "explore"))
	out.Reset()
	require.NoError(t, c.Exec(ctx, "inv"))
	assert.Contains(t, out.String(), "x1")
	assert.Error(t, c.Exec(ctx, "gear canned_beans"))
}

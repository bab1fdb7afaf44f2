package loot

import (
	"math"
	"testing"

	"scavenge/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replays fixed draws; exhausted queues return 0.
type scripted struct {
	floats []float64
	ints   []int
}

func (s *scripted) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scripted) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func def(id string, r catalog.Rarity, chance float64) catalog.Definition {
	return catalog.Definition{ID: id, Rarity: r, MinQuantity: 1, MaxQuantity: 1, DropChance: chance}
}

func TestRoll_SingleCommonItemAlwaysDrops(t *testing.T) {
	cat := catalog.New([]catalog.Definition{def("beans", catalog.Common, 1.0)}, nil)
	table := NewTable(cat, 1.0, []RarityWeight{{Rarity: catalog.Common, Weight: 100}}, NewSource(42))

	for i := 0; i < 1000; i++ {
		drops := table.Roll()
		require.Len(t, drops, 1)
		assert.Equal(t, "beans", drops[0].ItemID())
		assert.Equal(t, 1, drops[0].Quantity)
		assert.False(t, drops[0].IsDurable())
	}
}

func TestRoll_GlobalGate(t *testing.T) {
	cat := catalog.New([]catalog.Definition{def("beans", catalog.Common, 1.0)}, nil)

	t.Run("draw above chance yields nothing", func(t *testing.T) {
		table := NewTable(cat, 0.5, nil, &scripted{floats: []float64{0.51}})
		assert.Empty(t, table.Roll())
	})
	t.Run("draw equal to chance passes", func(t *testing.T) {
		table := NewTable(cat, 0.5, nil, &scripted{floats: []float64{0.5, 0, 0}})
		assert.Len(t, table.Roll(), 1)
	})
}

func TestRoll_NoDropEdgeCases(t *testing.T) {
	t.Run("empty catalog", func(t *testing.T) {
		table := NewTable(catalog.New(nil, nil), 1.0, nil, NewSource(1))
		for i := 0; i < 100; i++ {
			assert.Empty(t, table.Roll())
		}
	})
	t.Run("empty rarity bucket", func(t *testing.T) {
		cat := catalog.New([]catalog.Definition{def("bow", catalog.Legendary, 1.0)}, nil)
		table := NewTable(cat, 1.0, []RarityWeight{{Rarity: catalog.Common, Weight: 100}}, NewSource(1))
		for i := 0; i < 100; i++ {
			assert.Empty(t, table.Roll())
		}
	})
	t.Run("zero item weight", func(t *testing.T) {
		cat := catalog.New([]catalog.Definition{def("dust", catalog.Common, 0)}, nil)
		table := NewTable(cat, 1.0, nil, NewSource(1))
		for i := 0; i < 100; i++ {
			assert.Empty(t, table.Roll())
		}
	})
}

func TestRoll_DurableSplitsIntoInstances(t *testing.T) {
	cat := catalog.New([]catalog.Definition{{
		ID: "knife", Rarity: catalog.Common, Durable: true, MaxDurability: 10,
		MinQuantity: 2, MaxQuantity: 4, DropChance: 1,
	}}, nil)
	// gate, rarity, item; then quantity offset 1 (=3), durabilities 0,9,4
	rng := &scripted{floats: []float64{0, 0.1, 0.5}, ints: []int{1, 0, 9, 4}}
	table := NewTable(cat, 1.0, nil, rng)

	drops := table.Roll()
	require.Len(t, drops, 3)
	for _, d := range drops {
		assert.Equal(t, 1, d.Quantity)
		assert.True(t, d.IsDurable())
	}
	assert.Equal(t, []int{1, 10, 5}, []int{drops[0].Durability, drops[1].Durability, drops[2].Durability})
}

func TestRoll_DurabilityAlwaysInRange(t *testing.T) {
	cat := catalog.New([]catalog.Definition{
		{ID: "axe", Rarity: catalog.Common, Durable: true, MaxDurability: 7, MinQuantity: 1, MaxQuantity: 3, DropChance: 0.5},
		{ID: "pick", Rarity: catalog.Common, Durable: true, MaxDurability: 1, MinQuantity: 1, MaxQuantity: 1, DropChance: 0.5},
	}, nil)
	table := NewTable(cat, 1.0, nil, NewSource(7))

	for i := 0; i < 5000; i++ {
		for _, d := range table.Roll() {
			assert.GreaterOrEqual(t, d.Durability, 1)
			assert.LessOrEqual(t, d.Durability, d.Def.MaxDurability)
		}
	}
}

func TestRoll_StackableQuantityInRange(t *testing.T) {
	cat := catalog.New([]catalog.Definition{{
		ID: "scrap", Rarity: catalog.Common, MinQuantity: 2, MaxQuantity: 5, DropChance: 1,
	}}, nil)
	table := NewTable(cat, 1.0, nil, NewSource(3))

	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		drops := table.Roll()
		require.Len(t, drops, 1)
		assert.Zero(t, drops[0].Durability)
		seen[drops[0].Quantity] = true
	}
	assert.Equal(t, map[int]bool{2: true, 3: true, 4: true, 5: true}, seen)
}

func TestRollRarity_ConvergesToWeights(t *testing.T) {
	table := NewTable(catalog.New(nil, nil), 1.0, DefaultRarityWeights, NewSource(2024))

	const n = 50000
	counts := map[catalog.Rarity]int{}
	for i := 0; i < n; i++ {
		counts[table.RollRarity()]++
	}
	for _, w := range DefaultRarityWeights {
		got := float64(counts[w.Rarity]) / n
		assert.InDelta(t, w.Weight/100, got, 0.01, "rarity %s", w.Rarity)
	}
}

func TestRollRarity_RelativeWeightsAndFallback(t *testing.T) {
	t.Run("weights need not sum to 100", func(t *testing.T) {
		weights := []RarityWeight{{Rarity: catalog.Common, Weight: 1}, {Rarity: catalog.Rare, Weight: 3}}
		table := NewTable(nil, 1.0, weights, NewSource(9))
		rare := 0
		const n = 20000
		for i := 0; i < n; i++ {
			if table.RollRarity() == catalog.Rare {
				rare++
			}
		}
		assert.InDelta(t, 0.75, float64(rare)/n, 0.02)
	})
	t.Run("zero total falls back to lowest tier", func(t *testing.T) {
		weights := []RarityWeight{{Rarity: catalog.Epic, Weight: 0}}
		table := NewTable(nil, 1.0, weights, NewSource(9))
		assert.Equal(t, catalog.Common, table.RollRarity())
	})
	t.Run("zero weight tier is never chosen", func(t *testing.T) {
		weights := []RarityWeight{{Rarity: catalog.Common, Weight: 0}, {Rarity: catalog.Rare, Weight: 5}}
		table := NewTable(nil, 1.0, weights, &scripted{floats: []float64{0}})
		assert.Equal(t, catalog.Rare, table.RollRarity())
	})
	t.Run("walk uses tier order", func(t *testing.T) {
		weights := []RarityWeight{{Rarity: catalog.Legendary, Weight: 50}, {Rarity: catalog.Common, Weight: 50}}
		table := NewTable(nil, 1.0, weights, &scripted{floats: []float64{0.25}})
		assert.Equal(t, catalog.Common, table.RollRarity())
		assert.Equal(t, catalog.Common, table.Weights()[0].Rarity)
	})
}

func TestSelectItem_WeightedWithinRarity(t *testing.T) {
	cat := catalog.New([]catalog.Definition{
		def("a", catalog.Common, 0.1),
		def("b", catalog.Common, 0.3),
	}, nil)
	table := NewTable(cat, 1.0, nil, NewSource(11))

	const n = 20000
	b := 0
	for i := 0; i < n; i++ {
		drops := table.Roll()
		if len(drops) == 1 && drops[0].ItemID() == "b" {
			b++
		}
	}
	// Common is 70% of rolls, and b is 75% of Common.
	assert.InDelta(t, 0.7*0.75, float64(b)/n, 0.02)
}

func TestNewSource_Deterministic(t *testing.T) {
	a, b := NewSource(12345), NewSource(12345)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.IntN(100000), b.IntN(100000))
	}
	assert.False(t, math.IsNaN(a.Float64()))
	assert.NotEqual(t, seedWord(99, "a"), seedWord(99, "b"))
}

// Package loot implements the weighted loot sampler used by exploration.
package loot

import (
	"scavenge/internal/catalog"
)

// Drop is one roll result. Durable drops always carry Quantity 1 and a
// Durability in [1, Def.MaxDurability]; stackable drops carry Durability 0.
type Drop struct {
	Def        *catalog.Definition
	Quantity   int
	Durability int
}

func (d Drop) IsDurable() bool {
	return d.Def != nil && d.Def.Durable
}

// ItemID returns the definition id, or "" for a zero drop.
func (d Drop) ItemID() string {
	if d.Def == nil {
		return ""
	}
	return d.Def.ID
}

// RarityWeight is one row of the rarity table.
type RarityWeight struct {
	Rarity catalog.Rarity `yaml:"rarity" json:"rarity"`
	Weight float64        `yaml:"weight" json:"weight"`
}

// DefaultRarityWeights sums to 100.
var DefaultRarityWeights = []RarityWeight{
	{Rarity: catalog.Common, Weight: 70},
	{Rarity: catalog.Uncommon, Weight: 15},
	{Rarity: catalog.Rare, Weight: 10},
	{Rarity: catalog.Epic, Weight: 4},
	{Rarity: catalog.Legendary, Weight: 1},
}

const DefaultLootChance = 0.75

// Table rolls drops from a catalog.
type Table struct {
	catalog    *catalog.Catalog
	lootChance float64
	weights    []RarityWeight
	rng        Source
}

// NewTable builds a table. Weights are walked in catalog tier order regardless
// of the order they are given in; nil weights select DefaultRarityWeights.
func NewTable(cat *catalog.Catalog, lootChance float64, weights []RarityWeight, rng Source) *Table {
	if weights == nil {
		weights = DefaultRarityWeights
	}
	if rng == nil {
		rng = NewSource(0)
	}
	return &Table{
		catalog:    cat,
		lootChance: lootChance,
		weights:    tierOrder(weights),
		rng:        rng,
	}
}

func tierOrder(weights []RarityWeight) []RarityWeight {
	byTier := make(map[catalog.Rarity]float64, len(weights))
	for _, w := range weights {
		byTier[w.Rarity] += w.Weight
	}
	out := make([]RarityWeight, 0, len(byTier))
	for _, r := range catalog.Rarities {
		if w, ok := byTier[r]; ok {
			out = append(out, RarityWeight{Rarity: r, Weight: w})
		}
	}
	return out
}

// Weights returns the rarity table in walk order.
func (t *Table) Weights() []RarityWeight {
	out := make([]RarityWeight, len(t.weights))
	copy(out, t.weights)
	return out
}

// Roll performs one loot roll. An empty catalog, an empty rarity bucket or a
// zero total weight all yield no drops.
func (t *Table) Roll() []Drop {
	if t.rng.Float64() > t.lootChance {
		return nil
	}

	rarity := t.RollRarity()
	def := t.selectItem(t.catalog.ByRarity(rarity))
	if def == nil {
		return nil
	}

	quantity := t.intRange(def.MinQuantity, def.MaxQuantity)
	if quantity <= 0 {
		return nil
	}

	if !def.Durable {
		return []Drop{{Def: def, Quantity: quantity}}
	}
	drops := make([]Drop, 0, quantity)
	for i := 0; i < quantity; i++ {
		drops = append(drops, Drop{
			Def:        def,
			Quantity:   1,
			Durability: t.intRange(1, def.MaxDurability),
		})
	}
	return drops
}

// RollRarity draws a tier. Weights are relative; when nothing matches (zero
// total, rounding) the lowest tier is returned.
func (t *Table) RollRarity() catalog.Rarity {
	total := 0.0
	for _, w := range t.weights {
		if w.Weight > 0 {
			total += w.Weight
		}
	}
	if total <= 0 {
		return catalog.Common
	}

	r := t.rng.Float64() * total
	cumulative := 0.0
	for _, w := range t.weights {
		if w.Weight <= 0 {
			continue
		}
		cumulative += w.Weight
		if cumulative >= r {
			return w.Rarity
		}
	}
	return catalog.Common
}

func (t *Table) selectItem(candidates []*catalog.Definition) *catalog.Definition {
	total := 0.0
	for _, c := range candidates {
		if c.DropChance > 0 {
			total += c.DropChance
		}
	}
	if total <= 0 {
		return nil
	}

	w := t.rng.Float64() * total
	cumulative := 0.0
	var last *catalog.Definition
	for _, c := range candidates {
		if c.DropChance <= 0 {
			continue
		}
		cumulative += c.DropChance
		last = c
		if cumulative >= w {
			return c
		}
	}
	return last
}

// intRange draws uniformly from [lo, hi]; hi below lo yields lo.
func (t *Table) intRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + t.rng.IntN(hi-lo+1)
}

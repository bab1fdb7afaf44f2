package config

import (
	"fmt"
	"strings"
	"time"

	"scavenge/internal/catalog"
	"scavenge/internal/loot"
)

const defaultMaxCatchUp = 8640

// Default returns the standard balance.
func Default() Config {
	return Config{
		Version: "1",
		Loot: Loot{
			RarityWeights: append([]loot.RarityWeight(nil), loot.DefaultRarityWeights...),
		},
		Exploration: Exploration{TickInterval: 10 * time.Second},
		Return:      Return{Ratio: 1.0},
		Boost: Boost{
			Factor:     4.0,
			StaminaMax: 100,
			DrainRate:  20,
			RegenRate:  10,
		},
		Host:    Host{Tick: 100 * time.Millisecond},
		Storage: Storage{Driver: StorageSQLite, DataDir: "data"},
		Server:  Server{Addr: ":42069"},
	}
}

// Casual drops more often and comes home faster.
func Casual() Config {
	cfg := Default()
	chance := 0.9
	cfg.Loot.Chance = &chance
	cfg.Return.Ratio = 0.5
	cfg.Boost.DrainRate = 10
	cfg.Boost.RegenRate = 20
	return cfg
}

// Hard is stingier with loot and with stamina.
func Hard() Config {
	cfg := Default()
	chance := 0.5
	cfg.Loot.Chance = &chance
	cfg.Loot.RarityWeights = []loot.RarityWeight{
		{Rarity: catalog.Common, Weight: 80},
		{Rarity: catalog.Uncommon, Weight: 12},
		{Rarity: catalog.Rare, Weight: 6},
		{Rarity: catalog.Epic, Weight: 1.5},
		{Rarity: catalog.Legendary, Weight: 0.5},
	}
	cfg.Return.Ratio = 1.5
	cfg.Boost.Factor = 3.0
	cfg.Boost.DrainRate = 30
	cfg.Boost.RegenRate = 5
	return cfg
}

// Preset returns the named balance; empty selects Default.
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default", "normal":
		return Default(), nil
	case "casual":
		return Casual(), nil
	case "hard":
		return Hard(), nil
	}
	return Config{}, fmt.Errorf("unknown difficulty %q", name)
}

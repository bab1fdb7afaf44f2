package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"scavenge/internal/catalog"
	"scavenge/internal/loot"
)

type Config struct {
	Version     string      `yaml:"version" json:"version"`
	Loot        Loot        `yaml:"loot" json:"loot"`
	Exploration Exploration `yaml:"exploration" json:"exploration"`
	Return      Return      `yaml:"return" json:"return"`
	Boost       Boost       `yaml:"boost" json:"boost"`
	Host        Host        `yaml:"host" json:"host"`
	Storage     Storage     `yaml:"storage" json:"storage"`
	Catalog     Catalog     `yaml:"catalog" json:"catalog"`
	Server      Server      `yaml:"server" json:"server"`
}

type Loot struct {
	// Chance is the global gate; nil means the default.
	Chance        *float64            `yaml:"chance" json:"chance,omitempty"`
	RarityWeights []loot.RarityWeight `yaml:"rarity_weights" json:"rarity_weights"`
	// Seed fixes the generator; 0 seeds from the clock.
	Seed int64 `yaml:"seed" json:"seed"`
}

type Exploration struct {
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
	// MaxCatchUpTicks bounds offline replay; nil means the default, 0 disables.
	MaxCatchUpTicks *int `yaml:"max_catch_up_ticks" json:"max_catch_up_ticks,omitempty"`
}

type Return struct {
	Ratio float64 `yaml:"ratio" json:"ratio"`
}

type Boost struct {
	Factor     float64 `yaml:"factor" json:"factor"`
	StaminaMax float64 `yaml:"stamina_max" json:"stamina_max"`
	DrainRate  float64 `yaml:"drain_rate" json:"drain_rate"`
	RegenRate  float64 `yaml:"regen_rate" json:"regen_rate"`
}

type Host struct {
	Tick time.Duration `yaml:"tick" json:"tick"`
}

type Storage struct {
	Driver  string `yaml:"driver" json:"driver"`
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

type Catalog struct {
	// Path to an items file; empty uses the embedded catalog.
	Path string `yaml:"path" json:"path"`
}

type Server struct {
	Addr string `yaml:"addr" json:"addr"`
}

const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

func (c *Config) LootChance() float64 {
	if c.Loot.Chance == nil {
		return loot.DefaultLootChance
	}
	return *c.Loot.Chance
}

func (c *Config) MaxCatchUpTicks() int {
	if c.Exploration.MaxCatchUpTicks == nil {
		return defaultMaxCatchUp
	}
	return *c.Exploration.MaxCatchUpTicks
}

func (c *Config) ApplyDefaults() {
	d := Default()
	if len(c.Loot.RarityWeights) == 0 {
		c.Loot.RarityWeights = d.Loot.RarityWeights
	}
	if c.Exploration.TickInterval == 0 {
		c.Exploration.TickInterval = d.Exploration.TickInterval
	}
	if c.Return.Ratio == 0 {
		c.Return.Ratio = d.Return.Ratio
	}
	if c.Boost.Factor == 0 {
		c.Boost.Factor = d.Boost.Factor
	}
	if c.Boost.StaminaMax == 0 {
		c.Boost.StaminaMax = d.Boost.StaminaMax
	}
	if c.Boost.DrainRate == 0 {
		c.Boost.DrainRate = d.Boost.DrainRate
	}
	if c.Boost.RegenRate == 0 {
		c.Boost.RegenRate = d.Boost.RegenRate
	}
	if c.Host.Tick == 0 {
		c.Host.Tick = d.Host.Tick
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = d.Storage.Driver
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = d.Storage.DataDir
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if ch := c.LootChance(); ch < 0 || ch > 1 {
		return fmt.Errorf("loot.chance must be in [0, 1], got %v", ch)
	}
	seen := make(map[catalog.Rarity]bool, len(c.Loot.RarityWeights))
	for _, w := range c.Loot.RarityWeights {
		if !w.Rarity.Valid() {
			return fmt.Errorf("loot.rarity_weights: invalid rarity %d", int(w.Rarity))
		}
		if w.Weight < 0 {
			return fmt.Errorf("loot.rarity_weights: %s weight must be >= 0, got %v", w.Rarity, w.Weight)
		}
		if seen[w.Rarity] {
			return fmt.Errorf("loot.rarity_weights: %s listed twice", w.Rarity)
		}
		seen[w.Rarity] = true
	}
	if c.Exploration.TickInterval <= 0 {
		return fmt.Errorf("exploration.tick_interval must be > 0, got %s", c.Exploration.TickInterval)
	}
	if c.MaxCatchUpTicks() < 0 {
		return fmt.Errorf("exploration.max_catch_up_ticks must be >= 0, got %d", c.MaxCatchUpTicks())
	}
	if c.Return.Ratio <= 0 {
		return fmt.Errorf("return.ratio must be > 0, got %v", c.Return.Ratio)
	}
	if c.Boost.Factor < 1 {
		return fmt.Errorf("boost.factor must be >= 1, got %v", c.Boost.Factor)
	}
	if c.Boost.StaminaMax <= 0 || c.Boost.DrainRate < 0 || c.Boost.RegenRate < 0 {
		return fmt.Errorf("boost: stamina_max must be > 0 and rates >= 0")
	}
	if c.Host.Tick <= 0 {
		return fmt.Errorf("host.tick must be > 0, got %s", c.Host.Tick)
	}
	switch c.Storage.Driver {
	case StorageSQLite, StorageFile, StorageMemory:
	default:
		return fmt.Errorf("storage.driver must be sqlite, file or memory, got %q", c.Storage.Driver)
	}
	return nil
}

// Load reads a YAML file over the default preset.
func Load(path string) (*Config, error) {
	return LoadOver(Default(), path)
}

// LoadOver reads a YAML file over base; keys absent from the file keep the
// base value.
func LoadOver(base Config, path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := base
	r.Loot.RarityWeights = append([]loot.RarityWeight(nil), base.Loot.RarityWeights...)
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	r.ApplyDefaults()
	return &r, nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from the environment.
type Env struct {
	ConfigPath   string `env:"SCAVENGE_CONFIG"`
	Difficulty   string `env:"SCAVENGE_DIFFICULTY"`
	DataDir      string `env:"SCAVENGE_DATA_DIR"`
	Addr         string `env:"SCAVENGE_ADDR"`
	Storage      string `env:"SCAVENGE_STORAGE"`
	Seed         int64  `env:"SCAVENGE_SEED"`
	OTelEndpoint string `env:"SCAVENGE_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"SCAVENGE_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// FromEnv builds the effective config: the difficulty preset, then the
// config file if one is named, then individual env overrides.
func FromEnv() (*Config, Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return nil, e, err
	}
	cfg, err := e.Resolve()
	return cfg, e, err
}

func (e Env) Resolve() (*Config, error) {
	base, err := Preset(e.Difficulty)
	if err != nil {
		return nil, err
	}
	cfg := &base
	if e.ConfigPath != "" {
		if cfg, err = LoadOver(base, e.ConfigPath); err != nil {
			return nil, err
		}
	}
	if e.DataDir != "" {
		cfg.Storage.DataDir = e.DataDir
	}
	if e.Storage != "" {
		cfg.Storage.Driver = e.Storage
	}
	if e.Addr != "" {
		cfg.Server.Addr = e.Addr
	}
	if e.Seed != 0 {
		cfg.Loot.Seed = e.Seed
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the runtime configuration of the quest server.
type Config struct {
	HTTPAddr        string        `env:"QUEST_HTTP_ADDR" envDefault:":8080"`
	InitialTreasury int64         `env:"QUEST_INITIAL_TREASURY" envDefault:"1000000"`
	AutoSettle      bool          `env:"QUEST_AUTO_SETTLE" envDefault:"true"`
	SettleInterval  time.Duration `env:"QUEST_SETTLE_INTERVAL" envDefault:"1m"`
	LogVerbose      bool          `env:"QUEST_LOG_VERBOSE" envDefault:"true"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.InitialTreasury < 0 {
		return Config{}, fmt.Errorf("QUEST_INITIAL_TREASURY must not be negative, got %d", cfg.InitialTreasury)
	}
	if cfg.AutoSettle && cfg.SettleInterval <= 0 {
		return Config{}, fmt.Errorf("QUEST_SETTLE_INTERVAL must be positive, got %s", cfg.SettleInterval)
	}
	return cfg, nil
}

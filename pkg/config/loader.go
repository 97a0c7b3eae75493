package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	coaDefaults := DefaultCoAConfig()
	if c.CoA.Port == 0 {
		c.CoA.Port = coaDefaults.Port
	}
	if c.CoA.Timeout == 0 {
		c.CoA.Timeout = coaDefaults.Timeout
	}
	if c.CoA.Retry == 0 {
		c.CoA.Retry = coaDefaults.Retry
	}

	cleanupDefaults := DefaultCleanupConfig()
	if c.Cleanup.Interval == 0 {
		c.Cleanup.Interval = cleanupDefaults.Interval
	}
	if c.Cleanup.StaleAfter == 0 {
		c.Cleanup.StaleAfter = cleanupDefaults.StaleAfter
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = ":9812"
	}
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.CoA.Port < 1 || c.CoA.Port > 65535 {
		return fmt.Errorf("coa.port %d out of range", c.CoA.Port)
	}

	if c.Cleanup.StaleAfter.Std() < time.Minute {
		// Below the shortest realistic interim-update interval every open
		// session would be swept as stale.
		return fmt.Errorf("cleanup.stale_after %s below 1m minimum", c.Cleanup.StaleAfter)
	}

	return nil
}

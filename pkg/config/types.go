package config

import (
	"time"

	"github.com/ispkit/radsync/pkg/logger"
)

type Config struct {
	Logging  LoggingConfig  `json:"logging,omitempty" yaml:"logging,omitempty"`
	Database DatabaseConfig `json:"database,omitempty" yaml:"database,omitempty"`
	CoA      CoAConfig      `json:"coa,omitempty" yaml:"coa,omitempty"`
	Cleanup  CleanupConfig  `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	Metrics  MetricsConfig  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

type LoggingConfig struct {
	Level      logger.LogLevel            `json:"level,omitempty" yaml:"level,omitempty"`
	Format     string                     `json:"format,omitempty" yaml:"format,omitempty"`
	Components map[string]logger.LogLevel `json:"components,omitempty" yaml:"components,omitempty"`
}

type DatabaseConfig struct {
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

type CoAConfig struct {
	Port    int      `json:"port,omitempty" yaml:"port,omitempty"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retry   Duration `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// CleanupConfig drives the stale-session sweep. StaleAfter must track the
// interim-update interval the NAS fleet is actually configured with; the
// default tolerates two missed 5-minute updates.
type CleanupConfig struct {
	Interval   Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	StaleAfter Duration `json:"stale_after,omitempty" yaml:"stale_after,omitempty"`
}

type MetricsConfig struct {
	Enabled       bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ListenAddress string `json:"listen_address,omitempty" yaml:"listen_address,omitempty"`
}

func DefaultCoAConfig() CoAConfig {
	return CoAConfig{
		Port:    3799,
		Timeout: Duration(5 * time.Second),
		Retry:   Duration(time.Second),
	}
}

func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Interval:   Duration(5 * time.Minute),
		StaleAfter: Duration(15 * time.Minute),
	}
}

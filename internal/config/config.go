// Package config provides configuration management for cipsd.
package config

import (
	"errors"
	"fmt"
	"time"
)

// FileConfig is the top-level TOML wrapper, kept as a named nested
// table in the teacher's style even though cipsd has only one service
// under it.
type FileConfig struct {
	Cipsd Config `toml:"cipsd"`
}

// Config holds the server configuration.
type Config struct {
	Hostname  string           `toml:"hostname" env:"HOSTNAME"`
	LogLevel  string           `toml:"log_level" env:"LOG_LEVEL"`
	Listeners []ListenerConfig `toml:"listeners"`
	Timeouts  TimeoutsConfig   `toml:"timeouts"`
	Limits    LimitsConfig     `toml:"limits"`
	Metrics   MetricsConfig    `toml:"metrics"`

	// UsersFile is the append-only users.txt path C4 loads/persists to.
	UsersFile string `toml:"users_file" env:"USERS_FILE"`

	// WorkerCount is C7's fixed pool size W (default 4, a compile-time
	// constant in the reference design, exposed here as configurable).
	WorkerCount int `toml:"worker_count" env:"WORKER_COUNT"`
}

// ListenerConfig defines the single listen address (§4.8/§6: one
// listening socket, not a set of named/TLS-moded listeners).
type ListenerConfig struct {
	Address string `toml:"address"`
}

// TimeoutsConfig defines timeout durations. Only a connection timeout
// applies (§5 specifies no per-command timeout).
type TimeoutsConfig struct {
	Connection string `toml:"connection"`
}

// LimitsConfig defines resource limits and the protocol-level
// constants §6 lists as optional compile-time constants.
type LimitsConfig struct {
	MaxConnections     int `toml:"max_connections" env:"MAX_CONNECTIONS"`
	CmdMax             int `toml:"cmd_max" env:"CMD_MAX"`
	CipMax             int `toml:"cip_max" env:"CIP_MAX"`
	OversizedThreshold int `toml:"oversized_threshold" env:"OVERSIZED_THRESHOLD"`
}

// MetricsConfig holds configuration for the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" env:"METRICS_ENABLED"`
	Address string `toml:"address" env:"METRICS_ADDRESS"`
	Path    string `toml:"path" env:"METRICS_PATH"`
}

// Default returns a Config with spec §6/§4.7's default values.
func Default() Config {
	return Config{
		Hostname: "localhost",
		LogLevel: "info",
		Listeners: []ListenerConfig{
			{Address: ":7788"},
		},
		Timeouts: TimeoutsConfig{
			Connection: "10m",
		},
		Limits: LimitsConfig{
			MaxConnections:     100,
			CmdMax:             300,
			CipMax:             280,
			OversizedThreshold: 5,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9101",
			Path:    "/metrics",
		},
		UsersFile:   "./users.txt",
		WorkerCount: 4,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Hostname == "" {
		return errors.New("hostname is required")
	}

	if len(c.Listeners) != 1 {
		return errors.New("exactly one listener is required")
	}
	if c.Listeners[0].Address == "" {
		return errors.New("listener address is required")
	}

	if c.Limits.MaxConnections <= 0 {
		return errors.New("max_connections must be positive")
	}
	if c.Limits.CmdMax <= 0 {
		return errors.New("cmd_max must be positive")
	}
	if c.Limits.CipMax <= 0 {
		return errors.New("cip_max must be positive")
	}
	if c.Limits.OversizedThreshold <= 0 {
		return errors.New("oversized_threshold must be positive")
	}

	if c.WorkerCount <= 0 {
		return errors.New("worker_count must be positive")
	}

	if c.UsersFile == "" {
		return errors.New("users_file is required")
	}

	if c.Timeouts.Connection != "" {
		if _, err := time.ParseDuration(c.Timeouts.Connection); err != nil {
			return fmt.Errorf("invalid connection timeout: %w", err)
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return errors.New("metrics address is required when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			return errors.New("metrics path is required when metrics are enabled")
		}
	}

	return nil
}

// ConnectionTimeout returns the connection timeout as a time.Duration.
// Returns 10 minutes if not configured or invalid.
func (c *TimeoutsConfig) ConnectionTimeout() time.Duration {
	if c.Connection == "" {
		return 10 * time.Minute
	}
	d, err := time.ParseDuration(c.Connection)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

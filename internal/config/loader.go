package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

// Flags holds command-line flag values.
type Flags struct {
	ConfigPath     string
	Hostname       string
	LogLevel       string
	Listen         string
	MaxConnections int
	UsersFile      string
	WorkerCount    int
}

// ParseFlags parses command-line flags and returns a Flags struct.
func ParseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "./cipsd.toml", "Path to configuration file")
	flag.StringVar(&f.Hostname, "hostname", "", "Server hostname")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&f.Listen, "listen", "", "Listen address (replaces the configured listener)")
	flag.IntVar(&f.MaxConnections, "max-connections", 0, "Maximum concurrent connections")
	flag.StringVar(&f.UsersFile, "users-file", "", "Path to the persisted users file")
	flag.IntVar(&f.WorkerCount, "workers", 0, "Worker pool size")

	flag.Parse()
	return f
}

// Load parses a TOML configuration file, overlays it with environment
// variables, and returns the resulting Config. If the file does not
// exist, defaults are used as the base instead.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		var fileConfig FileConfig
		if err := toml.Unmarshal(data, &fileConfig); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
		cfg = mergeConfig(cfg, fileConfig.Cipsd)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CIPS_"}); err != nil {
		return cfg, fmt.Errorf("applying environment overrides: %w", err)
	}

	return cfg, nil
}

// ApplyFlags merges command-line flag values into the config.
// Non-zero/non-empty flag values override config file and environment
// values, making flags the final and highest-precedence layer.
func ApplyFlags(cfg Config, f *Flags) Config {
	if f.Hostname != "" {
		cfg.Hostname = f.Hostname
	}

	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}

	if f.Listen != "" {
		cfg.Listeners = []ListenerConfig{{Address: f.Listen}}
	}

	if f.MaxConnections > 0 {
		cfg.Limits.MaxConnections = f.MaxConnections
	}

	if f.UsersFile != "" {
		cfg.UsersFile = f.UsersFile
	}

	if f.WorkerCount > 0 {
		cfg.WorkerCount = f.WorkerCount
	}

	return cfg
}

// LoadWithFlags loads configuration from the path specified in flags,
// then applies flag overrides.
func LoadWithFlags(f *Flags) (Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	return ApplyFlags(cfg, f), nil
}

// mergeConfig merges non-zero values from src into dst.
func mergeConfig(dst, src Config) Config {
	if src.Hostname != "" {
		dst.Hostname = src.Hostname
	}

	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}

	if len(src.Listeners) > 0 {
		dst.Listeners = src.Listeners
	}

	if src.Timeouts.Connection != "" {
		dst.Timeouts.Connection = src.Timeouts.Connection
	}

	if src.Limits.MaxConnections > 0 {
		dst.Limits.MaxConnections = src.Limits.MaxConnections
	}
	if src.Limits.CmdMax > 0 {
		dst.Limits.CmdMax = src.Limits.CmdMax
	}
	if src.Limits.CipMax > 0 {
		dst.Limits.CipMax = src.Limits.CipMax
	}
	if src.Limits.OversizedThreshold > 0 {
		dst.Limits.OversizedThreshold = src.Limits.OversizedThreshold
	}

	if src.Metrics.Enabled {
		dst.Metrics.Enabled = src.Metrics.Enabled
	}
	if src.Metrics.Address != "" {
		dst.Metrics.Address = src.Metrics.Address
	}
	if src.Metrics.Path != "" {
		dst.Metrics.Path = src.Metrics.Path
	}

	if src.UsersFile != "" {
		dst.UsersFile = src.UsersFile
	}
	if src.WorkerCount > 0 {
		dst.WorkerCount = src.WorkerCount
	}

	return dst
}

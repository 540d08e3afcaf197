// Package config handles perpsim configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// searchPathsFunc is indirected so tests can point it at a temp directory
// without polluting the real search paths.
var searchPathsFunc = DefaultSearchPaths

// DefaultSearchPaths returns the config file search order. An explicit
// path (from -config flag) is checked first by FindConfig. Then:
// ./config.yaml, ~/.config/perpsim/config.yaml, /config/config.yaml,
// /etc/perpsim/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "perpsim", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/perpsim/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise, searches searchPathsFunc() and returns the first that
// exists. Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range searchPathsFunc() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPathsFunc())
}

// Config holds all perpsim configuration: the HTTP command surface, the
// kernel's virtual-time parameters, the default latency model, remote
// fan-out, and where run artifacts are written.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	Kernel   KernelConfig  `yaml:"kernel"`
	Latency  LatencyConfig `yaml:"latency"`
	Fanout   FanoutConfig  `yaml:"fanout"`
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
}

// ListenConfig defines the HTTP command-surface server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// KernelConfig defines the virtual-time scheduling parameters.
type KernelConfig struct {
	// TickNs is the virtual-time step the kernel advances by on every
	// loop iteration.
	TickNs uint64 `yaml:"tick_ns"`
	// MaxTicks bounds how many ticks a run may execute before Run
	// returns, regardless of whether the queue is still non-empty.
	MaxTicks int `yaml:"max_ticks"`
	// RealtimeTickMs, when non-zero, paces each tick to take at least
	// this many wall-clock milliseconds, for runs a human wants to watch
	// live rather than race through.
	RealtimeTickMs uint64 `yaml:"realtime_tick_ms"`
}

// LatencyConfig defines the default LatencyModel's parameters.
type LatencyConfig struct {
	NetworkDelayNs uint64 `yaml:"network_delay_ns"`
	ComputeDelayNs uint64 `yaml:"compute_delay_ns"`
	// JitterNs is the exclusive upper bound of the uniform jitter the
	// JitteredLatency wrapper adds to the network delay, with Seed as its
	// PRNG seed. Zero adds no jitter.
	JitterNs uint64 `yaml:"jitter_ns"`
	Seed     uint64 `yaml:"seed"`
}

// FanoutConfig defines the optional remote WebSocket event fan-out.
type FanoutConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // HTTP path the Hub is mounted on, default "/ws"
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates the
// result. After Load returns successfully, all fields are usable without
// additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${DATA_DIR}). This is a
	// convenience for container deployments; the recommended approach is
	// to put values directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults. Called
// automatically by Load. After this, callers can read any field without
// checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8080
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Kernel.TickNs == 0 {
		c.Kernel.TickNs = 1_000_000 // 1ms of virtual time per tick
	}
	if c.Kernel.MaxTicks == 0 {
		c.Kernel.MaxTicks = 1_000_000
	}
	if c.Latency.ComputeDelayNs == 0 && c.Latency.NetworkDelayNs == 0 {
		c.Latency.NetworkDelayNs = 5_000_000 // 5ms
		c.Latency.ComputeDelayNs = 1_000_000 // 1ms
	}
	if c.Fanout.Enabled && c.Fanout.Path == "" {
		c.Fanout.Path = "/ws"
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range (1-65535)", c.Listen.Port)
	}
	if c.Kernel.TickNs == 0 {
		return fmt.Errorf("kernel.tick_ns must be non-zero")
	}
	if c.Kernel.MaxTicks < 1 {
		return fmt.Errorf("kernel.max_ticks must be at least 1")
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a default configuration suitable for local development.
// All defaults are already applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

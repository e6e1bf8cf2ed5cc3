// Package config loads the coordination pool's YAML configuration file,
// applying the spec's named constants as defaults for any field left at its
// zero value.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/coordpool/pkg/health"
	"github.com/cuemby/coordpool/pkg/log"
	"github.com/cuemby/coordpool/pkg/pool"
	"github.com/cuemby/coordpool/pkg/registry"
)

// Config is the on-disk shape of a coordination pool deployment.
type Config struct {
	Pool struct {
		// Size is the number of workers initialize_pool spawns at startup.
		Size int `yaml:"size"`
		// MaxQueueDepth bounds the task queue. 0 uses MAX_QUEUE_DEPTH.
		MaxQueueDepth int `yaml:"max_queue_depth"`
		// MaxAttempts bounds assignment attempts per task. 0 uses
		// MAX_ATTEMPTS.
		MaxAttempts int `yaml:"max_attempts"`
		// StrictAdmission, if true, is the default Strict value for
		// submissions made through the CLI demo driver.
		StrictAdmission bool `yaml:"strict_admission"`
	} `yaml:"pool"`

	Discovery struct {
		// Enabled wires an HTTP health checker for discovery/migration
		// gating. If false, those task types are never gated.
		Enabled bool `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"discovery"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

// Default returns a Config matching the pool's built-in constants.
func Default() Config {
	var c Config
	c.Pool.Size = registry.DefaultPoolSize
	c.Log.Level = "info"
	return c
}

// Load reads and parses a YAML config file at path, filling any unset field
// with its default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Pool.Size <= 0 {
		cfg.Pool.Size = registry.DefaultPoolSize
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg, nil
}

// InitLogging configures the global logger from this config.
func (c Config) InitLogging() {
	log.Init(log.Config{
		Level:      log.Level(c.Log.Level),
		JSONOutput: c.Log.JSON,
	})
}

// ProbeTimeout is the HTTP checker timeout the CLI wires discovery checks
// with, kept alongside config rather than duplicated at each call site.
const ProbeTimeout = 2 * time.Second

// PoolConfig builds the pool.Config this deployment describes, wiring an
// HTTP discovery checker when Discovery.Enabled names a URL.
func (c Config) PoolConfig() pool.Config {
	cfg := pool.Config{
		MaxQueueDepth: c.Pool.MaxQueueDepth,
		MaxAttempts:   c.Pool.MaxAttempts,
	}
	if c.Discovery.Enabled && c.Discovery.URL != "" {
		cfg.DiscoveryChecker = health.NewHTTPChecker(c.Discovery.URL).WithTimeout(ProbeTimeout)
	}
	return cfg
}

// Package config loads engine configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/providers"
)

// EnvPrefix namespaces the engine's environment variables. Nested keys use
// a double underscore, e.g. RANGER_PROVIDERS__DEFAULT__KIND.
const EnvPrefix = "RANGER_"

type Config struct {
	LogLevel    string `koanf:"log_level"`
	DatabaseURL string `koanf:"database_url"`

	// EventBus selects the transport: "memory" or "kafka".
	EventBus string `koanf:"event_bus"`

	Port          int    `koanf:"port"`
	WorkspaceRoot string `koanf:"workspace_root"`

	MaxIterations int           `koanf:"max_iterations"`
	PhaseTimeout  time.Duration `koanf:"phase_timeout"`

	// StaleAfter is how long a running execution may go without an update
	// before the sweep marks it failed. StaleSweepSchedule is a cron
	// expression.
	StaleAfter         time.Duration `koanf:"stale_after"`
	StaleSweepSchedule string        `koanf:"stale_sweep_schedule"`

	// Providers maps agent roles to backend configs. The "default" role
	// covers unconfigured roles.
	Providers map[string]providers.Config `koanf:"providers"`
}

func Default() *Config {
	return &Config{
		LogLevel:           "info",
		DatabaseURL:        "file://./data",
		EventBus:           "memory",
		Port:               8091,
		MaxIterations:      models.DefaultMaxIterations,
		PhaseTimeout:       20 * time.Minute,
		StaleAfter:         time.Hour,
		StaleSweepSchedule: "*/10 * * * *",
		Providers:          map[string]providers.Config{},
	}
}

// Load reads configuration from path (ignored when empty or missing) and
// applies RANGER_* environment overrides on top.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}

		if err == nil {
			if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for role, providerConfig := range cfg.Providers {
		if providerConfig.Kind != "" && !providerConfig.Kind.Valid() {
			return nil, fmt.Errorf("provider role %q: unknown kind %q", role, providerConfig.Kind)
		}
	}

	return cfg, nil
}

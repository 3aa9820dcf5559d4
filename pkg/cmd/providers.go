package cmd

import (
	"log/slog"

	"github.com/agentrangers/ranger/pkg/providers"
	"github.com/agentrangers/ranger/pkg/providers/anthropic"
	"github.com/agentrangers/ranger/pkg/providers/claudecli"
	"github.com/agentrangers/ranger/pkg/providers/ollama"
	"github.com/agentrangers/ranger/pkg/providers/simulated"
	"github.com/agentrangers/ranger/pkg/ptyexec"
)

// NewProviderRegistry builds the backend registry with all known kinds and
// the configured role mappings.
func NewProviderRegistry(roleConfigs map[string]providers.Config, logger *slog.Logger) *providers.Registry {
	driver := ptyexec.NewUnixDriver(logger)

	registry := providers.NewRegistry(logger)

	mustRegister(registry, providers.KindClaudeCLI,
		func(config providers.Config, l *slog.Logger) (providers.Provider, error) {
			return claudecli.NewProvider(config, driver, l), nil
		})
	mustRegister(registry, providers.KindAnthropic,
		func(config providers.Config, l *slog.Logger) (providers.Provider, error) {
			return anthropic.NewProvider(config, l), nil
		})
	mustRegister(registry, providers.KindOllama,
		func(config providers.Config, l *slog.Logger) (providers.Provider, error) {
			return ollama.NewProvider(config, l), nil
		})
	mustRegister(registry, providers.KindSimulated,
		func(config providers.Config, l *slog.Logger) (providers.Provider, error) {
			return simulated.NewProvider(config, l), nil
		})

	for role, config := range roleConfigs {
		registry.Configure(role, config)
	}

	return registry
}

func mustRegister(registry *providers.Registry, kind providers.Kind, constructor providers.Constructor) {
	if err := registry.Register(kind, constructor); err != nil {
		panic(err)
	}
}

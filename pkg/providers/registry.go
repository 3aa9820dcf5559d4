package providers

import (
	"fmt"
	"log/slog"
	"sync"
)

// Kind identifies a backend implementation. Kinds are a closed set checked
// at registration time, not free-form strings.
type Kind string

const (
	KindClaudeCLI Kind = "claude-cli"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
	KindSimulated Kind = "simulated"
)

func (k Kind) Valid() bool {
	switch k {
	case KindClaudeCLI, KindAnthropic, KindOllama, KindSimulated:
		return true
	default:
		return false
	}
}

// Constructor builds a provider instance from resolved config.
type Constructor func(config Config, logger *slog.Logger) (Provider, error)

// DefaultRole is the role looked up when no role-specific config exists.
const DefaultRole = "default"

// fallbackConfig is used when neither the role nor the default role is
// configured.
var fallbackConfig = Config{Kind: KindClaudeCLI, Model: "sonnet"}

type cacheKey struct {
	kind  Kind
	model string
}

// Registry resolves agent roles to provider instances. Instances are cached
// per (kind, model) so repeated phases reuse backend clients.
type Registry struct {
	logger       *slog.Logger
	constructors map[Kind]Constructor
	roles        map[string]Config

	mu    sync.Mutex
	cache map[cacheKey]Provider
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:       logger.With("module", "providers"),
		constructors: make(map[Kind]Constructor),
		roles:        make(map[string]Config),
		cache:        make(map[cacheKey]Provider),
	}
}

func (r *Registry) Register(kind Kind, constructor Constructor) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	r.constructors[kind] = constructor

	return nil
}

// Configure sets the backend config for an agent role. Use DefaultRole to
// set the fallback for unconfigured roles.
func (r *Registry) Configure(role string, config Config) {
	r.roles[role] = config
}

// ConfigForRole resolves the effective config for a role: role-specific
// config, then the default role, then the built-in claude-cli fallback.
func (r *Registry) ConfigForRole(role string) Config {
	if config, ok := r.roles[role]; ok {
		return config
	}

	if config, ok := r.roles[DefaultRole]; ok {
		return config
	}

	return fallbackConfig
}

// ForRole returns the provider instance for an agent role, constructing and
// caching it on first use.
func (r *Registry) ForRole(role string) (Provider, error) {
	return r.ForConfig(r.ConfigForRole(role))
}

func (r *Registry) ForConfig(config Config) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{kind: config.Kind, model: config.Model}
	if provider, ok := r.cache[key]; ok {
		return provider, nil
	}

	constructor, ok := r.constructors[config.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, config.Kind)
	}

	provider, err := constructor(config, r.logger)
	if err != nil {
		return nil, fmt.Errorf("construct provider %s: %w", config.Kind, err)
	}

	r.cache[key] = provider
	r.logger.Debug("Constructed provider",
		"kind", config.Kind, "model", config.Model)

	return provider, nil
}

// Package orchestrator drives the agent workflow pipeline: it owns the
// execution state machine, runs phases against provider backends and
// reconciles the working tree around development phases.
package orchestrator

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agentrangers/ranger/pkg/eventbus"
	"github.com/agentrangers/ranger/pkg/gitops"
	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/persistence"
	"github.com/agentrangers/ranger/pkg/providers"
	"github.com/agentrangers/ranger/pkg/workspace"
)

// State conflicts are rejected synchronously, before any mutation.
var (
	ErrExecutionNotPending       = errors.New("execution is not pending")
	ErrExecutionTerminal         = errors.New("execution is in a terminal state")
	ErrNotAwaitingClarification  = errors.New("execution is not awaiting clarification")
	ErrNoChangesRequested        = errors.New("execution has no changes-requested verdict")
	ErrExecutionAlreadyRunning   = errors.New("execution is already running")
	ErrWorkflowTypeNotRecognized = errors.New("workflow type not recognized")
)

type Config struct {
	MaxIterations int
	PhaseTimeout  time.Duration
	StaleAfter    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = models.DefaultMaxIterations
	}

	if c.PhaseTimeout <= 0 {
		c.PhaseTimeout = 20 * time.Minute
	}

	if c.StaleAfter <= 0 {
		c.StaleAfter = time.Hour
	}

	return c
}

type Service struct {
	persistence persistence.Persistence
	registry    *providers.Registry
	git         *gitops.Reconciler
	workspaces  *workspace.Resolver
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
	logger      *slog.Logger
	cfg         Config
}

func NewService(
	p persistence.Persistence,
	registry *providers.Registry,
	git *gitops.Reconciler,
	workspaces *workspace.Resolver,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	return &Service{
		persistence: p,
		registry:    registry,
		git:         git,
		workspaces:  workspaces,
		publisher:   publisher,
		validator:   validator.New(),
		logger:      logger.With("module", "orchestrator"),
		cfg:         cfg.withDefaults(),
	}
}

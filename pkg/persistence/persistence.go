// Package persistence provides the data storage abstraction for executions,
// outputs, and board entities.
package persistence

import (
	"context"

	"github.com/agentrangers/ranger/pkg/models"
)

// OutputQuery selects the latest output for a phase. Iteration of 0 means
// any iteration; ties are broken by highest iteration, then most recent
// creation time, so the result is deterministic.
type OutputQuery struct {
	ExecutionID string
	Phase       models.Phase
	Iteration   int
	// CompletedOnly restricts the query to sealed outputs.
	CompletedOnly bool
}

type Persistence interface {
	ExecutionRepository() ExecutionRepository
	OutputRepository() OutputRepository
	TaskRepository() TaskRepository
	BoardRepository() BoardRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByTask(ctx context.Context, taskID string, limit int) ([]*models.Execution, error)
	ListByBoard(ctx context.Context, boardID string, status models.ExecutionStatus, limit int) ([]*models.Execution, error)
	ListByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.Execution, error)
}

type OutputRepository interface {
	Save(ctx context.Context, output *models.Output) error
	GetByID(ctx context.Context, id string) (*models.Output, error)
	// ListByExecution returns outputs ordered by creation time.
	ListByExecution(ctx context.Context, executionID string) ([]*models.Output, error)
	// Latest resolves an OutputQuery, or ErrOutputNotFound.
	Latest(ctx context.Context, q OutputQuery) (*models.Output, error)
}

type TaskRepository interface {
	Save(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
}

type BoardRepository interface {
	Save(ctx context.Context, board *models.Board) error
	GetByID(ctx context.Context, id string) (*models.Board, error)
}

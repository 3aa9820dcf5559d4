package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/persistence"
)

// ExecutionRepository handles execution documents under <root>/executions.
type ExecutionRepository struct {
	root string
	mu   *sync.RWMutex
}

func (r *ExecutionRepository) dir() string {
	return filepath.Join(r.root, "executions")
}

func (r *ExecutionRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := writeDocument(r.path(execution.ID), execution); err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var execution models.Execution
	if err := readDocument(r.path(id), &execution, persistence.ErrExecutionNotFound); err != nil {
		return nil, err
	}

	return &execution, nil
}

func (r *ExecutionRepository) ListByTask(ctx context.Context, taskID string, limit int) ([]*models.Execution, error) {
	all, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.TaskID == taskID {
			matched = append(matched, execution)
		}
	}

	sortExecutionsNewestFirst(matched)

	return truncate(matched, limit), nil
}

func (r *ExecutionRepository) ListByBoard(ctx context.Context, boardID string, status models.ExecutionStatus, limit int) ([]*models.Execution, error) {
	all, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.BoardID != boardID {
			continue
		}

		if status != "" && execution.Status != status {
			continue
		}

		matched = append(matched, execution)
	}

	sortExecutionsNewestFirst(matched)

	return truncate(matched, limit), nil
}

func (r *ExecutionRepository) ListByStatus(_ context.Context, status models.ExecutionStatus) ([]*models.Execution, error) {
	all, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.Status == status {
			matched = append(matched, execution)
		}
	}

	sortExecutionsNewestFirst(matched)

	return matched, nil
}

func (r *ExecutionRepository) loadAll() ([]*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths, err := listDocuments(r.dir())
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0, len(paths))

	for _, path := range paths {
		var execution models.Execution
		if err := readDocument(path, &execution, persistence.ErrExecutionNotFound); err != nil {
			return nil, err
		}

		executions = append(executions, &execution)
	}

	return executions, nil
}

func sortExecutionsNewestFirst(executions []*models.Execution) {
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}

	return items
}

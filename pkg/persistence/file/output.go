package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/persistence"
)

// OutputRepository handles output documents, grouped per execution under
// <root>/outputs/<execution-id>.
type OutputRepository struct {
	root string
	mu   *sync.RWMutex
}

func (r *OutputRepository) dir(executionID string) string {
	return filepath.Join(r.root, "outputs", executionID)
}

func (r *OutputRepository) path(executionID, id string) string {
	return filepath.Join(r.dir(executionID), id+".json")
}

func (r *OutputRepository) Save(_ context.Context, output *models.Output) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.path(output.ExecutionID, output.ID), output)
}

func (r *OutputRepository) GetByID(_ context.Context, id string) (*models.Output, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executionDirs, err := listSubdirectories(filepath.Join(r.root, "outputs"))
	if err != nil {
		return nil, err
	}

	for _, dir := range executionDirs {
		path := filepath.Join(dir, id+".json")

		var output models.Output

		err := readDocument(path, &output, persistence.ErrOutputNotFound)
		if err == nil {
			return &output, nil
		}

		if err != persistence.ErrOutputNotFound {
			return nil, err
		}
	}

	return nil, persistence.ErrOutputNotFound
}

func (r *OutputRepository) ListByExecution(_ context.Context, executionID string) ([]*models.Output, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.loadExecutionOutputs(executionID)
}

// Latest resolves the query deterministically: highest iteration first, then
// most recent creation time.
func (r *OutputRepository) Latest(_ context.Context, q persistence.OutputQuery) (*models.Output, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	outputs, err := r.loadExecutionOutputs(q.ExecutionID)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Output, 0)

	for _, output := range outputs {
		if q.Phase != "" && output.Phase != q.Phase {
			continue
		}

		if q.Iteration > 0 && output.Iteration != q.Iteration {
			continue
		}

		if q.CompletedOnly && output.Status != models.OutputCompleted {
			continue
		}

		matched = append(matched, output)
	}

	if len(matched) == 0 {
		return nil, persistence.ErrOutputNotFound
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Iteration != matched[j].Iteration {
			return matched[i].Iteration > matched[j].Iteration
		}

		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched[0], nil
}

func (r *OutputRepository) loadExecutionOutputs(executionID string) ([]*models.Output, error) {
	paths, err := listDocuments(r.dir(executionID))
	if err != nil {
		return nil, err
	}

	outputs := make([]*models.Output, 0, len(paths))

	for _, path := range paths {
		var output models.Output
		if err := readDocument(path, &output, persistence.ErrOutputNotFound); err != nil {
			return nil, err
		}

		outputs = append(outputs, &output)
	}

	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].CreatedAt.Before(outputs[j].CreatedAt)
	})

	return outputs, nil
}

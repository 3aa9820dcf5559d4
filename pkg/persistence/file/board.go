package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/persistence"
)

// TaskRepository handles task documents under <root>/tasks.
type TaskRepository struct {
	root string
	mu   *sync.RWMutex
}

func (r *TaskRepository) path(id string) string {
	return filepath.Join(r.root, "tasks", id+".json")
}

func (r *TaskRepository) Save(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.path(task.ID), task)
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var task models.Task
	if err := readDocument(r.path(id), &task, persistence.ErrTaskNotFound); err != nil {
		return nil, err
	}

	return &task, nil
}

// BoardRepository handles board documents under <root>/boards.
type BoardRepository struct {
	root string
	mu   *sync.RWMutex
}

func (r *BoardRepository) path(id string) string {
	return filepath.Join(r.root, "boards", id+".json")
}

func (r *BoardRepository) Save(_ context.Context, board *models.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.path(board.ID), board)
}

func (r *BoardRepository) GetByID(_ context.Context, id string) (*models.Board, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var board models.Board
	if err := readDocument(r.path(id), &board, persistence.ErrBoardNotFound); err != nil {
		return nil, err
	}

	return &board, nil
}

// listSubdirectories returns immediate child directories. Missing parents
// yield an empty result.
func listSubdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list directories: %w", err)
	}

	dirs := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(dir, entry.Name()))
		}
	}

	return dirs, nil
}

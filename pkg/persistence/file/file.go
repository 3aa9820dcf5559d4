// Package file provides a file-based persistence implementation. Each entity
// is stored as one JSON document under the root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentrangers/ranger/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root string

	executions *ExecutionRepository
	outputs    *OutputRepository
	tasks      *TaskRepository
	boards     *BoardRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	mu := &sync.RWMutex{}

	return &Persistence{
		root:       cleanRoot,
		executions: &ExecutionRepository{root: cleanRoot, mu: mu},
		outputs:    &OutputRepository{root: cleanRoot, mu: mu},
		tasks:      &TaskRepository{root: cleanRoot, mu: mu},
		boards:     &BoardRepository{root: cleanRoot, mu: mu},
	}
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executions
}

func (fp *Persistence) OutputRepository() persistence.OutputRepository {
	return fp.outputs
}

func (fp *Persistence) TaskRepository() persistence.TaskRepository {
	return fp.tasks
}

func (fp *Persistence) BoardRepository() persistence.BoardRepository {
	return fp.boards
}

// HealthCheck verifies the root directory exists, creating it on first use.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.MkdirAll(fp.root, 0o755)
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// writeDocument persists one entity as pretty-printed JSON. The directory is
// created on demand.
func writeDocument(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// readDocument loads one entity; notFound is returned when the file does not
// exist.
func readDocument(path string, v any, notFound error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound
		}

		return fmt.Errorf("failed to read document: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal document %s: %w", path, err)
	}

	return nil
}

// listDocuments returns all JSON files directly under dir. A missing
// directory is an empty result, not an error.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	paths := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return paths, nil
}

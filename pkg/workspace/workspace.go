// Package workspace resolves the working directory an execution's
// development phase runs in.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type Resolver struct {
	scratchRoot string
	logger      *slog.Logger
}

func NewResolver(scratchRoot string, logger *slog.Logger) *Resolver {
	if scratchRoot == "" {
		scratchRoot = filepath.Join(os.TempDir(), "ranger-workspaces")
	}

	return &Resolver{
		scratchRoot: scratchRoot,
		logger:      logger.With("module", "workspace"),
	}
}

// Resolve picks the effective working directory by priority: the task's
// recorded repository path, then the board's configured directory, then a
// fresh scratch directory for this execution.
func (r *Resolver) Resolve(taskRepositoryPath, boardWorkspaceDir, executionID string) (string, error) {
	if taskRepositoryPath != "" {
		return taskRepositoryPath, nil
	}

	if boardWorkspaceDir != "" {
		return boardWorkspaceDir, nil
	}

	scratch := filepath.Join(r.scratchRoot, executionID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return "", fmt.Errorf("create scratch workspace: %w", err)
	}

	r.logger.Debug("Created scratch workspace",
		"execution_id", executionID, "dir", scratch)

	return scratch, nil
}

package models

import "time"

// Task is the Kanban entity an execution runs against. The orchestrator
// reads it for context building and mirrors a denormalized AgentStatus onto
// it, but does not own it.
type Task struct {
	ID          string   `json:"id"`
	BoardID     string   `json:"board_id" validate:"required"`
	Title       string   `json:"title"    validate:"required,min=3"`
	Description string   `json:"description"`
	Priority    int      `json:"priority"`
	Labels      []string `json:"labels,omitempty"`

	// RepositoryPath points at the working tree the developer agent
	// should operate in. Empty means fall back to the board directory
	// or a scratch workspace.
	RepositoryPath string `json:"repository_path,omitempty"`

	// AgentStatus mirrors the current execution's state for cheap board
	// rendering. Cleared on cancellation.
	AgentStatus        string `json:"agent_status,omitempty"`
	CurrentExecutionID string `json:"current_execution_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Board carries the little board state the engine needs for context
// building and workspace resolution.
type Board struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`

	// WorkspaceDir is the board-level working directory, used when a
	// task has no repository path of its own.
	WorkspaceDir string `json:"workspace_dir,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

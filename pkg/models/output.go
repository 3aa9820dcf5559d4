package models

import (
	"encoding/json"
	"time"
)

// OutputStatus represents the lifecycle state of a single phase record.
type OutputStatus string

const (
	OutputPending   OutputStatus = "pending"
	OutputRunning   OutputStatus = "running"
	OutputCompleted OutputStatus = "completed"
	OutputFailed    OutputStatus = "failed"
)

// FileChange records one path touched by an agent.
type FileChange struct {
	Path   string `json:"path"   validate:"required"`
	Action string `json:"action"` // create, modify, delete
}

// Output is the record of one phase within an execution. It is append-only
// once CompletedAt is set; the orchestrator never mutates a finished output.
type Output struct {
	ID          string `json:"id"`
	ExecutionID string `json:"execution_id" validate:"required"`
	TaskID      string `json:"task_id"      validate:"required"`

	AgentName string       `json:"agent_name"`
	Phase     Phase        `json:"phase"`
	Iteration int          `json:"iteration"`
	Status    OutputStatus `json:"status"`

	// InputContext is the exact payload handed to the backend, kept
	// immutable for reproducibility and audit.
	InputContext map[string]any `json:"input_context"`

	OutputContent string `json:"output_content,omitempty"`

	// OutputStructured holds the phase result as a generic document.
	// Use the typed accessors in results.go at the application boundary.
	OutputStructured json.RawMessage `json:"output_structured,omitempty"`

	FilesCreated []FileChange `json:"files_created,omitempty"`
	TokensUsed   int          `json:"tokens_used,omitempty"`
	DurationMs   int64        `json:"duration_ms,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Finished reports whether the output has been sealed.
func (o *Output) Finished() bool {
	return o.CompletedAt != nil
}

// Package models defines the core domain models for agent workflow execution.
package models

import "time"

// WorkflowType selects which phases an execution runs.
type WorkflowType string

const (
	WorkflowDevelopment      WorkflowType = "development"       // architecture -> development -> review
	WorkflowQuickDevelopment WorkflowType = "quick_development" // development -> review
	WorkflowArchitectureOnly WorkflowType = "architecture_only" // architecture
	WorkflowReviewOnly       WorkflowType = "review_only"       // review
)

// ExecutionStatus represents the lifecycle state of an execution.
type ExecutionStatus string

const (
	ExecutionPending               ExecutionStatus = "pending"
	ExecutionRunning               ExecutionStatus = "running"
	ExecutionCompleted             ExecutionStatus = "completed"
	ExecutionFailed                ExecutionStatus = "failed"
	ExecutionCancelled             ExecutionStatus = "cancelled"
	ExecutionAwaitingClarification ExecutionStatus = "awaiting_clarification"
)

// Terminal reports whether the status is final. Terminal executions are
// immutable except for read access.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

// Phase is one stage of the agent pipeline.
type Phase string

const (
	PhaseArchitecture Phase = "architecture"
	PhaseDevelopment  Phase = "development"
	PhaseReview       Phase = "review"
)

// DefaultMaxIterations bounds the development/review feedback loop.
const DefaultMaxIterations = 3

// Execution is one attempt to run the agent pipeline on a task.
type Execution struct {
	ID           string          `json:"id"`
	TaskID       string          `json:"task_id"      validate:"required"`
	BoardID      string          `json:"board_id"     validate:"required"`
	WorkflowType WorkflowType    `json:"workflow_type" validate:"required"`
	Status       ExecutionStatus `json:"status"`
	CurrentPhase Phase           `json:"current_phase,omitempty"`

	// Iteration counts passes through the development/review feedback
	// cycle, starting at 1 and never exceeding MaxIterations.
	Iteration     int `json:"iteration"`
	MaxIterations int `json:"max_iterations"`

	// Context is merged into every phase's input. It may carry a
	// reference to a previously generated plan, clarification answers,
	// or a target repository hint.
	Context map[string]any `json:"context,omitempty"`

	ClarificationQuestions *ClarificationRequest `json:"clarification_questions,omitempty"`
	ClarificationAnswers   map[string]string     `json:"clarification_answers,omitempty"`

	ResultSummary *ResultSummary `json:"result_summary,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ResultSummary aggregates a completed execution's outputs.
//
// ReviewStatus must be inspected separately from the execution status: an
// execution completes even when the reviewer never approved within the
// iteration budget.
type ResultSummary struct {
	PhasesCompleted int          `json:"phases_completed"`
	Iterations      int          `json:"iterations"`
	TotalTokens     int          `json:"total_tokens"`
	TotalDurationMs int64        `json:"total_duration_ms"`
	FilesAffected   []FileChange `json:"files_affected"`
	ReviewStatus    ReviewStatus `json:"review_status,omitempty"`
}

// WorkflowPhases returns the static phase list for a workflow type. Unknown
// types get the quick workflow.
func WorkflowPhases(wt WorkflowType) []Phase {
	switch wt {
	case WorkflowDevelopment:
		return []Phase{PhaseArchitecture, PhaseDevelopment, PhaseReview}
	case WorkflowQuickDevelopment:
		return []Phase{PhaseDevelopment, PhaseReview}
	case WorkflowArchitectureOnly:
		return []Phase{PhaseArchitecture}
	case WorkflowReviewOnly:
		return []Phase{PhaseReview}
	default:
		return []Phase{PhaseDevelopment, PhaseReview}
	}
}

// AgentForPhase maps a phase to the agent persona that runs it.
func AgentForPhase(phase Phase) string {
	switch phase {
	case PhaseArchitecture:
		return "software-architect"
	case PhaseDevelopment:
		return "software-developer"
	case PhaseReview:
		return "code-reviewer"
	default:
		return "software-developer"
	}
}

// CoordinatorActor is the actor recorded on execution-level activity events.
const CoordinatorActor = "queen-coordinator"

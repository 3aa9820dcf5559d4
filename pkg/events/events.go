// Package events defines event types and structures for execution lifecycle
// and progress notifications.
package events

import (
	"time"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topics.
const ActivityTopic = "ranger.activities" // Durable audit records
const ProgressTopic = "ranger.progress"   // Live milestones and phase notices

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Phase events.
	PhaseStartedEvent   EventType = "execution.phase.started"
	PhaseCompletedEvent EventType = "execution.phase.completed"
	PhaseFailedEvent    EventType = "execution.phase.failed"

	// Feedback loop events.
	IterationIncrementedEvent EventType = "execution.iteration.incremented"

	// Audit and live progress events.
	ActivityLoggedEvent   EventType = "activity.logged"
	MilestoneEmittedEvent EventType = "progress.milestone"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TaskID    string         `json:"task_id"`
	BoardID   string         `json:"board_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID  string              `json:"execution_id"`
	WorkflowType models.WorkflowType `json:"workflow_type"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string                `json:"execution_id"`
	Iterations  int                   `json:"iterations"`
	Summary     *models.ResultSummary `json:"summary,omitempty"`
	DurationMs  int64                 `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type PhaseStarted struct {
	BaseEvent

	ExecutionID string       `json:"execution_id"`
	OutputID    string       `json:"output_id"`
	Phase       models.Phase `json:"phase"`
	Agent       string       `json:"agent"`
	Iteration   int          `json:"iteration"`
}

func (e PhaseStarted) GetType() EventType {
	return PhaseStartedEvent
}

type PhaseCompleted struct {
	BaseEvent

	ExecutionID string       `json:"execution_id"`
	OutputID    string       `json:"output_id"`
	Phase       models.Phase `json:"phase"`
	Agent       string       `json:"agent"`
	Iteration   int          `json:"iteration"`
	DurationMs  int64        `json:"duration_ms"`
}

func (e PhaseCompleted) GetType() EventType {
	return PhaseCompletedEvent
}

type PhaseFailed struct {
	BaseEvent

	ExecutionID string       `json:"execution_id"`
	OutputID    string       `json:"output_id"`
	Phase       models.Phase `json:"phase"`
	Error       string       `json:"error"`
}

func (e PhaseFailed) GetType() EventType {
	return PhaseFailedEvent
}

type IterationIncremented struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Iteration   int    `json:"iteration"`
	// Verdict is the review status that triggered the new iteration.
	Verdict models.ReviewStatus `json:"verdict"`
}

func (e IterationIncremented) GetType() EventType {
	return IterationIncrementedEvent
}

// ActivityLogged is the audit record persisted by the external activity log.
type ActivityLogged struct {
	BaseEvent

	ActivityType string `json:"activity_type"`
	Actor        string `json:"actor"`
}

func (e ActivityLogged) GetType() EventType {
	return ActivityLoggedEvent
}

// MilestoneEmitted is a coarse, rate-limited progress label derived from
// raw subprocess output, published for real-time observers.
type MilestoneEmitted struct {
	BaseEvent

	ExecutionID string       `json:"execution_id"`
	Phase       models.Phase `json:"phase,omitempty"`
	Milestone   string       `json:"milestone"`
}

func (e MilestoneEmitted) GetType() EventType {
	return MilestoneEmittedEvent
}

func NewBaseEvent(eventType EventType, taskID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
		Metadata:  make(map[string]any),
	}
}

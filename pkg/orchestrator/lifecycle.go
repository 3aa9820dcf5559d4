package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentrangers/ranger/pkg/eventbus"
	"github.com/agentrangers/ranger/pkg/events"
	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/persistence"
)

// CreateExecution records a new pending execution for a task. It does not
// run anything.
func (s *Service) CreateExecution(ctx context.Context, taskID, boardID string, workflowType models.WorkflowType, execCtx map[string]any) (*models.Execution, error) {
	switch workflowType {
	case models.WorkflowDevelopment, models.WorkflowQuickDevelopment,
		models.WorkflowArchitectureOnly, models.WorkflowReviewOnly:
	default:
		return nil, fmt.Errorf("%w: %q", ErrWorkflowTypeNotRecognized, workflowType)
	}

	task, err := s.persistence.TaskRepository().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	execution := &models.Execution{
		ID:            uuid.New().String(),
		TaskID:        task.ID,
		BoardID:       boardID,
		WorkflowType:  workflowType,
		Status:        models.ExecutionPending,
		Iteration:     1,
		MaxIterations: s.cfg.MaxIterations,
		Context:       execCtx,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.validator.Struct(execution); err != nil {
		return nil, fmt.Errorf("invalid execution: %w", err)
	}

	if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return nil, err
	}

	s.logger.Info("Created execution",
		"execution_id", execution.ID, "task_id", taskID,
		"workflow_type", workflowType)

	return execution, nil
}

// StartExecution transitions a pending execution to running and runs the
// workflow to completion. Callers wanting asynchrony run it on their own
// goroutine.
func (s *Service) StartExecution(ctx context.Context, executionID string) error {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return err
	}

	switch execution.Status {
	case models.ExecutionPending:
	case models.ExecutionRunning:
		return ErrExecutionAlreadyRunning
	default:
		return fmt.Errorf("%w: status %s", ErrExecutionNotPending, execution.Status)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionRunning
	execution.StartedAt = &now
	execution.UpdatedAt = now

	if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return err
	}

	s.mirrorTaskStatus(ctx, execution, "running")

	started := events.ExecutionStarted{
		BaseEvent:    s.baseEvent(events.ExecutionStartedEvent, execution),
		ExecutionID:  execution.ID,
		WorkflowType: execution.WorkflowType,
	}
	s.publish(ctx, execution.ID, started)
	s.activity(ctx, execution, "execution_started")

	return s.runWorkflow(ctx, execution)
}

// CancelExecution requests cooperative cancellation. Only non-terminal
// executions can be cancelled; terminal ones are rejected without mutation.
func (s *Service) CancelExecution(ctx context.Context, executionID, cancelledBy string) error {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return fmt.Errorf("%w: status %s", ErrExecutionTerminal, execution.Status)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionCancelled
	execution.CompletedAt = &now
	execution.UpdatedAt = now

	if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return err
	}

	s.clearTaskStatus(ctx, execution)

	cancelled := events.ExecutionCancelled{
		BaseEvent:   s.baseEvent(events.ExecutionCancelledEvent, execution),
		ExecutionID: execution.ID,
		CancelledBy: cancelledBy,
	}
	s.publish(ctx, execution.ID, cancelled)
	s.activity(ctx, execution, "execution_cancelled")

	s.logger.Info("Cancelled execution",
		"execution_id", executionID, "cancelled_by", cancelledBy)

	return nil
}

// ResumeWithClarification creates a new pending execution carrying the
// caller's answers. The blocked execution stays in awaiting_clarification
// as the record of the question round.
func (s *Service) ResumeWithClarification(ctx context.Context, executionID string, answers map[string]string) (*models.Execution, error) {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != models.ExecutionAwaitingClarification {
		return nil, fmt.Errorf("%w: status %s", ErrNotAwaitingClarification, execution.Status)
	}

	resumedCtx := make(map[string]any, len(execution.Context)+1)
	for key, value := range execution.Context {
		resumedCtx[key] = value
	}

	resumedCtx["resumed_from"] = execution.ID

	resumed, err := s.CreateExecution(ctx, execution.TaskID, execution.BoardID,
		execution.WorkflowType, resumedCtx)
	if err != nil {
		return nil, err
	}

	resumed.ClarificationAnswers = answers
	resumed.UpdatedAt = time.Now().UTC()

	if err := s.persistence.ExecutionRepository().Save(ctx, resumed); err != nil {
		return nil, err
	}

	s.logger.Info("Resumed execution with clarification",
		"execution_id", executionID, "resumed_execution_id", resumed.ID,
		"answers", len(answers))

	return resumed, nil
}

// HandleReviewFeedback creates a follow-up quick_development execution for
// a completed execution that exhausted its iterations with an unresolved
// changes-requested verdict.
func (s *Service) HandleReviewFeedback(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != models.ExecutionCompleted ||
		execution.ResultSummary == nil ||
		execution.ResultSummary.ReviewStatus != models.ReviewChangesRequested {
		return nil, ErrNoChangesRequested
	}

	followupCtx := map[string]any{"previous_execution": execution.ID}

	// Carry the unresolved review into the follow-up so the developer agent
	// sees what it is fixing.
	latest, err := s.persistence.OutputRepository().Latest(ctx, persistence.OutputQuery{
		ExecutionID:   execution.ID,
		Phase:         models.PhaseReview,
		CompletedOnly: true,
	})
	if err == nil && len(latest.OutputStructured) > 0 {
		var feedback map[string]any
		if json.Unmarshal(latest.OutputStructured, &feedback) == nil {
			followupCtx["review_feedback"] = feedback
		}
	}

	return s.CreateExecution(ctx, execution.TaskID, execution.BoardID,
		models.WorkflowQuickDevelopment, followupCtx)
}

// StatusSnapshot is the polling view of an execution.
type StatusSnapshot struct {
	ExecutionID  string                 `json:"execution_id"`
	Status       models.ExecutionStatus `json:"status"`
	CurrentPhase models.Phase           `json:"current_phase,omitempty"`
	Iteration    int                    `json:"iteration"`
	Outputs      []OutputSummary        `json:"outputs"`
}

type OutputSummary struct {
	Agent     string              `json:"agent"`
	Phase     models.Phase        `json:"phase"`
	Iteration int                 `json:"iteration"`
	Status    models.OutputStatus `json:"status"`
}

func (s *Service) ExecutionStatus(ctx context.Context, executionID string) (*StatusSnapshot, error) {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	outputs, err := s.persistence.OutputRepository().ListByExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	snapshot := &StatusSnapshot{
		ExecutionID:  execution.ID,
		Status:       execution.Status,
		CurrentPhase: execution.CurrentPhase,
		Iteration:    execution.Iteration,
		Outputs:      make([]OutputSummary, 0, len(outputs)),
	}

	for _, output := range outputs {
		snapshot.Outputs = append(snapshot.Outputs, OutputSummary{
			Agent:     output.AgentName,
			Phase:     output.Phase,
			Iteration: output.Iteration,
			Status:    output.Status,
		})
	}

	return snapshot, nil
}

func (s *Service) GetExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	return s.persistence.ExecutionRepository().GetByID(ctx, executionID)
}

func (s *Service) TaskExecutions(ctx context.Context, taskID string, limit int) ([]*models.Execution, error) {
	return s.persistence.ExecutionRepository().ListByTask(ctx, taskID, limit)
}

func (s *Service) BoardExecutions(ctx context.Context, boardID string, status models.ExecutionStatus, limit int) ([]*models.Execution, error) {
	return s.persistence.ExecutionRepository().ListByBoard(ctx, boardID, status, limit)
}

func (s *Service) mirrorTaskStatus(ctx context.Context, execution *models.Execution, status string) {
	task, err := s.persistence.TaskRepository().GetByID(ctx, execution.TaskID)
	if err != nil {
		s.logger.Warn("Could not load task for status mirror",
			"task_id", execution.TaskID, "error", err)

		return
	}

	task.AgentStatus = status
	task.CurrentExecutionID = execution.ID
	task.UpdatedAt = time.Now().UTC()

	if err := s.persistence.TaskRepository().Save(ctx, task); err != nil {
		s.logger.Warn("Could not mirror task status",
			"task_id", task.ID, "error", err)
	}
}

func (s *Service) clearTaskStatus(ctx context.Context, execution *models.Execution) {
	task, err := s.persistence.TaskRepository().GetByID(ctx, execution.TaskID)
	if err != nil {
		return
	}

	if task.CurrentExecutionID != execution.ID {
		return
	}

	task.AgentStatus = ""
	task.CurrentExecutionID = ""
	task.UpdatedAt = time.Now().UTC()

	if err := s.persistence.TaskRepository().Save(ctx, task); err != nil {
		s.logger.Warn("Could not clear task status",
			"task_id", task.ID, "error", err)
	}
}

func (s *Service) baseEvent(eventType events.EventType, execution *models.Execution) events.BaseEvent {
	base := events.NewBaseEvent(eventType, execution.TaskID)
	base.BoardID = execution.BoardID

	return base
}

func (s *Service) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Warn("Could not publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func (s *Service) activity(ctx context.Context, execution *models.Execution, activityType string) {
	logged := events.ActivityLogged{
		BaseEvent:    s.baseEvent(events.ActivityLoggedEvent, execution),
		ActivityType: activityType,
		Actor:        models.CoordinatorActor,
	}
	logged.Metadata["execution_id"] = execution.ID

	s.publish(ctx, execution.ID, logged)
}

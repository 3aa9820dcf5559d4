package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentrangers/ranger/pkg/agentctx"
	"github.com/agentrangers/ranger/pkg/events"
	"github.com/agentrangers/ranger/pkg/gitops"
	"github.com/agentrangers/ranger/pkg/log"
	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/providers"
)

// phaseOutcome carries the control-flow relevant part of a finished phase.
type phaseOutcome struct {
	clarification *models.ClarificationRequest
	reviewStatus  models.ReviewStatus
}

func (s *Service) runWorkflow(ctx context.Context, execution *models.Execution) error {
	logger := log.WithExecution(s.logger, execution.ID, execution.TaskID)

	task, err := s.persistence.TaskRepository().GetByID(ctx, execution.TaskID)
	if err != nil {
		return s.failExecution(ctx, execution, fmt.Errorf("load task: %w", err))
	}

	var boardDir string

	board, err := s.persistence.BoardRepository().GetByID(ctx, execution.BoardID)
	if err == nil {
		boardDir = board.WorkspaceDir
	}

	workdir, err := s.workspaces.Resolve(task.RepositoryPath, boardDir, execution.ID)
	if err != nil {
		return s.failExecution(ctx, execution, fmt.Errorf("resolve workspace: %w", err))
	}

	phases := models.WorkflowPhases(execution.WorkflowType)

	logger.Info("Running workflow",
		"workflow_type", execution.WorkflowType, "phases", len(phases))

	var lastVerdict models.ReviewStatus

	for _, phase := range phases {
		if s.haltedExternally(ctx, execution) {
			return nil
		}

		outcome, err := s.runPhase(ctx, task, execution, phase, workdir)
		if err != nil {
			return s.failExecution(ctx, execution, err)
		}

		if outcome.clarification != nil {
			return s.awaitClarification(ctx, execution, outcome.clarification)
		}

		if phase == models.PhaseReview {
			lastVerdict = outcome.reviewStatus
		}
	}

	// Feedback loop: a changes-requested verdict re-runs development and
	// review together, until approval or the iteration budget runs out.
	for s.loopContinues(execution, phases, lastVerdict) {
		if s.haltedExternally(ctx, execution) {
			return nil
		}

		execution.Iteration++
		execution.UpdatedAt = time.Now().UTC()

		if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
			return s.failExecution(ctx, execution, err)
		}

		incremented := events.IterationIncremented{
			BaseEvent:   s.baseEvent(events.IterationIncrementedEvent, execution),
			ExecutionID: execution.ID,
			Iteration:   execution.Iteration,
			Verdict:     lastVerdict,
		}
		s.publish(ctx, execution.ID, incremented)
		s.activity(ctx, execution, "iteration_incremented")

		logger.Info("Starting feedback iteration",
			"iteration", execution.Iteration, "verdict", lastVerdict)

		for _, phase := range []models.Phase{models.PhaseDevelopment, models.PhaseReview} {
			if s.haltedExternally(ctx, execution) {
				return nil
			}

			outcome, err := s.runPhase(ctx, task, execution, phase, workdir)
			if err != nil {
				return s.failExecution(ctx, execution, err)
			}

			if phase == models.PhaseReview {
				lastVerdict = outcome.reviewStatus
			}
		}
	}

	return s.completeExecution(ctx, execution, lastVerdict)
}

// haltedExternally reloads the persisted execution and reports whether
// another actor (cancel, stale sweep) moved it to a terminal state while the
// run loop held a stale copy. The persisted state wins; the loop must stop
// without writing over it.
func (s *Service) haltedExternally(ctx context.Context, execution *models.Execution) bool {
	persisted, err := s.persistence.ExecutionRepository().GetByID(ctx, execution.ID)
	if err != nil || !persisted.Status.Terminal() {
		return false
	}

	*execution = *persisted

	s.logger.Info("Workflow halted externally",
		"execution_id", execution.ID, "status", execution.Status)

	return true
}

func (s *Service) loopContinues(execution *models.Execution, phases []models.Phase, verdict models.ReviewStatus) bool {
	if verdict != models.ReviewChangesRequested {
		return false
	}

	if execution.Iteration >= execution.MaxIterations {
		return false
	}

	hasDevelopment := false
	hasReview := false

	for _, phase := range phases {
		switch phase {
		case models.PhaseDevelopment:
			hasDevelopment = true
		case models.PhaseReview:
			hasReview = true
		}
	}

	return hasDevelopment && hasReview
}

func (s *Service) runPhase(ctx context.Context, task *models.Task, execution *models.Execution, phase models.Phase, workdir string) (*phaseOutcome, error) {
	history, err := s.persistence.OutputRepository().ListByExecution(ctx, execution.ID)
	if err != nil {
		return nil, err
	}

	inputCtx := agentctx.Build(task, execution, phase, history)

	now := time.Now().UTC()
	output := &models.Output{
		ID:           uuid.New().String(),
		ExecutionID:  execution.ID,
		TaskID:       execution.TaskID,
		AgentName:    models.AgentForPhase(phase),
		Phase:        phase,
		Iteration:    execution.Iteration,
		Status:       models.OutputRunning,
		InputContext: inputCtx,
		StartedAt:    &now,
		CreatedAt:    now,
	}

	if err := s.persistence.OutputRepository().Save(ctx, output); err != nil {
		return nil, err
	}

	execution.CurrentPhase = phase
	execution.UpdatedAt = now

	if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return nil, err
	}

	s.publish(ctx, execution.ID, events.PhaseStarted{
		BaseEvent:   s.baseEvent(events.PhaseStartedEvent, execution),
		ExecutionID: execution.ID,
		OutputID:    output.ID,
		Phase:       phase,
		Agent:       output.AgentName,
		Iteration:   execution.Iteration,
	})

	outcome, runErr := s.executePhase(ctx, execution, phase, output, inputCtx, workdir)
	if runErr != nil {
		s.sealOutput(ctx, output, models.OutputFailed, runErr.Error())

		s.publish(ctx, execution.ID, events.PhaseFailed{
			BaseEvent:   s.baseEvent(events.PhaseFailedEvent, execution),
			ExecutionID: execution.ID,
			OutputID:    output.ID,
			Phase:       phase,
			Error:       runErr.Error(),
		})

		return nil, fmt.Errorf("phase %s: %w", phase, runErr)
	}

	s.sealOutput(ctx, output, models.OutputCompleted, "")

	s.publish(ctx, execution.ID, events.PhaseCompleted{
		BaseEvent:   s.baseEvent(events.PhaseCompletedEvent, execution),
		ExecutionID: execution.ID,
		OutputID:    output.ID,
		Phase:       phase,
		Agent:       output.AgentName,
		Iteration:   execution.Iteration,
		DurationMs:  output.DurationMs,
	})

	return outcome, nil
}

// executePhase runs the backend call and fills output in place. Backend
// unavailability falls back to the simulated provider; timeouts and other
// hard failures propagate as phase failures.
func (s *Service) executePhase(ctx context.Context, execution *models.Execution, phase models.Phase, output *models.Output, inputCtx map[string]any, workdir string) (*phaseOutcome, error) {
	system := agentctx.SystemPrompt(phase)
	messages := []providers.Message{
		{Role: providers.RoleUser, Content: agentctx.UserPrompt(inputCtx)},
	}

	phaseCtx, cancel := context.WithTimeout(ctx, s.cfg.PhaseTimeout)
	defer cancel()

	var (
		pre        *gitops.Snapshot
		gitOutcome *models.GitOutcome
	)

	if phase == models.PhaseDevelopment {
		phaseCtx = providers.WithMilestones(phaseCtx, func(label string) {
			s.publish(ctx, execution.ID, events.MilestoneEmitted{
				BaseEvent:   s.baseEvent(events.MilestoneEmittedEvent, execution),
				ExecutionID: execution.ID,
				Phase:       phase,
				Milestone:   label,
			})
		})

		pre, gitOutcome = s.prepareWorkdir(execution, workdir)
	}

	response, err := s.complete(phaseCtx, output.AgentName, system, messages)
	if err != nil {
		return nil, err
	}

	output.OutputContent = response.Content
	output.TokensUsed = response.TokensUsed

	switch phase {
	case models.PhaseArchitecture:
		return s.finishArchitecture(output, response)
	case models.PhaseDevelopment:
		return s.finishDevelopment(execution, output, response, workdir, pre, gitOutcome)
	default:
		return s.finishReview(output, response)
	}
}

// complete calls the role's backend, falling back to the simulated provider
// when the backend is unhealthy or unavailable.
func (s *Service) complete(ctx context.Context, role, system string, messages []providers.Message) (*providers.CompletionResponse, error) {
	provider, err := s.registry.ForRole(role)
	if err != nil {
		s.logger.Warn("No provider for role, using simulated backend",
			"role", role, "error", err)

		return s.simulate(ctx, system, messages)
	}

	if health := provider.HealthCheck(ctx); !health.OK {
		s.logger.Warn("Backend unhealthy, using simulated backend",
			"role", role, "kind", provider.Kind(), "details", health.Details)

		return s.simulate(ctx, system, messages)
	}

	response, err := provider.Complete(ctx, system, messages)
	if err != nil {
		if errors.Is(err, providers.ErrBackendUnavailable) ||
			errors.Is(err, providers.ErrEmptyResponse) {
			s.logger.Warn("Backend call failed, using simulated backend",
				"role", role, "error", err)

			return s.simulate(ctx, system, messages)
		}

		return nil, err
	}

	return response, nil
}

func (s *Service) simulate(ctx context.Context, system string, messages []providers.Message) (*providers.CompletionResponse, error) {
	provider, err := s.registry.ForConfig(providers.Config{Kind: providers.KindSimulated})
	if err != nil {
		return nil, err
	}

	return provider.Complete(ctx, system, messages)
}

func (s *Service) sealOutput(ctx context.Context, output *models.Output, status models.OutputStatus, errorMessage string) {
	now := time.Now().UTC()
	output.Status = status
	output.CompletedAt = &now
	output.ErrorMessage = errorMessage

	if output.StartedAt != nil {
		output.DurationMs = now.Sub(*output.StartedAt).Milliseconds()
	}

	if err := s.persistence.OutputRepository().Save(ctx, output); err != nil {
		s.logger.Error("Could not seal output",
			"output_id", output.ID, "error", err)
	}
}

func (s *Service) awaitClarification(ctx context.Context, execution *models.Execution, clarification *models.ClarificationRequest) error {
	execution.Status = models.ExecutionAwaitingClarification
	execution.ClarificationQuestions = clarification
	execution.UpdatedAt = time.Now().UTC()

	if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return err
	}

	s.mirrorTaskStatus(ctx, execution, "awaiting_clarification")
	s.activity(ctx, execution, "clarification_requested")

	s.logger.Info("Execution awaiting clarification",
		"execution_id", execution.ID, "questions", len(clarification.Questions))

	return nil
}

func (s *Service) completeExecution(ctx context.Context, execution *models.Execution, verdict models.ReviewStatus) error {
	if s.haltedExternally(ctx, execution) {
		return nil
	}

	summary, err := s.buildSummary(ctx, execution, verdict)
	if err != nil {
		return s.failExecution(ctx, execution, err)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionCompleted
	execution.ResultSummary = summary
	execution.CompletedAt = &now
	execution.UpdatedAt = now

	if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return err
	}

	s.mirrorTaskStatus(ctx, execution, "completed")

	completed := events.ExecutionCompleted{
		BaseEvent:   s.baseEvent(events.ExecutionCompletedEvent, execution),
		ExecutionID: execution.ID,
		Iterations:  execution.Iteration,
		Summary:     summary,
		DurationMs:  summary.TotalDurationMs,
	}
	s.publish(ctx, execution.ID, completed)
	s.activity(ctx, execution, "execution_completed")

	s.logger.Info("Execution completed",
		"execution_id", execution.ID, "iterations", execution.Iteration,
		"review_status", summary.ReviewStatus)

	return nil
}

func (s *Service) failExecution(ctx context.Context, execution *models.Execution, cause error) error {
	if s.haltedExternally(ctx, execution) {
		return cause
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionFailed
	execution.ErrorMessage = cause.Error()
	execution.CompletedAt = &now
	execution.UpdatedAt = now

	if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		s.logger.Error("Could not persist failed execution",
			"execution_id", execution.ID, "error", err)
	}

	s.mirrorTaskStatus(ctx, execution, "failed")

	failed := events.ExecutionFailed{
		BaseEvent:   s.baseEvent(events.ExecutionFailedEvent, execution),
		ExecutionID: execution.ID,
		Error:       cause.Error(),
	}
	s.publish(ctx, execution.ID, failed)
	s.activity(ctx, execution, "execution_failed")

	s.logger.Error("Execution failed",
		"execution_id", execution.ID, "error", cause)

	return cause
}

func (s *Service) buildSummary(ctx context.Context, execution *models.Execution, verdict models.ReviewStatus) (*models.ResultSummary, error) {
	outputs, err := s.persistence.OutputRepository().ListByExecution(ctx, execution.ID)
	if err != nil {
		return nil, err
	}

	summary := &models.ResultSummary{
		Iterations:    execution.Iteration,
		ReviewStatus:  verdict,
		FilesAffected: []models.FileChange{},
	}

	seen := make(map[string]struct{})

	for _, output := range outputs {
		if output.Status != models.OutputCompleted {
			continue
		}

		summary.PhasesCompleted++
		summary.TotalTokens += output.TokensUsed
		summary.TotalDurationMs += output.DurationMs

		for _, file := range output.FilesCreated {
			if _, dup := seen[file.Path]; dup {
				continue
			}

			seen[file.Path] = struct{}{}
			summary.FilesAffected = append(summary.FilesAffected, file)
		}
	}

	return summary, nil
}

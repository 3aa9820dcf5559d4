package agentctx

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrangers/ranger/pkg/models"
)

func testTask() *models.Task {
	return &models.Task{
		ID:          "task-1",
		BoardID:     "board-1",
		Title:       "Add rate limiting",
		Description: "Requests should be limited per client",
	}
}

func testExecution(iteration int) *models.Execution {
	return &models.Execution{
		ID:           "exec-1",
		TaskID:       "task-1",
		BoardID:      "board-1",
		WorkflowType: models.WorkflowDevelopment,
		Iteration:    iteration,
	}
}

func output(phase models.Phase, iteration int, content string, createdAt time.Time) *models.Output {
	return &models.Output{
		ID:            string(phase) + "-" + content,
		ExecutionID:   "exec-1",
		TaskID:        "task-1",
		Phase:         phase,
		Iteration:     iteration,
		Status:        models.OutputCompleted,
		OutputContent: content,
		CreatedAt:     createdAt,
	}
}

func TestBuildArchitectureIsTaskMetadataOnly(t *testing.T) {
	execution := testExecution(1)
	execution.Context = map[string]any{"repository": "/srv/repo"}

	ctx := Build(testTask(), execution, models.PhaseArchitecture, nil)

	assert.Equal(t, "task-1", ctx["task_id"])
	assert.Equal(t, "Add rate limiting", ctx["task_title"])
	assert.Equal(t, "/srv/repo", ctx["repository"])
	assert.NotContains(t, ctx, "architecture")
	assert.NotContains(t, ctx, "review_feedback")
}

func TestBuildDevelopmentFoldsInArchitecture(t *testing.T) {
	now := time.Now()
	history := []*models.Output{
		output(models.PhaseArchitecture, 1, "the plan", now),
	}

	ctx := Build(testTask(), testExecution(1), models.PhaseDevelopment, history)

	assert.Equal(t, "the plan", ctx["architecture"])
	assert.NotContains(t, ctx, "review_feedback")
}

func TestBuildDevelopmentFoldsFeedbackAfterFirstIteration(t *testing.T) {
	now := time.Now()
	history := []*models.Output{
		output(models.PhaseArchitecture, 1, "the plan", now),
		output(models.PhaseReview, 1, "fix the error handling", now.Add(time.Minute)),
	}

	ctx := Build(testTask(), testExecution(2), models.PhaseDevelopment, history)

	assert.Equal(t, "fix the error handling", ctx["review_feedback"])
}

func TestBuildReviewFoldsPlanAndImplementation(t *testing.T) {
	now := time.Now()
	history := []*models.Output{
		output(models.PhaseArchitecture, 1, "the plan", now),
		output(models.PhaseDevelopment, 2, "second attempt", now.Add(2*time.Minute)),
		output(models.PhaseReview, 1, "first verdict", now.Add(time.Minute)),
	}

	ctx := Build(testTask(), testExecution(2), models.PhaseReview, history)

	assert.Equal(t, "the plan", ctx["architecture"])
	assert.Equal(t, "second attempt", ctx["implementation"])
	assert.Equal(t, "first verdict", ctx["previous_review"])
}

func TestBuildIgnoresUnfinishedOutputs(t *testing.T) {
	failed := output(models.PhaseArchitecture, 1, "broken plan", time.Now())
	failed.Status = models.OutputFailed

	ctx := Build(testTask(), testExecution(1), models.PhaseDevelopment, []*models.Output{failed})

	assert.NotContains(t, ctx, "architecture")
}

func TestLatestBreaksTiesByIterationThenTime(t *testing.T) {
	now := time.Now()
	history := []*models.Output{
		output(models.PhaseDevelopment, 1, "first", now),
		output(models.PhaseDevelopment, 2, "older but higher iteration", now.Add(-time.Hour)),
		output(models.PhaseDevelopment, 2, "newest at same iteration", now.Add(time.Minute)),
	}

	best := latest(history, models.PhaseDevelopment, 0)

	require.NotNil(t, best)
	assert.Equal(t, "newest at same iteration", best.OutputContent)
}

func TestBuildFoldsStructuredDocuments(t *testing.T) {
	arch := output(models.PhaseArchitecture, 1, "the plan", time.Now())
	arch.OutputStructured = json.RawMessage(`{"architecture_overview":"x"}`)

	ctx := Build(testTask(), testExecution(1), models.PhaseDevelopment, []*models.Output{arch})

	assert.JSONEq(t, `{"architecture_overview":"x"}`, ctx["architecture_structured"].(string))
}

func TestUserPromptIsStable(t *testing.T) {
	ctx := Build(testTask(), testExecution(1), models.PhaseArchitecture, nil)

	first := UserPrompt(ctx)
	second := UserPrompt(ctx)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Add rate limiting")
}

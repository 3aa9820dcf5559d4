package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestExecutionRepositorySaveAndGet(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	execution := &models.Execution{
		ID:            "exec-1",
		TaskID:        "task-1",
		BoardID:       "board-1",
		WorkflowType:  models.WorkflowDevelopment,
		Status:        models.ExecutionPending,
		Iteration:     1,
		MaxIterations: 3,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	require.NoError(t, p.ExecutionRepository().Save(ctx, execution))

	loaded, err := p.ExecutionRepository().GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, execution.TaskID, loaded.TaskID)
	assert.Equal(t, models.ExecutionPending, loaded.Status)
	assert.Equal(t, 1, loaded.Iteration)
}

func TestExecutionRepositoryNotFound(t *testing.T) {
	p := newTestPersistence(t)

	_, err := p.ExecutionRepository().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
	assert.True(t, persistence.IsNotFound(err))
}

func TestExecutionRepositoryListByTask(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"exec-a", "exec-b", "exec-c"} {
		execution := &models.Execution{
			ID:           id,
			TaskID:       "task-1",
			BoardID:      "board-1",
			WorkflowType: models.WorkflowQuickDevelopment,
			Status:       models.ExecutionCompleted,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, p.ExecutionRepository().Save(ctx, execution))
	}

	other := &models.Execution{
		ID:           "exec-other",
		TaskID:       "task-2",
		BoardID:      "board-1",
		WorkflowType: models.WorkflowQuickDevelopment,
		CreatedAt:    base,
	}
	require.NoError(t, p.ExecutionRepository().Save(ctx, other))

	listed, err := p.ExecutionRepository().ListByTask(ctx, "task-1", 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	// Newest first, limited to two.
	assert.Equal(t, "exec-c", listed[0].ID)
	assert.Equal(t, "exec-b", listed[1].ID)
}

func TestExecutionRepositoryListByBoardFiltersStatus(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	running := &models.Execution{
		ID:        "exec-running",
		TaskID:    "task-1",
		BoardID:   "board-1",
		Status:    models.ExecutionRunning,
		CreatedAt: time.Now().UTC(),
	}
	failed := &models.Execution{
		ID:        "exec-failed",
		TaskID:    "task-1",
		BoardID:   "board-1",
		Status:    models.ExecutionFailed,
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.ExecutionRepository().Save(ctx, running))
	require.NoError(t, p.ExecutionRepository().Save(ctx, failed))

	listed, err := p.ExecutionRepository().ListByBoard(ctx, "board-1", models.ExecutionRunning, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "exec-running", listed[0].ID)

	all, err := p.ExecutionRepository().ListByBoard(ctx, "board-1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOutputRepositoryLatest(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	base := time.Now().UTC()

	save := func(id string, phase models.Phase, iteration int, status models.OutputStatus, offset time.Duration) {
		t.Helper()

		output := &models.Output{
			ID:          id,
			ExecutionID: "exec-1",
			TaskID:      "task-1",
			Phase:       phase,
			Iteration:   iteration,
			Status:      status,
			CreatedAt:   base.Add(offset),
		}
		require.NoError(t, p.OutputRepository().Save(ctx, output))
	}

	save("dev-1", models.PhaseDevelopment, 1, models.OutputCompleted, 0)
	save("review-1", models.PhaseReview, 1, models.OutputCompleted, time.Minute)
	save("dev-2", models.PhaseDevelopment, 2, models.OutputCompleted, 2*time.Minute)
	save("dev-2-retry", models.PhaseDevelopment, 2, models.OutputFailed, 3*time.Minute)

	t.Run("highest iteration wins", func(t *testing.T) {
		latest, err := p.OutputRepository().Latest(ctx, persistence.OutputQuery{
			ExecutionID:   "exec-1",
			Phase:         models.PhaseDevelopment,
			CompletedOnly: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "dev-2", latest.ID)
	})

	t.Run("iteration pin", func(t *testing.T) {
		latest, err := p.OutputRepository().Latest(ctx, persistence.OutputQuery{
			ExecutionID: "exec-1",
			Phase:       models.PhaseDevelopment,
			Iteration:   1,
		})
		require.NoError(t, err)
		assert.Equal(t, "dev-1", latest.ID)
	})

	t.Run("creation time breaks iteration ties", func(t *testing.T) {
		latest, err := p.OutputRepository().Latest(ctx, persistence.OutputQuery{
			ExecutionID: "exec-1",
			Phase:       models.PhaseDevelopment,
			Iteration:   2,
		})
		require.NoError(t, err)
		assert.Equal(t, "dev-2-retry", latest.ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := p.OutputRepository().Latest(ctx, persistence.OutputQuery{
			ExecutionID: "exec-1",
			Phase:       models.PhaseArchitecture,
		})
		assert.ErrorIs(t, err, persistence.ErrOutputNotFound)
	})
}

func TestOutputRepositoryListByExecutionOrdersByCreation(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	base := time.Now().UTC()

	second := &models.Output{
		ID:          "out-2",
		ExecutionID: "exec-1",
		TaskID:      "task-1",
		Phase:       models.PhaseReview,
		CreatedAt:   base.Add(time.Minute),
	}
	first := &models.Output{
		ID:          "out-1",
		ExecutionID: "exec-1",
		TaskID:      "task-1",
		Phase:       models.PhaseDevelopment,
		CreatedAt:   base,
	}

	require.NoError(t, p.OutputRepository().Save(ctx, second))
	require.NoError(t, p.OutputRepository().Save(ctx, first))

	listed, err := p.OutputRepository().ListByExecution(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "out-1", listed[0].ID)
	assert.Equal(t, "out-2", listed[1].ID)
}

func TestOutputRepositoryGetByIDAcrossExecutions(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	output := &models.Output{
		ID:          "out-1",
		ExecutionID: "exec-2",
		TaskID:      "task-1",
		Phase:       models.PhaseDevelopment,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, p.OutputRepository().Save(ctx, output))

	loaded, err := p.OutputRepository().GetByID(ctx, "out-1")
	require.NoError(t, err)
	assert.Equal(t, "exec-2", loaded.ExecutionID)

	_, err = p.OutputRepository().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrOutputNotFound)
}

func TestTaskAndBoardRepositories(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	board := &models.Board{ID: "board-1", Name: "Platform", CreatedAt: time.Now().UTC()}
	require.NoError(t, p.BoardRepository().Save(ctx, board))

	task := &models.Task{
		ID:        "task-1",
		BoardID:   "board-1",
		Title:     "Add retries",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, p.TaskRepository().Save(ctx, task))

	loadedBoard, err := p.BoardRepository().GetByID(ctx, "board-1")
	require.NoError(t, err)
	assert.Equal(t, "Platform", loadedBoard.Name)

	loadedTask, err := p.TaskRepository().GetByID(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "Add retries", loadedTask.Title)

	_, err = p.TaskRepository().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrTaskNotFound)

	_, err = p.BoardRepository().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrBoardNotFound)
}

func TestHealthCheckCreatesRoot(t *testing.T) {
	root := t.TempDir() + "/nested/store"
	p := NewPersistence(root)

	require.NoError(t, p.HealthCheck(context.Background()))
	require.NoError(t, p.HealthCheck(context.Background()))
}

func TestFileURLPrefixStripped(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence("file://" + dir)
	ctx := context.Background()

	task := &models.Task{ID: "task-1", BoardID: "board-1", Title: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, p.TaskRepository().Save(ctx, task))

	loaded, err := p.TaskRepository().GetByID(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", loaded.ID)
}

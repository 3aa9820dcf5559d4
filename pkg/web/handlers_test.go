package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrangers/ranger/pkg/gitops"
	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/orchestrator"
	"github.com/agentrangers/ranger/pkg/persistence/file"
	"github.com/agentrangers/ranger/pkg/providers"
	"github.com/agentrangers/ranger/pkg/providers/simulated"
	"github.com/agentrangers/ranger/pkg/workspace"
)

func newTestApp(t *testing.T) (*fiber.App, *orchestrator.Service) {
	t.Helper()

	logger := slog.Default()

	persistence := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = persistence.Close(context.Background()) })

	registry := providers.NewRegistry(logger)
	require.NoError(t, registry.Register(providers.KindSimulated,
		func(config providers.Config, l *slog.Logger) (providers.Provider, error) {
			return simulated.NewProvider(config, l), nil
		}))
	registry.Configure(providers.DefaultRole, providers.Config{Kind: providers.KindSimulated})

	service := orchestrator.NewService(
		persistence,
		registry,
		gitops.NewReconciler(logger),
		workspace.NewResolver(t.TempDir(), logger),
		nil,
		logger,
		orchestrator.Config{},
	)

	ctx := context.Background()
	require.NoError(t, persistence.TaskRepository().Save(ctx, &models.Task{
		ID: "task-1", BoardID: "board-1", Title: "Fix login redirect",
	}))
	require.NoError(t, persistence.BoardRepository().Save(ctx, &models.Board{
		ID: "board-1", Name: "Platform",
	}))

	app := fiber.New()
	SetupRoutes(app, NewAPIHandlers(service, persistence, logger))

	return app, service
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func TestCreateExecution(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/executions",
		`{"task_id":"task-1","board_id":"board-1","workflow_type":"architecture_only"}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var execution models.Execution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, models.ExecutionPending, execution.Status)
	assert.Equal(t, 1, execution.Iteration)
}

func TestCreateExecutionValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions",
		`{"board_id":"board-1","workflow_type":"architecture_only"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/executions",
		`{"task_id":"task-1","board_id":"board-1","workflow_type":"nonsense"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateExecutionUnknownTask(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions",
		`{"task_id":"ghost","board_id":"board-1","workflow_type":"architecture_only"}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetExecutionNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/executions/missing", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelExecutionLifecycle(t *testing.T) {
	app, service := newTestApp(t)

	execution, err := service.CreateExecution(context.Background(),
		"task-1", "board-1", models.WorkflowDevelopment, nil)
	require.NoError(t, err)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions/"+execution.ID+"/cancel",
		`{"cancelled_by":"operator"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Cancelling a terminal execution is a conflict.
	resp, _ = doJSON(t, app, http.MethodPost, "/executions/"+execution.ID+"/cancel",
		`{"cancelled_by":"operator"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestExecutionStatusSnapshot(t *testing.T) {
	app, service := newTestApp(t)

	ctx := context.Background()
	execution, err := service.CreateExecution(ctx, "task-1", "board-1",
		models.WorkflowArchitectureOnly, nil)
	require.NoError(t, err)
	require.NoError(t, service.StartExecution(ctx, execution.ID))

	resp, body := doJSON(t, app, http.MethodGet, "/executions/"+execution.ID+"/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot orchestrator.StatusSnapshot
	require.NoError(t, json.Unmarshal(body, &snapshot))
	assert.Equal(t, models.ExecutionCompleted, snapshot.Status)
	assert.Len(t, snapshot.Outputs, 1)
}

func TestTaskExecutionsList(t *testing.T) {
	app, service := newTestApp(t)

	_, err := service.CreateExecution(context.Background(),
		"task-1", "board-1", models.WorkflowQuickDevelopment, nil)
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodGet, "/tasks/task-1/executions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Executions []*models.Execution `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Len(t, result.Executions, 1)
}

func TestRecommendWorkflow(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/recommend",
		`{"title":"Fix typo in README","description":"small copy change"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, string(models.WorkflowQuickDevelopment), result["workflow_type"])
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

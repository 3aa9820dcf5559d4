// Package web exposes the REST API for creating, driving and observing
// workflow executions.
package web

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/orchestrator"
	"github.com/agentrangers/ranger/pkg/persistence"
)

type APIHandlers struct {
	service     *orchestrator.Service
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(service *orchestrator.Service, p persistence.Persistence, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		service:     service,
		persistence: p,
		validator:   validator.New(),
		logger:      logger.With("module", "web"),
	}
}

// SetupRoutes registers all API routes on the app.
func SetupRoutes(app *fiber.App, h *APIHandlers) {
	app.Get("/health", h.Health)

	app.Post("/executions", h.CreateExecution)
	app.Get("/executions/:id", h.GetExecution)
	app.Get("/executions/:id/status", h.GetExecutionStatus)
	app.Post("/executions/:id/start", h.StartExecution)
	app.Post("/executions/:id/cancel", h.CancelExecution)
	app.Post("/executions/:id/clarification", h.ProvideClarification)
	app.Post("/executions/:id/feedback", h.HandleReviewFeedback)

	app.Get("/tasks/:id/executions", h.TaskExecutions)
	app.Get("/boards/:id/executions", h.BoardExecutions)

	app.Post("/workflows/recommend", h.RecommendWorkflow)
}

type createExecutionRequest struct {
	TaskID       string              `json:"task_id"       validate:"required"`
	BoardID      string              `json:"board_id"      validate:"required"`
	WorkflowType models.WorkflowType `json:"workflow_type" validate:"required"`
	Context      map[string]any      `json:"context"`

	// Start runs the execution immediately in the background.
	Start bool `json:"start"`
}

func (h *APIHandlers) CreateExecution(c fiber.Ctx) error {
	var req createExecutionRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.service.CreateExecution(c.Context(), req.TaskID, req.BoardID, req.WorkflowType, req.Context)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Start {
		h.startInBackground(execution.ID)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.service.GetExecution(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if execution.Status != models.ExecutionPending {
		return conflict(c, "execution is not pending")
	}

	h.startInBackground(id)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": id,
		"status":       "starting",
	})
}

// startInBackground runs the workflow detached from the request lifecycle.
func (h *APIHandlers) startInBackground(executionID string) {
	go func() {
		if err := h.service.StartExecution(context.Background(), executionID); err != nil {
			h.logger.Error("Execution run failed",
				"execution_id", executionID, "error", err)
		}
	}()
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.service.GetExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionStatus(c fiber.Ctx) error {
	snapshot, err := h.service.ExecutionStatus(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(snapshot)
}

type cancelRequest struct {
	CancelledBy string `json:"cancelled_by"`
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	var req cancelRequest

	_ = c.Bind().Body(&req)

	if err := h.service.CancelExecution(c.Context(), c.Params("id"), req.CancelledBy); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type clarificationRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1"`

	// Start runs the resumed execution immediately.
	Start bool `json:"start"`
}

func (h *APIHandlers) ProvideClarification(c fiber.Ctx) error {
	var req clarificationRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	resumed, err := h.service.ResumeWithClarification(c.Context(), c.Params("id"), req.Answers)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Start {
		h.startInBackground(resumed.ID)
	}

	return c.Status(fiber.StatusCreated).JSON(resumed)
}

func (h *APIHandlers) HandleReviewFeedback(c fiber.Ctx) error {
	followup, err := h.service.HandleReviewFeedback(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(followup)
}

func (h *APIHandlers) TaskExecutions(c fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return badRequest(c, "Invalid limit: "+err.Error())
	}

	executions, err := h.service.TaskExecutions(c.Context(), c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) BoardExecutions(c fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return badRequest(c, "Invalid limit: "+err.Error())
	}

	status := models.ExecutionStatus(c.Query("status"))

	executions, err := h.service.BoardExecutions(c.Context(), c.Params("id"), status, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

type recommendRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (h *APIHandlers) RecommendWorkflow(c fiber.Ctx) error {
	var req recommendRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(fiber.Map{
		"workflow_type": orchestrator.RecommendWorkflow(req.Title, req.Description),
	})
}

func (h *APIHandlers) Health(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func parseLimit(c fiber.Ctx) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 50, nil
	}

	return strconv.Atoi(limitStr)
}

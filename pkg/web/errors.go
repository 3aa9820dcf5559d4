package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/agentrangers/ranger/pkg/orchestrator"
	"github.com/agentrangers/ranger/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps orchestrator and persistence errors to problem
// responses. State conflicts are 409: they are rejected before mutation.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsNotFound(err):
		return notFound(c, err.Error())
	case errors.Is(err, orchestrator.ErrExecutionNotPending),
		errors.Is(err, orchestrator.ErrExecutionAlreadyRunning),
		errors.Is(err, orchestrator.ErrExecutionTerminal),
		errors.Is(err, orchestrator.ErrNotAwaitingClarification),
		errors.Is(err, orchestrator.ErrNoChangesRequested):
		return conflict(c, err.Error())
	case errors.Is(err, orchestrator.ErrWorkflowTypeNotRecognized):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrExecutionNotFound indicates an execution was not found by the
	// given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrOutputNotFound indicates no output matched the query.
	ErrOutputNotFound = errors.New("output not found")

	// ErrTaskNotFound indicates a task was not found by the given
	// identifier.
	ErrTaskNotFound = errors.New("task not found")

	// ErrBoardNotFound indicates a board was not found by the given
	// identifier.
	ErrBoardNotFound = errors.New("board not found")
)

// ExecutionError wraps execution-related errors with additional context.
type ExecutionError struct {
	Op          string // Operation being performed (e.g. "GetByID", "Save")
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates a new execution error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{Op: op, ExecutionID: executionID, Err: err}
}

// IsNotFound checks whether an error is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrOutputNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrBoardNotFound)
}

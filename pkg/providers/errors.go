package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable indicates the backend could not serve the
	// request. Callers fall back to the simulated provider.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrUnknownKind indicates an unregistered backend kind.
	ErrUnknownKind = errors.New("unknown provider kind")

	// ErrModelNotAvailable indicates the backend is reachable but the
	// configured model is not served by it.
	ErrModelNotAvailable = errors.New("model not available")

	// ErrEmptyResponse indicates the backend returned no content.
	ErrEmptyResponse = errors.New("empty response from backend")
)

// ProviderError wraps a backend failure with the kind and operation that
// produced it.
type ProviderError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	var pe *ProviderError
	if errors.As(target, &pe) {
		return e.Kind == pe.Kind && e.Op == pe.Op
	}

	return false
}

func NewProviderError(kind Kind, op string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Op: op, Err: err}
}

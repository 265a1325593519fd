package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers match with errors.Is;
// the HTTP layer maps each kind to a status code.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

// DeliveryError reports a gateway rejection or an unreachable gateway. It
// carries the provider's reason and error code so the caller can surface them.
type DeliveryError struct {
	Reason string
	Code   string
}

func (e *DeliveryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("delivery failed: %s (code %s)", e.Reason, e.Code)
	}
	return fmt.Sprintf("delivery failed: %s", e.Reason)
}

// NotFoundf wraps ErrNotFound with context about what was missing.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidInputf wraps ErrInvalidInput with a caller-facing explanation.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

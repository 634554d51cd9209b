package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Not-found errors: entity missing or not owned by the caller
	ErrNotFound = errors.New("not found")

	// Configuration errors: raised before any side effect
	ErrProviderNotConfigured    = errors.New("provider not configured")
	ErrDestinationNotConfigured = errors.New("destination not configured")

	// Validation errors
	ErrValidation = errors.New("validation failed")

	// Execution state machine
	ErrInvalidTransition = errors.New("invalid execution state transition")
)

// ValidationError describes a rejected field value
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// UpstreamError is a non-success response from a provider or the destination
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API request failed with status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Service, e.StatusCode, e.Body)
}

// RateLimitError is returned when a provider answers HTTP 429.
// RetryAfter is zero when the server sent no hint.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Provider)
}

// IsConfigurationError reports whether err means a provider or destination is not set up
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrProviderNotConfigured) || errors.Is(err, ErrDestinationNotConfigured)
}

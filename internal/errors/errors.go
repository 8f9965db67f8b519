package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Common error types for the platform
var (
	// Authentication errors. Callers outside the core only ever see ErrUnauthenticated.
	ErrUnauthenticated    = errors.New("authentication failed")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("invalid token: %w", ErrUnauthenticated)
	ErrInvalidTOTP        = fmt.Errorf("invalid verification code: %w", ErrUnauthenticated)

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Rate limiting
	ErrRateLimited = errors.New("too many attempts")

	// Validation
	ErrValidation = errors.New("validation failed")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal error")
)

// ValidationError carries field level detail that is safe to show to the caller.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a problem with a field. It returns the receiver so calls can be chained.
func (v *ValidationError) Add(field, message string) *ValidationError {
	v.Fields[field] = message
	return v
}

func (v *ValidationError) HasErrors() bool {
	return len(v.Fields) > 0
}

// OrNil returns nil when nothing was recorded, so the result can be returned directly.
func (v *ValidationError) OrNil() error {
	if v == nil || !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error {
	return ErrValidation
}

// RateLimitError is returned when a client key has exhausted its window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (r *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited.Error(), r.RetryAfter.Round(time.Second))
}

func (r *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

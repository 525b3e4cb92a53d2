package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types used across the application
var (
	// ErrInvalidInput indicates a malformed target descriptor or user input
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
	// ErrNetworkFailure indicates network connectivity issues
	ErrNetworkFailure = errors.New("network failure")
	// ErrInvalidConfiguration indicates configuration issues
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrExcluded marks a target matched by an exclusion pattern
	ErrExcluded = errors.New("target excluded")
	// ErrRunCancelled is the cause recorded on targets skipped by an operator interrupt
	ErrRunCancelled = errors.New("run cancelled")
	// ErrCaptureEngineUnavailable is fatal: the shared capture resource could not be allocated
	ErrCaptureEngineUnavailable = errors.New("capture engine unavailable")
)

// WrapError wraps an error with additional context information
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context information
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewError creates a new error with a formatted message
func NewError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// InputError describes a descriptor that could not be normalized.
// It never aborts a batch; callers log it and drop the descriptor.
type InputError struct {
	Source string
	Line   int
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	var b strings.Builder
	b.WriteString("invalid target")
	if e.Source != "" {
		b.WriteString(" from ")
		b.WriteString(e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	fmt.Fprintf(&b, " '%s': %s", e.Value, e.Reason)
	return b.String()
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// NewInputError creates a new input error
func NewInputError(source string, line int, value, reason string) *InputError {
	return &InputError{
		Source: source,
		Line:   line,
		Value:  value,
		Reason: reason,
	}
}

// EnrichmentError records a failed enrichment stage. It never fails a target.
type EnrichmentError struct {
	Stage string
	Err   error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment stage '%s' failed: %v", e.Stage, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// NewEnrichmentError creates a new enrichment error
func NewEnrichmentError(stage string, err error) *EnrichmentError {
	return &EnrichmentError{Stage: stage, Err: err}
}

// ValidationError represents validation errors with field-specific information
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NetworkError represents network-related errors
type NetworkError struct {
	URL     string
	Reason  string
	Wrapped error
}

func (e *NetworkError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("network error for '%s': %s: %v", e.URL, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("network error for '%s': %s", e.URL, e.Reason)
}

func (e *NetworkError) Unwrap() error {
	return e.Wrapped
}

// NewNetworkError creates a new network error
func NewNetworkError(url, reason string, wrapped error) *NetworkError {
	return &NetworkError{
		URL:     url,
		Reason:  reason,
		Wrapped: wrapped,
	}
}

// CombineErrors combines multiple errors into a single error with formatted message
func CombineErrors(errs []error) error {
	var messages []string
	var last error
	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
			last = err
		}
	}

	switch len(messages) {
	case 0:
		return nil
	case 1:
		return last
	}
	return fmt.Errorf("multiple errors occurred: [%s]", strings.Join(messages, "; "))
}

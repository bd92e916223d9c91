// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"

	"github.com/lucidfin/spendsage/internal/model"
)

// Common application errors.
var (
	// Validation errors.
	ErrInvalidInput = errors.New("invalid input")

	// Training precondition errors.
	ErrInsufficientData    = errors.New("insufficient training data")
	ErrInsufficientHistory = errors.New("insufficient history")

	// Serving errors.
	ErrModelNotTrained = errors.New("model not trained")

	// Persistence errors.
	ErrStorage  = errors.New("storage failure")
	ErrNotFound = errors.New("not found")

	// Feedback loop errors.
	ErrNoRetrainNeeded = errors.New("not enough accumulated feedback to retrain")
)

// ValidationError reports caller-supplied data that violates a precondition.
// It is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a validation error for a named field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientDataError reports a training set below the minimum sample count.
type InsufficientDataError struct {
	Unit    string
	Got     int
	Minimum int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: got %d %s, need at least %d", e.Got, e.Unit, e.Minimum)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// InsufficientHistoryError reports a history span too short to fit a trend.
type InsufficientHistoryError struct {
	Unit    string
	Got     int
	Minimum int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: got %d %s, need at least %d", e.Got, e.Unit, e.Minimum)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }

// NotTrainedError reports that no active artifact exists for a model type.
// Callers should treat this as "serve a neutral default", never as fatal.
type NotTrainedError struct {
	ModelType model.Type
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("model not trained: no active %s artifact", e.ModelType)
}

func (e *NotTrainedError) Unwrap() error { return ErrModelNotTrained }

// NotFoundError reports a reference to a nonexistent entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsRetryable reports whether a caller should retry the operation later.
// A missing model becomes servable once training completes; validation and
// reference errors never succeed on retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrModelNotTrained) {
		return true
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) {
		return false
	}
	return errors.Is(err, ErrStorage)
}

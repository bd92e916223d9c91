package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lucidfin/spendsage/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "validation",
			err:      NewValidationError("amount", "must be finite"),
			sentinel: ErrInvalidInput,
		},
		{
			name:     "insufficient data",
			err:      &InsufficientDataError{Got: 1, Minimum: 10, Unit: "transactions"},
			sentinel: ErrInsufficientData,
		},
		{
			name:     "insufficient history",
			err:      &InsufficientHistoryError{Got: 1, Minimum: 2, Unit: "months"},
			sentinel: ErrInsufficientHistory,
		},
		{
			name:     "not trained",
			err:      &NotTrainedError{ModelType: model.TypeClassifier},
			sentinel: ErrModelNotTrained,
		},
		{
			name:     "not found",
			err:      &NotFoundError{Entity: "prediction", ID: "p-1"},
			sentinel: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)

			// Wrapping preserves the sentinel.
			wrapped := fmt.Errorf("serving: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "not trained is transient", err: &NotTrainedError{ModelType: model.TypeForecaster}, want: true},
		{name: "storage is transient", err: fmt.Errorf("%w: disk full", ErrStorage), want: true},
		{name: "validation never succeeds", err: NewValidationError("text", "empty"), want: false},
		{name: "missing entity never appears", err: &NotFoundError{Entity: "prediction", ID: "x"}, want: false},
		{name: "unknown error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

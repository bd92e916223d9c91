package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lucidfin/spendsage/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidEntity   = errors.New("invalid entity")
	ErrInvalidArtifact = errors.New("invalid artifact")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: transaction missing ID", ErrInvalidEntity)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: transaction missing user ID", ErrInvalidEntity)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: transaction missing date", ErrInvalidEntity)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: transaction missing description", ErrInvalidEntity)
	}
	return nil
}

// validatePrediction validates a prediction before persisting it.
func validatePrediction(prediction *model.Prediction) error {
	if prediction == nil {
		return fmt.Errorf("%w: prediction", ErrNilParameter)
	}
	if prediction.ID == "" || prediction.UserID == "" {
		return fmt.Errorf("%w: prediction missing ID or user ID", ErrInvalidEntity)
	}
	if prediction.PredictedCategory == "" {
		return fmt.Errorf("%w: prediction missing category", ErrInvalidEntity)
	}
	if prediction.Confidence < 0 || prediction.Confidence > 1 {
		return fmt.Errorf("%w: prediction confidence must be between 0 and 1", ErrInvalidEntity)
	}
	if err := prediction.Alternatives.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	return nil
}

// validateForecast validates a forecast before persisting it.
func validateForecast(forecast *model.Forecast) error {
	if forecast == nil {
		return fmt.Errorf("%w: forecast", ErrNilParameter)
	}
	if forecast.ID == "" || forecast.UserID == "" {
		return fmt.Errorf("%w: forecast missing ID or user ID", ErrInvalidEntity)
	}
	if err := forecast.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	return nil
}

// validatePatternAnalysis validates a pattern analysis before persisting it.
func validatePatternAnalysis(analysis *model.PatternAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("%w: analysis", ErrNilParameter)
	}
	if analysis.ID == "" || analysis.UserID == "" {
		return fmt.Errorf("%w: analysis missing ID or user ID", ErrInvalidEntity)
	}
	if analysis.PatternType == "" {
		return fmt.Errorf("%w: analysis missing pattern type", ErrInvalidEntity)
	}
	if err := analysis.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	return nil
}

// validateArtifact validates model artifact metadata.
func validateArtifact(artifact *model.Artifact) error {
	if artifact == nil {
		return fmt.Errorf("%w: artifact", ErrNilParameter)
	}
	if artifact.ID == "" || artifact.Name == "" || artifact.Version == "" {
		return fmt.Errorf("%w: missing ID, name or version", ErrInvalidArtifact)
	}
	if !artifact.Type.Valid() {
		return fmt.Errorf("%w: unknown model type %q", ErrInvalidArtifact, artifact.Type)
	}
	if artifact.TrainedAt.IsZero() {
		return fmt.Errorf("%w: missing trained_at", ErrInvalidArtifact)
	}
	return nil
}

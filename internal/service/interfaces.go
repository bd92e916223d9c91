// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/lucidfin/spendsage/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    string
	Category  string
	Limit     int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Transaction history operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetLabeledSamples(ctx context.Context, userID string) ([]model.LabeledSample, error)

	// Prediction operations
	SavePrediction(ctx context.Context, prediction *model.Prediction) error
	GetPredictionByID(ctx context.Context, id string) (*model.Prediction, error)
	GetPredictionsByUser(ctx context.Context, userID string, limit int) ([]model.Prediction, error)

	// Forecast operations; saving upserts on (user, category, year, month)
	SaveForecast(ctx context.Context, forecast *model.Forecast) error
	GetForecasts(ctx context.Context, userID, category string) ([]model.Forecast, error)

	// Pattern analysis operations; saving appends and marks the new row latest
	SavePatternAnalysis(ctx context.Context, analysis *model.PatternAnalysis) error
	GetLatestPatternAnalysis(ctx context.Context, userID string) (*model.PatternAnalysis, error)

	// Feedback operations
	SaveFeedback(ctx context.Context, feedback *model.Feedback) error
	GetCorrectionsSince(ctx context.Context, since time.Time) ([]model.Feedback, error)

	// Model metadata operations; RegisterArtifact atomically flips is_active
	// from the prior holder to the new artifact
	RegisterArtifact(ctx context.Context, artifact *model.Artifact) error
	GetActiveArtifact(ctx context.Context, modelType model.Type) (*model.Artifact, error)
	GetArtifactHistory(ctx context.Context, modelType model.Type) ([]model.Artifact, error)
	CountArtifactVersions(ctx context.Context, name string, modelType model.Type) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

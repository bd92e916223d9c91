// Package engine is the uniform entry point for the prediction subsystem.
// It loads the active model for each engine type, validates input, invokes
// the engine, persists the result and returns it. Serving degrades safely:
// an untrained classifier yields an "Uncategorized" default rather than a
// hard failure.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lucidfin/spendsage/internal/classifier"
	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/feedback"
	"github.com/lucidfin/spendsage/internal/forecaster"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/lucidfin/spendsage/internal/pattern"
	"github.com/lucidfin/spendsage/internal/registry"
	"github.com/lucidfin/spendsage/internal/service"
)

// UncategorizedCategory is the degraded default served when no classifier is
// trained yet.
const UncategorizedCategory = "Uncategorized"

// untrainedVersion marks results produced without an active artifact.
const untrainedVersion = "untrained"

// Options tunes engine behavior; zero values select defaults.
type Options struct {
	// ClassifierFeatures selects the classifier feature strategy,
	// default bag-of-words.
	ClassifierFeatures classifier.FeatureStrategy
	// ConfidenceLevel for forecast intervals, default 0.95.
	ConfidenceLevel float64
	// MinCorrections gates feedback-driven retraining.
	MinCorrections int
}

// Engine orchestrates the three prediction engines behind one serving contract.
type Engine struct {
	storage  service.Storage
	registry *registry.Registry
	loop     *feedback.Loop
	opts     Options
}

// New creates the orchestrator.
func New(storage service.Storage, reg *registry.Registry, opts Options) *Engine {
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = forecaster.DefaultConfidenceLevel
	}
	if opts.ClassifierFeatures == "" {
		opts.ClassifierFeatures = classifier.FeaturesBagOfWords
	}
	return &Engine{
		storage:  storage,
		registry: reg,
		loop:     feedback.NewLoop(storage, reg, opts.MinCorrections),
		opts:     opts,
	}
}

// Classify maps a transaction description to a category, persists the
// prediction and returns it. With no trained classifier it serves and
// persists a zero-confidence "Uncategorized" default instead of failing.
func (e *Engine) Classify(ctx context.Context, userID, text string, amount *float64) (*model.Prediction, error) {
	if userID == "" {
		return nil, common.NewValidationError("userID", "user reference is required")
	}
	if classifier.Normalize(text) == "" {
		return nil, common.NewValidationError("text", "description is required")
	}
	if amount != nil && (math.IsNaN(*amount) || math.IsInf(*amount, 0)) {
		return nil, common.NewValidationError("amount", "must be a finite number")
	}

	prediction := &model.Prediction{
		ID:        uuid.NewString(),
		UserID:    userID,
		InputText: text,
		CreatedAt: time.Now().UTC(),
	}

	artifact, payload, err := e.registry.LoadActive(ctx, model.TypeClassifier)
	switch {
	case err == nil:
		clf, err := classifier.FromPayload(payload)
		if err != nil {
			return nil, err
		}
		top, alternatives, err := clf.Predict(text)
		if err != nil {
			return nil, err
		}
		prediction.PredictedCategory = top.Category
		prediction.Confidence = top.Score
		prediction.Alternatives = alternatives
		prediction.ModelVersion = artifact.Version
	case errors.Is(err, common.ErrModelNotTrained):
		slog.Warn("Serving degraded classification: no trained classifier",
			"user", userID)
		prediction.PredictedCategory = UncategorizedCategory
		prediction.Confidence = 0
		prediction.Alternatives = model.CategoryScores{}
		prediction.ModelVersion = untrainedVersion
	default:
		return nil, err
	}

	if err := e.storage.SavePrediction(ctx, prediction); err != nil {
		return nil, err
	}
	return prediction, nil
}

// GenerateForecast projects spending for the coming months and upserts one
// record per (user, category, year, month). An empty category selects the
// all-categories aggregate.
func (e *Engine) GenerateForecast(ctx context.Context, userID, category string, monthsAhead int) ([]model.Forecast, error) {
	if userID == "" {
		return nil, common.NewValidationError("userID", "user reference is required")
	}
	if monthsAhead < forecaster.MinMonthsAhead || monthsAhead > forecaster.MaxMonthsAhead {
		return nil, common.NewValidationError("monthsAhead",
			"must be between "+strconv.Itoa(forecaster.MinMonthsAhead)+
				" and "+strconv.Itoa(forecaster.MaxMonthsAhead))
	}

	artifact, payload, err := e.registry.LoadActive(ctx, model.TypeForecaster)
	if err != nil {
		return nil, err
	}
	fc, err := forecaster.FromPayload(payload)
	if err != nil {
		return nil, err
	}

	forecasts, err := fc.Forecast(monthsAhead, category)
	if err != nil {
		return nil, err
	}

	for i := range forecasts {
		forecasts[i].ID = uuid.NewString()
		forecasts[i].UserID = userID
		forecasts[i].CreatedAt = time.Now().UTC()
		if err := e.storage.SaveForecast(ctx, &forecasts[i]); err != nil {
			return nil, err
		}
	}

	slog.Info("Generated forecast",
		"user", userID,
		"category", category,
		"months", monthsAhead,
		"model_version", artifact.Version)

	return forecasts, nil
}

// AnalyzePatterns runs the pattern analyzer over a transaction window,
// appends the analysis (marking it latest) and returns it.
func (e *Engine) AnalyzePatterns(ctx context.Context, userID string, window []model.Transaction, start, end time.Time) (*model.PatternAnalysis, error) {
	if userID == "" {
		return nil, common.NewValidationError("userID", "user reference is required")
	}
	if len(window) == 0 {
		return nil, common.NewValidationError("window", "at least one transaction is required")
	}
	if end.Before(start) {
		return nil, common.NewValidationError("window", "end date is before start date")
	}

	_, payload, err := e.registry.LoadActive(ctx, model.TypePatternAnalyzer)
	if err != nil {
		return nil, err
	}
	analyzer, err := pattern.FromPayload(payload)
	if err != nil {
		return nil, err
	}

	result, err := analyzer.Analyze(window)
	if err != nil {
		return nil, err
	}

	analysis := &model.PatternAnalysis{
		ID:             uuid.NewString(),
		UserID:         userID,
		PatternType:    result.PatternType,
		Patterns:       result.Patterns,
		Insights:       result.Insights,
		StabilityScore: result.StabilityScore,
		UnusualDays:    result.UnusualDays,
		StartDate:      start,
		EndDate:        end,
	}
	if err := e.storage.SavePatternAnalysis(ctx, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// AnalyzeRecent fetches the user's last N months of history and analyzes it.
func (e *Engine) AnalyzeRecent(ctx context.Context, userID string, months int) (*model.PatternAnalysis, error) {
	if months <= 0 {
		return nil, common.NewValidationError("months", "must be a positive integer")
	}

	end := time.Now().UTC()
	start := end.AddDate(0, -months, 0)
	window, err := e.storage.GetTransactions(ctx, service.TransactionFilter{
		UserID:    userID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, err
	}
	if len(window) == 0 {
		return nil, &common.NotFoundError{Entity: "transaction history", ID: userID}
	}

	return e.AnalyzePatterns(ctx, userID, window, start, end)
}

// SubmitFeedback records a correction or helpfulness signal for a prediction.
func (e *Engine) SubmitFeedback(ctx context.Context, userID, predictionID string, correctCategory *string, wasHelpful *bool) (*model.Feedback, error) {
	return e.loop.Submit(ctx, userID, predictionID, correctCategory, wasHelpful)
}

// defaultPredictionLimit bounds prediction listings when no limit is given.
const defaultPredictionLimit = 20

// RecentPredictions returns a user's stored predictions, newest first, for
// review and feedback. A non-positive limit selects the default.
func (e *Engine) RecentPredictions(ctx context.Context, userID string, limit int) ([]model.Prediction, error) {
	if userID == "" {
		return nil, common.NewValidationError("userID", "user reference is required")
	}
	if limit <= 0 {
		limit = defaultPredictionLimit
	}
	return e.storage.GetPredictionsByUser(ctx, userID, limit)
}

// Retrain triggers the feedback loop's threshold-gated classifier retrain.
func (e *Engine) Retrain(ctx context.Context) (*model.TrainingReport, error) {
	return e.loop.Retrain(ctx)
}

// ModelStatus reports per-type artifact load state for health reporting.
func (e *Engine) ModelStatus(ctx context.Context) (map[model.Type]registry.Status, error) {
	return e.registry.Status(ctx)
}

// History returns the registered version history for a model type.
func (e *Engine) History(ctx context.Context, modelType model.Type) ([]model.Artifact, error) {
	return e.registry.History(ctx, modelType)
}

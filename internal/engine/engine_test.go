package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/engine"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/lucidfin/spendsage/internal/registry"
	"github.com/lucidfin/spendsage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	db     *testutil.TestDB
	engine *engine.Engine
}

func setupEngine(t *testing.T) *engineFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	reg, err := registry.New(db.Storage, t.TempDir())
	require.NoError(t, err)

	return &engineFixture{
		db:     db,
		engine: engine.New(db.Storage, reg, engine.Options{}),
	}
}

// seedCategorized stores a labeled history large enough to train every model.
func (f *engineFixture) seedCategorized(t *testing.T, ctx context.Context) {
	t.Helper()

	var transactions []model.Transaction
	start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	merchants := []struct {
		description string
		category    string
		amount      float64
	}{
		{"TRADER JOE'S #512", "Groceries", 60},
		{"WHOLE FOODS MARKET", "Groceries", 80},
		{"SHELL OIL 5740", "Transport", 45},
		{"UBER *TRIP 4421", "Transport", 20},
	}
	for week := 0; week < 6; week++ {
		for i, m := range merchants {
			date := start.AddDate(0, 0, week*7+i)
			transactions = append(transactions, model.Transaction{
				ID:          date.Format("2006-01-02") + "-" + m.category,
				UserID:      "alice",
				Date:        date,
				Description: m.description,
				Category:    m.category,
				Amount:      m.amount,
			})
		}
	}
	f.db.MustSaveTransactions(ctx, transactions)
}

func TestClassifyDegradedWithoutModel(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()

	prediction, err := fixture.engine.Classify(ctx, "alice", "TRADER JOE'S #512", nil)
	require.NoError(t, err, "missing model must not fail classification")

	assert.Equal(t, engine.UncategorizedCategory, prediction.PredictedCategory)
	assert.Equal(t, 0.0, prediction.Confidence)
	assert.Empty(t, prediction.Alternatives)
	assert.Equal(t, "untrained", prediction.ModelVersion)

	// The degraded prediction is persisted like any other.
	stored, err := fixture.db.Storage.GetPredictionByID(ctx, prediction.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.UncategorizedCategory, stored.PredictedCategory)
}

func TestClassifyWithTrainedModel(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()
	fixture.seedCategorized(t, ctx)

	report, err := fixture.engine.TrainClassifier(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", report.Version)

	prediction, err := fixture.engine.Classify(ctx, "alice", "WHOLE FOODS", nil)
	require.NoError(t, err)

	assert.Equal(t, "Groceries", prediction.PredictedCategory)
	assert.Greater(t, prediction.Confidence, 0.5)
	assert.Equal(t, "1.0.1", prediction.ModelVersion)

	stored, err := fixture.db.Storage.GetPredictionByID(ctx, prediction.ID)
	require.NoError(t, err)
	assert.Equal(t, prediction.PredictedCategory, stored.PredictedCategory)
}

func TestClassifyValidation(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()

	_, err := fixture.engine.Classify(ctx, "", "TRADER JOE'S", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = fixture.engine.Classify(ctx, "alice", "   ", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = fixture.engine.Classify(ctx, "alice", "123 456", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput, "symbol-only text has no tokens")
}

func TestGenerateForecastPersists(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()
	fixture.seedCategorized(t, ctx)

	_, err := fixture.engine.TrainForecaster(ctx)
	require.NoError(t, err)

	forecasts, err := fixture.engine.GenerateForecast(ctx, "alice", "", 3)
	require.NoError(t, err)
	require.Len(t, forecasts, 3)
	for _, forecast := range forecasts {
		assert.Equal(t, "alice", forecast.UserID)
		assert.NotEmpty(t, forecast.ID)
		require.NoError(t, forecast.Validate())
	}

	stored, err := fixture.db.Storage.GetForecasts(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	// Regenerating overwrites the same months instead of duplicating.
	_, err = fixture.engine.GenerateForecast(ctx, "alice", "", 3)
	require.NoError(t, err)
	stored, err = fixture.db.Storage.GetForecasts(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestGenerateForecastValidatesBeforeLoading(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()

	// Horizon validation fires even with no trained forecaster.
	_, err := fixture.engine.GenerateForecast(ctx, "alice", "", 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = fixture.engine.GenerateForecast(ctx, "alice", "", 25)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = fixture.engine.GenerateForecast(ctx, "alice", "", 3)
	assert.ErrorIs(t, err, common.ErrModelNotTrained)
}

func TestAnalyzeRecentStoresLatest(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()

	// Pattern analysis windows are relative to now.
	var transactions []model.Transaction
	now := time.Now().UTC()
	for i := 0; i < 12; i++ {
		date := now.AddDate(0, 0, -i*7)
		transactions = append(transactions, model.Transaction{
			ID:          date.Format("2006-01-02"),
			UserID:      "alice",
			Date:        date,
			Description: "weekly groceries",
			Category:    "Groceries",
			Amount:      75,
		})
	}
	fixture.db.MustSaveTransactions(ctx, transactions)

	_, err := fixture.engine.TrainPatternAnalyzer(ctx, 0)
	require.NoError(t, err)

	analysis, err := fixture.engine.AnalyzeRecent(ctx, "alice", 4)
	require.NoError(t, err)
	assert.Equal(t, "consistent_spender", analysis.PatternType)
	assert.Greater(t, analysis.StabilityScore, 0.9)

	stored, err := fixture.db.Storage.GetLatestPatternAnalysis(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, analysis.ID, stored.ID)
	assert.True(t, stored.IsLatest)
}

func TestAnalyzeRecentNoHistory(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()

	_, err := fixture.engine.TrainPatternAnalyzer(ctx, 0)
	require.Error(t, err, "nothing to train on")

	_, err = fixture.engine.AnalyzeRecent(ctx, "nobody", 3)
	require.Error(t, err)
}

func TestRecentPredictionsListing(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()

	first, err := fixture.engine.Classify(ctx, "alice", "TRADER JOE'S #512", nil)
	require.NoError(t, err)
	second, err := fixture.engine.Classify(ctx, "alice", "SHELL OIL 5740", nil)
	require.NoError(t, err)
	_, err = fixture.engine.Classify(ctx, "bob", "NETFLIX.COM", nil)
	require.NoError(t, err)

	predictions, err := fixture.engine.RecentPredictions(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, predictions, 2, "other users' predictions are excluded")
	assert.ElementsMatch(t,
		[]string{first.ID, second.ID},
		[]string{predictions[0].ID, predictions[1].ID})

	limited, err := fixture.engine.RecentPredictions(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = fixture.engine.RecentPredictions(ctx, "", 5)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSubmitFeedbackUnknownPrediction(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()

	category := "Groceries"
	_, err := fixture.engine.SubmitFeedback(ctx, "alice", "no-such-id", &category, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestModelStatusReflectsTraining(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()

	statuses, err := fixture.engine.ModelStatus(ctx)
	require.NoError(t, err)
	for _, status := range statuses {
		assert.False(t, status.Loaded)
	}

	fixture.seedCategorized(t, ctx)
	_, err = fixture.engine.TrainClassifier(ctx)
	require.NoError(t, err)

	statuses, err = fixture.engine.ModelStatus(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[model.TypeClassifier].Loaded)
	assert.False(t, statuses[model.TypeForecaster].Loaded)
}

func TestTrainingRegistersHyperparameters(t *testing.T) {
	fixture := setupEngine(t)
	ctx := context.Background()
	fixture.seedCategorized(t, ctx)

	_, err := fixture.engine.TrainClassifier(ctx)
	require.NoError(t, err)
	_, err = fixture.engine.TrainForecaster(ctx)
	require.NoError(t, err)
	_, err = fixture.engine.TrainPatternAnalyzer(ctx, 25)
	require.NoError(t, err)

	history, err := fixture.engine.History(ctx, model.TypeClassifier)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "multinomial_naive_bayes", history[0].Hyperparameters["algorithm"])
	assert.Equal(t, "bag_of_words", history[0].Hyperparameters["features"])

	history, err = fixture.engine.History(ctx, model.TypePatternAnalyzer)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "25", history[0].Hyperparameters["epochs"])
}

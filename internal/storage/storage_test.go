package storage

import (
	"context"
	"testing"
	"time"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/lucidfin/spendsage/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleTransactions(userID string) []model.Transaction {
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	return []model.Transaction{
		{ID: "txn-1", UserID: userID, Date: base, Description: "TRADER JOE'S", Category: "Groceries", Amount: 54.20},
		{ID: "txn-2", UserID: userID, Date: base.AddDate(0, 0, 3), Description: "SHELL OIL", Category: "Transport", Amount: 40.00},
		{ID: "txn-3", UserID: userID, Date: base.AddDate(0, 0, 7), Description: "MYSTERY VENDOR", Amount: 12.99},
	}
}

func TestSaveAndGetTransactions(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, sampleTransactions("alice")))

	got, err := store.GetTransactions(ctx, service.TransactionFilter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "txn-1", got[0].ID, "oldest first")
	assert.Equal(t, "Groceries", got[0].Category)
	assert.Equal(t, "", got[2].Category, "uncategorized stays empty")

	// Re-saving the same IDs is a no-op, not an error.
	require.NoError(t, store.SaveTransactions(ctx, sampleTransactions("alice")))
	got, err = store.GetTransactions(ctx, service.TransactionFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestGetTransactionsFilters(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTransactions(ctx, sampleTransactions("alice")))

	start := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)
	got, err := store.GetTransactions(ctx, service.TransactionFilter{
		UserID:    "alice",
		StartDate: &start,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.GetTransactions(ctx, service.TransactionFilter{
		UserID:   "alice",
		Category: "Transport",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "txn-2", got[0].ID)

	got, err = store.GetTransactions(ctx, service.TransactionFilter{UserID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetLabeledSamples(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTransactions(ctx, sampleTransactions("alice")))

	samples, err := store.GetLabeledSamples(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, samples, 2, "uncategorized rows are not training data")
	assert.Equal(t, model.LabeledSample{Text: "TRADER JOE'S", Label: "Groceries"}, samples[0])
}

func TestSaveTransactionsRejectsInvalid(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		transactions []model.Transaction
	}{
		{name: "nil slice", transactions: nil},
		{name: "empty slice", transactions: []model.Transaction{}},
		{name: "missing ID", transactions: []model.Transaction{
			{UserID: "alice", Date: time.Now(), Description: "x"},
		}},
		{name: "missing description", transactions: []model.Transaction{
			{ID: "t", UserID: "alice", Date: time.Now()},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveTransactions(ctx, tt.transactions))
		})
	}
}

func TestSaveAndGetPrediction(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	prediction := &model.Prediction{
		ID:                "pred-1",
		UserID:            "alice",
		InputText:         "TRADER JOE'S #512",
		PredictedCategory: "Groceries",
		Confidence:        0.91,
		ModelVersion:      "1.0.1",
		Alternatives: model.CategoryScores{
			{Category: "Restaurants", Score: 0.06},
			{Category: "Transport", Score: 0.03},
		},
	}
	require.NoError(t, store.SavePrediction(ctx, prediction))
	assert.False(t, prediction.CreatedAt.IsZero())

	got, err := store.GetPredictionByID(ctx, "pred-1")
	require.NoError(t, err)
	assert.Equal(t, prediction.PredictedCategory, got.PredictedCategory)
	assert.Equal(t, prediction.Alternatives, got.Alternatives)

	_, err = store.GetPredictionByID(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetPredictionsByUser(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"pred-1", "pred-2", "pred-3"} {
		require.NoError(t, store.SavePrediction(ctx, &model.Prediction{
			ID:                id,
			UserID:            "alice",
			InputText:         "some merchant",
			PredictedCategory: "Groceries",
			Confidence:        0.8,
			ModelVersion:      "1.0.1",
			CreatedAt:         base.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := store.GetPredictionsByUser(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pred-3", got[0].ID, "newest first")
}

func TestSaveForecastUpserts(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	forecast := &model.Forecast{
		ID:              "fc-1",
		UserID:          "alice",
		Category:        "Groceries",
		Month:           7,
		Year:            2025,
		PredictedAmount: 420,
		ConfidenceLower: 380,
		ConfidenceUpper: 460,
		ConfidenceLevel: 0.95,
		Trend:           model.TrendIncreasing,
	}
	require.NoError(t, store.SaveForecast(ctx, forecast))

	// Regenerating for the same month overwrites rather than duplicating.
	updated := *forecast
	updated.ID = "fc-2"
	updated.PredictedAmount = 390
	updated.ConfidenceLower = 350
	updated.ConfidenceUpper = 430
	updated.Trend = model.TrendStable
	require.NoError(t, store.SaveForecast(ctx, &updated))

	got, err := store.GetForecasts(ctx, "alice", "Groceries")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 390.0, got[0].PredictedAmount)
	assert.Equal(t, model.TrendStable, got[0].Trend)
}

func TestGetForecastsChronological(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	months := []struct {
		year  int
		month int
	}{{2025, 12}, {2026, 1}, {2025, 11}}
	for i, m := range months {
		require.NoError(t, store.SaveForecast(ctx, &model.Forecast{
			ID:              "fc-" + string(rune('a'+i)),
			UserID:          "alice",
			Month:           m.month,
			Year:            m.year,
			PredictedAmount: 100,
			ConfidenceLower: 100,
			ConfidenceUpper: 100,
			ConfidenceLevel: 0.95,
			Trend:           model.TrendStable,
		}))
	}

	got, err := store.GetForecasts(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 11, got[0].Month)
	assert.Equal(t, 12, got[1].Month)
	assert.Equal(t, 2026, got[2].Year)
}

func TestSavePatternAnalysisMarksLatest(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	first := &model.PatternAnalysis{
		ID:             "pa-1",
		UserID:         "alice",
		PatternType:    "consistent_spender",
		StabilityScore: 0.8,
		StartDate:      start,
		EndDate:        start.AddDate(0, 3, 0),
		Patterns:       []model.DetectedPattern{{Type: "weekend_spender", Description: "d", Impact: "high"}},
		Insights:       []model.Insight{{Category: "spending_summary", Message: "m", Severity: model.SeverityInfo}},
	}
	require.NoError(t, store.SavePatternAnalysis(ctx, first))

	got, err := store.GetLatestPatternAnalysis(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pa-1", got.ID)
	assert.True(t, got.IsLatest)
	assert.Equal(t, first.Patterns, got.Patterns)
	assert.Equal(t, first.Insights, got.Insights)

	second := &model.PatternAnalysis{
		ID:             "pa-2",
		UserID:         "alice",
		PatternType:    "high_spender",
		StabilityScore: 0.4,
		UnusualDays:    3,
		StartDate:      start.AddDate(0, 3, 0),
		EndDate:        start.AddDate(0, 6, 0),
	}
	require.NoError(t, store.SavePatternAnalysis(ctx, second))

	got, err = store.GetLatestPatternAnalysis(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pa-2", got.ID, "new analysis supersedes the previous one")

	_, err = store.GetLatestPatternAnalysis(ctx, "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFeedbackCorrections(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	groceries := "Groceries"
	helpful := true

	records := []*model.Feedback{
		{ID: "fb-1", PredictionID: "pred-1", UserID: "alice", CorrectCategory: &groceries, CreatedAt: base.Add(time.Hour)},
		{ID: "fb-2", PredictionID: "pred-2", UserID: "alice", WasHelpful: &helpful, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "fb-3", PredictionID: "pred-3", UserID: "alice", CorrectCategory: &groceries, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, record := range records {
		require.NoError(t, store.SaveFeedback(ctx, record))
	}

	corrections, err := store.GetCorrectionsSince(ctx, base)
	require.NoError(t, err)
	require.Len(t, corrections, 2, "helpfulness-only feedback is not a correction")
	assert.Equal(t, "fb-1", corrections[0].ID)
	assert.Equal(t, "fb-3", corrections[1].ID)

	corrections, err = store.GetCorrectionsSince(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, "fb-3", corrections[0].ID)
}

func TestRegisterArtifactActivation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	trained := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	accuracy := 0.9

	first := &model.Artifact{
		ID:              "art-1",
		Name:            "transaction-classifier",
		Type:            model.TypeClassifier,
		Version:         "1.0.1",
		TrainedAt:       trained,
		TrainingSamples: 100,
		Accuracy:        &accuracy,
		Hyperparameters: map[string]string{"algorithm": "multinomial_naive_bayes"},
	}
	require.NoError(t, store.RegisterArtifact(ctx, first))
	assert.True(t, first.IsActive)

	active, err := store.GetActiveArtifact(ctx, model.TypeClassifier)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", active.Version)
	require.NotNil(t, active.Accuracy)
	assert.Equal(t, 0.9, *active.Accuracy)
	assert.Equal(t, "multinomial_naive_bayes", active.Hyperparameters["algorithm"])

	second := &model.Artifact{
		ID:              "art-2",
		Name:            "transaction-classifier",
		Type:            model.TypeClassifier,
		Version:         "1.0.2",
		TrainedAt:       trained.Add(time.Hour),
		TrainingSamples: 120,
	}
	require.NoError(t, store.RegisterArtifact(ctx, second))

	active, err = store.GetActiveArtifact(ctx, model.TypeClassifier)
	require.NoError(t, err)
	assert.Equal(t, "1.0.2", active.Version)
	assert.Nil(t, active.Accuracy)

	history, err := store.GetArtifactHistory(ctx, model.TypeClassifier)
	require.NoError(t, err)
	require.Len(t, history, 2)

	activeCount := 0
	for _, artifact := range history {
		if artifact.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount, "exactly one active version")

	count, err := store.CountArtifactVersions(ctx, "transaction-classifier", model.TypeClassifier)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetActiveArtifactNotTrained(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetActiveArtifact(context.Background(), model.TypeForecaster)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelNotTrained)
}

func TestMigrateIdempotent(t *testing.T) {
	store := newTestStorage(t)
	// newTestStorage already migrated once.
	assert.NoError(t, store.Migrate(context.Background()))
}

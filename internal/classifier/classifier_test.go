package classifier

import (
	"testing"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingSamples() []model.LabeledSample {
	return []model.LabeledSample{
		{Text: "TRADER JOE'S #512", Label: "Groceries"},
		{Text: "WHOLE FOODS MARKET", Label: "Groceries"},
		{Text: "KETAL FOODS DENVER", Label: "Groceries"},
		{Text: "SHELL OIL 5740", Label: "Transport"},
		{Text: "UBER *TRIP 4421", Label: "Transport"},
		{Text: "NETFLIX.COM", Label: "Entertainment"},
		{Text: "AMC THEATRES 0091", Label: "Entertainment"},
	}
}

func TestTrainAndPredict(t *testing.T) {
	params, report, err := Train(trainingSamples())
	require.NoError(t, err)
	require.NotNil(t, params)

	assert.Equal(t, model.TypeClassifier, report.ModelType)
	assert.Equal(t, 7, report.Samples)
	assert.Equal(t, 3, report.Categories)
	assert.Nil(t, report.Accuracy, "too few samples for a holdout estimate")

	clf := New(params)

	tests := []struct {
		name         string
		text         string
		wantCategory string
	}{
		{
			name:         "known merchant",
			text:         "TRADER JOE'S #512",
			wantCategory: "Groceries",
		},
		{
			name:         "shared token picks grocery class",
			text:         "KETAL SUPERMARKET",
			wantCategory: "Groceries",
		},
		{
			name:         "transport merchant",
			text:         "UBER *TRIP 9987",
			wantCategory: "Transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top, alternatives, err := clf.Predict(tt.text)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCategory, top.Category)
			assert.Greater(t, top.Score, 0.0)
			assert.LessOrEqual(t, top.Score, 1.0)

			// Alternatives exclude the top pick and rank descending.
			for _, alt := range alternatives {
				assert.NotEqual(t, top.Category, alt.Category)
				assert.LessOrEqual(t, alt.Score, top.Score)
			}
			for i := 1; i < len(alternatives); i++ {
				assert.GreaterOrEqual(t, alternatives[i-1].Score, alternatives[i].Score)
			}
		})
	}
}

func TestPredictDeterministic(t *testing.T) {
	params, _, err := Train(trainingSamples())
	require.NoError(t, err)
	clf := New(params)

	first, firstAlts, err := clf.Predict("SHELL OIL 5740")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		top, alts, err := clf.Predict("SHELL OIL 5740")
		require.NoError(t, err)
		assert.Equal(t, first, top)
		assert.Equal(t, firstAlts, alts)
	}
}

func TestPredictScoresSumToOne(t *testing.T) {
	params, _, err := Train(trainingSamples())
	require.NoError(t, err)
	clf := New(params)

	top, alternatives, err := clf.Predict("WHOLE FOODS")
	require.NoError(t, err)

	sum := top.Score
	for _, alt := range alternatives {
		sum += alt.Score
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestTrainIdempotent(t *testing.T) {
	samples := trainingSamples()

	first, _, err := Train(samples)
	require.NoError(t, err)
	second, _, err := Train(samples)
	require.NoError(t, err)

	firstPayload, err := first.Payload()
	require.NoError(t, err)
	secondPayload, err := second.Payload()
	require.NoError(t, err)
	assert.Equal(t, firstPayload, secondPayload, "identical input yields an identical artifact")

	texts := []string{"KETAL STORE VISIT", "SHELL OIL 5740", "NETFLIX.COM", "WHOLE FOODS MARKET"}
	for _, text := range texts {
		wantTop, wantAlts, err := New(first).Predict(text)
		require.NoError(t, err)
		gotTop, gotAlts, err := New(second).Predict(text)
		require.NoError(t, err)
		assert.Equal(t, wantTop, gotTop)
		assert.Equal(t, wantAlts, gotAlts)
	}
}

func TestTrainInsufficientData(t *testing.T) {
	_, _, err := Train([]model.LabeledSample{{Text: "only one", Label: "Misc"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInsufficientData)
}

func TestTrainRejectsBadSamples(t *testing.T) {
	tests := []struct {
		name    string
		samples []model.LabeledSample
	}{
		{
			name: "empty text",
			samples: []model.LabeledSample{
				{Text: "TRADER JOE'S", Label: "Groceries"},
				{Text: "12345 !!", Label: "Groceries"},
			},
		},
		{
			name: "missing label",
			samples: []model.LabeledSample{
				{Text: "TRADER JOE'S", Label: "Groceries"},
				{Text: "SHELL OIL", Label: ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Train(tt.samples)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestTrainWithBigramFeatures(t *testing.T) {
	samples := []model.LabeledSample{
		{Text: "WHOLE FOODS MARKET", Label: "Groceries"},
		{Text: "UBER TRIP HELP", Label: "Transport"},
	}

	params, _, err := TrainWithFeatures(samples, FeaturesBigram)
	require.NoError(t, err)
	assert.Equal(t, FeaturesBigram, params.Features)

	// The strategy survives the payload so serving extracts the same features.
	payload, err := params.Payload()
	require.NoError(t, err)
	clf, err := FromPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, FeaturesBigram, clf.Params().Strategy())

	top, _, err := clf.Predict("WHOLE FOODS")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", top.Category)
	assert.Greater(t, top.Score, 0.5)
}

func TestTrainRejectsUnknownFeatureStrategy(t *testing.T) {
	_, _, err := TrainWithFeatures(trainingSamples(), FeatureStrategy("tfidf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestPredictEmptyText(t *testing.T) {
	params, _, err := Train(trainingSamples())
	require.NoError(t, err)
	clf := New(params)

	_, _, err = clf.Predict("12345 !!!")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestPayloadRoundTrip(t *testing.T) {
	params, _, err := Train(trainingSamples())
	require.NoError(t, err)

	payload, err := params.Payload()
	require.NoError(t, err)

	restored, err := FromPayload(payload)
	require.NoError(t, err)

	wantTop, wantAlts, err := New(params).Predict("NETFLIX.COM")
	require.NoError(t, err)
	gotTop, gotAlts, err := restored.Predict("NETFLIX.COM")
	require.NoError(t, err)

	assert.Equal(t, wantTop, gotTop)
	assert.Equal(t, wantAlts, gotAlts)
}

func TestFromPayloadRejectsEmptyParams(t *testing.T) {
	_, err := FromPayload([]byte(`{"classes":[],"corpus":[],"vocab_size":0}`))
	assert.Error(t, err)

	_, err = FromPayload([]byte(`not json`))
	assert.Error(t, err)
}

func TestHoldoutAccuracyReported(t *testing.T) {
	// 12 samples, two labels, 6 each: enough for the 1-in-5 holdout.
	samples := make([]model.LabeledSample, 0, 12)
	for i := 0; i < 6; i++ {
		samples = append(samples,
			model.LabeledSample{Text: "TRADER JOES MARKET", Label: "Groceries"},
			model.LabeledSample{Text: "SHELL GAS STATION", Label: "Transport"},
		)
	}

	_, report, err := Train(samples)
	require.NoError(t, err)
	require.NotNil(t, report.Accuracy)
	assert.InDelta(t, 1.0, *report.Accuracy, 1e-9,
		"perfectly separable samples should hold out cleanly")
}

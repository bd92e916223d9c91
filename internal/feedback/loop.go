// Package feedback ingests user corrections for past predictions and drives
// threshold-gated retraining of the classifier. Retraining is an explicit,
// externally scheduled call; the package runs no background work.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/lucidfin/spendsage/internal/classifier"
	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/lucidfin/spendsage/internal/registry"
	"github.com/lucidfin/spendsage/internal/service"
)

// DefaultMinCorrections is the retrain trigger threshold: fewer accumulated
// corrections than this returns ErrNoRetrainNeeded, avoiding version churn
// on noise.
const DefaultMinCorrections = 10

// maxCorrectionShare caps how much of the merged training set corrections may
// replace: never more than the surviving original corpus.
const maxCorrectionShare = 0.5

// Loop aggregates corrections and retrains the classifier when enough have
// accumulated since the active version was trained.
type Loop struct {
	storage        service.Storage
	registry       *registry.Registry
	minCorrections int
}

// NewLoop creates a feedback loop. A non-positive minCorrections selects the
// default threshold.
func NewLoop(storage service.Storage, reg *registry.Registry, minCorrections int) *Loop {
	if minCorrections <= 0 {
		minCorrections = DefaultMinCorrections
	}
	return &Loop{storage: storage, registry: reg, minCorrections: minCorrections}
}

// Submit records feedback for an existing prediction. The prediction
// reference is checked before writing; a dangling ID fails with NotFound.
func (l *Loop) Submit(ctx context.Context, userID, predictionID string, correctCategory *string, wasHelpful *bool) (*model.Feedback, error) {
	if userID == "" {
		return nil, common.NewValidationError("userID", "user reference is required")
	}
	if predictionID == "" {
		return nil, common.NewValidationError("predictionID", "prediction reference is required")
	}

	if _, err := l.storage.GetPredictionByID(ctx, predictionID); err != nil {
		return nil, err
	}

	feedback := &model.Feedback{
		ID:              uuid.NewString(),
		PredictionID:    predictionID,
		UserID:          userID,
		CorrectCategory: correctCategory,
		WasHelpful:      wasHelpful,
	}
	if err := l.storage.SaveFeedback(ctx, feedback); err != nil {
		return nil, err
	}

	return feedback, nil
}

// Retrain merges corrections accumulated since the active classifier version
// into its training corpus and registers a new version. Returns
// ErrNoRetrainNeeded below the correction threshold. The previous version
// stays in history for rollback.
func (l *Loop) Retrain(ctx context.Context) (*model.TrainingReport, error) {
	artifact, payload, err := l.registry.LoadActive(ctx, model.TypeClassifier)
	if err != nil {
		return nil, err
	}

	corrections, err := l.storage.GetCorrectionsSince(ctx, artifact.TrainedAt)
	if err != nil {
		return nil, err
	}
	if len(corrections) < l.minCorrections {
		return nil, fmt.Errorf("%w: %d of %d corrections accumulated",
			common.ErrNoRetrainNeeded, len(corrections), l.minCorrections)
	}

	clf, err := classifier.FromPayload(payload)
	if err != nil {
		return nil, err
	}

	merged, used, err := l.mergeCorrections(ctx, clf.Params().Corpus, corrections)
	if err != nil {
		return nil, err
	}

	// Retrain with the same feature strategy the active version uses.
	params, report, err := classifier.TrainWithFeatures(merged, clf.Params().Strategy())
	if err != nil {
		return nil, err
	}
	newPayload, err := params.Payload()
	if err != nil {
		return nil, err
	}

	newArtifact := &model.Artifact{
		Name:            artifact.Name,
		Type:            model.TypeClassifier,
		TrainedAt:       report.TrainedAt,
		TrainingSamples: report.Samples,
		Accuracy:        report.Accuracy,
		Hyperparameters: map[string]string{
			"algorithm":   "multinomial_naive_bayes",
			"features":    string(clf.Params().Strategy()),
			"source":      "feedback_retrain",
			"corrections": strconv.Itoa(used),
		},
	}
	version, err := l.registry.Register(ctx, newArtifact, newPayload)
	if err != nil {
		return nil, err
	}
	report.Version = version

	slog.Info("Retrained classifier from feedback",
		"version", version,
		"corrections", used,
		"samples", report.Samples)

	return report, nil
}

// mergeCorrections replays corrections as labeled samples over the original
// corpus. A correction whose input text matches a corpus sample replaces it;
// the rest append, capped so corrections never outweigh the surviving corpus.
func (l *Loop) mergeCorrections(ctx context.Context, corpus []model.LabeledSample, corrections []model.Feedback) ([]model.LabeledSample, int, error) {
	// Later corrections win per input text.
	corrected := make(map[string]model.LabeledSample)
	order := make([]string, 0, len(corrections))
	for _, correction := range corrections {
		if !correction.IsCorrection() {
			continue
		}
		prediction, err := l.storage.GetPredictionByID(ctx, correction.PredictionID)
		if err != nil {
			return nil, 0, err
		}
		key := classifier.Normalize(prediction.InputText)
		if key == "" {
			continue
		}
		if _, seen := corrected[key]; !seen {
			order = append(order, key)
		}
		corrected[key] = model.LabeledSample{
			Text:  prediction.InputText,
			Label: *correction.CorrectCategory,
		}
	}

	merged := make([]model.LabeledSample, 0, len(corpus)+len(corrected))
	replaced := make(map[string]bool, len(corrected))
	for _, sample := range corpus {
		key := classifier.Normalize(sample.Text)
		if correction, ok := corrected[key]; ok {
			merged = append(merged, correction)
			replaced[key] = true
			continue
		}
		merged = append(merged, sample)
	}

	// Appended corrections are capped relative to the surviving corpus so a
	// burst of feedback cannot wash out the original training set.
	surviving := len(merged)
	maxAppend := int(float64(surviving) * maxCorrectionShare / (1 - maxCorrectionShare))
	appended := 0
	for i := len(order) - 1; i >= 0 && appended < maxAppend; i-- {
		key := order[i]
		if replaced[key] {
			continue
		}
		merged = append(merged, corrected[key])
		appended++
	}

	return merged, len(replaced) + appended, nil
}

package engine

import (
	"context"
	"strconv"

	"github.com/lucidfin/spendsage/internal/classifier"
	"github.com/lucidfin/spendsage/internal/forecaster"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/lucidfin/spendsage/internal/pattern"
	"github.com/lucidfin/spendsage/internal/registry"
	"github.com/lucidfin/spendsage/internal/service"
)

// TrainClassifier fits a fresh classifier on all categorized transactions and
// registers it as the active version.
func (e *Engine) TrainClassifier(ctx context.Context) (*model.TrainingReport, error) {
	samples, err := e.storage.GetLabeledSamples(ctx, "")
	if err != nil {
		return nil, err
	}

	params, report, err := classifier.TrainWithFeatures(samples, e.opts.ClassifierFeatures)
	if err != nil {
		return nil, err
	}
	payload, err := params.Payload()
	if err != nil {
		return nil, err
	}

	artifact := &model.Artifact{
		Name:            registry.ClassifierName,
		Type:            model.TypeClassifier,
		TrainedAt:       report.TrainedAt,
		TrainingSamples: report.Samples,
		Accuracy:        report.Accuracy,
		Hyperparameters: map[string]string{
			"algorithm": "multinomial_naive_bayes",
			"alpha":     "1.0",
			"features":  string(e.opts.ClassifierFeatures),
		},
	}
	version, err := e.registry.Register(ctx, artifact, payload)
	if err != nil {
		return nil, err
	}
	report.Version = version
	return report, nil
}

// TrainForecaster fits a fresh forecaster on the full transaction history and
// registers it as the active version.
func (e *Engine) TrainForecaster(ctx context.Context) (*model.TrainingReport, error) {
	history, err := e.storage.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	params, report, err := forecaster.Train(history, e.opts.ConfidenceLevel)
	if err != nil {
		return nil, err
	}
	payload, err := params.Payload()
	if err != nil {
		return nil, err
	}

	artifact := &model.Artifact{
		Name:            registry.ForecasterName,
		Type:            model.TypeForecaster,
		TrainedAt:       report.TrainedAt,
		TrainingSamples: report.Samples,
		Hyperparameters: map[string]string{
			"algorithm":        "ols_monthly",
			"confidence_level": strconv.FormatFloat(params.ConfidenceLevel, 'f', -1, 64),
		},
	}
	version, err := e.registry.Register(ctx, artifact, payload)
	if err != nil {
		return nil, err
	}
	report.Version = version
	return report, nil
}

// TrainPatternAnalyzer fits a fresh spending baseline on the full transaction
// history and registers it as the active version. A non-positive epochs
// selects the default budget.
func (e *Engine) TrainPatternAnalyzer(ctx context.Context, epochs int) (*model.TrainingReport, error) {
	if epochs <= 0 {
		epochs = pattern.DefaultEpochs
	}

	history, err := e.storage.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	params, report, err := pattern.Train(history, epochs)
	if err != nil {
		return nil, err
	}
	payload, err := params.Payload()
	if err != nil {
		return nil, err
	}

	artifact := &model.Artifact{
		Name:            registry.PatternAnalyzerName,
		Type:            model.TypePatternAnalyzer,
		TrainedAt:       report.TrainedAt,
		TrainingSamples: report.Samples,
		Hyperparameters: map[string]string{
			"algorithm": "robust_daily_baseline",
			"epochs":    strconv.Itoa(epochs),
		},
	}
	version, err := e.registry.Register(ctx, artifact, payload)
	if err != nil {
		return nil, err
	}
	report.Version = version
	return report, nil
}

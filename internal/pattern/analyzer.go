// Package pattern detects recurring spending behavior and scores its
// regularity. Training fits a robust daily baseline over historical
// transactions; analysis compares a window against that baseline to name
// patterns, generate insights and count unusual days.
package pattern

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
)

const (
	// MinTransactions is the smallest history that is statistically meaningful.
	MinTransactions = 10
	// DefaultEpochs bounds the iterative baseline refinement.
	DefaultEpochs = 50
	// unusualSigma is how many baseline standard deviations a day's spend may
	// deviate before it counts as unusual.
	unusualSigma = 2.0
	// outlierSigma trims days during baseline refinement.
	outlierSigma = 3.0
	// convergenceTolerance stops refinement early once the baseline settles.
	convergenceTolerance = 1e-9
)

// Params is the serializable baseline of a trained pattern analyzer.
type Params struct {
	DailyMean    float64 `json:"daily_mean"`
	DailyStd     float64 `json:"daily_std"`
	AmountCV     float64 `json:"amount_cv"`
	IntervalCV   float64 `json:"interval_cv"`
	IntervalMean float64 `json:"interval_mean_days"`
	TrainedDays  int     `json:"trained_days"`
	EpochsRun    int     `json:"epochs_run"`
	FinalLoss    float64 `json:"final_loss"`
}

// Payload serializes the params for artifact storage.
func (p *Params) Payload() ([]byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize pattern params: %w", err)
	}
	return payload, nil
}

// Result is the outcome of analyzing one spending window.
type Result struct {
	PatternType    string
	Patterns       []model.DetectedPattern
	Insights       []model.Insight
	StabilityScore float64
	UnusualDays    int
}

// Train fits the daily spending baseline. Refinement is iterative: each epoch
// re-estimates the mean and deviation over days within three sigma of the
// previous estimate, terminating on convergence or the epoch budget.
func Train(transactions []model.Transaction, epochs int) (*Params, *model.TrainingReport, error) {
	if epochs <= 0 {
		return nil, nil, common.NewValidationError("epochs", "must be a positive integer")
	}
	if len(transactions) < MinTransactions {
		return nil, nil, &common.InsufficientDataError{
			Got: len(transactions), Minimum: MinTransactions, Unit: "transactions",
		}
	}

	days := dailyTotals(transactions)
	totals := make([]float64, len(days))
	for i, day := range days {
		totals[i] = day.total
	}

	mean, std := meanStd(totals)
	epochsRun := 0
	loss := math.Inf(1)
	for epoch := 0; epoch < epochs; epoch++ {
		epochsRun = epoch + 1

		kept := totals[:0:0]
		for _, total := range totals {
			if std == 0 || math.Abs(total-mean) <= outlierSigma*std {
				kept = append(kept, total)
			}
		}
		if len(kept) == 0 {
			kept = totals
		}

		newMean, newStd := meanStd(kept)
		loss = math.Abs(newMean-mean) + math.Abs(newStd-std)
		mean, std = newMean, newStd
		if loss < convergenceTolerance {
			break
		}
	}

	amounts := make([]float64, len(transactions))
	for i, txn := range transactions {
		amounts[i] = txn.Amount
	}
	intervalMean, intervalCV := intervalStats(days)

	params := &Params{
		DailyMean:    mean,
		DailyStd:     std,
		AmountCV:     coefficientOfVariation(amounts),
		IntervalCV:   intervalCV,
		IntervalMean: intervalMean,
		TrainedDays:  len(days),
		EpochsRun:    epochsRun,
		FinalLoss:    loss,
	}
	report := &model.TrainingReport{
		ModelType: model.TypePatternAnalyzer,
		TrainedAt: time.Now().UTC(),
		Samples:   len(transactions),
		Epochs:    epochsRun,
	}

	return params, report, nil
}

// Analyzer serves pattern analyses from a fitted baseline.
type Analyzer struct {
	params *Params
}

// New creates an analyzer over fitted params.
func New(params *Params) *Analyzer {
	return &Analyzer{params: params}
}

// FromPayload deserializes an artifact payload into a servable analyzer.
func FromPayload(payload []byte) (*Analyzer, error) {
	var params Params
	if err := json.Unmarshal(payload, &params); err != nil {
		return nil, fmt.Errorf("failed to decode pattern params: %w", err)
	}
	if params.TrainedDays == 0 {
		return nil, fmt.Errorf("pattern params contain no fitted baseline")
	}
	return &Analyzer{params: &params}, nil
}

// Analyze examines a window of transactions against the trained baseline.
// Output is deterministic for identical input and model version: patterns and
// insights are emitted in a fixed order.
func (a *Analyzer) Analyze(window []model.Transaction) (*Result, error) {
	if len(window) == 0 {
		return nil, common.NewValidationError("window", "at least one transaction is required")
	}

	days := dailyTotals(window)
	amounts := make([]float64, len(window))
	for i, txn := range window {
		amounts[i] = txn.Amount
	}

	_, intervalCV := intervalStats(days)
	dispersion := coefficientOfVariation(amounts) + intervalCV
	stability := 1.0 / (1.0 + dispersion)

	unusual := a.countUnusualDays(days)

	windowDailyMean := 0.0
	for _, day := range days {
		windowDailyMean += day.total
	}
	windowDailyMean /= float64(len(days))

	return &Result{
		PatternType:    a.classifyPattern(windowDailyMean, stability),
		Patterns:       detectPatterns(window, days),
		Insights:       buildInsights(window, windowDailyMean, stability),
		StabilityScore: stability,
		UnusualDays:    unusual,
	}, nil
}

// countUnusualDays counts days whose spend deviates more than two baseline
// standard deviations from the trained mean. A degenerate baseline (zero
// deviation) flags any day that moves off the mean at all.
func (a *Analyzer) countUnusualDays(days []dayTotal) int {
	tolerance := unusualSigma * a.params.DailyStd
	if tolerance == 0 {
		tolerance = convergenceTolerance * math.Max(1, math.Abs(a.params.DailyMean))
	}

	unusual := 0
	for _, day := range days {
		if math.Abs(day.total-a.params.DailyMean) > tolerance {
			unusual++
		}
	}
	return unusual
}

// classifyPattern names the overall spending behavior of the window relative
// to the trained baseline.
func (a *Analyzer) classifyPattern(windowDailyMean, stability float64) string {
	if a.params.DailyMean > 0 {
		ratio := windowDailyMean / a.params.DailyMean
		if ratio > 1.25 {
			return "high_spender"
		}
		if ratio < 0.75 {
			return "low_spender"
		}
	}
	if stability < 0.5 {
		return "irregular_spender"
	}
	return "consistent_spender"
}

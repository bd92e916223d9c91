// Package forecaster projects future monthly spending from historical
// transactions. History is resampled to a fixed monthly grid with zero-fill
// for missing months, a least-squares trend is fitted per series, and
// confidence bounds come from the residual standard deviation.
package forecaster

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
)

const (
	// MinPeriods is the minimum distinct months required to fit a trend.
	MinPeriods = 2
	// MinMonthsAhead and MaxMonthsAhead bound the forecast horizon.
	MinMonthsAhead = 1
	MaxMonthsAhead = 24
	// DefaultConfidenceLevel is used when no level is configured.
	DefaultConfidenceLevel = 0.95
	// trendThresholdRatio scales the slope threshold by the series mean:
	// slopes within ±5% of the mean monthly spend count as stable.
	trendThresholdRatio = 0.05
)

// SeriesModel is the fitted trend for one spending series.
type SeriesModel struct {
	Intercept   float64 `json:"intercept"`
	Slope       float64 `json:"slope"`
	ResidualStd float64 `json:"residual_std"`
	MeanLevel   float64 `json:"mean_level"`
	Periods     int     `json:"periods"`
	LastYear    int     `json:"last_year"`
	LastMonth   int     `json:"last_month"`
}

// Params is the serializable state of a trained forecaster: one aggregate
// series plus one per category with sufficient history.
type Params struct {
	PerCategory     map[string]SeriesModel `json:"per_category,omitempty"`
	Aggregate       SeriesModel            `json:"aggregate"`
	ConfidenceLevel float64                `json:"confidence_level"`
}

// Payload serializes the params for artifact storage.
func (p *Params) Payload() ([]byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize forecaster params: %w", err)
	}
	return payload, nil
}

// Train fits the forecaster on historical transactions. The aggregate series
// requires at least MinPeriods distinct months; categories below that simply
// get no dedicated model.
func Train(history []model.Transaction, confidenceLevel float64) (*Params, *model.TrainingReport, error) {
	if confidenceLevel == 0 {
		confidenceLevel = DefaultConfidenceLevel
	}
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		return nil, nil, common.NewValidationError("confidenceLevel", "must be in (0, 1)")
	}

	aggregate, ok := fitSeries(monthlyTotals(history, ""))
	if !ok {
		return nil, nil, &common.InsufficientHistoryError{
			Got: len(monthlyTotals(history, "")), Minimum: MinPeriods, Unit: "distinct months",
		}
	}

	categories := make(map[string]struct{})
	for _, txn := range history {
		if txn.Category != "" {
			categories[txn.Category] = struct{}{}
		}
	}

	perCategory := make(map[string]SeriesModel)
	for category := range categories {
		if series, ok := fitSeries(monthlyTotals(history, category)); ok {
			perCategory[category] = series
		}
	}
	if len(perCategory) == 0 {
		perCategory = nil
	}

	params := &Params{
		Aggregate:       aggregate,
		PerCategory:     perCategory,
		ConfidenceLevel: confidenceLevel,
	}
	report := &model.TrainingReport{
		ModelType:  model.TypeForecaster,
		TrainedAt:  time.Now().UTC(),
		Samples:    len(history),
		Categories: len(perCategory),
	}

	return params, report, nil
}

// monthPoint is one cell of the monthly grid.
type monthPoint struct {
	year  int
	month int
	total float64
}

// monthlyTotals aggregates transactions onto a contiguous monthly grid from
// the first to the last observed month, zero-filling gaps. An empty category
// aggregates across all categories.
func monthlyTotals(history []model.Transaction, category string) []monthPoint {
	totals := make(map[int]float64)
	minKey, maxKey := math.MaxInt, math.MinInt

	for _, txn := range history {
		if category != "" && txn.Category != category {
			continue
		}
		key := txn.Date.Year()*12 + int(txn.Date.Month()) - 1
		totals[key] += txn.Amount
		if key < minKey {
			minKey = key
		}
		if key > maxKey {
			maxKey = key
		}
	}
	if len(totals) == 0 {
		return nil
	}

	grid := make([]monthPoint, 0, maxKey-minKey+1)
	for key := minKey; key <= maxKey; key++ {
		grid = append(grid, monthPoint{
			year:  key / 12,
			month: key%12 + 1,
			total: totals[key],
		})
	}
	return grid
}

// fitSeries fits an ordinary least-squares line over the monthly grid.
// Returns false when the grid is too short to carry a trend.
func fitSeries(grid []monthPoint) (SeriesModel, bool) {
	n := len(grid)
	if n < MinPeriods {
		return SeriesModel{}, false
	}

	var sumT, sumY, sumTT, sumTY float64
	for t, point := range grid {
		ft := float64(t)
		sumT += ft
		sumY += point.total
		sumTT += ft * ft
		sumTY += ft * point.total
	}
	fn := float64(n)
	denominator := fn*sumTT - sumT*sumT
	slope := (fn*sumTY - sumT*sumY) / denominator
	intercept := (sumY - slope*sumT) / fn

	var sse float64
	for t, point := range grid {
		residual := point.total - (intercept + slope*float64(t))
		sse += residual * residual
	}
	residualStd := 0.0
	if n > 2 {
		residualStd = math.Sqrt(sse / float64(n-2))
	}

	return SeriesModel{
		Intercept:   intercept,
		Slope:       slope,
		ResidualStd: residualStd,
		MeanLevel:   sumY / fn,
		Periods:     n,
		LastYear:    grid[n-1].year,
		LastMonth:   grid[n-1].month,
	}, true
}

// Forecaster serves forecasts from fitted params.
type Forecaster struct {
	params *Params
}

// New creates a forecaster over fitted params.
func New(params *Params) *Forecaster {
	return &Forecaster{params: params}
}

// FromPayload deserializes an artifact payload into a servable forecaster.
func FromPayload(payload []byte) (*Forecaster, error) {
	var params Params
	if err := json.Unmarshal(payload, &params); err != nil {
		return nil, fmt.Errorf("failed to decode forecaster params: %w", err)
	}
	if params.Aggregate.Periods == 0 {
		return nil, fmt.Errorf("forecaster params contain no fitted series")
	}
	return &Forecaster{params: &params}, nil
}

// Categories returns the category names with dedicated series, sorted.
func (f *Forecaster) Categories() []string {
	names := make([]string, 0, len(f.params.PerCategory))
	for name := range f.params.PerCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Forecast projects monthsAhead future months for a category (empty =
// all-categories aggregate). Each call is independent; records roll over year
// boundaries, negative projections are clamped to zero, and bounds always
// contain the point estimate.
func (f *Forecaster) Forecast(monthsAhead int, category string) ([]model.Forecast, error) {
	if monthsAhead < MinMonthsAhead || monthsAhead > MaxMonthsAhead {
		return nil, common.NewValidationError("monthsAhead",
			fmt.Sprintf("must be between %d and %d, got %d", MinMonthsAhead, MaxMonthsAhead, monthsAhead))
	}

	series := f.params.Aggregate
	if category != "" {
		var ok bool
		series, ok = f.params.PerCategory[category]
		if !ok {
			return nil, &common.NotFoundError{Entity: "category series", ID: category}
		}
	}

	margin := zScore(f.params.ConfidenceLevel) * series.ResidualStd
	trend := series.trend()

	forecasts := make([]model.Forecast, 0, monthsAhead)
	year, month := series.LastYear, series.LastMonth
	for i := 1; i <= monthsAhead; i++ {
		month++
		if month > 12 {
			month = 1
			year++
		}

		point := series.Intercept + series.Slope*float64(series.Periods-1+i)
		if point < 0 {
			point = 0
		}
		lower := point - margin
		if lower < 0 {
			lower = 0
		}

		forecasts = append(forecasts, model.Forecast{
			Category:        category,
			Month:           month,
			Year:            year,
			PredictedAmount: point,
			ConfidenceLower: lower,
			ConfidenceUpper: point + margin,
			ConfidenceLevel: f.params.ConfidenceLevel,
			Trend:           trend,
		})
	}

	return forecasts, nil
}

// trend derives the direction from the fitted slope relative to the series
// mean: within ±5% of the mean monthly spend counts as stable.
func (s SeriesModel) trend() model.Trend {
	threshold := trendThresholdRatio * math.Abs(s.MeanLevel)
	if threshold == 0 {
		threshold = 1e-9
	}
	switch {
	case s.Slope > threshold:
		return model.TrendIncreasing
	case s.Slope < -threshold:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// zScore converts a two-sided confidence level to a standard normal quantile.
func zScore(level float64) float64 {
	return math.Sqrt2 * math.Erfinv(level)
}

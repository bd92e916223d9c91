package model

import (
	"fmt"
	"time"
)

// Trend describes the direction of projected spending.
type Trend string

// Trend constants.
const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Forecast represents projected spending for one user, category and month.
// Category is empty for the all-categories aggregate. Regenerating a forecast
// for the same (user, category, year, month) overwrites the previous row.
type Forecast struct {
	CreatedAt       time.Time
	ID              string
	UserID          string
	Category        string
	Trend           Trend
	Month           int
	Year            int
	PredictedAmount float64
	ConfidenceLower float64
	ConfidenceUpper float64
	ConfidenceLevel float64
}

// Validate checks the structural invariants of a forecast record.
func (f *Forecast) Validate() error {
	if f.Month < 1 || f.Month > 12 {
		return fmt.Errorf("forecast month must be in [1, 12], got %d", f.Month)
	}
	if f.Year < 2000 {
		return fmt.Errorf("forecast year must be >= 2000, got %d", f.Year)
	}
	if f.PredictedAmount < 0 {
		return fmt.Errorf("predicted amount must be >= 0, got %.2f", f.PredictedAmount)
	}
	if f.ConfidenceLower > f.PredictedAmount || f.ConfidenceUpper < f.PredictedAmount {
		return fmt.Errorf("confidence bounds [%.2f, %.2f] must contain the prediction %.2f",
			f.ConfidenceLower, f.ConfidenceUpper, f.PredictedAmount)
	}
	if f.ConfidenceLevel <= 0 || f.ConfidenceLevel > 1 {
		return fmt.Errorf("confidence level must be in (0, 1], got %.2f", f.ConfidenceLevel)
	}
	return nil
}

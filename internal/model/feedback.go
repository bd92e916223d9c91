package model

import "time"

// Feedback records a user correction or helpfulness signal for a past
// prediction. Feedback rows are append-only and never mutated; they reference
// predictions weakly by ID.
type Feedback struct {
	CreatedAt       time.Time
	ID              string
	PredictionID    string
	UserID          string
	CorrectCategory *string
	WasHelpful      *bool
}

// IsCorrection reports whether this feedback carries a usable category
// correction for retraining.
func (f *Feedback) IsCorrection() bool {
	return f.CorrectCategory != nil && *f.CorrectCategory != ""
}

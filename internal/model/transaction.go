// Package model defines the core domain models used throughout the application.
package model

import "time"

// Transaction represents a single financial transaction in a user's history.
type Transaction struct {
	Date        time.Time
	ID          string
	UserID      string
	Description string
	Category    string
	AccountID   string
	Amount      float64
}

// LabeledSample pairs a transaction description with its known category.
// It is the unit of classifier training data.
type LabeledSample struct {
	Text  string
	Label string
}

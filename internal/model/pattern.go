package model

import (
	"fmt"
	"time"
)

// Severity grades a generated insight.
type Severity string

// Insight severity constants.
const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
)

// Insight is a category-tagged natural-language statement about spending behavior.
type Insight struct {
	Category string
	Message  string
	Severity Severity
}

// DetectedPattern names one recurring behavior found in a spending window.
type DetectedPattern struct {
	Type        string
	Description string
	Impact      string
}

// PatternAnalysis is the stored result of one pattern-analysis window.
// Re-running over an overlapping window appends a new row and marks it latest.
type PatternAnalysis struct {
	StartDate      time.Time
	EndDate        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ID             string
	UserID         string
	PatternType    string
	Patterns       []DetectedPattern
	Insights       []Insight
	StabilityScore float64
	UnusualDays    int
	IsLatest       bool
}

// Validate checks the structural invariants of a pattern analysis.
func (p *PatternAnalysis) Validate() error {
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("end date %s is before start date %s",
			p.EndDate.Format("2006-01-02"), p.StartDate.Format("2006-01-02"))
	}
	if p.StabilityScore < 0 || p.StabilityScore > 1 {
		return fmt.Errorf("stability score must be in [0, 1], got %.2f", p.StabilityScore)
	}
	if p.UnusualDays < 0 {
		return fmt.Errorf("unusual days must be >= 0, got %d", p.UnusualDays)
	}
	return nil
}

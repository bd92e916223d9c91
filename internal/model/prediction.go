package model

import (
	"fmt"
	"sort"
	"time"
)

// CategoryScore represents how strongly a transaction matches a category.
type CategoryScore struct {
	Category string
	Score    float64
}

// Validate ensures the CategoryScore has valid data.
func (s *CategoryScore) Validate() error {
	if s.Category == "" {
		return fmt.Errorf("category name is required")
	}
	if s.Score < 0.0 || s.Score > 1.0 {
		return fmt.Errorf("score must be between 0.0 and 1.0, got %.2f", s.Score)
	}
	return nil
}

// CategoryScores is a slice of CategoryScore that supports ranking operations.
type CategoryScores []CategoryScore

// Len implements sort.Interface.
func (s CategoryScores) Len() int { return len(s) }

// Less implements sort.Interface - higher scores come first.
func (s CategoryScores) Less(i, j int) bool {
	if s[i].Score != s[j].Score {
		return s[i].Score > s[j].Score
	}
	// Equal scores sort by category name for deterministic output.
	return s[i].Category < s[j].Category
}

// Swap implements sort.Interface.
func (s CategoryScores) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// Sort sorts the scores in descending order.
func (s CategoryScores) Sort() { sort.Sort(s) }

// Top returns the highest-scoring category, or nil if empty.
func (s CategoryScores) Top() *CategoryScore {
	if len(s) == 0 {
		return nil
	}
	s.Sort()
	return &s[0]
}

// Alternatives returns up to n ranked categories excluding the top pick.
func (s CategoryScores) Alternatives(n int) CategoryScores {
	if n <= 0 || len(s) < 2 {
		return CategoryScores{}
	}
	s.Sort()
	rest := s[1:]
	if n > len(rest) {
		n = len(rest)
	}
	result := make(CategoryScores, n)
	copy(result, rest[:n])
	return result
}

// Validate ensures all scores in the slice are valid and categories are unique.
func (s CategoryScores) Validate() error {
	seen := make(map[string]bool)
	for i, score := range s {
		if err := score.Validate(); err != nil {
			return fmt.Errorf("invalid score at index %d: %w", i, err)
		}
		if seen[score.Category] {
			return fmt.Errorf("duplicate category %q in scores", score.Category)
		}
		seen[score.Category] = true
	}
	return nil
}

// Prediction represents the stored outcome of one classification call.
// Predictions are immutable once created.
type Prediction struct {
	CreatedAt         time.Time
	ID                string
	UserID            string
	InputText         string
	PredictedCategory string
	ModelVersion      string
	Alternatives      CategoryScores
	Confidence        float64
}

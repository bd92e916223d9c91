package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
)

// SavePatternAnalysis appends a new analysis row and marks it latest for the
// user, clearing the flag on prior rows in the same transaction. Earlier
// analyses remain for audit.
func (s *SQLiteStorage) SavePatternAnalysis(ctx context.Context, analysis *model.PatternAnalysis) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePatternAnalysis(analysis); err != nil {
		return err
	}

	now := time.Now().UTC()
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = now
	}
	analysis.UpdatedAt = now
	analysis.IsLatest = true

	patterns, err := json.Marshal(analysis.Patterns)
	if err != nil {
		return fmt.Errorf("%w: marshal patterns: %v", common.ErrStorage, err)
	}
	insights, err := json.Marshal(analysis.Insights)
	if err != nil {
		return fmt.Errorf("%w: marshal insights: %v", common.ErrStorage, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", common.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE pattern_analyses SET is_latest = 0, updated_at = ?
		WHERE user_id = ? AND is_latest = 1
	`, now, analysis.UserID); err != nil {
		return fmt.Errorf("%w: clear latest analysis: %v", common.ErrStorage, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pattern_analyses (
			id, user_id, pattern_type, patterns, insights, stability_score,
			unusual_days, start_date, end_date, is_latest, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`, analysis.ID, analysis.UserID, analysis.PatternType,
		string(patterns), string(insights), analysis.StabilityScore,
		analysis.UnusualDays, analysis.StartDate, analysis.EndDate,
		analysis.CreatedAt, analysis.UpdatedAt); err != nil {
		return fmt.Errorf("%w: save analysis: %v", common.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit analysis: %v", common.ErrStorage, err)
	}
	return nil
}

// GetLatestPatternAnalysis returns the most recent analysis for a user.
func (s *SQLiteStorage) GetLatestPatternAnalysis(ctx context.Context, userID string) (*model.PatternAnalysis, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var analysis model.PatternAnalysis
	var patterns, insights string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, pattern_type, COALESCE(patterns, '[]'),
			COALESCE(insights, '[]'), stability_score, unusual_days,
			start_date, end_date, is_latest, created_at, updated_at
		FROM pattern_analyses
		WHERE user_id = ? AND is_latest = 1
	`, userID).Scan(&analysis.ID, &analysis.UserID, &analysis.PatternType,
		&patterns, &insights, &analysis.StabilityScore, &analysis.UnusualDays,
		&analysis.StartDate, &analysis.EndDate, &analysis.IsLatest,
		&analysis.CreatedAt, &analysis.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &common.NotFoundError{Entity: "pattern analysis", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get analysis: %v", common.ErrStorage, err)
	}

	if err := json.Unmarshal([]byte(patterns), &analysis.Patterns); err != nil {
		return nil, fmt.Errorf("%w: unmarshal patterns: %v", common.ErrStorage, err)
	}
	if err := json.Unmarshal([]byte(insights), &analysis.Insights); err != nil {
		return nil, fmt.Errorf("%w: unmarshal insights: %v", common.ErrStorage, err)
	}

	return &analysis, nil
}

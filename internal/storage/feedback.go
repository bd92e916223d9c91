package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
)

// SaveFeedback appends one feedback record. Feedback is append-only.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, feedback *model.Feedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if feedback == nil {
		return fmt.Errorf("%w: feedback", ErrNilParameter)
	}
	if feedback.ID == "" || feedback.PredictionID == "" || feedback.UserID == "" {
		return fmt.Errorf("%w: feedback missing ID, prediction ID or user ID", ErrInvalidEntity)
	}

	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, prediction_id, user_id, correct_category, was_helpful, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, feedback.ID, feedback.PredictionID, feedback.UserID,
		feedback.CorrectCategory, feedback.WasHelpful, feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: save feedback: %v", common.ErrStorage, err)
	}

	return nil
}

// GetCorrectionsSince returns feedback records created after the given time
// that carry a category correction, joined with the original input text so
// they can be replayed as training samples.
func (s *SQLiteStorage) GetCorrectionsSince(ctx context.Context, since time.Time) ([]model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.prediction_id, f.user_id, f.correct_category, f.was_helpful, f.created_at
		FROM feedback f
		WHERE f.created_at > ?
			AND f.correct_category IS NOT NULL AND f.correct_category != ''
		ORDER BY f.created_at ASC, f.id ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("%w: query corrections: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var corrections []model.Feedback
	for rows.Next() {
		var feedback model.Feedback
		if err := rows.Scan(&feedback.ID, &feedback.PredictionID, &feedback.UserID,
			&feedback.CorrectCategory, &feedback.WasHelpful, &feedback.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan feedback: %v", common.ErrStorage, err)
		}
		corrections = append(corrections, feedback)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate feedback: %v", common.ErrStorage, err)
	}

	return corrections, nil
}

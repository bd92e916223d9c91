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

// SavePrediction persists one classification result. Predictions are
// immutable; duplicate IDs are an error.
func (s *SQLiteStorage) SavePrediction(ctx context.Context, prediction *model.Prediction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePrediction(prediction); err != nil {
		return err
	}

	if prediction.CreatedAt.IsZero() {
		prediction.CreatedAt = time.Now().UTC()
	}

	alternatives, err := json.Marshal(prediction.Alternatives)
	if err != nil {
		return fmt.Errorf("%w: marshal alternatives: %v", common.ErrStorage, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (
			id, user_id, input_text, predicted_category, confidence,
			alternatives, model_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, prediction.ID, prediction.UserID, prediction.InputText,
		prediction.PredictedCategory, prediction.Confidence,
		string(alternatives), prediction.ModelVersion, prediction.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: save prediction: %v", common.ErrStorage, err)
	}

	return nil
}

// GetPredictionByID returns a single prediction by its ID.
func (s *SQLiteStorage) GetPredictionByID(ctx context.Context, id string) (*model.Prediction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, input_text, predicted_category, confidence,
			COALESCE(alternatives, '[]'), model_version, created_at
		FROM predictions WHERE id = ?
	`, id)

	prediction, err := scanPrediction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &common.NotFoundError{Entity: "prediction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get prediction: %v", common.ErrStorage, err)
	}
	return prediction, nil
}

// GetPredictionsByUser returns a user's predictions, newest first.
func (s *SQLiteStorage) GetPredictionsByUser(ctx context.Context, userID string, limit int) ([]model.Prediction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, input_text, predicted_category, confidence,
			COALESCE(alternatives, '[]'), model_version, created_at
		FROM predictions WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query predictions: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var predictions []model.Prediction
	for rows.Next() {
		prediction, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan prediction: %v", common.ErrStorage, err)
		}
		predictions = append(predictions, *prediction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate predictions: %v", common.ErrStorage, err)
	}

	return predictions, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (*model.Prediction, error) {
	var prediction model.Prediction
	var alternatives string

	err := row.Scan(&prediction.ID, &prediction.UserID, &prediction.InputText,
		&prediction.PredictedCategory, &prediction.Confidence,
		&alternatives, &prediction.ModelVersion, &prediction.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(alternatives), &prediction.Alternatives); err != nil {
		return nil, fmt.Errorf("unmarshal alternatives: %w", err)
	}
	return &prediction, nil
}

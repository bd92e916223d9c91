package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
)

// SaveForecast upserts a forecast on (user, category, year, month).
// Regenerating a forecast for the same period overwrites, not duplicates.
func (s *SQLiteStorage) SaveForecast(ctx context.Context, forecast *model.Forecast) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateForecast(forecast); err != nil {
		return err
	}

	if forecast.CreatedAt.IsZero() {
		forecast.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecasts (
			id, user_id, category, forecast_month, forecast_year,
			predicted_amount, confidence_lower, confidence_upper,
			confidence_level, trend, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, category, forecast_year, forecast_month) DO UPDATE SET
			predicted_amount = excluded.predicted_amount,
			confidence_lower = excluded.confidence_lower,
			confidence_upper = excluded.confidence_upper,
			confidence_level = excluded.confidence_level,
			trend = excluded.trend,
			created_at = excluded.created_at
	`, forecast.ID, forecast.UserID, forecast.Category,
		forecast.Month, forecast.Year, forecast.PredictedAmount,
		forecast.ConfidenceLower, forecast.ConfidenceUpper,
		forecast.ConfidenceLevel, string(forecast.Trend), forecast.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: save forecast: %v", common.ErrStorage, err)
	}

	return nil
}

// GetForecasts returns forecasts for a user and category in chronological
// order. An empty category selects the all-categories aggregate.
func (s *SQLiteStorage) GetForecasts(ctx context.Context, userID, category string) ([]model.Forecast, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, forecast_month, forecast_year,
			predicted_amount, confidence_lower, confidence_upper,
			confidence_level, COALESCE(trend, 'stable'), created_at
		FROM forecasts
		WHERE user_id = ? AND category = ?
		ORDER BY forecast_year ASC, forecast_month ASC
	`, userID, category)
	if err != nil {
		return nil, fmt.Errorf("%w: query forecasts: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var forecasts []model.Forecast
	for rows.Next() {
		var forecast model.Forecast
		var trend string
		if err := rows.Scan(&forecast.ID, &forecast.UserID, &forecast.Category,
			&forecast.Month, &forecast.Year, &forecast.PredictedAmount,
			&forecast.ConfidenceLower, &forecast.ConfidenceUpper,
			&forecast.ConfidenceLevel, &trend, &forecast.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan forecast: %v", common.ErrStorage, err)
		}
		forecast.Trend = model.Trend(trend)
		forecasts = append(forecasts, forecast)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate forecasts: %v", common.ErrStorage, err)
	}

	return forecasts, nil
}

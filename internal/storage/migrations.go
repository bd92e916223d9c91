package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: transactions, predictions, forecasts",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					amount REAL NOT NULL,
					category TEXT,
					account_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_user ON transactions(user_id)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,

				`CREATE TABLE IF NOT EXISTS predictions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					input_text TEXT NOT NULL,
					predicted_category TEXT NOT NULL,
					confidence REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
					alternatives TEXT,
					model_version TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_predictions_user ON predictions(user_id)`,
				`CREATE INDEX idx_predictions_created ON predictions(created_at)`,

				`CREATE TABLE IF NOT EXISTS forecasts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					forecast_month INTEGER NOT NULL CHECK (forecast_month >= 1 AND forecast_month <= 12),
					forecast_year INTEGER NOT NULL CHECK (forecast_year >= 2000),
					predicted_amount REAL NOT NULL,
					confidence_lower REAL NOT NULL DEFAULT 0,
					confidence_upper REAL NOT NULL DEFAULT 0,
					confidence_level REAL NOT NULL DEFAULT 0.95,
					trend TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(user_id, category, forecast_year, forecast_month)
				)`,
				`CREATE INDEX idx_forecasts_user ON forecasts(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Pattern analyses and training feedback",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS pattern_analyses (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					pattern_type TEXT NOT NULL,
					patterns TEXT,
					insights TEXT,
					stability_score REAL NOT NULL DEFAULT 0,
					unusual_days INTEGER NOT NULL DEFAULT 0,
					start_date DATE NOT NULL,
					end_date DATE NOT NULL,
					is_latest INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_pattern_analyses_user ON pattern_analyses(user_id)`,

				`CREATE TABLE IF NOT EXISTS feedback (
					id TEXT PRIMARY KEY,
					prediction_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					correct_category TEXT,
					was_helpful INTEGER,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (prediction_id) REFERENCES predictions(id)
				)`,
				`CREATE INDEX idx_feedback_prediction ON feedback(prediction_id)`,
				`CREATE INDEX idx_feedback_created ON feedback(created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Model artifact metadata with single-active constraint",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS model_artifacts (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					model_type TEXT NOT NULL,
					version TEXT NOT NULL,
					accuracy REAL,
					trained_at DATETIME NOT NULL,
					training_samples INTEGER NOT NULL DEFAULT 0,
					hyperparameters TEXT,
					is_active INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(name, model_type, version)
				)`,
				// At most one active artifact per (name, type)
				`CREATE UNIQUE INDEX idx_model_artifacts_active
					ON model_artifacts(name, model_type) WHERE is_active = 1`,
				`CREATE INDEX idx_model_artifacts_type ON model_artifacts(model_type)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Ensure the schema version table exists
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	err = s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	return nil
}

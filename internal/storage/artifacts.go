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

// RegisterArtifact persists new artifact metadata and atomically flips
// is_active from the prior holder to the new artifact. On failure the prior
// active artifact remains authoritative.
func (s *SQLiteStorage) RegisterArtifact(ctx context.Context, artifact *model.Artifact) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateArtifact(artifact); err != nil {
		return err
	}

	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}

	hyperparameters, err := json.Marshal(artifact.Hyperparameters)
	if err != nil {
		return fmt.Errorf("%w: marshal hyperparameters: %v", common.ErrStorage, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", common.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	// Deactivate the prior holder; superseded versions are kept for rollback.
	if _, err := tx.ExecContext(ctx, `
		UPDATE model_artifacts SET is_active = 0
		WHERE name = ? AND model_type = ? AND is_active = 1
	`, artifact.Name, string(artifact.Type)); err != nil {
		return fmt.Errorf("%w: deactivate prior artifact: %v", common.ErrStorage, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO model_artifacts (
			id, name, model_type, version, accuracy, trained_at,
			training_samples, hyperparameters, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	`, artifact.ID, artifact.Name, string(artifact.Type), artifact.Version,
		artifact.Accuracy, artifact.TrainedAt, artifact.TrainingSamples,
		string(hyperparameters), artifact.CreatedAt); err != nil {
		return fmt.Errorf("%w: insert artifact: %v", common.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit artifact registration: %v", common.ErrStorage, err)
	}

	artifact.IsActive = true
	return nil
}

// GetActiveArtifact returns the active artifact metadata for a model type.
// Returns a NotTrainedError when no artifact is active; callers must treat
// that as "serve a neutral default", never as fatal.
func (s *SQLiteStorage) GetActiveArtifact(ctx context.Context, modelType model.Type) (*model.Artifact, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !modelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidArtifact, modelType)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, model_type, version, accuracy, trained_at,
			training_samples, COALESCE(hyperparameters, '{}'), is_active, created_at
		FROM model_artifacts
		WHERE model_type = ? AND is_active = 1
	`, string(modelType))

	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &common.NotTrainedError{ModelType: modelType}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get active artifact: %v", common.ErrStorage, err)
	}
	return artifact, nil
}

// GetArtifactHistory returns all versions for a model type, newest first.
func (s *SQLiteStorage) GetArtifactHistory(ctx context.Context, modelType model.Type) ([]model.Artifact, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !modelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidArtifact, modelType)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, model_type, version, accuracy, trained_at,
			training_samples, COALESCE(hyperparameters, '{}'), is_active, created_at
		FROM model_artifacts
		WHERE model_type = ?
		ORDER BY created_at DESC, version DESC
	`, string(modelType))
	if err != nil {
		return nil, fmt.Errorf("%w: query artifact history: %v", common.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []model.Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan artifact: %v", common.ErrStorage, err)
		}
		artifacts = append(artifacts, *artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate artifacts: %v", common.ErrStorage, err)
	}

	return artifacts, nil
}

// CountArtifactVersions returns how many versions exist for (name, type).
func (s *SQLiteStorage) CountArtifactVersions(ctx context.Context, name string, modelType model.Type) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(name, "name"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM model_artifacts WHERE name = ? AND model_type = ?
	`, name, string(modelType)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count artifact versions: %v", common.ErrStorage, err)
	}
	return count, nil
}

func scanArtifact(row rowScanner) (*model.Artifact, error) {
	var artifact model.Artifact
	var modelType, hyperparameters string
	var accuracy sql.NullFloat64

	err := row.Scan(&artifact.ID, &artifact.Name, &modelType, &artifact.Version,
		&accuracy, &artifact.TrainedAt, &artifact.TrainingSamples,
		&hyperparameters, &artifact.IsActive, &artifact.CreatedAt)
	if err != nil {
		return nil, err
	}

	artifact.Type = model.Type(modelType)
	if accuracy.Valid {
		artifact.Accuracy = &accuracy.Float64
	}
	if err := json.Unmarshal([]byte(hyperparameters), &artifact.Hyperparameters); err != nil {
		return nil, fmt.Errorf("unmarshal hyperparameters: %w", err)
	}

	return &artifact, nil
}

// Package registry persists versioned model artifacts and controls which
// version serves predictions. Payloads live as JSON files on disk; metadata
// and the active flag live in storage. Activation is a single atomic swap:
// readers always see either the old or the new fully-formed artifact.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/lucidfin/spendsage/internal/common"
	"github.com/lucidfin/spendsage/internal/model"
)

// Default artifact names per model type.
const (
	ClassifierName      = "transaction-classifier"
	ForecasterName      = "expense-forecaster"
	PatternAnalyzerName = "pattern-analyzer"
)

// NameFor returns the default artifact name for a model type.
func NameFor(modelType model.Type) string {
	switch modelType {
	case model.TypeClassifier:
		return ClassifierName
	case model.TypeForecaster:
		return ForecasterName
	case model.TypePatternAnalyzer:
		return PatternAnalyzerName
	}
	return string(modelType)
}

// MetadataStore is the slice of the storage contract the registry needs.
type MetadataStore interface {
	RegisterArtifact(ctx context.Context, artifact *model.Artifact) error
	GetActiveArtifact(ctx context.Context, modelType model.Type) (*model.Artifact, error)
	GetArtifactHistory(ctx context.Context, modelType model.Type) ([]model.Artifact, error)
	CountArtifactVersions(ctx context.Context, name string, modelType model.Type) (int, error)
}

// Status reports whether a model type has an active artifact loaded.
type Status struct {
	Version string
	Path    string
	Loaded  bool
}

// Registry manages model artifact payloads and their activation lifecycle.
type Registry struct {
	store MetadataStore
	dir   string
	// Serializes the version-assign + activate step so competing trainings
	// cannot interleave their activation. Training itself runs outside
	// this lock.
	mu sync.Mutex
}

// New creates a registry storing payload files under dir.
func New(store MetadataStore, dir string) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Registry{store: store, dir: dir}, nil
}

// LoadActive returns the active artifact metadata and its payload bytes for
// the given model type. Returns a NotTrainedError when no version is active.
func (r *Registry) LoadActive(ctx context.Context, modelType model.Type) (*model.Artifact, []byte, error) {
	artifact, err := r.store.GetActiveArtifact(ctx, modelType)
	if err != nil {
		return nil, nil, err
	}

	payload, err := os.ReadFile(r.payloadPath(artifact))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read artifact payload %s: %v",
			common.ErrStorage, artifact.Version, err)
	}

	return artifact, payload, nil
}

// Register assigns the next version, persists the payload durably, then
// atomically activates the new artifact, deactivating the prior holder.
// On any failure the prior active artifact remains authoritative.
func (r *Registry) Register(ctx context.Context, artifact *model.Artifact, payload []byte) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("artifact is required")
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("artifact payload is required")
	}
	if artifact.Name == "" {
		artifact.Name = NameFor(artifact.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	count, err := r.store.CountArtifactVersions(ctx, artifact.Name, artifact.Type)
	if err != nil {
		return "", err
	}
	artifact.Version = fmt.Sprintf("1.0.%d", count+1)
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}

	// Write the payload fully before activation so readers can never observe
	// a partially written artifact.
	path := r.payloadPath(artifact)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0600); err != nil {
		return "", fmt.Errorf("%w: write artifact payload: %v", common.ErrStorage, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: finalize artifact payload: %v", common.ErrStorage, err)
	}

	if err := r.store.RegisterArtifact(ctx, artifact); err != nil {
		// Leave the payload file; the metadata never activated it, so the
		// prior version still serves.
		return "", err
	}

	return artifact.Version, nil
}

// Status returns per-type load state for health reporting.
func (r *Registry) Status(ctx context.Context) (map[model.Type]Status, error) {
	statuses := make(map[model.Type]Status, 3)

	for _, modelType := range []model.Type{
		model.TypeClassifier, model.TypeForecaster, model.TypePatternAnalyzer,
	} {
		artifact, err := r.store.GetActiveArtifact(ctx, modelType)
		switch {
		case err == nil:
			statuses[modelType] = Status{
				Loaded:  true,
				Version: artifact.Version,
				Path:    r.payloadPath(artifact),
			}
		case errors.Is(err, common.ErrModelNotTrained):
			// Not trained yet; report unloaded rather than failing.
			statuses[modelType] = Status{}
		default:
			return nil, err
		}
	}

	return statuses, nil
}

// History returns the append-only version history for a model type.
func (r *Registry) History(ctx context.Context, modelType model.Type) ([]model.Artifact, error) {
	return r.store.GetArtifactHistory(ctx, modelType)
}

func (r *Registry) payloadPath(artifact *model.Artifact) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s.json", artifact.Name, artifact.Version))
}

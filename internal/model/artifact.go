package model

import "time"

// Type identifies which prediction engine a model artifact belongs to.
type Type string

// Model type constants.
const (
	TypeClassifier      Type = "classifier"
	TypeForecaster      Type = "forecaster"
	TypePatternAnalyzer Type = "pattern_analyzer"
)

// Valid reports whether the type is one of the known engine types.
func (t Type) Valid() bool {
	switch t {
	case TypeClassifier, TypeForecaster, TypePatternAnalyzer:
		return true
	}
	return false
}

// Artifact holds the metadata for one trained model version.
// Artifacts are append-only: superseded versions are deactivated, never deleted.
type Artifact struct {
	TrainedAt       time.Time
	CreatedAt       time.Time
	Hyperparameters map[string]string
	ID              string
	Name            string
	Version         string
	Type            Type
	Accuracy        *float64
	TrainingSamples int
	IsActive        bool
}

// TrainingReport summarizes the outcome of a training run.
// Accuracy is nil when the sample count does not permit a held-out split.
type TrainingReport struct {
	TrainedAt  time.Time
	ModelType  Type
	Version    string
	Accuracy   *float64
	Samples    int
	Categories int
	Epochs     int
}

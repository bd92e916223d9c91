package main

import (
	"context"
	"fmt"

	"github.com/lucidfin/spendsage/internal/classifier"
	"github.com/lucidfin/spendsage/internal/config"
	"github.com/lucidfin/spendsage/internal/engine"
	"github.com/lucidfin/spendsage/internal/registry"
	"github.com/lucidfin/spendsage/internal/service"
	"github.com/lucidfin/spendsage/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/spendsage/spendsage.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initRegistry builds the model registry over the configured artifact
// directory.
func initRegistry(store service.Storage) (*registry.Registry, error) {
	modelsDir := viper.GetString("models.dir")
	if modelsDir == "" {
		modelsDir = "$HOME/.local/share/spendsage/models"
	}
	modelsDir = config.ExpandPath(modelsDir)

	return registry.New(store, modelsDir)
}

// initEngine wires storage, registry and engine from configuration. The
// caller owns closing the returned storage.
func initEngine(ctx context.Context) (*engine.Engine, service.Storage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	reg, err := initRegistry(store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	eng := engine.New(store, reg, engine.Options{
		ClassifierFeatures: classifier.FeatureStrategy(viper.GetString("classifier.features")),
		ConfidenceLevel:    viper.GetFloat64("forecaster.confidence_level"),
		MinCorrections:     viper.GetInt("feedback.min_corrections"),
	})

	return eng, store, nil
}

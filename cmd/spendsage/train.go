package main

import (
	"fmt"
	"log/slog"

	"github.com/lucidfin/spendsage/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train prediction models on stored transactions",
	}

	cmd.AddCommand(trainClassifierCmd())
	cmd.AddCommand(trainForecasterCmd())
	cmd.AddCommand(trainPatternsCmd())

	return cmd
}

func trainClassifierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classifier",
		Short: "Train the transaction category classifier",
		Long: `Fit the category classifier on all categorized transactions in the
database and activate it as the serving version. The previous version stays
in history for rollback.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := eng.TrainClassifier(ctx)
			if err != nil {
				return fmt.Errorf("classifier training failed: %w", err)
			}

			logTrainingReport(report)
			return nil
		},
	}

	cmd.Flags().String("features", "bag_of_words", "Feature strategy (bag_of_words, bigram)")
	_ = viper.BindPFlag("classifier.features", cmd.Flags().Lookup("features"))

	return cmd
}

func trainForecasterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecaster",
		Short: "Train the expense forecaster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := eng.TrainForecaster(ctx)
			if err != nil {
				return fmt.Errorf("forecaster training failed: %w", err)
			}

			logTrainingReport(report)
			return nil
		},
	}
}

func trainPatternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Train the spending pattern analyzer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			epochs, _ := cmd.Flags().GetInt("epochs")

			ctx := cmd.Context()
			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := eng.TrainPatternAnalyzer(ctx, epochs)
			if err != nil {
				return fmt.Errorf("pattern training failed: %w", err)
			}

			logTrainingReport(report)
			return nil
		},
	}

	cmd.Flags().Int("epochs", 0, "Baseline refinement epochs (0 = default)")

	return cmd
}

func logTrainingReport(report *model.TrainingReport) {
	attrs := []any{
		"model", report.ModelType,
		"version", report.Version,
		"samples", report.Samples,
	}
	if report.Accuracy != nil {
		attrs = append(attrs, "accuracy", fmt.Sprintf("%.3f", *report.Accuracy))
	}
	if report.Categories > 0 {
		attrs = append(attrs, "categories", report.Categories)
	}
	if report.Epochs > 0 {
		attrs = append(attrs, "epochs", report.Epochs)
	}
	slog.Info("✅ Training complete", attrs...)
}

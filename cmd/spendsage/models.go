package main

import (
	"fmt"
	"strconv"

	"github.com/lucidfin/spendsage/internal/cli"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/spf13/cobra"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect registered model versions",
	}

	cmd.AddCommand(modelsStatusCmd())
	cmd.AddCommand(modelsHistoryCmd())

	return cmd
}

func modelsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active version for each model type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			statuses, err := eng.ModelStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to read model status: %w", err)
			}

			fmt.Println(cli.FormatTitle("Model Status"))
			for _, modelType := range []model.Type{
				model.TypeClassifier, model.TypeForecaster, model.TypePatternAnalyzer,
			} {
				status := statuses[modelType]
				if status.Loaded {
					fmt.Printf("%s %s %s\n",
						cli.FormatSuccess(string(modelType)),
						cli.BoldStyle.Render(status.Version),
						cli.SubtleStyle.Render(status.Path))
				} else {
					fmt.Println(cli.FormatWarning(string(modelType) + " not trained"))
				}
			}

			return nil
		},
	}
}

func modelsHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the version history for one model type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			typeFlag, _ := cmd.Flags().GetString("type")
			modelType := model.Type(typeFlag)
			if !modelType.Valid() {
				return fmt.Errorf("invalid model type %q (classifier, forecaster, pattern_analyzer)", typeFlag)
			}

			ctx := cmd.Context()
			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			history, err := eng.History(ctx, modelType)
			if err != nil {
				return fmt.Errorf("failed to read model history: %w", err)
			}
			if len(history) == 0 {
				fmt.Println(cli.FormatWarning("No versions registered yet"))
				return nil
			}

			fmt.Println(cli.FormatTitle("Model History: " + string(modelType)))
			for _, artifact := range history {
				accuracy := "n/a"
				if artifact.Accuracy != nil {
					accuracy = strconv.FormatFloat(*artifact.Accuracy, 'f', 3, 64)
				}
				marker := " "
				if artifact.IsActive {
					marker = cli.SuccessIcon
				}
				fmt.Printf("%s %s  trained %s  samples %d  accuracy %s\n",
					marker,
					cli.BoldStyle.Render(artifact.Version),
					artifact.TrainedAt.Format("2006-01-02 15:04"),
					artifact.TrainingSamples,
					accuracy)
			}

			return nil
		},
	}

	cmd.Flags().StringP("type", "t", string(model.TypeClassifier), "Model type (classifier, forecaster, pattern_analyzer)")

	return cmd
}

package main

import (
	"fmt"

	"github.com/lucidfin/spendsage/internal/cli"
	"github.com/spf13/cobra"
)

func predictionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predictions",
		Short: "List recent predictions for a user",
		Long: `Show a user's stored predictions, newest first. Use the printed IDs with
"feedback submit" to correct a wrong category.`,
		RunE: runPredictions,
	}

	cmd.Flags().StringP("user", "u", "", "User whose predictions to list (required)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum predictions to show")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runPredictions(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	predictions, err := eng.RecentPredictions(ctx, userID, limit)
	if err != nil {
		return fmt.Errorf("failed to list predictions: %w", err)
	}
	if len(predictions) == 0 {
		fmt.Println(cli.FormatInfo("No predictions recorded yet"))
		return nil
	}

	fmt.Println(cli.FormatTitle("Recent Predictions"))
	for _, prediction := range predictions {
		fmt.Printf("%s  %s %s (%.1f%%)\n",
			cli.SubtleStyle.Render(prediction.CreatedAt.Format("2006-01-02 15:04")),
			cli.BoldStyle.Render(prediction.PredictedCategory),
			cli.SubtleStyle.Render("← "+prediction.InputText),
			prediction.Confidence*100)
		fmt.Printf("  %s\n", cli.SubtleStyle.Render("ID: "+prediction.ID))
	}

	return nil
}

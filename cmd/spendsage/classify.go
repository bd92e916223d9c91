package main

import (
	"fmt"
	"strings"

	"github.com/lucidfin/spendsage/internal/cli"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [description...]",
		Short: "Predict the category for a transaction description",
		Long: `Classify a transaction description with the active classifier and record
the prediction. Without a trained classifier the prediction falls back to
"Uncategorized" with zero confidence.

Examples:
  spendsage classify --user alice "TRADER JOE'S #512"
  spendsage classify --user alice --amount 42.17 SHELL OIL 5740`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().StringP("user", "u", "", "User the transaction belongs to (required)")
	cmd.Flags().Float64P("amount", "a", 0, "Transaction amount (optional)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	text := strings.Join(args, " ")

	var amount *float64
	if cmd.Flags().Changed("amount") {
		value, _ := cmd.Flags().GetFloat64("amount")
		amount = &value
	}

	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	prediction, err := eng.Classify(ctx, userID, text, amount)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	fmt.Println(cli.FormatTitle("Classification"))
	fmt.Printf("%s %s (confidence %.1f%%, model %s)\n",
		cli.BoldStyle.Render(prediction.PredictedCategory),
		cli.SubtleStyle.Render("← "+prediction.InputText),
		prediction.Confidence*100,
		prediction.ModelVersion)

	if len(prediction.Alternatives) > 0 {
		fmt.Println(cli.SubtleStyle.Render("Alternatives:"))
		for _, alt := range prediction.Alternatives {
			fmt.Printf("  %s (%.1f%%)\n", alt.Category, alt.Score*100)
		}
	}

	fmt.Println(cli.SubtleStyle.Render("Prediction ID: " + prediction.ID))

	return nil
}

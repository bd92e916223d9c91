package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lucidfin/spendsage/internal/cli"
	"github.com/lucidfin/spendsage/internal/common"
	"github.com/spf13/cobra"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record prediction feedback and drive retraining",
	}

	cmd.AddCommand(feedbackSubmitCmd())
	cmd.AddCommand(feedbackRetrainCmd())

	return cmd
}

func feedbackSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a correction or helpfulness signal for a prediction",
		Long: `Record feedback against a stored prediction. A --category flag marks the
prediction wrong and supplies the right answer; --helpful/--not-helpful
records whether the prediction was useful.

Examples:
  spendsage feedback submit --user alice --prediction 8f14e45f --category Groceries
  spendsage feedback submit --user alice --prediction 8f14e45f --helpful`,
		RunE: runFeedbackSubmit,
	}

	cmd.Flags().StringP("user", "u", "", "User submitting the feedback (required)")
	cmd.Flags().StringP("prediction", "p", "", "Prediction ID the feedback refers to (required)")
	cmd.Flags().StringP("category", "c", "", "The correct category, if the prediction was wrong")
	cmd.Flags().Bool("helpful", false, "Mark the prediction as helpful")
	cmd.Flags().Bool("not-helpful", false, "Mark the prediction as not helpful")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("prediction")

	return cmd
}

func runFeedbackSubmit(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	predictionID, _ := cmd.Flags().GetString("prediction")
	helpful, _ := cmd.Flags().GetBool("helpful")
	notHelpful, _ := cmd.Flags().GetBool("not-helpful")

	if helpful && notHelpful {
		return fmt.Errorf("--helpful and --not-helpful are mutually exclusive")
	}

	var correctCategory *string
	if cmd.Flags().Changed("category") {
		value, _ := cmd.Flags().GetString("category")
		if value == "" {
			return fmt.Errorf("--category requires a non-empty value")
		}
		correctCategory = &value
	}

	var wasHelpful *bool
	if helpful || notHelpful {
		value := helpful
		wasHelpful = &value
	}

	if correctCategory == nil && wasHelpful == nil {
		return fmt.Errorf("nothing to record: pass --category, --helpful, or --not-helpful")
	}

	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	feedback, err := eng.SubmitFeedback(ctx, userID, predictionID, correctCategory, wasHelpful)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Feedback recorded: " + feedback.ID))

	return nil
}

func feedbackRetrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retrain",
		Short: "Retrain the classifier from accumulated corrections",
		Long: `Fold corrections received since the active classifier was trained into
its training set and register a new version. Below the correction threshold
this is a no-op.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := eng.Retrain(ctx)
			if errors.Is(err, common.ErrNoRetrainNeeded) {
				slog.Info("Not enough corrections to retrain yet", "detail", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("retrain failed: %w", err)
			}

			logTrainingReport(report)
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/lucidfin/spendsage/internal/cli"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze spending patterns over recent history",
		Long: `Run the pattern analyzer over the user's recent transactions, store the
analysis as the latest, and print detected patterns and insights.`,
		RunE: runAnalyze,
	}

	cmd.Flags().StringP("user", "u", "", "User to analyze (required)")
	cmd.Flags().IntP("months", "m", 3, "Months of history to analyze")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	months, _ := cmd.Flags().GetInt("months")

	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	analysis, err := eng.AnalyzeRecent(ctx, userID, months)
	if err != nil {
		return fmt.Errorf("pattern analysis failed: %w", err)
	}

	fmt.Println(cli.FormatTitle("Spending Patterns"))
	fmt.Printf("Profile: %s  Stability: %.2f  Unusual days: %d\n",
		cli.BoldStyle.Render(analysis.PatternType),
		analysis.StabilityScore,
		analysis.UnusualDays)

	if len(analysis.Patterns) > 0 {
		fmt.Println(cli.SubtleStyle.Render("Detected patterns:"))
		for _, pattern := range analysis.Patterns {
			fmt.Printf("  %s %s (%s impact)\n",
				cli.ChartIcon, pattern.Description, pattern.Impact)
		}
	}

	for _, insight := range analysis.Insights {
		switch insight.Severity {
		case model.SeverityWarning:
			fmt.Println(cli.FormatWarning(insight.Message))
		default:
			fmt.Println(cli.FormatInfo(insight.Message))
		}
	}

	return nil
}

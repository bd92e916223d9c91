package main

import (
	"fmt"
	"time"

	"github.com/lucidfin/spendsage/internal/cli"
	"github.com/lucidfin/spendsage/internal/model"
	"github.com/spf13/cobra"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project spending for upcoming months",
		Long: `Generate monthly spending forecasts with the active forecaster and store
them. Re-running overwrites the forecast for each projected month.

Examples:
  spendsage forecast --user alice --months 3
  spendsage forecast --user alice --months 6 --category Groceries`,
		RunE: runForecast,
	}

	cmd.Flags().StringP("user", "u", "", "User to forecast for (required)")
	cmd.Flags().IntP("months", "m", 3, "Months ahead to project (1-24)")
	cmd.Flags().StringP("category", "c", "", "Category to project (default: all spending)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	months, _ := cmd.Flags().GetInt("months")
	category, _ := cmd.Flags().GetString("category")

	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	forecasts, err := eng.GenerateForecast(ctx, userID, category, months)
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	label := category
	if label == "" {
		label = "All spending"
	}
	fmt.Println(cli.FormatTitle("Forecast: " + label))

	for _, forecast := range forecasts {
		month := time.Month(forecast.Month).String()
		fmt.Printf("%s %d: %s  %s\n",
			month, forecast.Year,
			cli.BoldStyle.Render(fmt.Sprintf("$%.2f", forecast.PredictedAmount)),
			cli.SubtleStyle.Render(fmt.Sprintf("[$%.2f – $%.2f @ %.0f%%]",
				forecast.ConfidenceLower, forecast.ConfidenceUpper,
				forecast.ConfidenceLevel*100)))
	}

	if len(forecasts) > 0 {
		fmt.Println(styleTrend(forecasts[0].Trend))
	}

	return nil
}

func styleTrend(trend model.Trend) string {
	switch trend {
	case model.TrendIncreasing:
		return cli.FormatWarning("Trend: increasing")
	case model.TrendDecreasing:
		return cli.FormatSuccess("Trend: decreasing")
	default:
		return cli.FormatInfo("Trend: stable")
	}
}

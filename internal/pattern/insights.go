package pattern

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lucidfin/spendsage/internal/model"
)

// dayTotal is the aggregate spend for one calendar day with transactions.
type dayTotal struct {
	day   time.Time
	total float64
}

// dailyTotals aggregates a window onto its transaction days, sorted. Days
// without transactions are not materialized, so a perfectly periodic history
// carries zero dispersion.
func dailyTotals(transactions []model.Transaction) []dayTotal {
	totals := make(map[time.Time]float64)
	for _, txn := range transactions {
		day := txn.Date.Truncate(24 * time.Hour)
		totals[day] += txn.Amount
	}

	days := make([]dayTotal, 0, len(totals))
	for day, total := range totals {
		days = append(days, dayTotal{day: day, total: total})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].day.Before(days[j].day) })
	return days
}

// intervalStats returns the mean and coefficient of variation of gaps (in
// days) between consecutive transaction days.
func intervalStats(days []dayTotal) (mean, cv float64) {
	if len(days) < 2 {
		return 0, 0
	}
	intervals := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		intervals = append(intervals, days[i].day.Sub(days[i-1].day).Hours()/24)
	}
	mean, std := meanStd(intervals)
	if mean == 0 {
		return 0, 0
	}
	return mean, std / mean
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// coefficientOfVariation returns std/mean, or 0 for a zero mean.
func coefficientOfVariation(values []float64) float64 {
	mean, std := meanStd(values)
	if mean == 0 {
		return 0
	}
	return std / math.Abs(mean)
}

// detectPatterns names recurring behaviors in the window. Detection order is
// fixed so output is deterministic.
func detectPatterns(window []model.Transaction, days []dayTotal) []model.DetectedPattern {
	patterns := []model.DetectedPattern{}

	var weekendSum, weekdaySum float64
	var weekendCount, weekdayCount int
	for _, txn := range window {
		switch txn.Date.Weekday() {
		case time.Saturday, time.Sunday:
			weekendSum += txn.Amount
			weekendCount++
		default:
			weekdaySum += txn.Amount
			weekdayCount++
		}
	}
	if weekendCount > 0 && weekdayCount > 0 {
		weekendAvg := weekendSum / float64(weekendCount)
		weekdayAvg := weekdaySum / float64(weekdayCount)
		if weekdayAvg > 0 && weekendAvg > 1.5*weekdayAvg {
			patterns = append(patterns, model.DetectedPattern{
				Type:        "weekend_spender",
				Description: "Spending is significantly higher on weekends",
				Impact:      "high",
			})
		}
	}

	var earlySum, lateSum float64
	var earlyCount, lateCount int
	for _, txn := range window {
		switch day := txn.Date.Day(); {
		case day <= 10:
			earlySum += txn.Amount
			earlyCount++
		case day >= 20:
			lateSum += txn.Amount
			lateCount++
		}
	}
	if earlyCount > 0 && lateCount > 0 {
		earlyAvg := earlySum / float64(earlyCount)
		lateAvg := lateSum / float64(lateCount)
		if lateAvg > 0 && earlyAvg > 1.3*lateAvg {
			patterns = append(patterns, model.DetectedPattern{
				Type:        "early_month_spender",
				Description: "Spending is concentrated at the start of the month",
				Impact:      "medium",
			})
		}
	}

	if intervalMean, intervalCV := intervalStats(days); len(days) >= 3 && intervalMean >= 1 && intervalCV < 0.2 {
		patterns = append(patterns, model.DetectedPattern{
			Type:        "habitual_interval",
			Description: fmt.Sprintf("Transactions recur roughly every %.0f days", intervalMean),
			Impact:      "low",
		})
	}

	return patterns
}

// buildInsights produces the ordered, category-tagged insight list for a
// window. Insight count and order are deterministic for identical input.
func buildInsights(window []model.Transaction, windowDailyMean, stability float64) []model.Insight {
	insights := []model.Insight{{
		Category: "spending_summary",
		Message:  fmt.Sprintf("Average daily spend: $%.2f", windowDailyMean),
		Severity: model.SeverityInfo,
	}}

	if stability < 0.5 {
		insights = append(insights, model.Insight{
			Category: "variability",
			Message:  "Spending is highly variable; consider a stricter budget",
			Severity: model.SeverityWarning,
		})
	}

	categoryTotals := make(map[string]float64)
	for _, txn := range window {
		if txn.Category != "" {
			categoryTotals[txn.Category] += txn.Amount
		}
	}
	if len(categoryTotals) > 0 {
		names := make([]string, 0, len(categoryTotals))
		for name := range categoryTotals {
			names = append(names, name)
		}
		// Ties break lexicographically for deterministic output.
		sort.Strings(names)
		top := names[0]
		for _, name := range names[1:] {
			if categoryTotals[name] > categoryTotals[top] {
				top = name
			}
		}
		insights = append(insights, model.Insight{
			Category: "top_spending",
			Message:  fmt.Sprintf("Largest spending category is %s: $%.2f", top, categoryTotals[top]),
			Severity: model.SeverityInfo,
		})
	}

	return insights
}

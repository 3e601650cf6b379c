// ABOUTME: Derived deal metrics for forecasting and qualification
// ABOUTME: Weighted value, staleness, time to close, MEDDIC score, quota progress
package models

import (
	"math"
	"strings"
	"time"
)

const day = 24 * time.Hour

// WeightedValue is the probability-adjusted forecast contribution of a deal.
func WeightedValue(dealValue float64, probability int) float64 {
	return dealValue * float64(probability) / 100
}

// DaysSinceLastActivity counts whole days between the latest activity (or the
// deal's last update when there are none) and now.
func DaysSinceLastActivity(now time.Time, lastActivity *time.Time, updatedAt time.Time) int {
	last := updatedAt
	if lastActivity != nil {
		last = *lastActivity
	}
	return int(math.Floor(float64(now.Sub(last)) / float64(day)))
}

// DaysUntilClose rounds up to whole days; negative means overdue.
func DaysUntilClose(now time.Time, expectedClose time.Time) int {
	return int(math.Ceil(float64(expectedClose.Sub(now)) / float64(day)))
}

// MEDDICScore counts the completed MEDDIC fields, 0 through 6.
func MEDDICScore(d *Deal) int {
	score := 0
	for _, field := range []string{
		d.MeddicMetrics,
		d.MeddicEconomicBuyer,
		d.MeddicDecisionCriteria,
		d.MeddicDecisionProcess,
		d.MeddicIdentifyPain,
		d.MeddicChampion,
	} {
		if strings.TrimSpace(field) != "" {
			score++
		}
	}
	return score
}

// QuotaProgress is closed value as a percentage of the sales goal, uncapped.
func QuotaProgress(closed, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return closed / goal * 100
}

// DealMetrics bundles the derived values shown alongside a deal.
type DealMetrics struct {
	WeightedValue         float64 `json:"weighted_value"`
	MEDDICScore           int     `json:"meddic_score"`
	DaysSinceLastActivity int     `json:"days_since_last_activity"`
	DaysUntilClose        *int    `json:"days_until_close,omitempty"`
}

// ComputeDealMetrics derives the metrics for deal at now.
func ComputeDealMetrics(now time.Time, d *Deal, lastActivity *time.Time) DealMetrics {
	m := DealMetrics{
		WeightedValue:         WeightedValue(d.DealValue, d.Probability),
		MEDDICScore:           MEDDICScore(d),
		DaysSinceLastActivity: DaysSinceLastActivity(now, lastActivity, d.UpdatedAt),
	}
	if d.ExpectedCloseDate != nil {
		days := DaysUntilClose(now, *d.ExpectedCloseDate)
		m.DaysUntilClose = &days
	}
	return m
}

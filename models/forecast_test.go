// ABOUTME: Tests for derived deal metrics
// ABOUTME: Covers weighted value, staleness, close countdown, and MEDDIC scoring
package models

import (
	"testing"
	"time"
)

func TestWeightedValue(t *testing.T) {
	if got := WeightedValue(100000, 25); got != 25000 {
		t.Errorf("expected 25000, got %v", got)
	}
	if got := WeightedValue(100000, 0); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := WeightedValue(80000, 100); got != 80000 {
		t.Errorf("expected 80000, got %v", got)
	}
}

func TestDaysSinceLastActivity(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	updated := now.Add(-10 * 24 * time.Hour)

	// No activities falls back to updatedAt
	if got := DaysSinceLastActivity(now, nil, updated); got != 10 {
		t.Errorf("expected 10 days, got %d", got)
	}

	// Partial days are floored
	last := now.Add(-(3*24*time.Hour + 23*time.Hour))
	if got := DaysSinceLastActivity(now, &last, updated); got != 3 {
		t.Errorf("expected 3 days, got %d", got)
	}

	same := now.Add(-time.Minute)
	if got := DaysSinceLastActivity(now, &same, updated); got != 0 {
		t.Errorf("expected 0 days, got %d", got)
	}
}

func TestDaysUntilClose(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if got := DaysUntilClose(now, now.Add(36*time.Hour)); got != 2 {
		t.Errorf("expected 2 days (rounded up), got %d", got)
	}
	if got := DaysUntilClose(now, now.Add(-72*time.Hour)); got != -3 {
		t.Errorf("expected -3 (overdue), got %d", got)
	}
}

func TestMEDDICScoreCountsAnyThreeFields(t *testing.T) {
	combos := []Deal{
		{MeddicMetrics: "x", MeddicEconomicBuyer: "x", MeddicDecisionCriteria: "x"},
		{MeddicDecisionProcess: "x", MeddicIdentifyPain: "x", MeddicChampion: "x"},
		{MeddicMetrics: "x", MeddicIdentifyPain: "x", MeddicChampion: "x"},
	}
	for i, d := range combos {
		if got := MEDDICScore(&d); got != 3 {
			t.Errorf("combo %d: expected 3, got %d", i, got)
		}
	}

	full := Deal{
		MeddicMetrics: "a", MeddicEconomicBuyer: "b", MeddicDecisionCriteria: "c",
		MeddicDecisionProcess: "d", MeddicIdentifyPain: "e", MeddicChampion: "f",
	}
	if got := MEDDICScore(&full); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}

	blank := Deal{MeddicMetrics: "   "}
	if got := MEDDICScore(&blank); got != 0 {
		t.Errorf("whitespace should not count, got %d", got)
	}
}

func TestQuotaProgress(t *testing.T) {
	if got := QuotaProgress(250000, 500000); got != 50 {
		t.Errorf("expected 50, got %v", got)
	}
	if got := QuotaProgress(100, 0); got != 0 {
		t.Errorf("expected 0 with no goal, got %v", got)
	}
}

func TestComputeDealMetrics(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	closeDate := now.Add(5 * 24 * time.Hour)
	d := &Deal{
		DealValue:         40000,
		Probability:       50,
		ExpectedCloseDate: &closeDate,
		MeddicChampion:    "Dana",
		UpdatedAt:         now.Add(-48 * time.Hour),
	}

	m := ComputeDealMetrics(now, d, nil)
	if m.WeightedValue != 20000 {
		t.Errorf("expected weighted 20000, got %v", m.WeightedValue)
	}
	if m.MEDDICScore != 1 {
		t.Errorf("expected meddic 1, got %d", m.MEDDICScore)
	}
	if m.DaysSinceLastActivity != 2 {
		t.Errorf("expected 2 days since activity, got %d", m.DaysSinceLastActivity)
	}
	if m.DaysUntilClose == nil || *m.DaysUntilClose != 5 {
		t.Errorf("expected 5 days until close, got %v", m.DaysUntilClose)
	}
}

func TestDealFilterMatches(t *testing.T) {
	rep := Deal{ClientCompanyName: "Acme", Stage: StageQuoted}
	rep.SalesRepID[0] = 1

	company := "Acme"
	other := "Globex"

	if !(DealFilter{}).Matches(&rep) {
		t.Error("empty filter should match everything")
	}
	if !(DealFilter{ClientCompanyName: &company, Stages: []string{StageQuoted, StageWon}}).Matches(&rep) {
		t.Error("expected company+stage filter to match")
	}
	if (DealFilter{ClientCompanyName: &other}).Matches(&rep) {
		t.Error("company mismatch should not match")
	}
	if (DealFilter{Stages: []string{}}).Matches(&rep) {
		t.Error("empty non-nil stage set should match nothing")
	}
}

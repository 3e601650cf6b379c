// ABOUTME: Sales rep dashboard statistics and terminal rendering
// ABOUTME: YTD closed value, quota progress, stage counts, recent and stale deals, weighted forecast
package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
)

// StaleAfterDays is the inactivity threshold past which an open deal needs attention.
const StaleAfterDays = 14

const recentDealLimit = 5

// StatsSource is the part of the store the dashboard reads.
type StatsSource interface {
	WonValueSince(ctx context.Context, salesRepID uuid.UUID, since time.Time) (float64, error)
	CountDealsByStage(ctx context.Context, salesRepID uuid.UUID) ([]models.StageCount, error)
	FindDeals(ctx context.Context, filter models.DealFilter) ([]*models.Deal, error)
	LastActivityDate(ctx context.Context, dealID uuid.UUID) (*time.Time, error)
}

type DashboardStats struct {
	YTDClosed     float64
	SalesGoal     float64
	QuotaProgress float64

	DealsByStage []models.StageCount
	RecentDeals  []*models.Deal

	// Needs attention
	StaleDeals []StaleDeal

	Forecast []ForecastBucket
}

type StaleDeal struct {
	Deal      *models.Deal
	DaysSince int
}

// ForecastBucket sums open deals in one forecast category.
type ForecastBucket struct {
	Category      string
	Count         int
	DealValue     float64
	WeightedValue float64
}

func isOpen(stage string) bool {
	return stage != models.StageWon && stage != models.StageClosedLost
}

// GenerateDashboardStats builds the dashboard for the rep identified by id as of now.
func GenerateDashboardStats(ctx context.Context, src StatsSource, id *policy.Identity, now time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{SalesGoal: id.SalesGoal}

	startOfYear := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	ytd, err := src.WonValueSince(ctx, id.UserID, startOfYear)
	if err != nil {
		return nil, fmt.Errorf("failed to sum closed deals: %w", err)
	}
	stats.YTDClosed = ytd
	stats.QuotaProgress = models.QuotaProgress(ytd, id.SalesGoal)

	stats.DealsByStage, err = src.CountDealsByStage(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count deals by stage: %w", err)
	}

	deals, err := src.FindDeals(ctx, policy.DealScope(id, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	if len(deals) > recentDealLimit {
		stats.RecentDeals = deals[:recentDealLimit]
	} else {
		stats.RecentDeals = deals
	}

	buckets := make(map[string]*ForecastBucket, len(models.ForecastCategories))
	for _, category := range models.ForecastCategories {
		buckets[category] = &ForecastBucket{Category: category}
	}

	for _, deal := range deals {
		if !isOpen(deal.Stage) {
			continue
		}

		if b, ok := buckets[deal.ForecastCategory]; ok {
			b.Count++
			b.DealValue += deal.DealValue
			b.WeightedValue += models.WeightedValue(deal.DealValue, deal.Probability)
		}

		last, err := src.LastActivityDate(ctx, deal.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch last activity: %w", err)
		}
		days := models.DaysSinceLastActivity(now, last, deal.UpdatedAt)
		if days > StaleAfterDays {
			stats.StaleDeals = append(stats.StaleDeals, StaleDeal{Deal: deal, DaysSince: days})
		}
	}

	for _, category := range models.ForecastCategories {
		stats.Forecast = append(stats.Forecast, *buckets[category])
	}

	return stats, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginTop(1)

	barStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func formatK(v float64) string {
	return fmt.Sprintf("$%.0fK", v/1000)
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render("CRMLITE DASHBOARD"))
	out.WriteString("\n")

	out.WriteString(sectionStyle.Render("QUOTA"))
	out.WriteString("\n")
	out.WriteString(fmt.Sprintf("  YTD closed %s of %s goal  %s\n",
		formatK(stats.YTDClosed), formatK(stats.SalesGoal), renderBar(stats.QuotaProgress, 100)))
	out.WriteString(fmt.Sprintf("  %.1f%% to quota\n", stats.QuotaProgress))

	out.WriteString(sectionStyle.Render("PIPELINE"))
	out.WriteString("\n")
	renderPipeline(&out, stats.DealsByStage)

	out.WriteString(sectionStyle.Render("FORECAST"))
	out.WriteString("\n")
	for _, b := range stats.Forecast {
		if b.Count == 0 {
			continue
		}
		out.WriteString(fmt.Sprintf("  %-10s %2d deals  %s weighted of %s\n",
			b.Category, b.Count, formatK(b.WeightedValue), formatK(b.DealValue)))
	}

	if len(stats.RecentDeals) > 0 {
		out.WriteString(sectionStyle.Render("RECENT DEALS"))
		out.WriteString("\n")
		for _, deal := range stats.RecentDeals {
			out.WriteString(fmt.Sprintf("  %-30s %-12s %s\n",
				truncate(deal.DealName, 30), deal.Stage, dimStyle.Render(deal.ClientCompanyName)))
		}
	}

	if len(stats.StaleDeals) > 0 {
		out.WriteString(sectionStyle.Render("NEEDS ATTENTION"))
		out.WriteString("\n")
		for _, s := range stats.StaleDeals {
			out.WriteString(warnStyle.Render(fmt.Sprintf("  ⚠️  %s - %d days since activity", s.Deal.DealName, s.DaysSince)))
			out.WriteString("\n")
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, counts []models.StageCount) {
	byStage := make(map[string]int, len(counts))
	maxCount := 1
	for _, c := range counts {
		byStage[c.Stage] = c.Count
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}

	for _, stage := range models.Stages {
		count, ok := byStage[stage]
		if !ok {
			continue
		}
		out.WriteString(fmt.Sprintf("  %-12s %s %2d\n", stage, renderBar(float64(count), float64(maxCount)), count))
	}
}

// renderBar draws a 10 block bar for value out of full.
func renderBar(value, full float64) string {
	n := 0
	if full > 0 {
		n = int(value * 10 / full)
	}
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return barStyle.Render(strings.Repeat("█", n)) + strings.Repeat("░", 10-n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ABOUTME: Dashboard and identity handlers
// ABOUTME: Implements get_dashboard for sales reps and whoami for any signed-in user
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
	"github.com/harperreed/crmlite/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DashboardHandlers struct {
	store *db.Store
}

func NewDashboardHandlers(store *db.Store) *DashboardHandlers {
	return &DashboardHandlers{store: store}
}

type StaleDealOutput struct {
	Deal      DealOutput `json:"deal"`
	DaysSince int        `json:"days_since_last_activity"`
}

type ForecastOutput struct {
	Category      string  `json:"category"`
	Count         int     `json:"count"`
	DealValue     float64 `json:"deal_value"`
	WeightedValue float64 `json:"weighted_value"`
}

type DashboardOutput struct {
	YTDClosed     float64             `json:"ytd_closed"`
	SalesGoal     float64             `json:"sales_goal"`
	QuotaProgress float64             `json:"quota_progress"`
	DealsByStage  []models.StageCount `json:"deals_by_stage"`
	RecentDeals   []DealOutput        `json:"recent_deals"`
	StaleDeals    []StaleDealOutput   `json:"stale_deals"`
	Forecast      []ForecastOutput    `json:"forecast"`
}

type GetDashboardInput struct{}

// Dashboard computes the caller's dashboard statistics.
func (h *DashboardHandlers) Dashboard(ctx context.Context) (*viz.DashboardStats, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.CanViewDashboard(id); err != nil {
		return nil, err
	}

	stats, err := viz.GenerateDashboardStats(ctx, h.store, id, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return stats, nil
}

func (h *DashboardHandlers) GetDashboard(ctx context.Context, _ *mcp.CallToolRequest, _ GetDashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	stats, err := h.Dashboard(ctx)
	if err != nil {
		return nil, DashboardOutput{}, err
	}
	return nil, dashboardToOutput(stats), nil
}

func dashboardToOutput(stats *viz.DashboardStats) DashboardOutput {
	out := DashboardOutput{
		YTDClosed:     stats.YTDClosed,
		SalesGoal:     stats.SalesGoal,
		QuotaProgress: stats.QuotaProgress,
		DealsByStage:  stats.DealsByStage,
		RecentDeals:   make([]DealOutput, 0, len(stats.RecentDeals)),
		StaleDeals:    make([]StaleDealOutput, 0, len(stats.StaleDeals)),
		Forecast:      make([]ForecastOutput, 0, len(stats.Forecast)),
	}
	for _, d := range stats.RecentDeals {
		out.RecentDeals = append(out.RecentDeals, dealToOutput(d))
	}
	for _, s := range stats.StaleDeals {
		out.StaleDeals = append(out.StaleDeals, StaleDealOutput{Deal: dealToOutput(s.Deal), DaysSince: s.DaysSince})
	}
	for _, b := range stats.Forecast {
		out.Forecast = append(out.Forecast, ForecastOutput(b))
	}
	return out
}

type UserHandlers struct {
	store *db.Store
}

func NewUserHandlers(store *db.Store) *UserHandlers {
	return &UserHandlers{store: store}
}

type WhoAmIInput struct{}

type UserOutput struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	CompanyName string  `json:"company_name,omitempty"`
	SalesGoal   float64 `json:"sales_goal,omitempty"`
}

func (h *UserHandlers) WhoAmI(ctx context.Context, _ *mcp.CallToolRequest, _ WhoAmIInput) (*mcp.CallToolResult, UserOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, UserOutput{}, err
	}

	user, err := h.store.GetUser(ctx, id.UserID)
	if err != nil {
		return nil, UserOutput{}, missing(err, "User", "get")
	}

	return nil, UserOutput{
		ID:          user.ID.String(),
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		CompanyName: user.CompanyName,
		SalesGoal:   user.SalesGoal,
	}, nil
}

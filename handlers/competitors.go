// ABOUTME: Competitor handlers for tracking rival vendors on a deal
// ABOUTME: Implements list_competitors, add_competitor, update_competitor and delete_competitor
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CompetitorHandlers struct {
	store *db.Store
}

func NewCompetitorHandlers(store *db.Store) *CompetitorHandlers {
	return &CompetitorHandlers{store: store}
}

type CompetitorOutput struct {
	ID         string `json:"id"`
	DealID     string `json:"deal_id"`
	Name       string `json:"name"`
	Strengths  string `json:"strengths,omitempty"`
	Weaknesses string `json:"weaknesses,omitempty"`
	Status     string `json:"status"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func competitorToOutput(c *models.Competitor) CompetitorOutput {
	return CompetitorOutput{
		ID:         c.ID.String(),
		DealID:     c.DealID.String(),
		Name:       c.Name,
		Strengths:  c.Strengths,
		Weaknesses: c.Weaknesses,
		Status:     c.Status,
		Notes:      c.Notes,
		CreatedAt:  formatTime(c.CreatedAt),
		UpdatedAt:  formatTime(c.UpdatedAt),
	}
}

type ListCompetitorsInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
}

type ListCompetitorsOutput struct {
	Competitors []CompetitorOutput `json:"competitors"`
	Count       int                `json:"count"`
}

func (h *CompetitorHandlers) ListCompetitors(ctx context.Context, _ *mcp.CallToolRequest, input ListCompetitorsInput) (*mcp.CallToolResult, ListCompetitorsOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, ListCompetitorsOutput{}, err
	}

	dealID, err := parseID(input.DealID, "deal_id", "Deal")
	if err != nil {
		return nil, ListCompetitorsOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, ListCompetitorsOutput{}, err
	}
	if err := policy.CanReadDealDetail(id, deal); err != nil {
		return nil, ListCompetitorsOutput{}, err
	}

	competitors, err := h.store.FindCompetitors(ctx, deal.ID)
	if err != nil {
		return nil, ListCompetitorsOutput{}, fmt.Errorf("failed to list competitors: %w", err)
	}

	out := ListCompetitorsOutput{Competitors: make([]CompetitorOutput, 0, len(competitors)), Count: len(competitors)}
	for _, c := range competitors {
		out.Competitors = append(out.Competitors, competitorToOutput(c))
	}
	return nil, out, nil
}

type CreateCompetitorInput struct {
	DealID     string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Name       string `json:"name" jsonschema:"Competitor name (required)"`
	Strengths  string `json:"strengths,omitempty"`
	Weaknesses string `json:"weaknesses,omitempty"`
	Status     string `json:"status,omitempty" jsonschema:"ACTIVE, ELIMINATED or UNKNOWN (default ACTIVE)"`
	Notes      string `json:"notes,omitempty"`
}

func (h *CompetitorHandlers) CreateCompetitor(ctx context.Context, _ *mcp.CallToolRequest, input CreateCompetitorInput) (*mcp.CallToolResult, CompetitorOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, CompetitorOutput{}, err
	}

	if strings.TrimSpace(input.Name) == "" {
		return nil, CompetitorOutput{}, policy.Invalid("Name is required")
	}
	dealID, err := parseID(input.DealID, "deal_id", "Deal")
	if err != nil {
		return nil, CompetitorOutput{}, err
	}
	status := input.Status
	if status == "" {
		status = models.CompetitorActive
	}
	if err := requireEnum(status, "status", models.CompetitorStatuses); err != nil {
		return nil, CompetitorOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, CompetitorOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, CompetitorOutput{}, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return nil, CompetitorOutput{}, err
	}

	competitor := &models.Competitor{
		DealID:     deal.ID,
		Name:       strings.TrimSpace(input.Name),
		Strengths:  input.Strengths,
		Weaknesses: input.Weaknesses,
		Status:     status,
		Notes:      input.Notes,
	}
	if err := h.store.CreateCompetitor(ctx, competitor); err != nil {
		return nil, CompetitorOutput{}, fmt.Errorf("failed to create competitor: %w", err)
	}

	return nil, competitorToOutput(competitor), nil
}

type UpdateCompetitorInput struct {
	ID         string  `json:"id" jsonschema:"Competitor ID (required)"`
	Name       *string `json:"name,omitempty"`
	Strengths  *string `json:"strengths,omitempty"`
	Weaknesses *string `json:"weaknesses,omitempty"`
	Status     *string `json:"status,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

func (h *CompetitorHandlers) UpdateCompetitor(ctx context.Context, _ *mcp.CallToolRequest, input UpdateCompetitorInput) (*mcp.CallToolResult, CompetitorOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, CompetitorOutput{}, err
	}

	competitorID, err := parseID(input.ID, "id", "Competitor")
	if err != nil {
		return nil, CompetitorOutput{}, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, CompetitorOutput{}, policy.Invalid("Name is required")
	}
	if input.Status != nil {
		if err := requireEnum(*input.Status, "status", models.CompetitorStatuses); err != nil {
			return nil, CompetitorOutput{}, err
		}
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, CompetitorOutput{}, err
	}

	competitor, err := h.loadForWrite(ctx, id, competitorID)
	if err != nil {
		return nil, CompetitorOutput{}, err
	}

	if input.Name != nil {
		competitor.Name = strings.TrimSpace(*input.Name)
	}
	setString(&competitor.Strengths, input.Strengths)
	setString(&competitor.Weaknesses, input.Weaknesses)
	setString(&competitor.Status, input.Status)
	setString(&competitor.Notes, input.Notes)

	if err := h.store.UpdateCompetitor(ctx, competitor); err != nil {
		return nil, CompetitorOutput{}, missing(err, "Competitor", "update")
	}

	return nil, competitorToOutput(competitor), nil
}

type DeleteCompetitorInput struct {
	ID string `json:"id" jsonschema:"Competitor ID (required)"`
}

func (h *CompetitorHandlers) DeleteCompetitor(ctx context.Context, _ *mcp.CallToolRequest, input DeleteCompetitorInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	competitorID, err := parseID(input.ID, "id", "Competitor")
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, DeleteOutput{}, err
	}

	competitor, err := h.loadForWrite(ctx, id, competitorID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := h.store.DeleteCompetitor(ctx, competitor.ID); err != nil {
		return nil, DeleteOutput{}, missing(err, "Competitor", "delete")
	}

	return nil, DeleteOutput{Success: true, Message: fmt.Sprintf("Competitor %s deleted successfully", competitor.ID)}, nil
}

func (h *CompetitorHandlers) loadForWrite(ctx context.Context, id *policy.Identity, competitorID uuid.UUID) (*models.Competitor, error) {
	competitor, err := h.store.GetCompetitor(ctx, competitorID)
	if err != nil {
		return nil, missing(err, "Competitor", "get")
	}
	deal, err := loadDeal(ctx, h.store, competitor.DealID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return nil, err
	}
	return competitor, nil
}

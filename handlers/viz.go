// ABOUTME: GraphViz visualization handlers
// ABOUTME: Provides generate_graph for the pipeline and for a single deal's stakeholders
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/policy"
	"github.com/harperreed/crmlite/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	store *db.Store
}

func NewVizHandlers(store *db.Store) *VizHandlers {
	return &VizHandlers{store: store}
}

type GenerateGraphInput struct {
	Type     string `json:"type" jsonschema:"Graph type: pipeline or deal"`
	EntityID string `json:"entity_id,omitempty" jsonschema:"Deal ID (required for deal graphs)"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, _ *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, GenerateGraphOutput{}, err
	}

	var dot string
	switch input.Type {
	case "pipeline":
		dot, err = h.pipelineGraph(ctx, id)
	case "deal":
		dot, err = h.dealGraph(ctx, id, input.EntityID)
	case "":
		return nil, GenerateGraphOutput{}, policy.Invalid("type is required")
	default:
		return nil, GenerateGraphOutput{}, policy.Invalid(fmt.Sprintf("unknown graph type: %s (valid types: pipeline, deal)", input.Type))
	}
	if err != nil {
		return nil, GenerateGraphOutput{}, err
	}

	return nil, GenerateGraphOutput{
		GraphType: input.Type,
		DOTSource: dot,
		NodeCount: strings.Count(dot, "[label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}

// PipelineGraph renders the caller's own deals by stage.
func (h *VizHandlers) PipelineGraph(ctx context.Context) (string, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return "", err
	}
	return h.pipelineGraph(ctx, id)
}

func (h *VizHandlers) pipelineGraph(ctx context.Context, id *policy.Identity) (string, error) {
	if err := policy.CanViewDashboard(id); err != nil {
		return "", err
	}

	deals, err := h.store.FindDeals(ctx, policy.DealScope(id, ""))
	if err != nil {
		return "", fmt.Errorf("failed to list deals: %w", err)
	}

	dot, err := viz.GeneratePipelineGraph(ctx, deals)
	if err != nil {
		return "", fmt.Errorf("failed to generate graph: %w", err)
	}
	return dot, nil
}

// DealGraph renders one deal's contacts and competitors.
func (h *VizHandlers) DealGraph(ctx context.Context, dealIDValue string) (string, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return "", err
	}
	return h.dealGraph(ctx, id, dealIDValue)
}

func (h *VizHandlers) dealGraph(ctx context.Context, id *policy.Identity, dealIDValue string) (string, error) {
	dealID, err := parseID(dealIDValue, "entity_id", "Deal")
	if err != nil {
		return "", err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return "", err
	}
	if err := policy.CanReadDealDetail(id, deal); err != nil {
		return "", err
	}

	contacts, err := h.store.FindContacts(ctx, deal.ID)
	if err != nil {
		return "", fmt.Errorf("failed to list contacts: %w", err)
	}
	competitors, err := h.store.FindCompetitors(ctx, deal.ID)
	if err != nil {
		return "", fmt.Errorf("failed to list competitors: %w", err)
	}

	dot, err := viz.GenerateDealGraph(ctx, deal, contacts, competitors)
	if err != nil {
		return "", fmt.Errorf("failed to generate graph: %w", err)
	}
	return dot, nil
}

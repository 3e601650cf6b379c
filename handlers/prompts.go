// ABOUTME: MCP prompt handlers for reusable deal workflow templates
// ABOUTME: Builds deal-review and pipeline-review prompts from what the caller may see
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	store *db.Store
}

func NewPromptHandlers(store *db.Store) *PromptHandlers {
	return &PromptHandlers{store: store}
}

// Prompts lists the prompt templates served by GetPrompt.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "deal-review",
			Description: "Review one deal with its stakeholders, competitors and recent activity",
			Arguments: []*mcp.PromptArgument{
				{Name: "deal_id", Description: "Deal ID", Required: true},
			},
		},
		{
			Name:        "pipeline-review",
			Description: "Analyze the deals visible to the caller and suggest where to focus",
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, err
	}

	switch request.Params.Name {
	case "deal-review":
		return h.dealReview(ctx, id, request.Params.Arguments)
	case "pipeline-review":
		return h.pipelineReview(ctx, id)
	default:
		return nil, policy.Invalid(fmt.Sprintf("unknown prompt: %s", request.Params.Name))
	}
}

func (h *PromptHandlers) dealReview(ctx context.Context, id *policy.Identity, args map[string]string) (*mcp.GetPromptResult, error) {
	dealID, err := parseID(args["deal_id"], "deal_id", "Deal")
	if err != nil {
		return nil, err
	}
	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadDealDetail(id, deal); err != nil {
		return nil, err
	}

	contacts, err := h.store.FindContacts(ctx, deal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	competitors, err := h.store.FindCompetitors(ctx, deal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch competitors: %w", err)
	}
	activities, err := h.store.FindActivities(ctx, deal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	var text strings.Builder
	text.WriteString("Please review this deal:\n\n")
	fmt.Fprintf(&text, "Deal: %s\n", deal.DealName)
	fmt.Fprintf(&text, "Client: %s\n", deal.ClientCompanyName)
	fmt.Fprintf(&text, "Stage: %s (%d%% probability, forecast %s)\n", deal.Stage, deal.Probability, deal.ForecastCategory)
	fmt.Fprintf(&text, "Value: $%.2f, gross profit $%.2f\n", deal.DealValue, deal.GrossProfit)
	if deal.ExpectedCloseDate != nil {
		fmt.Fprintf(&text, "Expected close: %s\n", deal.ExpectedCloseDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&text, "MEDDIC: %d/6 qualified\n", models.MEDDICScore(deal))

	if len(contacts) > 0 {
		text.WriteString("\nStakeholders:\n")
		for _, c := range contacts {
			primary := ""
			if c.IsPrimary {
				primary = " [primary]"
			}
			fmt.Fprintf(&text, "  - %s (%s)%s\n", c.Name, c.Role, primary)
		}
	}
	if len(competitors) > 0 {
		text.WriteString("\nCompetitors:\n")
		for _, c := range competitors {
			fmt.Fprintf(&text, "  - %s (%s)\n", c.Name, c.Status)
		}
	}
	if len(activities) > 0 {
		text.WriteString("\nRecent activity:\n")
		for i, a := range activities {
			if i == 5 {
				break
			}
			fmt.Fprintf(&text, "  - %s %s: %s\n", a.ActivityDate.Format("2006-01-02"), a.Type, a.Subject)
		}
	}

	text.WriteString("\nPlease provide:")
	text.WriteString("\n1. An honest read on whether the forecast category fits")
	text.WriteString("\n2. Gaps in stakeholder coverage")
	text.WriteString("\n3. Concrete next actions to move the deal forward")

	return userPrompt(fmt.Sprintf("Review of deal: %s", deal.DealName), text.String()), nil
}

func (h *PromptHandlers) pipelineReview(ctx context.Context, id *policy.Identity) (*mcp.GetPromptResult, error) {
	deals, err := h.store.FindDeals(ctx, policy.DealScope(id, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	counts := make(map[string]int)
	values := make(map[string]float64)
	var total float64
	for _, deal := range deals {
		counts[deal.Stage]++
		values[deal.Stage] += deal.DealValue
		total += deal.DealValue
	}

	var text strings.Builder
	text.WriteString("Please analyze this deal pipeline:\n\n")
	fmt.Fprintf(&text, "Total deals: %d\n", len(deals))
	fmt.Fprintf(&text, "Total value: $%.2f\n\n", total)
	text.WriteString("By stage:\n")
	for _, stage := range models.Stages {
		if counts[stage] == 0 {
			continue
		}
		fmt.Fprintf(&text, "  - %s: %d deals, $%.2f\n", stage, counts[stage], values[stage])
	}

	text.WriteString("\nPlease provide:")
	text.WriteString("\n1. Analysis of pipeline health and distribution")
	text.WriteString("\n2. Deals that may need attention")
	text.WriteString("\n3. Suggestions for improving conversion")

	return userPrompt("Deal pipeline analysis", text.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}

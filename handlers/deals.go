// ABOUTME: Deal handlers shared by the MCP tools, REST API and CLI
// ABOUTME: Implements list_deals, create_deal, get_deal, update_deal and delete_deal
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
	"github.com/harperreed/crmlite/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DealHandlers struct {
	store  *db.Store
	blobs  *storage.Local
	logger *log.Logger
}

func NewDealHandlers(store *db.Store, blobs *storage.Local, logger *log.Logger) *DealHandlers {
	return &DealHandlers{store: store, blobs: blobs, logger: logger}
}

type DealOutput struct {
	ID                     string  `json:"id"`
	SalesRepID             string  `json:"sales_rep_id"`
	DealName               string  `json:"deal_name"`
	ClientCompanyName      string  `json:"client_company_name"`
	Stage                  string  `json:"stage"`
	DealValue              float64 `json:"deal_value"`
	GrossProfit            float64 `json:"gross_profit"`
	ExpectedCloseDate      *string `json:"expected_close_date,omitempty"`
	Probability            int     `json:"probability"`
	ForecastCategory       string  `json:"forecast_category"`
	MeddicMetrics          string  `json:"meddic_metrics,omitempty"`
	MeddicEconomicBuyer    string  `json:"meddic_economic_buyer,omitempty"`
	MeddicDecisionCriteria string  `json:"meddic_decision_criteria,omitempty"`
	MeddicDecisionProcess  string  `json:"meddic_decision_process,omitempty"`
	MeddicIdentifyPain     string  `json:"meddic_identify_pain,omitempty"`
	MeddicChampion         string  `json:"meddic_champion,omitempty"`
	CreatedAt              string  `json:"created_at"`
	UpdatedAt              string  `json:"updated_at"`
}

func dealToOutput(deal *models.Deal) DealOutput {
	return DealOutput{
		ID:                     deal.ID.String(),
		SalesRepID:             deal.SalesRepID.String(),
		DealName:               deal.DealName,
		ClientCompanyName:      deal.ClientCompanyName,
		Stage:                  deal.Stage,
		DealValue:              deal.DealValue,
		GrossProfit:            deal.GrossProfit,
		ExpectedCloseDate:      formatOptionalTime(deal.ExpectedCloseDate),
		Probability:            deal.Probability,
		ForecastCategory:       deal.ForecastCategory,
		MeddicMetrics:          deal.MeddicMetrics,
		MeddicEconomicBuyer:    deal.MeddicEconomicBuyer,
		MeddicDecisionCriteria: deal.MeddicDecisionCriteria,
		MeddicDecisionProcess:  deal.MeddicDecisionProcess,
		MeddicIdentifyPain:     deal.MeddicIdentifyPain,
		MeddicChampion:         deal.MeddicChampion,
		CreatedAt:              formatTime(deal.CreatedAt),
		UpdatedAt:              formatTime(deal.UpdatedAt),
	}
}

type ListDealsInput struct {
	Stage string `json:"stage,omitempty" jsonschema:"Only return deals in this stage (COURTING, REGISTERED, QUOTED, WON, CLOSED_LOST)"`
}

type ListDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Count int          `json:"count"`
}

// ListDeals returns the deals the caller may see, most recently updated first.
func (h *DealHandlers) ListDeals(ctx context.Context, _ *mcp.CallToolRequest, input ListDealsInput) (*mcp.CallToolResult, ListDealsOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, ListDealsOutput{}, err
	}

	if input.Stage != "" {
		if err := requireEnum(input.Stage, "stage", models.Stages); err != nil {
			return nil, ListDealsOutput{}, err
		}
	}

	deals, err := h.store.FindDeals(ctx, policy.DealScope(id, input.Stage))
	if err != nil {
		return nil, ListDealsOutput{}, fmt.Errorf("failed to list deals: %w", err)
	}

	out := ListDealsOutput{Deals: make([]DealOutput, 0, len(deals)), Count: len(deals)}
	for _, deal := range deals {
		out.Deals = append(out.Deals, dealToOutput(deal))
	}
	return nil, out, nil
}

type CreateDealInput struct {
	DealName               string   `json:"deal_name" jsonschema:"Deal name (required)"`
	ClientCompanyName      string   `json:"client_company_name" jsonschema:"Client company name; clients of this company see the deal once QUOTED (required)"`
	DealValue              *float64 `json:"deal_value" jsonschema:"Deal value (required)"`
	GrossProfit            *float64 `json:"gross_profit" jsonschema:"Gross profit (required)"`
	Stage                  string   `json:"stage,omitempty" jsonschema:"Initial stage (default COURTING)"`
	ExpectedCloseDate      string   `json:"expected_close_date,omitempty" jsonschema:"Expected close date in ISO 8601 format"`
	Probability            *int     `json:"probability,omitempty" jsonschema:"Win probability 0-100 (default 10)"`
	ForecastCategory       string   `json:"forecast_category,omitempty" jsonschema:"COMMIT, BEST_CASE, PIPELINE or OMIT (default PIPELINE)"`
	MeddicMetrics          string   `json:"meddic_metrics,omitempty"`
	MeddicEconomicBuyer    string   `json:"meddic_economic_buyer,omitempty"`
	MeddicDecisionCriteria string   `json:"meddic_decision_criteria,omitempty"`
	MeddicDecisionProcess  string   `json:"meddic_decision_process,omitempty"`
	MeddicIdentifyPain     string   `json:"meddic_identify_pain,omitempty"`
	MeddicChampion         string   `json:"meddic_champion,omitempty"`
}

func validateProbability(p int) error {
	if p < 0 || p > 100 {
		return policy.Invalid("probability must be between 0 and 100")
	}
	return nil
}

func (h *DealHandlers) CreateDeal(ctx context.Context, _ *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, DealOutput{}, err
	}

	if strings.TrimSpace(input.DealName) == "" || strings.TrimSpace(input.ClientCompanyName) == "" ||
		input.DealValue == nil || input.GrossProfit == nil {
		return nil, DealOutput{}, policy.Invalid("Missing required fields")
	}

	deal := &models.Deal{
		SalesRepID:             id.UserID,
		DealName:               strings.TrimSpace(input.DealName),
		ClientCompanyName:      strings.TrimSpace(input.ClientCompanyName),
		Stage:                  models.StageCourting,
		DealValue:              *input.DealValue,
		GrossProfit:            *input.GrossProfit,
		Probability:            models.DefaultProbability,
		ForecastCategory:       models.ForecastPipeline,
		MeddicMetrics:          input.MeddicMetrics,
		MeddicEconomicBuyer:    input.MeddicEconomicBuyer,
		MeddicDecisionCriteria: input.MeddicDecisionCriteria,
		MeddicDecisionProcess:  input.MeddicDecisionProcess,
		MeddicIdentifyPain:     input.MeddicIdentifyPain,
		MeddicChampion:         input.MeddicChampion,
	}

	if input.Stage != "" {
		if err := requireEnum(input.Stage, "stage", models.Stages); err != nil {
			return nil, DealOutput{}, err
		}
		deal.Stage = input.Stage
	}
	if input.ForecastCategory != "" {
		if err := requireEnum(input.ForecastCategory, "forecast_category", models.ForecastCategories); err != nil {
			return nil, DealOutput{}, err
		}
		deal.ForecastCategory = input.ForecastCategory
	}
	if input.Probability != nil {
		if err := validateProbability(*input.Probability); err != nil {
			return nil, DealOutput{}, err
		}
		deal.Probability = *input.Probability
	}
	if deal.ExpectedCloseDate, err = parseDate(input.ExpectedCloseDate, "expected_close_date"); err != nil {
		return nil, DealOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, DealOutput{}, err
	}

	if err := h.store.CreateDeal(ctx, deal); err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}

	return nil, dealToOutput(deal), nil
}

type GetDealInput struct {
	ID string `json:"id" jsonschema:"Deal ID (required)"`
}

type DealDetailOutput struct {
	Deal        DealOutput          `json:"deal"`
	Metrics     *models.DealMetrics `json:"metrics,omitempty"`
	Files       []FileOutput        `json:"files"`
	Contacts    []ContactOutput     `json:"contacts,omitempty"`
	Competitors []CompetitorOutput  `json:"competitors,omitempty"`
}

// GetDeal returns the deal with the files the caller may see. The owning rep
// also gets contacts, competitors and derived metrics.
func (h *DealHandlers) GetDeal(ctx context.Context, _ *mcp.CallToolRequest, input GetDealInput) (*mcp.CallToolResult, DealDetailOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, DealDetailOutput{}, err
	}

	dealID, err := parseID(input.ID, "id", "Deal")
	if err != nil {
		return nil, DealDetailOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, DealDetailOutput{}, err
	}
	if err := policy.CanReadDeal(id, deal); err != nil {
		return nil, DealDetailOutput{}, err
	}

	files, err := h.store.FindFiles(ctx, deal.ID, policy.FileCategories(id))
	if err != nil {
		return nil, DealDetailOutput{}, fmt.Errorf("failed to list files: %w", err)
	}

	out := DealDetailOutput{Deal: dealToOutput(deal), Files: make([]FileOutput, 0, len(files))}
	for _, f := range files {
		out.Files = append(out.Files, fileToOutput(f))
	}

	if policy.CanReadDealDetail(id, deal) != nil {
		return nil, out, nil
	}

	contacts, err := h.store.FindContacts(ctx, deal.ID)
	if err != nil {
		return nil, DealDetailOutput{}, fmt.Errorf("failed to list contacts: %w", err)
	}
	out.Contacts = make([]ContactOutput, 0, len(contacts))
	for _, c := range contacts {
		out.Contacts = append(out.Contacts, contactToOutput(c))
	}

	competitors, err := h.store.FindCompetitors(ctx, deal.ID)
	if err != nil {
		return nil, DealDetailOutput{}, fmt.Errorf("failed to list competitors: %w", err)
	}
	out.Competitors = make([]CompetitorOutput, 0, len(competitors))
	for _, c := range competitors {
		out.Competitors = append(out.Competitors, competitorToOutput(c))
	}

	last, err := h.store.LastActivityDate(ctx, deal.ID)
	if err != nil {
		return nil, DealDetailOutput{}, fmt.Errorf("failed to get last activity: %w", err)
	}
	metrics := models.ComputeDealMetrics(time.Now().UTC(), deal, last)
	out.Metrics = &metrics

	return nil, out, nil
}

type UpdateDealInput struct {
	ID                     string   `json:"id" jsonschema:"Deal ID (required)"`
	DealName               *string  `json:"deal_name,omitempty"`
	ClientCompanyName      *string  `json:"client_company_name,omitempty"`
	DealValue              *float64 `json:"deal_value,omitempty"`
	GrossProfit            *float64 `json:"gross_profit,omitempty"`
	Stage                  *string  `json:"stage,omitempty" jsonschema:"New stage; moving into QUOTED or WON shares the deal with the client"`
	ExpectedCloseDate      *string  `json:"expected_close_date,omitempty" jsonschema:"Expected close date in ISO 8601 format; empty string clears it"`
	Probability            *int     `json:"probability,omitempty"`
	ForecastCategory       *string  `json:"forecast_category,omitempty"`
	MeddicMetrics          *string  `json:"meddic_metrics,omitempty"`
	MeddicEconomicBuyer    *string  `json:"meddic_economic_buyer,omitempty"`
	MeddicDecisionCriteria *string  `json:"meddic_decision_criteria,omitempty"`
	MeddicDecisionProcess  *string  `json:"meddic_decision_process,omitempty"`
	MeddicIdentifyPain     *string  `json:"meddic_identify_pain,omitempty"`
	MeddicChampion         *string  `json:"meddic_champion,omitempty"`
}

func (input UpdateDealInput) validate() error {
	if input.DealName != nil && strings.TrimSpace(*input.DealName) == "" {
		return policy.Invalid("deal_name cannot be empty")
	}
	if input.ClientCompanyName != nil && strings.TrimSpace(*input.ClientCompanyName) == "" {
		return policy.Invalid("client_company_name cannot be empty")
	}
	if input.Stage != nil {
		if err := requireEnum(*input.Stage, "stage", models.Stages); err != nil {
			return err
		}
	}
	if input.ForecastCategory != nil {
		if err := requireEnum(*input.ForecastCategory, "forecast_category", models.ForecastCategories); err != nil {
			return err
		}
	}
	if input.Probability != nil {
		return validateProbability(*input.Probability)
	}
	return nil
}

// UpdateDeal applies the fields present in input. Absent fields keep their value.
func (h *DealHandlers) UpdateDeal(ctx context.Context, _ *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, DealOutput{}, err
	}

	dealID, err := parseID(input.ID, "id", "Deal")
	if err != nil {
		return nil, DealOutput{}, err
	}
	if err := input.validate(); err != nil {
		return nil, DealOutput{}, err
	}

	var closeDate *time.Time
	if input.ExpectedCloseDate != nil {
		if closeDate, err = parseDate(*input.ExpectedCloseDate, "expected_close_date"); err != nil {
			return nil, DealOutput{}, err
		}
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, DealOutput{}, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return nil, DealOutput{}, err
	}

	if input.DealName != nil {
		deal.DealName = strings.TrimSpace(*input.DealName)
	}
	if input.ClientCompanyName != nil {
		deal.ClientCompanyName = strings.TrimSpace(*input.ClientCompanyName)
	}
	if input.DealValue != nil {
		deal.DealValue = *input.DealValue
	}
	if input.GrossProfit != nil {
		deal.GrossProfit = *input.GrossProfit
	}
	if input.Stage != nil {
		deal.Stage = *input.Stage
	}
	if input.ExpectedCloseDate != nil {
		deal.ExpectedCloseDate = closeDate
	}
	if input.Probability != nil {
		deal.Probability = *input.Probability
	}
	if input.ForecastCategory != nil {
		deal.ForecastCategory = *input.ForecastCategory
	}
	setString(&deal.MeddicMetrics, input.MeddicMetrics)
	setString(&deal.MeddicEconomicBuyer, input.MeddicEconomicBuyer)
	setString(&deal.MeddicDecisionCriteria, input.MeddicDecisionCriteria)
	setString(&deal.MeddicDecisionProcess, input.MeddicDecisionProcess)
	setString(&deal.MeddicIdentifyPain, input.MeddicIdentifyPain)
	setString(&deal.MeddicChampion, input.MeddicChampion)

	if err := h.store.UpdateDeal(ctx, deal); err != nil {
		return nil, DealOutput{}, missing(err, "Deal", "update")
	}

	return nil, dealToOutput(deal), nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

type DeleteDealInput struct {
	ID string `json:"id" jsonschema:"Deal ID (required)"`
}

// DeleteDeal removes the deal with its activities, contacts, competitors and
// files, then clears its blob directory.
func (h *DealHandlers) DeleteDeal(ctx context.Context, _ *mcp.CallToolRequest, input DeleteDealInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	dealID, err := parseID(input.ID, "id", "Deal")
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, DeleteOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := h.store.DeleteDeal(ctx, deal.ID); err != nil {
		return nil, DeleteOutput{}, missing(err, "Deal", "delete")
	}

	if h.blobs != nil {
		if err := h.blobs.RemoveDeal(deal.ID); err != nil {
			h.logger.Warn("failed to remove deal files", "deal_id", deal.ID, "err", err)
		}
	}

	return nil, DeleteOutput{
		Success: true,
		Message: fmt.Sprintf("Deal %s deleted successfully", deal.ID),
	}, nil
}

// ABOUTME: Activity handlers for the deal timeline
// ABOUTME: Implements list_activities, log_activity and delete_activity
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

type ActivityHandlers struct {
	store *db.Store
}

func NewActivityHandlers(store *db.Store) *ActivityHandlers {
	return &ActivityHandlers{store: store}
}

type ActivityOutput struct {
	ID           string  `json:"id"`
	DealID       string  `json:"deal_id"`
	Type         string  `json:"type"`
	Subject      string  `json:"subject"`
	Notes        string  `json:"notes,omitempty"`
	ActivityDate string  `json:"activity_date"`
	NextSteps    string  `json:"next_steps,omitempty"`
	NextStepsDue *string `json:"next_steps_due,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func activityToOutput(a *models.Activity) ActivityOutput {
	return ActivityOutput{
		ID:           a.ID.String(),
		DealID:       a.DealID.String(),
		Type:         a.Type,
		Subject:      a.Subject,
		Notes:        a.Notes,
		ActivityDate: formatTime(a.ActivityDate),
		NextSteps:    a.NextSteps,
		NextStepsDue: formatOptionalTime(a.NextStepsDue),
		CreatedAt:    formatTime(a.CreatedAt),
	}
}

type ListActivitiesInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
}

type ListActivitiesOutput struct {
	Activities []ActivityOutput `json:"activities"`
	Count      int              `json:"count"`
}

func (h *ActivityHandlers) ListActivities(ctx context.Context, _ *mcp.CallToolRequest, input ListActivitiesInput) (*mcp.CallToolResult, ListActivitiesOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, ListActivitiesOutput{}, err
	}

	dealID, err := parseID(input.DealID, "deal_id", "Deal")
	if err != nil {
		return nil, ListActivitiesOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, ListActivitiesOutput{}, err
	}
	if err := policy.CanReadDealDetail(id, deal); err != nil {
		return nil, ListActivitiesOutput{}, err
	}

	activities, err := h.store.FindActivities(ctx, deal.ID)
	if err != nil {
		return nil, ListActivitiesOutput{}, fmt.Errorf("failed to list activities: %w", err)
	}

	out := ListActivitiesOutput{Activities: make([]ActivityOutput, 0, len(activities)), Count: len(activities)}
	for _, a := range activities {
		out.Activities = append(out.Activities, activityToOutput(a))
	}
	return nil, out, nil
}

type CreateActivityInput struct {
	DealID       string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Type         string `json:"type" jsonschema:"CALL, EMAIL, MEETING, DEMO or NOTE (required)"`
	Subject      string `json:"subject" jsonschema:"Short subject line (required)"`
	Notes        string `json:"notes,omitempty"`
	ActivityDate string `json:"activity_date,omitempty" jsonschema:"When it happened in ISO 8601 format (default now)"`
	NextSteps    string `json:"next_steps,omitempty"`
	NextStepsDue string `json:"next_steps_due,omitempty" jsonschema:"Next steps due date in ISO 8601 format"`
}

// CreateActivity logs an activity on the deal and marks the deal as updated.
func (h *ActivityHandlers) CreateActivity(ctx context.Context, _ *mcp.CallToolRequest, input CreateActivityInput) (*mcp.CallToolResult, ActivityOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, ActivityOutput{}, err
	}

	if input.Type == "" || strings.TrimSpace(input.Subject) == "" {
		return nil, ActivityOutput{}, policy.Invalid("Type and subject are required")
	}
	dealID, err := parseID(input.DealID, "deal_id", "Deal")
	if err != nil {
		return nil, ActivityOutput{}, err
	}
	if err := requireEnum(input.Type, "type", models.ActivityTypes); err != nil {
		return nil, ActivityOutput{}, err
	}

	activity := &models.Activity{
		DealID:    dealID,
		Type:      input.Type,
		Subject:   strings.TrimSpace(input.Subject),
		Notes:     input.Notes,
		NextSteps: input.NextSteps,
	}
	activityDate, err := parseDate(input.ActivityDate, "activity_date")
	if err != nil {
		return nil, ActivityOutput{}, err
	}
	if activityDate != nil {
		activity.ActivityDate = *activityDate
	}
	if activity.NextStepsDue, err = parseDate(input.NextStepsDue, "next_steps_due"); err != nil {
		return nil, ActivityOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, ActivityOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, ActivityOutput{}, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return nil, ActivityOutput{}, err
	}

	if err := h.store.CreateActivity(ctx, activity); err != nil {
		return nil, ActivityOutput{}, missing(err, "Deal", "create activity for")
	}

	return nil, activityToOutput(activity), nil
}

type DeleteActivityInput struct {
	ID string `json:"id" jsonschema:"Activity ID (required)"`
}

func (h *ActivityHandlers) DeleteActivity(ctx context.Context, _ *mcp.CallToolRequest, input DeleteActivityInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	activityID, err := parseID(input.ID, "id", "Activity")
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, DeleteOutput{}, err
	}

	activity, err := h.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, DeleteOutput{}, missing(err, "Activity", "get")
	}
	deal, err := loadDeal(ctx, h.store, activity.DealID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := h.store.DeleteActivity(ctx, activity.ID); err != nil {
		return nil, DeleteOutput{}, missing(err, "Activity", "delete")
	}

	return nil, DeleteOutput{Success: true, Message: fmt.Sprintf("Activity %s deleted successfully", activity.ID)}, nil
}

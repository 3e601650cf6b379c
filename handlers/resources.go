// ABOUTME: MCP resource handlers for exposing deals by URI
// ABOUTME: Serves crm://deals and crm://deals/{id} with the same scoping as the deal tools
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harperreed/crmlite/policy"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	DealsURI         = "crm://deals"
	DealURITemplate  = "crm://deals/{id}"
	resourceMIMEType = "application/json"
)

type ResourceHandlers struct {
	deals *DealHandlers
}

func NewResourceHandlers(deals *DealHandlers) *ResourceHandlers {
	return &ResourceHandlers{deals: deals}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, policy.Invalid("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")
	if parts[0] != "deals" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	var payload any
	switch len(parts) {
	case 1:
		_, out, err := h.deals.ListDeals(ctx, nil, ListDealsInput{})
		if err != nil {
			return nil, err
		}
		payload = out
	case 2:
		_, out, err := h.deals.GetDeal(ctx, nil, GetDealInput{ID: parts[1]})
		if err != nil {
			return nil, err
		}
		payload = out
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{URI: uri, MIMEType: resourceMIMEType, Text: string(data)},
	}}, nil
}

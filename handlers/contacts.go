// ABOUTME: Contact handlers for deal stakeholders
// ABOUTME: Implements list_contacts, add_contact, update_contact and delete_contact
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

type ContactHandlers struct {
	store *db.Store
}

func NewContactHandlers(store *db.Store) *ContactHandlers {
	return &ContactHandlers{store: store}
}

type ContactOutput struct {
	ID        string `json:"id"`
	DealID    string `json:"deal_id"`
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	Notes     string `json:"notes,omitempty"`
	IsPrimary bool   `json:"is_primary"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func contactToOutput(c *models.Contact) ContactOutput {
	return ContactOutput{
		ID:        c.ID.String(),
		DealID:    c.DealID.String(),
		Name:      c.Name,
		Title:     c.Title,
		Email:     c.Email,
		Phone:     c.Phone,
		Role:      c.Role,
		Notes:     c.Notes,
		IsPrimary: c.IsPrimary,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

type ListContactsInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
}

type ListContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
	Count    int             `json:"count"`
}

// ListContacts returns the deal's stakeholders, primary contact first.
func (h *ContactHandlers) ListContacts(ctx context.Context, _ *mcp.CallToolRequest, input ListContactsInput) (*mcp.CallToolResult, ListContactsOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, ListContactsOutput{}, err
	}

	dealID, err := parseID(input.DealID, "deal_id", "Deal")
	if err != nil {
		return nil, ListContactsOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, ListContactsOutput{}, err
	}
	if err := policy.CanReadDealDetail(id, deal); err != nil {
		return nil, ListContactsOutput{}, err
	}

	contacts, err := h.store.FindContacts(ctx, deal.ID)
	if err != nil {
		return nil, ListContactsOutput{}, fmt.Errorf("failed to list contacts: %w", err)
	}

	out := ListContactsOutput{Contacts: make([]ContactOutput, 0, len(contacts)), Count: len(contacts)}
	for _, c := range contacts {
		out.Contacts = append(out.Contacts, contactToOutput(c))
	}
	return nil, out, nil
}

type CreateContactInput struct {
	DealID    string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Name      string `json:"name" jsonschema:"Contact name (required)"`
	Title     string `json:"title,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty" jsonschema:"CHAMPION, ECONOMIC_BUYER, TECHNICAL_BUYER, INFLUENCER or BLOCKER (default INFLUENCER)"`
	Notes     string `json:"notes,omitempty"`
	IsPrimary bool   `json:"is_primary,omitempty" jsonschema:"Make this the deal's primary contact, replacing any other"`
}

func (h *ContactHandlers) CreateContact(ctx context.Context, _ *mcp.CallToolRequest, input CreateContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, ContactOutput{}, err
	}

	if strings.TrimSpace(input.Name) == "" {
		return nil, ContactOutput{}, policy.Invalid("Name is required")
	}
	dealID, err := parseID(input.DealID, "deal_id", "Deal")
	if err != nil {
		return nil, ContactOutput{}, err
	}
	role := input.Role
	if role == "" {
		role = models.ContactInfluencer
	}
	if err := requireEnum(role, "role", models.ContactRoles); err != nil {
		return nil, ContactOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, ContactOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, ContactOutput{}, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return nil, ContactOutput{}, err
	}

	contact := &models.Contact{
		DealID:    deal.ID,
		Name:      strings.TrimSpace(input.Name),
		Title:     input.Title,
		Email:     input.Email,
		Phone:     input.Phone,
		Role:      role,
		Notes:     input.Notes,
		IsPrimary: input.IsPrimary,
	}
	if err := h.store.CreateContact(ctx, contact); err != nil {
		return nil, ContactOutput{}, missing(err, "Deal", "create contact for")
	}

	return nil, contactToOutput(contact), nil
}

type UpdateContactInput struct {
	ID        string  `json:"id" jsonschema:"Contact ID (required)"`
	Name      *string `json:"name,omitempty"`
	Title     *string `json:"title,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Role      *string `json:"role,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	IsPrimary *bool   `json:"is_primary,omitempty" jsonschema:"true makes this the deal's only primary contact"`
}

// UpdateContact applies the fields present in input. Setting is_primary
// demotes the deal's other primary contact in the same transaction.
func (h *ContactHandlers) UpdateContact(ctx context.Context, _ *mcp.CallToolRequest, input UpdateContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, ContactOutput{}, err
	}

	contactID, err := parseID(input.ID, "id", "Contact")
	if err != nil {
		return nil, ContactOutput{}, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ContactOutput{}, policy.Invalid("Name is required")
	}
	if input.Role != nil {
		if err := requireEnum(*input.Role, "role", models.ContactRoles); err != nil {
			return nil, ContactOutput{}, err
		}
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, ContactOutput{}, err
	}

	contact, err := h.loadForWrite(ctx, id, contactID)
	if err != nil {
		return nil, ContactOutput{}, err
	}

	if input.Name != nil {
		contact.Name = strings.TrimSpace(*input.Name)
	}
	setString(&contact.Title, input.Title)
	setString(&contact.Email, input.Email)
	setString(&contact.Phone, input.Phone)
	setString(&contact.Role, input.Role)
	setString(&contact.Notes, input.Notes)
	if input.IsPrimary != nil {
		contact.IsPrimary = *input.IsPrimary
	}

	if err := h.store.UpdateContact(ctx, contact); err != nil {
		return nil, ContactOutput{}, missing(err, "Contact", "update")
	}

	return nil, contactToOutput(contact), nil
}

type DeleteContactInput struct {
	ID string `json:"id" jsonschema:"Contact ID (required)"`
}

func (h *ContactHandlers) DeleteContact(ctx context.Context, _ *mcp.CallToolRequest, input DeleteContactInput) (*mcp.CallToolResult, DeleteOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	contactID, err := parseID(input.ID, "id", "Contact")
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return nil, DeleteOutput{}, err
	}

	contact, err := h.loadForWrite(ctx, id, contactID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := h.store.DeleteContact(ctx, contact.ID); err != nil {
		return nil, DeleteOutput{}, missing(err, "Contact", "delete")
	}

	return nil, DeleteOutput{Success: true, Message: fmt.Sprintf("Contact %s deleted successfully", contact.ID)}, nil
}

// loadForWrite fetches the contact and its deal and checks the caller owns the deal.
func (h *ContactHandlers) loadForWrite(ctx context.Context, id *policy.Identity, contactID uuid.UUID) (*models.Contact, error) {
	contact, err := h.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, missing(err, "Contact", "get")
	}
	deal, err := loadDeal(ctx, h.store, contact.DealID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return nil, err
	}
	return contact, nil
}

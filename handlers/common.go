// ABOUTME: Helpers shared by the resource handlers
// ABOUTME: ID and date parsing, deal loading, and time formatting
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

func formatTime(t time.Time) string {
	return t.Format(timeFormat)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeFormat)
	return &s
}

// parseID reads a required id. A malformed id cannot name an existing
// resource, so it is reported as not found.
func parseID(value, field, resource string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, policy.Invalid(field + " is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, policy.NotFound(resource)
	}
	return id, nil
}

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates. Empty means unset.
func parseDate(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	return nil, policy.Invalid(fmt.Sprintf("invalid %s format (use ISO 8601/RFC3339)", field))
}

func loadDeal(ctx context.Context, store *db.Store, id uuid.UUID) (*models.Deal, error) {
	deal, err := store.GetDeal(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, policy.NotFound("Deal")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return deal, nil
}

// missing maps a store miss to a classified 404 for resource.
func missing(err error, resource, verb string) error {
	if errors.Is(err, db.ErrNotFound) {
		return policy.NotFound(resource)
	}
	return fmt.Errorf("failed to %s %s: %w", verb, strings.ToLower(resource), err)
}

func requireEnum(value, field string, valid []string) error {
	if !models.Contains(valid, value) {
		return policy.Invalid(fmt.Sprintf("invalid %s: %s (valid: %s)", field, value, strings.Join(valid, ", ")))
	}
	return nil
}

type DeleteOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ABOUTME: Request identity carried explicitly through context
// ABOUTME: Resolved once per request by the session layer, read by handlers and policy checks
package policy

import (
	"context"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
)

// Identity is the caller a request acts on behalf of.
type Identity struct {
	UserID      uuid.UUID
	Role        string
	CompanyName string
	SalesGoal   float64
}

func FromUser(u *models.User) *Identity {
	return &Identity{
		UserID:      u.ID,
		Role:        u.Role,
		CompanyName: u.CompanyName,
		SalesGoal:   u.SalesGoal,
	}
}

func (i *Identity) IsSalesRep() bool { return i != nil && i.Role == models.RoleSalesRep }

func (i *Identity) IsClient() bool { return i != nil && i.Role == models.RoleClient }

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// Require returns the caller identity or ErrUnauthorized.
func Require(ctx context.Context) (*Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return nil, Deny(ErrUnauthorized, "Unauthorized")
	}
	return id, nil
}

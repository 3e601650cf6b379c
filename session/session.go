// ABOUTME: Session context resolution from bearer tokens and local user emails
// ABOUTME: Produces the policy.Identity that every handler authorizes against
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
)

// Users is the slice of the store the resolver needs.
type Users interface {
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Resolver struct {
	users Users
}

func NewResolver(users Users) *Resolver {
	return &Resolver{users: users}
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// Authenticate resolves an Authorization header. A missing, malformed or
// unknown token yields a nil identity and no error; the caller is anonymous.
func (r *Resolver) Authenticate(ctx context.Context, authorization string) (*policy.Identity, error) {
	token, ok := ParseBearer(authorization)
	if !ok {
		return nil, nil
	}

	user, err := r.users.GetUserByToken(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}
	return policy.FromUser(user), nil
}

// ForEmail resolves a local user by email for the CLI and MCP entry points.
func (r *Resolver) ForEmail(ctx context.Context, email string) (*policy.Identity, error) {
	user, err := r.users.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return policy.FromUser(user), nil
}

// Context returns ctx carrying the identity for email.
func (r *Resolver) Context(ctx context.Context, email string) (context.Context, error) {
	id, err := r.ForEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return policy.WithIdentity(ctx, id), nil
}

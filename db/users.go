// ABOUTME: User and API token database operations
// ABOUTME: Tokens are stored only as SHA-256 hashes and resolve to users
package db

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
)

const userColumns = `id, email, name, role, company_name, sales_goal, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CompanyName, &u.SalesGoal, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	_, err := s.exec(ctx, s.db, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID.String(), user.Email, user.Name, user.Role, user.CompanyName, user.SalesGoal, user.CreatedAt)
	return err
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String()))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.queryRow(ctx, s.db,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
}

// IssueAPIToken creates a bearer token for userID and returns it. Only the
// hash is persisted, so the raw value cannot be recovered later.
func (s *Store) IssueAPIToken(ctx context.Context, userID uuid.UUID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := "crm_" + hex.EncodeToString(buf)

	_, err := s.exec(ctx, s.db, `
		INSERT INTO api_tokens (token_hash, user_id, created_at) VALUES (?, ?, ?)
	`, HashToken(token), userID.String(), time.Now().UTC())
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetUserByToken resolves a raw bearer token.
func (s *Store) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	return scanUser(s.queryRow(ctx, s.db, `
		SELECT u.id, u.email, u.name, u.role, u.company_name, u.sales_goal, u.created_at
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = ?
	`, HashToken(token)))
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

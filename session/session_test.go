package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestParseBearer(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := ParseBearer(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.token, token, tc.header)
	}
}

func TestAuthenticate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	client := &models.User{Email: "c@acme.com", Name: "C", Role: models.RoleClient, CompanyName: "Acme"}
	require.NoError(t, store.CreateUser(ctx, client))
	token, err := store.IssueAPIToken(ctx, client.ID)
	require.NoError(t, err)

	r := NewResolver(store)

	id, err := r.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, client.ID, id.UserID)
	assert.True(t, id.IsClient())
	assert.Equal(t, "Acme", id.CompanyName)

	id, err = r.Authenticate(ctx, "Bearer nope")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = r.Authenticate(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, id)
}

type brokenUsers struct{}

func (brokenUsers) GetUserByToken(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func (brokenUsers) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestAuthenticateStoreFailure(t *testing.T) {
	r := NewResolver(brokenUsers{})
	_, err := r.Authenticate(context.Background(), "Bearer tok")
	assert.ErrorContains(t, err, "failed to resolve token")

	_, err = r.ForEmail(context.Background(), "x@y.z")
	assert.ErrorContains(t, err, "failed to look up user")
}

func TestContextForEmail(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rep := &models.User{Email: "rep@example.com", Name: "Rep", Role: models.RoleSalesRep, SalesGoal: 1000}
	require.NoError(t, store.CreateUser(ctx, rep))

	r := NewResolver(store)
	scoped, err := r.Context(ctx, "REP@example.com")
	require.NoError(t, err)

	id, err := policy.Require(scoped)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, id.UserID)
	assert.Equal(t, 1000.0, id.SalesGoal)

	_, err = r.Context(ctx, "ghost@example.com")
	assert.ErrorContains(t, err, "no user with email")
}

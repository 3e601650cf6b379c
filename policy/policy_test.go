// ABOUTME: Tests for the access policy engine
// ABOUTME: Covers ownership, client visibility, file categories, and list scoping equivalence
package policy

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rep(id uuid.UUID) *Identity {
	return &Identity{UserID: id, Role: models.RoleSalesRep, SalesGoal: 500000}
}

func client(company string) *Identity {
	return &Identity{UserID: uuid.New(), Role: models.RoleClient, CompanyName: company}
}

func TestRequire(t *testing.T) {
	_, err := Require(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Unauthorized", err.Error())

	id := rep(uuid.New())
	got, err := Require(WithIdentity(context.Background(), id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestRequireNilIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), nil)
	_, err := Require(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCapabilities(t *testing.T) {
	repCaps := For(rep(uuid.New()))
	assert.True(t, repCaps.CanWrite)
	assert.True(t, repCaps.CanReadInternalFiles)
	assert.True(t, repCaps.CanReadPipelineDetail)
	assert.Nil(t, repCaps.VisibleStages)

	clientCaps := For(client("Acme"))
	assert.False(t, clientCaps.CanWrite)
	assert.False(t, clientCaps.CanReadInternalFiles)
	assert.False(t, clientCaps.CanReadPipelineDetail)
	assert.ElementsMatch(t, []string{models.StageQuoted, models.StageWon}, clientCaps.VisibleStages)

	unknown := For(&Identity{UserID: uuid.New(), Role: "ADMIN"})
	assert.False(t, unknown.CanWrite)
	assert.False(t, unknown.StageVisible(models.StageWon))
}

func TestCanReadDealSalesRep(t *testing.T) {
	owner := uuid.New()
	deal := &models.Deal{ID: uuid.New(), SalesRepID: owner, Stage: models.StageCourting}

	assert.NoError(t, CanReadDeal(rep(owner), deal))

	err := CanReadDeal(rep(uuid.New()), deal)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestCanReadDealClient(t *testing.T) {
	deal := &models.Deal{ID: uuid.New(), SalesRepID: uuid.New(), ClientCompanyName: "Acme"}

	for _, stage := range models.Stages {
		deal.Stage = stage
		err := CanReadDeal(client("Acme"), deal)
		if stage == models.StageQuoted || stage == models.StageWon {
			assert.NoError(t, err, "stage %s", stage)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "stage %s", stage)
		}
	}

	deal.Stage = models.StageWon
	assert.ErrorIs(t, CanReadDeal(client("Globex"), deal), ErrForbidden)
	assert.ErrorIs(t, CanReadDeal(client("acme"), deal), ErrForbidden, "matching is exact")
}

func TestStageTransitionRevokesClientVisibility(t *testing.T) {
	deal := &models.Deal{SalesRepID: uuid.New(), ClientCompanyName: "Acme", Stage: models.StageQuoted}
	c := client("Acme")
	require.NoError(t, CanReadDeal(c, deal))

	deal.Stage = models.StageClosedLost
	assert.ErrorIs(t, CanReadDeal(c, deal), ErrForbidden)
}

func TestCanWriteDeal(t *testing.T) {
	owner := uuid.New()
	deal := &models.Deal{SalesRepID: owner, ClientCompanyName: "Acme", Stage: models.StageWon}

	assert.NoError(t, CanWriteDeal(rep(owner), deal))
	assert.ErrorIs(t, CanWriteDeal(rep(uuid.New()), deal), ErrForbidden)
	assert.ErrorIs(t, CanWriteDeal(client("Acme"), deal), ErrForbidden, "clients never write, even visible deals")
	assert.ErrorIs(t, RequireWriter(client("Acme")), ErrForbidden)
}

func TestCanReadDealDetail(t *testing.T) {
	owner := uuid.New()
	deal := &models.Deal{SalesRepID: owner, ClientCompanyName: "Acme", Stage: models.StageWon}

	assert.NoError(t, CanReadDealDetail(rep(owner), deal))
	assert.ErrorIs(t, CanReadDealDetail(client("Acme"), deal), ErrForbidden)
}

func TestCanReadFile(t *testing.T) {
	owner := uuid.New()
	deal := &models.Deal{SalesRepID: owner, ClientCompanyName: "Acme", Stage: models.StageQuoted}
	internal := &models.File{Category: models.FileInternal}
	external := &models.File{Category: models.FileExternal}

	assert.NoError(t, CanReadFile(rep(owner), deal, internal))
	assert.NoError(t, CanReadFile(rep(owner), deal, external))
	assert.ErrorIs(t, CanReadFile(rep(uuid.New()), deal, external), ErrForbidden)

	c := client("Acme")
	assert.NoError(t, CanReadFile(c, deal, external))
	assert.ErrorIs(t, CanReadFile(c, deal, internal), ErrForbidden)

	deal.Stage = models.StageRegistered
	assert.ErrorIs(t, CanReadFile(c, deal, external), ErrForbidden, "external file on hidden deal")

	assert.Nil(t, FileCategories(rep(owner)))
	assert.Equal(t, []string{models.FileExternal}, FileCategories(c))
}

func TestDealScopeStageNarrowing(t *testing.T) {
	owner := uuid.New()
	repScope := DealScope(rep(owner), models.StageCourting)
	require.NotNil(t, repScope.SalesRepID)
	assert.Equal(t, owner, *repScope.SalesRepID)
	assert.Equal(t, []string{models.StageCourting}, repScope.Stages)

	clientScope := DealScope(client("Acme"), "")
	require.NotNil(t, clientScope.ClientCompanyName)
	assert.Equal(t, "Acme", *clientScope.ClientCompanyName)
	assert.ElementsMatch(t, []string{models.StageQuoted, models.StageWon}, clientScope.Stages)

	assert.Equal(t, []string{models.StageWon}, DealScope(client("Acme"), models.StageWon).Stages)
	hidden := DealScope(client("Acme"), models.StageCourting)
	assert.NotNil(t, hidden.Stages)
	assert.Empty(t, hidden.Stages)
}

// The list filter must select exactly the deals an item-level check allows.
func TestDealScopeMatchesCanReadDeal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	reps := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	companies := []string{"Acme", "Globex", "Initech", ""}

	identities := []*Identity{
		{UserID: uuid.New(), Role: "AUDITOR"},
	}
	for _, id := range reps {
		identities = append(identities, rep(id))
	}
	for _, c := range companies {
		identities = append(identities, client(c))
	}

	for i := 0; i < 2000; i++ {
		deal := &models.Deal{
			ID:                uuid.New(),
			SalesRepID:        reps[rng.Intn(len(reps))],
			ClientCompanyName: companies[rng.Intn(len(companies))],
			Stage:             models.Stages[rng.Intn(len(models.Stages))],
		}
		for _, id := range identities {
			scoped := DealScope(id, "").Matches(deal)
			allowed := CanReadDeal(id, deal) == nil
			require.Equal(t, allowed, scoped, "identity %+v deal %+v", id, deal)

			stage := models.Stages[rng.Intn(len(models.Stages))]
			narrowed := DealScope(id, stage).Matches(deal)
			require.Equal(t, allowed && deal.Stage == stage, narrowed)
		}
	}
}

func TestDenyMessages(t *testing.T) {
	err := NotFound("Deal")
	assert.Equal(t, "Deal not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsClassified(err))
	assert.False(t, IsClassified(errors.New("disk on fire")))

	v := Invalid("Name is required")
	assert.ErrorIs(t, v, ErrValidation)
	assert.Equal(t, "Name is required", v.Error())
}

func TestCanViewDashboard(t *testing.T) {
	assert.NoError(t, CanViewDashboard(rep(uuid.New())))

	err := CanViewDashboard(client("Acme"))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, CanViewDashboard(nil), ErrForbidden)
}

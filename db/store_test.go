// ABOUTME: Tests for entity CRUD on the Store
// ABOUTME: Covers deal filtering, activity touch, primary contacts, cascades and stats
package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRep(t *testing.T, store *Store, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Rep " + email, Role: models.RoleSalesRep, SalesGoal: 500000}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func createTestDeal(t *testing.T, store *Store, repID uuid.UUID, company, stage string) *models.Deal {
	t.Helper()
	deal := &models.Deal{
		SalesRepID:        repID,
		DealName:          company + " " + stage,
		ClientCompanyName: company,
		Stage:             stage,
		DealValue:         100000,
		GrossProfit:       20000,
		Probability:       25,
	}
	require.NoError(t, store.CreateDeal(context.Background(), deal))
	return deal
}

func TestUsersAndTokens(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: " Ann@Acme.com ", Name: "Ann", Role: models.RoleClient, CompanyName: "Acme"}
	require.NoError(t, store.CreateUser(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "ann@acme.com", user.Email)

	byEmail, err := store.GetUserByEmail(ctx, "ANN@acme.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "Acme", byEmail.CompanyName)

	token, err := store.IssueAPIToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, token, "crm_")

	resolved, err := store.GetUserByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	_, err = store.GetUserByToken(ctx, token+"x")
	assert.ErrorIs(t, err, ErrNotFound)

	var stored string
	require.NoError(t, store.DB().QueryRow("SELECT token_hash FROM api_tokens").Scan(&stored))
	assert.Equal(t, HashToken(token), stored)
	assert.NotEqual(t, token, stored)
}

func TestCreateDealDefaults(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")

	deal := &models.Deal{SalesRepID: rep.ID, DealName: "Widgets", ClientCompanyName: "Acme", DealValue: 1000, GrossProfit: 100, Probability: models.DefaultProbability}
	require.NoError(t, store.CreateDeal(ctx, deal))

	got, err := store.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageCourting, got.Stage)
	assert.Equal(t, models.ForecastPipeline, got.ForecastCategory)
	assert.Equal(t, 10, got.Probability)
	assert.Nil(t, got.ExpectedCloseDate)

	_, err = store.GetDeal(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDeal(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	deal := createTestDeal(t, store, rep.ID, "Acme", models.StageCourting)

	closeDate := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	deal.Stage = models.StageQuoted
	deal.ExpectedCloseDate = &closeDate
	deal.MeddicChampion = "Jane"
	require.NoError(t, store.UpdateDeal(ctx, deal))

	got, err := store.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageQuoted, got.Stage)
	require.NotNil(t, got.ExpectedCloseDate)
	assert.True(t, closeDate.Equal(*got.ExpectedCloseDate))
	assert.Equal(t, "Jane", got.MeddicChampion)

	missing := &models.Deal{ID: uuid.New(), Stage: models.StageCourting, ForecastCategory: models.ForecastPipeline}
	assert.ErrorIs(t, store.UpdateDeal(ctx, missing), ErrNotFound)
}

func TestFindDealsFilter(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	repA := createTestRep(t, store, "a@example.com")
	repB := createTestRep(t, store, "b@example.com")

	createTestDeal(t, store, repA.ID, "Acme", models.StageCourting)
	createTestDeal(t, store, repA.ID, "Acme", models.StageQuoted)
	createTestDeal(t, store, repB.ID, "Acme", models.StageWon)
	createTestDeal(t, store, repB.ID, "Globex", models.StageQuoted)

	deals, err := store.FindDeals(ctx, models.DealFilter{SalesRepID: &repA.ID})
	require.NoError(t, err)
	assert.Len(t, deals, 2)

	acme := "Acme"
	deals, err = store.FindDeals(ctx, models.DealFilter{
		ClientCompanyName: &acme,
		Stages:            []string{models.StageQuoted, models.StageWon},
	})
	require.NoError(t, err)
	assert.Len(t, deals, 2)

	deals, err = store.FindDeals(ctx, models.DealFilter{Stages: []string{}})
	require.NoError(t, err)
	assert.Empty(t, deals)

	all, err := store.FindDeals(ctx, models.DealFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].UpdatedAt.After(all[i-1].UpdatedAt), "deals must be ordered by updated_at desc")
	}

	limited, err := store.FindDeals(ctx, models.DealFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestCreateActivityTouchesDeal(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	deal := createTestDeal(t, store, rep.ID, "Acme", models.StageCourting)

	time.Sleep(5 * time.Millisecond)
	activity := &models.Activity{DealID: deal.ID, Type: models.ActivityCall, Subject: "Intro"}
	require.NoError(t, store.CreateActivity(ctx, activity))
	assert.False(t, activity.ActivityDate.IsZero())

	got, err := store.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(deal.UpdatedAt), "deal updated_at should move forward")

	last, err := store.LastActivityDate(ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, activity.ActivityDate.Equal(*last))

	orphan := &models.Activity{DealID: uuid.New(), Type: models.ActivityNote, Subject: "nowhere"}
	assert.ErrorIs(t, store.CreateActivity(ctx, orphan), ErrNotFound)
}

func TestFindActivitiesOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	deal := createTestDeal(t, store, rep.ID, "Acme", models.StageCourting)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, subject := range []string{"first", "third", "second"} {
		offset := map[int]int{0: 0, 1: 48, 2: 24}[i]
		a := &models.Activity{DealID: deal.ID, Type: models.ActivityEmail, Subject: subject, ActivityDate: base.Add(time.Duration(offset) * time.Hour)}
		require.NoError(t, store.CreateActivity(ctx, a))
	}

	activities, err := store.FindActivities(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, activities, 3)
	assert.Equal(t, "third", activities[0].Subject)
	assert.Equal(t, "second", activities[1].Subject)
	assert.Equal(t, "first", activities[2].Subject)

	none, err := store.LastActivityDate(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func countPrimaries(t *testing.T, store *Store, dealID uuid.UUID) int {
	t.Helper()
	contacts, err := store.FindContacts(context.Background(), dealID)
	require.NoError(t, err)
	n := 0
	for _, c := range contacts {
		if c.IsPrimary {
			n++
		}
	}
	return n
}

func TestContactPrimaryReplacesPrevious(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	deal := createTestDeal(t, store, rep.ID, "Acme", models.StageCourting)

	y := &models.Contact{DealID: deal.ID, Name: "Y", IsPrimary: true}
	require.NoError(t, store.CreateContact(ctx, y))
	x := &models.Contact{DealID: deal.ID, Name: "X"}
	require.NoError(t, store.CreateContact(ctx, x))
	assert.Equal(t, models.ContactInfluencer, x.Role)

	x.IsPrimary = true
	require.NoError(t, store.UpdateContact(ctx, x))

	gotX, err := store.GetContact(ctx, x.ID)
	require.NoError(t, err)
	gotY, err := store.GetContact(ctx, y.ID)
	require.NoError(t, err)
	assert.True(t, gotX.IsPrimary)
	assert.False(t, gotY.IsPrimary)

	contacts, err := store.FindContacts(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, x.ID, contacts[0].ID, "primary contact is listed first")

	z := &models.Contact{DealID: deal.ID, Name: "Z", IsPrimary: true}
	require.NoError(t, store.CreateContact(ctx, z))
	assert.Equal(t, 1, countPrimaries(t, store, deal.ID))
}

func TestContactPrimaryConcurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	deal := createTestDeal(t, store, rep.ID, "Acme", models.StageCourting)

	contacts := make([]*models.Contact, 8)
	for i := range contacts {
		contacts[i] = &models.Contact{DealID: deal.ID, Name: "C"}
		require.NoError(t, store.CreateContact(ctx, contacts[i]))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(contacts))
	for _, c := range contacts {
		wg.Add(1)
		go func(c models.Contact) {
			defer wg.Done()
			c.IsPrimary = true
			errs <- store.UpdateContact(ctx, &c)
		}(*c)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, countPrimaries(t, store, deal.ID))
}

func TestCompetitorCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	deal := createTestDeal(t, store, rep.ID, "Acme", models.StageCourting)

	c := &models.Competitor{DealID: deal.ID, Name: "Initech", Strengths: "price"}
	require.NoError(t, store.CreateCompetitor(ctx, c))
	assert.Equal(t, models.CompetitorActive, c.Status)

	c.Status = models.CompetitorEliminated
	require.NoError(t, store.UpdateCompetitor(ctx, c))

	list, err := store.FindCompetitors(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.CompetitorEliminated, list[0].Status)

	require.NoError(t, store.DeleteCompetitor(ctx, c.ID))
	assert.ErrorIs(t, store.DeleteCompetitor(ctx, c.ID), ErrNotFound)
}

func TestFindFilesByCategory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	deal := createTestDeal(t, store, rep.ID, "Acme", models.StageQuoted)

	require.NoError(t, store.CreateFile(ctx, &models.File{DealID: deal.ID, Filename: "quote.pdf", Filepath: "a", Category: models.FileExternal, Size: 10}))
	require.NoError(t, store.CreateFile(ctx, &models.File{DealID: deal.ID, Filename: "notes.txt", Filepath: "b", Size: 5}))

	all, err := store.FindFiles(ctx, deal.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	external, err := store.FindFiles(ctx, deal.ID, []string{models.FileExternal})
	require.NoError(t, err)
	require.Len(t, external, 1)
	assert.Equal(t, "quote.pdf", external[0].Filename)

	none, err := store.FindFiles(ctx, deal.ID, []string{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteDealCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	deal := createTestDeal(t, store, rep.ID, "Acme", models.StageCourting)

	require.NoError(t, store.CreateActivity(ctx, &models.Activity{DealID: deal.ID, Type: models.ActivityNote, Subject: "n"}))
	require.NoError(t, store.CreateContact(ctx, &models.Contact{DealID: deal.ID, Name: "c", IsPrimary: true}))
	require.NoError(t, store.CreateCompetitor(ctx, &models.Competitor{DealID: deal.ID, Name: "r"}))
	require.NoError(t, store.CreateFile(ctx, &models.File{DealID: deal.ID, Filename: "f", Filepath: "p"}))

	require.NoError(t, store.DeleteDeal(ctx, deal.ID))
	assert.ErrorIs(t, store.DeleteDeal(ctx, deal.ID), ErrNotFound)

	for _, table := range []string{"activities", "contacts", "competitors", "files"} {
		var n int
		require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestDashboardStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rep := createTestRep(t, store, "rep@example.com")
	other := createTestRep(t, store, "other@example.com")

	createTestDeal(t, store, rep.ID, "Acme", models.StageWon)
	createTestDeal(t, store, rep.ID, "Globex", models.StageWon)
	createTestDeal(t, store, rep.ID, "Acme", models.StageQuoted)
	createTestDeal(t, store, other.ID, "Acme", models.StageWon)

	startOfYear := time.Date(time.Now().UTC().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	total, err := store.WonValueSince(ctx, rep.ID, startOfYear)
	require.NoError(t, err)
	assert.Equal(t, 200000.0, total)

	future, err := store.WonValueSince(ctx, rep.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, future)

	counts, err := store.CountDealsByStage(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.StageCount{{Stage: models.StageQuoted, Count: 1}, {Stage: models.StageWon, Count: 2}}, counts)
}

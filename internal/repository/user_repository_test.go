package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

func TestUserCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewUserRepo(db)

	id, err := repo.Create(ctx, "  Climber@K2Climbers.com ", "climber123", ptr("Ali"), model.RoleClimber, 4)
	require.NoError(t, err)

	u, err := repo.GetByEmail(ctx, "climber@k2climbers.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "climber@k2climbers.com", u.Email)
	assert.True(t, u.IsActive)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "climber123"))

	_, err = repo.Create(ctx, "climber@k2climbers.com", "x", nil, model.RoleClimber, 4)
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserCountsAndUpdate(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewUserRepo(db)
	user := testutil.InsertUser(t, db, "c@x.io", model.RoleClimber)
	exp := testutil.InsertExpedition(t, db, "k2", 100)
	testutil.InsertSummit(t, db, user, exp, model.SummitSuccessful)
	testutil.InsertSummit(t, db, user, exp, model.SummitFailed)
	testutil.InsertPost(t, db, user, "p", false)

	u, err := repo.GetWithCounts(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, u.Count)
	assert.Equal(t, 2, u.Count.SummitRecords)
	assert.Equal(t, 1, u.Count.CommunityPosts)
	assert.Zero(t, u.Count.Bookings)

	updated, err := repo.Update(ctx, user, repository.UserPatch{Role: ptr(model.RoleGuide), Bio: ptr("guide")})
	require.NoError(t, err)
	assert.Equal(t, model.RoleGuide, updated.Role)
	assert.Equal(t, "guide", *updated.Bio)

	testutil.InsertUser(t, db, "taken@x.io", model.RoleClimber)
	_, err = repo.Update(ctx, user, repository.UserPatch{Email: ptr("taken@x.io")})
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	_, err = repo.Update(ctx, 999, repository.UserPatch{Name: ptr("ghost")})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.Delete(ctx, user))
	assert.Equal(t, 0, testutil.Count(t, db, "summit_records", ""))
}

func TestFeaturedClimbersRankedBySuccessfulSummits(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewUserRepo(db)
	exp := testutil.InsertExpedition(t, db, "k2", 100)

	low := testutil.InsertUser(t, db, "low@x.io", model.RoleClimber)
	high := testutil.InsertUser(t, db, "high@x.io", model.RoleClimber)
	guide := testutil.InsertUser(t, db, "guide@x.io", model.RoleGuide)
	testutil.InsertSummit(t, db, low, exp, model.SummitSuccessful)
	testutil.InsertSummit(t, db, low, exp, model.SummitFailed)
	testutil.InsertSummit(t, db, low, exp, model.SummitFailed)
	testutil.InsertSummit(t, db, high, exp, model.SummitSuccessful)
	testutil.InsertSummit(t, db, high, exp, model.SummitSuccessful)
	testutil.InsertSummit(t, db, guide, exp, model.SummitSuccessful)

	got, err := repo.FeaturedClimbers(ctx, 6)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, high, got[0].ID)
	assert.Equal(t, 2, got[0].Count.SummitRecords)
	assert.Equal(t, low, got[1].ID)
}

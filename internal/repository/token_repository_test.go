package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
)

func TestRefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewTokenRepo(db)
	user := testutil.InsertUser(t, db, "a@x.io", model.RoleClimber)

	require.NoError(t, repo.StoreRefresh(ctx, user, "h1", time.Now().Add(time.Hour)))
	require.NoError(t, repo.StoreRefresh(ctx, user, "h2", time.Now().Add(time.Hour)))
	require.NoError(t, repo.StoreRefresh(ctx, user, "old", time.Now().Add(-time.Hour)))

	id, err := repo.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, user, id)

	_, err = repo.ValidateRefresh(ctx, "old")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)
	_, err = repo.ValidateRefresh(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)

	require.NoError(t, repo.RevokeByHash(ctx, "h1"))
	_, err = repo.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)

	require.NoError(t, repo.RevokeAllForUser(ctx, user))
	_, err = repo.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)
}

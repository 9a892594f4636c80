package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
)

func TestProductBySlugListsExpeditions(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewProductRepo(db)
	boots := testutil.InsertProduct(t, db, "mountaineering-boots")
	k2 := testutil.InsertExpedition(t, db, "k2", 1)
	hidden := testutil.InsertExpedition(t, db, "hidden", 1)
	testutil.InsertGear(t, db, k2, boots)
	testutil.InsertGear(t, db, hidden, boots)
	_, err := db.Exec("UPDATE expeditions SET is_active = 0 WHERE id = ?", hidden)
	require.NoError(t, err)

	p, err := repo.GetBySlug(ctx, "mountaineering-boots")
	require.NoError(t, err)
	require.Len(t, p.Expeditions, 1)
	assert.Equal(t, "k2", p.Expeditions[0].Slug)

	_, err = repo.GetBySlug(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestProductCreateUpdateFilter(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewProductRepo(db)

	rent := uint64(2500)
	tent := &model.Product{
		Name: "4-Season Tent", Slug: "4-season-tent", Description: "Expedition tent", Category: "TENTS",
		PriceCents: 89000, RentalPriceCents: &rent, IsRentable: true, InStock: true, StockQuantity: 3,
	}
	require.NoError(t, repo.Create(ctx, tent))
	assert.NotZero(t, tent.ID)
	assert.Equal(t, model.StringList{}, tent.Images)

	dup := *tent
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrDuplicate)

	tent.InStock = false
	updated, err := repo.Update(ctx, tent.ID, tent)
	require.NoError(t, err)
	assert.False(t, updated.InStock)
	assert.Equal(t, rent, *updated.RentalPriceCents)

	testutil.InsertProduct(t, db, "boots")
	inStock, err := repo.List(ctx, repository.ProductFilter{InStock: ptr(true)})
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, "boots", inStock[0].Slug)

	rentable, err := repo.List(ctx, repository.ProductFilter{Rentable: ptr(true)})
	require.NoError(t, err)
	require.Len(t, rentable, 1)
	assert.Equal(t, tent.ID, rentable[0].ID)

	require.NoError(t, repo.Delete(ctx, tent.ID))
	assert.ErrorIs(t, repo.Delete(ctx, tent.ID), repository.ErrProductNotFound)
}

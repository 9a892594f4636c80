package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
)

func newExpeditionBody(title string) map[string]any {
	return map[string]any{
		"title":          title,
		"description":    "Long walk in",
		"category":       "TREKKING_PEAKS",
		"difficulty":     "ADVANCED",
		"altitude":       5150,
		"duration":       18,
		"basePriceCents": 350000,
		"location":       "Karakoram",
		"maxGroupSize":   12,
		"minGroupSize":   4,
	}
}

func days(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, map[string]any{"dayNumber": i, "title": fmt.Sprintf("Day %d", i), "activities": []string{"walk"}})
	}
	return out
}

func TestCreateExpeditionWithRelations(t *testing.T) {
	api := newAPI(t)
	admin := testutil.InsertUser(t, api.db, "a@x.io", model.RoleAdmin)
	guide := testutil.InsertUser(t, api.db, "g@x.io", model.RoleGuide)
	boots := testutil.InsertProduct(t, api.db, "boots")
	tok := api.token(admin, model.RoleAdmin)

	body := newExpeditionBody("K2 Base Camp Trek")
	body["itineraries"] = days(3)
	body["requiredGear"] = []map[string]any{{"productId": boots, "quantity": 1}}
	body["guideIds"] = []uint64{guide}
	rec := api.do(http.MethodPost, "/api/expeditions", tok, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decode[model.Expedition](t, rec)
	assert.Equal(t, "k2-base-camp-trek", e.Slug)
	assert.True(t, e.IsActive)
	require.Len(t, e.Itineraries, 3)
	for i, it := range e.Itineraries {
		assert.Equal(t, i+1, it.DayNumber)
	}
	require.Len(t, e.RequiredGear, 1)
	assert.Equal(t, boots, e.RequiredGear[0].ProductID)
	require.Len(t, e.Guides, 1)
	assert.Equal(t, guide, e.Guides[0].ID)

	rec = api.do(http.MethodGet, "/api/expeditions/slug/k2-base-camp-trek", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, e.ID, decode[model.Expedition](t, rec).ID)
}

func TestUpdateExpeditionReplacesItineraries(t *testing.T) {
	api := newAPI(t)
	admin := testutil.InsertUser(t, api.db, "a@x.io", model.RoleAdmin)
	exp := testutil.InsertExpedition(t, api.db, "k2-bc", 100)
	for d := 1; d <= 5; d++ {
		testutil.InsertItinerary(t, api.db, exp, d, fmt.Sprintf("Old %d", d))
	}
	tok := api.token(admin, model.RoleAdmin)
	path := fmt.Sprintf("/api/expeditions/%d", exp)

	rec := api.do(http.MethodPut, path, tok, map[string]any{"title": "Renamed", "itineraries": days(2)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e := decode[model.Expedition](t, rec)
	assert.Equal(t, "Renamed", e.Title)
	require.Len(t, e.Itineraries, 2)
	assert.Equal(t, "Day 1", e.Itineraries[0].Title)
	assert.Equal(t, "Day 2", e.Itineraries[1].Title)
	assert.Equal(t, 2, testutil.Count(t, api.db, "itineraries", "expedition_id = ?", exp))

	// Omitting the key leaves the days alone.
	rec = api.do(http.MethodPut, path, tok, map[string]any{"featured": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[model.Expedition](t, rec).Itineraries, 2)

	// An explicit empty list clears them.
	rec = api.do(http.MethodPut, path, tok, map[string]any{"itineraries": []any{}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[model.Expedition](t, rec).Itineraries)
}

func TestExpeditionWritesAreAdminOnly(t *testing.T) {
	api := newAPI(t)
	guide := testutil.InsertUser(t, api.db, "g@x.io", model.RoleGuide)
	exp := testutil.InsertExpedition(t, api.db, "k2-bc", 100)
	tok := api.token(guide, model.RoleGuide)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/expeditions", tok, newExpeditionBody("X")).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodDelete, fmt.Sprintf("/api/expeditions/%d", exp), tok, nil).Code)
	assert.Equal(t, 1, testutil.Count(t, api.db, "expeditions", ""))
}

func TestExpeditionListAndDelete(t *testing.T) {
	api := newAPI(t)
	admin := testutil.InsertUser(t, api.db, "a@x.io", model.RoleAdmin)
	climber := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	active := testutil.InsertExpedition(t, api.db, "active", 100)
	hidden := testutil.InsertExpedition(t, api.db, "hidden", 100)
	_, err := api.db.Exec("UPDATE expeditions SET is_active = 0 WHERE id = ?", hidden)
	require.NoError(t, err)
	testutil.InsertSummit(t, api.db, climber, active, model.SummitSuccessful)

	list := decode[[]model.Expedition](t, api.do(http.MethodGet, "/api/expeditions", "", nil))
	require.Len(t, list, 1)
	assert.Equal(t, active, list[0].ID)

	// ?all only widens the list for admins.
	assert.Len(t, decode[[]model.Expedition](t, api.do(http.MethodGet, "/api/expeditions?all=true", "", nil)), 1)
	assert.Len(t, decode[[]model.Expedition](t, api.do(http.MethodGet, "/api/expeditions?all=true", api.token(admin, model.RoleAdmin), nil)), 2)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/expeditions/999", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/expeditions/slug/nope", "", nil).Code)

	rec := api.do(http.MethodDelete, fmt.Sprintf("/api/expeditions/%d", active), api.token(admin, model.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, testutil.Count(t, api.db, "summit_records", "expedition_id = ?", active))
	assert.Equal(t, http.StatusNotFound,
		api.do(http.MethodDelete, "/api/expeditions/999", api.token(admin, model.RoleAdmin), nil).Code)
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/handler"
	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/service"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
)

var _ handler.CacheInvalidator = (*middleware.ResponseCache)(nil)

// recordingCache remembers every invalidated group.
type recordingCache struct {
	groups []string
}

func (r *recordingCache) Invalidate(_ context.Context, groups ...string) {
	r.groups = append(r.groups, groups...)
}

func serve(t *testing.T, e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBookingAndSummitWritesDropExpeditionCache(t *testing.T) {
	api := newAPI(t)
	climber := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	admin := testutil.InsertUser(t, api.db, "a@x.io", model.RoleAdmin)
	exp := testutil.InsertExpedition(t, api.db, "k2-bc", 100)

	cache := &recordingCache{}
	bookings := handler.NewBookingHandler(repository.NewBookingRepo(api.db), cache, service.NopPublisher{}, zap.NewNop())
	summits := &handler.SummitHandler{Summits: repository.NewSummitRepo(api.db), Cache: cache, Log: zap.NewNop()}

	e := echo.New()
	e.Validator = middleware.NewValidator()
	auth := middleware.JWTAuth(jwtSecret, nil)
	e.POST("/bookings", bookings.Create, auth)
	e.POST("/summits", summits.Create, auth)
	e.DELETE("/summits/:id", summits.Delete, auth)

	rec := serve(t, e, http.MethodPost, "/bookings", api.token(climber, model.RoleClimber),
		map[string]any{"expeditionId": exp, "numberOfPeople": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{middleware.CacheGroupExpeditions}, cache.groups)

	// Failed writes leave the cache alone.
	rec = serve(t, e, http.MethodPost, "/bookings", api.token(climber, model.RoleClimber),
		map[string]any{"expeditionId": 999, "numberOfPeople": 2})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, cache.groups, 1)

	tok := api.token(admin, model.RoleAdmin)
	rec = serve(t, e, http.MethodPost, "/summits", tok,
		map[string]any{"userId": climber, "expeditionId": exp, "summitDate": "2024-06-15"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var summit model.SummitRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summit))
	assert.Len(t, cache.groups, 2)

	rec = serve(t, e, http.MethodDelete, fmt.Sprintf("/summits/%d", summit.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{
		middleware.CacheGroupExpeditions,
		middleware.CacheGroupExpeditions,
		middleware.CacheGroupExpeditions,
	}, cache.groups)
}

package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

type authBody struct {
	User struct {
		ID   uint64 `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func TestRegisterLoginAndMe(t *testing.T) {
	api := newAPI(t)

	rec := api.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Nims", "email": "Nims@Example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[authBody](t, rec)
	assert.Equal(t, model.RoleClimber, reg.User.Role)
	assert.NotEmpty(t, rec.Result().Cookies(), "session cookie set")

	dup := api.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "nims@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)

	bad := api.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "nims@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, bad.Body.String())

	rec = api.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "nims@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authBody](t, rec)

	me := api.do(http.MethodGet, "/api/auth/me", login.Access.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	u := decode[model.User](t, me)
	assert.Equal(t, "nims@example.com", u.Email)
	require.NotNil(t, u.Count)
}

func TestRegisterRejectsBadBody(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "r@x.io", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[authBody](t, rec)

	rec = api.do(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refresh_token": first.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[authBody](t, rec)
	assert.NotEqual(t, first.Refresh.Token, second.Refresh.Token)

	// The old refresh token was revoked by the rotation.
	rec = api.do(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refresh_token": first.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/logout", "", map[string]any{"refresh_token": second.Refresh.Token})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refresh_token": second.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	api := newAPI(t)
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/bookings"},
		{http.MethodPost, "/api/bookings"},
		{http.MethodPost, "/api/community"},
		{http.MethodPost, "/api/upload"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/dashboard/stats"},
	} {
		rec := api.do(r.method, r.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String(), r.path)
	}
}

func TestAdminRoutesRejectOtherRolesWith401(t *testing.T) {
	api := newAPI(t)
	climber := api.token(1, model.RoleClimber)
	guide := api.token(2, model.RoleGuide)

	for _, tok := range []string{climber, guide} {
		assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/users", tok, nil).Code)
		assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/expeditions", tok, map[string]any{}).Code)
		assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/dashboard/stats", tok, nil).Code)
	}
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok","redis":"disabled"}`, rec.Body.String())
}

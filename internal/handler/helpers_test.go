package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/k2-expeditions/internal/app"
	"github.com/iliyamo/k2-expeditions/internal/config"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

const jwtSecret = "handler-test-secret"

// recordingPublisher keeps every published event for assertions.
type recordingPublisher struct {
	queues []string
}

func (p *recordingPublisher) Publish(_ context.Context, queue string, _ any) error {
	p.queues = append(p.queues, queue)
	return nil
}

type testAPI struct {
	t         *testing.T
	db        *sql.DB
	e         *echo.Echo
	events    *recordingPublisher
	uploadDir string
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	db := testutil.OpenDB(t)
	dir := t.TempDir()
	events := &recordingPublisher{}
	cfg := config.Config{
		Env:                "test",
		JWTSecret:          jwtSecret,
		AccessTTLMin:       15,
		RefreshTTLDays:     7,
		BcryptCost:         bcrypt.MinCost,
		SessionHashKey:     "0123456789abcdef0123456789abcdef",
		UploadDir:          dir,
		UploadPublicPrefix: "/uploads",
		PublicBaseURL:      "https://k2.test",
	}
	e := app.New(app.Deps{
		Config: cfg,
		DB:     db,
		Events: events,
		Log:    zap.NewNop(),
	})
	return &testAPI{t: t, db: db, e: e, events: events, uploadDir: dir}
}

// token signs an access token for a user.
func (a *testAPI) token(userID uint64, role string) string {
	a.t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, userID, role, 15)
	require.NoError(a.t, err)
	return tok.Token
}

// do sends body as JSON and returns the recorder.
func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ptr[T any](v T) *T { return &v }

package handler_test

import (
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/queue"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
)

var hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestIssueAndVerifyCertificate(t *testing.T) {
	api := newAPI(t)
	climber := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	admin := testutil.InsertUser(t, api.db, "a@x.io", model.RoleAdmin)
	exp := testutil.InsertExpedition(t, api.db, "k2-bc", 100)
	summit := testutil.InsertSummit(t, api.db, climber, exp, model.SummitSuccessful)

	rec := api.do(http.MethodPost, "/api/certificates", api.token(admin, model.RoleAdmin), map[string]any{
		"userId":         climber,
		"expeditionId":   exp,
		"summitRecordId": summit,
		"peakName":       "K2 Base Camp",
		"summitDate":     "2024-06-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cert := decode[model.Certificate](t, rec)
	assert.Regexp(t, hex32, cert.VerificationCode)
	assert.Equal(t, "Expedition k2-bc", cert.ExpeditionTitle)
	assert.Equal(t, 5150, cert.Altitude)
	require.NotNil(t, cert.PDFURL)
	assert.Equal(t, "/api/certificates/"+cert.VerificationCode+"/pdf", *cert.PDFURL)
	assert.Equal(t, []string{queue.CertificateIssuedQueue}, api.events.queues)

	rec = api.do(http.MethodGet, "/api/certificates/verify/"+cert.VerificationCode, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	public := decode[model.Certificate](t, rec)
	assert.Equal(t, cert.ID, public.ID)
	if public.User != nil {
		assert.Empty(t, public.User.Email)
	}

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/certificates/%s/qr", cert.VerificationCode), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/certificates/%s/pdf", cert.VerificationCode), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF", rec.Body.String()[:4])
}

func TestVerifyUnknownCodeIs404(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/api/certificates/verify/00000000000000000000000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Certificate not found"}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/certificates/nope/qr", "", nil).Code)
}

func TestIssueCertificateIsAdminOnly(t *testing.T) {
	api := newAPI(t)
	climber := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	rec := api.do(http.MethodPost, "/api/certificates", api.token(climber, model.RoleClimber), map[string]any{
		"userId": climber, "expeditionTitle": "x", "peakName": "y", "summitDate": "2024-01-01",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueCertificateRejectsBadInput(t *testing.T) {
	api := newAPI(t)
	admin := testutil.InsertUser(t, api.db, "a@x.io", model.RoleAdmin)
	tok := api.token(admin, model.RoleAdmin)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/certificates", tok, map[string]any{
		"userId": admin, "expeditionTitle": "x", "peakName": "y", "summitDate": "yesterday",
	}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/certificates", tok, map[string]any{
		"userId": 999, "expeditionTitle": "x", "peakName": "y", "summitDate": "2024-01-01",
	}).Code)
}

func TestCertificateListScopedToCaller(t *testing.T) {
	api := newAPI(t)
	a := testutil.InsertUser(t, api.db, "a@x.io", model.RoleClimber)
	b := testutil.InsertUser(t, api.db, "b@x.io", model.RoleClimber)
	admin := testutil.InsertUser(t, api.db, "admin@x.io", model.RoleAdmin)
	for _, uid := range []uint64{a, b} {
		rec := api.do(http.MethodPost, "/api/certificates", api.token(admin, model.RoleAdmin), map[string]any{
			"userId": uid, "expeditionTitle": "Trip", "peakName": "Peak", "altitude": 6000, "summitDate": "2024-01-01",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	assert.Len(t, decode[[]model.Certificate](t, api.do(http.MethodGet, "/api/certificates", api.token(a, model.RoleClimber), nil)), 1)
	assert.Len(t, decode[[]model.Certificate](t, api.do(http.MethodGet, "/api/certificates", api.token(admin, model.RoleAdmin), nil)), 2)
}

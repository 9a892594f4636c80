package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
)

func TestCertificateCodesAreUniqueHex(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewCertificateRepo(db)
	user := testutil.InsertUser(t, db, "climber@k2climbers.com", model.RoleClimber)
	exp := testutil.InsertExpedition(t, db, "k2-base-camp", 1)
	summit := testutil.InsertSummit(t, db, user, exp, model.SummitSuccessful)

	links := func(code string) (string, string) {
		return "/api/certificates/" + code + "/pdf", "/api/certificates/" + code + "/qr"
	}
	hex32 := regexp.MustCompile(`^[0-9a-f]{32}$`)
	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		c, err := repo.Issue(ctx, repository.CertificateInput{
			UserID: user, ExpeditionID: &exp, SummitRecordID: &summit,
			ExpeditionTitle: "K2 Base Camp Trek", PeakName: "K2 Base Camp", Altitude: 5150,
			SummitDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		}, links)
		require.NoError(t, err)
		assert.Regexp(t, hex32, c.VerificationCode)
		assert.False(t, seen[c.VerificationCode])
		seen[c.VerificationCode] = true
		assert.Equal(t, "/api/certificates/"+c.VerificationCode+"/pdf", *c.PDFURL)
	}
	assert.Equal(t, 25, testutil.Count(t, db, "certificates", ""))
}

func TestCertificateLookupByCode(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewCertificateRepo(db)
	user := testutil.InsertUser(t, db, "climber@k2climbers.com", model.RoleClimber)

	c, err := repo.Issue(ctx, repository.CertificateInput{
		UserID: user, ExpeditionTitle: "Custom", PeakName: "Mingli Sar", Altitude: 6050,
		SummitDate: time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC),
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, c.PDFURL)
	assert.Nil(t, c.ExpeditionID)

	got, err := repo.GetByCode(ctx, c.VerificationCode)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Mingli Sar", got.PeakName)
	assert.Equal(t, 2023, got.SummitDate.Year())
	assert.Equal(t, user, got.User.ID)

	_, err = repo.GetByCode(ctx, "00000000000000000000000000000000")
	assert.ErrorIs(t, err, repository.ErrCertificateNotFound)

	other := testutil.InsertUser(t, db, "other@x.io", model.RoleClimber)
	mine, err := repo.List(ctx, other, 0)
	require.NoError(t, err)
	assert.Empty(t, mine)
	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCertificateUnknownUser(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewCertificateRepo(db)
	_, err := repo.Issue(context.Background(), repository.CertificateInput{
		UserID: 77, ExpeditionTitle: "x", PeakName: "y", SummitDate: time.Now(),
	}, nil)
	assert.ErrorIs(t, err, repository.ErrInvalidReference)
}

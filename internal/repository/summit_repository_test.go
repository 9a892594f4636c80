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

func TestSummitCreateAndFilter(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := repository.NewSummitRepo(db)
	a := testutil.InsertUser(t, db, "a@x.io", model.RoleClimber)
	b := testutil.InsertUser(t, db, "b@x.io", model.RoleClimber)
	exp := testutil.InsertExpedition(t, db, "k2-bc", 100)

	alt := 5150
	rec, err := repo.Create(ctx, repository.SummitInput{
		UserID: a, ExpeditionID: exp, Status: model.SummitSuccessful,
		SummitDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), Altitude: &alt,
		Photos: model.StringList{"https://img/1.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "k2-bc", rec.Expedition.Slug)
	assert.Equal(t, model.StringList{"https://img/1.jpg"}, rec.Photos)
	assert.Equal(t, 2024, rec.SummitDate.Year())

	testutil.InsertSummit(t, db, a, exp, model.SummitFailed)
	testutil.InsertSummit(t, db, b, exp, model.SummitSuccessful)

	all, err := repo.List(ctx, repository.SummitFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := repo.List(ctx, repository.SummitFilter{UserID: a, Status: model.SummitSuccessful})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, rec.ID, mine[0].ID)

	limited, err := repo.List(ctx, repository.SummitFilter{ExpeditionID: exp, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSummitUnknownReferences(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewSummitRepo(db)
	user := testutil.InsertUser(t, db, "a@x.io", model.RoleClimber)

	_, err := repo.Create(context.Background(), repository.SummitInput{
		UserID: user, ExpeditionID: 404, Status: model.SummitAttempted,
		SummitDate: time.Now(), Photos: model.StringList{},
	})
	assert.ErrorIs(t, err, repository.ErrInvalidReference)
}

func TestSummitDeleteKeepsCertificate(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	summits := repository.NewSummitRepo(db)
	certs := repository.NewCertificateRepo(db)
	user := testutil.InsertUser(t, db, "a@x.io", model.RoleClimber)
	exp := testutil.InsertExpedition(t, db, "k2-bc", 100)
	sid := testutil.InsertSummit(t, db, user, exp, model.SummitSuccessful)

	cert, err := certs.Issue(ctx, repository.CertificateInput{
		UserID: user, SummitRecordID: &sid, ExpeditionTitle: "K2", PeakName: "K2",
		Altitude: 8611, SummitDate: time.Now(),
	}, nil)
	require.NoError(t, err)

	require.NoError(t, summits.Delete(ctx, sid))
	assert.ErrorIs(t, summits.Delete(ctx, sid), repository.ErrSummitNotFound)
	_, err = summits.GetByID(ctx, sid)
	assert.ErrorIs(t, err, repository.ErrSummitNotFound)

	kept, err := certs.GetByCode(ctx, cert.VerificationCode)
	require.NoError(t, err)
	assert.Nil(t, kept.SummitRecordID)
}

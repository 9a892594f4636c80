package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// ErrCertificateNotFound is returned when no certificate matches an id or
// verification code.
var ErrCertificateNotFound = errors.New("certificate not found")

// CertificateRepo stores issued summit certificates.  Rows are never
// updated after issue except for the document links.
type CertificateRepo struct {
	db *sql.DB
}

func NewCertificateRepo(db *sql.DB) *CertificateRepo { return &CertificateRepo{db: db} }

const certificateSelect = `SELECT c.id, c.user_id, c.expedition_id, c.summit_record_id, c.expedition_title,
	       c.peak_name, c.altitude, c.summit_date, c.verification_code, c.pdf_url, c.qr_code_url,
	       c.created_at, u.name, u.email, u.image
	FROM certificates c
	JOIN users u ON u.id = c.user_id`

func scanCertificate(s rowScanner) (*model.Certificate, error) {
	var (
		c   model.Certificate
		usr model.UserSummary
	)
	err := s.Scan(&c.ID, &c.UserID, &c.ExpeditionID, &c.SummitRecordID, &c.ExpeditionTitle,
		&c.PeakName, &c.Altitude, &c.SummitDate, &c.VerificationCode, &c.PDFURL, &c.QRCodeURL,
		&c.CreatedAt, &usr.Name, &usr.Email, &usr.Image)
	if err != nil {
		return nil, err
	}
	usr.ID = c.UserID
	c.User = &usr
	return &c, nil
}

// CertificateInput is the snapshot a new certificate records.
type CertificateInput struct {
	UserID          uint64
	ExpeditionID    *uint64
	SummitRecordID  *uint64
	ExpeditionTitle string
	PeakName        string
	Altitude        int
	SummitDate      time.Time
}

// DocumentLinks builds the pdf and qr URLs for a verification code.
type DocumentLinks func(code string) (pdfURL, qrURL string)

// Issue generates a fresh verification code and stores the certificate.
// A code collision is not retried; it surfaces as ErrDuplicate.
func (r *CertificateRepo) Issue(ctx context.Context, in CertificateInput, links DocumentLinks) (*model.Certificate, error) {
	code, err := utils.NewVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("verification code: %w", err)
	}
	var pdfURL, qrURL *string
	if links != nil {
		p, q := links(code)
		pdfURL, qrURL = &p, &q
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO certificates (user_id, expedition_id, summit_record_id, expedition_title, peak_name,
		                           altitude, summit_date, verification_code, pdf_url, qr_code_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.UserID, in.ExpeditionID, in.SummitRecordID, in.ExpeditionTitle, in.PeakName,
		in.Altitude, in.SummitDate.UTC(), code, pdfURL, qrURL)
	if err != nil {
		switch {
		case isDuplicate(err):
			return nil, ErrDuplicate
		case isForeignKey(err):
			return nil, ErrInvalidReference
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a certificate by primary key.
func (r *CertificateRepo) GetByID(ctx context.Context, id uint64) (*model.Certificate, error) {
	c, err := scanCertificate(r.db.QueryRowContext(ctx, certificateSelect+" WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCertificateNotFound
	}
	return c, err
}

// GetByCode fetches a certificate by its public verification code.
func (r *CertificateRepo) GetByCode(ctx context.Context, code string) (*model.Certificate, error) {
	c, err := scanCertificate(r.db.QueryRowContext(ctx, certificateSelect+" WHERE c.verification_code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCertificateNotFound
	}
	return c, err
}

// List returns certificates newest first.  A zero userID lists all of them.
// limit <= 0 means no limit.
func (r *CertificateRepo) List(ctx context.Context, userID uint64, limit int) ([]*model.Certificate, error) {
	q := certificateSelect
	args := []any{}
	if userID != 0 {
		q += " WHERE c.user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY c.created_at DESC, c.id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

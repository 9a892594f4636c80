package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/certdoc"
	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/queue"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/service"
)

// CertificateHandler issues summit certificates and serves their public
// verification page, QR code and PDF.
type CertificateHandler struct {
	Certificates *repository.CertificateRepo
	Expeditions  *repository.ExpeditionRepo
	Links        certdoc.Links
	Events       service.Publisher
	Log          *zap.Logger
}

func NewCertificateHandler(certs *repository.CertificateRepo, exps *repository.ExpeditionRepo, links certdoc.Links, events service.Publisher, log *zap.Logger) *CertificateHandler {
	return &CertificateHandler{Certificates: certs, Expeditions: exps, Links: links, Events: events, Log: log}
}

type issueCertificateReq struct {
	UserID          uint64  `json:"userId" validate:"required"`
	ExpeditionID    *uint64 `json:"expeditionId"`
	SummitRecordID  *uint64 `json:"summitRecordId"`
	ExpeditionTitle string  `json:"expeditionTitle"`
	PeakName        string  `json:"peakName"`
	Altitude        int     `json:"altitude" validate:"gte=0"`
	SummitDate      string  `json:"summitDate" validate:"required"`
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// List returns every certificate to admins and the caller's own to
// everyone else.
func (h *CertificateHandler) List(c echo.Context) error {
	var owner uint64
	if !middleware.IsAdmin(c) {
		owner = session(c).UserID
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Certificates.List(ctx, owner, 0)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch certificates", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Issue creates a certificate with a fresh random verification code.
// Missing title, peak name or altitude are taken from the linked
// expedition.
func (h *CertificateHandler) Issue(c echo.Context) error {
	var req issueCertificateReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	date, err := parseDate(req.SummitDate)
	if err != nil {
		return jsonErr(c, http.StatusBadRequest, "Invalid summitDate")
	}
	in := repository.CertificateInput{
		UserID:          req.UserID,
		ExpeditionID:    req.ExpeditionID,
		SummitRecordID:  req.SummitRecordID,
		ExpeditionTitle: strings.TrimSpace(req.ExpeditionTitle),
		PeakName:        strings.TrimSpace(req.PeakName),
		Altitude:        req.Altitude,
		SummitDate:      date,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if in.ExpeditionID != nil && (in.ExpeditionTitle == "" || in.PeakName == "" || in.Altitude == 0) {
		ref, _, err := h.Expeditions.Ref(ctx, *in.ExpeditionID)
		if err != nil {
			if errors.Is(err, repository.ErrExpeditionNotFound) {
				return jsonErr(c, http.StatusBadRequest, "Unknown expedition")
			}
			return serverErr(c, h.Log, "Failed to create certificate", err)
		}
		if in.ExpeditionTitle == "" {
			in.ExpeditionTitle = ref.Title
		}
		if in.PeakName == "" {
			in.PeakName = ref.Title
		}
		if in.Altitude == 0 {
			in.Altitude = ref.Altitude
		}
	}
	if in.ExpeditionTitle == "" || in.PeakName == "" {
		return jsonErr(c, http.StatusBadRequest, "expeditionTitle and peakName are required")
	}

	cert, err := h.Certificates.Issue(ctx, in, h.Links.Documents)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return jsonErr(c, http.StatusBadRequest, "Unknown user, expedition or summit record")
		}
		// Code collisions are not retried.
		return serverErr(c, h.Log, "Failed to create certificate", err)
	}

	publish(c, h.Events, h.Log, queue.CertificateIssuedQueue, queue.CertificateIssuedEvent{
		CertificateID:    cert.ID,
		UserID:           cert.UserID,
		PeakName:         cert.PeakName,
		Altitude:         cert.Altitude,
		VerificationCode: cert.VerificationCode,
		IssuedAt:         cert.CreatedAt.UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusCreated, cert)
}

// Verify is the public share URL of a certificate.
func (h *CertificateHandler) Verify(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cert, err := h.Certificates.GetByCode(ctx, strings.ToLower(c.Param("code")))
	if err != nil {
		return h.lookupErr(c, err)
	}
	// The holder's email stays private on the public page.
	if cert.User != nil {
		cert.User.Email = ""
	}
	return c.JSON(http.StatusOK, cert)
}

// QR returns a PNG QR code pointing at the verify URL.
func (h *CertificateHandler) QR(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cert, err := h.Certificates.GetByCode(ctx, strings.ToLower(c.Param("code")))
	if err != nil {
		return h.lookupErr(c, err)
	}
	png, err := certdoc.QR(h.Links.Verify(cert.VerificationCode))
	if err != nil {
		return serverErr(c, h.Log, "Failed to render QR code", err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// PDF returns the printable certificate.
func (h *CertificateHandler) PDF(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cert, err := h.Certificates.GetByCode(ctx, strings.ToLower(c.Param("code")))
	if err != nil {
		return h.lookupErr(c, err)
	}
	holder := ""
	if cert.User != nil {
		if cert.User.Name != nil && *cert.User.Name != "" {
			holder = *cert.User.Name
		} else {
			holder = cert.User.Email
		}
	}
	doc, err := certdoc.PDF(cert, holder, h.Links.Verify(cert.VerificationCode))
	if err != nil {
		return serverErr(c, h.Log, "Failed to render certificate", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`inline; filename="certificate-`+cert.VerificationCode+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", doc)
}

func (h *CertificateHandler) lookupErr(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrCertificateNotFound) {
		return jsonErr(c, http.StatusNotFound, "Certificate not found")
	}
	return serverErr(c, h.Log, "Failed to fetch certificate", err)
}

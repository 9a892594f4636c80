package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/queue"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/service"
)

// publishTimeout bounds a best-effort event publish.
const publishTimeout = 3 * time.Second

// BookingHandler serves expedition bookings.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Cache    CacheInvalidator
	Events   service.Publisher
	Log      *zap.Logger
}

func NewBookingHandler(b *repository.BookingRepo, cache CacheInvalidator, events service.Publisher, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Bookings: b, Cache: cache, Events: events, Log: log}
}

type createBookingReq struct {
	ExpeditionID    uint64  `json:"expeditionId" validate:"required"`
	NumberOfPeople  int     `json:"numberOfPeople" validate:"gt=0"`
	SpecialRequests *string `json:"specialRequests"`
}

type updateBookingReq struct {
	Status        *string `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED CANCELLED COMPLETED"`
	PaymentStatus *string `json:"paymentStatus" validate:"omitempty,oneof=PENDING PAID REFUNDED"`
}

// List returns every booking to admins and the caller's own to everyone
// else.
func (h *BookingHandler) List(c echo.Context) error {
	var owner uint64
	if !middleware.IsAdmin(c) {
		owner = session(c).UserID
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Bookings.List(ctx, owner, 0)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch bookings", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get returns one booking to its owner or an admin.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Booking not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return jsonErr(c, http.StatusNotFound, "Booking not found")
		}
		return serverErr(c, h.Log, "Failed to fetch booking", err)
	}
	if b.UserID != session(c).UserID && !middleware.IsAdmin(c) {
		return jsonErr(c, http.StatusForbidden, "Forbidden")
	}
	return c.JSON(http.StatusOK, b)
}

// Create books an expedition for the caller.  The total is the base price
// times numberOfPeople; the party size is not checked against the
// expedition's group bounds.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Create(ctx, session(c).UserID, req.ExpeditionID, req.NumberOfPeople, trimPtr(req.SpecialRequests))
	if err != nil {
		if errors.Is(err, repository.ErrExpeditionNotFound) {
			return jsonErr(c, http.StatusNotFound, "Expedition not found")
		}
		return serverErr(c, h.Log, "Failed to create booking", err)
	}
	// Expedition responses carry booking counts.
	invalidate(ctx, h.Cache, middleware.CacheGroupExpeditions)

	ev := queue.BookingCreatedEvent{
		BookingID:        b.ID,
		UserID:           b.UserID,
		ExpeditionID:     b.ExpeditionID,
		NumberOfPeople:   b.NumberOfPeople,
		TotalAmountCents: b.TotalAmountCents,
		CreatedAt:        b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.Expedition != nil {
		ev.ExpeditionTitle = b.Expedition.Title
	}
	publish(c, h.Events, h.Log, queue.BookingCreatedQueue, ev)

	return c.JSON(http.StatusCreated, b)
}

// Update overwrites status and/or paymentStatus.  Any value may replace
// any other.
func (h *BookingHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Booking not found")
	}
	var req updateBookingReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.UpdateStatus(ctx, id, req.Status, req.PaymentStatus)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return jsonErr(c, http.StatusNotFound, "Booking not found")
		}
		return serverErr(c, h.Log, "Failed to update booking", err)
	}
	return c.JSON(http.StatusOK, b)
}

// publish sends ev without failing the request; errors are only logged.
func publish(c echo.Context, p service.Publisher, log *zap.Logger, queueName string, ev any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, queueName, ev); err != nil {
		log.Warn("event publish failed", zap.String("queue", queueName), zap.Error(err))
	}
}


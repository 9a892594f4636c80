package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/repository"
)

// RentalHandler serves gear rentals.
type RentalHandler struct {
	Rentals *repository.RentalRepo
	Log     *zap.Logger
}

type createRentalReq struct {
	ProductID uint64 `json:"productId" validate:"required"`
}

// List returns every rental to admins and the caller's own to others.
func (h *RentalHandler) List(c echo.Context) error {
	uid := session(c).UserID
	if middleware.IsAdmin(c) {
		uid = 0
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Rentals.List(ctx, uid)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch rentals", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Create rents a product to the caller.
func (h *RentalHandler) Create(c echo.Context) error {
	var req createRentalReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rt, err := h.Rentals.Create(ctx, session(c).UserID, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotRentable) {
			return jsonErr(c, http.StatusBadRequest, "Product is not available for rent")
		}
		return serverErr(c, h.Log, "Failed to create rental", err)
	}
	return c.JSON(http.StatusCreated, rt)
}

// Return closes an active rental.
func (h *RentalHandler) Return(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Rental not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rt, err := h.Rentals.MarkReturned(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRentalNotFound) {
			return jsonErr(c, http.StatusNotFound, "Rental not found")
		}
		return serverErr(c, h.Log, "Failed to return rental", err)
	}
	return c.JSON(http.StatusOK, rt)
}

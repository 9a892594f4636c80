package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/repository"
)

// DashboardHandler serves the admin overview.
type DashboardHandler struct {
	Stats *repository.StatsRepo
	Log   *zap.Logger
}

// Overview returns aggregate counts, PAID revenue and the summit success rate.
func (h *DashboardHandler) Overview(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Stats.Dashboard(ctx)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch dashboard stats", err)
	}
	return c.JSON(http.StatusOK, s)
}

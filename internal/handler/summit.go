package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
)

// SummitHandler records summit attempts.  Writes drop the expedition cache
// group, whose detail responses embed summit records.
type SummitHandler struct {
	Summits *repository.SummitRepo
	Cache   CacheInvalidator
	Log     *zap.Logger
}

type createSummitReq struct {
	UserID       uint64   `json:"userId" validate:"required"`
	ExpeditionID uint64   `json:"expeditionId" validate:"required"`
	Status       string   `json:"status" validate:"omitempty,oneof=SUCCESSFUL ATTEMPTED FAILED"`
	SummitDate   string   `json:"summitDate" validate:"required"`
	Altitude     *int     `json:"altitude" validate:"omitempty,gt=0"`
	Notes        *string  `json:"notes"`
	Photos       []string `json:"photos"`
}

// List returns summit records, optionally narrowed by ?userId,
// ?expeditionId and ?status.
func (h *SummitHandler) List(c echo.Context) error {
	var f repository.SummitFilter
	if v := c.QueryParam("userId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusOK, []model.SummitRecord{})
		}
		f.UserID = id
	}
	if v := c.QueryParam("expeditionId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusOK, []model.SummitRecord{})
		}
		f.ExpeditionID = id
	}
	f.Status = strings.ToUpper(c.QueryParam("status"))

	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Summits.List(ctx, f)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch summit records", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Create stores a summit attempt.  Status defaults to SUCCESSFUL.
func (h *SummitHandler) Create(c echo.Context) error {
	var req createSummitReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	date, err := parseDate(req.SummitDate)
	if err != nil {
		return jsonErr(c, http.StatusBadRequest, "Invalid summitDate")
	}
	status := req.Status
	if status == "" {
		status = model.SummitSuccessful
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	rec, err := h.Summits.Create(ctx, repository.SummitInput{
		UserID:       req.UserID,
		ExpeditionID: req.ExpeditionID,
		Status:       status,
		SummitDate:   date,
		Altitude:     req.Altitude,
		Notes:        trimPtr(req.Notes),
		Photos:       model.StringList(req.Photos).OrEmpty(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return jsonErr(c, http.StatusBadRequest, "Unknown user or expedition")
		}
		return serverErr(c, h.Log, "Failed to create summit record", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheGroupExpeditions)
	return c.JSON(http.StatusCreated, rec)
}

func (h *SummitHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Summit record not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Summits.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSummitNotFound) {
			return jsonErr(c, http.StatusNotFound, "Summit record not found")
		}
		return serverErr(c, h.Log, "Failed to delete summit record", err)
	}
	invalidate(ctx, h.Cache, middleware.CacheGroupExpeditions)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

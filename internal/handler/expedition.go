package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// ExpeditionHandler serves the expedition catalogue and its admin writes.
type ExpeditionHandler struct {
	Expeditions *repository.ExpeditionRepo
	Cache       CacheInvalidator
	Log         *zap.Logger
}

func NewExpeditionHandler(e *repository.ExpeditionRepo, cache CacheInvalidator, log *zap.Logger) *ExpeditionHandler {
	return &ExpeditionHandler{Expeditions: e, Cache: cache, Log: log}
}

type itineraryReq struct {
	DayNumber   int      `json:"dayNumber" validate:"gt=0"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Altitude    *int     `json:"altitude"`
	Activities  []string `json:"activities"`
}

type gearReq struct {
	ProductID uint64 `json:"productId" validate:"required_without=Name"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	Required  *bool  `json:"required"`
}

// relationsReq holds the collections of a create or update body.  A
// missing key decodes to a nil slice and leaves the collection alone; an
// explicit [] clears it.
type relationsReq struct {
	Itineraries  []itineraryReq `json:"itineraries" validate:"dive"`
	RequiredGear []gearReq      `json:"requiredGear" validate:"dive"`
	GuideIDs     []uint64       `json:"guideIds"`
}

func (r relationsReq) toRelations() repository.ExpeditionRelations {
	var rel repository.ExpeditionRelations
	if r.Itineraries != nil {
		days := make([]repository.ItineraryInput, 0, len(r.Itineraries))
		for _, it := range r.Itineraries {
			days = append(days, repository.ItineraryInput{
				DayNumber:   it.DayNumber,
				Title:       it.Title,
				Description: it.Description,
				Altitude:    it.Altitude,
				Activities:  it.Activities,
			})
		}
		rel.Itineraries = &days
	}
	if r.RequiredGear != nil {
		gear := make([]repository.GearInput, 0, len(r.RequiredGear))
		for _, g := range r.RequiredGear {
			gear = append(gear, repository.GearInput{
				ProductID: g.ProductID,
				Name:      strings.TrimSpace(g.Name),
				Quantity:  g.Quantity,
				Required:  g.Required,
			})
		}
		rel.Gear = &gear
	}
	if r.GuideIDs != nil {
		ids := append([]uint64{}, r.GuideIDs...)
		rel.GuideIDs = &ids
	}
	return rel
}

func (r relationsReq) empty() bool {
	return r.Itineraries == nil && r.RequiredGear == nil && r.GuideIDs == nil
}

type createExpeditionReq struct {
	Title            string           `json:"title" validate:"required"`
	Slug             string           `json:"slug"`
	Description      string           `json:"description" validate:"required"`
	ShortDescription *string          `json:"shortDescription"`
	Category         string           `json:"category" validate:"required,oneof=SMALL_PEAKS TREKKING_PEAKS MOUNTAINEERING ROAD_TRIPS CUSTOM"`
	Difficulty       string           `json:"difficulty" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT EXTREME"`
	Altitude         int              `json:"altitude" validate:"gte=0"`
	Duration         int              `json:"duration" validate:"gte=0"`
	BasePriceCents   uint64           `json:"basePriceCents"`
	Location         string           `json:"location" validate:"required"`
	HeroImage        *string          `json:"heroImage"`
	Gallery          model.StringList `json:"gallery"`
	MaxGroupSize     int              `json:"maxGroupSize" validate:"gte=0"`
	MinGroupSize     int              `json:"minGroupSize" validate:"gte=0"`
	Featured         bool             `json:"featured"`
	IsActive         *bool            `json:"isActive"`
	SuccessRate      *float64         `json:"successRate"`
	MetaTitle        *string          `json:"metaTitle"`
	MetaDescription  *string          `json:"metaDescription"`
	relationsReq
}

type updateExpeditionReq struct {
	Title            *string           `json:"title"`
	Slug             *string           `json:"slug"`
	Description      *string           `json:"description"`
	ShortDescription *string           `json:"shortDescription"`
	Category         *string           `json:"category" validate:"omitempty,oneof=SMALL_PEAKS TREKKING_PEAKS MOUNTAINEERING ROAD_TRIPS CUSTOM"`
	Difficulty       *string           `json:"difficulty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT EXTREME"`
	Altitude         *int              `json:"altitude"`
	Duration         *int              `json:"duration"`
	BasePriceCents   *uint64           `json:"basePriceCents"`
	Location         *string           `json:"location"`
	HeroImage        *string           `json:"heroImage"`
	Gallery          *model.StringList `json:"gallery"`
	MaxGroupSize     *int              `json:"maxGroupSize"`
	MinGroupSize     *int              `json:"minGroupSize"`
	Featured         *bool             `json:"featured"`
	IsActive         *bool             `json:"isActive"`
	SuccessRate      *float64          `json:"successRate"`
	MetaTitle        *string           `json:"metaTitle"`
	MetaDescription  *string           `json:"metaDescription"`
	relationsReq
}

func (r updateExpeditionReq) patch() repository.ExpeditionPatch {
	return repository.ExpeditionPatch{
		Title:            r.Title,
		Slug:             r.Slug,
		Description:      r.Description,
		ShortDescription: r.ShortDescription,
		Category:         r.Category,
		Difficulty:       r.Difficulty,
		Altitude:         r.Altitude,
		Duration:         r.Duration,
		BasePriceCents:   r.BasePriceCents,
		Location:         r.Location,
		HeroImage:        r.HeroImage,
		Gallery:          r.Gallery,
		MaxGroupSize:     r.MaxGroupSize,
		MinGroupSize:     r.MinGroupSize,
		Featured:         r.Featured,
		IsActive:         r.IsActive,
		SuccessRate:      r.SuccessRate,
		MetaTitle:        r.MetaTitle,
		MetaDescription:  r.MetaDescription,
	}
}

// List returns active expeditions, filtered by ?category, ?difficulty and
// ?featured=true.  Admins may pass ?all=true to include inactive ones.
func (h *ExpeditionHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Expeditions.List(ctx, repository.ExpeditionFilter{
		Category:        c.QueryParam("category"),
		Difficulty:      c.QueryParam("difficulty"),
		FeaturedOnly:    c.QueryParam("featured") == "true",
		IncludeInactive: c.QueryParam("all") == "true" && middleware.IsAdmin(c),
	})
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch expeditions", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get returns the full detail of one expedition by id.
func (h *ExpeditionHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Expedition not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Expeditions.GetByID(ctx, id)
	if err != nil {
		return h.lookupErr(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// GetBySlug returns the full detail of one expedition by slug.
func (h *ExpeditionHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Expeditions.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return h.lookupErr(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *ExpeditionHandler) lookupErr(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrExpeditionNotFound) {
		return jsonErr(c, http.StatusNotFound, "Expedition not found")
	}
	return serverErr(c, h.Log, "Failed to fetch expedition", err)
}

// Create stores a new expedition.  The slug defaults to the slugified
// title.  Itineraries, gear and guides in the body are attached right
// after; if attaching fails the new expedition is removed again.
func (h *ExpeditionHandler) Create(c echo.Context) error {
	var req createExpeditionReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = strings.Trim(utils.Slugify(req.Title), "-")
	}
	minGroup := req.MinGroupSize
	if minGroup == 0 {
		minGroup = 1
	}
	e := &model.Expedition{
		Title:            strings.TrimSpace(req.Title),
		Slug:             slug,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		Altitude:         req.Altitude,
		Duration:         req.Duration,
		BasePriceCents:   req.BasePriceCents,
		Location:         req.Location,
		HeroImage:        req.HeroImage,
		Gallery:          req.Gallery.OrEmpty(),
		MaxGroupSize:     req.MaxGroupSize,
		MinGroupSize:     minGroup,
		Featured:         req.Featured,
		IsActive:         req.IsActive == nil || *req.IsActive,
		MetaTitle:        req.MetaTitle,
		MetaDescription:  req.MetaDescription,
	}
	if req.SuccessRate != nil && *req.SuccessRate != 0 {
		e.SuccessRate = req.SuccessRate
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Expeditions.Create(ctx, e, nil)
	if err != nil {
		return h.writeErr(c, err, "Failed to create expedition")
	}
	if !req.relationsReq.empty() {
		if err := h.Expeditions.Update(ctx, id, repository.ExpeditionPatch{SuccessRate: e.SuccessRate}, req.relationsReq.toRelations()); err != nil {
			if derr := h.Expeditions.Delete(ctx, id); derr != nil {
				h.Log.Error("rollback of new expedition failed", zap.Uint64("id", id), zap.Error(derr))
			}
			return h.writeErr(c, err, "Failed to create expedition")
		}
	}
	invalidate(ctx, h.Cache, middleware.CacheGroupExpeditions, middleware.CacheGroupProducts)

	created, err := h.Expeditions.GetByID(ctx, id)
	if err != nil {
		return serverErr(c, h.Log, "Failed to create expedition", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update overwrites the supplied scalar fields and replaces itineraries,
// required gear and guides when their keys are present.  The whole edit
// commits or rolls back as one.
func (h *ExpeditionHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Expedition not found")
	}
	var req updateExpeditionReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Expeditions.Update(ctx, id, req.patch(), req.relationsReq.toRelations()); err != nil {
		return h.writeErr(c, err, "Failed to update expedition")
	}
	invalidate(ctx, h.Cache, middleware.CacheGroupExpeditions, middleware.CacheGroupProducts)

	e, err := h.Expeditions.GetByID(ctx, id)
	if err != nil {
		return h.lookupErr(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Delete removes an expedition with everything it owns.
func (h *ExpeditionHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Expedition not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Expeditions.Delete(ctx, id); err != nil {
		return h.writeErr(c, err, "Failed to delete expedition")
	}
	invalidate(ctx, h.Cache, middleware.CacheGroupExpeditions, middleware.CacheGroupProducts)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *ExpeditionHandler) writeErr(c echo.Context, err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrExpeditionNotFound):
		return jsonErr(c, http.StatusNotFound, "Expedition not found")
	case errors.Is(err, repository.ErrDuplicate):
		return jsonErr(c, http.StatusConflict, "Slug or itinerary day already exists")
	case errors.Is(err, repository.ErrInvalidGear):
		return jsonErr(c, http.StatusBadRequest, "Gear entries need a productId or a name")
	case errors.Is(err, repository.ErrInvalidReference):
		return jsonErr(c, http.StatusBadRequest, "Unknown product or guide")
	}
	return serverErr(c, h.Log, msg, err)
}

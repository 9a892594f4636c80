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

// ProductHandler serves the gear shop.
type ProductHandler struct {
	Products *repository.ProductRepo
	Cache    CacheInvalidator
	Log      *zap.Logger
}

func NewProductHandler(p *repository.ProductRepo, cache CacheInvalidator, log *zap.Logger) *ProductHandler {
	return &ProductHandler{Products: p, Cache: cache, Log: log}
}

// productReq is the full product body of create and update; update
// replaces every field.
type productReq struct {
	Name                 string   `json:"name" validate:"required"`
	Slug                 string   `json:"slug"`
	Description          string   `json:"description"`
	Category             string   `json:"category" validate:"required"`
	PriceCents           uint64   `json:"priceCents"`
	RentalPriceCents     *uint64  `json:"rentalPriceCents"`
	SecurityDepositCents *uint64  `json:"securityDepositCents"`
	Images               []string `json:"images"`
	IsRentable           bool     `json:"isRentable"`
	InStock              *bool    `json:"inStock"`
	StockQuantity        int      `json:"stockQuantity" validate:"gte=0"`
}

func (r productReq) model() *model.Product {
	slug := strings.TrimSpace(r.Slug)
	if slug == "" {
		slug = strings.Trim(utils.Slugify(r.Name), "-")
	}
	return &model.Product{
		Name:                 strings.TrimSpace(r.Name),
		Slug:                 slug,
		Description:          r.Description,
		Category:             strings.ToUpper(strings.TrimSpace(r.Category)),
		PriceCents:           r.PriceCents,
		RentalPriceCents:     r.RentalPriceCents,
		SecurityDepositCents: r.SecurityDepositCents,
		Images:               model.StringList(r.Images).OrEmpty(),
		IsRentable:           r.IsRentable,
		InStock:              r.InStock == nil || *r.InStock,
		StockQuantity:        r.StockQuantity,
	}
}

// List returns products, filtered by ?category, ?inStock and ?rentable.
func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Products.List(ctx, repository.ProductFilter{
		Category: c.QueryParam("category"),
		InStock:  queryBool(c, "inStock"),
		Rentable: queryBool(c, "rentable"),
	})
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch products", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get returns one product by id.
func (h *ProductHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Product not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		return h.lookupErr(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GetBySlug returns the shop detail of a product together with the active
// expeditions that require it.
func (h *ProductHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return h.lookupErr(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	p := req.model()
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Products.Create(ctx, p); err != nil {
		return h.writeErr(c, err, "Failed to create product")
	}
	invalidate(ctx, h.Cache, middleware.CacheGroupProducts)
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Product not found")
	}
	var req productReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.Update(ctx, id, req.model())
	if err != nil {
		return h.writeErr(c, err, "Failed to update product")
	}
	invalidate(ctx, h.Cache, middleware.CacheGroupProducts, middleware.CacheGroupExpeditions)
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Product not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Products.Delete(ctx, id); err != nil {
		return h.writeErr(c, err, "Failed to delete product")
	}
	invalidate(ctx, h.Cache, middleware.CacheGroupProducts, middleware.CacheGroupExpeditions)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *ProductHandler) lookupErr(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrProductNotFound) {
		return jsonErr(c, http.StatusNotFound, "Product not found")
	}
	return serverErr(c, h.Log, "Failed to fetch product", err)
}

func (h *ProductHandler) writeErr(c echo.Context, err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return jsonErr(c, http.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrDuplicate):
		return jsonErr(c, http.StatusConflict, "A product with this slug already exists")
	}
	return serverErr(c, h.Log, msg, err)
}

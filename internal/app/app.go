// Package app assembles the repositories, handlers and middleware into a
// ready-to-serve Echo instance.
package app

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/certdoc"
	"github.com/iliyamo/k2-expeditions/internal/config"
	"github.com/iliyamo/k2-expeditions/internal/handler"
	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/router"
	"github.com/iliyamo/k2-expeditions/internal/service"
	"github.com/iliyamo/k2-expeditions/internal/storage"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// Deps carries everything the API needs from the outside world.  Redis may
// be nil; Events defaults to a no-op publisher.
type Deps struct {
	Config    config.Config
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	DB        *sql.DB
	Redis     *redis.Client
	Events    service.Publisher
	Log       *zap.Logger
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	if d.Events == nil {
		d.Events = service.NopPublisher{}
	}
	cfg := d.Config

	users := repository.NewUserRepo(d.DB)
	tokens := repository.NewTokenRepo(d.DB)
	expeditions := repository.NewExpeditionRepo(d.DB)
	products := repository.NewProductRepo(d.DB)
	bookings := repository.NewBookingRepo(d.DB)
	certificates := repository.NewCertificateRepo(d.DB)
	posts := repository.NewCommunityRepo(d.DB)
	summits := repository.NewSummitRepo(d.DB)
	rentals := repository.NewRentalRepo(d.DB)
	stats := repository.NewStatsRepo(d.DB)

	cookies := utils.NewSessionCookie(cfg.SessionHashKey, cfg.SessionBlockKey, cfg.IsProd())
	cache := middleware.NewResponseCache(d.Cache, d.Redis, d.Log)
	links := certdoc.Links{BaseURL: cfg.PublicBaseURL}
	store := storage.NewStore(cfg.UploadDir, cfg.UploadPublicPrefix, d.Log)

	climbers := &handler.ClimberHandler{
		Users: users, Summits: summits, Certificates: certificates, Posts: posts, Log: d.Log,
	}
	profile := &handler.ProfileHandler{
		Users: users, Summits: summits, Bookings: bookings, Certificates: certificates,
		BcryptCost: cfg.BcryptCost, Log: d.Log,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Static(cfg.UploadPublicPrefix, cfg.UploadDir)

	router.Register(e, router.Handlers{
		Health:       &handler.HealthHandler{DB: d.DB, Redis: d.Redis},
		Auth:         handler.NewAuthHandler(cfg, users, tokens, cookies, d.Log),
		Expeditions:  handler.NewExpeditionHandler(expeditions, cache, d.Log),
		Products:     handler.NewProductHandler(products, cache, d.Log),
		Bookings:     handler.NewBookingHandler(bookings, cache, d.Events, d.Log),
		Certificates: handler.NewCertificateHandler(certificates, expeditions, links, d.Events, d.Log),
		Community:    handler.NewCommunityHandler(posts, d.Events, d.Log),
		Summits:      &handler.SummitHandler{Summits: summits, Cache: cache, Log: d.Log},
		Rentals:      &handler.RentalHandler{Rentals: rentals, Log: d.Log},
		Climbers:     climbers,
		Profile:      profile,
		Users:        handler.NewUserHandler(users, cfg.BcryptCost, d.Log),
		Dashboard:    &handler.DashboardHandler{Stats: stats, Log: d.Log},
		Upload:       &handler.UploadHandler{Store: store, Log: d.Log},
	}, router.Guards{
		Auth:      middleware.JWTAuth(cfg.JWTSecret, cookies),
		Optional:  middleware.OptionalAuth(cfg.JWTSecret, cookies),
		RateLimit: middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
		Cache:     cache,
	})
	return e
}

// WithCORS wraps the API for browser clients on the configured origins.
// Credentials are allowed so the session cookie travels with requests.
func WithCORS(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Cache", "Retry-After"},
		AllowCredentials: true,
	}).Handler(h)
}

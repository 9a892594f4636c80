package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/k2-expeditions/internal/handler"    // handlers implementing each resource
	"github.com/iliyamo/k2-expeditions/internal/middleware" // JWT, role, cache and rate-limit middleware
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Expeditions  *handler.ExpeditionHandler
	Products     *handler.ProductHandler
	Bookings     *handler.BookingHandler
	Certificates *handler.CertificateHandler
	Community    *handler.CommunityHandler
	Summits      *handler.SummitHandler
	Rentals      *handler.RentalHandler
	Climbers     *handler.ClimberHandler
	Profile      *handler.ProfileHandler
	Users        *handler.UserHandler
	Dashboard    *handler.DashboardHandler
	Upload       *handler.UploadHandler
}

// Guards carries the shared middleware.  Auth requires a session, Optional
// attaches one when present, RateLimit throttles credential and upload
// endpoints, and Cache serves public catalogue reads.
type Guards struct {
	Auth      echo.MiddlewareFunc
	Optional  echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
	Cache     *middleware.ResponseCache
}

// Register mounts the whole API on e.  Everything except the health check
// lives under /api.
func Register(e *echo.Echo, h Handlers, g Guards) {
	RegisterRoutes(e, h.Health)
	api := e.Group("/api")
	RegisterAuth(api, h.Auth, g)
	RegisterPublic(api, h, g)
	RegisterMember(api, h, g)
	RegisterAdmin(api, h, g)
}

// RegisterRoutes registers non-authenticated infrastructure routes.  At
// the moment it only exposes a health check endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers all authentication-related routes.  Credential
// endpoints are rate limited; /me requires a session.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, g Guards) {
	// Operations that do not require an existing session (register, login,
	// refresh, logout).  Each handler generates, exchanges or revokes tokens.
	ag := api.Group("/auth", g.RateLimit)
	ag.POST("/register", a.Register)
	ag.POST("/login", a.Login)
	ag.POST("/refresh", a.Refresh) // rotates the refresh token
	ag.POST("/logout", a.Logout)   // accepts refresh_token in the body and/or the session cookie

	// The current user, with relation counts.
	api.GET("/auth/me", a.Me, g.Auth)
}

// RegisterPublic registers unauthenticated browse endpoints.  Optional auth
// lets admins see inactive expeditions; catalogue lists go through the
// response cache.
func RegisterPublic(api *echo.Group, h Handlers, g Guards) {
	pub := api.Group("", g.Optional)

	// ---- Expeditions ----
	pub.GET("/expeditions", h.Expeditions.List, g.Cache.Middleware(middleware.CacheGroupExpeditions))
	pub.GET("/expeditions/slug/:slug", h.Expeditions.GetBySlug, g.Cache.Middleware(middleware.CacheGroupExpeditions))
	pub.GET("/expeditions/:id", h.Expeditions.Get)

	// ---- Shop ----
	pub.GET("/products", h.Products.List, g.Cache.Middleware(middleware.CacheGroupProducts))
	pub.GET("/products/slug/:slug", h.Products.GetBySlug, g.Cache.Middleware(middleware.CacheGroupProducts))
	pub.GET("/products/:id", h.Products.Get)

	// ---- Certificates ----
	// The verification code in the path is the only credential needed.
	pub.GET("/certificates/verify/:code", h.Certificates.Verify)
	pub.GET("/certificates/:code/qr", h.Certificates.QR)
	pub.GET("/certificates/:code/pdf", h.Certificates.PDF)

	// ---- Community and climbers ----
	pub.GET("/community", h.Community.List)
	pub.GET("/community/:id", h.Community.Get) // increments the view count
	pub.GET("/summits", h.Summits.List)
	pub.GET("/climbers/featured", h.Climbers.Featured)
	pub.GET("/climbers/:id", h.Climbers.Get)
}

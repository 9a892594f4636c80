package router // router defines how HTTP routes are registered for the API

import (
	"github.com/iliyamo/k2-expeditions/internal/middleware" // role middleware
	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/labstack/echo/v4"
)

// RegisterAdmin registers ADMIN/SUPER_ADMIN endpoints under /api.  A wrong
// role answers 401 like a missing session.
func RegisterAdmin(api *echo.Group, h Handlers, g Guards) {
	// Attach middlewares at group construction time for clarity.
	a := api.Group("", g.Auth, middleware.RequireAdmin())

	// ---- Expeditions ----
	a.POST("/expeditions", h.Expeditions.Create)
	a.PUT("/expeditions/:id", h.Expeditions.Update) // replaces itineraries/gear/guides when present
	a.DELETE("/expeditions/:id", h.Expeditions.Delete)

	// ---- Products ----
	a.POST("/products", h.Products.Create)
	a.PUT("/products/:id", h.Products.Update)
	a.DELETE("/products/:id", h.Products.Delete)

	// ---- Bookings, certificates, rentals ----
	a.PUT("/bookings/:id", h.Bookings.Update) // unconditional status overwrite
	a.POST("/certificates", h.Certificates.Issue)
	a.PUT("/rentals/:id/return", h.Rentals.Return)
	a.DELETE("/summits/:id", h.Summits.Delete)

	// ---- Users ----
	a.GET("/users", h.Users.List)
	a.GET("/users/:id", h.Users.Get)
	a.PUT("/users/:id", h.Users.Update)
	a.DELETE("/users/:id", h.Users.Delete)

	a.GET("/dashboard/stats", h.Dashboard.Overview)

	// Guides record summits for their teams as well.
	api.POST("/summits", h.Summits.Create, g.Auth,
		middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin, model.RoleGuide))
}

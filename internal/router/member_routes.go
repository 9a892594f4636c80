package router

import (
	"github.com/labstack/echo/v4"
)

// RegisterMember registers endpoints that need a session but no particular
// role.  Ownership checks (bookings, community posts) happen in the
// handlers.
func RegisterMember(api *echo.Group, h Handlers, g Guards) {
	m := api.Group("", g.Auth)

	m.GET("/profile", h.Profile.Get)
	m.PUT("/profile", h.Profile.Update)

	// Admins see every booking, certificate and rental; everyone else their own.
	m.GET("/bookings", h.Bookings.List)
	m.POST("/bookings", h.Bookings.Create)
	m.GET("/bookings/:id", h.Bookings.Get)
	m.GET("/certificates", h.Certificates.List)
	m.GET("/rentals", h.Rentals.List)
	m.POST("/rentals", h.Rentals.Create)

	m.POST("/community", h.Community.Create)
	m.PUT("/community/:id", h.Community.Update)
	m.DELETE("/community/:id", h.Community.Delete)

	m.POST("/upload", h.Upload.Upload, g.RateLimit)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Unauthorized is the body of every 401 raised by the auth gate.
var Unauthorized = echo.Map{"error": "Unauthorized"}

// JWTAuth validates the access token and stores its subject and role in
// the context under "user_id" (uint64) and "role" (string).  The token is
// read from a Bearer Authorization header first and from the session
// cookie second; cookies may be nil for API-only deployments.
func JWTAuth(secret string, cookies *utils.SessionCookie) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c, cookies)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, Unauthorized)
			}
			s, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, Unauthorized)
			}
			c.Set(ctxUserID, s.UserID)
			c.Set(ctxRole, s.Role)
			return next(c)
		}
	}
}

// OptionalAuth behaves like JWTAuth but lets anonymous requests through.
// An invalid token is treated as no token.
func OptionalAuth(secret string, cookies *utils.SessionCookie) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := tokenFrom(c, cookies); raw != "" {
				if s, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(ctxUserID, s.UserID)
					c.Set(ctxRole, s.Role)
				}
			}
			return next(c)
		}
	}
}

func tokenFrom(c echo.Context, cookies *utils.SessionCookie) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookies != nil {
		if raw, err := cookies.Token(c.Request()); err == nil {
			return raw
		}
	}
	return ""
}

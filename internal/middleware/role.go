package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/k2-expeditions/internal/model"
)

// RequireRole rejects requests whose role (set by JWTAuth) is not one of
// roles.  A wrong role answers 401 like a missing session does.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ctxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusUnauthorized, Unauthorized)
			}
			return next(c)
		}
	}
}

// RequireAdmin admits ADMIN and SUPER_ADMIN.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(model.RoleAdmin, model.RoleSuperAdmin)
}

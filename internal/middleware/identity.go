package middleware

// identity.go exposes the session stored by JWTAuth to handlers and to the
// other middleware in this package.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// CurrentUser returns the authenticated session, if any.
func CurrentUser(c echo.Context) (utils.Session, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	if !ok || id == 0 {
		return utils.Session{}, false
	}
	role, _ := c.Get(ctxRole).(string)
	return utils.Session{UserID: id, Role: role}, true
}

// IsAdmin reports whether the request carries an ADMIN or SUPER_ADMIN
// session.
func IsAdmin(c echo.Context) bool {
	s, ok := CurrentUser(c)
	return ok && model.IsAdminRole(s.Role)
}

// userID is the string form of the current user used in log fields and
// rate-limit keys; anonymous requests map to "anon".
func userID(c echo.Context) string {
	if s, ok := CurrentUser(c); ok {
		return strconv.FormatUint(s.UserID, 10)
	}
	return "anon"
}

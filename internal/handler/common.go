package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// CacheInvalidator drops cached responses of the given groups.
// *middleware.ResponseCache implements it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, groups ...string)
}

// invalidate is a no-op when no cache is configured.
func invalidate(ctx context.Context, cache CacheInvalidator, groups ...string) {
	if cache != nil {
		cache.Invalidate(ctx, groups...)
	}
}

// dbTimeout bounds the database work of a single request.
const dbTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func jsonErr(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// serverErr logs err with the request id and answers 500 with msg.
func serverErr(c echo.Context, log *zap.Logger, msg string, err error) error {
	log.Error(msg,
		zap.Error(err),
		zap.String("path", c.Request().URL.Path),
		zap.String("request_id", middleware.RequestIDOf(c)))
	return jsonErr(c, http.StatusInternalServerError, msg)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// queryBool returns nil when the parameter is absent.
func queryBool(c echo.Context, name string) *bool {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	b := v == "true"
	return &b
}

// bindAndValidate binds the body into dst and runs the validate tags.  The
// returned message is suitable for a 400 response.
func bindAndValidate(c echo.Context, dst any) (string, bool) {
	if err := c.Bind(dst); err != nil {
		return "Invalid request body", false
	}
	if err := c.Validate(dst); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, lowerFirst(fe.Field()))
	}
	return "Invalid or missing fields: " + strings.Join(fields, ", ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// session returns the caller; routes using it sit behind JWTAuth.
func session(c echo.Context) utils.Session {
	s, _ := middleware.CurrentUser(c)
	return s
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

package handler // declare the package name; contains HTTP handlers

import (
	"database/sql"
	"net/http" // net/http provides status codes and response helpers

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the service and its backing stores respond.
// Redis is optional; a nil client is reported as "disabled".
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Health is used by load balancers and monitoring systems.  It answers 200
// with per-dependency status, or 503 when the database is unreachable.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	status := http.StatusOK
	out := echo.Map{"status": "ok", "database": "ok", "redis": "disabled"}
	if err := h.DB.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable // the API is useless without MySQL
		out["status"] = "degraded"
		out["database"] = "unreachable"
	}
	if h.Redis != nil {
		out["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			out["redis"] = "unreachable" // cache and rate limits fall back
		}
	}
	return c.JSON(status, out)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness of the process and its database.
type HealthHandler struct {
	DB      Pinger
	Started time.Time
}

// Health answers 200 with {"status":"ok"} while the database responds and
// 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	body := echo.Map{"status": "ok", "uptime": time.Since(h.Started).Round(time.Second).String()}
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			body["status"], body["db"] = "degraded", err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
	}
	return c.JSON(http.StatusOK, body)
}

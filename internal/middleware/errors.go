package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// ErrorHandler renders errors returned by handlers as
// {"error": message, "details": [...]}.  AppErrors keep their status;
// anything unclassified becomes a generic 500 that is logged and, when rec
// is set, written to the audit trail as ERROR_THROWN.
func ErrorHandler(rec AuditRecorder) echo.HTTPErrorHandler {
	log := logger.WithComponent("http")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		body := echo.Map{"error": "Internal Server Error"}

		var he *echo.HTTPError
		switch ae := apperror.Get(err); {
		case ae != nil:
			status = ae.Code
			body["error"] = ae.Message
			if len(ae.Details) > 0 {
				body["details"] = ae.Details
			}
		case errors.As(err, &he):
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				body["error"] = msg
			} else {
				body["error"] = http.StatusText(he.Code)
			}
		}

		if status >= http.StatusInternalServerError {
			r := c.Request()
			log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
			if rec != nil {
				snap, _ := json.Marshal(map[string]any{"method": r.Method, "path": r.URL.RequestURI()})
				e := &model.AuditEntry{
					UserRole:     "Unknown",
					Action:       "ERROR_THROWN",
					Entity:       r.URL.RequestURI(),
					Description:  err.Error(),
					DataSnapshot: snap,
				}
				if u := CurrentUser(c); u != nil {
					id := u.ID
					e.UserID, e.UserRole = &id, u.Role
				}
				ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
				if rerr := rec.Record(ctx, e); rerr != nil {
					log.Warn("failed to log error to audit trail", "error", rerr)
				}
				cancel()
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

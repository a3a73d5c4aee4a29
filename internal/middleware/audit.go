package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// AuditRecorder appends audit trail rows.
type AuditRecorder interface {
	Record(ctx context.Context, e *model.AuditEntry) error
}

// entityPrefixes maps route prefixes to the entity named in audit rows.
var entityPrefixes = []struct{ prefix, entity string }{
	{"/api/repair-tickets", "RepairTicket"},
	{"/api/workorders", "WorkOrder"},
	{"/api/readings", "Reading"},
	{"/api/alerts", "AlertThreshold"},
	{"/api/maintenance-thresholds", "MaintenanceThreshold"},
	{"/api/assets", "Asset"},
	{"/api/worklogs", "MechanicWorkLog"},
	{"/api/mechanics", "Mechanic"},
	{"/api/auth", "User"},
	{"/api/dashboard", "Dashboard"},
	{"/api/audit-trail", "AuditTrail"},
	{"/api/attachments", "Attachment"},
}

// EntityFor names the entity behind a request path.  Unknown paths are
// returned as is.
func EntityFor(path string) string {
	for _, p := range entityPrefixes {
		if path == p.prefix || strings.HasPrefix(path, p.prefix+"/") {
			return p.entity
		}
	}
	return path
}

// AuditTrail records every request once the handler has finished: caller,
// action "METHOD_path", entity, status and latency.  Writes happen off the
// request goroutine; failures are only logged.  Request bodies are not
// captured because they carry passwords and uploads.
func AuditTrail(rec AuditRecorder, skip ...string) echo.MiddlewareFunc {
	log := logger.WithComponent("audit")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, s := range skip {
				if strings.HasPrefix(path, s) {
					return next(c)
				}
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			entry := requestEntry(c, status, time.Since(start))
			ctx := context.WithoutCancel(c.Request().Context())
			go record(ctx, rec, entry, log)
			return err
		}
	}
}

// statusOf is the status ErrorHandler will render for err.
func statusOf(err error) int {
	if ae := apperror.Get(err); ae != nil {
		return ae.Code
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func requestEntry(c echo.Context, status int, took time.Duration) *model.AuditEntry {
	r := c.Request()
	params := map[string]string{}
	for i, n := range c.ParamNames() {
		if i < len(c.ParamValues()) {
			params[n] = c.ParamValues()[i]
		}
	}
	snap, _ := json.Marshal(map[string]any{
		"query":          r.URL.Query(),
		"params":         params,
		"statusCode":     status,
		"responseTimeMs": took.Milliseconds(),
	})
	e := &model.AuditEntry{
		UserRole:     "Guest",
		Action:       r.Method + "_" + r.URL.RequestURI(),
		Entity:       EntityFor(r.URL.Path),
		Description:  "Endpoint hit: " + r.Method + " " + r.URL.RequestURI(),
		DataSnapshot: snap,
	}
	if u := CurrentUser(c); u != nil {
		id := u.ID
		e.UserID, e.UserRole = &id, u.Role
	}
	return e
}

func record(ctx context.Context, rec AuditRecorder, e *model.AuditEntry, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rec.Record(ctx, e); err != nil {
		log.Warn("audit trail write failed", "action", e.Action, "error", err)
	}
}

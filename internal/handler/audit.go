package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// AuditLister reads the audit trail.
type AuditLister interface {
	List(ctx context.Context, userID uint64, limit int) ([]model.AuditEntry, error)
}

// AuditHandler serves /api/audit-trail.
type AuditHandler struct {
	Audit AuditLister
}

// List supports ?user=<id> and ?limit= (default 50, at most 500).
func (h *AuditHandler) List(c echo.Context) error {
	var (
		user  uint64
		limit = 50
	)
	if s := c.QueryParam("user"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return apperror.NewValidation("invalid user")
		}
		user = v
	}
	if s := c.QueryParam("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			return apperror.NewValidation("invalid limit")
		}
		limit = min(v, 500)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	entries, err := h.Audit.List(ctx, user, limit)
	if err != nil {
		return storeErr(err, "Audit entry")
	}
	return c.JSON(http.StatusOK, entries)
}

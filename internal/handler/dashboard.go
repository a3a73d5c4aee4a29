package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/service"
)

// DashboardAPI builds the dashboard views.
type DashboardAPI interface {
	Stats(ctx context.Context) (service.DashboardStats, error)
	TopAssetsByRepairs(ctx context.Context) ([]service.TopAsset, error)
	FuelInefficient(ctx context.Context) ([]service.FuelUnit, error)
	Notifications(ctx context.Context) ([]service.Notification, error)
}

// DashboardHandler serves /api/dashboard.
type DashboardHandler struct {
	Svc DashboardAPI
}

func (h *DashboardHandler) Stats(c echo.Context) error {
	return respond(c, h.Svc.Stats)
}

func (h *DashboardHandler) TopAssetsByRepairs(c echo.Context) error {
	return respond(c, h.Svc.TopAssetsByRepairs)
}

func (h *DashboardHandler) FuelInefficient(c echo.Context) error {
	return respond(c, h.Svc.FuelInefficient)
}

func (h *DashboardHandler) Notifications(c echo.Context) error {
	return respond(c, h.Svc.Notifications)
}

// respond runs a read-only query and renders its result as 200 JSON.
func respond[T any](c echo.Context, fn func(context.Context) (T, error)) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

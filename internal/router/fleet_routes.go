package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/middleware"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/permission"
)

const (
	view        = permission.ActionView
	edit        = permission.ActionEdit
	usersModule = model.ModuleUsers
)

// registerFleet mounts assets, readings, thresholds and alerts.
func registerFleet(api *echo.Group, h Handlers, g Guards, authed []echo.MiddlewareFunc) {
	as := api.Group("/assets", authed...)
	as.GET("", h.Assets.List, g.can(model.ModuleAssets, view))
	as.GET("/:id", h.Assets.Get, g.can(model.ModuleAssets, view))
	as.POST("", h.Assets.Create, g.can(model.ModuleAssets, edit))
	as.PUT("/:id", h.Assets.Update, g.can(model.ModuleAssets, edit))
	as.DELETE("/:id", h.Assets.Delete, g.can(model.ModuleAssets, edit))

	rd := api.Group("/readings", authed...)
	rd.GET("", h.Readings.List, g.can(model.ModuleReadings, view))
	rd.GET("/:kaplanUnitNo", h.Readings.ByUnit, g.can(model.ModuleReadings, view))
	rd.POST("", h.Readings.Create, g.can(model.ModuleReadings, edit))

	// Threshold edits are reserved to admins regardless of module grants.
	th := api.Group("/maintenance-thresholds", authed...)
	admin := middleware.RequireRole(model.RoleAdmin)
	th.GET("", h.Thresholds.List, g.can(model.ModuleThresholds, view))
	th.GET("/:id", h.Thresholds.Get, g.can(model.ModuleThresholds, view))
	th.POST("", h.Thresholds.Create, admin)
	th.PUT("/:id", h.Thresholds.Update, admin)
	th.DELETE("/:id", h.Thresholds.Delete, admin)

	al := api.Group("/alerts", authed...)
	al.GET("", h.Alerts.List, g.can(model.ModuleAlerts, view))
	al.PUT("/:id/acknowledge", h.Alerts.Acknowledge, g.can(model.ModuleAlerts, edit))
	al.PUT("/:id/comment", h.Alerts.Comment, g.can(model.ModuleAlerts, edit))
	al.PUT("/:id/level", h.Alerts.Level, g.can(model.ModuleAlerts, edit))
	al.POST("/:id/ticket", h.Alerts.RaiseTicket, g.can(model.ModuleAlerts, edit), g.can(model.ModuleTickets, edit))
	al.DELETE("/:id", h.Alerts.Delete, g.can(model.ModuleAlerts, edit))
}

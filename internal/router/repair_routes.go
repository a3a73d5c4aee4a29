package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// registerRepairs mounts repair tickets, work orders, work logs and
// mechanics.  Static segments such as /ranks and /export are registered
// beside /:id; Echo prefers the static match.
func registerRepairs(api *echo.Group, h Handlers, g Guards, authed []echo.MiddlewareFunc) {
	rt := api.Group("/repair-tickets", authed...)
	rt.GET("", h.Tickets.List, g.can(model.ModuleTickets, view))
	rt.GET("/export", h.Tickets.Export, g.can(model.ModuleTickets, view))
	rt.GET("/:id", h.Tickets.Get, g.can(model.ModuleTickets, view))
	rt.POST("", h.Tickets.Create, g.can(model.ModuleTickets, edit))
	rt.PUT("/ranks", h.Tickets.Reorder, g.can(model.ModuleTickets, edit))
	rt.PUT("/:id", h.Tickets.Update, g.can(model.ModuleTickets, edit))
	rt.DELETE("/:id", h.Tickets.Delete, g.can(model.ModuleTickets, edit))

	wo := api.Group("/workorders", authed...)
	wo.GET("", h.WorkOrders.List, g.can(model.ModuleWorkOrders, view))
	wo.GET("/export", h.WorkOrders.Export, g.can(model.ModuleWorkOrders, view))
	wo.GET("/:id", h.WorkOrders.Get, g.can(model.ModuleWorkOrders, view))
	wo.POST("", h.WorkOrders.Create, g.can(model.ModuleWorkOrders, edit))
	wo.PUT("/ranks", h.WorkOrders.Reorder, g.can(model.ModuleWorkOrders, edit))
	wo.PUT("/:id", h.WorkOrders.Update, g.can(model.ModuleWorkOrders, edit))
	wo.POST("/:id/attachments", h.WorkOrders.Attach, g.can(model.ModuleWorkOrders, edit))
	wo.DELETE("/:id", h.WorkOrders.Delete, g.can(model.ModuleWorkOrders, edit))

	wl := api.Group("/worklogs", authed...)
	wl.GET("", h.WorkLogs.List, g.can(model.ModuleMechanics, view))
	wl.GET("/:id", h.WorkLogs.Get, g.can(model.ModuleMechanics, view))
	wl.POST("", h.WorkLogs.Create, g.can(model.ModuleMechanics, edit))
	wl.PUT("/:id", h.WorkLogs.Update, g.can(model.ModuleMechanics, edit))
	wl.DELETE("/:id", h.WorkLogs.Delete, g.can(model.ModuleMechanics, edit))

	mc := api.Group("/mechanics", authed...)
	mc.GET("", h.Mechanics.List, g.can(model.ModuleMechanics, view))
	mc.GET("/productivity", h.Mechanics.Productivity, g.can(model.ModuleMechanics, view))
}

// registerReports mounts the dashboard and audit trail.
func registerReports(api *echo.Group, h Handlers, g Guards, authed []echo.MiddlewareFunc) {
	db := api.Group("/dashboard", append(authed, g.can(model.ModuleDashboard, view), g.Cache)...)
	db.GET("/stats", h.Dashboard.Stats)
	db.GET("/top-assets-by-repairs", h.Dashboard.TopAssetsByRepairs)
	db.GET("/fuel-inefficient", h.Dashboard.FuelInefficient)
	db.GET("/notifications", h.Dashboard.Notifications)

	au := api.Group("/audit-trail", authed...)
	au.GET("", h.Audit.List, g.can(model.ModuleAuditTrail, view))
}

package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/handler"
	"github.com/Kaplan-Paving/fleet-backend/internal/middleware"
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Assets      *handler.AssetHandler
	Readings    *handler.ReadingHandler
	Thresholds  *handler.ThresholdHandler
	Alerts      *handler.AlertHandler
	Tickets     *handler.RepairTicketHandler
	WorkOrders  *handler.WorkOrderHandler
	WorkLogs    *handler.WorkLogHandler
	Mechanics   *handler.MechanicHandler
	Dashboard   *handler.DashboardHandler
	Audit       *handler.AuditHandler
	Attachments *handler.AttachmentHandler
	Live        http.Handler // websocket notifications
}

// Guards holds the middleware shared across route groups.
type Guards struct {
	Auth       echo.MiddlewareFunc // JWT cookie authentication
	Perms      middleware.PermissionChecker
	Activity   echo.MiddlewareFunc // lastSeen tracking
	Audit      echo.MiddlewareFunc
	RateLimit  echo.MiddlewareFunc
	LoginLimit echo.MiddlewareFunc
	Cache      echo.MiddlewareFunc // dashboard response cache
}

// can requires action on module for the authenticated user.
func (g Guards) can(module, action string) echo.MiddlewareFunc {
	return middleware.RequirePermission(g.Perms, module, action)
}

// Register mounts /healthz and the /api tree on e.  Every /api request
// passes the rate limiter and is written to the audit trail.
func Register(e *echo.Echo, h Handlers, g Guards) {
	e.GET("/healthz", h.Health.Health)

	api := e.Group("/api", g.RateLimit, g.Audit)
	authed := []echo.MiddlewareFunc{g.Auth, g.Activity}

	registerAuth(api, h.Auth, g, authed)
	registerFleet(api, h, g, authed)
	registerRepairs(api, h, g, authed)
	registerReports(api, h, g, authed)

	api.GET("/attachments/*", h.Attachments.Serve, authed...)
	api.GET("/ws", echo.WrapHandler(h.Live), g.Auth)
}

// registerAuth mounts /api/auth.  Login and logout are open; everything
// else needs a session.
func registerAuth(api *echo.Group, a *handler.AuthHandler, g Guards, authed []echo.MiddlewareFunc) {
	open := api.Group("/auth")
	open.POST("/login", a.Login, g.LoginLimit)
	open.POST("/logout", a.Logout)

	s := api.Group("/auth", authed...)
	s.GET("/me", a.Me)
	s.PUT("/reset-password", a.ResetPassword)
	s.GET("/users", a.ListUsers, g.can(usersModule, view))
	s.GET("/search", a.Search, g.can(usersModule, view))
	s.POST("/register", a.Register, g.can(usersModule, edit))
	s.POST("/create", a.CreateWithGeneratedPassword, g.can(usersModule, edit))
	s.PUT("/user/:id", a.UpdateUser, g.can(usersModule, edit))
	s.PUT("/:id/payrate", a.SetPayRate, g.can(usersModule, edit))
}

package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// RequireRole lets the request through only when the authenticated user
// has one of roles.  It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[CurrentRole(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "Access denied: You do not have permission to perform this action.",
				})
			}
			return next(c)
		}
	}
}

// PermissionChecker decides module access for a user.
type PermissionChecker interface {
	Allowed(u model.User, module, action string) (bool, error)
}

// RequirePermission rejects the request with 403 unless the user may
// perform action ("view" or "edit") on module.
func RequirePermission(p PermissionChecker, module, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required."})
			}
			ok, err := p.Allowed(*u, module, action)
			if err != nil {
				return err
			}
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": fmt.Sprintf("Access Denied: You do not have '%s' permission for the '%s' module.", action, module),
				})
			}
			return next(c)
		}
	}
}

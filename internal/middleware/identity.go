package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// CurrentUser returns the authenticated user, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(KeyUser).(*model.User)
	return u
}

// CurrentUserID returns the authenticated user's id, or 0.
func CurrentUserID(c echo.Context) uint64 {
	id, _ := c.Get(KeyUserID).(uint64)
	return id
}

// CurrentRole returns the authenticated user's role, or "".
func CurrentRole(c echo.Context) string {
	r, _ := c.Get(KeyRole).(string)
	return r
}

// identityKey names the caller for rate limiting; "anon" when signed out.
func identityKey(c echo.Context) string {
	if id := CurrentUserID(c); id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

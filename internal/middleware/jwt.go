package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

// CookieName is the session cookie set by the login endpoint.
const CookieName = "token"

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyUser   = "user"
)

// UserLoader fetches the current user record for a verified token.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// JWTAuth verifies the session token from the `token` cookie, falling back
// to an `Authorization: Bearer` header, and loads the user it names.  The
// user is looked up on every request so deleted accounts and permission
// changes take effect immediately.  Handlers read the identity with
// CurrentUser / CurrentUserID.
func JWTAuth(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authorized, no token"})
			}
			claims, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authorized, token failed"})
			}
			id, _ := claims.UserID()

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authorized, user not found"})
			}
			if err != nil {
				return err
			}

			c.Set(KeyUserID, u.ID)
			c.Set(KeyRole, u.Role)
			c.Set(KeyUser, &u)
			return next(c)
		}
	}
}

func tokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

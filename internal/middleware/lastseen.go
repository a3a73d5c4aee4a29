package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
)

// LastSeenStore persists a user's last activity time.
type LastSeenStore interface {
	TouchLastSeen(ctx context.Context, id uint64, at time.Time) error
}

// LastSeen updates the authenticated user's lastSeen in the background.
// Writes for the same user are spaced at least every apart.
func LastSeen(store LastSeenStore, every time.Duration) echo.MiddlewareFunc {
	var (
		mu   sync.Mutex
		seen = map[uint64]time.Time{}
	)
	log := logger.WithComponent("lastseen")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := CurrentUserID(c)
			if id == 0 {
				return next(c)
			}
			now := time.Now().UTC()
			mu.Lock()
			due := now.Sub(seen[id]) >= every
			if due {
				seen[id] = now
			}
			mu.Unlock()
			if due {
				ctx := context.WithoutCancel(c.Request().Context())
				go func() {
					ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
					defer cancel()
					if err := store.TouchLastSeen(ctx, id, now); err != nil {
						log.Warn("could not update lastSeen", "user_id", id, "error", err)
					}
				}()
			}
			return next(c)
		}
	}
}

package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.NewValidation("invalid " + name)
	}
	return id, nil
}

// bind decodes the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.NewValidation("invalid request body")
	}
	return nil
}

// storeErr maps repository sentinels to API errors.  what names the
// resource in messages, e.g. "Asset".
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case apperror.Get(err) != nil:
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NewNotFound(what + " not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.NewConflict(what + " already exists")
	}
	return apperror.NewInternal("Server error").WithCause(err)
}

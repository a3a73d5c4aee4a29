package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/service"
)

// ProductivityAPI reports a mechanic's day.
type ProductivityAPI interface {
	Daily(ctx context.Context, userID uint64, date string) (service.Productivity, error)
}

// MechanicLister lists users of one role.
type MechanicLister interface {
	List(ctx context.Context, role string) ([]model.User, error)
}

// MechanicHandler serves /api/mechanics.
type MechanicHandler struct {
	Svc   ProductivityAPI
	Users MechanicLister
}

// List returns every mechanic.
func (h *MechanicHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	us, err := h.Users.List(ctx, model.RoleMechanic)
	if err != nil {
		return storeErr(err, "Mechanic")
	}
	return c.JSON(http.StatusOK, us)
}

// Productivity answers ?userId=&date=YYYY-MM-DD.
func (h *MechanicHandler) Productivity(c echo.Context) error {
	var id uint64
	if s := c.QueryParam("userId"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return apperror.NewValidation("invalid userId")
		}
		id = v
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Svc.Daily(ctx, id, c.QueryParam("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

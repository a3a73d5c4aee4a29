package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/middleware"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/service"
)

// AlertActions are the alert state changes owned by the alert service.
type AlertActions interface {
	ToggleAcknowledge(ctx context.Context, id uint64, by *model.User) (model.Alert, error)
	SetComment(ctx context.Context, id uint64, comment string) (model.Alert, error)
	SetLevel(ctx context.Context, id uint64, level model.Priority) (model.Alert, error)
	RaiseTicket(ctx context.Context, id uint64, in service.RaiseTicketInput, by *model.User) (model.Alert, model.RepairTicket, error)
}

// AlertReader lists and removes alerts directly.
type AlertReader interface {
	List(ctx context.Context) ([]model.Alert, error)
	Delete(ctx context.Context, id uint64) error
}

// AlertHandler serves /api/alerts.
type AlertHandler struct {
	Svc    AlertActions
	Alerts AlertReader
}

type commentReq struct {
	Comment string `json:"comment"`
}

type levelReq struct {
	AlertLevel model.Priority `json:"alertLevel"`
}

// List returns alerts newest first.
func (h *AlertHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	alerts, err := h.Alerts.List(ctx)
	if err != nil {
		return storeErr(err, "Alert")
	}
	return c.JSON(http.StatusOK, alerts)
}

// Acknowledge toggles the acknowledged flag on behalf of the caller.
func (h *AlertHandler) Acknowledge(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Svc.ToggleAcknowledge(ctx, id, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AlertHandler) Comment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req commentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Svc.SetComment(ctx, id, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AlertHandler) Level(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req levelReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Svc.SetLevel(ctx, id, req.AlertLevel)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AlertHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Alerts.Delete(ctx, id); err != nil {
		return storeErr(err, "Alert")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Alert deleted successfully"})
}

// RaiseTicket opens a repair ticket from the alert.
func (h *AlertHandler) RaiseTicket(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.RaiseTicketInput
	if c.Request().ContentLength != 0 {
		if err := bind(c, &in); err != nil {
			return err
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, t, err := h.Svc.RaiseTicket(ctx, id, in, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"alert": a, "ticket": t})
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

// WorkLogStore is the work log persistence used by WorkLogHandler.
type WorkLogStore interface {
	Create(ctx context.Context, w *model.WorkLog) error
	GetByID(ctx context.Context, id uint64) (model.WorkLog, error)
	List(ctx context.Context, f repository.WorkLogFilter) ([]model.WorkLog, error)
	Update(ctx context.Context, w *model.WorkLog) error
	Delete(ctx context.Context, id uint64) error
}

// TicketLookup resolves a ticket id to its record.
type TicketLookup interface {
	GetByID(ctx context.Context, id uint64) (model.RepairTicket, error)
}

// WorkLogHandler serves /api/worklogs.
type WorkLogHandler struct {
	Logs    WorkLogStore
	Tickets TicketLookup
}

type workLogReq struct {
	Mechanic    model.MechanicRef `json:"mechanic"`
	KaplanUnit  string            `json:"kaplanUnit" validate:"required"`
	WorkOrderID *uint64           `json:"workOrderId"`
	TicketID    *uint64           `json:"ticketId"`
	Date        *time.Time        `json:"date"`
	TimeIn      time.Time         `json:"timeIn" validate:"required"`
	TimeOut     time.Time         `json:"timeOut" validate:"required"`
	PartsUsed   []model.PartUsed  `json:"partsUsed" validate:"omitempty,dive"`
}

// toModel validates req and resolves the ticket number of its ticket.
func (h *WorkLogHandler) toModel(ctx context.Context, req workLogReq) (model.WorkLog, error) {
	req.KaplanUnit = strings.TrimSpace(req.KaplanUnit)
	req.Mechanic.Name = strings.TrimSpace(req.Mechanic.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return model.WorkLog{}, err
	}
	if !req.TimeOut.After(req.TimeIn) {
		return model.WorkLog{}, apperror.NewValidation("validation failed", "timeOut must be after timeIn")
	}
	w := model.WorkLog{
		Mechanic:    req.Mechanic,
		KaplanUnit:  req.KaplanUnit,
		WorkOrderID: req.WorkOrderID,
		TicketID:    req.TicketID,
		Date:        req.TimeIn,
		TimeIn:      req.TimeIn,
		TimeOut:     req.TimeOut,
		PartsUsed:   req.PartsUsed,
	}
	if req.Date != nil {
		w.Date = *req.Date
	}
	if w.PartsUsed == nil {
		w.PartsUsed = []model.PartUsed{}
	}
	if req.TicketID != nil {
		t, err := h.Tickets.GetByID(ctx, *req.TicketID)
		if errors.Is(err, repository.ErrNotFound) {
			return model.WorkLog{}, apperror.NewValidation("Referenced ticket does not exist.")
		}
		if err != nil {
			return model.WorkLog{}, apperror.NewInternal("Server error").WithCause(err)
		}
		w.TicketNumber = t.TicketNumber
	}
	return w, nil
}

func (h *WorkLogHandler) Create(c echo.Context) error {
	var req workLogReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	w, err := h.toModel(ctx, req)
	if err != nil {
		return err
	}
	if err := h.Logs.Create(ctx, &w); err != nil {
		return storeErr(err, "Work log")
	}
	return c.JSON(http.StatusCreated, w)
}

// List supports ?mechanicId= and ?kaplanUnit= filters.
func (h *WorkLogHandler) List(c echo.Context) error {
	var f repository.WorkLogFilter
	if s := c.QueryParam("mechanicId"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return apperror.NewValidation("invalid mechanicId")
		}
		f.MechanicID = id
	}
	f.KaplanUnit = strings.TrimSpace(c.QueryParam("kaplanUnit"))
	ctx, cancel := reqCtx(c)
	defer cancel()
	logs, err := h.Logs.List(ctx, f)
	if err != nil {
		return storeErr(err, "Work log")
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *WorkLogHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	w, err := h.Logs.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "Work log")
	}
	return c.JSON(http.StatusOK, w)
}

func (h *WorkLogHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req workLogReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Logs.GetByID(ctx, id); err != nil {
		return storeErr(err, "Work log")
	}
	w, err := h.toModel(ctx, req)
	if err != nil {
		return err
	}
	w.ID = id
	if err := h.Logs.Update(ctx, &w); err != nil {
		return storeErr(err, "Work log")
	}
	return c.JSON(http.StatusOK, w)
}

func (h *WorkLogHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Logs.Delete(ctx, id); err != nil {
		return storeErr(err, "Work log")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Work log deleted successfully"})
}

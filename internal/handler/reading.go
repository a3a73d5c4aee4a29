package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/middleware"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/service"
)

// ReadingRecorder stores readings and raises threshold alerts.
type ReadingRecorder interface {
	RecordReading(ctx context.Context, in service.RecordReadingInput) (service.ReadingResult, error)
}

// ReadingLister lists stored readings, optionally for one unit.
type ReadingLister interface {
	List(ctx context.Context, unit string) ([]model.Reading, error)
}

// ReadingHandler serves /api/readings.
type ReadingHandler struct {
	Svc      ReadingRecorder
	Readings ReadingLister
}

// Create records a reading.  The reporting user defaults to the caller.
func (h *ReadingHandler) Create(c echo.Context) error {
	var in service.RecordReadingInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if strings.TrimSpace(in.User) == "" {
		if u := middleware.CurrentUser(c); u != nil {
			in.User = u.Name
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.RecordReading(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *ReadingHandler) List(c echo.Context) error {
	return h.list(c, "")
}

func (h *ReadingHandler) ByUnit(c echo.Context) error {
	return h.list(c, c.Param("kaplanUnitNo"))
}

func (h *ReadingHandler) list(c echo.Context, unit string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rs, err := h.Readings.List(ctx, strings.TrimSpace(unit))
	if err != nil {
		return storeErr(err, "Reading")
	}
	return c.JSON(http.StatusOK, rs)
}

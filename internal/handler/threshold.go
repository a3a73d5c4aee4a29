package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

// ThresholdStore is the maintenance threshold persistence.
type ThresholdStore interface {
	Create(ctx context.Context, t *model.MaintenanceThreshold) error
	GetByID(ctx context.Context, id uint64) (model.MaintenanceThreshold, error)
	List(ctx context.Context) ([]model.MaintenanceThreshold, error)
	Update(ctx context.Context, t *model.MaintenanceThreshold) error
	Delete(ctx context.Context, id uint64) error
}

// ThresholdHandler serves /api/maintenance-thresholds.
type ThresholdHandler struct {
	Thresholds ThresholdStore
}

func (h *ThresholdHandler) Create(c echo.Context) error {
	var t model.MaintenanceThreshold
	if err := bind(c, &t); err != nil {
		return err
	}
	t.ID = 0
	t.SubAssetType = strings.TrimSpace(t.SubAssetType)
	if err := utils.ValidateStruct(t); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Thresholds.Create(ctx, &t); err != nil {
		return storeErr(err, "Threshold for this sub asset type")
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *ThresholdHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ts, err := h.Thresholds.List(ctx)
	if err != nil {
		return storeErr(err, "Threshold")
	}
	return c.JSON(http.StatusOK, ts)
}

func (h *ThresholdHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Thresholds.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "Threshold")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *ThresholdHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Thresholds.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "Threshold")
	}
	if err := bind(c, &t); err != nil {
		return err
	}
	t.ID = id
	t.SubAssetType = strings.TrimSpace(t.SubAssetType)
	if err := utils.ValidateStruct(t); err != nil {
		return err
	}
	if err := h.Thresholds.Update(ctx, &t); err != nil {
		return storeErr(err, "Threshold for this sub asset type")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *ThresholdHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Thresholds.Delete(ctx, id); err != nil {
		return storeErr(err, "Threshold")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Threshold deleted successfully"})
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

// AssetStore is the asset persistence used by AssetHandler.
type AssetStore interface {
	Create(ctx context.Context, a *model.Asset) error
	GetByID(ctx context.Context, id uint64) (model.Asset, error)
	List(ctx context.Context, status string) ([]model.Asset, error)
	Update(ctx context.Context, a *model.Asset) error
	Delete(ctx context.Context, id uint64) error
}

// AssetHandler serves /api/assets.
type AssetHandler struct {
	Assets AssetStore
}

func (h *AssetHandler) Create(c echo.Context) error {
	var a model.Asset
	if err := bind(c, &a); err != nil {
		return err
	}
	a.ID = 0
	a.KaplanUnitNo = strings.TrimSpace(a.KaplanUnitNo)
	a.ApplyDefaults()
	if err := utils.ValidateStruct(a); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Assets.Create(ctx, &a); err != nil {
		return storeErr(err, "Asset with this Kaplan unit number")
	}
	return c.JSON(http.StatusCreated, a)
}

// List returns all assets, optionally filtered by ?status=.
func (h *AssetHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	as, err := h.Assets.List(ctx, strings.TrimSpace(c.QueryParam("status")))
	if err != nil {
		return storeErr(err, "Asset")
	}
	return c.JSON(http.StatusOK, as)
}

func (h *AssetHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Assets.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "Asset")
	}
	return c.JSON(http.StatusOK, a)
}

// Update overlays the request body on the stored asset.
func (h *AssetHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Assets.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "Asset")
	}
	if err := bind(c, &a); err != nil {
		return err
	}
	a.ID = id
	a.KaplanUnitNo = strings.TrimSpace(a.KaplanUnitNo)
	if err := utils.ValidateStruct(a); err != nil {
		return err
	}
	if err := h.Assets.Update(ctx, &a); err != nil {
		return storeErr(err, "Asset with this Kaplan unit number")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AssetHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Assets.Delete(ctx, id); err != nil {
		return storeErr(err, "Asset")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Asset deleted successfully"})
}

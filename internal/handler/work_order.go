package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/service"
)

// WorkOrderHandler serves /api/workorders.
type WorkOrderHandler struct {
	Svc      TicketAPI
	Store    BlobStore
	MaxFiles int
}

func (h *WorkOrderHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	wos, err := h.Svc.ListWorkOrders(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wos)
}

func (h *WorkOrderHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	wo, err := h.Svc.GetWorkOrder(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wo)
}

// Create groups the listed tickets into a new work order.
func (h *WorkOrderHandler) Create(c echo.Context) error {
	var in service.GroupTicketsInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	wo, err := h.Svc.GroupTickets(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, wo)
}

func (h *WorkOrderHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.UpdateWorkOrderInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	wo, err := h.Svc.UpdateWorkOrder(ctx, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wo)
}

// Attach appends multipart attachments to a work order.
func (h *WorkOrderHandler) Attach(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	atts, err := saveUploads(ctx, c, h.Store, h.MaxFiles)
	if err != nil {
		return err
	}
	if len(atts) == 0 {
		return apperror.NewValidation("no attachments uploaded")
	}
	wo, err := h.Svc.UpdateWorkOrder(ctx, id, service.UpdateWorkOrderInput{Attachments: atts})
	if err != nil {
		discardUploads(ctx, h.Store, atts)
		return err
	}
	return c.JSON(http.StatusOK, wo)
}

func (h *WorkOrderHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.DeleteWorkOrder(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Work order deleted successfully", "id": id})
}

// Reorder applies PUT /ranks with the same body shape as tickets.
func (h *WorkOrderHandler) Reorder(c echo.Context) error {
	var req rankBatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.ReorderWorkOrders(ctx, req.OrderedTickets); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Work order ranks updated successfully"})
}

func (h *WorkOrderHandler) Export(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	wos, err := h.Svc.ListWorkOrders(ctx)
	if err != nil {
		return err
	}
	return sendWorkbook(c, "work-orders", "Work Orders", workOrderExportHeaders, workOrderRows(wos))
}

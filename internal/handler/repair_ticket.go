package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/service"
)

// TicketAPI is the linking service as seen by the HTTP layer.
type TicketAPI interface {
	CreateTicketAndWorkOrder(ctx context.Context, in service.CreateTicketInput) (model.RepairTicket, error)
	DeleteTicketAndReconcile(ctx context.Context, id uint64) error
	ReorderTickets(ctx context.Context, updates []model.RankUpdate) error
	ListTickets(ctx context.Context, unit string) ([]model.RepairTicket, error)
	GetTicket(ctx context.Context, id uint64) (model.RepairTicket, error)
	UpdateTicket(ctx context.Context, id uint64, in service.UpdateTicketInput) (model.RepairTicket, error)

	GroupTickets(ctx context.Context, in service.GroupTicketsInput) (model.WorkOrder, error)
	ReorderWorkOrders(ctx context.Context, updates []model.RankUpdate) error
	ListWorkOrders(ctx context.Context) ([]model.WorkOrder, error)
	GetWorkOrder(ctx context.Context, id uint64) (model.WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, id uint64, in service.UpdateWorkOrderInput) (model.WorkOrder, error)
	DeleteWorkOrder(ctx context.Context, id uint64) error
}

// RepairTicketHandler serves /api/repair-tickets.
type RepairTicketHandler struct {
	Svc      TicketAPI
	Store    BlobStore
	MaxFiles int
}

type rankBatchReq struct {
	OrderedTickets []model.RankUpdate `json:"orderedTickets"`
}

// Create accepts the ticket fields plus up to MaxFiles attachments as
// multipart form data, or plain JSON without attachments.
func (h *RepairTicketHandler) Create(c echo.Context) error {
	var in service.CreateTicketInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	atts, err := saveUploads(ctx, c, h.Store, h.MaxFiles)
	if err != nil {
		return err
	}
	in.Attachments = atts

	t, err := h.Svc.CreateTicketAndWorkOrder(ctx, in)
	if err != nil {
		discardUploads(ctx, h.Store, atts)
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *RepairTicketHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ts, err := h.Svc.ListTickets(ctx, c.QueryParam("kaplanUnitNo"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ts)
}

func (h *RepairTicketHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Svc.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *RepairTicketHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in service.UpdateTicketInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Svc.UpdateTicket(ctx, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Delete removes the ticket and then its stored attachments.
func (h *RepairTicketHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Svc.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteTicketAndReconcile(ctx, id); err != nil {
		return err
	}
	discardUploads(ctx, h.Store, t.Attachments)
	return c.JSON(http.StatusOK, echo.Map{"message": "Repair ticket deleted successfully", "id": id})
}

// Reorder applies PUT /ranks {orderedTickets:[{_id, priorityRank}]}.
func (h *RepairTicketHandler) Reorder(c echo.Context) error {
	var req rankBatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.ReorderTickets(ctx, req.OrderedTickets); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Ticket ranks updated successfully"})
}

func (h *RepairTicketHandler) Export(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ts, err := h.Svc.ListTickets(ctx, c.QueryParam("kaplanUnitNo"))
	if err != nil {
		return err
	}
	return sendWorkbook(c, "repair-tickets", "Repair Tickets", ticketExportHeaders, ticketRows(ts))
}

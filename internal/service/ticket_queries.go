package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

// ListTickets returns tickets ordered by rank, optionally for one unit.
func (s *TicketService) ListTickets(ctx context.Context, unit string) ([]model.RepairTicket, error) {
	list, err := s.tickets.List(ctx, strings.TrimSpace(unit))
	if err != nil {
		return nil, apperror.NewInternal("failed to load repair tickets").WithCause(err)
	}
	return list, nil
}

func (s *TicketService) GetTicket(ctx context.Context, id uint64) (model.RepairTicket, error) {
	t, err := s.tickets.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RepairTicket{}, apperror.NewNotFound("ticket not found")
	}
	if err != nil {
		return model.RepairTicket{}, apperror.NewInternal("failed to load repair ticket").WithCause(err)
	}
	return t, nil
}

// UpdateTicketInput holds the editable ticket fields.  Nil leaves a field
// unchanged.  Rank and unit are not editable here.
type UpdateTicketInput struct {
	IssueDescription *string             `json:"issueDescription" validate:"omitempty,min=1"`
	Reason           *string             `json:"reason" validate:"omitempty,min=1"`
	Priority         *model.Priority     `json:"priority" validate:"omitempty,priority"`
	TicketStatus     *model.TicketStatus `json:"ticketStatus" validate:"omitempty,ticketstatus"`
}

func (s *TicketService) UpdateTicket(ctx context.Context, id uint64, in UpdateTicketInput) (model.RepairTicket, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return model.RepairTicket{}, err
	}
	var t model.RepairTicket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if t, err = s.tickets.GetByID(ctx, id); err != nil {
			return err
		}
		if in.IssueDescription != nil {
			t.IssueDescription = strings.TrimSpace(*in.IssueDescription)
		}
		if in.Reason != nil {
			t.Reason = strings.TrimSpace(*in.Reason)
		}
		if in.Priority != nil {
			t.Priority = *in.Priority
		}
		if in.TicketStatus != nil {
			t.TicketStatus = *in.TicketStatus
		}
		return s.tickets.Update(ctx, &t)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.RepairTicket{}, apperror.NewNotFound("ticket not found")
	}
	if err != nil {
		return model.RepairTicket{}, apperror.NewInternal("failed to update repair ticket").WithCause(err)
	}
	return t, nil
}

// ListWorkOrders returns work orders ordered by rank with their tickets
// populated in link order.
func (s *TicketService) ListWorkOrders(ctx context.Context) ([]model.WorkOrder, error) {
	wos, err := s.workOrders.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to load work orders").WithCause(err)
	}
	if err := s.populate(ctx, wos); err != nil {
		return nil, apperror.NewInternal("failed to load work order tickets").WithCause(err)
	}
	return wos, nil
}

func (s *TicketService) GetWorkOrder(ctx context.Context, id uint64) (model.WorkOrder, error) {
	wo, err := s.workOrders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.WorkOrder{}, apperror.NewNotFound("work order not found")
	}
	if err != nil {
		return model.WorkOrder{}, apperror.NewInternal("failed to load work order").WithCause(err)
	}
	one := []model.WorkOrder{wo}
	if err := s.populate(ctx, one); err != nil {
		return model.WorkOrder{}, apperror.NewInternal("failed to load work order tickets").WithCause(err)
	}
	return one[0], nil
}

func (s *TicketService) populate(ctx context.Context, wos []model.WorkOrder) error {
	var ids []uint64
	for _, w := range wos {
		ids = append(ids, w.TicketIDs...)
	}
	if len(ids) == 0 {
		return nil
	}
	tickets, err := s.tickets.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[uint64]model.RepairTicket, len(tickets))
	for _, t := range tickets {
		byID[t.ID] = t
	}
	for i := range wos {
		wos[i].Tickets = make([]model.RepairTicket, 0, len(wos[i].TicketIDs))
		for _, id := range wos[i].TicketIDs {
			if t, ok := byID[id]; ok {
				wos[i].Tickets = append(wos[i].Tickets, t)
			}
		}
	}
	return nil
}

// UpdateWorkOrderInput holds the fields filled in as a repair progresses.
// Ticket membership and rank have their own operations.
type UpdateWorkOrderInput struct {
	Description          *string             `json:"description"`
	Priority             *model.Priority     `json:"priority" validate:"omitempty,wopriority"`
	ServiceType          *string             `json:"serviceType"`
	ServiceSubType       *string             `json:"serviceSubType"`
	AssignedTechnician   *model.Technician   `json:"assignedTechnician"`
	TicketStatus         *model.TicketStatus `json:"ticketStatus" validate:"omitempty,ticketstatus"`
	Reason               *string             `json:"reason"`
	TotalLabourHours     *float64            `json:"totalLabourHours" validate:"omitempty,gte=0"`
	TotalCost            *float64            `json:"totalCost" validate:"omitempty,gte=0"`
	TimeIn               *time.Time          `json:"timeIn"`
	TimeOut              *time.Time          `json:"timeOut"`
	DropOffDate          *time.Time          `json:"dropOffDate"`
	WorkStartDate        *time.Time          `json:"workStartDate"`
	PartsOrderDate       *time.Time          `json:"partsOrderDate"`
	PartsDeliveryDate    *time.Time          `json:"partsDeliveryDate"`
	RepairCompletionDate *time.Time          `json:"repairCompletionDate"`
	Complaint            *string             `json:"complaint"`
	Cause                *string             `json:"cause"`
	Correction           *string             `json:"correction"`
	BillOfMaterials      []model.BOMItem     `json:"billOfMaterials" validate:"omitempty,dive"`
	Attachments          []model.Attachment  `json:"-"`
}

func (in UpdateWorkOrderInput) apply(w *model.WorkOrder) {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setStr(&w.Description, in.Description)
	setStr(&w.ServiceType, in.ServiceType)
	setStr(&w.ServiceSubType, in.ServiceSubType)
	setStr(&w.Reason, in.Reason)
	setStr(&w.Complaint, in.Complaint)
	setStr(&w.Cause, in.Cause)
	setStr(&w.Correction, in.Correction)
	if in.Priority != nil {
		w.Priority = *in.Priority
	}
	if in.AssignedTechnician != nil {
		w.AssignedTechnician = *in.AssignedTechnician
	}
	if in.TicketStatus != nil {
		w.TicketStatus = *in.TicketStatus
	}
	if in.TotalLabourHours != nil {
		w.TotalLabourHours = in.TotalLabourHours
	}
	if in.TotalCost != nil {
		w.TotalCost = in.TotalCost
	}
	for _, d := range []struct {
		dst **time.Time
		v   *time.Time
	}{
		{&w.TimeIn, in.TimeIn},
		{&w.TimeOut, in.TimeOut},
		{&w.DropOffDate, in.DropOffDate},
		{&w.WorkStartDate, in.WorkStartDate},
		{&w.PartsOrderDate, in.PartsOrderDate},
		{&w.PartsDeliveryDate, in.PartsDeliveryDate},
		{&w.RepairCompletionDate, in.RepairCompletionDate},
	} {
		if d.v != nil {
			*d.dst = d.v
		}
	}
	if in.BillOfMaterials != nil {
		w.BillOfMaterials = in.BillOfMaterials
	}
	if len(in.Attachments) > 0 {
		w.Attachments = append(w.Attachments, in.Attachments...)
	}
}

func (s *TicketService) UpdateWorkOrder(ctx context.Context, id uint64, in UpdateWorkOrderInput) (model.WorkOrder, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return model.WorkOrder{}, err
	}
	if in.TimeIn != nil && in.TimeOut != nil && in.TimeOut.Before(*in.TimeIn) {
		return model.WorkOrder{}, apperror.NewValidation("validation failed", "timeOut must be after timeIn")
	}
	var wo model.WorkOrder
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if wo, err = s.workOrders.GetByID(ctx, id); err != nil {
			return err
		}
		in.apply(&wo)
		return s.workOrders.Update(ctx, &wo)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.WorkOrder{}, apperror.NewNotFound("work order not found")
	}
	if err != nil {
		return model.WorkOrder{}, apperror.NewInternal("failed to update work order").WithCause(err)
	}
	return wo, nil
}

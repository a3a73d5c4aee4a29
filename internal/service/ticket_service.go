package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/logger"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/queue"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

// TicketStore is the repair ticket persistence used by TicketService.
type TicketStore interface {
	MaxRank(ctx context.Context) (int, error)
	Insert(ctx context.Context, t *model.RepairTicket) error
	GetByID(ctx context.Context, id uint64) (model.RepairTicket, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]model.RepairTicket, error)
	List(ctx context.Context, unit string) ([]model.RepairTicket, error)
	Update(ctx context.Context, t *model.RepairTicket) error
	Delete(ctx context.Context, id uint64) error
	CloseGap(ctx context.Context, rank int) error
	Ranks(ctx context.Context) (map[uint64]int, error)
	SetRank(ctx context.Context, id uint64, rank int) error
}

// WorkOrderStore is the work order persistence used by TicketService.
type WorkOrderStore interface {
	MaxRank(ctx context.Context) (int, error)
	Insert(ctx context.Context, w *model.WorkOrder) error
	GetByID(ctx context.Context, id uint64) (model.WorkOrder, error)
	List(ctx context.Context) ([]model.WorkOrder, error)
	LatestForUnit(ctx context.Context, unit string) (model.WorkOrder, error)
	FindByTicket(ctx context.Context, ticketID uint64) (model.WorkOrder, error)
	AppendTicket(ctx context.Context, woID, ticketID uint64) error
	RemoveTicket(ctx context.Context, woID, ticketID uint64) error
	Update(ctx context.Context, w *model.WorkOrder) error
	Delete(ctx context.Context, id uint64) error
	Ranks(ctx context.Context) (map[uint64]int, error)
	SetRank(ctx context.Context, id uint64, rank int) error
}

// Sequencer hands out strictly increasing values per counter name.
type Sequencer interface {
	Next(ctx context.Context, name string, start int64) (int64, error)
}

// Locker serializes writers on a named lock for the rest of the current
// transaction.
type Locker interface {
	Lock(ctx context.Context, name string) error
}

// TxRunner runs fn inside one transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher delivers domain events.  Failures never undo the change
// that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.FleetEvent) error
}

const (
	// rankLock guards both rank sequences and work order membership.
	rankLock         = "lock:ticket-ranks"
	workOrderCounter = "work_order_id"
	firstWorkOrderID = 1001
	ticketDayPrefix  = "ticket-day:"
)

// TicketDeps bundles TicketService collaborators.
type TicketDeps struct {
	Tickets     TicketStore
	WorkOrders  WorkOrderStore
	Counters    Sequencer // work order numbers
	DaySequence Sequencer // per-day ticket counts; defaults to Counters
	Locks       Locker
	Tx          TxRunner
	Events      EventPublisher
	Location    *time.Location // business time zone for ticket dates
	Clock       func() time.Time
}

// TicketService links repair tickets to work orders.  It owns ticket
// numbering, the dense rank sequences of tickets and work orders, and the
// one-work-order-per-unit grouping rule.
type TicketService struct {
	tickets    TicketStore
	workOrders WorkOrderStore
	counters   Sequencer
	daySeq     Sequencer
	locks      Locker
	tx         TxRunner
	events     EventPublisher
	loc        *time.Location
	now        func() time.Time
	log        *slog.Logger
}

func NewTicketService(d TicketDeps) *TicketService {
	if d.Tickets == nil || d.WorkOrders == nil || d.Counters == nil || d.Locks == nil || d.Tx == nil {
		panic("nil dependency passed to NewTicketService")
	}
	s := &TicketService{
		tickets:    d.Tickets,
		workOrders: d.WorkOrders,
		counters:   d.Counters,
		daySeq:     d.DaySequence,
		locks:      d.Locks,
		tx:         d.Tx,
		events:     d.Events,
		loc:        d.Location,
		now:        d.Clock,
		log:        logger.WithComponent("ticket-service"),
	}
	if s.daySeq == nil {
		s.daySeq = d.Counters
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateTicketInput carries the fields of a new repair ticket.
type CreateTicketInput struct {
	KaplanUnitNo     string             `json:"kaplanUnitNo" form:"kaplanUnitNo" validate:"required"`
	IssueDescription string             `json:"issueDescription" form:"issueDescription" validate:"required"`
	Reason           string             `json:"reason" form:"reason" validate:"required"`
	Priority         model.Priority     `json:"priority" form:"priority" validate:"required,priority"`
	TicketStatus     model.TicketStatus `json:"ticketStatus" form:"ticketStatus" validate:"omitempty,ticketstatus"`
	Attachments      []model.Attachment `json:"-" form:"-"`
}

func (in *CreateTicketInput) normalize() {
	in.KaplanUnitNo = strings.TrimSpace(in.KaplanUnitNo)
	in.IssueDescription = strings.TrimSpace(in.IssueDescription)
	in.Reason = strings.TrimSpace(in.Reason)
	in.Priority = model.Priority(strings.TrimSpace(string(in.Priority)))
	in.TicketStatus = model.TicketStatus(strings.TrimSpace(string(in.TicketStatus)))
}

// CreateTicketAndWorkOrder stores a new ticket at the bottom of the rank
// order and files it under the unit's most recent work order, minting a
// work order when the unit has none.  All writes share one transaction.
func (s *TicketService) CreateTicketAndWorkOrder(ctx context.Context, in CreateTicketInput) (model.RepairTicket, error) {
	in.normalize()
	if err := utils.ValidateStruct(in); err != nil {
		return model.RepairTicket{}, err
	}
	if in.TicketStatus == "" {
		in.TicketStatus = model.StatusUnderDiagnosis
	}
	if in.Attachments == nil {
		in.Attachments = []model.Attachment{}
	}

	var (
		ticket    model.RepairTicket
		minted    *model.WorkOrder
		workOrder int64
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.locks.Lock(ctx, rankLock); err != nil {
			return fmt.Errorf("lock ranks: %w", err)
		}
		now := s.now().In(s.loc)
		count, err := s.daySeq.Next(ctx, ticketDayPrefix+now.Format("20060102"), 1)
		if err != nil {
			return fmt.Errorf("next ticket count: %w", err)
		}
		maxRank, err := s.tickets.MaxRank(ctx)
		if err != nil {
			return fmt.Errorf("max ticket rank: %w", err)
		}
		ticket = model.RepairTicket{
			TicketNumber:     FormatTicketNumber(now, in.KaplanUnitNo, count),
			PriorityRank:     maxRank + 1,
			KaplanUnitNo:     in.KaplanUnitNo,
			IssueDescription: in.IssueDescription,
			Reason:           in.Reason,
			Priority:         in.Priority,
			TicketStatus:     in.TicketStatus,
			Attachments:      in.Attachments,
			Date:             now,
		}
		if err := s.tickets.Insert(ctx, &ticket); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}

		existing, err := s.workOrders.LatestForUnit(ctx, ticket.KaplanUnitNo)
		switch {
		case err == nil:
			if err := s.workOrders.AppendTicket(ctx, existing.ID, ticket.ID); err != nil {
				return fmt.Errorf("link ticket to work order %d: %w", existing.WorkOrderID, err)
			}
			workOrder = existing.WorkOrderID
			return nil
		case errors.Is(err, repository.ErrNotFound):
			wo, err := s.mintWorkOrder(ctx, ticket.KaplanUnitNo, ticket.IssueDescription, ticket.Priority, []uint64{ticket.ID})
			if err != nil {
				return err
			}
			minted, workOrder = &wo, wo.WorkOrderID
			return nil
		default:
			return fmt.Errorf("find work order for %s: %w", ticket.KaplanUnitNo, err)
		}
	})
	if err != nil {
		if apperror.Get(err) != nil {
			return model.RepairTicket{}, err
		}
		return model.RepairTicket{}, apperror.NewInternal("failed to create repair ticket").WithCause(err)
	}

	s.log.Info("repair ticket created",
		"ticket_number", ticket.TicketNumber, "rank", ticket.PriorityRank, "work_order_id", workOrder)
	s.publish(ctx, queue.FleetEvent{
		Kind:         queue.KindTicketCreated,
		Entity:       "RepairTicket",
		EntityID:     ticket.ID,
		KaplanUnitNo: ticket.KaplanUnitNo,
		Reference:    ticket.TicketNumber,
		Description:  fmt.Sprintf("Ticket %s raised for unit %s", ticket.TicketNumber, ticket.KaplanUnitNo),
	})
	if minted != nil {
		s.publishWorkOrderCreated(ctx, *minted)
	}
	return ticket, nil
}

// mintWorkOrder allocates the next work order number and rank.  Callers
// hold rankLock.
func (s *TicketService) mintWorkOrder(ctx context.Context, unit, description string, p model.Priority, ticketIDs []uint64) (model.WorkOrder, error) {
	number, err := s.counters.Next(ctx, workOrderCounter, firstWorkOrderID)
	if err != nil {
		return model.WorkOrder{}, fmt.Errorf("next work order number: %w", err)
	}
	maxRank, err := s.workOrders.MaxRank(ctx)
	if err != nil {
		return model.WorkOrder{}, fmt.Errorf("max work order rank: %w", err)
	}
	wo := model.WorkOrder{
		WorkOrderID:     number,
		KaplanUnitNo:    unit,
		Description:     description,
		Priority:        p,
		PriorityRank:    maxRank + 1,
		TicketIDs:       ticketIDs,
		TicketStatus:    model.StatusUnderDiagnosis,
		BillOfMaterials: []model.BOMItem{},
		Attachments:     []model.Attachment{},
	}
	if err := s.workOrders.Insert(ctx, &wo); err != nil {
		return model.WorkOrder{}, fmt.Errorf("insert work order: %w", err)
	}
	return wo, nil
}

// DeleteTicketAndReconcile removes a ticket, closes the gap it leaves in
// the rank order and detaches it from its work order.  A work order left
// without tickets is deleted.  Work order ranks are not touched.
func (s *TicketService) DeleteTicketAndReconcile(ctx context.Context, id uint64) error {
	var (
		ticket  model.RepairTicket
		dropped *model.WorkOrder
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.locks.Lock(ctx, rankLock); err != nil {
			return fmt.Errorf("lock ranks: %w", err)
		}
		var err error
		ticket, err = s.tickets.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NewNotFound("ticket not found")
		}
		if err != nil {
			return fmt.Errorf("load ticket: %w", err)
		}

		wo, err := s.workOrders.FindByTicket(ctx, id)
		switch {
		case err == nil:
			if len(wo.TicketIDs) <= 1 {
				if err := s.workOrders.Delete(ctx, wo.ID); err != nil {
					return fmt.Errorf("delete work order %d: %w", wo.WorkOrderID, err)
				}
				dropped = &wo
			} else if err := s.workOrders.RemoveTicket(ctx, wo.ID, id); err != nil {
				return fmt.Errorf("unlink ticket from work order %d: %w", wo.WorkOrderID, err)
			}
		case errors.Is(err, repository.ErrNotFound):
			// ticket was never grouped or its work order was deleted
		default:
			return fmt.Errorf("find work order: %w", err)
		}

		if err := s.tickets.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete ticket: %w", err)
		}
		if err := s.tickets.CloseGap(ctx, ticket.PriorityRank); err != nil {
			return fmt.Errorf("close rank gap: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperror.Get(err) != nil {
			return err
		}
		return apperror.NewInternal("failed to delete repair ticket").WithCause(err)
	}

	s.log.Info("repair ticket deleted", "ticket_number", ticket.TicketNumber, "rank", ticket.PriorityRank)
	s.publish(ctx, queue.FleetEvent{
		Kind:         queue.KindTicketDeleted,
		Entity:       "RepairTicket",
		EntityID:     ticket.ID,
		KaplanUnitNo: ticket.KaplanUnitNo,
		Reference:    ticket.TicketNumber,
		Description:  fmt.Sprintf("Ticket %s deleted", ticket.TicketNumber),
	})
	if dropped != nil {
		s.publishWorkOrderDeleted(ctx, *dropped)
	}
	return nil
}

// ReorderTickets applies a batch of rank assignments atomically.  An empty
// batch is a no-op.  Otherwise the batch is rejected unless every id exists, ids and ranks are unique and positive,
// and the resulting ranks over all tickets are exactly 1..N.
func (s *TicketService) ReorderTickets(ctx context.Context, updates []model.RankUpdate) error {
	return s.reorder(ctx, "ticket", updates, s.tickets.Ranks, s.tickets.SetRank)
}

// ReorderWorkOrders is ReorderTickets for the work order rank sequence.
func (s *TicketService) ReorderWorkOrders(ctx context.Context, updates []model.RankUpdate) error {
	return s.reorder(ctx, "work order", updates, s.workOrders.Ranks, s.workOrders.SetRank)
}

func (s *TicketService) reorder(
	ctx context.Context,
	noun string,
	updates []model.RankUpdate,
	load func(context.Context) (map[uint64]int, error),
	set func(context.Context, uint64, int) error,
) error {
	if len(updates) == 0 {
		return nil
	}
	if err := checkRankBatch(noun, updates); err != nil {
		return err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.locks.Lock(ctx, rankLock); err != nil {
			return fmt.Errorf("lock ranks: %w", err)
		}
		current, err := load(ctx)
		if err != nil {
			return fmt.Errorf("load ranks: %w", err)
		}
		if err := applyRankBatch(noun, current, updates); err != nil {
			return err
		}
		for _, u := range updates {
			if err := set(ctx, u.ID, u.PriorityRank); err != nil {
				return fmt.Errorf("set rank of %d: %w", u.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		if apperror.Get(err) != nil {
			return err
		}
		return apperror.NewInternal("failed to update ranks").WithCause(err)
	}
	s.log.Info("ranks reordered", "kind", noun, "count", len(updates))
	return nil
}

// checkRankBatch validates a batch on its own.
func checkRankBatch(noun string, updates []model.RankUpdate) error {
	var details []string
	seenID := make(map[uint64]bool, len(updates))
	seenRank := make(map[int]bool, len(updates))
	for _, u := range updates {
		if u.ID == 0 {
			details = append(details, "_id is required")
			continue
		}
		if u.PriorityRank < 1 {
			details = append(details, fmt.Sprintf("%s %d: priorityRank must be positive", noun, u.ID))
		}
		if seenID[u.ID] {
			details = append(details, fmt.Sprintf("%s %d appears more than once", noun, u.ID))
		}
		if seenRank[u.PriorityRank] {
			details = append(details, fmt.Sprintf("priorityRank %d assigned more than once", u.PriorityRank))
		}
		seenID[u.ID], seenRank[u.PriorityRank] = true, true
	}
	if len(details) > 0 {
		return apperror.NewValidation("invalid rank update", details...)
	}
	return nil
}

// applyRankBatch overlays updates on current and requires a dense 1..N
// result.
func applyRankBatch(noun string, current map[uint64]int, updates []model.RankUpdate) error {
	var missing []string
	next := make(map[uint64]int, len(current))
	for id, r := range current {
		next[id] = r
	}
	for _, u := range updates {
		if _, ok := current[u.ID]; !ok {
			missing = append(missing, fmt.Sprintf("%s %d not found", noun, u.ID))
			continue
		}
		next[u.ID] = u.PriorityRank
	}
	if len(missing) > 0 {
		return apperror.NewValidation("invalid rank update", missing...)
	}
	n := len(next)
	seen := make([]bool, n+1)
	for _, r := range next {
		if r < 1 || r > n || seen[r] {
			return apperror.NewValidation("invalid rank update",
				fmt.Sprintf("resulting ranks must be exactly 1..%d", n))
		}
		seen[r] = true
	}
	return nil
}

// GroupTicketsInput regroups tickets of one unit into a new work order.
type GroupTicketsInput struct {
	TicketIDs      []uint64       `json:"ticketIds" validate:"required,min=1,dive,gt=0"`
	Priority       model.Priority `json:"priority" validate:"omitempty,wopriority"`
	ServiceType    string         `json:"serviceType"`
	ServiceSubType string         `json:"serviceSubType"`
}

// GroupTickets detaches the given tickets from their current work orders
// (deleting any left empty) and mints a new work order holding them in the
// given order.
func (s *TicketService) GroupTickets(ctx context.Context, in GroupTicketsInput) (model.WorkOrder, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return model.WorkOrder{}, err
	}
	ids := dedupe(in.TicketIDs)

	var (
		wo      model.WorkOrder
		dropped []model.WorkOrder
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.locks.Lock(ctx, rankLock); err != nil {
			return fmt.Errorf("lock ranks: %w", err)
		}
		tickets, err := s.tickets.GetByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load tickets: %w", err)
		}
		byID := make(map[uint64]model.RepairTicket, len(tickets))
		for _, t := range tickets {
			byID[t.ID] = t
		}
		var details []string
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				details = append(details, fmt.Sprintf("ticket %d not found", id))
			}
		}
		if len(details) > 0 {
			return apperror.NewValidation("invalid ticket selection", details...)
		}
		first := byID[ids[0]]
		for _, id := range ids[1:] {
			if byID[id].KaplanUnitNo != first.KaplanUnitNo {
				return apperror.NewValidation("invalid ticket selection", "all tickets must belong to the same unit")
			}
		}

		for _, id := range ids {
			cur, err := s.workOrders.FindByTicket(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("find work order: %w", err)
			}
			if len(cur.TicketIDs) <= 1 {
				if err := s.workOrders.Delete(ctx, cur.ID); err != nil {
					return fmt.Errorf("delete work order %d: %w", cur.WorkOrderID, err)
				}
				dropped = append(dropped, cur)
			} else if err := s.workOrders.RemoveTicket(ctx, cur.ID, id); err != nil {
				return fmt.Errorf("unlink ticket %d: %w", id, err)
			}
		}

		p := in.Priority
		if p == "" {
			p = highestPriority(ids, byID)
		}
		wo, err = s.mintWorkOrder(ctx, first.KaplanUnitNo, first.IssueDescription, p, ids)
		if err != nil {
			return err
		}
		if in.ServiceType != "" || in.ServiceSubType != "" {
			wo.ServiceType, wo.ServiceSubType = in.ServiceType, in.ServiceSubType
			if err := s.workOrders.Update(ctx, &wo); err != nil {
				return fmt.Errorf("set service type: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if apperror.Get(err) != nil {
			return model.WorkOrder{}, err
		}
		return model.WorkOrder{}, apperror.NewInternal("failed to create work order").WithCause(err)
	}
	for _, d := range dropped {
		s.publishWorkOrderDeleted(ctx, d)
	}
	s.publishWorkOrderCreated(ctx, wo)
	return wo, nil
}

// DeleteWorkOrder removes a work order.  Its tickets remain and the other
// work orders keep their ranks.
func (s *TicketService) DeleteWorkOrder(ctx context.Context, id uint64) error {
	var wo model.WorkOrder
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.locks.Lock(ctx, rankLock); err != nil {
			return fmt.Errorf("lock ranks: %w", err)
		}
		var err error
		wo, err = s.workOrders.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NewNotFound("work order not found")
		}
		if err != nil {
			return fmt.Errorf("load work order: %w", err)
		}
		return s.workOrders.Delete(ctx, id)
	})
	if err != nil {
		if apperror.Get(err) != nil {
			return err
		}
		return apperror.NewInternal("failed to delete work order").WithCause(err)
	}
	s.publishWorkOrderDeleted(ctx, wo)
	return nil
}

func highestPriority(ids []uint64, byID map[uint64]model.RepairTicket) model.Priority {
	order := map[model.Priority]int{model.PriorityNormal: 1, model.PriorityHigh: 2, model.PriorityCritical: 3}
	best := model.PriorityNormal
	for _, id := range ids {
		if p := byID[id].Priority; order[p] > order[best] {
			best = p
		}
	}
	return best
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (s *TicketService) publishWorkOrderCreated(ctx context.Context, wo model.WorkOrder) {
	s.publish(ctx, queue.FleetEvent{
		Kind:         queue.KindWorkOrderCreated,
		Entity:       "WorkOrder",
		EntityID:     wo.ID,
		KaplanUnitNo: wo.KaplanUnitNo,
		Reference:    fmt.Sprintf("%d", wo.WorkOrderID),
		Description:  fmt.Sprintf("Work order %d opened for unit %s", wo.WorkOrderID, wo.KaplanUnitNo),
	})
}

func (s *TicketService) publishWorkOrderDeleted(ctx context.Context, wo model.WorkOrder) {
	s.publish(ctx, queue.FleetEvent{
		Kind:         queue.KindWorkOrderDeleted,
		Entity:       "WorkOrder",
		EntityID:     wo.ID,
		KaplanUnitNo: wo.KaplanUnitNo,
		Reference:    fmt.Sprintf("%d", wo.WorkOrderID),
		Description:  fmt.Sprintf("Work order %d closed", wo.WorkOrderID),
	})
}

// publish sends ev, or queues it when a caller's transaction is still open.
func (s *TicketService) publish(ctx context.Context, ev queue.FleetEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.now().UTC()
	if d := deferredFrom(ctx); d != nil {
		d.add(func(ctx context.Context) { s.send(ctx, ev) })
		return
	}
	s.send(ctx, ev)
}

func (s *TicketService) send(ctx context.Context, ev queue.FleetEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish event failed", "kind", ev.Kind, "error", err)
	}
}

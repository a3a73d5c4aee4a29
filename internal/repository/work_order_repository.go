package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// WorkOrderRepo provides data access to work_orders and the ordered
// work_order_tickets link table.
type WorkOrderRepo struct {
	db *sql.DB
}

func NewWorkOrderRepo(db *sql.DB) *WorkOrderRepo { return &WorkOrderRepo{db: db} }

const workOrderColumns = `id, work_order_id, kaplan_unit_no, description, priority, priority_rank,
	service_type, service_sub_type, technician_name, technician_id, ticket_status, reason,
	total_labour_hours, total_cost, time_in, time_out, drop_off_date, work_start_date,
	parts_order_date, parts_delivery_date, repair_completion_date, complaint, cause, correction,
	bill_of_materials, attachments, created_at, updated_at`

func scanWorkOrder(s rowScanner) (model.WorkOrder, error) {
	var (
		w                                     model.WorkOrder
		reason, complaint, cause, correction  sql.NullString
		labour, cost                          sql.NullFloat64
		timeIn, timeOut, dropOff, workStart   sql.NullTime
		partsOrder, partsDelivery, repairDone sql.NullTime
		bom, att                              []byte
	)
	err := s.Scan(&w.ID, &w.WorkOrderID, &w.KaplanUnitNo, &w.Description, &w.Priority, &w.PriorityRank,
		&w.ServiceType, &w.ServiceSubType, &w.AssignedTechnician.Name, &w.AssignedTechnician.TechnicianID,
		&w.TicketStatus, &reason, &labour, &cost, &timeIn, &timeOut, &dropOff, &workStart,
		&partsOrder, &partsDelivery, &repairDone, &complaint, &cause, &correction,
		&bom, &att, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return w, err
	}
	w.Reason, w.Complaint, w.Cause, w.Correction = reason.String, complaint.String, cause.String, correction.String
	w.TotalLabourHours, w.TotalCost = floatPtr(labour), floatPtr(cost)
	w.TimeIn, w.TimeOut = timePtr(timeIn), timePtr(timeOut)
	w.DropOffDate, w.WorkStartDate = timePtr(dropOff), timePtr(workStart)
	w.PartsOrderDate, w.PartsDeliveryDate = timePtr(partsOrder), timePtr(partsDelivery)
	w.RepairCompletionDate = timePtr(repairDone)
	w.BillOfMaterials = []model.BOMItem{}
	w.Attachments = []model.Attachment{}
	w.TicketIDs = []uint64{}
	if err := fromJSON(bom, &w.BillOfMaterials); err != nil {
		return w, err
	}
	if err := fromJSON(att, &w.Attachments); err != nil {
		return w, err
	}
	return w, nil
}

// MaxRank returns the highest work order rank, or 0.
func (r *WorkOrderRepo) MaxRank(ctx context.Context) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(priority_rank), 0) FROM work_orders`).Scan(&n)
	return n, err
}

// Insert stores w and links w.TicketIDs in order.
func (r *WorkOrderRepo) Insert(ctx context.Context, w *model.WorkOrder) error {
	bom, err := toJSON(w.BillOfMaterials)
	if err != nil {
		return err
	}
	att, err := toJSON(w.Attachments)
	if err != nil {
		return err
	}
	conn := database.Conn(ctx, r.db)
	now := time.Now().UTC()
	res, err := conn.ExecContext(ctx,
		`INSERT INTO work_orders (work_order_id, kaplan_unit_no, description, priority, priority_rank,
			service_type, service_sub_type, technician_name, technician_id, ticket_status, reason,
			bill_of_materials, attachments, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.WorkOrderID, w.KaplanUnitNo, w.Description, w.Priority, w.PriorityRank,
		w.ServiceType, w.ServiceSubType, w.AssignedTechnician.Name, w.AssignedTechnician.TechnicianID,
		w.TicketStatus, w.Reason, bom, att, now, now.Truncate(time.Second))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	w.CreatedAt, w.UpdatedAt = now, now.Truncate(time.Second)
	for i, tid := range w.TicketIDs {
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO work_order_tickets (work_order_id, ticket_id, position) VALUES (?, ?, ?)`,
			w.ID, tid, i+1); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

// LatestForUnit returns the most recently created work order of a unit.
func (r *WorkOrderRepo) LatestForUnit(ctx context.Context, unit string) (model.WorkOrder, error) {
	return r.getOne(ctx, `SELECT `+workOrderColumns+` FROM work_orders
		WHERE kaplan_unit_no = ? ORDER BY created_at DESC, id DESC LIMIT 1`, unit)
}

// FindByTicket returns the work order that references ticketID.
func (r *WorkOrderRepo) FindByTicket(ctx context.Context, ticketID uint64) (model.WorkOrder, error) {
	return r.getOne(ctx, `SELECT `+prefixed("w.", workOrderColumns)+` FROM work_orders w
		JOIN work_order_tickets l ON l.work_order_id = w.id WHERE l.ticket_id = ?`, ticketID)
}

// GetByID fetches one work order with its ticket ids.
func (r *WorkOrderRepo) GetByID(ctx context.Context, id uint64) (model.WorkOrder, error) {
	return r.getOne(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = ?`, id)
}

func (r *WorkOrderRepo) getOne(ctx context.Context, q string, args ...any) (model.WorkOrder, error) {
	w, err := scanWorkOrder(database.Conn(ctx, r.db).QueryRowContext(ctx, q, args...))
	if err != nil {
		return w, mapErr(err)
	}
	links, err := r.ticketLinks(ctx, []uint64{w.ID})
	if err != nil {
		return w, err
	}
	w.TicketIDs = append(w.TicketIDs, links[w.ID]...)
	return w, nil
}

// List returns every work order ordered by rank, with ticket ids.
func (r *WorkOrderRepo) List(ctx context.Context) ([]model.WorkOrder, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+workOrderColumns+` FROM work_orders ORDER BY priority_rank, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WorkOrder{}
	ids := []uint64{}
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
		ids = append(ids, w.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	links, err := r.ticketLinks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].TicketIDs = append(out[i].TicketIDs, links[out[i].ID]...)
	}
	return out, nil
}

func (r *WorkOrderRepo) ticketLinks(ctx context.Context, woIDs []uint64) (map[uint64][]uint64, error) {
	out := map[uint64][]uint64{}
	if len(woIDs) == 0 {
		return out, nil
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT work_order_id, ticket_id FROM work_order_tickets WHERE work_order_id IN (`+
			placeholders(len(woIDs))+`) ORDER BY work_order_id, position`, uintArgs(woIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var wo, t uint64
		if err := rows.Scan(&wo, &t); err != nil {
			return nil, err
		}
		out[wo] = append(out[wo], t)
	}
	return out, rows.Err()
}

// AppendTicket adds ticketID at the end of the work order's ticket list.
func (r *WorkOrderRepo) AppendTicket(ctx context.Context, woID, ticketID uint64) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO work_order_tickets (work_order_id, ticket_id, position)
		 SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM work_order_tickets WHERE work_order_id = ?`,
		woID, ticketID, woID)
	return mapErr(err)
}

// RemoveTicket drops one ticket reference.
func (r *WorkOrderRepo) RemoveTicket(ctx context.Context, woID, ticketID uint64) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM work_order_tickets WHERE work_order_id = ? AND ticket_id = ?`, woID, ticketID))
}

// Delete removes a work order and its ticket links.  Tickets stay.
func (r *WorkOrderRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM work_orders WHERE id = ?`, id))
}

// Update writes the service, scheduling and costing fields of w.
func (r *WorkOrderRepo) Update(ctx context.Context, w *model.WorkOrder) error {
	bom, err := toJSON(w.BillOfMaterials)
	if err != nil {
		return err
	}
	att, err := toJSON(w.Attachments)
	if err != nil {
		return err
	}
	_, err = database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE work_orders SET description = ?, priority = ?, service_type = ?, service_sub_type = ?,
			technician_name = ?, technician_id = ?, ticket_status = ?, reason = ?,
			total_labour_hours = ?, total_cost = ?, time_in = ?, time_out = ?, drop_off_date = ?,
			work_start_date = ?, parts_order_date = ?, parts_delivery_date = ?,
			repair_completion_date = ?, complaint = ?, cause = ?, correction = ?,
			bill_of_materials = ?, attachments = ?
		 WHERE id = ?`,
		w.Description, w.Priority, w.ServiceType, w.ServiceSubType,
		w.AssignedTechnician.Name, w.AssignedTechnician.TechnicianID, w.TicketStatus, w.Reason,
		nullFloat(w.TotalLabourHours), nullFloat(w.TotalCost), nullTime(w.TimeIn), nullTime(w.TimeOut),
		nullTime(w.DropOffDate), nullTime(w.WorkStartDate), nullTime(w.PartsOrderDate),
		nullTime(w.PartsDeliveryDate), nullTime(w.RepairCompletionDate),
		w.Complaint, w.Cause, w.Correction, bom, att, w.ID)
	return mapErr(err)
}

// Ranks returns the current rank of every work order keyed by id.
func (r *WorkOrderRepo) Ranks(ctx context.Context) (map[uint64]int, error) {
	return loadRanks(ctx, database.Conn(ctx, r.db), `SELECT id, priority_rank FROM work_orders`)
}

// SetRank overwrites one work order's rank.
func (r *WorkOrderRepo) SetRank(ctx context.Context, id uint64, rank int) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE work_orders SET priority_rank = ? WHERE id = ?`, rank, id)
	return err
}

// ResolveHours returns the time_in/time_out spans (in hours) of a unit's
// closed work orders.
func (r *WorkOrderRepo) ResolveHours(ctx context.Context, unit string) ([]float64, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT TIMESTAMPDIFF(SECOND, time_in, time_out) / 3600 FROM work_orders
		 WHERE kaplan_unit_no = ? AND time_in IS NOT NULL AND time_out IS NOT NULL`, unit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var h float64
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

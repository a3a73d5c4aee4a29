package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// WorkLogRepo provides data access to mechanic_work_logs.
type WorkLogRepo struct {
	db *sql.DB
}

func NewWorkLogRepo(db *sql.DB) *WorkLogRepo { return &WorkLogRepo{db: db} }

const workLogColumns = `id, mechanic_name, mechanic_id, kaplan_unit, work_order_id, ticket_id,
	ticket_number, date, time_in, time_out, parts_used, created_at, updated_at`

func scanWorkLog(s rowScanner) (model.WorkLog, error) {
	var (
		w                  model.WorkLog
		mechanic, wo, tick sql.NullInt64
		parts              []byte
	)
	err := s.Scan(&w.ID, &w.Mechanic.Name, &mechanic, &w.KaplanUnit, &wo, &tick, &w.TicketNumber,
		&w.Date, &w.TimeIn, &w.TimeOut, &parts, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return w, err
	}
	w.Mechanic.UserID, w.WorkOrderID, w.TicketID = uintPtr(mechanic), uintPtr(wo), uintPtr(tick)
	w.PartsUsed = []model.PartUsed{}
	return w, fromJSON(parts, &w.PartsUsed)
}

// WorkLogFilter narrows List.  Zero values are ignored.
type WorkLogFilter struct {
	MechanicID uint64
	KaplanUnit string
	From, To   time.Time // on date, To exclusive
}

func (r *WorkLogRepo) Create(ctx context.Context, w *model.WorkLog) error {
	parts, err := toJSON(w.PartsUsed)
	if err != nil {
		return err
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO mechanic_work_logs (mechanic_name, mechanic_id, kaplan_unit, work_order_id,
			ticket_id, ticket_number, date, time_in, time_out, parts_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.Mechanic.Name, nullUint(w.Mechanic.UserID), w.KaplanUnit, nullUint(w.WorkOrderID),
		nullUint(w.TicketID), w.TicketNumber, w.Date.UTC(), w.TimeIn.UTC(), w.TimeOut.UTC(), parts)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	return nil
}

func (r *WorkLogRepo) GetByID(ctx context.Context, id uint64) (model.WorkLog, error) {
	w, err := scanWorkLog(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+workLogColumns+` FROM mechanic_work_logs WHERE id = ?`, id))
	return w, mapErr(err)
}

// List returns logs newest first.
func (r *WorkLogRepo) List(ctx context.Context, f WorkLogFilter) ([]model.WorkLog, error) {
	var (
		where []string
		args  []any
	)
	if f.MechanicID != 0 {
		where, args = append(where, "mechanic_id = ?"), append(args, f.MechanicID)
	}
	if f.KaplanUnit != "" {
		where, args = append(where, "kaplan_unit = ?"), append(args, f.KaplanUnit)
	}
	if !f.From.IsZero() {
		where, args = append(where, "date >= ?"), append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where, args = append(where, "date < ?"), append(args, f.To.UTC())
	}
	q := `SELECT ` + workLogColumns + ` FROM mechanic_work_logs`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY date DESC, id DESC`

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WorkLog{}
	for rows.Next() {
		w, err := scanWorkLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WorkLogRepo) Update(ctx context.Context, w *model.WorkLog) error {
	parts, err := toJSON(w.PartsUsed)
	if err != nil {
		return err
	}
	_, err = database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE mechanic_work_logs SET mechanic_name = ?, mechanic_id = ?, kaplan_unit = ?,
			work_order_id = ?, ticket_id = ?, ticket_number = ?, date = ?, time_in = ?, time_out = ?,
			parts_used = ? WHERE id = ?`,
		w.Mechanic.Name, nullUint(w.Mechanic.UserID), w.KaplanUnit, nullUint(w.WorkOrderID),
		nullUint(w.TicketID), w.TicketNumber, w.Date.UTC(), w.TimeIn.UTC(), w.TimeOut.UTC(), parts, w.ID)
	return mapErr(err)
}

func (r *WorkLogRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM mechanic_work_logs WHERE id = ?`, id))
}

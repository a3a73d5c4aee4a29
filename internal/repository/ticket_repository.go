package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// TicketRepo provides data access to the repair_tickets table.  Rank
// maintenance methods (MaxRank, CloseGap, SetRank) assume the caller holds
// the ticket rank lock inside a transaction.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, ticket_number, priority_rank, kaplan_unit_no, issue_description, reason,
	priority, ticket_status, attachments, date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(s rowScanner) (model.RepairTicket, error) {
	var (
		t   model.RepairTicket
		att []byte
	)
	err := s.Scan(&t.ID, &t.TicketNumber, &t.PriorityRank, &t.KaplanUnitNo, &t.IssueDescription,
		&t.Reason, &t.Priority, &t.TicketStatus, &att, &t.Date, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Attachments = []model.Attachment{}
	if err := fromJSON(att, &t.Attachments); err != nil {
		return t, err
	}
	return t, nil
}

// MaxRank returns the highest priority_rank, or 0 when there are no tickets.
func (r *TicketRepo) MaxRank(ctx context.Context) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(priority_rank), 0) FROM repair_tickets`).Scan(&n)
	return n, err
}

// Insert stores t and fills its ID and timestamps.
func (r *TicketRepo) Insert(ctx context.Context, t *model.RepairTicket) error {
	att, err := toJSON(t.Attachments)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO repair_tickets (ticket_number, priority_rank, kaplan_unit_no, issue_description,
			reason, priority, ticket_status, attachments, date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TicketNumber, t.PriorityRank, t.KaplanUnitNo, t.IssueDescription, t.Reason,
		t.Priority, t.TicketStatus, att, t.Date.UTC(), now, now)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

// GetByID fetches one ticket.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.RepairTicket, error) {
	t, err := scanTicket(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM repair_tickets WHERE id = ?`, id))
	return t, mapErr(err)
}

// GetByIDs fetches the given tickets ordered by rank.  Unknown ids are
// skipped.
func (r *TicketRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.RepairTicket, error) {
	if len(ids) == 0 {
		return []model.RepairTicket{}, nil
	}
	return r.query(ctx, `SELECT `+ticketColumns+` FROM repair_tickets WHERE id IN (`+
		placeholders(len(ids))+`) ORDER BY priority_rank`, uintArgs(ids)...)
}

// List returns all tickets ordered by rank, optionally filtered by unit.
func (r *TicketRepo) List(ctx context.Context, unit string) ([]model.RepairTicket, error) {
	if unit != "" {
		return r.query(ctx, `SELECT `+ticketColumns+` FROM repair_tickets
			WHERE kaplan_unit_no = ? ORDER BY priority_rank`, unit)
	}
	return r.query(ctx, `SELECT `+ticketColumns+` FROM repair_tickets ORDER BY priority_rank`)
}

func (r *TicketRepo) query(ctx context.Context, q string, args ...any) ([]model.RepairTicket, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RepairTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update writes the editable fields of t.
func (r *TicketRepo) Update(ctx context.Context, t *model.RepairTicket) error {
	att, err := toJSON(t.Attachments)
	if err != nil {
		return err
	}
	_, err = database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE repair_tickets SET issue_description = ?, reason = ?, priority = ?, ticket_status = ?,
			attachments = ? WHERE id = ?`,
		t.IssueDescription, t.Reason, t.Priority, t.TicketStatus, att, t.ID)
	return mapErr(err)
}

// Delete removes a ticket.  Its work_order_tickets link goes with it.
func (r *TicketRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM repair_tickets WHERE id = ?`, id))
}

// CloseGap shifts every rank above rank down by one.
func (r *TicketRepo) CloseGap(ctx context.Context, rank int) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE repair_tickets SET priority_rank = priority_rank - 1 WHERE priority_rank > ?`, rank)
	return err
}

// Ranks returns the current rank of every ticket keyed by id.
func (r *TicketRepo) Ranks(ctx context.Context) (map[uint64]int, error) {
	return loadRanks(ctx, database.Conn(ctx, r.db), `SELECT id, priority_rank FROM repair_tickets`)
}

// SetRank overwrites one ticket's rank.
func (r *TicketRepo) SetRank(ctx context.Context, id uint64, rank int) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE repair_tickets SET priority_rank = ? WHERE id = ?`, rank, id)
	return err
}

// CountByPriority returns ticket totals keyed by priority.
func (r *TicketRepo) CountByPriority(ctx context.Context) (map[model.Priority]int, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT priority, COUNT(*) FROM repair_tickets GROUP BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.Priority]int{}
	for rows.Next() {
		var (
			p model.Priority
			n int
		)
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		out[p] = n
	}
	return out, rows.Err()
}

func loadRanks(ctx context.Context, conn database.DBTX, q string) (map[uint64]int, error) {
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64]int{}
	for rows.Next() {
		var (
			id   uint64
			rank int
		)
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		out[id] = rank
	}
	return out, rows.Err()
}

// UnitRepairCount is one row of TopRepairedUnits.
type UnitRepairCount struct {
	KaplanUnitNo string
	Tickets      int
	LastRepair   time.Time
}

// TopRepairedUnits returns the units with the most tickets, most first.
func (r *TicketRepo) TopRepairedUnits(ctx context.Context, limit int) ([]UnitRepairCount, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT kaplan_unit_no, COUNT(*) AS n, MAX(date) FROM repair_tickets
		 GROUP BY kaplan_unit_no ORDER BY n DESC, kaplan_unit_no LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []UnitRepairCount{}
	for rows.Next() {
		var u UnitRepairCount
		if err := rows.Scan(&u.KaplanUnitNo, &u.Tickets, &u.LastRepair); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

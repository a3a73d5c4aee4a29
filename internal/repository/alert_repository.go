package repository

import (
	"context"
	"database/sql"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// AlertRepo provides data access to the alerts table.
type AlertRepo struct {
	db *sql.DB
}

func NewAlertRepo(db *sql.DB) *AlertRepo { return &AlertRepo{db: db} }

const alertColumns = `id, kaplan_unit_no, asset_class, alert_type, ticket_number, acknowledged,
	acknowledged_by, alert_level, comment, created_at, updated_at`

func scanAlert(s rowScanner) (model.Alert, error) {
	var (
		a       model.Alert
		comment sql.NullString
	)
	err := s.Scan(&a.ID, &a.KaplanUnitNo, &a.AssetClass, &a.AlertType, &a.TicketNumber,
		&a.Acknowledged, &a.AcknowledgedBy, &a.AlertLevel, &comment, &a.CreatedAt, &a.UpdatedAt)
	a.Comment = comment.String
	return a, err
}

// Create inserts a, defaulting the placeholder columns to "-".
func (r *AlertRepo) Create(ctx context.Context, a *model.Alert) error {
	if a.TicketNumber == "" {
		a.TicketNumber = "-"
	}
	if a.AcknowledgedBy == "" {
		a.AcknowledgedBy = "-"
	}
	if a.AlertLevel == "" {
		a.AlertLevel = model.PriorityNormal
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO alerts (kaplan_unit_no, asset_class, alert_type, ticket_number, acknowledged,
			acknowledged_by, alert_level, comment) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.KaplanUnitNo, a.AssetClass, a.AlertType, a.TicketNumber, a.Acknowledged,
		a.AcknowledgedBy, a.AlertLevel, a.Comment)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (r *AlertRepo) GetByID(ctx context.Context, id uint64) (model.Alert, error) {
	a, err := scanAlert(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id))
	return a, mapErr(err)
}

// GetForUpdate loads the alert and holds its row lock until the surrounding
// transaction ends.
func (r *AlertRepo) GetForUpdate(ctx context.Context, id uint64) (model.Alert, error) {
	a, err := scanAlert(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = ? FOR UPDATE`, id))
	return a, mapErr(err)
}

// List returns alerts newest first.
func (r *AlertRepo) List(ctx context.Context) ([]model.Alert, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update writes the mutable alert fields.
func (r *AlertRepo) Update(ctx context.Context, a *model.Alert) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE alerts SET ticket_number = ?, acknowledged = ?, acknowledged_by = ?, alert_level = ?,
			comment = ?, updated_at = NOW() WHERE id = ?`,
		a.TicketNumber, a.Acknowledged, a.AcknowledgedBy, a.AlertLevel, a.Comment, a.ID))
}

func (r *AlertRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM alerts WHERE id = ?`, id))
}

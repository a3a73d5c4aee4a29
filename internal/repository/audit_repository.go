package repository

import (
	"context"
	"database/sql"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// AuditRepo appends to and reads the audit_trail table.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

const auditColumns = `id, user_id, user_role, action, entity, description, data_snapshot, timestamp`

// Record appends e.  A nil snapshot is stored as SQL NULL.
func (r *AuditRepo) Record(ctx context.Context, e *model.AuditEntry) error {
	var snap any
	if len(e.DataSnapshot) > 0 {
		snap = string(e.DataSnapshot)
	}
	if e.UserRole == "" {
		e.UserRole = "Guest"
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO audit_trail (user_id, user_role, action, entity, description, data_snapshot)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullUint(e.UserID), e.UserRole, e.Action, e.Entity, e.Description, snap)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// List returns the latest limit entries, optionally for one user.
func (r *AuditRepo) List(ctx context.Context, userID uint64, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + auditColumns + ` FROM audit_trail`
	args := []any{}
	if userID != 0 {
		q += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuditEntry{}
	for rows.Next() {
		var (
			e    model.AuditEntry
			uid  sql.NullInt64
			desc sql.NullString
			snap []byte
		)
		if err := rows.Scan(&e.ID, &uid, &e.UserRole, &e.Action, &e.Entity, &desc, &snap, &e.Timestamp); err != nil {
			return nil, err
		}
		e.UserID, e.Description = uintPtr(uid), desc.String
		if len(snap) > 0 {
			e.DataSnapshot = append([]byte(nil), snap...)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

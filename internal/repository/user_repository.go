package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, user_id, email, contact_no, password_hash, role, profile_picture,
	pay_rate, permissions, clock_in, clock_out, last_seen, created_at, updated_at`

func scanUser(s rowScanner) (model.User, error) {
	var (
		u                       model.User
		pay                     sql.NullFloat64
		perms                   []byte
		clockIn, clockOut, seen sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Name, &u.UserID, &u.Email, &u.ContactNo, &u.PasswordHash, &u.Role,
		&u.ProfilePicture, &pay, &perms, &clockIn, &clockOut, &seen, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.PayRate = floatPtr(pay)
	u.ClockIn, u.ClockOut, u.LastSeen = timePtr(clockIn), timePtr(clockOut), timePtr(seen)
	u.Permissions = model.Permissions{}
	if err := fromJSON(perms, &u.Permissions); err != nil {
		return u, err
	}
	return u, nil
}

func permsJSON(p model.Permissions) (string, error) {
	if p == nil {
		return "{}", nil
	}
	return toJSON(p)
}

// Create hashes password, inserts u and fills its ID.  Email is stored
// lower-cased.  ErrDuplicate means the email or login id is taken.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	perms, err := permsJSON(u.Permissions)
	if err != nil {
		return err
	}
	if u.ProfilePicture == "" {
		u.ProfilePicture = model.DefaultProfilePicture
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO users (name, user_id, email, contact_no, password_hash, role, profile_picture,
			pay_rate, permissions, clock_in, clock_out)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.UserID, u.Email, u.ContactNo, hash, u.Role, u.ProfilePicture,
		nullFloat(u.PayRate), perms, nullTime(u.ClockIn), nullTime(u.ClockOut))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID, u.PasswordHash = uint64(id), hash
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	return nil
}

// GetByLogin finds a user whose email or login id equals loginID.
func (r *UserRepo) GetByLogin(ctx context.Context, loginID string) (model.User, error) {
	loginID = strings.TrimSpace(loginID)
	u, err := scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? OR user_id = ? LIMIT 1`,
		strings.ToLower(loginID), loginID))
	return u, mapErr(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	return u, mapErr(err)
}

// List returns users ordered by name, optionally of one role.
func (r *UserRepo) List(ctx context.Context, role string) ([]model.User, error) {
	if role != "" {
		return r.query(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY name`, role)
	}
	return r.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name`)
}

// Search matches q against name, login id and email.
func (r *UserRepo) Search(ctx context.Context, q string, limit int) ([]model.User, error) {
	like := "%" + strings.TrimSpace(q) + "%"
	return r.query(ctx, `SELECT `+userColumns+` FROM users
		WHERE name LIKE ? OR user_id LIKE ? OR email LIKE ? ORDER BY name LIMIT ?`,
		like, like, like, limit)
}

func (r *UserRepo) query(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update writes profile, role, permission and shift fields.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	perms, err := permsJSON(u.Permissions)
	if err != nil {
		return err
	}
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET name = ?, user_id = ?, email = ?, contact_no = ?, role = ?,
			profile_picture = ?, permissions = ?, clock_in = ?, clock_out = ?, updated_at = NOW()
		 WHERE id = ?`,
		u.Name, u.UserID, strings.ToLower(strings.TrimSpace(u.Email)), u.ContactNo, u.Role,
		u.ProfilePicture, perms, nullTime(u.ClockIn), nullTime(u.ClockOut), u.ID))
}

func (r *UserRepo) SetPayRate(ctx context.Context, id uint64, rate float64) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET pay_rate = ?, updated_at = NOW() WHERE id = ?`, rate, id))
}

func (r *UserRepo) SetPasswordHash(ctx context.Context, id uint64, hash string) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?`, hash, id))
}

// TouchLastSeen records activity without bumping updated_at.
func (r *UserRepo) TouchLastSeen(ctx context.Context, id uint64, at time.Time) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE users SET last_seen = ?, updated_at = updated_at WHERE id = ?`, at.UTC(), id)
	return err
}

// CountByRole is used by the CLI to detect an empty install.
func (r *UserRepo) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n)
	return n, err
}

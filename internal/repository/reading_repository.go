package repository

import (
	"context"
	"database/sql"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// ReadingRepo provides data access to the readings table.
type ReadingRepo struct {
	db *sql.DB
}

func NewReadingRepo(db *sql.DB) *ReadingRepo { return &ReadingRepo{db: db} }

const readingColumns = `id, asset_class, kaplan_unit_no, user, date, odometer, fuel_update, hours,
	status_update, created_at, updated_at`

func scanReading(s rowScanner) (model.Reading, error) {
	var (
		rd                    model.Reading
		odometer, fuel, hours sql.NullFloat64
	)
	err := s.Scan(&rd.ID, &rd.AssetClass, &rd.KaplanUnitNo, &rd.User, &rd.Date, &odometer, &fuel,
		&hours, &rd.StatusUpdate, &rd.CreatedAt, &rd.UpdatedAt)
	if err != nil {
		return rd, err
	}
	rd.Odometer, rd.FuelUpdate, rd.Hours = floatPtr(odometer), floatPtr(fuel), floatPtr(hours)
	return rd, nil
}

func (r *ReadingRepo) Create(ctx context.Context, rd *model.Reading) error {
	if rd.StatusUpdate == "" {
		rd.StatusUpdate = model.ReadingInUse
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO readings (asset_class, kaplan_unit_no, user, date, odometer, fuel_update, hours,
			status_update) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.AssetClass, rd.KaplanUnitNo, rd.User, rd.Date.UTC(), nullFloat(rd.Odometer),
		nullFloat(rd.FuelUpdate), nullFloat(rd.Hours), rd.StatusUpdate)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rd.ID = uint64(id)
	return nil
}

// List returns readings newest first, optionally for one unit.
func (r *ReadingRepo) List(ctx context.Context, unit string) ([]model.Reading, error) {
	if unit != "" {
		return r.query(ctx, `SELECT `+readingColumns+` FROM readings WHERE kaplan_unit_no = ?
			ORDER BY date DESC, id DESC`, unit)
	}
	return r.query(ctx, `SELECT `+readingColumns+` FROM readings ORDER BY date DESC, id DESC`)
}

// LatestPerUnit returns the most recent reading of every unit.
func (r *ReadingRepo) LatestPerUnit(ctx context.Context) ([]model.Reading, error) {
	return r.query(ctx, `SELECT `+prefixed("r.", readingColumns)+` FROM readings r
		JOIN (SELECT kaplan_unit_no, MAX(id) AS id FROM readings GROUP BY kaplan_unit_no) latest
		  ON latest.id = r.id
		ORDER BY r.kaplan_unit_no`)
}

func (r *ReadingRepo) query(ctx context.Context, q string, args ...any) ([]model.Reading, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reading{}
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

// FleetAverages returns mean mpg (odometer / fuel) and gph (fuel / hours)
// over every reading, skipping readings where the divisor is not positive.
func (r *ReadingRepo) FleetAverages(ctx context.Context) (mpg, gph float64, err error) {
	var m, g sql.NullFloat64
	err = database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT AVG(CASE WHEN fuel_update > 0 THEN odometer / fuel_update END),
		        AVG(CASE WHEN hours > 0 THEN fuel_update / hours END)
		 FROM readings`).Scan(&m, &g)
	return m.Float64, g.Float64, err
}

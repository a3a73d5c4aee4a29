package repository

import (
	"context"
	"database/sql"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// ThresholdRepo provides data access to maintenance_thresholds.
type ThresholdRepo struct {
	db *sql.DB
}

func NewThresholdRepo(db *sql.DB) *ThresholdRepo { return &ThresholdRepo{db: db} }

const thresholdColumns = `id, sub_asset_type, mpg, gph, service_threshold, engine_threshold,
	miles_threshold, created_at, updated_at`

func scanThreshold(s rowScanner) (model.MaintenanceThreshold, error) {
	var (
		t               model.MaintenanceThreshold
		mpg, gph, miles sql.NullFloat64
	)
	err := s.Scan(&t.ID, &t.SubAssetType, &mpg, &gph, &t.ServiceThreshold, &t.EngineThreshold,
		&miles, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.MPG, t.GPH, t.MilesThreshold = floatPtr(mpg), floatPtr(gph), floatPtr(miles)
	return t, nil
}

func (r *ThresholdRepo) Create(ctx context.Context, t *model.MaintenanceThreshold) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO maintenance_thresholds (sub_asset_type, mpg, gph, service_threshold,
			engine_threshold, miles_threshold) VALUES (?, ?, ?, ?, ?, ?)`,
		t.SubAssetType, nullFloat(t.MPG), nullFloat(t.GPH), t.ServiceThreshold, t.EngineThreshold,
		nullFloat(t.MilesThreshold))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *ThresholdRepo) GetByID(ctx context.Context, id uint64) (model.MaintenanceThreshold, error) {
	t, err := scanThreshold(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+thresholdColumns+` FROM maintenance_thresholds WHERE id = ?`, id))
	return t, mapErr(err)
}

// GetBySubType returns the threshold configured for a sub asset type.
func (r *ThresholdRepo) GetBySubType(ctx context.Context, subType string) (model.MaintenanceThreshold, error) {
	t, err := scanThreshold(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+thresholdColumns+` FROM maintenance_thresholds WHERE sub_asset_type = ?`, subType))
	return t, mapErr(err)
}

func (r *ThresholdRepo) List(ctx context.Context) ([]model.MaintenanceThreshold, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+thresholdColumns+` FROM maintenance_thresholds ORDER BY sub_asset_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MaintenanceThreshold{}
	for rows.Next() {
		t, err := scanThreshold(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ThresholdRepo) Update(ctx context.Context, t *model.MaintenanceThreshold) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE maintenance_thresholds SET sub_asset_type = ?, mpg = ?, gph = ?, service_threshold = ?,
			engine_threshold = ?, miles_threshold = ? WHERE id = ?`,
		t.SubAssetType, nullFloat(t.MPG), nullFloat(t.GPH), t.ServiceThreshold, t.EngineThreshold,
		nullFloat(t.MilesThreshold), t.ID)
	return mapErr(err)
}

func (r *ThresholdRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM maintenance_thresholds WHERE id = ?`, id))
}

package repository

import (
	"context"
	"database/sql"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

// AssetRepo provides data access to the assets table.
type AssetRepo struct {
	db *sql.DB
}

func NewAssetRepo(db *sql.DB) *AssetRepo { return &AssetRepo{db: db} }

const assetColumns = `id, kaplan_unit_no, bravo_unit_no, year, make, model, color, date_purchased,
	purchase_amount, payment_method, purchased_from, asset_type, sub_asset_type, vin_serial_number,
	license_plate_no, registration_expiration_date, driver_operator, fuel_type, gas_tank_size,
	axle_count, wheel_count, transmission_type, summer_profit_center, winter_profit_center,
	fleet_owned_by, insured, latest_odometer_hour_reading, title_no, toll_transponder_number,
	status, created_at, updated_at`

func scanAsset(s rowScanner) (model.Asset, error) {
	var (
		a                 model.Asset
		year, axles       sql.NullInt64
		purchased, regExp sql.NullTime
		amount            sql.NullFloat64
	)
	err := s.Scan(&a.ID, &a.KaplanUnitNo, &a.BravoUnitNo, &year, &a.Make, &a.Model, &a.Color,
		&purchased, &amount, &a.PaymentMethod, &a.PurchasedFrom, &a.AssetType, &a.SubAssetType,
		&a.VINSerialNumber, &a.LicensePlateNo, &regExp, &a.DriverOperator, &a.FuelType,
		&a.GasTankSize, &axles, &a.WheelCount, &a.TransmissionType, &a.SummerProfitCenter,
		&a.WinterProfitCenter, &a.FleetOwnedBy, &a.Insured, &a.LatestOdometerHourReading,
		&a.TitleNo, &a.TollTransponderNumber, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.Year, a.AxleCount = intPtr(year), intPtr(axles)
	a.DatePurchased, a.RegistrationExpirationDate = timePtr(purchased), timePtr(regExp)
	a.PurchaseAmount = floatPtr(amount)
	return a, nil
}

func assetArgs(a *model.Asset) []any {
	return []any{
		a.KaplanUnitNo, a.BravoUnitNo, nullInt(a.Year), a.Make, a.Model, a.Color,
		nullTime(a.DatePurchased), nullFloat(a.PurchaseAmount), a.PaymentMethod, a.PurchasedFrom,
		a.AssetType, a.SubAssetType, a.VINSerialNumber, a.LicensePlateNo,
		nullTime(a.RegistrationExpirationDate), a.DriverOperator, a.FuelType, a.GasTankSize,
		nullInt(a.AxleCount), a.WheelCount, a.TransmissionType, a.SummerProfitCenter,
		a.WinterProfitCenter, a.FleetOwnedBy, a.Insured, a.LatestOdometerHourReading,
		a.TitleNo, a.TollTransponderNumber, a.Status,
	}
}

// Create inserts a.  ErrDuplicate means the unit number is taken.
func (r *AssetRepo) Create(ctx context.Context, a *model.Asset) error {
	a.ApplyDefaults()
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO assets (kaplan_unit_no, bravo_unit_no, year, make, model, color, date_purchased,
			purchase_amount, payment_method, purchased_from, asset_type, sub_asset_type,
			vin_serial_number, license_plate_no, registration_expiration_date, driver_operator,
			fuel_type, gas_tank_size, axle_count, wheel_count, transmission_type,
			summer_profit_center, winter_profit_center, fleet_owned_by, insured,
			latest_odometer_hour_reading, title_no, toll_transponder_number, status)
		 VALUES (`+placeholders(29)+`)`, assetArgs(a)...)
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

func (r *AssetRepo) GetByID(ctx context.Context, id uint64) (model.Asset, error) {
	a, err := scanAsset(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id))
	return a, mapErr(err)
}

func (r *AssetRepo) GetByUnit(ctx context.Context, unit string) (model.Asset, error) {
	a, err := scanAsset(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE kaplan_unit_no = ?`, unit))
	return a, mapErr(err)
}

// GetByUnits returns the assets for the given unit numbers keyed by unit.
func (r *AssetRepo) GetByUnits(ctx context.Context, units []string) (map[string]model.Asset, error) {
	out := map[string]model.Asset{}
	if len(units) == 0 {
		return out, nil
	}
	args := make([]any, len(units))
	for i, u := range units {
		args[i] = u
	}
	list, err := r.query(ctx, `SELECT `+assetColumns+` FROM assets WHERE kaplan_unit_no IN (`+
		placeholders(len(units))+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		out[a.KaplanUnitNo] = a
	}
	return out, nil
}

// List returns assets newest first, optionally filtered by status.
func (r *AssetRepo) List(ctx context.Context, status string) ([]model.Asset, error) {
	if status != "" {
		return r.query(ctx, `SELECT `+assetColumns+` FROM assets WHERE status = ?
			ORDER BY created_at DESC, id DESC`, status)
	}
	return r.query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY created_at DESC, id DESC`)
}

func (r *AssetRepo) query(ctx context.Context, q string, args ...any) ([]model.Asset, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update rewrites every column of a.
func (r *AssetRepo) Update(ctx context.Context, a *model.Asset) error {
	a.ApplyDefaults()
	args := append(assetArgs(a), a.ID)
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE assets SET kaplan_unit_no = ?, bravo_unit_no = ?, year = ?, make = ?, model = ?,
			color = ?, date_purchased = ?, purchase_amount = ?, payment_method = ?,
			purchased_from = ?, asset_type = ?, sub_asset_type = ?, vin_serial_number = ?,
			license_plate_no = ?, registration_expiration_date = ?, driver_operator = ?,
			fuel_type = ?, gas_tank_size = ?, axle_count = ?, wheel_count = ?,
			transmission_type = ?, summer_profit_center = ?, winter_profit_center = ?,
			fleet_owned_by = ?, insured = ?, latest_odometer_hour_reading = ?, title_no = ?,
			toll_transponder_number = ?, status = ?
		 WHERE id = ?`, args...)
	return mapErr(err)
}

// SetLatestReading stores the "X mi / Y hr" summary shown in asset lists.
func (r *AssetRepo) SetLatestReading(ctx context.Context, unit, summary string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE assets SET latest_odometer_hour_reading = ? WHERE kaplan_unit_no = ?`, summary, unit)
	return err
}

func (r *AssetRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM assets WHERE id = ?`, id))
}

// CountByStatus returns the number of assets per status.
func (r *AssetRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM assets GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

package model

import "time"

// Asset statuses.
const (
	AssetActive        = "Active"
	AssetOutForService = "Out for Service"
)

// Asset is one fleet unit, keyed by its Kaplan unit number.
type Asset struct {
	ID                         uint64     `json:"_id"`
	KaplanUnitNo               string     `json:"kaplanUnitNo" validate:"required"`
	BravoUnitNo                string     `json:"bravoUnitNo"`
	Year                       *int       `json:"year,omitempty"`
	Make                       string     `json:"make"`
	Model                      string     `json:"model"`
	Color                      string     `json:"color"`
	DatePurchased              *time.Time `json:"datePurchased,omitempty"`
	PurchaseAmount             *float64   `json:"purchaseAmount,omitempty"`
	PaymentMethod              string     `json:"paymentMethod"`
	PurchasedFrom              string     `json:"purchasedFrom"`
	AssetType                  string     `json:"assetType"`
	SubAssetType               string     `json:"subAssetType"`
	VINSerialNumber            string     `json:"vinSerialNumber"`
	LicensePlateNo             string     `json:"licensePlateNo"`
	RegistrationExpirationDate *time.Time `json:"registrationExpirationDate,omitempty"`
	DriverOperator             string     `json:"driverOperator"`
	FuelType                   string     `json:"fuelType"`
	GasTankSize                string     `json:"gasTankSize"`
	AxleCount                  *int       `json:"axleCount,omitempty"`
	WheelCount                 int        `json:"wheelCount"`
	TransmissionType           string     `json:"transmissionType"`
	SummerProfitCenter         string     `json:"summerProfitCenter"`
	WinterProfitCenter         string     `json:"winterProfitCenter"`
	FleetOwnedBy               string     `json:"fleetOwnedBy"`
	Insured                    string     `json:"insured" validate:"omitempty,oneof=Yes No"`
	LatestOdometerHourReading  string     `json:"latestOdometerHourReading"`
	TitleNo                    string     `json:"titleNo"`
	TollTransponderNumber      string     `json:"tollIpassTransponderNumber"`
	Status                     string     `json:"status" validate:"omitempty,assetstatus"`
	CreatedAt                  time.Time  `json:"createdAt"`
	UpdatedAt                  time.Time  `json:"updatedAt"`
}

// ApplyDefaults fills values the database would otherwise default.
func (a *Asset) ApplyDefaults() {
	if a.WheelCount == 0 {
		a.WheelCount = 4
	}
	if a.Insured == "" {
		a.Insured = "Yes"
	}
	if a.Status == "" {
		a.Status = AssetActive
	}
}

package model

import "time"

// Reading statuses.
const (
	ReadingInUse            = "In Use"
	ReadingIdle             = "Idle"
	ReadingUnderMaintenance = "Under Maintenance"
)

// Reading is an odometer / fuel / engine-hours report for a unit.
type Reading struct {
	ID           uint64    `json:"_id"`
	AssetClass   string    `json:"assetClass"`
	KaplanUnitNo string    `json:"kaplanUnitNo"`
	User         string    `json:"user"`
	Date         time.Time `json:"date"`
	Odometer     *float64  `json:"odometer,omitempty"`
	FuelUpdate   *float64  `json:"fuelUpdate,omitempty"`
	Hours        *float64  `json:"hours,omitempty"`
	StatusUpdate string    `json:"statusUpdate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MaintenanceThreshold holds the alerting limits for a sub asset type.
// ServiceThreshold and EngineThreshold are free text such as "6 months" or
// "30 Hr."; the leading number of EngineThreshold is the hour limit.
type MaintenanceThreshold struct {
	ID               uint64    `json:"_id"`
	SubAssetType     string    `json:"subAssetType" validate:"required"`
	MPG              *float64  `json:"mpg,omitempty"`
	GPH              *float64  `json:"gph,omitempty"`
	ServiceThreshold string    `json:"serviceThreshold"`
	EngineThreshold  string    `json:"engineThreshold"`
	MilesThreshold   *float64  `json:"milesThreshold,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

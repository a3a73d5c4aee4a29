package model

import "time"

// AlertType names the threshold that raised an alert.
type AlertType string

const (
	AlertService AlertType = "Service_threshold"
	AlertEngine  AlertType = "Engine_threshold"
	AlertMiles   AlertType = "Miles_threshold"
	AlertMPG     AlertType = "MPG_threshold"
	AlertGPH     AlertType = "GPH_threshold"
)

// Alert is a threshold breach awaiting acknowledgement.  TicketNumber and
// AcknowledgedBy hold "-" until set.
type Alert struct {
	ID             uint64    `json:"_id"`
	KaplanUnitNo   string    `json:"kaplanUnitNo"`
	AssetClass     string    `json:"assetClass"`
	AlertType      AlertType `json:"alertType"`
	TicketNumber   string    `json:"ticketNumber"`
	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedBy string    `json:"acknowledgedBy"`
	AlertLevel     Priority  `json:"alertLevel"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

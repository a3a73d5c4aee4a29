package model

import "time"

// PartUsed is a part consumed during a work log entry.
type PartUsed struct {
	PartName   string `json:"partName" validate:"required"`
	PartNumber string `json:"partNumber"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

// MechanicRef is the denormalized mechanic on a work log.
type MechanicRef struct {
	Name   string  `json:"name" validate:"required"`
	UserID *uint64 `json:"userId,omitempty"`
}

// WorkLog records one stretch of mechanic time on a unit.
type WorkLog struct {
	ID           uint64      `json:"_id"`
	Mechanic     MechanicRef `json:"mechanic"`
	KaplanUnit   string      `json:"kaplanUnit"`
	WorkOrderID  *uint64     `json:"workOrderId,omitempty"`
	TicketID     *uint64     `json:"ticketId,omitempty"`
	TicketNumber string      `json:"ticketNumber,omitempty"`
	Date         time.Time   `json:"date"`
	TimeIn       time.Time   `json:"timeIn"`
	TimeOut      time.Time   `json:"timeOut"`
	PartsUsed    []PartUsed  `json:"partsUsed"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Duration is the time between TimeIn and TimeOut.
func (w WorkLog) Duration() time.Duration { return w.TimeOut.Sub(w.TimeIn) }

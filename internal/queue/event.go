// Package queue defines the domain event payload exchanged over the message
// broker and the background consumer that fans events out.
package queue

import "time"

// Event kinds.
const (
	KindTicketCreated    = "ticket.created"
	KindTicketDeleted    = "ticket.deleted"
	KindWorkOrderCreated = "workorder.created"
	KindWorkOrderDeleted = "workorder.deleted"
	KindAlertRaised      = "alert.raised"
)

// FleetEvent is published whenever tickets, work orders or alerts change.
// It carries enough for the audit trail and live dashboards without a
// database lookup.
type FleetEvent struct {
	Kind         string    `json:"kind"`
	Entity       string    `json:"entity"`
	EntityID     uint64    `json:"entityId"`
	KaplanUnitNo string    `json:"kaplanUnitNo,omitempty"`
	Reference    string    `json:"reference,omitempty"` // ticket number or work order number
	Description  string    `json:"description"`
	OccurredAt   time.Time `json:"occurredAt"`
}

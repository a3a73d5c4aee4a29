package model

import "time"

// Priority is the urgency of a repair ticket or alert.
type Priority string

const (
	PriorityLow      Priority = "Low" // work orders only
	PriorityNormal   Priority = "Normal"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// TicketPriorities lists the values accepted on repair tickets.
var TicketPriorities = []Priority{PriorityNormal, PriorityHigh, PriorityCritical}

// WorkOrderPriorities additionally allows Low.
var WorkOrderPriorities = []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}

// TicketStatus is a step in the repair workflow.  TicketStatuses holds
// them in workflow order.
type TicketStatus string

const (
	StatusUnderDiagnosis     TicketStatus = "Under Diagnosis"
	StatusOpenedAndDiagnosed TicketStatus = "Opened And Diagnosed"
	StatusResearchingParts   TicketStatus = "Researching Parts"
	StatusBeingFixed         TicketStatus = "Being Fixed"
	StatusPartsOrdered       TicketStatus = "Parts Ordered"
	StatusReadyToDeploy      TicketStatus = "Ready to Deploy"
)

var TicketStatuses = []TicketStatus{
	StatusUnderDiagnosis,
	StatusOpenedAndDiagnosed,
	StatusResearchingParts,
	StatusBeingFixed,
	StatusPartsOrdered,
	StatusReadyToDeploy,
}

// Valid reports whether p is one of the accepted ticket priorities.
func (p Priority) Valid() bool {
	for _, v := range TicketPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// ValidForWorkOrder reports whether p may be set on a work order.
func (p Priority) ValidForWorkOrder() bool {
	return p == PriorityLow || p.Valid()
}

func (s TicketStatus) Valid() bool { return s.Step() >= 0 }

// Step returns the zero-based workflow position of s, or -1.
func (s TicketStatus) Step() int {
	for i, v := range TicketStatuses {
		if s == v {
			return i
		}
	}
	return -1
}

// Attachment describes a stored upload.
type Attachment struct {
	URL          string `json:"url"`
	Key          string `json:"key"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

// RepairTicket is a single reported defect on one asset unit.
// PriorityRank values over all tickets always form 1..N.
type RepairTicket struct {
	ID               uint64       `json:"_id"`
	TicketNumber     string       `json:"ticketNumber"`
	PriorityRank     int          `json:"priorityRank"`
	KaplanUnitNo     string       `json:"kaplanUnitNo"`
	IssueDescription string       `json:"issueDescription"`
	Reason           string       `json:"reason"`
	Priority         Priority     `json:"priority"`
	TicketStatus     TicketStatus `json:"ticketStatus"`
	Attachments      []Attachment `json:"attachments"`
	Date             time.Time    `json:"date"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// RankUpdate is one entry of a reorder batch.
type RankUpdate struct {
	ID           uint64 `json:"_id"`
	PriorityRank int    `json:"priorityRank"`
}

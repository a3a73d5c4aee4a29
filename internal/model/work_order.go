package model

import "time"

// Technician identifies the mechanic assigned to a work order.
type Technician struct {
	Name         string `json:"name"`
	TechnicianID string `json:"technicianId"`
}

// BOMItem is one line of a work order's bill of materials.
type BOMItem struct {
	PartName   string `json:"partName"`
	PartNumber string `json:"partNumber"`
	Quantity   int    `json:"quantity"`
}

// WorkOrder groups one or more repair tickets of the same unit into a
// unit of work.  TicketIDs is never empty while the row exists.
type WorkOrder struct {
	ID                   uint64         `json:"_id"`
	WorkOrderID          int64          `json:"workOrderId"`
	KaplanUnitNo         string         `json:"kaplanUnitNo"`
	Description          string         `json:"description"`
	Priority             Priority       `json:"priority"`
	PriorityRank         int            `json:"priorityRank"`
	TicketIDs            []uint64       `json:"ticketIds"`
	Tickets              []RepairTicket `json:"tickets,omitempty"`
	ServiceType          string         `json:"serviceType"`
	ServiceSubType       string         `json:"serviceSubType"`
	AssignedTechnician   Technician     `json:"assignedTechnician"`
	TicketStatus         TicketStatus   `json:"ticketStatus"`
	Reason               string         `json:"reason"`
	TotalLabourHours     *float64       `json:"totalLabourHours,omitempty"`
	TotalCost            *float64       `json:"totalCost,omitempty"`
	TimeIn               *time.Time     `json:"timeIn,omitempty"`
	TimeOut              *time.Time     `json:"timeOut,omitempty"`
	DropOffDate          *time.Time     `json:"dropOffDate,omitempty"`
	WorkStartDate        *time.Time     `json:"workStartDate,omitempty"`
	PartsOrderDate       *time.Time     `json:"partsOrderDate,omitempty"`
	PartsDeliveryDate    *time.Time     `json:"partsDeliveryDate,omitempty"`
	RepairCompletionDate *time.Time     `json:"repairCompletionDate,omitempty"`
	Complaint            string         `json:"complaint"`
	Cause                string         `json:"cause"`
	Correction           string         `json:"correction"`
	BillOfMaterials      []BOMItem      `json:"billOfMaterials"`
	Attachments          []Attachment   `json:"attachments"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

package model

import (
	"encoding/json"
	"time"
)

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	ID           uint64          `json:"_id"`
	UserID       *uint64         `json:"userId,omitempty"`
	UserRole     string          `json:"role"`
	Action       string          `json:"action"`
	Entity       string          `json:"entity"`
	Description  string          `json:"description"`
	DataSnapshot json.RawMessage `json:"dataSnapshot,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

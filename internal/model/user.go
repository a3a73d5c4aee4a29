package model

import "time"

// DefaultProfilePicture is stored when a user has no picture.
const DefaultProfilePicture = "https://placehold.co/400x400/EFEFEF/AAAAAA&text=No+Image"

// Roles.
const (
	RoleAdmin    = "admin"
	RoleMechanic = "mechanic"
	RoleOperator = "operator"
)

// Permission modules.  ModuleAdminControl with edit grants global access.
const (
	ModuleDashboard    = "Dashboard"
	ModuleAssets       = "Fleet Assets"
	ModuleReadings     = "Readings"
	ModuleAlerts       = "Alerts"
	ModuleTickets      = "Repair Tickets"
	ModuleWorkOrders   = "Work Orders"
	ModuleMechanics    = "Mechanics"
	ModuleThresholds   = "Maintenance Thresholds"
	ModuleUsers        = "Users"
	ModuleAuditTrail   = "Audit Trail"
	ModuleAdminControl = "Admin Control"
)

// Modules lists every permission module.
var Modules = []string{
	ModuleDashboard, ModuleAssets, ModuleReadings, ModuleAlerts, ModuleTickets,
	ModuleWorkOrders, ModuleMechanics, ModuleThresholds, ModuleUsers,
	ModuleAuditTrail, ModuleAdminControl,
}

// Permission is the view/edit pair granted on one module.
type Permission struct {
	View bool `json:"view" yaml:"view"`
	Edit bool `json:"edit" yaml:"edit"`
}

// Permissions maps module name to its grant.
type Permissions map[string]Permission

// User represents an application user record as stored in the `users`
// table.  UserID is the human login id, distinct from the numeric ID.
type User struct {
	ID             uint64      `json:"_id"`
	Name           string      `json:"name"`
	UserID         string      `json:"userId"`
	Email          string      `json:"email"`
	ContactNo      string      `json:"contactNo"`
	PasswordHash   string      `json:"-"`
	Role           string      `json:"role"`
	ProfilePicture string      `json:"profilePicture"`
	PayRate        *float64    `json:"payRate,omitempty"`
	Permissions    Permissions `json:"permissions"`
	ClockIn        *time.Time  `json:"clockIn,omitempty"`
	ClockOut       *time.Time  `json:"clockOut,omitempty"`
	LastSeen       *time.Time  `json:"lastSeen,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleMechanic || r == RoleOperator
}

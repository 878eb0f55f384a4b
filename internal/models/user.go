package models

import "time"

// Role is the privilege level of a user account.
type Role string

const (
	RoleClient         Role = "client"
	RoleAdmin          Role = "admin"
	RoleWarehouseAdmin Role = "warehouse_admin"
	RoleSuperadmin     Role = "superadmin"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleClient, RoleAdmin, RoleWarehouseAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// IsAdmin reports whether the role carries the admin operation surface.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleWarehouseAdmin || r == RoleSuperadmin
}

// User represents a client or administrator account.
// PersonalCode is the client-facing identifier that binds tracks to
// their owner; it is assigned sequentially on creation when absent.
type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Password     string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	WhatsApp     string `gorm:"column:whatsapp;uniqueIndex" json:"whatsapp"`
	Branch       string `json:"branch"`
	PersonalCode *string `gorm:"uniqueIndex" json:"personal_code"`
	Role         Role   `gorm:"not null;default:'client'" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`
	// AssignedWarehouse is a warehouse code; set only for warehouse_admin.
	AssignedWarehouse string     `json:"assigned_warehouse,omitempty"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
}

// WarehouseScoped reports whether the user's visibility is limited to
// an assigned warehouse.
func (u *User) WarehouseScoped() bool {
	return u.Role == RoleWarehouseAdmin && u.AssignedWarehouse != ""
}

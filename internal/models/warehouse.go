package models

import "fmt"

// Warehouse is a physical node of the cargo network.
type Warehouse struct {
	Base
	// Code is canonicalized to upper case before any write.
	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Name        string `gorm:"not null" json:"name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	ManagerName string `json:"manager_name"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}

// DisplayLocation is the human-readable location string stored on
// tracks, e.g. "Almaty Warehouse (ALM)".
func (w *Warehouse) DisplayLocation() string {
	return fmt.Sprintf("%s (%s)", w.Name, w.Code)
}

package models

// WarehouseTransfer is an immutable record of a parcel's movement
// between two warehouses. Rows are only ever inserted.
type WarehouseTransfer struct {
	Base
	TrackNumber   string `gorm:"index;not null" json:"track_number"`
	FromWarehouse string `gorm:"not null" json:"from_warehouse"`
	ToWarehouse   string `gorm:"not null" json:"to_warehouse"`
	TransferredBy string `json:"transferred_by"`
	Note          string `json:"note,omitempty"`
}

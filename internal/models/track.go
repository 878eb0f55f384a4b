package models

import "time"

// TrackStatus is the closed set of semantic parcel states. The
// human-facing label lives in Track.DisplayStatus; the status tag is
// the authoritative state used by queries and transitions.
type TrackStatus string

const (
	StatusRegistered  TrackStatus = "registered"
	StatusInTransit   TrackStatus = "in_transit"
	StatusReceived    TrackStatus = "received"
	StatusTransferred TrackStatus = "transferred"
	StatusDelivered   TrackStatus = "delivered"
)

// ValidTrackStatus reports whether s names a known track status.
func ValidTrackStatus(s string) bool {
	switch TrackStatus(s) {
	case StatusRegistered, StatusInTransit, StatusReceived, StatusTransferred, StatusDelivered:
		return true
	}
	return false
}

// Track is a parcel moving through the warehouse network.
type Track struct {
	Base
	// TrackNumber is canonicalized to upper case before any write.
	TrackNumber string `gorm:"uniqueIndex;not null" json:"track_number"`
	// PersonalCode binds the parcel to its owner; nil until assigned.
	PersonalCode *string `gorm:"index" json:"personal_code"`
	Notes        string  `json:"notes,omitempty"`

	Status TrackStatus `gorm:"not null;default:'registered'" json:"status"`
	// DisplayStatus is the free-text label shown to clients; derived on
	// transitions, never parsed.
	DisplayStatus string `json:"display_status"`

	// WarehouseID is the authoritative location reference;
	// CurrentWarehouse is the derived display string "Name (CODE)".
	WarehouseID      *uint  `gorm:"index" json:"warehouse_id"`
	CurrentWarehouse string `json:"current_warehouse,omitempty"`

	ChinaArrival   *time.Time `json:"china_arrival,omitempty"`
	ChinaDeparture *time.Time `gorm:"index" json:"china_departure,omitempty"`
	KZArrival      *time.Time `json:"kz_arrival,omitempty"`
	HandoutDate    *time.Time `json:"handout_date,omitempty"`

	ReceivedBy    string `json:"received_by,omitempty"`
	HandedBy      string `json:"handed_by,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`

	Archived bool `gorm:"default:false;index" json:"archived"`
}

// Delivered reports whether the parcel has reached its terminal state.
func (t *Track) Delivered() bool {
	return t.Status == StatusDelivered
}

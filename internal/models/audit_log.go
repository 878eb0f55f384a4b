package models

// AuditLog records every privileged or state-changing action. Rows are
// append-only; the application never updates or deletes them.
type AuditLog struct {
	Base
	Action       string `gorm:"not null;index" json:"action"`
	PerformedBy  string `gorm:"not null;index" json:"performed_by"`
	TargetEntity string `gorm:"index" json:"target_entity,omitempty"`
	TargetID     string `json:"target_id,omitempty"`
	// Details is a JSON-encoded payload describing the action.
	Details   string `json:"details,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

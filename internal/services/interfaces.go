package services

import (
	"time"

	"cargotrack/internal/models"
	"cargotrack/internal/pagination"
)

// CreateUserParams holds the fields for an admin-side user creation.
type CreateUserParams struct {
	Email             string
	Password          string
	Name              string
	WhatsApp          string
	Branch            string
	PersonalCode      string // assigned sequentially when empty
	Role              models.Role
	AssignedWarehouse string // required when Role is warehouse_admin
}

// UserFilter holds optional filter parameters for listing users.
type UserFilter struct {
	Search    string // matches name, email, personal code, whatsapp
	Role      string
	Warehouse string // warehouse code or name fragment
	SortBy    string // name, email, role, created
	Order     string // asc, desc
}

// UserServicer defines the contract for accounts and credentials.
type UserServicer interface {
	// Authenticate verifies email/password and stamps last_login.
	// Unknown email and digest mismatch are indistinguishable to the caller.
	Authenticate(email, password string) (*models.User, error)
	Register(name, email, password, whatsapp, branch string) (*models.User, error)
	CreateUser(params CreateUserParams) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	GetUserByPersonalCode(code string) (*models.User, error)
	FilterUsers(filter UserFilter) ([]models.User, error)
	ChangeRole(userID uint, newRole models.Role) (*models.User, string, error)
	ToggleActive(userID uint) (*models.User, error)
	// DeleteUser removes an account. Deleting a superadmin requires the
	// actor to be a superadmin.
	DeleteUser(actor *models.User, userID uint) (string, error)
	AssignWarehouse(userID uint, warehouseCode string) (*models.User, error)
}

// WarehouseParams holds the mutable fields of a warehouse.
type WarehouseParams struct {
	Code        string
	Name        string
	Address     string
	Phone       string
	ManagerName string
	IsActive    *bool
}

// WarehouseStats aggregates per-warehouse figures.
type WarehouseStats struct {
	Warehouse      *models.Warehouse `json:"warehouse"`
	TotalTracks    int64             `json:"total_tracks"`
	Delivered      int64             `json:"delivered"`
	InTransit      int64             `json:"in_transit"`
	UsersCount     int64             `json:"users_count"`
	RecentActivity []models.AuditLog `json:"recent_activity"`
}

// WarehouseServicer defines the contract for the warehouse registry.
type WarehouseServicer interface {
	Create(params WarehouseParams) (*models.Warehouse, error)
	Update(id uint, params WarehouseParams) (*models.Warehouse, error)
	// Delete removes the warehouse unconditionally; tracks referencing it
	// are detached, not deleted.
	Delete(id uint) (*models.Warehouse, error)
	GetByCode(code string) (*models.Warehouse, error)
	ListActive() ([]models.Warehouse, error)
	ListAll() ([]models.Warehouse, error)
	// Stats is warehouse-scoped: a warehouse_admin actor may only query
	// their assigned warehouse.
	Stats(actor *models.User, code string) (*WarehouseStats, error)
}

// TimelineStep is one entry of a track's client-facing status timeline.
type TimelineStep struct {
	Label     string     `json:"label"`
	Date      *time.Time `json:"date,omitempty"`
	Completed bool       `json:"completed"`
}

// UserTrack couples a track with its display timeline.
type UserTrack struct {
	Track    models.Track   `json:"track"`
	Timeline []TimelineStep `json:"timeline"`
}

// IntakeResult reports the outcome of a bulk intake.
type IntakeResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"`
}

// DepartureCount is the number of tracks sharing one departure date.
type DepartureCount struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// TrackServicer defines the contract for the parcel lifecycle.
type TrackServicer interface {
	// AssignToUser binds a track to a personal code, creating the track
	// when absent. Re-assignment to a different owner fails; repeating
	// the same owner is idempotent.
	AssignToUser(trackNumber, personalCode, notes string) (*models.Track, error)
	// BulkIntake creates or updates pre-registered tracks from an
	// uploaded sequence of track numbers. A warehouse_admin actor may
	// only intake into their assigned warehouse.
	BulkIntake(actor *models.User, trackNumbers []string, displayStatus string, departure *time.Time, warehouseCode string) (*IntakeResult, error)
	Receive(trackNumber, warehouseCode, receivedBy string) (*models.Track, error)
	Transfer(trackNumber, fromCode, toCode, transferredBy, note string) (*models.WarehouseTransfer, error)
	// Handout marks the parcel delivered. Re-delivering an already
	// delivered track is accepted and refreshes the handout metadata.
	Handout(trackNumber, handedBy, recipientName string) (*models.Track, error)
	Archive(trackNumber string) (*models.Track, error)
	Search(trackNumber string) (*models.Track, error)
	UserTracks(personalCode string) ([]UserTrack, error)
	ListAll(page pagination.PageRequest) (*pagination.PageResponse[models.Track], error)
	// Inventory lists undelivered tracks of one warehouse; scoped for
	// warehouse_admin actors.
	Inventory(actor *models.User, warehouseCode string) ([]models.Track, error)
	ByDepartureDate(date time.Time) ([]models.Track, error)
	CalendarCounts() ([]DepartureCount, error)
	UpdateStatus(trackID uint, status models.TrackStatus, label string) (*models.Track, string, error)
}

// AuditFilter holds optional filters for the audit log listing.
type AuditFilter struct {
	From      *time.Time
	To        *time.Time
	Action    string
	Actor     string // substring match on performed_by
	Warehouse string // substring match inside the details payload
	Limit     int
	Offset    int
}

// ActionCount is the number of audit entries per action type.
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// ActorCount is the number of audit entries per actor.
type ActorCount struct {
	Email string `json:"email"`
	Count int64  `json:"count"`
}

// AuditStats aggregates audit trail figures.
type AuditStats struct {
	TotalLogs       int64         `json:"total_logs"`
	Actions         []ActionCount `json:"actions"`
	MostActiveUsers []ActorCount  `json:"most_active_users"`
}

// AuditServicer defines the contract for the append-only audit trail.
// Record never fails the caller; all list queries return newest-first.
type AuditServicer interface {
	Record(action, performedBy, targetEntity, targetID string, details map[string]interface{}, ipAddress string)
	Recent(limit int) ([]models.AuditLog, error)
	ByAction(action string, limit int) ([]models.AuditLog, error)
	ByActor(email string, limit int) ([]models.AuditLog, error)
	ByEntity(entity, entityID string, limit int) ([]models.AuditLog, error)
	List(filter AuditFilter) ([]models.AuditLog, error)
	Stats() (*AuditStats, error)
}

// BatchResult reports per-item outcomes of a batch operation.
// Failed carries a reason only for validation failures; plain lookup
// misses are listed without one.
type BatchResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    []string          `json:"failed"`
	Reasons   map[string]string `json:"reasons,omitempty"`
}

// BatchServicer applies one mutation across a set of tracks with
// per-item failure isolation. Each call emits exactly one audit record
// summarizing counts.
type BatchServicer interface {
	DeliverBatch(actor *models.User, trackNumbers []string, ipAddress string) (*BatchResult, error)
	DeleteBatch(actor *models.User, trackNumbers []string, ipAddress string) (*BatchResult, error)
	UpdateStatusByDate(actor *models.User, date time.Time, status models.TrackStatus, label, warehouseCode, ipAddress string) (*BatchResult, error)
	UpdateStatusByWarehouse(actor *models.User, warehouseCode string, status models.TrackStatus, label, ipAddress string) (*BatchResult, error)
}

package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/models"
	"cargotrack/internal/pagination"
)

// trackService owns the parcel lifecycle state machine.
type trackService struct {
	db *gorm.DB
}

// NewTrackService creates a new TrackServicer.
func NewTrackService(db *gorm.DB) TrackServicer {
	return &trackService{db: db}
}

// canonicalTrackNumber normalizes a track number for storage and lookup.
func canonicalTrackNumber(tn string) string {
	return strings.ToUpper(strings.TrimSpace(tn))
}

// defaultLabel maps a status tag to its client-facing label.
func defaultLabel(status models.TrackStatus) string {
	switch status {
	case models.StatusRegistered:
		return "Registered by client"
	case models.StatusInTransit:
		return "In transit"
	case models.StatusReceived:
		return "Received at warehouse"
	case models.StatusTransferred:
		return "In transfer"
	case models.StatusDelivered:
		return "Delivered to client"
	}
	return string(status)
}

// AssignToUser binds a track to a personal code. When the track already
// belongs to a different code the call fails; repeating the same owner
// is idempotent. Absent tracks are created as client registrations.
func (s *trackService) AssignToUser(trackNumber, personalCode, notes string) (*models.Track, error) {
	tn := canonicalTrackNumber(trackNumber)
	code := strings.TrimSpace(personalCode)

	if len(tn) < 3 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "track number must be at least 3 characters")
	}
	if code == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "personal code is required")
	}

	var track models.Track
	err := s.db.Where("track_number = ?", tn).First(&track).Error
	switch {
	case err == nil:
		if track.PersonalCode != nil && *track.PersonalCode != code {
			return nil, apperrors.ErrTrackAlreadyAssigned
		}
		updates := map[string]interface{}{"personal_code": code}
		if notes != "" {
			updates["notes"] = notes
		}
		if err := s.db.Model(&track).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		track.PersonalCode = &code
		if notes != "" {
			track.Notes = notes
		}
		return &track, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		track = models.Track{
			TrackNumber:   tn,
			PersonalCode:  &code,
			Notes:         notes,
			Status:        models.StatusRegistered,
			DisplayStatus: defaultLabel(models.StatusRegistered),
		}
		if err := s.db.Create(&track).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperrors.ErrDuplicateTrack
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &track, nil

	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}

// BulkIntake creates or updates pre-registered tracks from a warehouse
// upload. Existing tracks get the new status and departure date and are
// unarchived; new tracks are created without an owner.
func (s *trackService) BulkIntake(actor *models.User, trackNumbers []string, displayStatus string, departure *time.Time, warehouseCode string) (*IntakeResult, error) {
	var wh *models.Warehouse
	if warehouseCode != "" {
		var found models.Warehouse
		if err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(warehouseCode))).First(&found).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrWarehouseNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if actor != nil && actor.Role == models.RoleWarehouseAdmin && actor.AssignedWarehouse != found.Code {
			return nil, apperrors.WithMessage(apperrors.ErrForbidden, "Warehouse admins can only upload into their assigned warehouse")
		}
		wh = &found
	}

	label := strings.TrimSpace(displayStatus)
	if label == "" {
		label = defaultLabel(models.StatusInTransit)
	}

	result := &IntakeResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, raw := range trackNumbers {
			tn := canonicalTrackNumber(raw)
			if tn == "" {
				continue
			}

			var track models.Track
			err := tx.Where("track_number = ?", tn).First(&track).Error
			switch {
			case err == nil:
				updates := map[string]interface{}{
					"status":         models.StatusInTransit,
					"display_status": label,
					"archived":       false,
				}
				if departure != nil {
					updates["china_departure"] = *departure
				}
				if wh != nil {
					updates["warehouse_id"] = wh.ID
					updates["current_warehouse"] = wh.DisplayLocation()
				}
				if err := tx.Model(&track).Updates(updates).Error; err != nil {
					return err
				}
				result.Updated++

			case errors.Is(err, gorm.ErrRecordNotFound):
				track = models.Track{
					TrackNumber:    tn,
					Status:         models.StatusInTransit,
					DisplayStatus:  label,
					ChinaDeparture: departure,
				}
				if wh != nil {
					track.WarehouseID = &wh.ID
					track.CurrentWarehouse = wh.DisplayLocation()
				}
				if err := tx.Create(&track).Error; err != nil {
					return err
				}
				result.Created++

			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return result, nil
}

// Receive marks a parcel as arrived at a warehouse.
func (s *trackService) Receive(trackNumber, warehouseCode, receivedBy string) (*models.Track, error) {
	track, err := s.Search(trackNumber)
	if err != nil {
		return nil, err
	}

	var wh models.Warehouse
	if err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(warehouseCode))).First(&wh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWarehouseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"warehouse_id":      wh.ID,
		"current_warehouse": wh.DisplayLocation(),
		"status":            models.StatusReceived,
		"display_status":    fmt.Sprintf("In warehouse %s", wh.Code),
		"kz_arrival":        now,
		"received_by":       receivedBy,
	}
	if err := s.db.Model(track).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	track.WarehouseID = &wh.ID
	track.CurrentWarehouse = wh.DisplayLocation()
	track.Status = models.StatusReceived
	track.DisplayStatus = fmt.Sprintf("In warehouse %s", wh.Code)
	track.KZArrival = &now
	track.ReceivedBy = receivedBy
	return track, nil
}

// Transfer moves a parcel between warehouses. The transfer record and
// the track update persist in one transaction: both or neither.
func (s *trackService) Transfer(trackNumber, fromCode, toCode, transferredBy, note string) (*models.WarehouseTransfer, error) {
	track, err := s.Search(trackNumber)
	if err != nil {
		return nil, err
	}

	var from, to models.Warehouse
	if err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(fromCode))).First(&from).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrWarehouseNotFound, "Source warehouse not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(toCode))).First(&to).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrWarehouseNotFound, "Destination warehouse not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	transfer := &models.WarehouseTransfer{
		TrackNumber:   track.TrackNumber,
		FromWarehouse: from.DisplayLocation(),
		ToWarehouse:   to.DisplayLocation(),
		TransferredBy: transferredBy,
		Note:          note,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transfer).Error; err != nil {
			return err
		}
		return tx.Model(track).Updates(map[string]interface{}{
			"warehouse_id":      to.ID,
			"current_warehouse": to.DisplayLocation(),
			"status":            models.StatusTransferred,
			"display_status":    fmt.Sprintf("Transfer %s to %s", from.Code, to.Code),
		}).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return transfer, nil
}

// Handout marks a parcel as delivered to the client. Already delivered
// parcels are accepted again; the handout metadata is refreshed.
func (s *trackService) Handout(trackNumber, handedBy, recipientName string) (*models.Track, error) {
	track, err := s.Search(trackNumber)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":         models.StatusDelivered,
		"display_status": defaultLabel(models.StatusDelivered),
		"handout_date":   now,
		"handed_by":      handedBy,
		"recipient_name": recipientName,
	}
	if err := s.db.Model(track).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	track.Status = models.StatusDelivered
	track.DisplayStatus = defaultLabel(models.StatusDelivered)
	track.HandoutDate = &now
	track.HandedBy = handedBy
	track.RecipientName = recipientName
	return track, nil
}

// Archive soft-deletes a parcel. Bulk intake unarchives it again.
func (s *trackService) Archive(trackNumber string) (*models.Track, error) {
	track, err := s.Search(trackNumber)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(track).Update("archived", true).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	track.Archived = true
	return track, nil
}

// Search retrieves a track by its canonical number.
func (s *trackService) Search(trackNumber string) (*models.Track, error) {
	var track models.Track
	if err := s.db.Where("track_number = ?", canonicalTrackNumber(trackNumber)).First(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTrackNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &track, nil
}

// UserTracks lists a client's unarchived tracks with their timelines.
func (s *trackService) UserTracks(personalCode string) ([]UserTrack, error) {
	var tracks []models.Track
	if err := s.db.Where("personal_code = ? AND archived = ?", strings.TrimSpace(personalCode), false).
		Order("created_at desc").Find(&tracks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make([]UserTrack, 0, len(tracks))
	for _, t := range tracks {
		result = append(result, UserTrack{
			Track: t,
			Timeline: []TimelineStep{
				{Label: "Arrived in China", Date: t.ChinaArrival, Completed: t.ChinaArrival != nil},
				{Label: "Departed China", Date: t.ChinaDeparture, Completed: t.ChinaDeparture != nil},
				{Label: "At warehouse", Date: t.KZArrival, Completed: t.KZArrival != nil},
				{Label: "Handed out", Date: t.HandoutDate, Completed: t.HandoutDate != nil},
			},
		})
	}
	return result, nil
}

// ListAll returns every track, newest first.
func (s *trackService) ListAll(page pagination.PageRequest) (*pagination.PageResponse[models.Track], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.Track{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var tracks []models.Track
	if err := s.db.Order("created_at desc").Scopes(pagination.Paginate(page)).Find(&tracks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(tracks, page.Page, page.PageSize, total)
	return &resp, nil
}

// Inventory lists the undelivered parcels held by one warehouse.
func (s *trackService) Inventory(actor *models.User, warehouseCode string) ([]models.Track, error) {
	var wh models.Warehouse
	if err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(warehouseCode))).First(&wh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWarehouseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if actor != nil && actor.Role == models.RoleWarehouseAdmin && actor.AssignedWarehouse != wh.Code {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "Warehouse admins can only list their assigned warehouse")
	}

	var tracks []models.Track
	if err := s.db.Where("warehouse_id = ? AND status <> ? AND archived = ?", wh.ID, models.StatusDelivered, false).
		Order("created_at desc").Find(&tracks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tracks, nil
}

// ByDepartureDate lists tracks whose China departure falls on one day.
func (s *trackService) ByDepartureDate(date time.Time) ([]models.Track, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var tracks []models.Track
	if err := s.db.Where("china_departure >= ? AND china_departure < ?", dayStart, dayEnd).
		Order("track_number asc").Find(&tracks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tracks, nil
}

// CalendarCounts groups track counts by departure date.
func (s *trackService) CalendarCounts() ([]DepartureCount, error) {
	var counts []DepartureCount
	err := s.db.Model(&models.Track{}).
		Select("china_departure as date, count(*) as count").
		Where("china_departure IS NOT NULL").
		Group("china_departure").
		Order("china_departure asc").
		Scan(&counts).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return counts, nil
}

// UpdateStatus edits a single track's status tag and label, returning
// the previous label for auditing.
func (s *trackService) UpdateStatus(trackID uint, status models.TrackStatus, label string) (*models.Track, string, error) {
	if !models.ValidTrackStatus(string(status)) {
		return nil, "", apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid track status")
	}

	var track models.Track
	if err := s.db.First(&track, trackID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.ErrTrackNotFound
		}
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	oldLabel := track.DisplayStatus
	if label == "" {
		label = defaultLabel(status)
	}

	if err := s.db.Model(&track).Updates(map[string]interface{}{
		"status":         status,
		"display_status": label,
	}).Error; err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	track.Status = status
	track.DisplayStatus = label
	return &track, oldLabel, nil
}

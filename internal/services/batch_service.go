package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/models"
)

// batchService applies one mutation across many tracks. Items fail
// independently; the successes of a call commit in one transaction and
// every call leaves a single audit record summarizing the outcome.
type batchService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewBatchService creates a new BatchServicer.
func NewBatchService(db *gorm.DB, audit AuditServicer) BatchServicer {
	return &batchService{db: db, audit: audit}
}

func actorEmail(actor *models.User) string {
	if actor == nil {
		return "system"
	}
	return actor.Email
}

// sampleTracks truncates a track list for audit details.
func sampleTracks(tns []string) []string {
	const max = 20
	if len(tns) <= max {
		return tns
	}
	return tns[:max]
}

// DeliverBatch marks every listed track as delivered. Unknown numbers
// are reported back without aborting the rest of the batch.
func (s *batchService) DeliverBatch(actor *models.User, trackNumbers []string, ipAddress string) (*BatchResult, error) {
	result := &BatchResult{Succeeded: []string{}, Failed: []string{}, Reasons: map[string]string{}}
	now := time.Now().UTC()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, raw := range trackNumbers {
			tn := canonicalTrackNumber(raw)
			if tn == "" {
				continue
			}

			var track models.Track
			if err := tx.Where("track_number = ?", tn).First(&track).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					result.Failed = append(result.Failed, tn)
					continue
				}
				return err
			}

			if err := tx.Model(&track).Updates(map[string]interface{}{
				"status":         models.StatusDelivered,
				"display_status": defaultLabel(models.StatusDelivered),
				"handout_date":   now,
				"handed_by":      actorEmail(actor),
			}).Error; err != nil {
				return err
			}
			result.Succeeded = append(result.Succeeded, tn)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Record("batch_deliver", actorEmail(actor), "track", "", map[string]interface{}{
		"delivered": len(result.Succeeded),
		"failed":    len(result.Failed),
		"tracks":    sampleTracks(result.Succeeded),
	}, ipAddress)

	return result, nil
}

// DeleteBatch permanently removes the listed tracks.
func (s *batchService) DeleteBatch(actor *models.User, trackNumbers []string, ipAddress string) (*BatchResult, error) {
	result := &BatchResult{Succeeded: []string{}, Failed: []string{}, Reasons: map[string]string{}}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, raw := range trackNumbers {
			tn := canonicalTrackNumber(raw)
			if tn == "" {
				continue
			}

			res := tx.Where("track_number = ?", tn).Delete(&models.Track{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				result.Failed = append(result.Failed, tn)
				continue
			}
			result.Succeeded = append(result.Succeeded, tn)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Record("batch_delete", actorEmail(actor), "track", "", map[string]interface{}{
		"deleted": len(result.Succeeded),
		"failed":  len(result.Failed),
		"tracks":  sampleTracks(result.Succeeded),
	}, ipAddress)

	return result, nil
}

// UpdateStatusByDate re-labels every track that departed China on the
// given day, optionally restricted to one warehouse. An empty match is
// a successful no-op.
func (s *batchService) UpdateStatusByDate(actor *models.User, date time.Time, status models.TrackStatus, label, warehouseCode, ipAddress string) (*BatchResult, error) {
	if !models.ValidTrackStatus(string(status)) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid track status")
	}

	var wh *models.Warehouse
	if warehouseCode != "" {
		found, err := s.resolveScopedWarehouse(actor, warehouseCode)
		if err != nil {
			return nil, err
		}
		wh = found
	}

	if label == "" {
		label = defaultLabel(status)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	result := &BatchResult{Succeeded: []string{}, Failed: []string{}, Reasons: map[string]string{}}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("china_departure >= ? AND china_departure < ?", dayStart, dayEnd)
		if wh != nil {
			query = query.Where("warehouse_id = ?", wh.ID)
		}

		var tracks []models.Track
		if err := query.Find(&tracks).Error; err != nil {
			return err
		}

		for _, track := range tracks {
			if err := tx.Model(&track).Updates(map[string]interface{}{
				"status":         status,
				"display_status": label,
			}).Error; err != nil {
				return err
			}
			result.Succeeded = append(result.Succeeded, track.TrackNumber)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	details := map[string]interface{}{
		"date":    dayStart.Format("2006-01-02"),
		"status":  string(status),
		"label":   label,
		"updated": len(result.Succeeded),
		"tracks":  sampleTracks(result.Succeeded),
	}
	if wh != nil {
		details["warehouse"] = wh.Code
	}
	s.audit.Record("batch_status_by_date", actorEmail(actor), "track", "", details, ipAddress)

	return result, nil
}

// UpdateStatusByWarehouse re-labels every undelivered track held by one
// warehouse.
func (s *batchService) UpdateStatusByWarehouse(actor *models.User, warehouseCode string, status models.TrackStatus, label, ipAddress string) (*BatchResult, error) {
	if !models.ValidTrackStatus(string(status)) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid track status")
	}

	wh, err := s.resolveScopedWarehouse(actor, warehouseCode)
	if err != nil {
		return nil, err
	}

	if label == "" {
		label = defaultLabel(status)
	}

	result := &BatchResult{Succeeded: []string{}, Failed: []string{}, Reasons: map[string]string{}}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var tracks []models.Track
		if err := tx.Where("warehouse_id = ? AND status <> ?", wh.ID, models.StatusDelivered).
			Find(&tracks).Error; err != nil {
			return err
		}

		for _, track := range tracks {
			if err := tx.Model(&track).Updates(map[string]interface{}{
				"status":         status,
				"display_status": label,
			}).Error; err != nil {
				return err
			}
			result.Succeeded = append(result.Succeeded, track.TrackNumber)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Record("batch_status_by_warehouse", actorEmail(actor), "track", "", map[string]interface{}{
		"warehouse": wh.Code,
		"status":    string(status),
		"label":     label,
		"updated":   len(result.Succeeded),
		"tracks":    sampleTracks(result.Succeeded),
	}, ipAddress)

	return result, nil
}

// resolveScopedWarehouse loads a warehouse by code and enforces the
// actor's scope.
func (s *batchService) resolveScopedWarehouse(actor *models.User, code string) (*models.Warehouse, error) {
	var wh models.Warehouse
	if err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&wh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWarehouseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if actor != nil && actor.Role == models.RoleWarehouseAdmin && actor.AssignedWarehouse != wh.Code {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden,
			fmt.Sprintf("Warehouse admins can only manage warehouse %s", actor.AssignedWarehouse))
	}
	return &wh, nil
}

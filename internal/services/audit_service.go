package services

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/logger"
	"cargotrack/internal/models"
)

// auditService persists the append-only audit trail.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Record writes an audit entry. Failures are logged at warn level and
// never surfaced: a lost audit entry must not fail the action it
// describes.
func (s *auditService) Record(action, performedBy, targetEntity, targetID string, details map[string]interface{}, ipAddress string) {
	log := logger.Get()

	var payload string
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			log.Warnw("failed to encode audit details", "action", action, "error", err)
		} else {
			payload = string(raw)
		}
	}

	entry := models.AuditLog{
		Action:       action,
		PerformedBy:  performedBy,
		TargetEntity: targetEntity,
		TargetID:     targetID,
		Details:      payload,
		IPAddress:    ipAddress,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Warnw("failed to write audit log",
			"action", action,
			"performed_by", performedBy,
			"target_entity", targetEntity,
			"target_id", targetID,
			"error", err,
		)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

// Recent returns the newest audit entries.
func (s *auditService) Recent(limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.Order("created_at desc").Limit(clampLimit(limit)).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return logs, nil
}

// ByAction returns entries for one action type, newest first.
func (s *auditService) ByAction(action string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.Where("action = ?", action).
		Order("created_at desc").Limit(clampLimit(limit)).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return logs, nil
}

// ByActor returns entries performed by one user, newest first.
func (s *auditService) ByActor(email string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.Where("performed_by = ?", email).
		Order("created_at desc").Limit(clampLimit(limit)).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return logs, nil
}

// ByEntity returns the history of one entity, newest first.
func (s *auditService) ByEntity(entity, entityID string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.Where("target_entity = ? AND target_id = ?", entity, entityID).
		Order("created_at desc").Limit(clampLimit(limit)).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return logs, nil
}

// List applies the combined filter, newest first.
func (s *auditService) List(filter AuditFilter) ([]models.AuditLog, error) {
	query := s.db.Model(&models.AuditLog{})
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Actor != "" {
		query = query.Where("lower(performed_by) LIKE ?", "%"+strings.ToLower(filter.Actor)+"%")
	}
	if filter.Warehouse != "" {
		query = query.Where("details LIKE ?", "%"+filter.Warehouse+"%")
	}

	limit := clampLimit(filter.Limit)
	var logs []models.AuditLog
	if err := query.Order("created_at desc").Limit(limit).Offset(filter.Offset).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return logs, nil
}

// Stats aggregates entry counts per action and the ten most active
// actors.
func (s *auditService) Stats() (*AuditStats, error) {
	stats := &AuditStats{}

	if err := s.db.Model(&models.AuditLog{}).Count(&stats.TotalLogs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(&models.AuditLog{}).
		Select("action, count(*) as count").
		Group("action").
		Order("count desc").
		Scan(&stats.Actions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(&models.AuditLog{}).
		Select("performed_by as email, count(*) as count").
		Group("performed_by").
		Order("count desc").
		Limit(10).
		Scan(&stats.MostActiveUsers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return stats, nil
}

package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/models"
)

// warehouseService owns warehouse identity and per-warehouse stats.
type warehouseService struct {
	db *gorm.DB
}

// NewWarehouseService creates a new WarehouseServicer.
func NewWarehouseService(db *gorm.DB) WarehouseServicer {
	return &warehouseService{db: db}
}

// Create registers a new warehouse. The code is canonicalized to upper
// case; duplicates (case-insensitive) are rejected.
func (s *warehouseService) Create(params WarehouseParams) (*models.Warehouse, error) {
	code := strings.ToUpper(strings.TrimSpace(params.Code))
	name := strings.TrimSpace(params.Name)
	if code == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "code and name are required")
	}

	var count int64
	s.db.Model(&models.Warehouse{}).Where("code = ?", code).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateWarehouseCode
	}

	wh := &models.Warehouse{
		Code:        code,
		Name:        name,
		Address:     strings.TrimSpace(params.Address),
		Phone:       strings.TrimSpace(params.Phone),
		ManagerName: strings.TrimSpace(params.ManagerName),
		IsActive:    true,
	}

	if err := s.db.Create(wh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateWarehouseCode
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return wh, nil
}

// Update edits a warehouse, re-checking code uniqueness excluding self.
func (s *warehouseService) Update(id uint, params WarehouseParams) (*models.Warehouse, error) {
	var wh models.Warehouse
	if err := s.db.First(&wh, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWarehouseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	code := strings.ToUpper(strings.TrimSpace(params.Code))
	name := strings.TrimSpace(params.Name)
	if code == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "code and name are required")
	}

	var count int64
	s.db.Model(&models.Warehouse{}).Where("code = ? AND id <> ?", code, id).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateWarehouseCode
	}

	updates := map[string]interface{}{
		"code":         code,
		"name":         name,
		"address":      strings.TrimSpace(params.Address),
		"phone":        strings.TrimSpace(params.Phone),
		"manager_name": strings.TrimSpace(params.ManagerName),
	}
	if params.IsActive != nil {
		updates["is_active"] = *params.IsActive
	}

	if err := s.db.Model(&wh).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateWarehouseCode
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.First(&wh, id).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wh, nil
}

// Delete removes a warehouse unconditionally. Tracks still pointing at
// it are detached so no dangling foreign key remains; their display
// location string is kept as a historical value.
func (s *warehouseService) Delete(id uint) (*models.Warehouse, error) {
	var wh models.Warehouse
	if err := s.db.First(&wh, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWarehouseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Track{}).
			Where("warehouse_id = ?", id).
			Update("warehouse_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&wh).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &wh, nil
}

// GetByCode retrieves a warehouse by its canonical code.
func (s *warehouseService) GetByCode(code string) (*models.Warehouse, error) {
	var wh models.Warehouse
	if err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&wh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWarehouseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wh, nil
}

// ListActive lists active warehouses ordered by name.
func (s *warehouseService) ListActive() ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	if err := s.db.Where("is_active = ?", true).Order("name asc").Find(&warehouses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return warehouses, nil
}

// ListAll lists every warehouse ordered by name.
func (s *warehouseService) ListAll() ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	if err := s.db.Order("name asc").Find(&warehouses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return warehouses, nil
}

// Stats aggregates track, user, and audit figures for one warehouse.
// A warehouse_admin actor may only query their assigned warehouse;
// that check is data-level, independent of the route's role gate.
func (s *warehouseService) Stats(actor *models.User, code string) (*WarehouseStats, error) {
	wh, err := s.GetByCode(code)
	if err != nil {
		return nil, err
	}

	if actor != nil && actor.Role == models.RoleWarehouseAdmin && actor.AssignedWarehouse != wh.Code {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "Warehouse admins can only view their assigned warehouse")
	}

	stats := &WarehouseStats{Warehouse: wh}

	if err := s.db.Model(&models.Track{}).Where("warehouse_id = ?", wh.ID).Count(&stats.TotalTracks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.Track{}).
		Where("warehouse_id = ? AND status = ?", wh.ID, models.StatusDelivered).
		Count(&stats.Delivered).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	stats.InTransit = stats.TotalTracks - stats.Delivered

	if err := s.db.Model(&models.User{}).
		Where("lower(branch) LIKE ? OR assigned_warehouse = ?", "%"+strings.ToLower(wh.Name)+"%", wh.Code).
		Count(&stats.UsersCount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// The details payload is free-form JSON text, so recent activity
	// matching stays substring-based.
	if err := s.db.Where("details LIKE ?", "%"+wh.Code+"%").
		Order("created_at desc").Limit(10).
		Find(&stats.RecentActivity).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return stats, nil
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/services"
)

// WarehouseHandler handles warehouse registry requests.
type WarehouseHandler struct {
	warehouseService services.WarehouseServicer
	auditService     services.AuditServicer
}

// NewWarehouseHandler creates a new WarehouseHandler.
func NewWarehouseHandler(warehouseService services.WarehouseServicer, auditService services.AuditServicer) *WarehouseHandler {
	return &WarehouseHandler{warehouseService: warehouseService, auditService: auditService}
}

// WarehouseRequest is the create/update payload.
type WarehouseRequest struct {
	Code        string `json:"code" binding:"required,warehouse_code"`
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Address     string `json:"address" binding:"max=300"`
	Phone       string `json:"phone" binding:"max=30"`
	ManagerName string `json:"manager_name" binding:"max=100"`
	IsActive    *bool  `json:"is_active"`
}

// Create registers a warehouse.
func (h *WarehouseHandler) Create(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req WarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	wh, err := h.warehouseService.Create(services.WarehouseParams{
		Code:        req.Code,
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		ManagerName: req.ManagerName,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("warehouse_created", actor.Email, "warehouse", wh.Code,
		map[string]interface{}{"name": wh.Name}, c.ClientIP())

	c.JSON(http.StatusCreated, wh)
}

// Update edits a warehouse.
func (h *WarehouseHandler) Update(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req WarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	wh, err := h.warehouseService.Update(id, services.WarehouseParams{
		Code:        req.Code,
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		ManagerName: req.ManagerName,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("warehouse_updated", actor.Email, "warehouse", wh.Code,
		map[string]interface{}{"name": wh.Name}, c.ClientIP())

	c.JSON(http.StatusOK, wh)
}

// Delete removes a warehouse and detaches its tracks.
func (h *WarehouseHandler) Delete(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	wh, err := h.warehouseService.Delete(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("warehouse_deleted", actor.Email, "warehouse", wh.Code,
		map[string]interface{}{"name": wh.Name, "id": strconv.FormatUint(uint64(id), 10)}, c.ClientIP())

	c.JSON(http.StatusOK, gin.H{"message": "Warehouse deleted", "code": wh.Code})
}

// ListActive returns active warehouses, name ascending.
func (h *WarehouseHandler) ListActive(c *gin.Context) {
	warehouses, err := h.warehouseService.ListActive()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": warehouses})
}

// ListAll returns every warehouse including inactive ones.
func (h *WarehouseHandler) ListAll(c *gin.Context) {
	warehouses, err := h.warehouseService.ListAll()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": warehouses})
}

// Stats returns per-warehouse aggregates, scoped for warehouse admins.
func (h *WarehouseHandler) Stats(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.warehouseService.Stats(actor, c.Param("code"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

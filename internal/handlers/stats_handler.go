package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cargotrack/internal/pagination"
	"cargotrack/internal/services"
)

// StatsHandler aggregates platform-wide figures.
type StatsHandler struct {
	userService      services.UserServicer
	trackService     services.TrackServicer
	warehouseService services.WarehouseServicer
	auditService     services.AuditServicer
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(users services.UserServicer, tracks services.TrackServicer,
	warehouses services.WarehouseServicer, audit services.AuditServicer) *StatsHandler {
	return &StatsHandler{
		userService:      users,
		trackService:     tracks,
		warehouseService: warehouses,
		auditService:     audit,
	}
}

// System returns overall counts for the dashboard.
func (h *StatsHandler) System(c *gin.Context) {
	users, err := h.userService.FilterUsers(services.UserFilter{})
	if err != nil {
		respondWithError(c, err)
		return
	}

	tracks, err := h.trackService.ListAll(pagination.PageRequest{Page: 1, PageSize: 1})
	if err != nil {
		respondWithError(c, err)
		return
	}

	warehouses, err := h.warehouseService.ListAll()
	if err != nil {
		respondWithError(c, err)
		return
	}

	auditStats, err := h.auditService.Stats()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":      len(users),
		"tracks":     tracks.TotalItems,
		"warehouses": len(warehouses),
		"audit_logs": auditStats.TotalLogs,
	})
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/models"
	"cargotrack/internal/services"
)

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		return 100
	}
	return limit
}

// List returns audit entries matching the query filters, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	filter := services.AuditFilter{
		Action:    c.Query("action"),
		Actor:     c.Query("actor"),
		Warehouse: c.Query("warehouse"),
		Limit:     parseLimit(c),
	}

	if v := c.Query("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "from must be YYYY-MM-DD"))
			return
		}
		filter.From = &d
	}
	if v := c.Query("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to must be YYYY-MM-DD"))
			return
		}
		end := d.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	logs, err := h.auditService.List(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}

// ByActor returns one user's audit entries. Admins may read their own
// trail; superadmins may read anyone's.
func (h *AuditHandler) ByActor(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	email := c.Param("email")
	if actor.Role != models.RoleSuperadmin && email != actor.Email {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrForbidden, "Admins can only view their own audit trail"))
		return
	}

	logs, err := h.auditService.ByActor(email, parseLimit(c))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}

// ByEntity returns the audit history of one entity.
func (h *AuditHandler) ByEntity(c *gin.Context) {
	logs, err := h.auditService.ByEntity(c.Param("entity"), c.Param("id"), parseLimit(c))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}

// Stats returns aggregate audit figures.
func (h *AuditHandler) Stats(c *gin.Context) {
	stats, err := h.auditService.Stats()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

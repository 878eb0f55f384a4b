package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/ingest"
	"cargotrack/internal/models"
	"cargotrack/internal/pagination"
	"cargotrack/internal/services"
)

// TrackHandler handles parcel lifecycle requests.
type TrackHandler struct {
	trackService services.TrackServicer
	auditService services.AuditServicer
}

// NewTrackHandler creates a new TrackHandler.
func NewTrackHandler(trackService services.TrackServicer, auditService services.AuditServicer) *TrackHandler {
	return &TrackHandler{trackService: trackService, auditService: auditService}
}

// AssignTrackRequest binds a track to the caller's personal code.
type AssignTrackRequest struct {
	TrackNumber  string `json:"track_number" binding:"required,min=3,max=60"`
	PersonalCode string `json:"personal_code" binding:"omitempty,max=20"`
	Notes        string `json:"notes" binding:"max=500"`
}

// ReceiveRequest marks a track as arrived at a warehouse.
type ReceiveRequest struct {
	WarehouseCode string `json:"warehouse_code" binding:"required,warehouse_code"`
}

// TransferRequest moves a track between warehouses.
type TransferRequest struct {
	FromWarehouse string `json:"from_warehouse" binding:"required,warehouse_code"`
	ToWarehouse   string `json:"to_warehouse" binding:"required,warehouse_code"`
	Note          string `json:"note" binding:"max=500"`
}

// HandoutRequest marks a track as delivered to the client.
type HandoutRequest struct {
	RecipientName string `json:"recipient_name" binding:"max=100"`
}

// UpdateStatusRequest edits a single track's status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,track_status"`
	Label  string `json:"label" binding:"max=100"`
}

// Assign binds a track number to a personal code. Clients may only
// assign to their own code; staff may pass any code.
func (h *TrackHandler) Assign(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AssignTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	code := req.PersonalCode
	if !actor.Role.IsAdmin() || code == "" {
		if actor.PersonalCode == nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "account has no personal code"))
			return
		}
		code = *actor.PersonalCode
	}

	track, err := h.trackService.AssignToUser(req.TrackNumber, code, req.Notes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("track_assigned", actor.Email, "track", track.TrackNumber,
		map[string]interface{}{"personal_code": code}, c.ClientIP())

	c.JSON(http.StatusOK, track)
}

// Upload ingests a file of track numbers and bulk-registers them.
func (h *TrackHandler) Upload(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer file.Close()

	trackNumbers, err := ingest.TrackNumbers(file, fileHeader.Filename)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var departure *time.Time
	if v := c.PostForm("departure_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "departure_date must be YYYY-MM-DD"))
			return
		}
		departure = &d
	}

	result, err := h.trackService.BulkIntake(actor, trackNumbers,
		c.PostForm("status"), departure, c.PostForm("warehouse_code"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("tracks_uploaded", actor.Email, "track", "",
		map[string]interface{}{
			"file":    fileHeader.Filename,
			"created": result.Created,
			"updated": result.Updated,
		}, c.ClientIP())

	c.JSON(http.StatusOK, result)
}

// Search looks up one track by number.
func (h *TrackHandler) Search(c *gin.Context) {
	track, err := h.trackService.Search(c.Param("number"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, track)
}

// MyTracks lists the caller's tracks with timelines.
func (h *TrackHandler) MyTracks(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if actor.PersonalCode == nil {
		c.JSON(http.StatusOK, gin.H{"tracks": []services.UserTrack{}})
		return
	}

	tracks, err := h.trackService.UserTracks(*actor.PersonalCode)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

// UserTracks lists another user's tracks by personal code (staff).
func (h *TrackHandler) UserTracks(c *gin.Context) {
	tracks, err := h.trackService.UserTracks(c.Param("code"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

// Receive marks a track as arrived at a warehouse.
func (h *TrackHandler) Receive(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	track, err := h.trackService.Receive(c.Param("number"), req.WarehouseCode, actor.Email)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("track_received", actor.Email, "track", track.TrackNumber,
		map[string]interface{}{"warehouse": req.WarehouseCode}, c.ClientIP())

	c.JSON(http.StatusOK, track)
}

// Transfer moves a track between warehouses.
func (h *TrackHandler) Transfer(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transfer, err := h.trackService.Transfer(c.Param("number"),
		req.FromWarehouse, req.ToWarehouse, actor.Email, req.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("track_transferred", actor.Email, "track", transfer.TrackNumber,
		map[string]interface{}{
			"from": req.FromWarehouse,
			"to":   req.ToWarehouse,
		}, c.ClientIP())

	c.JSON(http.StatusOK, transfer)
}

// Handout marks a track as delivered.
func (h *TrackHandler) Handout(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req HandoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	track, err := h.trackService.Handout(c.Param("number"), actor.Email, req.RecipientName)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("track_handout", actor.Email, "track", track.TrackNumber,
		map[string]interface{}{"recipient": req.RecipientName}, c.ClientIP())

	c.JSON(http.StatusOK, track)
}

// Archive soft-deletes a track.
func (h *TrackHandler) Archive(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	track, err := h.trackService.Archive(c.Param("number"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("track_archived", actor.Email, "track", track.TrackNumber, nil, c.ClientIP())

	c.JSON(http.StatusOK, track)
}

// UpdateStatus edits one track's status tag and label.
func (h *TrackHandler) UpdateStatus(c *gin.Context) {
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

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	track, oldLabel, err := h.trackService.UpdateStatus(id, models.TrackStatus(req.Status), req.Label)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("track_status_updated", actor.Email, "track", track.TrackNumber,
		map[string]interface{}{
			"old_label": oldLabel,
			"new_label": track.DisplayStatus,
			"status":    req.Status,
		}, c.ClientIP())

	c.JSON(http.StatusOK, track)
}

// List returns all tracks, paginated, newest first.
func (h *TrackHandler) List(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.trackService.ListAll(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Inventory lists the undelivered tracks of one warehouse.
func (h *TrackHandler) Inventory(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tracks, err := h.trackService.Inventory(actor, c.Param("code"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks, "total": len(tracks)})
}

// ByDate lists tracks whose China departure falls on the given day.
func (h *TrackHandler) ByDate(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD"))
		return
	}

	tracks, err := h.trackService.ByDepartureDate(date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks, "total": len(tracks)})
}

// Calendar returns per-departure-date track counts.
func (h *TrackHandler) Calendar(c *gin.Context) {
	counts, err := h.trackService.CalendarCounts()
	if err != nil {
		respondWithError(c, err)
		return
	}

	events := make([]gin.H, 0, len(counts))
	for _, dc := range counts {
		events = append(events, gin.H{
			"date":  dc.Date.Format("2006-01-02"),
			"count": dc.Count,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/models"
	"cargotrack/internal/services"
)

// BatchHandler applies one mutation across many tracks.
type BatchHandler struct {
	batchService services.BatchServicer
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batchService services.BatchServicer) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

// BatchTracksRequest lists the target track numbers.
type BatchTracksRequest struct {
	TrackNumbers []string `json:"track_numbers" binding:"required,min=1,max=1000"`
}

// BatchStatusByDateRequest re-labels tracks by departure date.
type BatchStatusByDateRequest struct {
	Date          string `json:"date" binding:"required"`
	Status        string `json:"status" binding:"required,track_status"`
	Label         string `json:"label" binding:"max=100"`
	WarehouseCode string `json:"warehouse_code" binding:"omitempty,warehouse_code"`
}

// BatchStatusByWarehouseRequest re-labels one warehouse's tracks.
type BatchStatusByWarehouseRequest struct {
	WarehouseCode string `json:"warehouse_code" binding:"required,warehouse_code"`
	Status        string `json:"status" binding:"required,track_status"`
	Label         string `json:"label" binding:"max=100"`
}

// Deliver marks every listed track as delivered.
func (h *BatchHandler) Deliver(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BatchTracksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.batchService.DeliverBatch(actor, req.TrackNumbers, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete removes every listed track.
func (h *BatchHandler) Delete(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BatchTracksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.batchService.DeleteBatch(actor, req.TrackNumbers, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StatusByDate re-labels every track that departed on one day.
func (h *BatchHandler) StatusByDate(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BatchStatusByDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD"))
		return
	}

	result, err := h.batchService.UpdateStatusByDate(actor, date,
		models.TrackStatus(req.Status), req.Label, req.WarehouseCode, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StatusByWarehouse re-labels every undelivered track of one warehouse.
func (h *BatchHandler) StatusByWarehouse(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BatchStatusByWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.batchService.UpdateStatusByWarehouse(actor, req.WarehouseCode,
		models.TrackStatus(req.Status), req.Label, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

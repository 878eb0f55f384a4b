package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cargotrack/internal/config"
	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/middleware"
	"cargotrack/internal/models"
	"cargotrack/internal/services"
)

// AuthHandler handles registration, login, and profile requests.
type AuthHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
	cfg          *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService services.UserServicer, auditService services.AuditServicer, cfg *config.Config) *AuthHandler {
	return &AuthHandler{userService: userService, auditService: auditService, cfg: cfg}
}

// RegisterRequest represents the public self-registration payload.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	WhatsApp string `json:"whatsapp" binding:"required,min=5,max=20"`
	Branch   string `json:"branch" binding:"required,min=1,max=100"`
}

// LoginRequest represents the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                uint        `json:"id"`
	Email             string      `json:"email"`
	Name              string      `json:"name"`
	WhatsApp          string      `json:"whatsapp"`
	Branch            string      `json:"branch"`
	PersonalCode      string      `json:"personal_code,omitempty"`
	Role              models.Role `json:"role"`
	IsActive          bool        `json:"is_active"`
	AssignedWarehouse string      `json:"assigned_warehouse,omitempty"`
}

func toUserResponse(u *models.User) UserResponse {
	code := ""
	if u.PersonalCode != nil {
		code = *u.PersonalCode
	}
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		WhatsApp:          u.WhatsApp,
		Branch:            u.Branch,
		PersonalCode:      code,
		Role:              u.Role,
		IsActive:          u.IsActive,
		AssignedWarehouse: u.AssignedWarehouse,
	}
}

// Register creates a client account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.Register(req.Name, req.Email, req.Password, req.WhatsApp, req.Branch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("user_registered", user.Email, "user",
		strconv.FormatUint(uint64(user.ID), 10), map[string]interface{}{
			"email":  user.Email,
			"branch": user.Branch,
		}, c.ClientIP())

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login authenticates and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.Authenticate(req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user, h.cfg)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	h.auditService.Record("login", user.Email, "user",
		strconv.FormatUint(uint64(user.ID), 10), nil, c.ClientIP())

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         toUserResponse(user),
	})
}

// Profile returns the authenticated user.
func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

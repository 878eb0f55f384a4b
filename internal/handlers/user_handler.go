package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/models"
	"cargotrack/internal/services"
)

// UserHandler handles user administration requests.
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// CreateUserRequest is the admin-side user creation payload.
type CreateUserRequest struct {
	Email             string `json:"email" binding:"required,email"`
	Password          string `json:"password" binding:"required,min=8,max=72"`
	Name              string `json:"name" binding:"required,min=1,max=100"`
	WhatsApp          string `json:"whatsapp" binding:"required,min=5,max=20"`
	Branch            string `json:"branch" binding:"required,min=1,max=100"`
	PersonalCode      string `json:"personal_code" binding:"omitempty,max=20"`
	Role              string `json:"role" binding:"omitempty,user_role"`
	AssignedWarehouse string `json:"assigned_warehouse" binding:"omitempty,warehouse_code"`
}

// ChangeRoleRequest sets a user's role.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,user_role"`
}

// AssignWarehouseRequest binds a warehouse_admin to a warehouse.
type AssignWarehouseRequest struct {
	WarehouseCode string `json:"warehouse_code" binding:"required,warehouse_code"`
}

// List returns users matching the query filters.
func (h *UserHandler) List(c *gin.Context) {
	filter := services.UserFilter{
		Search:    c.Query("search"),
		Role:      c.Query("role"),
		Warehouse: c.Query("warehouse"),
		SortBy:    c.Query("sort_by"),
		Order:     c.Query("order"),
	}

	users, err := h.userService.FilterUsers(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": resp, "total": len(resp)})
}

// Get returns one user by id.
func (h *UserHandler) Get(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// Create adds a user with an explicit role.
func (h *UserHandler) Create(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.CreateUser(services.CreateUserParams{
		Email:             req.Email,
		Password:          req.Password,
		Name:              req.Name,
		WhatsApp:          req.WhatsApp,
		Branch:            req.Branch,
		PersonalCode:      req.PersonalCode,
		Role:              models.Role(req.Role),
		AssignedWarehouse: req.AssignedWarehouse,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("user_created", actor.Email, "user",
		strconv.FormatUint(uint64(user.ID), 10), map[string]interface{}{
			"email": user.Email,
			"role":  string(user.Role),
		}, c.ClientIP())

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// ChangeRole sets a user's role.
func (h *UserHandler) ChangeRole(c *gin.Context) {
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

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, oldRole, err := h.userService.ChangeRole(id, models.Role(req.Role))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("role_changed", actor.Email, "user",
		strconv.FormatUint(uint64(user.ID), 10), map[string]interface{}{
			"email":    user.Email,
			"old_role": oldRole,
			"new_role": req.Role,
		}, c.ClientIP())

	c.JSON(http.StatusOK, toUserResponse(user))
}

// ToggleActive flips a user's activation flag.
func (h *UserHandler) ToggleActive(c *gin.Context) {
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

	user, err := h.userService.ToggleActive(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("user_toggled", actor.Email, "user",
		strconv.FormatUint(uint64(user.ID), 10), map[string]interface{}{
			"email":     user.Email,
			"is_active": user.IsActive,
		}, c.ClientIP())

	c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete removes a user.
func (h *UserHandler) Delete(c *gin.Context) {
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

	email, err := h.userService.DeleteUser(actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("user_deleted", actor.Email, "user",
		strconv.FormatUint(uint64(id), 10), map[string]interface{}{
			"email": email,
		}, c.ClientIP())

	c.JSON(http.StatusOK, gin.H{"message": "User deleted", "email": email})
}

// AssignWarehouse binds a warehouse_admin to a warehouse code.
func (h *UserHandler) AssignWarehouse(c *gin.Context) {
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

	var req AssignWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.AssignWarehouse(id, req.WarehouseCode)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Record("warehouse_assigned", actor.Email, "user",
		strconv.FormatUint(uint64(user.ID), 10), map[string]interface{}{
			"email":     user.Email,
			"warehouse": user.AssignedWarehouse,
		}, c.ClientIP())

	c.JSON(http.StatusOK, toUserResponse(user))
}

// ExportCSV streams the filtered user list as a CSV download.
func (h *UserHandler) ExportCSV(c *gin.Context) {
	actor, err := getUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	users, err := h.userService.FilterUsers(services.UserFilter{
		Role:      c.Query("role"),
		Warehouse: c.Query("warehouse"),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="users.csv"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "email", "name", "whatsapp", "branch", "personal_code", "role", "is_active", "assigned_warehouse", "created_at"})
	for i := range users {
		u := &users[i]
		code := ""
		if u.PersonalCode != nil {
			code = *u.PersonalCode
		}
		_ = w.Write([]string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Email,
			u.Name,
			u.WhatsApp,
			u.Branch,
			code,
			string(u.Role),
			strconv.FormatBool(u.IsActive),
			u.AssignedWarehouse,
			u.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()

	h.auditService.Record("users_exported", actor.Email, "user", "", map[string]interface{}{
		"count": len(users),
	}, c.ClientIP())
}

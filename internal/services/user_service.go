package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "cargotrack/internal/errors"
	"cargotrack/internal/models"
)

// userService handles accounts, credentials, and role administration.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// Authenticate verifies email/password. The failure message never
// distinguishes an unknown email from a wrong password.
func (s *userService) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	now := time.Now().UTC()
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.LastLogin = &now

	return &user, nil
}

// Register creates a client account from public self-registration.
func (s *userService) Register(name, email, password, whatsapp, branch string) (*models.User, error) {
	if name == "" || email == "" || password == "" || whatsapp == "" || branch == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name, email, password, whatsapp, and branch are required")
	}

	return s.create(CreateUserParams{
		Email:    email,
		Password: password,
		Name:     name,
		WhatsApp: whatsapp,
		Branch:   branch,
		Role:     models.RoleClient,
	})
}

// CreateUser creates an account with an explicit role (admin function).
func (s *userService) CreateUser(params CreateUserParams) (*models.User, error) {
	if params.Email == "" || params.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}
	if params.Branch == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "branch is required")
	}
	if params.Role == "" {
		params.Role = models.RoleClient
	}
	if !models.ValidRole(string(params.Role)) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid role")
	}
	if params.Role == models.RoleWarehouseAdmin && params.AssignedWarehouse == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "assigned_warehouse is required for warehouse_admin")
	}
	if params.Role != models.RoleWarehouseAdmin {
		params.AssignedWarehouse = ""
	}

	return s.create(params)
}

func (s *userService) create(params CreateUserParams) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}
	s.db.Model(&models.User{}).Where("whatsapp = ?", params.WhatsApp).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateWhatsApp
	}

	code := strings.TrimSpace(params.PersonalCode)
	if code == "" {
		next, err := s.nextPersonalCode()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		code = next
	} else {
		s.db.Model(&models.User{}).Where("personal_code = ?", code).Count(&count)
		if count > 0 {
			return nil, apperrors.ErrDuplicatePersonalCode
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:             email,
		Password:          string(hashedPassword),
		Name:              params.Name,
		WhatsApp:          params.WhatsApp,
		Branch:            params.Branch,
		PersonalCode:      &code,
		Role:              params.Role,
		IsActive:          true,
		AssignedWarehouse: strings.ToUpper(params.AssignedWarehouse),
	}

	if err := s.db.Create(user).Error; err != nil {
		// A concurrent insert can still hit a unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// nextPersonalCode returns the next sequential integer code. Codes set
// explicitly by admins may be non-numeric; those are ignored here.
func (s *userService) nextPersonalCode() (string, error) {
	var codes []string
	if err := s.db.Model(&models.User{}).Where("personal_code IS NOT NULL").Pluck("personal_code", &codes).Error; err != nil {
		return "", err
	}
	max := 0
	for _, c := range codes {
		if n, err := strconv.Atoi(c); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1), nil
}

// GetUserByEmail retrieves a user by email
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByPersonalCode retrieves a user by personal code
func (s *userService) GetUserByPersonalCode(code string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("personal_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// FilterUsers lists users matching the filter, sorted as requested.
func (s *userService) FilterUsers(filter UserFilter) ([]models.User, error) {
	query := s.db.Model(&models.User{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if filter.Warehouse != "" {
		var wh models.Warehouse
		err := s.db.Where("code = ? OR lower(name) LIKE ?",
			strings.ToUpper(filter.Warehouse), "%"+strings.ToLower(filter.Warehouse)+"%").
			First(&wh).Error
		if err == nil {
			query = query.Where("lower(branch) LIKE ? OR lower(branch) LIKE ? OR assigned_warehouse = ?",
				"%"+strings.ToLower(wh.Name)+"%", "%"+strings.ToLower(wh.Code)+"%", wh.Code)
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			query = query.Where("lower(branch) LIKE ?", "%"+strings.ToLower(filter.Warehouse)+"%")
		} else {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	order := "asc"
	if filter.Order == "desc" {
		order = "desc"
	}
	switch filter.SortBy {
	case "email":
		query = query.Order("email " + order)
	case "role":
		query = query.Order("role " + order)
	case "created":
		query = query.Order("created_at " + order)
	default:
		query = query.Order("name " + order)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		matched := users[:0]
		for _, u := range users {
			code := ""
			if u.PersonalCode != nil {
				code = *u.PersonalCode
			}
			if strings.Contains(strings.ToLower(u.Name), search) ||
				strings.Contains(strings.ToLower(u.Email), search) ||
				strings.Contains(strings.ToLower(code), search) ||
				strings.Contains(strings.ToLower(u.WhatsApp), search) {
				matched = append(matched, u)
			}
		}
		users = matched
	}

	return users, nil
}

// ChangeRole sets a user's role and returns the previous one.
func (s *userService) ChangeRole(userID uint, newRole models.Role) (*models.User, string, error) {
	if !models.ValidRole(string(newRole)) {
		return nil, "", apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid role")
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, "", err
	}

	oldRole := string(user.Role)
	updates := map[string]interface{}{"role": newRole}
	if newRole != models.RoleWarehouseAdmin {
		updates["assigned_warehouse"] = ""
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.Role = newRole

	return user, oldRole, nil
}

// ToggleActive flips the activation flag.
func (s *userService) ToggleActive(userID uint) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(user).Update("is_active", !user.IsActive).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.IsActive = !user.IsActive

	return user, nil
}

// DeleteUser removes an account and returns its email for auditing.
func (s *userService) DeleteUser(actor *models.User, userID uint) (string, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "", err
	}

	if user.Role == models.RoleSuperadmin && actor.Role != models.RoleSuperadmin {
		return "", apperrors.WithMessage(apperrors.ErrForbidden, "Only a superadmin can delete a superadmin")
	}

	if err := s.db.Delete(user).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user.Email, nil
}

// AssignWarehouse binds a warehouse_admin to a warehouse code.
func (s *userService) AssignWarehouse(userID uint, warehouseCode string) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if user.Role != models.RoleWarehouseAdmin {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Can only assign a warehouse to warehouse_admin users")
	}

	code := strings.ToUpper(strings.TrimSpace(warehouseCode))
	var wh models.Warehouse
	if err := s.db.Where("code = ?", code).First(&wh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWarehouseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(user).Update("assigned_warehouse", code).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.AssignedWarehouse = code

	return user, nil
}

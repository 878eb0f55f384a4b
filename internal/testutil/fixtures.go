package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"cargotrack/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active client with a hashed password and
// unique email and personal code.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, models.RoleClient, "")
}

// CreateTestUserWithRole creates a user with the given role. The
// warehouse code is applied only for warehouse admins.
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, role models.Role, warehouseCode string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	n := nextID()
	code := fmt.Sprintf("%d", 1000+n)
	user := &models.User{
		Email:        fmt.Sprintf("user%d@test.com", n),
		Password:     string(hash),
		Name:         fmt.Sprintf("Test User %d", n),
		WhatsApp:     fmt.Sprintf("+7700%07d", n),
		Branch:       "Almaty",
		PersonalCode: &code,
		Role:         role,
		IsActive:     true,
	}
	if role == models.RoleWarehouseAdmin {
		user.AssignedWarehouse = warehouseCode
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestWarehouse creates an active warehouse with a unique code.
func CreateTestWarehouse(t *testing.T, db *gorm.DB) *models.Warehouse {
	t.Helper()
	return CreateTestWarehouseWithCode(t, db, fmt.Sprintf("WH%d", nextID()))
}

// CreateTestWarehouseWithCode creates an active warehouse with the given code.
func CreateTestWarehouseWithCode(t *testing.T, db *gorm.DB, code string) *models.Warehouse {
	t.Helper()

	wh := &models.Warehouse{
		Code:     code,
		Name:     fmt.Sprintf("Warehouse %s", code),
		Address:  "1 Test Street",
		IsActive: true,
	}
	if err := db.Create(wh).Error; err != nil {
		t.Fatalf("failed to create test warehouse: %v", err)
	}
	return wh
}

// CreateTestTrack creates a registered track with a unique number.
func CreateTestTrack(t *testing.T, db *gorm.DB) *models.Track {
	t.Helper()
	return CreateTestTrackWithNumber(t, db, fmt.Sprintf("TN%06d", nextID()))
}

// CreateTestTrackWithNumber creates a registered track with the given number.
func CreateTestTrackWithNumber(t *testing.T, db *gorm.DB, trackNumber string) *models.Track {
	t.Helper()

	track := &models.Track{
		TrackNumber:   trackNumber,
		Status:        models.StatusRegistered,
		DisplayStatus: "Registered by client",
	}
	if err := db.Create(track).Error; err != nil {
		t.Fatalf("failed to create test track: %v", err)
	}
	return track
}

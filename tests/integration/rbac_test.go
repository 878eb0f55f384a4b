package integration

import (
	"fmt"
	"net/http"
	"testing"

	"cargotrack/internal/models"
)

func TestRBAC_ClientCannotReachStaffRoutes(t *testing.T) {
	app := setupApp(t)

	app.registerClient(t, "plain@test.com")
	token := app.loginUser(t, "plain@test.com", "password123")

	staffRoutes := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/api/v1/users", ""},
		{"GET", "/api/v1/tracks", ""},
		{"POST", "/api/v1/batch/deliver", `{"track_numbers":["TN1"]}`},
		{"GET", "/api/v1/stats", ""},
		{"GET", "/api/v1/warehouses", ""},
	}
	for _, tc := range staffRoutes {
		rec := app.request(tc.method, tc.path, tc.body, token)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403 for client, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRBAC_AdminCannotReachSuperadminRoutes(t *testing.T) {
	app := setupApp(t)

	admin, adminToken := app.loginSeeded(t, models.RoleAdmin, "")

	superRoutes := []struct {
		method string
		path   string
		body   string
	}{
		{"POST", "/api/v1/warehouses", `{"code":"NEW","name":"New Warehouse"}`},
		{"PATCH", fmt.Sprintf("/api/v1/users/%d/role", admin.ID), `{"role":"admin"}`},
		{"GET", "/api/v1/audit/logs", ""},
		{"GET", "/api/v1/audit/stats", ""},
		{"GET", "/api/v1/users/export", ""},
	}
	for _, tc := range superRoutes {
		rec := app.request(tc.method, tc.path, tc.body, adminToken)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403 for admin, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRBAC_AdminAuditTrailOwnOnly(t *testing.T) {
	app := setupApp(t)

	admin, adminToken := app.loginSeeded(t, models.RoleAdmin, "")
	other, _ := app.loginSeeded(t, models.RoleAdmin, "")

	// Own trail is readable.
	rec := app.request("GET", "/api/v1/audit/users/"+admin.Email, "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for own trail, got %d: %s", rec.Code, rec.Body.String())
	}

	// Another admin's trail is not.
	rec = app.request("GET", "/api/v1/audit/users/"+other.Email, "", adminToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign trail, got %d: %s", rec.Code, rec.Body.String())
	}

	// A superadmin can read anyone's.
	_, superToken := app.loginSeeded(t, models.RoleSuperadmin, "")
	rec = app.request("GET", "/api/v1/audit/users/"+other.Email, "", superToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for superadmin, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRBAC_RoleChangeAndWarehouseAssignment(t *testing.T) {
	app := setupApp(t)

	_, superToken := app.loginSeeded(t, models.RoleSuperadmin, "")
	app.createWarehouse(t, superToken, "ALMATY", "Almaty Warehouse")

	app.registerClient(t, "promoted@test.com")
	var user models.User
	if err := app.DB.Where("email = ?", "promoted@test.com").First(&user).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}

	// Promote the client to warehouse_admin.
	rec := app.request("PATCH", fmt.Sprintf("/api/v1/users/%d/role", user.ID),
		`{"role":"warehouse_admin"}`, superToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("role change failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["role"] != "warehouse_admin" {
		t.Errorf("expected warehouse_admin, got %v", result["role"])
	}

	// Bind the new admin to a warehouse.
	rec = app.request("PATCH", fmt.Sprintf("/api/v1/users/%d/warehouse", user.ID),
		`{"warehouse_code":"ALMATY"}`, superToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("warehouse assignment failed: %d %s", rec.Code, rec.Body.String())
	}
	result = parseJSON(t, rec)
	if result["assigned_warehouse"] != "ALMATY" {
		t.Errorf("expected ALMATY, got %v", result["assigned_warehouse"])
	}

	// The promoted user now reaches the staff surface.
	token := app.loginUser(t, "promoted@test.com", "password123")
	rec = app.request("GET", "/api/v1/warehouses/ALMATY/inventory", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after promotion, got %d: %s", rec.Code, rec.Body.String())
	}

	// Demoting back to client clears the warehouse binding.
	rec = app.request("PATCH", fmt.Sprintf("/api/v1/users/%d/role", user.ID),
		`{"role":"client"}`, superToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("demotion failed: %d %s", rec.Code, rec.Body.String())
	}
	result = parseJSON(t, rec)
	if wh, ok := result["assigned_warehouse"]; ok && wh != "" {
		t.Errorf("expected cleared warehouse binding, got %v", wh)
	}
}

func TestRBAC_PublicWarehouseListNeedsNoAuth(t *testing.T) {
	app := setupApp(t)

	_, superToken := app.loginSeeded(t, models.RoleSuperadmin, "")
	app.createWarehouse(t, superToken, "ALMATY", "Almaty Warehouse")

	rec := app.request("GET", "/api/v1/public/warehouses", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	warehouses := result["warehouses"].([]interface{})
	if len(warehouses) != 1 {
		t.Errorf("expected 1 warehouse, got %d", len(warehouses))
	}
}

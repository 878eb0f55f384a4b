package services

import (
	"strings"
	"testing"

	"cargotrack/internal/models"
	"cargotrack/internal/testutil"
)

func TestAuditRecord(t *testing.T) {
	t.Run("persists_entry", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		svc.Record("user_created", "admin@test.com", "user", "42",
			map[string]interface{}{"email": "new@test.com"}, "10.0.0.1")

		var entry models.AuditLog
		testutil.AssertNoError(t, db.First(&entry).Error)
		if entry.Action != "user_created" {
			t.Errorf("expected action user_created, got %s", entry.Action)
		}
		if !strings.Contains(entry.Details, "new@test.com") {
			t.Errorf("expected details to carry the payload, got %s", entry.Details)
		}
		if entry.IPAddress != "10.0.0.1" {
			t.Errorf("expected IP recorded, got %s", entry.IPAddress)
		}
	})

	t.Run("nil_details", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		svc.Record("login", "user@test.com", "user", "1", nil, "")

		var count int64
		db.Model(&models.AuditLog{}).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 entry, got %d", count)
		}
	})

	t.Run("failure_does_not_panic", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAuditService(db)
		testutil.TeardownTestDB(t, db)

		// The connection is closed; Record must swallow the failure.
		svc.Record("login", "user@test.com", "user", "1", nil, "")
	})
}

func TestAuditQueries(t *testing.T) {
	t.Run("by_action", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		svc.Record("login", "a@test.com", "user", "1", nil, "")
		svc.Record("login", "b@test.com", "user", "2", nil, "")
		svc.Record("track_received", "b@test.com", "track", "TN001", nil, "")

		logs, err := svc.ByAction("login", 50)
		testutil.AssertNoError(t, err)
		if len(logs) != 2 {
			t.Errorf("expected 2 login entries, got %d", len(logs))
		}
	})

	t.Run("by_actor", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		svc.Record("login", "a@test.com", "user", "1", nil, "")
		svc.Record("track_received", "b@test.com", "track", "TN001", nil, "")

		logs, err := svc.ByActor("b@test.com", 50)
		testutil.AssertNoError(t, err)
		if len(logs) != 1 || logs[0].Action != "track_received" {
			t.Fatalf("expected only b's entry, got %d", len(logs))
		}
	})

	t.Run("by_entity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		svc.Record("track_received", "a@test.com", "track", "TN001", nil, "")
		svc.Record("track_handout", "b@test.com", "track", "TN001", nil, "")
		svc.Record("track_received", "a@test.com", "track", "TN002", nil, "")

		logs, err := svc.ByEntity("track", "TN001", 50)
		testutil.AssertNoError(t, err)
		if len(logs) != 2 {
			t.Errorf("expected 2 entries for TN001, got %d", len(logs))
		}
	})

	t.Run("list_with_filters", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		svc.Record("track_received", "a@test.com", "track", "TN001",
			map[string]interface{}{"warehouse": "ALMATY"}, "")
		svc.Record("track_received", "b@test.com", "track", "TN002",
			map[string]interface{}{"warehouse": "ASTANA"}, "")

		logs, err := svc.List(AuditFilter{Warehouse: "ALMATY"})
		testutil.AssertNoError(t, err)
		if len(logs) != 1 || logs[0].PerformedBy != "a@test.com" {
			t.Fatalf("expected only the ALMATY entry, got %d", len(logs))
		}

		logs, err = svc.List(AuditFilter{Actor: "B@test"})
		testutil.AssertNoError(t, err)
		if len(logs) != 1 || logs[0].PerformedBy != "b@test.com" {
			t.Fatalf("expected case-insensitive actor match, got %d", len(logs))
		}
	})
}

func TestAuditStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	svc.Record("login", "busy@test.com", "user", "1", nil, "")
	svc.Record("login", "busy@test.com", "user", "1", nil, "")
	svc.Record("track_received", "busy@test.com", "track", "TN001", nil, "")
	svc.Record("login", "quiet@test.com", "user", "2", nil, "")

	stats, err := svc.Stats()
	testutil.AssertNoError(t, err)

	if stats.TotalLogs != 4 {
		t.Errorf("expected 4 entries, got %d", stats.TotalLogs)
	}
	if len(stats.Actions) != 2 {
		t.Fatalf("expected 2 action groups, got %d", len(stats.Actions))
	}
	if stats.Actions[0].Action != "login" || stats.Actions[0].Count != 3 {
		t.Errorf("expected login to lead with 3, got %s/%d", stats.Actions[0].Action, stats.Actions[0].Count)
	}
	if len(stats.MostActiveUsers) != 2 {
		t.Fatalf("expected 2 actors, got %d", len(stats.MostActiveUsers))
	}
	if stats.MostActiveUsers[0].Email != "busy@test.com" || stats.MostActiveUsers[0].Count != 3 {
		t.Errorf("expected busy@test.com to lead with 3, got %s/%d",
			stats.MostActiveUsers[0].Email, stats.MostActiveUsers[0].Count)
	}
}

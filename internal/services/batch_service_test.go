package services

import (
	"testing"
	"time"

	"cargotrack/internal/models"
	"cargotrack/internal/testutil"
)

func TestDeliverBatch(t *testing.T) {
	t.Run("missing_member_does_not_abort", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBatchService(db, NewAuditService(db))

		testutil.CreateTestTrackWithNumber(t, db, "TN001")
		testutil.CreateTestTrackWithNumber(t, db, "TN002")

		result, err := svc.DeliverBatch(nil, []string{"TN001", "TN404", "TN002"}, "10.0.0.1")
		testutil.AssertNoError(t, err)

		if len(result.Succeeded) != 2 {
			t.Errorf("expected 2 delivered, got %d", len(result.Succeeded))
		}
		if len(result.Failed) != 1 || result.Failed[0] != "TN404" {
			t.Fatalf("expected TN404 reported as failed, got %v", result.Failed)
		}

		track := &models.Track{}
		testutil.AssertNoError(t, db.Where("track_number = ?", "TN001").First(track).Error)
		if track.Status != models.StatusDelivered {
			t.Errorf("expected TN001 delivered, got %s", track.Status)
		}
	})

	t.Run("one_audit_record_per_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBatchService(db, NewAuditService(db))

		testutil.CreateTestTrackWithNumber(t, db, "TN001")
		testutil.CreateTestTrackWithNumber(t, db, "TN002")
		testutil.CreateTestTrackWithNumber(t, db, "TN003")

		_, err := svc.DeliverBatch(nil, []string{"TN001", "TN002", "TN003"}, "")
		testutil.AssertNoError(t, err)

		var count int64
		db.Model(&models.AuditLog{}).Where("action = ?", "batch_deliver").Count(&count)
		if count != 1 {
			t.Errorf("expected exactly 1 audit record, got %d", count)
		}
	})

	t.Run("empty_batch_succeeds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBatchService(db, NewAuditService(db))

		result, err := svc.DeliverBatch(nil, nil, "")
		testutil.AssertNoError(t, err)
		if len(result.Succeeded) != 0 || len(result.Failed) != 0 {
			t.Error("expected empty result for empty batch")
		}
	})
}

func TestDeleteBatch(t *testing.T) {
	t.Run("deletes_and_reports_misses", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBatchService(db, NewAuditService(db))

		testutil.CreateTestTrackWithNumber(t, db, "TN001")

		result, err := svc.DeleteBatch(nil, []string{"TN001", "TN404"}, "")
		testutil.AssertNoError(t, err)

		if len(result.Succeeded) != 1 || result.Succeeded[0] != "TN001" {
			t.Fatalf("expected TN001 deleted, got %v", result.Succeeded)
		}
		if len(result.Failed) != 1 || result.Failed[0] != "TN404" {
			t.Fatalf("expected TN404 reported, got %v", result.Failed)
		}

		var count int64
		db.Model(&models.Track{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no tracks left, got %d", count)
		}
	})
}

func TestUpdateStatusByDate(t *testing.T) {
	t.Run("updates_matching_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		tracks := NewTrackService(db)
		svc := NewBatchService(db, NewAuditService(db))

		day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		day2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		_, err := tracks.BulkIntake(nil, []string{"TN001", "TN002"}, "", &day1, "")
		testutil.AssertNoError(t, err)
		_, err = tracks.BulkIntake(nil, []string{"TN003"}, "", &day2, "")
		testutil.AssertNoError(t, err)

		result, err := svc.UpdateStatusByDate(nil, day1, models.StatusReceived, "Arrived", "", "")
		testutil.AssertNoError(t, err)
		if len(result.Succeeded) != 2 {
			t.Errorf("expected 2 updates, got %d", len(result.Succeeded))
		}

		other, err := tracks.Search("TN003")
		testutil.AssertNoError(t, err)
		if other.Status != models.StatusInTransit {
			t.Errorf("expected TN003 untouched, got %s", other.Status)
		}
	})

	t.Run("empty_match_is_a_noop", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBatchService(db, NewAuditService(db))

		result, err := svc.UpdateStatusByDate(nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			models.StatusReceived, "", "", "")
		testutil.AssertNoError(t, err)
		if len(result.Succeeded) != 0 {
			t.Errorf("expected no updates, got %d", len(result.Succeeded))
		}
	})

	t.Run("invalid_status", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBatchService(db, NewAuditService(db))

		_, err := svc.UpdateStatusByDate(nil, time.Now(), models.TrackStatus("lost"), "", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUpdateStatusByWarehouse(t *testing.T) {
	t.Run("skips_delivered", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		tracks := NewTrackService(db)
		svc := NewBatchService(db, NewAuditService(db))

		testutil.CreateTestWarehouseWithCode(t, db, "ALMATY")
		testutil.CreateTestTrackWithNumber(t, db, "TN001")
		testutil.CreateTestTrackWithNumber(t, db, "TN002")
		_, err := tracks.Receive("TN001", "ALMATY", "worker@test.com")
		testutil.AssertNoError(t, err)
		_, err = tracks.Receive("TN002", "ALMATY", "worker@test.com")
		testutil.AssertNoError(t, err)
		_, err = tracks.Handout("TN002", "worker@test.com", "Client")
		testutil.AssertNoError(t, err)

		result, err := svc.UpdateStatusByWarehouse(nil, "ALMATY", models.StatusTransferred, "Moving", "")
		testutil.AssertNoError(t, err)
		if len(result.Succeeded) != 1 || result.Succeeded[0] != "TN001" {
			t.Fatalf("expected only TN001 updated, got %v", result.Succeeded)
		}
	})

	t.Run("scoped_for_warehouse_admin", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBatchService(db, NewAuditService(db))

		testutil.CreateTestWarehouseWithCode(t, db, "ALMATY")
		testutil.CreateTestWarehouseWithCode(t, db, "ASTANA")
		actor := testutil.CreateTestUserWithRole(t, db, models.RoleWarehouseAdmin, "ALMATY")

		_, err := svc.UpdateStatusByWarehouse(actor, "ASTANA", models.StatusReceived, "", "")
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

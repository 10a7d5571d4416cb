package services_test

import (
	"strings"
	"testing"

	"gorm.io/gorm"

	"zakatkeeper/internal/fieldcrypt"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
	"zakatkeeper/internal/services"
	"zakatkeeper/internal/testutil"
)

func newAuditFixture(t *testing.T) (*gorm.DB, *models.User, services.AuditLedger) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	cipher, err := fieldcrypt.New("test-field-key")
	testutil.AssertNoError(t, err)

	return db, testutil.CreateTestUser(t, db), services.NewAuditService(db, cipher)
}

func TestAuditRecord(t *testing.T) {
	t.Run("append and read back in order", func(t *testing.T) {
		db, user, audit := newAuditFixture(t)
		record := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusDraft)

		for _, event := range []models.AuditEventType{
			models.AuditEventCreated,
			models.AuditEventFinalized,
		} {
			_, err := audit.Record(db, user.ID, record.ID, event, services.AuditContext{})
			testutil.AssertNoError(t, err)
		}

		entries, err := audit.GetTrail(user.ID, record.ID, false)
		testutil.AssertNoError(t, err)
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].EventType != models.AuditEventCreated || entries[1].EventType != models.AuditEventFinalized {
			t.Errorf("expected chronological order, got %s then %s", entries[0].EventType, entries[1].EventType)
		}
	})

	t.Run("context fields are stored encrypted", func(t *testing.T) {
		db, user, audit := newAuditFixture(t)
		record := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusFinalized)

		_, err := audit.Record(db, user.ID, record.ID, models.AuditEventUnlocked, services.AuditContext{
			UnlockReason:   "correcting a typo in the notes",
			ChangesSummary: "status: finalized -> unlocked",
			BeforeState:    record,
			AfterState:     record,
		})
		testutil.AssertNoError(t, err)

		// Raw rows hold server envelopes, not plaintext.
		var raw models.AuditTrailEntry
		testutil.AssertNoError(t, db.First(&raw, "record_id = ?", record.ID).Error)
		for name, value := range map[string]string{
			"unlock_reason":   raw.UnlockReason,
			"changes_summary": raw.ChangesSummary,
			"before_state":    raw.BeforeState,
			"after_state":     raw.AfterState,
		} {
			if !strings.HasPrefix(value, fieldcrypt.ServerMarker) {
				t.Errorf("%s should be a server envelope, got %q", name, value)
			}
		}

		// Opt-in decryption restores the plaintext.
		entries, err := audit.GetTrail(user.ID, record.ID, true)
		testutil.AssertNoError(t, err)
		if entries[0].UnlockReason != "correcting a typo in the notes" {
			t.Errorf("expected decrypted reason, got %q", entries[0].UnlockReason)
		}
		if !strings.Contains(entries[0].BeforeState, record.ID) {
			t.Error("expected the decrypted snapshot to contain the record ID")
		}
	})

	t.Run("short unlock reason is rejected before write", func(t *testing.T) {
		db, user, audit := newAuditFixture(t)
		record := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusFinalized)

		_, err := audit.Record(db, user.ID, record.ID, models.AuditEventUnlocked, services.AuditContext{
			UnlockReason: "too short",
		})
		testutil.AssertAppError(t, err, "REASON_TOO_SHORT")

		var count int64
		db.Model(&models.AuditTrailEntry{}).Where("record_id = ?", record.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected no entries after rejection, got %d", count)
		}
	})

	t.Run("rolled-back transaction leaves no entry", func(t *testing.T) {
		db, user, audit := newAuditFixture(t)
		record := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusDraft)

		sentinel := services.AuditContext{ChangesSummary: "never committed"}
		_ = db.Transaction(func(tx *gorm.DB) error {
			if _, err := audit.Record(tx, user.ID, record.ID, models.AuditEventFinalized, sentinel); err != nil {
				t.Fatalf("append inside transaction failed: %v", err)
			}
			return gorm.ErrInvalidTransaction
		})

		var count int64
		db.Model(&models.AuditTrailEntry{}).Where("record_id = ?", record.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected rollback to discard the entry, got %d", count)
		}
	})
}

func TestGetUserTrail(t *testing.T) {
	db, user, audit := newAuditFixture(t)
	first := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusDraft)
	second := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusDraft)

	for _, recordID := range []string{first.ID, second.ID} {
		_, err := audit.Record(db, user.ID, recordID, models.AuditEventCreated, services.AuditContext{})
		testutil.AssertNoError(t, err)
	}

	page, err := audit.GetUserTrail(user.ID, pagination.PageRequest{Page: 1, PageSize: 10}, false)
	testutil.AssertNoError(t, err)
	if page.TotalItems != 2 {
		t.Errorf("expected 2 entries across records, got %d", page.TotalItems)
	}

	// Other users see nothing.
	other := testutil.CreateTestUser(t, db)
	page, err = audit.GetUserTrail(other.ID, pagination.PageRequest{Page: 1, PageSize: 10}, false)
	testutil.AssertNoError(t, err)
	if page.TotalItems != 0 {
		t.Errorf("expected empty trail for other user, got %d", page.TotalItems)
	}
}

func TestGetEventsByType(t *testing.T) {
	db, user, audit := newAuditFixture(t)
	record := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusDraft)

	for _, event := range []models.AuditEventType{
		models.AuditEventCreated,
		models.AuditEventFinalized,
		models.AuditEventUnlocked,
		models.AuditEventRefinalized,
	} {
		ctx := services.AuditContext{}
		if event == models.AuditEventUnlocked {
			ctx.UnlockReason = "adjusting for a forgotten asset"
		}
		_, err := audit.Record(db, user.ID, record.ID, event, ctx)
		testutil.AssertNoError(t, err)
	}

	entries, err := audit.GetEventsByType(user.ID, record.ID, models.AuditEventUnlocked, false)
	testutil.AssertNoError(t, err)
	if len(entries) != 1 || entries[0].EventType != models.AuditEventUnlocked {
		t.Fatalf("expected exactly the UNLOCKED entry, got %+v", entries)
	}
}

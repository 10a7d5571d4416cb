package testutil_test

import (
	"testing"

	"zakatkeeper/internal/errors"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "assets", "nisab_year_records", "audit_trail_entries", "payment_records", "encryption_migrations"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have a non-empty ID")
	}

	asset := testutil.CreateTestAsset(t, db, user.ID, 5000)
	if asset.Value != 5000 {
		t.Errorf("expected value 5000, got %d", asset.Value)
	}
	if asset.ZakatableValue() != 5000 {
		t.Errorf("expected full value zakatable, got %d", asset.ZakatableValue())
	}

	passive := testutil.CreateTestPassiveAsset(t, db, user.ID, 10000)
	if passive.ZakatableValue() != 3000 {
		t.Errorf("expected 30%% of passive value zakatable, got %d", passive.ZakatableValue())
	}

	record := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusDraft)
	if record.HawlCompletionDate == nil {
		t.Fatal("draft record should have a completion date")
	}
	days := record.HawlCompletionDate.Sub(record.HawlStartDate).Hours() / 24
	if int(days) != models.HawlDays {
		t.Errorf("expected %d-day Hawl, got %d", models.HawlDays, int(days))
	}

	interrupted := testutil.CreateTestRecord(t, db, user.ID, models.RecordStatusInterrupted)
	if interrupted.HawlCompletionDate != nil {
		t.Error("interrupted record should have no completion date")
	}

	payment := testutil.CreateTestPayment(t, db, user.ID, 1875)
	if payment.Amount != 1875 {
		t.Errorf("expected amount 1875, got %d", payment.Amount)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrRecordNotFound, "custom message")
	testutil.AssertAppError(t, err, "RECORD_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}

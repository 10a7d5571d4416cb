package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"zakatkeeper/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAsset creates a zakat-eligible cash asset with the given value
// (in cents).
func CreateTestAsset(t *testing.T, db *gorm.DB, userID string, value int64) *models.Asset {
	t.Helper()
	return CreateTestAssetWithCategory(t, db, userID, models.AssetCategoryCash, value)
}

// CreateTestAssetWithCategory creates a zakat-eligible asset of the given
// category and value (in cents) with the full value counted as zakatable.
func CreateTestAssetWithCategory(t *testing.T, db *gorm.DB, userID string, category models.AssetCategory, value int64) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		UserID:              userID,
		Name:                fmt.Sprintf("Test Asset %d", nextID()),
		Category:            category,
		Value:               value,
		Currency:            "USD",
		AcquisitionDate:     time.Now(),
		ZakatEligible:       true,
		CalculationModifier: 1.0,
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}

// CreateTestPassiveAsset creates a passive investment asset carrying the
// default 30% zakatable modifier.
func CreateTestPassiveAsset(t *testing.T, db *gorm.DB, userID string, value int64) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		UserID:              userID,
		Name:                fmt.Sprintf("Test Fund %d", nextID()),
		Category:            models.AssetCategoryStocks,
		Value:               value,
		Currency:            "USD",
		AcquisitionDate:     time.Now(),
		ZakatEligible:       true,
		IsPassiveInvestment: true,
		CalculationModifier: models.DefaultPassiveModifier,
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test passive asset: %v", err)
	}
	return asset
}

// CreateTestRecord creates a Nisab-Year record in the given status with a
// Hawl that started now and a locked threshold of 500000 cents.
func CreateTestRecord(t *testing.T, db *gorm.DB, userID string, status models.RecordStatus) *models.NisabYearRecord {
	t.Helper()
	return CreateTestRecordStarted(t, db, userID, status, time.Now().UTC())
}

// CreateTestRecordStarted creates a Nisab-Year record whose Hawl started at
// the given time. Interrupted records get no completion date.
func CreateTestRecordStarted(t *testing.T, db *gorm.DB, userID string, status models.RecordStatus, start time.Time) *models.NisabYearRecord {
	t.Helper()

	record := &models.NisabYearRecord{
		UserID:                userID,
		Status:                status,
		HawlStartDate:         start,
		NisabBasis:            models.NisabBasisSilver,
		NisabThresholdAtStart: 500000,
		TotalWealth:           750000,
		ZakatableWealth:       750000,
		ZakatAmount:           models.ExpectedZakat(750000),
		Currency:              "USD",
		Version:               1,
	}
	if status != models.RecordStatusInterrupted {
		completion := start.AddDate(0, 0, models.HawlDays)
		record.HawlCompletionDate = &completion
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test record: %v", err)
	}
	return record
}

// CreateTestPayment creates a payment of the given amount (in cents) with a
// plaintext recipient name.
func CreateTestPayment(t *testing.T, db *gorm.DB, userID string, amount int64) *models.PaymentRecord {
	t.Helper()

	payment := &models.PaymentRecord{
		UserID:            userID,
		Amount:            amount,
		Currency:          "USD",
		RecipientName:     fmt.Sprintf("Test Recipient %d", nextID()),
		RecipientCategory: models.RecipientCategoryPoor,
		PaymentMethod:     models.PaymentMethodCash,
		PaymentDate:       time.Now(),
		FormatMarker:      "plaintext",
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("failed to create test payment: %v", err)
	}
	return payment
}

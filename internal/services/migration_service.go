package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/fieldcrypt"
	"zakatkeeper/internal/logger"
	"zakatkeeper/internal/models"
)

// migratableColumns lists, per entity, the columns a client may re-encrypt.
// Audit trail entries are deliberately absent: the trail is immutable, so its
// snapshots stay under the server key.
var migratableColumns = map[string][]string{
	"payment_record": {"recipient_name", "notes"},
}

// migrationService drives the move from server-side field encryption to
// client-opaque ciphertext.
type migrationService struct {
	db *gorm.DB
}

// NewMigrationService creates a new MigrationServicer.
func NewMigrationService(db *gorm.DB) MigrationServicer {
	return &migrationService{db: db}
}

// GetStatus returns the user's migration state, creating a PENDING row on
// first access.
func (s *migrationService) GetStatus(userID string) (*models.EncryptionMigration, error) {
	var migration models.EncryptionMigration
	err := s.db.Where("user_id = ?", userID).First(&migration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		migration = models.EncryptionMigration{
			UserID: userID,
			Status: models.MigrationStatusPending,
		}
		if err := s.db.Create(&migration).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &migration, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &migration, nil
}

// ListMigratableFields scans the user's rows for values still under the
// server key. Client-opaque and empty values are already out of scope.
func (s *migrationService) ListMigratableFields(userID string) ([]MigratableField, error) {
	fields := []MigratableField{}

	var payments []models.PaymentRecord
	if err := s.db.Where("user_id = ?", userID).Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range payments {
		if fieldcrypt.Detect(payments[i].RecipientName) == fieldcrypt.ServerEncrypted {
			fields = append(fields, MigratableField{Entity: "payment_record", EntityID: payments[i].ID, Field: "recipient_name"})
		}
		if fieldcrypt.Detect(payments[i].Notes) == fieldcrypt.ServerEncrypted {
			fields = append(fields, MigratableField{Entity: "payment_record", EntityID: payments[i].ID, Field: "notes"})
		}
	}

	return fields, nil
}

// SubmitReplacements stores client ciphertexts byte-for-byte over their
// server-encrypted predecessors. Every value must carry the client marker;
// one bad replacement rejects the whole batch. Returns the number of fields
// replaced.
func (s *migrationService) SubmitReplacements(userID string, replacements []OpaqueReplacement) (int, error) {
	for _, r := range replacements {
		if fieldcrypt.Detect(r.Value) != fieldcrypt.ClientOpaque {
			return 0, apperrors.WithMessage(apperrors.ErrNotClientCiphertext,
				fmt.Sprintf("%s.%s on %s does not carry the client ciphertext marker", r.Entity, r.Field, r.EntityID))
		}
		if !fieldMigratable(r.Entity, r.Field) {
			return 0, apperrors.WithMessage(apperrors.ErrFieldNotMigratable,
				fmt.Sprintf("%s.%s is not a migratable field", r.Entity, r.Field))
		}
	}

	applied := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		migration, err := s.getForUpdate(tx, userID)
		if err != nil {
			return err
		}
		if migration.Status == models.MigrationStatusPending {
			if err := tx.Model(migration).Update("status", models.MigrationStatusInProgress).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		for _, r := range replacements {
			res := tx.Model(&models.PaymentRecord{}).
				Where("id = ? AND user_id = ?", r.EntityID, userID).
				Updates(map[string]any{
					r.Field:         r.Value,
					"format_marker": fieldcrypt.ClientOpaque.String(),
				})
			if res.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
			}
			if res.RowsAffected == 0 {
				return apperrors.ErrPaymentNotFound
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Get().Infow("client ciphertext replacements applied", "user_id", userID, "count", applied)
	return applied, nil
}

// MarkMigrated completes the user's migration. Fields still under the server
// key keep working; the mark only records that the client has taken over
// encryption for new writes.
func (s *migrationService) MarkMigrated(userID string) (*models.EncryptionMigration, error) {
	migration, err := s.GetStatus(userID)
	if err != nil {
		return nil, err
	}
	if migration.Status == models.MigrationStatusCompleted {
		return migration, nil
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":       models.MigrationStatusCompleted,
		"completed_at": &now,
	}
	if err := s.db.Model(migration).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	migration.Status = models.MigrationStatusCompleted
	migration.CompletedAt = &now
	return migration, nil
}

func (s *migrationService) getForUpdate(tx *gorm.DB, userID string) (*models.EncryptionMigration, error) {
	var migration models.EncryptionMigration
	err := tx.Where("user_id = ?", userID).First(&migration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		migration = models.EncryptionMigration{
			UserID: userID,
			Status: models.MigrationStatusPending,
		}
		if err := tx.Create(&migration).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &migration, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &migration, nil
}

func fieldMigratable(entity, field string) bool {
	for _, col := range migratableColumns[entity] {
		if col == field {
			return true
		}
	}
	return false
}

package services

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/fieldcrypt"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
)

// minUnlockReasonLen is the shortest acceptable unlock reason. Validated
// before encryption so a rejected reason never leaves a partial entry.
const minUnlockReasonLen = 10

// AuditRecorder is the append-only write capability handed to the state
// machine. There is deliberately no update or delete counterpart anywhere in
// this package: immutability of the trail is enforced by the absence of the
// operation, not by a runtime check.
type AuditRecorder interface {
	Record(tx *gorm.DB, userID, recordID string, eventType models.AuditEventType, auditCtx AuditContext) (*models.AuditTrailEntry, error)
}

// AuditLedger combines the read and append capabilities for wiring.
type AuditLedger interface {
	AuditServicer
	AuditRecorder
}

// auditService records and reads the Nisab-Year record lifecycle trail.
type auditService struct {
	db     *gorm.DB
	cipher *fieldcrypt.Cipher
}

// NewAuditService creates the audit trail service.
func NewAuditService(db *gorm.DB, cipher *fieldcrypt.Cipher) AuditLedger {
	return &auditService{db: db, cipher: cipher}
}

// Record appends one lifecycle entry inside the caller's transaction, so the
// entry commits atomically with the record mutation that produced it. Each
// context field is encrypted independently.
func (s *auditService) Record(tx *gorm.DB, userID, recordID string, eventType models.AuditEventType, auditCtx AuditContext) (*models.AuditTrailEntry, error) {
	if eventType == models.AuditEventUnlocked && len(auditCtx.UnlockReason) < minUnlockReasonLen {
		return nil, apperrors.ErrReasonTooShort
	}

	entry := &models.AuditTrailEntry{
		RecordID:  recordID,
		UserID:    userID,
		EventType: eventType,
	}

	var err error
	if entry.UnlockReason, err = s.cipher.PrepareForWrite(auditCtx.UnlockReason); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if entry.ChangesSummary, err = s.cipher.PrepareForWrite(auditCtx.ChangesSummary); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if entry.BeforeState, err = s.encryptSnapshot(auditCtx.BeforeState); err != nil {
		return nil, err
	}
	if entry.AfterState, err = s.encryptSnapshot(auditCtx.AfterState); err != nil {
		return nil, err
	}

	if err := tx.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entry, nil
}

// encryptSnapshot serializes a record snapshot to JSON and encrypts it.
func (s *auditService) encryptSnapshot(state any) (string, error) {
	if state == nil {
		return "", nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("marshal audit snapshot: %w", err))
	}
	sealed, err := s.cipher.PrepareForWrite(string(data))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sealed, nil
}

// GetTrail returns all entries for a record, oldest first.
func (s *auditService) GetTrail(userID, recordID string, includeDecrypted bool) ([]models.AuditTrailEntry, error) {
	var entries []models.AuditTrailEntry
	if err := s.db.Where("user_id = ? AND record_id = ?", userID, recordID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.maybeDecrypt(entries, includeDecrypted)
}

// GetUserTrail returns a page of the user's entries across all records,
// newest first.
func (s *auditService) GetUserTrail(userID string, page pagination.PageRequest, includeDecrypted bool) (*pagination.PageResponse[models.AuditTrailEntry], error) {
	page.Defaults()

	base := s.db.Model(&models.AuditTrailEntry{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.AuditTrailEntry
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	entries, err := s.maybeDecrypt(entries, includeDecrypted)
	if err != nil {
		return nil, err
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetEventsByType returns a record's entries of one event type, oldest first.
func (s *auditService) GetEventsByType(userID, recordID string, eventType models.AuditEventType, includeDecrypted bool) ([]models.AuditTrailEntry, error) {
	var entries []models.AuditTrailEntry
	if err := s.db.Where("user_id = ? AND record_id = ? AND event_type = ?", userID, recordID, eventType).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.maybeDecrypt(entries, includeDecrypted)
}

// maybeDecrypt opens the encrypted context fields when the caller asked for
// them. Bulk listings skip decryption entirely.
func (s *auditService) maybeDecrypt(entries []models.AuditTrailEntry, includeDecrypted bool) ([]models.AuditTrailEntry, error) {
	if !includeDecrypted {
		return entries, nil
	}
	for i := range entries {
		var err error
		if entries[i].UnlockReason, err = s.cipher.PrepareForRead(entries[i].UnlockReason); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if entries[i].ChangesSummary, err = s.cipher.PrepareForRead(entries[i].ChangesSummary); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if entries[i].BeforeState, err = s.cipher.PrepareForRead(entries[i].BeforeState); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if entries[i].AfterState, err = s.cipher.PrepareForRead(entries[i].AfterState); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return entries, nil
}

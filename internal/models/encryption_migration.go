package models

import "time"

// MigrationStatus tracks an owner's progress moving sensitive fields from
// server-side encryption to client-supplied opaque ciphertext.
type MigrationStatus string

const (
	MigrationStatusPending    MigrationStatus = "pending"
	MigrationStatusInProgress MigrationStatus = "in_progress"
	MigrationStatusCompleted  MigrationStatus = "completed"
)

// EncryptionMigration is one row per user recording their client-side
// encryption migration state. Server-encrypted and client-opaque fields
// coexist indefinitely; this row only records intent and completion.
type EncryptionMigration struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Status      MigrationStatus `gorm:"not null;default:'pending'" json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

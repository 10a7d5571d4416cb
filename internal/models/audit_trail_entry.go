package models

import (
	"time"

	"zakatkeeper/internal/uuid"

	"gorm.io/gorm"
)

// AuditEventType identifies the lifecycle transition that produced an entry.
type AuditEventType string

const (
	AuditEventCreated     AuditEventType = "CREATED"
	AuditEventFinalized   AuditEventType = "FINALIZED"
	AuditEventUnlocked    AuditEventType = "UNLOCKED"
	AuditEventEdited      AuditEventType = "EDITED"
	AuditEventRefinalized AuditEventType = "REFINALIZED"
	AuditEventInterrupted AuditEventType = "INTERRUPTED"
)

// AuditTrailEntry records a single Nisab-Year record lifecycle transition.
// Entries are append-only time-series data — no Base embed, no UpdatedAt,
// and no code path that updates or deletes them.
type AuditTrailEntry struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID  string         `gorm:"type:uuid;not null;index" json:"record_id"`
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	EventType AuditEventType `gorm:"not null" json:"event_type"`
	CreatedAt time.Time      `json:"created_at"`

	// The following fields are stored encrypted and only decrypted when a
	// read explicitly asks for it.
	UnlockReason   string `json:"unlock_reason,omitempty"`
	ChangesSummary string `json:"changes_summary,omitempty"`
	BeforeState    string `json:"before_state,omitempty"`
	AfterState     string `json:"after_state,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new entries
func (e *AuditTrailEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New()
	}
	return nil
}

package models

import "time"

// RecordStatus represents the lifecycle state of a Nisab-Year record.
type RecordStatus string

const (
	RecordStatusDraft       RecordStatus = "draft"
	RecordStatusFinalized   RecordStatus = "finalized"
	RecordStatusUnlocked    RecordStatus = "unlocked"
	RecordStatusInterrupted RecordStatus = "interrupted"
)

// NisabBasis represents which metal the nisab threshold was derived from.
type NisabBasis string

const (
	NisabBasisGold   NisabBasis = "gold"
	NisabBasisSilver NisabBasis = "silver"
)

const (
	// HawlDays is the length of the lunar year holding period in days.
	HawlDays = 354

	// ZakatRateNumerator / ZakatRateDenominator express the 2.5% zakat rate
	// as an exact fraction over cent amounts.
	ZakatRateNumerator   = 25
	ZakatRateDenominator = 1000
)

// NisabYearRecord tracks one Hawl period for a user: from the day zakatable
// wealth first reached the nisab threshold until the lunar year completes or
// wealth drops below the locked threshold. Monetary amounts are in cents.
type NisabYearRecord struct {
	Base
	UserID             string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Status             RecordStatus `gorm:"not null;default:'draft'" json:"status"`
	HawlStartDate      time.Time    `gorm:"not null" json:"hawl_start_date"`
	HawlCompletionDate *time.Time   `json:"hawl_completion_date,omitempty"`
	NisabBasis         NisabBasis   `gorm:"not null" json:"nisab_basis"`

	// NisabThresholdAtStart is locked when the record is created and never
	// recomputed, even if metal prices move afterwards.
	NisabThresholdAtStart int64 `gorm:"type:bigint;not null" json:"nisab_threshold_at_start"`

	TotalWealth     int64  `gorm:"type:bigint;not null" json:"total_wealth"`
	ZakatableWealth int64  `gorm:"type:bigint;not null" json:"zakatable_wealth"`
	ZakatAmount     int64  `gorm:"type:bigint;not null" json:"zakat_amount"`
	Currency        string `gorm:"not null;default:'USD'" json:"currency"`
	UserNotes       string `json:"user_notes"`

	// Version supports optimistic concurrency: every committed transition
	// increments it, and stale writers are rejected.
	Version int `gorm:"not null;default:1" json:"version"`
}

// ExpectedZakat returns the zakat due on the given zakatable wealth in cents,
// rounded half up.
func ExpectedZakat(zakatableWealth int64) int64 {
	return (zakatableWealth*ZakatRateNumerator + ZakatRateDenominator/2) / ZakatRateDenominator
}

// IsTerminal reports whether the record can never become a DRAFT again.
func (r *NisabYearRecord) IsTerminal() bool {
	return r.Status == RecordStatusInterrupted
}

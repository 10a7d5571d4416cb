package models

import "time"

// RecipientCategory is one of the eight canonical classes of zakat-eligible
// recipients.
type RecipientCategory string

const (
	RecipientCategoryPoor          RecipientCategory = "poor"
	RecipientCategoryNeedy         RecipientCategory = "needy"
	RecipientCategoryAdministrator RecipientCategory = "administrator"
	RecipientCategoryConvert       RecipientCategory = "convert"
	RecipientCategoryCaptive       RecipientCategory = "captive"
	RecipientCategoryDebtor        RecipientCategory = "debtor"
	RecipientCategoryCause         RecipientCategory = "cause"
	RecipientCategoryWayfarer      RecipientCategory = "wayfarer"
)

// Valid reports whether the category is one of the eight canonical classes.
func (c RecipientCategory) Valid() bool {
	switch c {
	case RecipientCategoryPoor, RecipientCategoryNeedy, RecipientCategoryAdministrator,
		RecipientCategoryConvert, RecipientCategoryCaptive, RecipientCategoryDebtor,
		RecipientCategoryCause, RecipientCategoryWayfarer:
		return true
	}
	return false
}

// PaymentMethod represents how a zakat payment was made.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodCrypto       PaymentMethod = "crypto"
	PaymentMethodOther        PaymentMethod = "other"
)

// Valid reports whether the method is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck,
		PaymentMethodOnline, PaymentMethodCrypto, PaymentMethodOther:
		return true
	}
	return false
}

// PaymentRecord represents a zakat disbursement, optionally linked to the
// Nisab-Year record whose liability it pays down. Amounts are in cents.
// RecipientName and Notes are stored under field-encryption arbitration and
// may hold server-encrypted envelopes or client-opaque ciphertext.
type PaymentRecord struct {
	Base
	UserID            string            `gorm:"type:uuid;not null;index" json:"user_id"`
	RecordID          *string           `gorm:"type:uuid" json:"record_id,omitempty"`
	Amount            int64             `gorm:"type:bigint;not null" json:"amount"`
	Currency          string            `gorm:"not null;default:'USD'" json:"currency"`
	RecipientName     string            `json:"recipient_name"`
	RecipientCategory RecipientCategory `gorm:"not null" json:"recipient_category"`
	PaymentMethod     PaymentMethod     `gorm:"not null" json:"payment_method"`
	PaymentDate       time.Time         `gorm:"not null" json:"payment_date"`
	ReceiptReference  string            `json:"receipt_reference"`
	Notes             string            `json:"notes"`

	// FormatMarker records which encryption regime the sensitive fields were
	// stored under ("server" or "client") for migration bookkeeping.
	FormatMarker string `gorm:"size:16" json:"encryption_format_marker"`
}

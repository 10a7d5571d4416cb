package services

import (
	"context"
	"time"

	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AssetServicer defines the contract for asset-related business logic.
// Every mutation re-evaluates the owner's Hawl status.
type AssetServicer interface {
	CreateAsset(ctx context.Context, userID string, input AssetInput) (*models.Asset, error)
	GetUserAssets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error)
	GetAssetByID(userID, assetID string) (*models.Asset, error)
	UpdateAsset(ctx context.Context, userID, assetID string, input AssetInput) (*models.Asset, error)
	DeleteAsset(ctx context.Context, userID, assetID string) error
	ListEligibleAssets(userID string) ([]models.Asset, error)
}

// AssetInput holds the caller-supplied fields of an asset.
type AssetInput struct {
	Name                string
	Category            models.AssetCategory
	Value               int64
	Currency            string
	AcquisitionDate     time.Time
	ZakatEligible       *bool
	IsPassiveInvestment bool
	CalculationModifier *float64
}

// WealthSummary is the output of aggregating a user's assets. Amounts are in
// cents.
type WealthSummary struct {
	TotalWealth     int64 `json:"total_wealth"`
	ZakatableWealth int64 `json:"zakatable_wealth"`
}

// WealthAggregator sums a user's assets into a zakatable-wealth figure.
type WealthAggregator interface {
	Aggregate(assets []models.Asset) WealthSummary
	AggregateForUser(userID string) (WealthSummary, error)
}

// Threshold is a resolved nisab threshold with the prices that produced it.
type Threshold struct {
	Basis           models.NisabBasis `json:"basis"`
	Amount          int64             `json:"amount"`
	GoldGramPrice   int64             `json:"gold_gram_price"`
	SilverGramPrice int64             `json:"silver_gram_price"`
	GoldThreshold   int64             `json:"gold_threshold"`
	SilverThreshold int64             `json:"silver_threshold"`
	Currency        string            `json:"currency"`
}

// NisabServicer resolves the nisab threshold from current metal prices.
type NisabServicer interface {
	ResolveThreshold(ctx context.Context) (*Threshold, error)
}

// HawlStatus is the externally exposed snapshot of a user's current Hawl.
type HawlStatus struct {
	Record          *models.NisabYearRecord `json:"record,omitempty"`
	TotalWealth     int64                   `json:"total_wealth"`
	ZakatableWealth int64                   `json:"zakatable_wealth"`
	Threshold       *Threshold              `json:"threshold,omitempty"`
	DaysRemaining   int                     `json:"days_remaining"`
}

// RecordPatch holds the editable fields of an UNLOCKED record. Nil fields
// are left unchanged.
type RecordPatch struct {
	TotalWealth     *int64
	ZakatableWealth *int64
	ZakatAmount     *int64
	UserNotes       *string
}

// HawlServicer owns the Nisab-Year record lifecycle.
type HawlServicer interface {
	// EvaluateHawl aggregates current wealth and advances the owner's Hawl
	// state: it opens a DRAFT when wealth first reaches the threshold,
	// interrupts a DRAFT whose wealth fell below the locked threshold, and
	// otherwise refreshes the DRAFT's wealth figures.
	EvaluateHawl(ctx context.Context, userID string) (*HawlStatus, error)
	FinalizeRecord(ctx context.Context, userID, recordID string, overrideEarly bool) (*models.NisabYearRecord, error)
	UnlockRecord(ctx context.Context, userID, recordID, reason string) (*models.NisabYearRecord, error)
	EditRecord(ctx context.Context, userID, recordID string, patch RecordPatch) (*models.NisabYearRecord, error)
	GetRecordByID(userID, recordID string) (*models.NisabYearRecord, error)
	GetUserRecords(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.NisabYearRecord], error)
}

// AuditContext carries the optional sensitive context of a lifecycle event.
// All fields are encrypted independently before persistence.
type AuditContext struct {
	UnlockReason   string
	ChangesSummary string
	BeforeState    any
	AfterState     any
}

// AuditServicer records and reads the append-only lifecycle trail.
type AuditServicer interface {
	GetTrail(userID, recordID string, includeDecrypted bool) ([]models.AuditTrailEntry, error)
	GetUserTrail(userID string, page pagination.PageRequest, includeDecrypted bool) (*pagination.PageResponse[models.AuditTrailEntry], error)
	GetEventsByType(userID, recordID string, eventType models.AuditEventType, includeDecrypted bool) ([]models.AuditTrailEntry, error)
}

// PaymentFilter holds optional filter parameters for listing payments.
type PaymentFilter struct {
	FromDate          *time.Time
	ToDate            *time.Time
	RecordID          *string
	RecipientCategory *models.RecipientCategory
	MinAmount         *int64
	MaxAmount         *int64
}

// PaymentInput holds the caller-supplied fields of a payment.
type PaymentInput struct {
	RecordID          *string
	Amount            int64
	Currency          string
	RecipientName     string
	RecipientCategory models.RecipientCategory
	PaymentMethod     models.PaymentMethod
	PaymentDate       time.Time
	ReceiptReference  string
	Notes             string
}

// PaymentServicer defines the contract for zakat payment records.
type PaymentServicer interface {
	CreatePayment(userID string, input PaymentInput) (*models.PaymentRecord, error)
	GetPaymentByID(userID, paymentID string) (*models.PaymentRecord, error)
	UpdatePayment(userID, paymentID string, input PaymentInput) (*models.PaymentRecord, error)
	DeletePayment(userID, paymentID string) error
	ListPayments(userID string, page pagination.PageRequest, filter PaymentFilter) (*pagination.PageResponse[models.PaymentRecord], error)
}

// MigratableField references one server-encrypted field value a client may
// replace with its own ciphertext.
type MigratableField struct {
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
	Field    string `json:"field"`
}

// OpaqueReplacement is a client-submitted ciphertext for one field.
type OpaqueReplacement struct {
	Entity   string `json:"entity" binding:"required"`
	EntityID string `json:"entity_id" binding:"required"`
	Field    string `json:"field" binding:"required"`
	Value    string `json:"value" binding:"required"`
}

// MigrationServicer drives the move from server-side encryption to
// client-opaque ciphertext. Mixed formats coexist indefinitely; the arbiter
// keeps format detection correct throughout.
type MigrationServicer interface {
	GetStatus(userID string) (*models.EncryptionMigration, error)
	ListMigratableFields(userID string) ([]MigratableField, error)
	SubmitReplacements(userID string, replacements []OpaqueReplacement) (int, error)
	MarkMigrated(userID string) (*models.EncryptionMigration, error)
}

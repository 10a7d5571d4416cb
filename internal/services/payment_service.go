package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/fieldcrypt"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
)

// paymentService handles zakat payment bookkeeping.
type paymentService struct {
	db     *gorm.DB
	cipher *fieldcrypt.Cipher
}

// NewPaymentService creates a new PaymentServicer.
func NewPaymentService(db *gorm.DB, cipher *fieldcrypt.Cipher) PaymentServicer {
	return &paymentService{db: db, cipher: cipher}
}

// CreatePayment records a zakat disbursement. Recipient name and notes are
// stored encrypted; client-opaque ciphertext passes through byte-for-byte
// and the stored format marker records which path each payment took.
func (s *paymentService) CreatePayment(userID string, input PaymentInput) (*models.PaymentRecord, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	if input.RecordID != nil {
		if err := s.verifyRecordOwnership(userID, *input.RecordID); err != nil {
			return nil, err
		}
	}

	if input.PaymentDate.IsZero() {
		input.PaymentDate = time.Now().UTC()
	}

	payment := &models.PaymentRecord{
		UserID:            userID,
		RecordID:          input.RecordID,
		Amount:            input.Amount,
		Currency:          input.Currency,
		RecipientCategory: input.RecipientCategory,
		PaymentMethod:     input.PaymentMethod,
		PaymentDate:       input.PaymentDate,
		ReceiptReference:  input.ReceiptReference,
		FormatMarker:      fieldcrypt.Detect(input.RecipientName).String(),
	}

	var err error
	if payment.RecipientName, err = s.cipher.PrepareForWrite(input.RecipientName); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if payment.Notes, err = s.cipher.PrepareForWrite(input.Notes); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Create(payment).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.decrypt(payment)
}

// GetPaymentByID retrieves a payment by ID for a specific user.
func (s *paymentService) GetPaymentByID(userID, paymentID string) (*models.PaymentRecord, error) {
	payment, err := s.load(userID, paymentID)
	if err != nil {
		return nil, err
	}
	return s.decrypt(payment)
}

// UpdatePayment replaces the mutable fields of an existing payment.
func (s *paymentService) UpdatePayment(userID, paymentID string, input PaymentInput) (*models.PaymentRecord, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	payment, err := s.load(userID, paymentID)
	if err != nil {
		return nil, err
	}

	if input.RecordID != nil {
		if err := s.verifyRecordOwnership(userID, *input.RecordID); err != nil {
			return nil, err
		}
	}
	if input.PaymentDate.IsZero() {
		input.PaymentDate = payment.PaymentDate
	}

	recipientName, err := s.cipher.PrepareForWrite(input.RecipientName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	notes, err := s.cipher.PrepareForWrite(input.Notes)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]any{
		"record_id":          input.RecordID,
		"amount":             input.Amount,
		"currency":           input.Currency,
		"recipient_name":     recipientName,
		"recipient_category": input.RecipientCategory,
		"payment_method":     input.PaymentMethod,
		"payment_date":       input.PaymentDate,
		"receipt_reference":  input.ReceiptReference,
		"notes":              notes,
		"format_marker":      fieldcrypt.Detect(input.RecipientName).String(),
	}
	if err := s.db.Model(payment).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetPaymentByID(userID, paymentID)
}

// DeletePayment removes a payment permanently.
func (s *paymentService) DeletePayment(userID, paymentID string) error {
	payment, err := s.load(userID, paymentID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(payment).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ListPayments retrieves a paginated, filtered list of the user's payments,
// newest first.
func (s *paymentService) ListPayments(userID string, page pagination.PageRequest, filter PaymentFilter) (*pagination.PageResponse[models.PaymentRecord], error) {
	page.Defaults()

	base := s.db.Model(&models.PaymentRecord{}).Where("user_id = ?", userID)
	base = applyPaymentFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var payments []models.PaymentRecord
	if err := base.Order("payment_date DESC").Scopes(pagination.Paginate(page)).Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range payments {
		if _, err := s.decrypt(&payments[i]); err != nil {
			return nil, err
		}
	}

	result := pagination.NewPageResponse(payments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyPaymentFilters(q *gorm.DB, f PaymentFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("payment_date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("payment_date <= ?", *f.ToDate)
	}
	if f.RecordID != nil {
		q = q.Where("record_id = ?", *f.RecordID)
	}
	if f.RecipientCategory != nil {
		q = q.Where("recipient_category = ?", *f.RecipientCategory)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	return q
}

func (s *paymentService) validateInput(input PaymentInput) error {
	if input.Amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !input.RecipientCategory.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid recipient category")
	}
	if !input.PaymentMethod.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid payment method")
	}
	return nil
}

// verifyRecordOwnership ensures a linked Nisab-Year record exists and
// belongs to the paying user.
func (s *paymentService) verifyRecordOwnership(userID, recordID string) error {
	var count int64
	if err := s.db.Model(&models.NisabYearRecord{}).
		Where("id = ? AND user_id = ?", recordID, userID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrRecordNotFound
	}
	return nil
}

func (s *paymentService) load(userID, paymentID string) (*models.PaymentRecord, error) {
	var payment models.PaymentRecord
	if err := s.db.Where("id = ? AND user_id = ?", paymentID, userID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &payment, nil
}

// decrypt opens server-encrypted fields in place. Client-opaque values come
// back unchanged; the format marker tells the client which is which.
func (s *paymentService) decrypt(payment *models.PaymentRecord) (*models.PaymentRecord, error) {
	var err error
	if payment.RecipientName, err = s.cipher.PrepareForRead(payment.RecipientName); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if payment.Notes, err = s.cipher.PrepareForRead(payment.Notes); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return payment, nil
}

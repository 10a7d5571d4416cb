package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
	"zakatkeeper/internal/services"
)

// PaymentHandler handles zakat payment requests
type PaymentHandler struct {
	paymentService services.PaymentServicer
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService services.PaymentServicer) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PaymentRequest represents the payment create/update payload
type PaymentRequest struct {
	RecordID          *string   `json:"record_id" binding:"omitempty,uuid"`
	Amount            int64     `json:"amount" binding:"required,gt=0"`
	Currency          string    `json:"currency" binding:"omitempty,iso4217"`
	RecipientName     string    `json:"recipient_name" binding:"required,max=1000"`
	RecipientCategory string    `json:"recipient_category" binding:"required,recipient_category"`
	PaymentMethod     string    `json:"payment_method" binding:"required,payment_method"`
	PaymentDate       time.Time `json:"payment_date"`
	ReceiptReference  string    `json:"receipt_reference" binding:"max=255"`
	Notes             string    `json:"notes" binding:"max=5000"`
}

func (r *PaymentRequest) toInput() services.PaymentInput {
	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}
	return services.PaymentInput{
		RecordID:          r.RecordID,
		Amount:            r.Amount,
		Currency:          currency,
		RecipientName:     r.RecipientName,
		RecipientCategory: models.RecipientCategory(r.RecipientCategory),
		PaymentMethod:     models.PaymentMethod(r.PaymentMethod),
		PaymentDate:       r.PaymentDate,
		ReceiptReference:  r.ReceiptReference,
		Notes:             r.Notes,
	}
}

// paymentListQuery binds the list endpoint's filter parameters.
type paymentListQuery struct {
	pagination.PageRequest
	From              *time.Time `form:"from" time_format:"2006-01-02"`
	To                *time.Time `form:"to" time_format:"2006-01-02"`
	RecordID          *string    `form:"record_id" binding:"omitempty,uuid"`
	RecipientCategory *string    `form:"recipient_category" binding:"omitempty,recipient_category"`
	MinAmount         *int64     `form:"min_amount" binding:"omitempty,min=0"`
	MaxAmount         *int64     `form:"max_amount" binding:"omitempty,min=0"`
}

// CreatePayment records a zakat payment
// @Summary     Record a payment
// @Description Record a zakat disbursement; sensitive fields are stored encrypted
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PaymentRequest true "Payment data"
// @Success     201 {object} models.PaymentRecord
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Linked record not found"
// @Router      /payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	payment, err := h.paymentService.CreatePayment(userID, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetPayments lists the user's payments
// @Summary     List payments
// @Description Paginated, filterable list of the user's zakat payments
// @Tags        payments
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       from query string false "Earliest payment date (YYYY-MM-DD)"
// @Param       to query string false "Latest payment date (YYYY-MM-DD)"
// @Param       record_id query string false "Linked record ID"
// @Param       recipient_category query string false "Recipient category"
// @Param       min_amount query int false "Minimum amount in cents"
// @Param       max_amount query int false "Maximum amount in cents"
// @Success     200 {object} pagination.PageResponse[models.PaymentRecord]
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /payments [get]
func (h *PaymentHandler) GetPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query paymentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.PaymentFilter{
		FromDate:  query.From,
		ToDate:    query.To,
		RecordID:  query.RecordID,
		MinAmount: query.MinAmount,
		MaxAmount: query.MaxAmount,
	}
	if query.RecipientCategory != nil {
		category := models.RecipientCategory(*query.RecipientCategory)
		filter.RecipientCategory = &category
	}

	result, err := h.paymentService.ListPayments(userID, query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPayment returns one payment
// @Summary     Get a payment
// @Tags        payments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment ID"
// @Success     200 {object} models.PaymentRecord
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	payment, err := h.paymentService.GetPaymentByID(userID, paymentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// UpdatePayment updates a payment
// @Summary     Update a payment
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment ID"
// @Param       request body PaymentRequest true "Payment data"
// @Success     200 {object} models.PaymentRecord
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /payments/{id} [put]
func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	payment, err := h.paymentService.UpdatePayment(userID, paymentID, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// DeletePayment removes a payment
// @Summary     Delete a payment
// @Tags        payments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment ID"
// @Success     204 "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /payments/{id} [delete]
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.paymentService.DeletePayment(userID, paymentID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
	"zakatkeeper/internal/services"
)

type mockPaymentService struct {
	createPaymentFn  func(userID string, input services.PaymentInput) (*models.PaymentRecord, error)
	getPaymentByIDFn func(userID, paymentID string) (*models.PaymentRecord, error)
	updatePaymentFn  func(userID, paymentID string, input services.PaymentInput) (*models.PaymentRecord, error)
	deletePaymentFn  func(userID, paymentID string) error
	listPaymentsFn   func(userID string, page pagination.PageRequest, filter services.PaymentFilter) (*pagination.PageResponse[models.PaymentRecord], error)
}

func (m *mockPaymentService) CreatePayment(userID string, input services.PaymentInput) (*models.PaymentRecord, error) {
	if m.createPaymentFn != nil {
		return m.createPaymentFn(userID, input)
	}
	return &models.PaymentRecord{}, nil
}

func (m *mockPaymentService) GetPaymentByID(userID, paymentID string) (*models.PaymentRecord, error) {
	if m.getPaymentByIDFn != nil {
		return m.getPaymentByIDFn(userID, paymentID)
	}
	return &models.PaymentRecord{}, nil
}

func (m *mockPaymentService) UpdatePayment(userID, paymentID string, input services.PaymentInput) (*models.PaymentRecord, error) {
	if m.updatePaymentFn != nil {
		return m.updatePaymentFn(userID, paymentID, input)
	}
	return &models.PaymentRecord{}, nil
}

func (m *mockPaymentService) DeletePayment(userID, paymentID string) error {
	if m.deletePaymentFn != nil {
		return m.deletePaymentFn(userID, paymentID)
	}
	return nil
}

func (m *mockPaymentService) ListPayments(userID string, page pagination.PageRequest, filter services.PaymentFilter) (*pagination.PageResponse[models.PaymentRecord], error) {
	if m.listPaymentsFn != nil {
		return m.listPaymentsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.PaymentRecord{}, 1, 20, 0)
	return &resp, nil
}

const testPaymentID = "01912345-0000-7000-8000-00000000000c"

func setupPaymentRouter(svc services.PaymentServicer) *gin.Engine {
	handler := NewPaymentHandler(svc)
	r := gin.New()
	auth := injectUserID(testUserID)
	r.POST("/payments", auth, handler.CreatePayment)
	r.GET("/payments", auth, handler.GetPayments)
	r.GET("/payments/:id", auth, handler.GetPayment)
	r.PUT("/payments/:id", auth, handler.UpdatePayment)
	r.DELETE("/payments/:id", auth, handler.DeletePayment)
	return r
}

func TestPaymentHandler_CreatePayment(t *testing.T) {
	t.Run("returns 201 and defaults the currency", func(t *testing.T) {
		var gotInput services.PaymentInput
		svc := &mockPaymentService{
			createPaymentFn: func(userID string, input services.PaymentInput) (*models.PaymentRecord, error) {
				if userID != testUserID {
					t.Errorf("expected user %s, got %s", testUserID, userID)
				}
				gotInput = input
				return &models.PaymentRecord{
					Base:          models.Base{ID: testPaymentID},
					Amount:        input.Amount,
					RecipientName: input.RecipientName,
					FormatMarker:  "plaintext",
				}, nil
			},
		}
		r := setupPaymentRouter(svc)

		rec := doRequest(r, "POST", "/payments",
			`{"amount":18750,"recipient_name":"Local food bank","recipient_category":"poor","payment_method":"bank_transfer"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotInput.Currency != "USD" {
			t.Errorf("expected default currency USD, got %q", gotInput.Currency)
		}
		if gotInput.RecipientCategory != models.RecipientCategoryPoor {
			t.Errorf("unexpected category forwarded: %q", gotInput.RecipientCategory)
		}
	})

	t.Run("returns 400 on unknown recipient category", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequest(r, "POST", "/payments",
			`{"amount":100,"recipient_name":"X","recipient_category":"friends","payment_method":"cash"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on zero amount", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequest(r, "POST", "/payments",
			`{"amount":0,"recipient_name":"X","recipient_category":"poor","payment_method":"cash"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when the linked record is not owned", func(t *testing.T) {
		svc := &mockPaymentService{
			createPaymentFn: func(_ string, _ services.PaymentInput) (*models.PaymentRecord, error) {
				return nil, apperrors.ErrRecordNotFound
			},
		}
		r := setupPaymentRouter(svc)

		rec := doRequest(r, "POST", "/payments",
			`{"record_id":"01912345-0000-7000-8000-00000000000b","amount":100,"recipient_name":"X","recipient_category":"poor","payment_method":"cash"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "RECORD_NOT_FOUND")
	})
}

func TestPaymentHandler_GetPayments(t *testing.T) {
	t.Run("returns 200 and forwards the filters", func(t *testing.T) {
		var gotFilter services.PaymentFilter
		svc := &mockPaymentService{
			listPaymentsFn: func(_ string, _ pagination.PageRequest, filter services.PaymentFilter) (*pagination.PageResponse[models.PaymentRecord], error) {
				gotFilter = filter
				resp := pagination.NewPageResponse([]models.PaymentRecord{{Amount: 5000}}, 1, 20, 1)
				return &resp, nil
			},
		}
		r := setupPaymentRouter(svc)

		rec := doRequest(r, "GET",
			"/payments?from=2026-01-01&to=2026-06-30&recipient_category=debtor&min_amount=1000", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotFilter.FromDate == nil || gotFilter.ToDate == nil {
			t.Error("expected date bounds to be forwarded")
		}
		if gotFilter.RecipientCategory == nil || *gotFilter.RecipientCategory != models.RecipientCategoryDebtor {
			t.Error("expected recipient category filter to be forwarded")
		}
		if gotFilter.MinAmount == nil || *gotFilter.MinAmount != 1000 {
			t.Error("expected min_amount filter to be forwarded")
		}
	})

	t.Run("returns 400 on a non-UUID record filter", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequest(r, "GET", "/payments?record_id=not-a-uuid", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestPaymentHandler_GetPayment(t *testing.T) {
	t.Run("returns 200 with the payment", func(t *testing.T) {
		svc := &mockPaymentService{
			getPaymentByIDFn: func(_, paymentID string) (*models.PaymentRecord, error) {
				return &models.PaymentRecord{
					Base:          models.Base{ID: paymentID},
					RecipientName: "Local food bank",
					FormatMarker:  "plaintext",
				}, nil
			},
		}
		r := setupPaymentRouter(svc)

		rec := doRequest(r, "GET", "/payments/"+testPaymentID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["recipient_name"] != "Local food bank" {
			t.Error("expected recipient name in response")
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockPaymentService{
			getPaymentByIDFn: func(_, _ string) (*models.PaymentRecord, error) {
				return nil, apperrors.ErrPaymentNotFound
			},
		}
		r := setupPaymentRouter(svc)

		rec := doRequest(r, "GET", "/payments/"+testPaymentID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PAYMENT_NOT_FOUND")
	})
}

func TestPaymentHandler_DeletePayment(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequest(r, "DELETE", "/payments/"+testPaymentID, "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockPaymentService{
			deletePaymentFn: func(_, _ string) error {
				return apperrors.ErrPaymentNotFound
			},
		}
		r := setupPaymentRouter(svc)

		rec := doRequest(r, "DELETE", "/payments/"+testPaymentID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

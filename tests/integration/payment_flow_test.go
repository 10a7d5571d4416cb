package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"zakatkeeper/internal/fieldcrypt"
	"zakatkeeper/internal/models"
)

func TestPaymentFlow_EncryptAtRestDecryptOnRead(t *testing.T) {
	app := setupApp(t)
	token, userID := app.registerUser(t, "pay-crypt@test.com", "password123")

	body := `{"amount":18750,"recipient_name":"Hope Community Kitchen","recipient_category":"poor","payment_method":"bank_transfer","notes":"Ramadan distribution"}`
	rec := app.request("POST", "/api/v1/payments", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment failed: %d %s", rec.Code, rec.Body.String())
	}
	created := parseJSON(t, rec)
	if created["recipient_name"] != "Hope Community Kitchen" {
		t.Errorf("expected decrypted name in response, got %v", created["recipient_name"])
	}
	if created["encryption_format_marker"] != "plaintext" {
		t.Errorf("expected plaintext submission marker, got %v", created["encryption_format_marker"])
	}

	// At rest the sensitive fields carry the server envelope.
	var stored models.PaymentRecord
	if err := app.DB.First(&stored, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("failed to load stored payment: %v", err)
	}
	if !strings.HasPrefix(stored.RecipientName, fieldcrypt.ServerMarker) {
		t.Errorf("expected server envelope at rest, got %q", stored.RecipientName)
	}
	if !strings.HasPrefix(stored.Notes, fieldcrypt.ServerMarker) {
		t.Errorf("expected encrypted notes at rest, got %q", stored.Notes)
	}

	// Reads return the plaintext again.
	rec = app.request("GET", "/api/v1/payments/"+created["id"].(string), "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("get payment failed: %d %s", rec.Code, rec.Body.String())
	}
	got := parseJSON(t, rec)
	if got["recipient_name"] != "Hope Community Kitchen" || got["notes"] != "Ramadan distribution" {
		t.Errorf("expected decrypted fields on read, got %v / %v", got["recipient_name"], got["notes"])
	}
}

func TestPaymentFlow_ClientCiphertextPassesThrough(t *testing.T) {
	app := setupApp(t)
	token, userID := app.registerUser(t, "pay-opaque@test.com", "password123")

	opaque := fieldcrypt.ClientMarker + "AAECAwQFBgcICQ=="
	body := fmt.Sprintf(`{"amount":5000,"recipient_name":%q,"recipient_category":"debtor","payment_method":"cash"}`, opaque)
	rec := app.request("POST", "/api/v1/payments", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment failed: %d %s", rec.Code, rec.Body.String())
	}
	created := parseJSON(t, rec)
	if created["recipient_name"] != opaque {
		t.Errorf("expected opaque ciphertext returned byte-for-byte, got %v", created["recipient_name"])
	}
	if created["encryption_format_marker"] != "client" {
		t.Errorf("expected client marker, got %v", created["encryption_format_marker"])
	}

	// Stored byte-for-byte, never re-wrapped.
	var stored models.PaymentRecord
	if err := app.DB.First(&stored, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("failed to load stored payment: %v", err)
	}
	if stored.RecipientName != opaque {
		t.Errorf("expected stored opaque value unchanged, got %q", stored.RecipientName)
	}
}

func TestPaymentFlow_LinkedRecordOwnership(t *testing.T) {
	app := setupApp(t)
	ownerToken, _ := app.registerUser(t, "pay-owner@test.com", "password123")
	otherToken, _ := app.registerUser(t, "pay-other@test.com", "password123")

	app.createAsset(t, ownerToken, "Savings", 750000)
	status := app.zakatStatus(t, ownerToken)
	recordID := status["record"].(map[string]interface{})["id"].(string)

	// Linking a payment to someone else's record fails.
	body := fmt.Sprintf(`{"record_id":%q,"amount":1000,"recipient_name":"X","recipient_category":"poor","payment_method":"cash"}`, recordID)
	rec := app.request("POST", "/api/v1/payments", body, otherToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 linking foreign record, got %d: %s", rec.Code, rec.Body.String())
	}

	// The owner can link it.
	rec = app.request("POST", "/api/v1/payments", body, ownerToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for owner, got %d: %s", rec.Code, rec.Body.String())
	}

	// Filtering by record returns it.
	rec = app.request("GET", "/api/v1/payments?record_id="+recordID, "", ownerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("list payments failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["total_items"].(float64) != 1 {
		t.Error("expected 1 payment linked to the record")
	}
}

func TestMigrationFlow_FullLifecycle(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "migration@test.com", "password123")

	// A payment submitted as plaintext ends up server-encrypted.
	body := `{"amount":18750,"recipient_name":"Hope Community Kitchen","recipient_category":"poor","payment_method":"bank_transfer","notes":"Ramadan distribution"}`
	rec := app.request("POST", "/api/v1/payments", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment failed: %d %s", rec.Code, rec.Body.String())
	}
	paymentID := parseJSON(t, rec)["id"].(string)

	// Status starts pending.
	rec = app.request("GET", "/api/v1/encryption/migration", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["status"] != "pending" {
		t.Error("expected pending status on first access")
	}

	// Both server-encrypted fields are offered for re-encryption.
	rec = app.request("GET", "/api/v1/encryption/migration/fields", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list fields failed: %d %s", rec.Code, rec.Body.String())
	}
	fields := parseJSON(t, rec)["fields"].([]interface{})
	if len(fields) != 2 {
		t.Fatalf("expected 2 migratable fields, got %d", len(fields))
	}

	// A replacement without the client marker rejects the batch.
	badBody := fmt.Sprintf(`{"replacements":[{"entity":"payment_record","entity_id":%q,"field":"recipient_name","value":"still plaintext"}]}`, paymentID)
	rec = app.request("POST", "/api/v1/encryption/migration/replacements", badBody, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for plaintext value, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "NOT_CLIENT_CIPHERTEXT" {
		t.Errorf("expected NOT_CLIENT_CIPHERTEXT, got %v", errObj["code"])
	}

	// Valid client ciphertexts replace both fields.
	nameCipher := fieldcrypt.ClientMarker + "bmFtZS1jaXBoZXJ0ZXh0"
	notesCipher := fieldcrypt.ClientMarker + "bm90ZXMtY2lwaGVydGV4dA=="
	goodBody := fmt.Sprintf(`{"replacements":[
		{"entity":"payment_record","entity_id":%q,"field":"recipient_name","value":%q},
		{"entity":"payment_record","entity_id":%q,"field":"notes","value":%q}
	]}`, paymentID, nameCipher, paymentID, notesCipher)
	rec = app.request("POST", "/api/v1/encryption/migration/replacements", goodBody, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit replacements failed: %d %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["replaced"].(float64) != 2 {
		t.Error("expected 2 fields replaced")
	}

	// The payment now returns the opaque ciphertext untouched.
	rec = app.request("GET", "/api/v1/payments/"+paymentID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("get payment failed: %d %s", rec.Code, rec.Body.String())
	}
	payment := parseJSON(t, rec)
	if payment["recipient_name"] != nameCipher || payment["notes"] != notesCipher {
		t.Errorf("expected opaque ciphertexts, got %v / %v", payment["recipient_name"], payment["notes"])
	}
	if payment["encryption_format_marker"] != "client" {
		t.Errorf("expected client marker after migration, got %v", payment["encryption_format_marker"])
	}

	// Nothing left to migrate; completing the migration sticks.
	rec = app.request("GET", "/api/v1/encryption/migration/fields", "", token)
	if len(parseJSON(t, rec)["fields"].([]interface{})) != 0 {
		t.Error("expected no migratable fields left")
	}

	rec = app.request("POST", "/api/v1/encryption/migration/complete", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["status"] != "completed" {
		t.Errorf("expected completed, got %v", result["status"])
	}
	if result["completed_at"] == nil {
		t.Error("expected completed_at to be set")
	}
}

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"zakatkeeper/internal/fieldcrypt"
	"zakatkeeper/internal/handlers"
	"zakatkeeper/internal/logger"
	"zakatkeeper/internal/middleware"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/oracle"
	"zakatkeeper/internal/services"
	"zakatkeeper/internal/validator"
)

// Static development prices: gold 7000 cents/g, silver 800 cents/g. The
// silver threshold (612.36g * 800 = 489888) governs under the "lower" policy.
const (
	testGoldGramPrice   = 7000
	testSilverGramPrice = 800
	testSilverThreshold = 489888
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Oracle *oracle.StaticProvider
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Asset{},
		&models.NisabYearRecord{},
		&models.AuditTrailEntry{},
		&models.PaymentRecord{},
		&models.EncryptionMigration{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	cipher, err := fieldcrypt.New("integration-test-key")
	if err != nil {
		t.Fatalf("failed to initialize field encryption: %v", err)
	}

	priceProvider := &oracle.StaticProvider{Prices: map[oracle.Metal]int64{
		oracle.MetalGold:   testGoldGramPrice,
		oracle.MetalSilver: testSilverGramPrice,
	}}

	// Services
	userService := services.NewUserService(db)
	wealthService := services.NewWealthService(db)
	nisabService := services.NewNisabService(priceProvider, services.BasisPolicyLower, "USD")
	auditService := services.NewAuditService(db, cipher)
	hawlService := services.NewHawlService(db, wealthService, nisabService, auditService)
	assetService := services.NewAssetService(db, hawlService)
	paymentService := services.NewPaymentService(db, cipher)
	migrationService := services.NewMigrationService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	assetHandler := handlers.NewAssetHandler(assetService)
	recordHandler := handlers.NewRecordHandler(hawlService, auditService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	migrationHandler := handlers.NewMigrationHandler(migrationService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	assets := protected.Group("/assets")
	assets.POST("", assetHandler.CreateAsset)
	assets.GET("", assetHandler.GetAssets)
	assets.GET("/:id", assetHandler.GetAsset)
	assets.PUT("/:id", assetHandler.UpdateAsset)
	assets.DELETE("/:id", assetHandler.DeleteAsset)

	protected.GET("/zakat/status", recordHandler.GetZakatStatus)

	records := protected.Group("/records")
	records.GET("", recordHandler.GetRecords)
	records.GET("/:id", recordHandler.GetRecord)
	records.PATCH("/:id", recordHandler.EditRecord)
	records.POST("/:id/finalize", recordHandler.FinalizeRecord)
	records.POST("/:id/unlock", recordHandler.UnlockRecord)
	records.GET("/:id/audit-trail", recordHandler.GetAuditTrail)

	payments := protected.Group("/payments")
	payments.POST("", paymentHandler.CreatePayment)
	payments.GET("", paymentHandler.GetPayments)
	payments.GET("/:id", paymentHandler.GetPayment)
	payments.PUT("/:id", paymentHandler.UpdatePayment)
	payments.DELETE("/:id", paymentHandler.DeletePayment)

	migration := protected.Group("/encryption/migration")
	migration.GET("", migrationHandler.GetStatus)
	migration.GET("/fields", migrationHandler.ListMigratableFields)
	migration.POST("/replacements", migrationHandler.SubmitReplacements)
	migration.POST("/complete", migrationHandler.Complete)

	return &testApp{DB: db, Oracle: priceProvider, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), user["id"].(string)
}

// createAsset creates a cash asset and returns its ID.
func (app *testApp) createAsset(t *testing.T, token, name string, value int64) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"category":"cash","value":%d,"currency":"USD"}`, name, value)
	rec := app.request("POST", "/api/v1/assets", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create asset failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["id"].(string)
}

// zakatStatus evaluates the user's Hawl and returns the status payload.
func (app *testApp) zakatStatus(t *testing.T, token string) map[string]interface{} {
	t.Helper()
	rec := app.request("GET", "/api/v1/zakat/status", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("zakat status failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}

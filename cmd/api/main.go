package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"zakatkeeper/internal/config"
	"zakatkeeper/internal/database"
	"zakatkeeper/internal/fieldcrypt"
	"zakatkeeper/internal/handlers"
	"zakatkeeper/internal/logger"
	"zakatkeeper/internal/middleware"
	"zakatkeeper/internal/oracle"
	"zakatkeeper/internal/services"
	"zakatkeeper/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "zakatkeeper/internal/docs" // Import swagger docs
)

// @title           ZakatKeeper API
// @version         1.0
// @description     ZakatKeeper tracks zakatable wealth across a lunar Hawl year, resolves the nisab threshold from live metal prices, and keeps an encrypted audit trail of every record lifecycle event.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom binding validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Server-side field encryption
	cipher, err := fieldcrypt.New(appConfig.FieldEncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize field encryption: %w", err)
	}

	// Metal price oracle: live provider when an API key is configured,
	// otherwise fixed development prices.
	var priceProvider oracle.PriceProvider
	if appConfig.MetalsAPIKey != "" {
		priceProvider = oracle.NewMetalsDevProvider(
			&http.Client{Timeout: 10 * time.Second},
			appConfig.MetalsAPIURL, appConfig.MetalsAPIKey)
	} else {
		log.Warn("METALS_API_KEY not set, using static development prices")
		priceProvider = &oracle.StaticProvider{Prices: map[oracle.Metal]int64{
			oracle.MetalGold:   7000,
			oracle.MetalSilver: 800,
		}}
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	wealthService := services.NewWealthService(db)
	nisabService := services.NewNisabService(priceProvider,
		services.BasisPolicy(appConfig.NisabBasisPolicy), appConfig.PriceCurrency)
	auditService := services.NewAuditService(db, cipher)
	hawlService := services.NewHawlService(db, wealthService, nisabService, auditService)
	assetService := services.NewAssetService(db, hawlService)
	paymentService := services.NewPaymentService(db, cipher)
	migrationService := services.NewMigrationService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	assetHandler := handlers.NewAssetHandler(assetService)
	recordHandler := handlers.NewRecordHandler(hawlService, auditService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	migrationHandler := handlers.NewMigrationHandler(migrationService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Asset routes
	assets := protected.Group("/assets")
	assets.POST("", assetHandler.CreateAsset)
	assets.GET("", assetHandler.GetAssets)
	assets.GET("/:id", assetHandler.GetAsset)
	assets.PUT("/:id", assetHandler.UpdateAsset)
	assets.DELETE("/:id", assetHandler.DeleteAsset)

	// Hawl status
	protected.GET("/zakat/status", recordHandler.GetZakatStatus)

	// Nisab-Year record routes
	records := protected.Group("/records")
	records.GET("", recordHandler.GetRecords)
	records.GET("/:id", recordHandler.GetRecord)
	records.PATCH("/:id", recordHandler.EditRecord)
	records.POST("/:id/finalize", recordHandler.FinalizeRecord)
	records.POST("/:id/unlock", recordHandler.UnlockRecord)
	records.GET("/:id/audit-trail", recordHandler.GetAuditTrail)

	// Payment routes
	payments := protected.Group("/payments")
	payments.POST("", paymentHandler.CreatePayment)
	payments.GET("", paymentHandler.GetPayments)
	payments.GET("/:id", paymentHandler.GetPayment)
	payments.PUT("/:id", paymentHandler.UpdatePayment)
	payments.DELETE("/:id", paymentHandler.DeletePayment)

	// Encryption migration routes
	migration := protected.Group("/encryption/migration")
	migration.GET("", migrationHandler.GetStatus)
	migration.GET("/fields", migrationHandler.ListMigratableFields)
	migration.POST("/replacements", migrationHandler.SubmitReplacements)
	migration.POST("/complete", migrationHandler.Complete)

	log.Infof("Starting ZakatKeeper backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

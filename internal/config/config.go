package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Field encryption key for server-side encrypted fields. Any passphrase
	// works; the key material is derived from it.
	FieldEncryptionKey string

	// NisabBasisPolicy selects the methodology for picking the governing
	// nisab basis: "gold", "silver", or "lower" (lower of the two).
	NisabBasisPolicy string

	// Metals price oracle
	MetalsAPIURL  string
	MetalsAPIKey  string
	PriceCurrency string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get values from environment variables with defaults
	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "zakatkeeper"),
		DBPassword: getEnv("DB_PASSWORD", "zakatkeeper"),
		DBName:     getEnv("DB_NAME", "zakatkeeper"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		// Encryption
		FieldEncryptionKey: getEnv("FIELD_ENCRYPTION_KEY", "fallback-field-key-for-dev-only"),

		// Nisab
		NisabBasisPolicy: getEnv("NISAB_BASIS_POLICY", "lower"),

		// Price oracle
		MetalsAPIURL:  getEnv("METALS_API_URL", "https://api.metals.dev/v1/latest"),
		MetalsAPIKey:  getEnv("METALS_API_KEY", ""),
		PriceCurrency: getEnv("PRICE_CURRENCY", "USD"),
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

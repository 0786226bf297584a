package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration (tokens are issued by the identity provider)
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Stripe configuration
	Stripe StripeConfig

	// Booking payment rules
	Payment PaymentConfig

	// Redis backed rate limiting
	Redis RedisConfig

	// Kafka booking event stream
	Kafka KafkaConfig

	// Prometheus metrics
	Metrics MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	SiteURL     string // public web app origin, used when the request origin is not trusted
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	QueryTimeout       time.Duration
	RunMigrations      bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret      string
	Issuer      string
	TokenExpiry time.Duration // only used for locally generated dev tokens
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// StripeConfig holds payment provider credentials and connect onboarding paths
type StripeConfig struct {
	SecretKey          string // SECRET - never expose to client
	WebhookSecret      string // SECRET - signs checkout webhooks
	Currency           string
	Timeout            time.Duration
	ConnectCountry     string
	ConnectReturnPath  string
	ConnectRefreshPath string
}

// PaymentConfig holds booking pricing and split rules
type PaymentConfig struct {
	PlatformFeeBasisPoints int64 // 1000 = 10%
	MaxBookingAmount       int64 // minor units
	MaxBookingDays         int
}

// RedisConfig holds Redis connection and rate limit settings
type RedisConfig struct {
	Addr              string // empty disables rate limiting
	Password          string
	DB                int
	CheckoutPerMinute int
	VerifyPerMinute   int
}

// KafkaConfig holds booking event stream settings
type KafkaConfig struct {
	Brokers            []string // empty disables the outbox relay
	BookingTopic       string
	OutboxBatchSize    int
	OutboxSchedule     string
	CompletionSchedule string
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			SiteURL:     strings.TrimRight(getEnv("SITE_URL", "http://localhost:5173"), "/"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			QueryTimeout:       getEnvAsDuration("DB_QUERY_TIMEOUT", 5*time.Second),
			RunMigrations:      getEnvAsBool("DATABASE_RUN_MIGRATIONS", false),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			Issuer:      getEnv("JWT_ISSUER", ""),
			TokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "apikey", "x-client-info"}),
		},
		Stripe: StripeConfig{
			SecretKey:          getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:      getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:           strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),
			Timeout:            getEnvAsDuration("STRIPE_TIMEOUT", 10*time.Second),
			ConnectCountry:     getEnv("STRIPE_CONNECT_COUNTRY", "US"),
			ConnectReturnPath:  getEnv("STRIPE_CONNECT_RETURN_PATH", "/salon-onboarding?success=true"),
			ConnectRefreshPath: getEnv("STRIPE_CONNECT_REFRESH_PATH", "/salon-onboarding?refresh=true"),
		},
		Payment: PaymentConfig{
			PlatformFeeBasisPoints: int64(getEnvAsInt("PLATFORM_FEE_BPS", 1000)),
			MaxBookingAmount:       int64(getEnvAsInt("MAX_BOOKING_AMOUNT", 1000000)),
			MaxBookingDays:         getEnvAsInt("MAX_BOOKING_DAYS", 365),
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", ""),
			Password:          getEnv("REDIS_PASSWORD", ""),
			DB:                getEnvAsInt("REDIS_DB", 0),
			CheckoutPerMinute: getEnvAsInt("RATE_LIMIT_CHECKOUT_PER_MINUTE", 10),
			VerifyPerMinute:   getEnvAsInt("RATE_LIMIT_VERIFY_PER_MINUTE", 60),
		},
		Kafka: KafkaConfig{
			Brokers:            getEnvAsSlice("KAFKA_BROKERS", nil),
			BookingTopic:       getEnv("KAFKA_BOOKING_TOPIC", "booking-events"),
			OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 50),
			OutboxSchedule:     getEnv("OUTBOX_SCHEDULE", "@every 5s"),
			CompletionSchedule: getEnv("BOOKING_COMPLETION_SCHEDULE", "0 15 0 * * *"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}

	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}

	if c.Payment.PlatformFeeBasisPoints < 0 || c.Payment.PlatformFeeBasisPoints > 10000 {
		return fmt.Errorf("PLATFORM_FEE_BPS must be between 0 and 10000, got %d", c.Payment.PlatformFeeBasisPoints)
	}

	if c.Payment.MaxBookingAmount <= 0 {
		return fmt.Errorf("MAX_BOOKING_AMOUNT must be positive")
	}

	if c.Payment.MaxBookingDays <= 0 {
		return fmt.Errorf("MAX_BOOKING_DAYS must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("10s") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

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
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Payment     PaymentConfig
	Pricing     PricingConfig
	Reservation ReservationConfig
	Mail        MailConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT configuration for the operator dashboard API
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// PaymentConfig holds hosted-checkout gateway configuration.
// APIKey/APISecret authenticate calls to the gateway; WebhookSecret signs
// inbound webhook deliveries. InsecureSkipVerify disables webhook signature
// checks and is refused outside development.
type PaymentConfig struct {
	BaseURL            string
	APIKey             string
	APISecret          string
	WebhookSecret      string
	SuccessURL         string
	CancelURL          string
	Currency           string
	InsecureSkipVerify bool
}

// PricingConfig holds every pricing constant the engine uses.
// The previous site hard-coded these inline, inconsistently across call
// sites; they are configured once here and applied uniformly.
type PricingConfig struct {
	// TaxRate is applied to the pre-surcharge subtotal. 0 disables tax.
	TaxRate float64
	// MidnightSurcharge is added when the pickup hour falls in the night window.
	MidnightSurcharge float64
	// Night window: hour >= NightStartHour || hour < NightEndHour.
	NightStartHour int
	NightEndHour   int
	// AirportBoundDiscount is subtracted when the dropoff (not pickup) is an airport.
	AirportBoundDiscount float64
	// Fallback rates used when a vehicle's price sheet field is unset.
	DefaultAirportRate float64
	DefaultTripRate    float64
	Default6HourRate   float64
	Default12HourRate  float64
	DefaultHourlyRate  float64
}

// ReservationConfig controls the vehicle hold lifecycle
type ReservationConfig struct {
	// HoldTTL is how long an unpaid booking keeps its vehicle reserved.
	HoldTTL time.Duration
	// SweepSchedule is the cron expression for the expiry sweep (with seconds).
	SweepSchedule string
	// CancelReleaseGrace delays releasing the vehicle after a cancellation.
	// 0 releases immediately.
	CancelReleaseGrace time.Duration
}

// MailConfig holds SMTP configuration for booking confirmation emails
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
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
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Payment: PaymentConfig{
			BaseURL:            getEnv("PAYMENT_BASE_URL", "https://api.checkout-gateway.com/v1"),
			APIKey:             getEnv("PAYMENT_API_KEY", ""),
			APISecret:          getEnv("PAYMENT_API_SECRET", ""),
			WebhookSecret:      getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			SuccessURL:         getEnv("PAYMENT_SUCCESS_URL", "http://localhost:3000/booking/success"),
			CancelURL:          getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/booking/cancelled"),
			Currency:           getEnv("PAYMENT_CURRENCY", "USD"),
			InsecureSkipVerify: getEnvAsBool("PAYMENT_INSECURE_SKIP_VERIFY", false),
		},
		Pricing: PricingConfig{
			TaxRate:              getEnvAsFloat("PRICING_TAX_RATE", 0),
			MidnightSurcharge:    getEnvAsFloat("PRICING_MIDNIGHT_SURCHARGE", 10),
			NightStartHour:       getEnvAsInt("PRICING_NIGHT_START_HOUR", 23),
			NightEndHour:         getEnvAsInt("PRICING_NIGHT_END_HOUR", 7),
			AirportBoundDiscount: getEnvAsFloat("PRICING_AIRPORT_BOUND_DISCOUNT", 10),
			DefaultAirportRate:   getEnvAsFloat("PRICING_DEFAULT_AIRPORT_RATE", 80),
			DefaultTripRate:      getEnvAsFloat("PRICING_DEFAULT_TRIP_RATE", 70),
			Default6HourRate:     getEnvAsFloat("PRICING_DEFAULT_6H_RATE", 360),
			Default12HourRate:    getEnvAsFloat("PRICING_DEFAULT_12H_RATE", 720),
			DefaultHourlyRate:    getEnvAsFloat("PRICING_DEFAULT_HOURLY_RATE", 60),
		},
		Reservation: ReservationConfig{
			HoldTTL:            time.Duration(getEnvAsInt("RESERVATION_HOLD_TTL_MINUTES", 30)) * time.Minute,
			SweepSchedule:      getEnv("RESERVATION_SWEEP_SCHEDULE", "0 * * * * *"),
			CancelReleaseGrace: time.Duration(getEnvAsInt("RESERVATION_CANCEL_GRACE_MINUTES", 0)) * time.Minute,
		},
		Mail: MailConfig{
			Enabled:  getEnvAsBool("MAIL_ENABLED", false),
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "bookings@luxeride.example"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration. Misconfiguration is fatal at
// process start, never a lazy per-request failure.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Server.Environment == "production" {
		if c.Payment.APIKey == "" || c.Payment.APISecret == "" {
			return fmt.Errorf("PAYMENT_API_KEY and PAYMENT_API_SECRET are required in production")
		}
		if c.Payment.WebhookSecret == "" && !c.Payment.InsecureSkipVerify {
			return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required in production")
		}
		if c.Payment.InsecureSkipVerify {
			return fmt.Errorf("PAYMENT_INSECURE_SKIP_VERIFY cannot be enabled in production")
		}
	}

	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate >= 1 {
		return fmt.Errorf("PRICING_TAX_RATE must be in [0, 1)")
	}
	if c.Pricing.NightStartHour < 0 || c.Pricing.NightStartHour > 23 {
		return fmt.Errorf("PRICING_NIGHT_START_HOUR must be in [0, 23]")
	}
	if c.Pricing.NightEndHour < 0 || c.Pricing.NightEndHour > 23 {
		return fmt.Errorf("PRICING_NIGHT_END_HOUR must be in [0, 23]")
	}
	if c.Pricing.NightStartHour == c.Pricing.NightEndHour {
		return fmt.Errorf("PRICING_NIGHT_START_HOUR and PRICING_NIGHT_END_HOUR must differ; set PRICING_MIDNIGHT_SURCHARGE=0 to disable the surcharge")
	}

	if c.Mail.Enabled && c.Mail.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when MAIL_ENABLED is true")
	}

	return nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %g", key, defaultValue)
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Payment    PaymentConfig
	Withdrawal WithdrawalConfig
	Provider   ProviderConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

// PaymentConfig covers inbound collection and webhook verification.
type PaymentConfig struct {
	MaxAmount        decimal.Decimal
	WebhookSecret    string
	WebhookTolerance time.Duration
}

// WithdrawalConfig holds limits, fee rates and the auto-approval threshold.
// Rates are fractions (0.02 = 2%). Per-user limit overrides live on the user
// row; these are the defaults.
type WithdrawalConfig struct {
	MinAmount            decimal.Decimal
	MaxAmount            decimal.Decimal
	DefaultDailyLimit    decimal.Decimal
	DefaultMonthlyLimit  decimal.Decimal
	AutoApproveThreshold decimal.Decimal
	FeeCrypto            decimal.Decimal
	FeeMobileMoney       decimal.Decimal
	FeeBank              decimal.Decimal
	ProcessingWindow     string
}

// ProviderConfig configures the external mobile-money processor.
type ProviderConfig struct {
	BaseURL        string
	Email          string
	Password       string
	WebhookBaseURL string // callback will be WebhookBaseURL + /api/v1/webhooks/payment
	Timeout        time.Duration
	UseMock        bool
}

func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "8099"),
			Env:          getenv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DATABASE_DSN", "pesaflow:pesaflow@tcp(localhost:3306)/pesaflow?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: getenv("JWT_ACCESS_SECRET", "change-me-in-production"),
			Issuer:       getenv("JWT_ISSUER", "pesaflow"),
		},
		Payment: PaymentConfig{
			MaxAmount:        getdecimal("PAYMENT_MAX_AMOUNT", "100000"),
			WebhookSecret:    getenv("PAYMENT_WEBHOOK_SECRET", ""),
			WebhookTolerance: getduration("PAYMENT_WEBHOOK_TOLERANCE_SECONDS", 300*time.Second),
		},
		Withdrawal: WithdrawalConfig{
			MinAmount:            getdecimal("WITHDRAWAL_MIN_AMOUNT", "10"),
			MaxAmount:            getdecimal("WITHDRAWAL_MAX_AMOUNT", "50000"),
			DefaultDailyLimit:    getdecimal("WITHDRAWAL_DAILY_LIMIT", "5000"),
			DefaultMonthlyLimit:  getdecimal("WITHDRAWAL_MONTHLY_LIMIT", "50000"),
			AutoApproveThreshold: getdecimal("WITHDRAWAL_AUTO_APPROVE_THRESHOLD", "500"),
			FeeCrypto:            getdecimal("WITHDRAWAL_FEE_CRYPTO", "0.02"),
			FeeMobileMoney:       getdecimal("WITHDRAWAL_FEE_MOBILE_MONEY", "0.03"),
			FeeBank:              getdecimal("WITHDRAWAL_FEE_BANK", "0.025"),
			ProcessingWindow:     getenv("WITHDRAWAL_PROCESSING_WINDOW", "24-48 hours"),
		},
		Provider: ProviderConfig{
			BaseURL:        getenv("PROVIDER_BASE_URL", "https://api.payments.example.com"),
			Email:          getenv("PROVIDER_EMAIL", ""),
			Password:       getenv("PROVIDER_PASSWORD", ""),
			WebhookBaseURL: getenv("PROVIDER_WEBHOOK_BASE_URL", ""),
			Timeout:        getduration("PROVIDER_TIMEOUT_SECONDS", 30*time.Second),
			UseMock:        getenv("APP_ENV", "development") != "production",
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getdecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(fallback)
	return d
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

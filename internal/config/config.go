package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	// CashMethodCode names the payment method treated as cash-like when no
	// explicit allows-change flag is present.
	CashMethodCode      string
	TaxInclusiveDisplay bool
	CurrencyCode        string
	StoreName           string

	CartTTL         time.Duration
	IdempotencyTTL  time.Duration
	AccessTokenTTL  time.Duration
	CatalogCacheTTL time.Duration
	ReportCacheTTL  time.Duration

	QueueRedisPrefix       string
	QueueMaxAttempts       int
	QueueVisibilityTimeout time.Duration
	ReceiptTaskKind        string
	CheckoutRateWindow     time.Duration
	CheckoutRateMax        int
	CatalogDefaultLimit    int
	CatalogMaxLimit        int
	ReportDefaultDays      int
	WorkerConcurrency      int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CashMethodCode:      valueOrDefault(k.String("POS_CASH_METHOD_CODE"), "CASH"),
		TaxInclusiveDisplay: parseBool(valueOrDefault(k.String("POS_TAX_INCLUSIVE_DISPLAY"), "true")),
		CurrencyCode:        valueOrDefault(k.String("POS_CURRENCY_CODE"), "AOA"),
		StoreName:           valueOrDefault(k.String("POS_STORE_NAME"), "SeekWeb POS"),

		CartTTL:         parseDuration(k.String("POS_CART_TTL"), "12h"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		AccessTokenTTL:  parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		ReportCacheTTL:  parseDuration(k.String("REPORT_CACHE_TTL"), "5m"),

		QueueRedisPrefix:       valueOrDefault(k.String("QUEUE_REDIS_PREFIX"), "pos"),
		QueueMaxAttempts:       intOrDefault(k.Int("QUEUE_MAX_ATTEMPTS"), 10),
		QueueVisibilityTimeout: parseDuration(k.String("QUEUE_VISIBILITY_TIMEOUT"), "30s"),
		ReceiptTaskKind:        valueOrDefault(k.String("RECEIPT_TASK_KIND"), "receipt.generate"),
		CheckoutRateWindow:     parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		CheckoutRateMax:        intOrDefault(k.Int("CHECKOUT_RATE_MAX"), 60),
		CatalogDefaultLimit:    intOrDefault(k.Int("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:        intOrDefault(k.Int("CATALOG_MAX_LIMIT"), 100),
		ReportDefaultDays:      intOrDefault(k.Int("REPORT_DEFAULT_DAYS"), 7),
		WorkerConcurrency:      intOrDefault(k.Int("WORKER_CONCURRENCY"), 4),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
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
	RedisURL           string
	CORSAllowedOrigins []string

	StripeSecretKey string
	Currency        string

	CheckoutSuccessURL string
	CheckoutCancelURL  string

	HandoffSecret string
	MainAppURL    string
	AdminSecret   string

	CartTTL          time.Duration
	CartSweep        time.Duration
	RefreshDebounce  time.Duration
	IdempotencyTTL   time.Duration
	RateLimitWindow  time.Duration
	RateLimitMax     int
	AdminSessionPage int
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
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		StripeSecretKey:    k.String("STRIPE_SECRET_KEY"),
		Currency:           strings.ToLower(valueOrDefault(k.String("CURRENCY"), "gbp")),
		CheckoutSuccessURL: valueOrDefault(k.String("CHECKOUT_SUCCESS_URL"), "https://shop.ifoundit.io/success"),
		CheckoutCancelURL:  valueOrDefault(k.String("CHECKOUT_CANCEL_URL"), "https://shop.ifoundit.io/checkout"),
		HandoffSecret:      k.String("HANDOFF_SECRET"),
		MainAppURL:         valueOrDefault(k.String("MAIN_APP_URL"), "https://app.ifoundit.io/claim"),
		AdminSecret:        k.String("ADMIN_SECRET"),
		CartTTL:            parseDuration(k.String("CART_TTL"), "2h"),
		CartSweep:          parseDuration(k.String("CART_SWEEP_INTERVAL"), "1m"),
		RefreshDebounce:    parseDuration(k.String("CART_REFRESH_DEBOUNCE"), "150ms"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:       intOrDefault(k.String("RATE_LIMIT_MAX"), 60),
		AdminSessionPage:   intOrDefault(k.String("ADMIN_SESSION_PAGE"), 20),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	if cfg.HandoffSecret == "" {
		return nil, errors.New("HANDOFF_SECRET is required")
	}
	if cfg.AdminSecret == "" {
		return nil, errors.New("ADMIN_SECRET is required")
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

func intOrDefault(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
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

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/env"
)

// Config is the process-wide configuration. It is loaded once at startup and
// passed explicitly to every component that needs it.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Stripe   StripeConfig
	Billing  BillingConfig
	Archive  ArchiveConfig
}

type AppConfig struct {
	Env             string
	Host            string
	Port            string
	PublicURL       string
	MetricsUser     string
	MetricsPassword string
}

type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceBasic    string
	PricePremium  string
	PriceBusiness string
}

type BillingConfig struct {
	FallbackCredits int64
	LookupTimeout   time.Duration
	BalanceCacheTTL time.Duration
	CheckoutLockTTL time.Duration
	CatalogFile     string
}

type ArchiveConfig struct {
	Enabled         bool
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string
}

const (
	DefaultFallbackCredits = 100
	DefaultLookupTimeout   = 10 * time.Second
	DefaultBalanceCacheTTL = 5 * time.Second
	DefaultCheckoutLockTTL = 30 * time.Second
)

// Load reads the configuration from the environment (and the optional .env
// file loaded by env.SetupEnvFile).
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:             env.GetEnv("APP_ENV", "prod"),
			Host:            env.GetEnv("APP_HOST", "0.0.0.0"),
			Port:            env.GetEnv("APP_PORT", "4000"),
			PublicURL:       strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/"),
			MetricsUser:     env.GetEnv("METRICS_USER", ""),
			MetricsPassword: env.GetEnv("METRICS_PASSWORD", ""),
		},
		Database: DatabaseConfig{
			User:     env.GetEnv("DB_USER", ""),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", "3306"),
			Name:     env.GetEnv("DB_NAME", ""),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			DB:       env.GetInt("CACHE_DB", 0),
		},
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
			PriceBasic:    strings.TrimSpace(env.GetEnv("STRIPE_PRICE_BASIC", "")),
			PricePremium:  strings.TrimSpace(env.GetEnv("STRIPE_PRICE_PREMIUM", "")),
			PriceBusiness: strings.TrimSpace(env.GetEnv("STRIPE_PRICE_BUSINESS", "")),
		},
		Billing: BillingConfig{
			FallbackCredits: int64(env.GetInt("BILLING_FALLBACK_CREDITS", DefaultFallbackCredits)),
			LookupTimeout:   env.GetDuration("BILLING_LOOKUP_TIMEOUT", DefaultLookupTimeout),
			BalanceCacheTTL: env.GetDuration("BILLING_BALANCE_CACHE_TTL", DefaultBalanceCacheTTL),
			CheckoutLockTTL: env.GetDuration("BILLING_CHECKOUT_LOCK_TTL", DefaultCheckoutLockTTL),
			CatalogFile:     strings.TrimSpace(env.GetEnv("BILLING_CATALOG_FILE", "")),
		},
		Archive: ArchiveConfig{
			Enabled:         env.GetBool("WEBHOOK_ARCHIVE_ENABLED", false),
			AccessKeyID:     env.GetEnv("WEBHOOK_ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: env.GetEnv("WEBHOOK_ARCHIVE_SECRET_ACCESS_KEY", ""),
			Region:          env.GetEnv("WEBHOOK_ARCHIVE_REGION", "eu-central-1"),
			BucketName:      env.GetEnv("WEBHOOK_ARCHIVE_BUCKET", ""),
			EndpointURL:     env.GetEnv("WEBHOOK_ARCHIVE_ENDPOINT_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would make the service misbehave silently.
// Missing Stripe credentials are not an error here: the billing endpoints
// report "not configured" at request time instead.
func (c *Config) Validate() error {
	var errs []error
	if c.Billing.FallbackCredits <= 0 {
		errs = append(errs, fmt.Errorf("BILLING_FALLBACK_CREDITS must be positive, got %d", c.Billing.FallbackCredits))
	}
	if _, err := url.ParseRequestURI(c.App.PublicURL); err != nil {
		errs = append(errs, fmt.Errorf("PUBLIC_DOMAIN is not a valid URL: %w", err))
	}
	if c.Archive.Enabled {
		if err := c.Archive.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MigrateURL is the DSN in the form golang-migrate expects.
func (d DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func (c CacheConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Configured reports whether a usable server-side secret key is present.
func (s StripeConfig) Configured() bool {
	key := strings.TrimSpace(s.SecretKey)
	return strings.HasPrefix(key, "sk_") || strings.HasPrefix(key, "rk_")
}

func (s StripeConfig) WebhookConfigured() bool {
	return strings.TrimSpace(s.WebhookSecret) != ""
}

// TestMode is true for sk_test_/rk_test_ keys.
func (s StripeConfig) TestMode() bool {
	return strings.Contains(s.SecretKey, "_test_")
}

func (a ArchiveConfig) Validate() error {
	if a.AccessKeyID == "" {
		return fmt.Errorf("archive access key ID is required")
	}
	if a.SecretAccessKey == "" {
		return fmt.Errorf("archive secret access key is required")
	}
	if a.BucketName == "" {
		return fmt.Errorf("archive bucket name is required")
	}
	if a.Region == "" {
		return fmt.Errorf("archive region is required")
	}
	return nil
}

// SuccessURL and CancelURL are the checkout return targets. The convergence
// client reacts to the payment query parameter.
func (a AppConfig) SuccessURL() string {
	return a.PublicURL + "/?payment=success"
}

func (a AppConfig) CancelURL() string {
	return a.PublicURL + "/?payment=canceled"
}

func (a AppConfig) IsDev() bool {
	return a.Env == "dev"
}

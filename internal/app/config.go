package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/money"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string `usage:"Redis URL for the recently viewed list; empty disables it" flag:"redis-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STORE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	// ShippingFee is the flat fee in đồng added to every non-empty order.
	ShippingFee   int64  `default:"30000" usage:"Flat shipping fee in minor units" flag:"shipping-fee"`
	PromoTimezone string `default:"Asia/Ho_Chi_Minh" usage:"Time zone of date-only promo windows" flag:"promo-timezone"`
	RateLimit     RateLimitConfig
	PromoLimit    PromoLimitConfig
	Graceful      GracefulConfig
}

// RateLimitConfig controls a per-client token bucket.
type RateLimitConfig struct {
	Rate  float64 `default:"20" usage:"Sustained requests per second"`
	Burst int     `default:"40" usage:"Bucket size"`
}

// PromoLimitConfig is the tighter bucket in front of promo validation.
type PromoLimitConfig struct {
	Rate  float64 `default:"0.5" usage:"Sustained promo validations per second"`
	Burst int     `default:"5" usage:"Promo validation bucket size"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the unprefixed DATABASE_URL, REDIS_URL and PORT
// that hosting platforms inject.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if c.ShippingFee < 0 {
		return errors.Errorf("shipping fee must not be negative, got %d", c.ShippingFee)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves PromoTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.PromoTimezone)
	if err != nil {
		return nil, errors.Wrapf(err, "promo timezone %q", c.PromoTimezone)
	}
	return loc, nil
}

// Shipping returns ShippingFee as money.
func (c *Config) Shipping() money.Money {
	return money.FromInt64(c.ShippingFee)
}

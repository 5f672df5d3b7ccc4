package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/chowline/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHOW_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CHOW_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Pricing     PricingConfig
	Events      EventsConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PricingConfig overrides the platform pricing policy. Values are decimal
// strings to avoid float drift.
type PricingConfig struct {
	DeliveryFee     string        `default:"50"   usage:"Flat delivery fee" flag:"delivery-fee"`
	TaxRate         string        `default:"0.05" usage:"Tax rate applied to subtotal" flag:"tax-rate"`
	PointsRate      string        `default:"10"   usage:"Currency units per loyalty point" flag:"points-rate"`
	DeliveryEarning string        `default:"30"   usage:"Agent earning per completed delivery" flag:"delivery-earning"`
	DeliveryETA     time.Duration `default:"40m"  usage:"Estimated delivery duration" flag:"delivery-eta"`
}

// Policy converts the config into a pricing.Policy.
func (c PricingConfig) Policy() (pricing.Policy, error) {
	fee, err := decimal.NewFromString(c.DeliveryFee)
	if err != nil {
		return pricing.Policy{}, errors.Wrapf(err, "parsing delivery fee %q", c.DeliveryFee)
	}
	tax, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return pricing.Policy{}, errors.Wrapf(err, "parsing tax rate %q", c.TaxRate)
	}
	points, err := decimal.NewFromString(c.PointsRate)
	if err != nil {
		return pricing.Policy{}, errors.Wrapf(err, "parsing points rate %q", c.PointsRate)
	}
	earning, err := decimal.NewFromString(c.DeliveryEarning)
	if err != nil {
		return pricing.Policy{}, errors.Wrapf(err, "parsing delivery earning %q", c.DeliveryEarning)
	}
	return pricing.Policy{
		DeliveryFee:       fee,
		TaxRate:           tax,
		PointsRate:        points,
		DeliveryEarning:   earning,
		EstimatedDelivery: c.DeliveryETA,
	}, nil
}

// EventsConfig controls the outbox dispatcher.
type EventsConfig struct {
	PollInterval time.Duration `default:"1s" usage:"Outbox poll interval" flag:"events-poll-interval"`
	ChanBuffer   int           `default:"256" usage:"Realtime sink channel buffer" flag:"events-chan-buffer"`
	MaxLag       time.Duration `default:"1m" usage:"Max pending event age before readiness fails" flag:"events-max-lag"`
}

// RateLimitConfig controls the per-actor sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHOW",
		Files:     []string{"config.yaml", "/etc/chowline/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set CHOW_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CHOW_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

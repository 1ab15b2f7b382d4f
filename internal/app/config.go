package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete gateway configuration, loadable from
// environment variables (SFG_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"Gateway listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SFG_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `usage:"Redis connection URL; empty disables catalog caching" flag:"redis-url"`
	Backend     BackendConfig
	Pricing     PricingConfig
	Coupons     CouponConfig
	Session     SessionConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// BackendConfig points the gateway at the commerce API.
type BackendConfig struct {
	BaseURL string        `usage:"Commerce API base URL (SFG_BACKEND_BASE_URL)" flag:"backend-base-url"`
	Timeout time.Duration `default:"10s" usage:"Commerce API request timeout"`
}

// PricingConfig holds the client-side shipping rules. Amounts are in the
// store currency, e.g. 100000 = Rp100.000.
type PricingConfig struct {
	FreeShippingThreshold int64 `default:"100000" usage:"Subtotal at which shipping becomes free" flag:"free-shipping-threshold"`
	ShippingFee           int64 `default:"15000" usage:"Flat shipping fee below the threshold" flag:"shipping-fee"`
}

// CouponConfig controls the static coupon table's offline campaign sets.
type CouponConfig struct {
	OfflineDir string `usage:"Directory of bulk campaign code files (.txt or .gz); empty disables offline codes" flag:"coupon-offline-dir"`
	Quorum     int    `default:"2" usage:"Files a code must appear in to be valid"`
	Capacity   uint   `default:"1000000" usage:"Expected codes per campaign file"`
}

// SessionConfig controls per-device session lifecycle.
type SessionConfig struct {
	IdleTTL       time.Duration `default:"30m" usage:"Idle time before a session is evicted" flag:"session-idle-ttl"`
	EvictInterval time.Duration `default:"5m" usage:"How often idle sessions are scanned" flag:"session-evict-interval"`
}

// CacheConfig controls the catalog cache.
type CacheConfig struct {
	ListingTTL time.Duration `default:"5m" usage:"TTL for cached catalog listings" flag:"cache-listing-ttl"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SFG",
		Files:     []string{"config.yaml", "/etc/storefront-gateway/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SFG_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Backend.BaseURL == "" {
		return nil, errors.New("commerce API base URL is required: set SFG_BACKEND_BASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and
// PORT to the gateway's SFG_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (GRAINLY_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	MongoURI  string        `usage:"MongoDB connection URI (GRAINLY_MONGO_URI or MONGODB_URI)" flag:"mongo-uri"`
	MongoDB   string        `default:"grainly" usage:"MongoDB database name" flag:"mongo-db"`
	JWTSecret string        `usage:"HMAC secret for admin session tokens (GRAINLY_JWT_SECRET)" flag:"jwt-secret"`
	TokenTTL  time.Duration `default:"24h" usage:"Admin session token lifetime" flag:"token-ttl"`
	RedisAddr string        `usage:"Redis address for the dashboard cache; empty disables caching" flag:"redis-addr"`
	AMQPURL   string        `usage:"RabbitMQ URL for order events; empty disables publishing" flag:"amqp-url"`
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
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

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "GRAINLY",
		Files:     []string{"config.yaml", "/etc/grainly/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.MongoURI == "" {
		return nil, errors.New("mongo URI is required: set GRAINLY_MONGO_URI or MONGODB_URI")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set GRAINLY_JWT_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like MONGODB_URI and PORT to the
// application's GRAINLY_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.MongoURI == "" {
		if v := os.Getenv("MONGODB_URI"); v != "" {
			c.MongoURI = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Rate table backends.
const (
	RatesHTTP     = "http"
	RatesPostgres = "postgres"
	RatesFile     = "file"
	RatesMock     = "mock"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"3000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Tiendanube
	ClientID     string `envconfig:"TIENDANUBE_CLIENT_ID"`
	ClientSecret string `envconfig:"TIENDANUBE_CLIENT_SECRET"`
	AuthURL      string `envconfig:"TIENDANUBE_AUTH_URL" default:"https://www.tiendanube.com"`
	TokenURL     string `envconfig:"TIENDANUBE_TOKEN_URL" default:"https://www.tiendanube.com/apps/authorize/token"`
	APIURL       string `envconfig:"TIENDANUBE_API_URL" default:"https://api.tiendanube.com/v1"`
	UserAgent    string `envconfig:"TIENDANUBE_USER_AGENT" default:"Mobapp Domicilio (soporte@mobapp.com.ar)"`
	UseMock      bool   `envconfig:"TIENDANUBE_USE_MOCK" default:"false"`

	// Install
	PublicURL      string        `envconfig:"PUBLIC_API_URL"`
	CarrierName    string        `envconfig:"CARRIER_NAME" default:"Mobapp Domicilio"`
	SettleDelay    time.Duration `envconfig:"SETTLE_DELAY" default:"5s"`
	SettleMaxTries uint          `envconfig:"SETTLE_MAX_TRIES" default:"3"`
	OptionRate     float64       `envconfig:"OPTION_RATE" default:"2"`

	// Sessions
	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"memory"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"15m"`
	SessionSecure  bool          `envconfig:"SESSION_SECURE" default:"true"`
	RedisURL       string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Rate tables
	RatesBackend string `envconfig:"RATES_BACKEND" default:"http"`
	RatesBaseURL string `envconfig:"RATES_BASE_URL"`
	RatesAPIKey  string `envconfig:"RATES_API_KEY"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	RatesFile    string `envconfig:"RATES_FILE" default:"rates.yaml"`

	// Quotation
	QuoteConcurrency int           `envconfig:"QUOTE_CONCURRENCY" default:"4"`
	QuoteCurrency    string        `envconfig:"QUOTE_CURRENCY" default:"ARS"`
	DeliveryWindow   time.Duration `envconfig:"DELIVERY_WINDOW" default:"168h"`
	ExternalTimeout  time.Duration `envconfig:"EXTERNAL_TIMEOUT" default:"30s"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"mobapp-domicilio"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings serve needs before it accepts traffic.
func (c *Config) Validate() error {
	if !c.UseMock && (c.ClientID == "" || c.ClientSecret == "") {
		return fmt.Errorf("TIENDANUBE_CLIENT_ID and TIENDANUBE_CLIENT_SECRET are required")
	}
	if c.PublicURL == "" {
		return fmt.Errorf("PUBLIC_API_URL is required")
	}
	if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_API_URL must be an absolute URL, got %q", c.PublicURL)
	}
	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	switch c.RatesBackend {
	case RatesHTTP:
		if c.RatesBaseURL == "" {
			return fmt.Errorf("RATES_BASE_URL is required for RATES_BACKEND=http")
		}
	case RatesPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for RATES_BACKEND=postgres")
		}
	case RatesFile:
		if c.RatesFile == "" {
			return fmt.Errorf("RATES_FILE is required for RATES_BACKEND=file")
		}
	case RatesMock:
	default:
		return fmt.Errorf("unknown RATES_BACKEND %q", c.RatesBackend)
	}
	return nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.version", c.Version),
		attribute.String("session.backend", c.SessionBackend),
		attribute.String("rates.backend", c.RatesBackend),
		attribute.Bool("tiendanube.mock", c.UseMock),
	}
}

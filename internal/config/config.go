// Package config loads service configuration from the environment.
package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

type Config struct {
	AppName       string `env:"APP_NAME" envDefault:"Tasklane Identity"`
	Env           string `env:"ENV" envDefault:"DEV"`
	Port          string `env:"PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// TicketKey encrypts pending-authentication tickets at rest;
	// base64-encoded 32 bytes.
	TicketKey string `env:"TICKET_KEY,required"`

	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"336h"`
	EmailVerifyTTL time.Duration `env:"EMAIL_VERIFY_TTL" envDefault:"168h"`

	Postgres Postgres  `envPrefix:"POSTGRES_"`
	Redis    Redis     `envPrefix:"REDIS_"`
	SMTP     SMTP      `envPrefix:"SMTP_"`
	S3       S3        `envPrefix:"S3_"`
	Google   OIDC      `envPrefix:"OIDC_GOOGLE_"`
	Okta     OIDC      `envPrefix:"OIDC_OKTA_"`
	CORS     CORSRules `envPrefix:"CORS_"`
}

type Postgres struct {
	DSN string `env:"DSN" envDefault:"postgres://localhost:5432/identity?sslmode=disable"`
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type SMTP struct {
	Host     string `env:"HOST" envDefault:"smtp.gmail.com"`
	Port     string `env:"PORT" envDefault:"587"`
	Account  string `env:"ACCOUNT"`
	Password string `env:"PASSWORD"`
}

type S3 struct {
	Region       string `env:"REGION" envDefault:"us-east-1"`
	BaseEndpoint string `env:"BASE_ENDPOINT"`
	Bucket       string `env:"BUCKET"`
	AccessKey    string `env:"ACCESS_KEY"`
	SecretKey    string `env:"SECRET_KEY"`
}

// OIDC configures one federation provider; the provider is enabled when an
// issuer URL is present.
type OIDC struct {
	Issuer       string `env:"ISSUER"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

func (o OIDC) Enabled() bool { return o.Issuer != "" }

type CORSRules struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	AllowedMethods string   `env:"ALLOWED_METHODS" envDefault:"GET, POST, OPTIONS"`
	AllowedHeaders string   `env:"ALLOWED_HEADERS" envDefault:"Content-Type, Authorization"`
}

func (c CORSRules) OriginAllowed(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if o == origin || o == "*" {
			return true
		}
	}
	return false
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "[config.Load] parse environment")
	}
	if _, err := cfg.DecodedTicketKey(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

// S3Enabled reports whether profile-image signing is configured.
func (c Config) S3Enabled() bool {
	return c.S3.Bucket != ""
}

func (c Config) DecodedTicketKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.TicketKey)
	if err != nil {
		return nil, errors.Wrap(err, "[config.DecodedTicketKey] decode TICKET_KEY")
	}
	if len(key) != 32 {
		return nil, errors.New("[config.DecodedTicketKey] TICKET_KEY must decode to 32 bytes")
	}
	return key, nil
}

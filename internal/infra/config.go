package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5435"`
	PGUser      string `env:"PGUSER" envDefault:"cashier"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"cashier"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"cashier"`

	// Store backend: "postgres" (production) or "memory" (single-terminal
	// dev mode, state lives for the process lifetime only).
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// Tickets expire this many days after issuance.
	TicketValidityDays int `env:"TICKET_VALIDITY_DAYS" envDefault:"30"`

	// JWT
	JWTSecret         string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTCashierExpiry  string `env:"JWT_CASHIER_EXPIRY" envDefault:"12h"`
	JWTBackendExpiry  string `env:"JWT_BACKEND_EXPIRY" envDefault:"24h"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`

	// External services
	DrawOracleURL string `env:"DRAW_ORACLE_URL"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.StoreBackend != "postgres" && c.StoreBackend != "memory" {
		return fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.StoreBackend)
	}
	if c.TicketValidityDays <= 0 {
		return fmt.Errorf("TICKET_VALIDITY_DAYS must be positive, got %d", c.TicketValidityDays)
	}
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// TicketValidity returns the configured validity window as a duration.
func (c *Config) TicketValidity() time.Duration {
	return time.Duration(c.TicketValidityDays) * 24 * time.Hour
}

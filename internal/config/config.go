// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        // e.g. "8080"
	Env            string        // "development" | "production"
	ReadTimeout    time.Duration // default 10s
	WriteTimeout   time.Duration // default 10s
	AllowedOrigins []string      // CORS + websocket origins; empty = allow all (dev)
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds the caller-identity token settings.
type JWTConfig struct {
	Secret string        // must be set
	TTL    time.Duration // default 24h
}

// LedgerConfig holds pooling-engine tunables.
type LedgerConfig struct {
	// MinContribution is the smallest accepted contribution amount.
	// Defaults to one minimal unit (0.0001) so any positive amount the money
	// columns can represent is accepted unless operators raise the floor.
	MinContribution float64 // default 0.0001
	// InactivityPeriod is how long the operator of a closed/complete pool may
	// stay silent before anyone can flip the pool into the stuck state.
	InactivityPeriod time.Duration // default 168h (7 days)
	// SweepInterval is how often the background monitor scans for inactive
	// operators.
	SweepInterval time.Duration // default 1m
	// SummaryInterval is how often open-pool summaries are pushed to
	// websocket clients.
	SummaryInterval time.Duration // default 30s
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	Ledger LedgerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns every validation error encountered, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}

	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Ledger.InactivityPeriod <= 0 {
		errs = append(errs, fmt.Errorf(
			"LEDGER_INACTIVITY_PERIOD must be positive, got %s", c.Ledger.InactivityPeriod))
	}
	if c.Ledger.MinContribution <= 0 {
		errs = append(errs, fmt.Errorf(
			"LEDGER_MIN_CONTRIBUTION must be positive, got %.4f", c.Ledger.MinContribution))
	}
	if c.Ledger.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf(
			"LEDGER_SWEEP_INTERVAL must be positive, got %s", c.Ledger.SweepInterval))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:           getEnv("SERVER_PORT", "8080"),
		Env:            getEnv("ENVIRONMENT", "development"),
		ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		AllowedOrigins: getList("CORS_ALLOWED_ORIGINS"),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "pooling_ledger"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET", ""),
		TTL:    getDuration("JWT_TTL", 24*time.Hour),
	}

	// ── Ledger ────────────────────────────────────────────────────────────────
	minContribution, err := getFloat("LEDGER_MIN_CONTRIBUTION", 0.0001)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_MIN_CONTRIBUTION: %w", err)
	}

	cfg.Ledger = LedgerConfig{
		MinContribution:  minContribution,
		InactivityPeriod: getDuration("LEDGER_INACTIVITY_PERIOD", 7*24*time.Hour),
		SweepInterval:    getDuration("LEDGER_SWEEP_INTERVAL", time.Minute),
		SummaryInterval:  getDuration("LEDGER_SUMMARY_INTERVAL", 30*time.Second),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getList reads a comma-separated environment variable into a slice,
// trimming whitespace and dropping empty entries.
func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

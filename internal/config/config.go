// Package config loads process configuration from the environment,
// using a nested Config struct, a Load()
// that reads os.Getenv through small typed helpers, and range validation
// up front so a misconfigured process fails fast at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Venues   VenuesConfig
	LLM      LLMConfig
	Logging  LoggingConfig
	Poll     PollConfig
}

type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds the Supabase/Postgres connection. Absence of the
// service-role key disables simulation persistence and reads degrade to
// empty rather than failing startup.
type DatabaseConfig struct {
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseAnonKey        string

	Driver  string
	SSLMode string
}

func (d DatabaseConfig) PersistenceEnabled() bool {
	return d.SupabaseURL != "" && d.SupabaseServiceRoleKey != ""
}

// DSN builds a libpq connection string from the Supabase URL and
// service-role key. Supabase's Postgres connection string is passed
// through SUPABASE_DB_DSN directly when set (simplest path for local dev
// against a plain Postgres instance); otherwise it's derived from the
// project URL.
func (d DatabaseConfig) DSN() string {
	if dsn := os.Getenv("SUPABASE_DB_DSN"); dsn != "" {
		return dsn
	}
	host := strings.TrimPrefix(d.SupabaseURL, "https://")
	host = strings.TrimSuffix(host, "/")
	return fmt.Sprintf("postgres://postgres:%s@db.%s:5432/postgres?sslmode=%s",
		d.SupabaseServiceRoleKey, host, d.SSLMode)
}

// VenuesConfig selects which CEX adapters are active alongside the
// always-on Hyperliquid primary venue.
type VenuesConfig struct {
	CexVenues []string
}

// LLMConfig holds the OpenRouter credentials the AI trader engine needs.
// Absence of the API key means agents always hold.
type LLMConfig struct {
	OpenRouterAPIKey string
	BaseURL          string
	CallTimeout      time.Duration
	MaxRetries       int
}

func (l LLMConfig) Enabled() bool { return l.OpenRouterAPIKey != "" }

type LoggingConfig struct {
	Level    string
	Format   string
	FilePath string
}

// PollConfig governs C10's fixed-interval driver and the Rate Cache TTL.
type PollConfig struct {
	Interval  time.Duration
	CacheTTL  time.Duration
	VenueTimeout time.Duration
}

// Load reads process configuration from the environment. It loads a
// .env file first, when one is present, for local development; .env is
// never required and its absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("PORT", 3001),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			SupabaseURL:            getEnv("SUPABASE_URL", ""),
			SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			SupabaseAnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
			Driver:                 "postgres",
			SSLMode:                getEnv("DB_SSL_MODE", "require"),
		},
		Venues: VenuesConfig{
			CexVenues: getEnvAsList("CEX_VENUES", []string{"binance", "bybit", "okx"}),
		},
		LLM: LLMConfig{
			OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:          getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1/chat/completions"),
			CallTimeout:      getEnvAsDuration("LLM_CALL_TIMEOUT", 45*time.Second),
			MaxRetries:       getEnvAsInt("LLM_MAX_RETRIES", 1),
		},
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Format:   getEnv("LOG_FORMAT", "json"),
			FilePath: getEnv("LOG_FILE", ""),
		},
		Poll: PollConfig{
			Interval:     getEnvAsDuration("POLL_INTERVAL", 30*time.Second),
			CacheTTL:     getEnvAsDuration("CACHE_TTL", 30*time.Second),
			VenueTimeout: getEnvAsDuration("VENUE_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if len(c.Venues.CexVenues) == 0 {
		return fmt.Errorf("CEX_VENUES must name at least one venue")
	}
	if len(c.Venues.CexVenues) > 3 {
		return fmt.Errorf("CEX_VENUES supports at most 3 venues, got %d", len(c.Venues.CexVenues))
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %v", c.Poll.Interval)
	}
	if c.Poll.VenueTimeout <= 0 || c.Poll.VenueTimeout > 30*time.Second {
		return fmt.Errorf("VENUE_TIMEOUT must be in (0, 30s], got %v", c.Poll.VenueTimeout)
	}
	if c.LLM.CallTimeout <= 0 || c.LLM.CallTimeout > 45*time.Second {
		return fmt.Errorf("LLM_CALL_TIMEOUT must be in (0, 45s], got %v", c.LLM.CallTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvAsList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

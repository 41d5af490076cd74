// Package config loads and validates application configuration from
// environment variables and an optional TOML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Supported values of DatabaseDriver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultMaxBodyBytes caps request bodies at 1 MiB unless overridden.
const DefaultMaxBodyBytes int64 = 1 << 20

// Config holds all configuration values for the API server.
// Values are populated by Load: defaults first, then the TOML file named by
// CONFIG_FILE (if any), then environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string, or the SQLite file path
	// when DatabaseDriver is "sqlite". Required.
	DatabaseURL string

	// DatabaseDriver selects the store: "postgres" (default) or "sqlite".
	DatabaseDriver string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes limits request body size. Defaults to 1 MiB; 0 disables the limit.
	MaxBodyBytes int64

	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool
}

// fileConfig mirrors Config for TOML decoding. Nil fields were absent from the file.
type fileConfig struct {
	Port           *string  `toml:"port"`
	DatabaseURL    *string  `toml:"database_url"`
	DatabaseDriver *string  `toml:"database_driver"`
	LogLevel       *string  `toml:"log_level"`
	CORSOrigins    []string `toml:"cors_origins"`
	MaxBodyBytes   *int64   `toml:"max_body_bytes"`
	AutoMigrate    *bool    `toml:"auto_migrate"`
}

// Load reads configuration and returns a Config.
// Returns a single error listing every required variable that is not set and
// every value that fails to parse or validate.
func Load() (Config, error) {
	cfg := Config{
		Port:           "8080",
		DatabaseDriver: DriverPostgres,
		LogLevel:       "info",
		CORSOrigins:    []string{"http://localhost:5173"},
		MaxBodyBytes:   DefaultMaxBodyBytes,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	var problems []string

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DatabaseDriver = strings.ToLower(getEnv("DATABASE_DRIVER", cfg.DatabaseDriver))
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			problems = append(problems, fmt.Sprintf("MAX_BODY_BYTES must be a non-negative integer, got %q", v))
		} else {
			cfg.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("AUTO_MIGRATE must be a boolean, got %q", v))
		} else {
			cfg.AutoMigrate = b
		}
	}

	if cfg.DatabaseURL == "" {
		problems = append(problems, "required environment variables not set: DATABASE_URL")
	}
	if !slices.Contains([]string{DriverPostgres, DriverSQLite}, cfg.DatabaseDriver) {
		problems = append(problems, fmt.Sprintf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.DatabaseDriver))
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel))
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// SlogLevel returns LogLevel as a slog.Level, falling back to INFO.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// loadFile overlays the values present in the TOML file at path onto cfg.
func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config.loadFile: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("config.loadFile: parse %s: %w", path, err)
	}

	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.DatabaseURL != nil {
		cfg.DatabaseURL = *fc.DatabaseURL
	}
	if fc.DatabaseDriver != nil {
		cfg.DatabaseDriver = *fc.DatabaseDriver
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.CORSOrigins != nil {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	if fc.MaxBodyBytes != nil {
		cfg.MaxBodyBytes = *fc.MaxBodyBytes
	}
	if fc.AutoMigrate != nil {
		cfg.AutoMigrate = *fc.AutoMigrate
	}
	return nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

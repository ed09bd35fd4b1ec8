package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"saldo/internal/core"
	"saldo/internal/log"
)

type Config struct {
	// HTTP Server
	Port string
	// WriteRateLimit caps POST/PUT/DELETE requests per client per minute.
	WriteRateLimit int
	// TrustedProxies are comma-separated CIDRs allowed to set X-Forwarded-For.
	TrustedProxies string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	// DataFile seeds the memory backend from a JSON export when set.
	DataFile string

	// AMQP (optional; empty URL disables change messages)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Projection
	ProjectionMonths  int
	ProjectionWorkers int
	OpeningBalance    string
	RollSchedule      string

	// Projection result cache
	CacheSize int
	CacheTTL  time.Duration

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleProjectionSheet    string
	GoogleStatementsSheet    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		WriteRateLimit: getEnvInt("WRITE_RATE_LIMIT", 120),
		TrustedProxies: getEnv("TRUSTED_PROXIES", ""),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/saldo.db"),
		DataFile:     getEnv("DATA_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "saldo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "template_changes"),

		ProjectionMonths:  getEnvInt("PROJECTION_MONTHS", 120),
		ProjectionWorkers: getEnvInt("PROJECTION_WORKERS", 0),
		OpeningBalance:    getEnv("OPENING_BALANCE", "0"),
		RollSchedule:      getEnv("ROLL_SCHEDULE", "@daily"),

		CacheSize: getEnvInt("CACHE_SIZE", 64),
		CacheTTL:  getEnvDuration("CACHE_TTL", 10*time.Minute),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleProjectionSheet:    getEnv("GOOGLE_PROJECTION_SHEET", "Projection"),
		GoogleStatementsSheet:    getEnv("GOOGLE_STATEMENTS_SHEET", "Statements"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Opening returns the parsed opening balance, zero when it does not parse.
// Validate reports the parse error.
func (c *Config) Opening() core.Money {
	m, err := core.ParseMoney(c.OpeningBalance)
	if err != nil {
		return core.Money{}
	}
	return m
}

// TrustedProxyCIDRs splits TrustedProxies.
func (c *Config) TrustedProxyCIDRs() []string {
	var out []string
	for _, part := range strings.Split(c.TrustedProxies, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SheetsEnabled reports whether a spreadsheet export is configured.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.WriteRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid write rate limit %d: must be at least 1", c.WriteRateLimit))
	}
	for _, cidr := range c.TrustedProxyCIDRs() {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': %v", cidr, err))
		}
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataFile != "" {
		if _, err := os.Stat(c.DataFile); err != nil && !os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("cannot read data file '%s': %v", c.DataFile, err))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate projection settings
	if c.ProjectionMonths < 1 || c.ProjectionMonths > 1200 {
		errors = append(errors, fmt.Sprintf("invalid projection months %d: must be between 1 and 1200", c.ProjectionMonths))
	}
	if c.ProjectionWorkers < 0 {
		errors = append(errors, fmt.Sprintf("invalid projection workers %d: must not be negative", c.ProjectionWorkers))
	}
	if _, err := core.ParseMoney(c.OpeningBalance); err != nil {
		errors = append(errors, fmt.Sprintf("invalid opening balance '%s': %v", c.OpeningBalance, err))
	}
	if _, err := cron.ParseStandard(c.RollSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid roll schedule '%s': %v", c.RollSchedule, err))
	}

	// Validate cache settings
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	// Validate Google Sheets export if enabled
	if c.SheetsEnabled() {
		if c.GoogleProjectionSheet == "" || c.GoogleStatementsSheet == "" {
			errors = append(errors, "Google sheet names cannot be empty when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

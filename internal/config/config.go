package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"detetive/internal/core"
)

// Data domains that can be switched between backends independently.
const (
	DomainUsers         = "users"
	DomainAccounts      = "accounts"
	DomainCategories    = "categories"
	DomainTransactions  = "transactions"
	DomainCards         = "cards"
	DomainBudgets       = "budgets"
	DomainNotifications = "notifications"
)

// Domains lists every switchable domain.
var Domains = []string{
	DomainUsers,
	DomainAccounts,
	DomainCategories,
	DomainTransactions,
	DomainCards,
	DomainBudgets,
	DomainNotifications,
}

// ValidBackends lists the accepted backend names.
var ValidBackends = []string{"memory", "sqlite", "postgres"}

type Config struct {
	// HTTP Server
	Port         string
	LogLevel     string
	RateLimitRPM int
	CacheTTL     time.Duration

	// Backend selection
	DataBackend      string
	DomainBackends   map[string]string
	FeatureFlagsFile string
	MockFixtures     string

	// Database
	SQLiteDBPath string
	DatabaseURL  string

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// AMQP
	AMQPURL         string
	AMQPExchange    string
	AMQPExportQueue string
	AMQPNotifyQueue string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Notifications
	NotifySchedule      string
	BillDueWindowDays   int
	CardWarnPercent     int
	CardCriticalPercent int
	BudgetWarnPercent   int
	DefaultMinBalance   string

	flagsErr error
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 120),
		CacheTTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),

		DataBackend:      getEnv("DATA_BACKEND", "memory"),
		FeatureFlagsFile: getEnv("FEATURE_FLAGS_FILE", ""),
		MockFixtures:     getEnv("MOCK_FIXTURES", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/detetive.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "detetive"),
		AMQPExportQueue: getEnv("AMQP_EXPORT_QUEUE", "export_transactions"),
		AMQPNotifyQueue: getEnv("AMQP_NOTIFY_QUEUE", "notifications"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transacoes"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		NotifySchedule:      getEnv("NOTIFY_SCHEDULE", "@every 1h"),
		BillDueWindowDays:   getEnvInt("BILL_DUE_WINDOW_DAYS", 5),
		CardWarnPercent:     getEnvInt("CARD_WARN_PERCENT", 80),
		CardCriticalPercent: getEnvInt("CARD_CRITICAL_PERCENT", 95),
		BudgetWarnPercent:   getEnvInt("BUDGET_WARN_PERCENT", 80),
		DefaultMinBalance:   getEnv("DEFAULT_MIN_BALANCE", "0"),
	}

	var fileFlags *FlagsFile
	if cfg.FeatureFlagsFile != "" {
		fileFlags, cfg.flagsErr = LoadFlagsFile(cfg.FeatureFlagsFile)
	}
	cfg.DomainBackends = resolveDomainBackends(cfg.DataBackend, fileFlags)

	return cfg
}

// resolveDomainBackends applies env overrides over the flags file over the default.
func resolveDomainBackends(def string, file *FlagsFile) map[string]string {
	if file != nil && file.Default != "" && os.Getenv("DATA_BACKEND") == "" {
		def = file.Default
	}
	out := make(map[string]string, len(Domains))
	for _, d := range Domains {
		backend := def
		if file != nil {
			if v, ok := file.Backends[d]; ok && v != "" {
				backend = v
			}
		}
		if v := os.Getenv("DATA_BACKEND_" + strings.ToUpper(d)); v != "" {
			backend = v
		}
		out[d] = strings.ToLower(strings.TrimSpace(backend))
	}
	return out
}

// BackendFor returns the backend serving the given domain.
func (c *Config) BackendFor(domain string) string {
	if b, ok := c.DomainBackends[domain]; ok && b != "" {
		return b
	}
	return c.DataBackend
}

// Uses reports whether any domain is served by the given backend.
func (c *Config) Uses(backend string) bool {
	for _, d := range Domains {
		if c.BackendFor(d) == backend {
			return true
		}
	}
	return false
}

// DefaultMinBalanceCents parses DefaultMinBalance, returning 0 when invalid.
func (c *Config) DefaultMinBalanceCents() int64 {
	cents, err := core.ParseDecimalToCents(c.DefaultMinBalance)
	if err != nil {
		return 0
	}
	return cents
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.flagsErr != nil {
		errors = append(errors, fmt.Sprintf("cannot load feature flags file '%s': %v", c.FeatureFlagsFile, c.flagsErr))
	}

	if !isValidBackend(c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, ValidBackends))
	}
	for _, d := range Domains {
		if b := c.BackendFor(d); !isValidBackend(b) {
			errors = append(errors, fmt.Sprintf("invalid backend '%s' for domain %s: must be one of %v", b, d, ValidBackends))
		}
	}

	if c.Uses("sqlite") {
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

	if c.Uses("postgres") {
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// or postgresql:// URL")
		}
	}

	if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.JWTTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT TTL %v: must be at least 1 minute", c.JWTTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPExportQueue == "" || c.AMQPNotifyQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := cron.ParseStandard(c.NotifySchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid notify schedule '%s': %v", c.NotifySchedule, err))
	}
	if c.BillDueWindowDays < 0 || c.BillDueWindowDays > 60 {
		errors = append(errors, fmt.Sprintf("invalid bill due window %d: must be between 0 and 60 days", c.BillDueWindowDays))
	}
	for name, pct := range map[string]int{
		"card warn percent":     c.CardWarnPercent,
		"card critical percent": c.CardCriticalPercent,
		"budget warn percent":   c.BudgetWarnPercent,
	} {
		if pct < 1 || pct > 100 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 1 and 100", name, pct))
		}
	}
	if c.CardWarnPercent > c.CardCriticalPercent {
		errors = append(errors, "card warn percent must not exceed card critical percent")
	}
	if _, err := core.ParseDecimalToCents(c.DefaultMinBalance); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default minimum balance '%s'", c.DefaultMinBalance))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}
	if c.CacheTTL < time.Second || c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be between 1 second and 24 hours", c.CacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateExport checks the settings the export worker needs.
func (c *Config) ValidateExport() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the export worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func isValidBackend(b string) bool {
	for _, v := range ValidBackends {
		if b == v {
			return true
		}
	}
	return false
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

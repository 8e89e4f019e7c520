package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/liamashdown/edgescan/internal/secrets"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string `toml:"environment"`
	LogLevel    string `toml:"log_level"`

	// Database (alert ledger, optional)
	DatabaseDSN         string        `toml:"database_dsn"`
	DatabaseMaxConns    int           `toml:"database_max_conns"`
	DatabaseMaxIdleTime time.Duration `toml:"-"`

	// Venues
	GammaAPIBaseURL  string            `toml:"gamma_api_base_url"`
	KalshiAPIBaseURL string            `toml:"kalshi_api_base_url"`
	VenueLimit       int               `toml:"venue_limit"`
	VenueTimeoutSec  int               `toml:"venue_timeout_sec"`
	VenueUserAgent   string            `toml:"venue_user_agent"`
	VenueHeaders     map[string]string `toml:"venue_headers"`

	// Aggregation
	BatchCeiling int `toml:"batch_ceiling"`

	// Scoring oracle
	OracleBaseURL       string `toml:"oracle_base_url"`
	OracleAPIKey        string `toml:"-"`
	OracleModel         string `toml:"oracle_model"`
	OracleTimeoutSec    int    `toml:"oracle_timeout_sec"`
	OracleMaxCandidates int    `toml:"oracle_max_candidates"`

	// Classification
	AlertConfidence int `toml:"alert_confidence"`

	// Alerts
	AlertMode         string   `toml:"alert_mode"` // comma list: log, telegram, discord, smtp
	AlertQueueSize    int      `toml:"alert_queue_size"`
	AlertCooldownMins int      `toml:"alert_cooldown_mins"`
	TelegramBotToken  string   `toml:"-"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"-"`
	SMTPHost          string   `toml:"smtp_host"`
	SMTPPort          int      `toml:"smtp_port"`
	SMTPUser          string   `toml:"smtp_user"`
	SMTPPassword      string   `toml:"-"`
	SMTPFrom          string   `toml:"smtp_from"`
	SMTPTo            []string `toml:"smtp_to"`

	// HTTP
	HTTPPort       int     `toml:"http_port"`
	ScanRatePerSec float64 `toml:"scan_rate_per_sec"` // 0 disables throttling
	ScanBurst      int     `toml:"scan_burst"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Environment:         "production",
		LogLevel:            "info",
		DatabaseMaxConns:    10,
		DatabaseMaxIdleTime: 5 * time.Minute,
		GammaAPIBaseURL:     "https://gamma-api.polymarket.com",
		KalshiAPIBaseURL:    "https://api.elections.kalshi.com/trade-api/v2",
		VenueLimit:          30,
		VenueTimeoutSec:     15,
		VenueUserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		BatchCeiling:        30,
		OracleBaseURL:       "https://api.openai.com/v1",
		OracleModel:         "gpt-4o",
		OracleTimeoutSec:    60,
		OracleMaxCandidates: 10,
		AlertConfidence:     80,
		AlertMode:           "log",
		AlertQueueSize:      64,
		SMTPPort:            587,
		SMTPFrom:            "edgescan@example.com",
		HTTPPort:            8080,
		ScanBurst:           5,
	}
}

// Load builds the configuration from defaults, an optional TOML file, an
// optional .env file and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	// Missing .env is fine
	_ = godotenv.Load()

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.DatabaseDSN = secrets.GetOptionalSecret("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.DatabaseMaxConns = getEnvInt("DATABASE_MAX_CONNS", cfg.DatabaseMaxConns)
	cfg.DatabaseMaxIdleTime = time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", int(cfg.DatabaseMaxIdleTime/time.Minute))) * time.Minute

	cfg.GammaAPIBaseURL = getEnv("GAMMA_API_BASE_URL", cfg.GammaAPIBaseURL)
	cfg.KalshiAPIBaseURL = getEnv("KALSHI_API_BASE_URL", cfg.KalshiAPIBaseURL)
	cfg.VenueLimit = getEnvInt("VENUE_LIMIT", cfg.VenueLimit)
	cfg.VenueTimeoutSec = getEnvInt("VENUE_TIMEOUT_SEC", cfg.VenueTimeoutSec)
	cfg.VenueUserAgent = getEnv("VENUE_USER_AGENT", cfg.VenueUserAgent)

	cfg.BatchCeiling = getEnvInt("BATCH_CEILING", cfg.BatchCeiling)

	cfg.OracleBaseURL = getEnv("ORACLE_BASE_URL", cfg.OracleBaseURL)
	cfg.OracleAPIKey = secrets.GetOptionalSecret("ORACLE_API_KEY", cfg.OracleAPIKey)
	cfg.OracleModel = getEnv("ORACLE_MODEL", cfg.OracleModel)
	cfg.OracleTimeoutSec = getEnvInt("ORACLE_TIMEOUT_SEC", cfg.OracleTimeoutSec)
	cfg.OracleMaxCandidates = getEnvInt("ORACLE_MAX_CANDIDATES", cfg.OracleMaxCandidates)

	cfg.AlertConfidence = getEnvInt("ALERT_CONFIDENCE", cfg.AlertConfidence)

	cfg.AlertMode = getEnv("ALERT_MODE", cfg.AlertMode)
	cfg.AlertQueueSize = getEnvInt("ALERT_QUEUE_SIZE", cfg.AlertQueueSize)
	cfg.AlertCooldownMins = getEnvInt("ALERT_COOLDOWN_MINS", cfg.AlertCooldownMins)
	cfg.TelegramBotToken = secrets.GetOptionalSecret("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", cfg.TelegramChatID)
	cfg.DiscordWebhookURL = secrets.GetOptionalSecret("DISCORD_WEBHOOK_URL", cfg.DiscordWebhookURL)
	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getEnvInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUser = getEnv("SMTP_USER", cfg.SMTPUser)
	cfg.SMTPPassword = secrets.GetOptionalSecret("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPFrom = getEnv("SMTP_FROM", cfg.SMTPFrom)
	if smtpTo := getEnv("SMTP_TO", ""); smtpTo != "" {
		cfg.SMTPTo = parseCSV(smtpTo)
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.ScanRatePerSec = getEnvFloat("SCAN_RATE_PER_SEC", cfg.ScanRatePerSec)
	cfg.ScanBurst = getEnvInt("SCAN_BURST", cfg.ScanBurst)
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.VenueLimit <= 0 {
		return fmt.Errorf("VENUE_LIMIT must be positive, got %d", c.VenueLimit)
	}
	if c.VenueTimeoutSec <= 0 {
		return fmt.Errorf("VENUE_TIMEOUT_SEC must be positive, got %d", c.VenueTimeoutSec)
	}
	if c.BatchCeiling <= 0 {
		return fmt.Errorf("BATCH_CEILING must be positive, got %d", c.BatchCeiling)
	}
	if c.OracleTimeoutSec <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT_SEC must be positive, got %d", c.OracleTimeoutSec)
	}
	if c.OracleMaxCandidates <= 0 {
		return fmt.Errorf("ORACLE_MAX_CANDIDATES must be positive, got %d", c.OracleMaxCandidates)
	}
	if c.AlertConfidence < 0 || c.AlertConfidence > 100 {
		return fmt.Errorf("ALERT_CONFIDENCE must be within 0-100, got %d", c.AlertConfidence)
	}
	if c.AlertQueueSize <= 0 {
		return fmt.Errorf("ALERT_QUEUE_SIZE must be positive, got %d", c.AlertQueueSize)
	}
	if c.AlertCooldownMins < 0 {
		return fmt.Errorf("ALERT_COOLDOWN_MINS must not be negative, got %d", c.AlertCooldownMins)
	}

	if c.ScanRatePerSec < 0 {
		return fmt.Errorf("SCAN_RATE_PER_SEC must not be negative, got %g", c.ScanRatePerSec)
	}

	for _, mode := range c.AlertModes() {
		switch mode {
		case "log", "telegram", "discord", "smtp":
		default:
			return fmt.Errorf("invalid ALERT_MODE value: %s (valid values: log, telegram, discord, smtp)", mode)
		}
	}

	return nil
}

// AlertModes returns the trimmed, non-empty entries of AlertMode
func (c *Config) AlertModes() []string {
	return parseCSV(c.AlertMode)
}

// OracleEnabled reports whether oracle credentials are present
func (c *Config) OracleEnabled() bool {
	return c.OracleAPIKey != ""
}

// TelegramEnabled reports whether Telegram credentials are present
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// DiscordEnabled reports whether a Discord webhook is configured
func (c *Config) DiscordEnabled() bool {
	return c.DiscordWebhookURL != ""
}

// SMTPEnabled reports whether SMTP delivery is configured
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && len(c.SMTPTo) > 0
}

// LedgerEnabled reports whether an alert ledger database is configured
func (c *Config) LedgerEnabled() bool {
	return c.DatabaseDSN != ""
}

// VenueTimeout returns the per-request venue timeout
func (c *Config) VenueTimeout() time.Duration {
	return time.Duration(c.VenueTimeoutSec) * time.Second
}

// OracleTimeout returns the oracle round-trip bound
func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutSec) * time.Second
}

// AlertCooldown returns the alert suppression window (zero disables it)
func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownMins) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

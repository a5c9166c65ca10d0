package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port     string
	LogLevel string

	// Database configuration
	DatabaseURL string

	// Monitoring configuration
	BrandKeywords           []string
	BrandAliases            map[string][]string // brand -> alias terms counted as implied mentions
	WatchKeywords           []string
	MonitoringIntervalHours int
	QueriesPerCycle         int
	BackfillBatchSize       int
	ReportSchedule          string // "daily" or "weekly"

	// Assistant API credentials
	OpenAIAPIKey    string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	MaxTokens       int

	// Notification configuration
	NotificationEmail string
	EmailFrom         string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Report archive configuration
	StorageAccount   string
	StorageContainer string
	ArchiveDir       string

	// Alert thresholds
	NegativeRatioThreshold float64
	MentionSpikeThreshold  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		BrandKeywords:           getSliceEnv("BRAND_KEYWORDS", nil),
		BrandAliases:            getAliasEnv("BRAND_ALIASES"),
		WatchKeywords:           getSliceEnv("WATCH_KEYWORDS", []string{"競合", "ライバル", "代替"}),
		MonitoringIntervalHours: getIntEnv("MONITORING_INTERVAL_HOURS", 3),
		QueriesPerCycle:         getIntEnv("QUERIES_PER_CYCLE", 5),
		BackfillBatchSize:       getIntEnv("BACKFILL_BATCH_SIZE", 100),
		ReportSchedule:          getEnv("REPORT_SCHEDULE", "daily"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		MaxTokens:       getIntEnv("MAX_TOKENS", 1000),

		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		EmailFrom:         getEnv("EMAIL_FROM", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "reports"),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "./reports"),

		NegativeRatioThreshold: getFloatEnv("ALERT_NEGATIVE_RATIO", 0.7),
		MentionSpikeThreshold:  getIntEnv("ALERT_MENTION_SPIKE", 10),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.BrandKeywords) == 0 {
		return fmt.Errorf("BRAND_KEYWORDS must list at least one brand to monitor")
	}

	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.MonitoringIntervalHours < 1 || c.MonitoringIntervalHours > 23 {
		return fmt.Errorf("MONITORING_INTERVAL_HOURS must be between 1 and 23")
	}

	if c.QueriesPerCycle < 1 {
		return fmt.Errorf("QUERIES_PER_CYCLE must be at least 1")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// databaseURLFromParts assembles a connection URL from the individual
// DB_* variables when DATABASE_URL is not set.
func databaseURLFromParts() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("DB_USER", "postgres"), getEnv("DB_PASSWORD", "")),
		Host:     getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432"),
		Path:     getEnv("DB_NAME", "ai_monitoring"),
		RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "disable"),
	}
	return u.String()
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// getAliasEnv parses "Brand:alias1|alias2;Other:alias" into a map.
func getAliasEnv(key string) map[string][]string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	aliases := make(map[string][]string)
	for _, entry := range strings.Split(value, ";") {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}

		brand := strings.TrimSpace(parts[0])
		var terms []string
		for _, term := range strings.Split(parts[1], "|") {
			if term = strings.TrimSpace(term); term != "" {
				terms = append(terms, term)
			}
		}

		if brand != "" && len(terms) > 0 {
			aliases[brand] = terms
		}
	}

	if len(aliases) == 0 {
		return nil
	}
	return aliases
}

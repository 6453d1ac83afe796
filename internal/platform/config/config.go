package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const day = 24 * time.Hour

type Config struct {
	Addr                 string
	Environment          string
	DatabaseURL          string
	DatabasePath         string
	EncryptionKey        string
	OperatorTokenSecret  string
	SenderEmail          string
	SenderName           string
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPUseTLS           bool
	SMTPRetryAttempts    int
	SMTPRetryDelay       time.Duration
	OllamaHost           string
	OllamaModel          string
	OllamaTimeout        time.Duration
	AIEnabled            bool
	AutoSendEnabled      bool
	ReminderDelayDays    int
	EscalationDelayDays  int
	ResponseDeadlineDays int
	DefaultLanguage      string
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	MetricsEnabled       bool
}

// Load reads the process environment after merging a .env file from the
// working directory, if there is one. Real environment variables win.
func Load() Config {
	_ = godotenv.Load(".env")
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		Environment:          getEnv("APP_ENV", "development"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DatabasePath:         getEnv("DATABASE_PATH", "data/gdpr_requests.db"),
		EncryptionKey:        getEnv("ENCRYPTION_KEY", ""),
		OperatorTokenSecret:  getEnv("OPERATOR_TOKEN_SECRET", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", ""),
		SenderName:           getEnv("SENDER_NAME", ""),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:           getEnvBool("SMTP_USE_TLS", true),
		SMTPRetryAttempts:    getEnvInt("SMTP_RETRY_ATTEMPTS", 3),
		SMTPRetryDelay:       getEnvDuration("SMTP_RETRY_DELAY", 2*time.Second),
		OllamaHost:           getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:          getEnv("OLLAMA_MODEL", "llama2"),
		OllamaTimeout:        getEnvDuration("OLLAMA_TIMEOUT", 60*time.Second),
		AIEnabled:            getEnvBool("AI_ENABLED", true),
		AutoSendEnabled:      getEnvBool("AUTO_SEND_ENABLED", false),
		ReminderDelayDays:    getEnvInt("REMINDER_DELAY_DAYS", getEnvInt("RETRY_DELAY_DAYS", 14)),
		EscalationDelayDays:  getEnvInt("ESCALATION_DELAY_DAYS", 30),
		ResponseDeadlineDays: getEnvInt("RESPONSE_DEADLINE_DAYS", 30),
		DefaultLanguage:      strings.ToLower(getEnv("DEFAULT_LANGUAGE", "de")),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) UsePostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}

func (c Config) ReminderDelay() time.Duration {
	return time.Duration(c.ReminderDelayDays) * day
}

func (c Config) EscalationDelay() time.Duration {
	return time.Duration(c.EscalationDelayDays) * day
}

func (c Config) ResponseDeadline() time.Duration {
	return time.Duration(c.ResponseDeadlineDays) * day
}

// Validate covers everything the CLI needs. Server-only settings are checked
// by ValidateServer.
func (c Config) Validate() error {
	if c.DatabaseURL != "" && !c.UsePostgres() {
		return fmt.Errorf("DATABASE_URL must be a postgres:// or postgresql:// URL")
	}
	if !c.UsePostgres() && strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("DATABASE_PATH is required when DATABASE_URL is not set")
	}
	if c.ReminderDelayDays <= 0 {
		return fmt.Errorf("REMINDER_DELAY_DAYS must be positive")
	}
	if c.EscalationDelayDays <= c.ReminderDelayDays {
		return fmt.Errorf("ESCALATION_DELAY_DAYS must be greater than REMINDER_DELAY_DAYS")
	}
	if c.ResponseDeadlineDays < 0 {
		return fmt.Errorf("RESPONSE_DEADLINE_DAYS must not be negative")
	}
	if c.DefaultLanguage != "de" && c.DefaultLanguage != "en" {
		return fmt.Errorf("DEFAULT_LANGUAGE must be de or en")
	}
	if c.SMTPRetryAttempts < 1 {
		return fmt.Errorf("SMTP_RETRY_ATTEMPTS must be at least 1")
	}
	if c.Environment == "production" && strings.TrimSpace(c.EncryptionKey) == "" {
		return fmt.Errorf("ENCRYPTION_KEY must be set in production for encryption at rest")
	}
	return nil
}

func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.OperatorTokenSecret) == "" {
		return fmt.Errorf("OPERATOR_TOKEN_SECRET is required to serve the operator API")
	}
	if c.Environment == "production" && len(c.OperatorTokenSecret) < 32 {
		return fmt.Errorf("OPERATOR_TOKEN_SECRET must be at least 32 characters in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

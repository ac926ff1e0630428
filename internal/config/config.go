package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Session SessionConfig
	Gemini  GeminiConfig
	Report  ReportConfig
	Slack   SlackConfig
	// RulesFile optionally points at a YAML detection-rules override.
	RulesFile string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// AuthConfig holds the static API key callers must present.
type AuthConfig struct {
	APIKey string //nolint:gosec // G117: auth config
}

// SessionConfig holds conversation lifecycle thresholds.
type SessionConfig struct {
	MaxMessages          int
	MinMessagesForReport int
	IdleTimeout          time.Duration
	SweepInterval        time.Duration
}

// GeminiConfig holds reply-generation settings. An empty APIKey disables
// the remote generator and replies come from the local fallback only.
type GeminiConfig struct {
	APIKey string //nolint:gosec // G117: API key config
	Model  string
}

// ReportConfig holds evaluation-callback settings.
type ReportConfig struct {
	CallbackURL string
}

// SlackConfig holds optional operator alerting settings.
type SlackConfig struct {
	BotToken     string
	AlertChannel string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	// Best-effort; a missing .env file is the normal production case.
	_ = godotenv.Load()

	maxMessages, err := getEnvInt("SUNDEW_MAX_MESSAGES", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	minMessages, err := getEnvInt("SUNDEW_MIN_MESSAGES_FOR_REPORT", 3)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	idleTimeout, err := getEnvDuration("SUNDEW_SESSION_TIMEOUT", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepInterval, err := getEnvDuration("SUNDEW_SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("SUNDEW_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("SUNDEW_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("SUNDEW_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("SUNDEW_CORS_ORIGINS", []string{"*"}),
		},
		Auth: AuthConfig{
			APIKey: getEnv("SUNDEW_API_KEY", ""),
		},
		Session: SessionConfig{
			MaxMessages:          maxMessages,
			MinMessagesForReport: minMessages,
			IdleTimeout:          idleTimeout,
			SweepInterval:        sweepInterval,
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("SUNDEW_GEMINI_API_KEY", ""),
			Model:  getEnv("SUNDEW_GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Report: ReportConfig{
			CallbackURL: getEnv("SUNDEW_CALLBACK_URL", ""),
		},
		Slack: SlackConfig{
			BotToken:     getEnv("SUNDEW_SLACK_BOT_TOKEN", ""),
			AlertChannel: getEnv("SUNDEW_SLACK_ALERT_CHANNEL", ""),
		},
		RulesFile: getEnv("SUNDEW_RULES_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Auth.APIKey == "" {
		return errors.New("SUNDEW_API_KEY is required")
	}
	if len(c.Auth.APIKey) < 16 {
		return errors.New("SUNDEW_API_KEY must be at least 16 characters")
	}

	if c.Report.CallbackURL == "" {
		return errors.New("SUNDEW_CALLBACK_URL is required")
	}
	if _, err := url.ParseRequestURI(c.Report.CallbackURL); err != nil {
		return fmt.Errorf("SUNDEW_CALLBACK_URL invalid: %w", err)
	}

	if c.Gemini.APIKey == "" {
		log.Warn().Msg("SUNDEW_GEMINI_API_KEY not set; replies use the local fallback only")
	}

	// Bounds checks.
	if c.Session.MaxMessages < 1 {
		return fmt.Errorf("SUNDEW_MAX_MESSAGES must be >= 1, got %d", c.Session.MaxMessages)
	}
	if c.Session.MinMessagesForReport < 1 {
		return fmt.Errorf("SUNDEW_MIN_MESSAGES_FOR_REPORT must be >= 1, got %d", c.Session.MinMessagesForReport)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("SUNDEW_SESSION_TIMEOUT must be positive, got %s", c.Session.IdleTimeout)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SUNDEW_SWEEP_INTERVAL must be positive, got %s", c.Session.SweepInterval)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("SUNDEW_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("SUNDEW_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Slack.BotToken != "" && c.Slack.AlertChannel == "" {
		return errors.New("SUNDEW_SLACK_ALERT_CHANNEL is required when SUNDEW_SLACK_BOT_TOKEN is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

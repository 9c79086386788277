package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "Bantah"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultPrivyAPIURL    = "https://auth.privy.io"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Identity provider (Privy) credentials for token verification.
	PrivyAppID     string
	PrivyAppSecret string
	PrivyAPIURL    string

	// Session cookie signing and lifetime.
	SessionSecret string
	SessionTTL    time.Duration

	// Telegram bot used for notification delivery. Optional.
	TelegramBotToken string

	// Provider subject ids granted the admin flag on first sign-in.
	AdminIDs []string
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file is honoured when present so local development does not need exported vars.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		PrivyAppID:       os.Getenv("PRIVY_APP_ID"),
		PrivyAppSecret:   os.Getenv("PRIVY_APP_SECRET"),
		PrivyAPIURL:      getEnv("PRIVY_API_URL", defaultPrivyAPIURL),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		SessionTTL:       defaultSessionTTL,
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminIDs:         splitList(os.Getenv("ADMIN_IDS")),
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("IDEMPOTENCY_TTL_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid IDEMPOTENCY_TTL_SECONDS: %w", err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	// Dev runs fall back to in-memory stores, so backing services are only
	// mandatory outside of dev.
	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}
	if cfg.PrivyAppID == "" || cfg.PrivyAppSecret == "" {
		return Config{}, fmt.Errorf("PRIVY_APP_ID and PRIVY_APP_SECRET must be set")
	}
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the provider subject id belongs to a configured admin.
func (c Config) IsAdmin(subject string) bool {
	for _, id := range c.AdminIDs {
		if id == subject {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

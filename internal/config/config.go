// Package config loads portal configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the portal process.
type Config struct {
	Port            int
	LogLevel        string
	ShutdownTimeout time.Duration

	DatabaseURL string
	DBMaxConns  int32

	// Discord. BotToken may be empty: the process still serves the web
	// form and falls back to webhook-only notification delivery.
	DiscordBotToken     string
	DiscordPublicKey    string
	DiscordGuildID      string
	ReviewChannelID     string
	FallbackWebhookURL  string
	ReviewerRoleID      string
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string

	GameVerifyURL string

	SessionSecret string
	SessionTTL    time.Duration
}

// Load reads configuration from the environment. A .env file is applied
// first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		DiscordBotToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordPublicKey:    os.Getenv("DISCORD_PUBLIC_KEY"),
		DiscordGuildID:      os.Getenv("DISCORD_GUILD_ID"),
		ReviewChannelID:     os.Getenv("DISCORD_REVIEW_CHANNEL_ID"),
		FallbackWebhookURL:  os.Getenv("DISCORD_FALLBACK_WEBHOOK_URL"),
		ReviewerRoleID:      os.Getenv("DISCORD_REVIEWER_ROLE_ID"),
		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURL:  os.Getenv("DISCORD_REDIRECT_URL"),
		GameVerifyURL:       os.Getenv("GAME_VERIFY_URL"),
		SessionSecret:       os.Getenv("SESSION_SECRET"),
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", 8081); err != nil {
		return Config{}, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 6)
	if err != nil {
		return Config{}, err
	}
	cfg.DBMaxConns = int32(maxConns)
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET must be set")
	}
	if cfg.GameVerifyURL == "" {
		return Config{}, fmt.Errorf("GAME_VERIFY_URL must be set")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

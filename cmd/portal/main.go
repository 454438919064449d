// Command portal runs the whitelist application intake service: the web
// form API, the identity flows and the Discord review workflow.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"log"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/config"
	"tysmp/whitelist_portal/internal/httpapi"
	"tysmp/whitelist_portal/internal/identity"
	"tysmp/whitelist_portal/internal/logging"
	"tysmp/whitelist_portal/internal/notify"
	"tysmp/whitelist_portal/internal/review"
	"tysmp/whitelist_portal/internal/service"
	"tysmp/whitelist_portal/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	db, err := store.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	// A missing or broken bot session degrades notification delivery; it
	// never blocks the intake API.
	var session *discordgo.Session
	if cfg.DiscordBotToken != "" {
		session, err = discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			logger.Warn("discord session unavailable, running degraded", zap.Error(err))
			session = nil
		} else if err := session.Open(); err != nil {
			logger.Warn("discord gateway connect failed, REST-only mode", zap.Error(err))
		} else {
			defer session.Close()
			logger.Info("discord bot session established")
		}
	} else {
		logger.Warn("DISCORD_BOT_TOKEN not set, review messages degrade to webhook delivery")
	}

	var notifier notify.Notifier
	discordNotifier, err := notify.NewDiscord(session, cfg.ReviewChannelID, cfg.FallbackWebhookURL, logger)
	if err != nil {
		logger.Warn("no notification delivery configured, applications will not be announced", zap.Error(err))
		notifier = notify.Disabled{}
	} else {
		notifier = discordNotifier
	}

	var publicKey ed25519.PublicKey
	if cfg.DiscordPublicKey != "" {
		raw, err := hex.DecodeString(cfg.DiscordPublicKey)
		if err != nil || len(raw) != ed25519.PublicKeySize {
			logger.Fatal("DISCORD_PUBLIC_KEY is not a valid ed25519 public key")
		}
		publicKey = ed25519.PublicKey(raw)
	} else {
		logger.Warn("DISCORD_PUBLIC_KEY not set, interactions endpoint disabled")
	}

	sessions, err := identity.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		logger.Fatal("sessions", zap.Error(err))
	}

	svc := service.New(db, notifier, logger)
	protocol := review.New(db, notifier,
		notify.NewGuildRoles(session, cfg.DiscordGuildID),
		cfg.ReviewerRoleID, logger)
	game := identity.NewHTTPGameVerifier(cfg.GameVerifyURL)
	chat := identity.NewDiscordOAuth(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURL)

	handler := httpapi.NewHandler(svc, protocol, sessions, game, chat, db, publicKey, logger)
	server := httpapi.NewServer(cfg.Port, handler.Routes(), cfg.ShutdownTimeout, logger)

	if err := server.Run(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("portal stopped")
}

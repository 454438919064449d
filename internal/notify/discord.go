package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/application"
)

// deliveryTimeout bounds each chat-platform call so a stalled delivery
// degrades instead of hanging the enclosing request.
const deliveryTimeout = 12 * time.Second

// ErrNoDelivery is returned when neither the bot session nor the fallback
// webhook is available or working.
var ErrNoDelivery = errors.New("no notification delivery path available")

// Discord delivers review messages through a bot session, degrading to a
// plain webhook post when the interactive path fails.
type Discord struct {
	session      *discordgo.Session // nil when the bot could not connect
	rest         *discordgo.Session // always set; used for webhook calls
	channelID    string
	webhookID    string
	webhookToken string
	log          *zap.Logger
}

// NewDiscord builds the notifier. session may be nil (webhook-only
// degraded mode); webhookURL may be empty (no fallback).
func NewDiscord(session *discordgo.Session, channelID, webhookURL string, log *zap.Logger) (*Discord, error) {
	d := &Discord{
		session:   session,
		channelID: channelID,
		log:       log.Named("notify"),
	}
	if webhookURL != "" {
		id, token, err := parseWebhookURL(webhookURL)
		if err != nil {
			return nil, err
		}
		d.webhookID, d.webhookToken = id, token
	}
	if session == nil {
		if d.webhookID == "" {
			return nil, ErrNoDelivery
		}
		// Webhook execution authenticates with the webhook token itself,
		// so an unauthenticated REST session is enough for degraded mode.
		rest, err := discordgo.New("")
		if err != nil {
			return nil, err
		}
		d.rest = rest
	} else {
		d.rest = session
	}
	return d, nil
}

// parseWebhookURL extracts the id and token from a Discord webhook URL of
// the form https://discord.com/api/webhooks/<id>/<token>.
func parseWebhookURL(url string) (id, token string, err error) {
	const marker = "/webhooks/"
	i := strings.Index(url, marker)
	if i < 0 {
		return "", "", fmt.Errorf("not a discord webhook url: %q", url)
	}
	parts := strings.Split(strings.Trim(url[i+len(marker):], "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("not a discord webhook url: %q", url)
	}
	return parts[0], parts[1], nil
}

func (d *Discord) Post(ctx context.Context, app application.Application) (Ref, error) {
	cctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	var primaryErr error
	if d.session != nil && d.channelID != "" {
		msg, err := d.session.ChannelMessageSendComplex(d.channelID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{reviewEmbed(app)},
			Components: reviewComponents(app),
		}, discordgo.WithContext(cctx))
		if err == nil {
			return Ref{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
		}
		primaryErr = err
		d.log.Warn("interactive post failed, falling back to webhook",
			zap.String("application_id", app.ID), zap.Error(err))
	}

	if d.webhookID == "" {
		if primaryErr != nil {
			return Ref{}, primaryErr
		}
		return Ref{}, ErrNoDelivery
	}

	msg, err := d.rest.WebhookExecute(d.webhookID, d.webhookToken, true, &discordgo.WebhookParams{
		Content: fallbackContent(app),
	}, discordgo.WithContext(cctx))
	if err != nil {
		if primaryErr != nil {
			return Ref{}, errors.Join(primaryErr, err)
		}
		return Ref{}, err
	}
	return Ref{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (d *Discord) Update(ctx context.Context, app application.Application) error {
	if app.ChannelID == "" || app.MessageID == "" {
		// The original post never landed; nothing to re-render.
		return nil
	}
	if d.session == nil {
		return ErrNoDelivery
	}

	cctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	embeds := []*discordgo.MessageEmbed{reviewEmbed(app)}
	components := reviewComponents(app)
	_, err := d.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    app.ChannelID,
		ID:         app.MessageID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(cctx))
	return err
}

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ChatProfile is the chat-platform identity obtained from an OAuth code
// exchange.
type ChatProfile struct {
	ChatID   string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Email    string `json:"email"`
}

// ChatExchanger turns an OAuth authorization code into a chat identity.
type ChatExchanger interface {
	Exchange(ctx context.Context, code string) (ChatProfile, error)
}

const discordAPIBase = "https://discord.com/api/v10"

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// DiscordOAuth implements ChatExchanger against Discord's OAuth flow:
// code → access token → users/@me profile.
type DiscordOAuth struct {
	cfg oauth2.Config
}

func NewDiscordOAuth(clientID, clientSecret, redirectURL string) *DiscordOAuth {
	return &DiscordOAuth{cfg: oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     discordEndpoint,
		Scopes:       []string{"identify", "email"},
	}}
}

func (d *DiscordOAuth) Exchange(ctx context.Context, code string) (ChatProfile, error) {
	cctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	token, err := d.cfg.Exchange(cctx, code)
	if err != nil {
		return ChatProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	client := d.cfg.Client(cctx, token)
	client.Timeout = verifyTimeout
	req, err := http.NewRequestWithContext(cctx, http.MethodGet, discordAPIBase+"/users/@me", nil)
	if err != nil {
		return ChatProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return ChatProfile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ChatProfile{}, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}

	var profile ChatProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return ChatProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	if profile.ChatID == "" {
		return ChatProfile{}, fmt.Errorf("fetch profile: empty user id")
	}
	return profile, nil
}

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GameProfile is the verified identity payload the game platform returns
// for a login ticket.
type GameProfile struct {
	GameID      string `json:"gameId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// GameVerifier exchanges a login ticket for a verified game identity.
type GameVerifier interface {
	Verify(ctx context.Context, ticket string) (GameProfile, error)
}

// verifyTimeout bounds the identity-provider round trip; a timeout is a
// recoverable failure of this login attempt, not of the process.
const verifyTimeout = 12 * time.Second

// HTTPGameVerifier calls the game platform's ticket-verification
// endpoint.
type HTTPGameVerifier struct {
	verifyURL string
	client    *http.Client
}

func NewHTTPGameVerifier(verifyURL string) *HTTPGameVerifier {
	return &HTTPGameVerifier{
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: verifyTimeout},
	}
}

func (v *HTTPGameVerifier) Verify(ctx context.Context, ticket string) (GameProfile, error) {
	body := strings.NewReader(fmt.Sprintf(`{"ticket":%q}`, ticket))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, body)
	if err != nil {
		return GameProfile{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return GameProfile{}, fmt.Errorf("verify ticket: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return GameProfile{}, fmt.Errorf("verify ticket: status %d", resp.StatusCode)
	}

	var profile GameProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return GameProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	if profile.GameID == "" {
		return GameProfile{}, fmt.Errorf("verify ticket: empty game id")
	}
	return profile, nil
}

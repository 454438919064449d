// Package identity binds the two external identities (game platform and
// chat platform) into one session and issues the bearer tokens protecting
// the portal API.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for missing, malformed or expired tokens.
var ErrInvalidSession = errors.New("invalid or expired session")

// Identity is the session payload. GameID is the primary identity and is
// always present; ChatID is the optional linked chat-platform identity.
type Identity struct {
	GameID      string `json:"gameId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	ChatID      string `json:"chatId,omitempty"`
	ChatName    string `json:"chatName,omitempty"`
}

type sessionClaims struct {
	DisplayName string `json:"name"`
	AvatarURL   string `json:"avatar,omitempty"`
	ChatID      string `json:"chat_id,omitempty"`
	ChatName    string `json:"chat_name,omitempty"`
	jwt.RegisteredClaims
}

// Sessions mints and validates HS256 session tokens. Linking or
// unlinking the chat identity re-issues the token; the primary identity
// survives both.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a bearer token for the identity.
func (s *Sessions) Issue(id Identity) (string, error) {
	if id.GameID == "" {
		return "", errors.New("game identity required")
	}
	now := time.Now()
	claims := sessionClaims{
		DisplayName: id.DisplayName,
		AvatarURL:   id.AvatarURL,
		ChatID:      id.ChatID,
		ChatName:    id.ChatName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.GameID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates a bearer token and extracts the identity.
func (s *Sessions) Verify(token string) (Identity, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidSession
	}
	return Identity{
		GameID:      claims.Subject,
		DisplayName: claims.DisplayName,
		AvatarURL:   claims.AvatarURL,
		ChatID:      claims.ChatID,
		ChatName:    claims.ChatName,
	}, nil
}

// Link attaches the chat identity and re-issues the token.
func (s *Sessions) Link(id Identity, chatID, chatName string) (Identity, string, error) {
	id.ChatID = chatID
	id.ChatName = chatName
	tok, err := s.Issue(id)
	return id, tok, err
}

// Unlink detaches the chat identity and re-issues the token. The primary
// identity is untouched.
func (s *Sessions) Unlink(id Identity) (Identity, string, error) {
	id.ChatID = ""
	id.ChatName = ""
	tok, err := s.Issue(id)
	return id, tok, err
}

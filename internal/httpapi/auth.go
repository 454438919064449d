package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/identity"
)

type ctxKey int

const identityKey ctxKey = iota

// sessionIdentity returns the authenticated identity stored by
// requireSession.
func sessionIdentity(ctx context.Context) identity.Identity {
	id, _ := ctx.Value(identityKey).(identity.Identity)
	return id
}

// requireSession validates the bearer token and attaches the identity to
// the request context.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, err := h.sessions.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

type sessionResponse struct {
	Token    string            `json:"token"`
	Identity identity.Identity `json:"identity"`
}

// gameCallback finishes the game-platform login: the ticket from the
// provider redirect is verified and exchanged for a session token.
func (h *Handler) gameCallback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Ticket == "" {
		writeError(w, http.StatusBadRequest, "ticket required")
		return
	}

	profile, err := h.game.Verify(r.Context(), body.Ticket)
	if err != nil {
		h.log.Warn("game identity verification failed", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "could not verify login ticket")
		return
	}

	id := identity.Identity{
		GameID:      profile.GameID,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}
	token, err := h.sessions.Issue(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Identity: id})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionIdentity(r.Context()))
}

// linkDiscord attaches the chat identity to the session via the OAuth
// code exchange and re-issues the token.
func (h *Handler) linkDiscord(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return
	}

	profile, err := h.chat.Exchange(r.Context(), body.Code)
	if err != nil {
		h.log.Warn("chat identity exchange failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not link chat account")
		return
	}

	id, token, err := h.sessions.Link(sessionIdentity(r.Context()), profile.ChatID, profile.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not update session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Identity: id})
}

// unlinkDiscord detaches the chat identity; the game identity and the
// session itself survive.
func (h *Handler) unlinkDiscord(w http.ResponseWriter, r *http.Request) {
	id, token, err := h.sessions.Unlink(sessionIdentity(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not update session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Identity: id})
}

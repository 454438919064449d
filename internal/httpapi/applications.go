package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/application"
	"tysmp/whitelist_portal/internal/service"
	"tysmp/whitelist_portal/internal/store"
)

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var form application.SubmitForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	// Auto-fill identities from the session when the form omits them.
	id := sessionIdentity(r.Context())
	if form.GameID == "" {
		form.GameID = id.GameID
	}
	if form.ChatID == "" {
		form.ChatID = id.ChatID
	}

	meta := service.RequestMeta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	app, err := h.svc.Submit(ctx, form, meta)
	if err != nil {
		var verr *application.ValidationError
		if errors.As(err, &verr) {
			writeFieldErrors(w, verr.Fields)
			return
		}
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":  conflict.Error(),
				"status": string(conflict.Status),
			})
			return
		}
		h.log.Error("submission failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "could not store application, try again later")
		return
	}

	writeJSON(w, http.StatusCreated, app.Public())
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	app, err := h.svc.Status(r.Context(), gameID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no application found for this game id")
		return
	}
	if err != nil {
		h.log.Error("status lookup failed", zap.String("game_id", gameID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "could not look up application")
		return
	}
	writeJSON(w, http.StatusOK, app.Public())
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	var status *application.Status
	if raw := q.Get("status"); raw != "" {
		st := application.Status(raw)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "status must be pending, approved or rejected")
			return
		}
		status = &st
	}

	hist, err := h.svc.History(r.Context(), identifier, page, limit, status)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no applications found for this identifier")
		return
	}
	if err != nil {
		h.log.Error("history lookup failed", zap.String("identifier", identifier), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "could not look up application history")
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

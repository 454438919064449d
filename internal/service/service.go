// Package service orchestrates the application lifecycle: gated
// submission, status lookup and history projection. Review transitions
// live in the review package.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/application"
	"tysmp/whitelist_portal/internal/notify"
	"tysmp/whitelist_portal/internal/store"
)

// ConflictError reports that the chat identity already holds an active
// application. The message distinguishes pending from approved so the
// applicant knows whether to wait or stop.
type ConflictError struct {
	Status application.Status
}

func (e *ConflictError) Error() string {
	if e.Status == application.StatusApproved {
		return "an application for this account has already been approved"
	}
	return "an application for this account is already pending review"
}

// RequestMeta carries audit-only request attributes.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Service wires the store and the notification channel together.
type Service struct {
	store    store.ApplicationStore
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func New(st store.ApplicationStore, n notify.Notifier, log *zap.Logger) *Service {
	return &Service{
		store:    st,
		notifier: n,
		log:      log.Named("service"),
		now:      time.Now,
	}
}

// Submit validates the form, enforces the one-active-application rule and
// persists the record. The review notification is posted best-effort: its
// failure is logged, never returned, and the record stands either way.
func (s *Service) Submit(ctx context.Context, form application.SubmitForm, meta RequestMeta) (application.Application, error) {
	now := s.now().UTC()

	birth, err := form.Validate(now)
	if err != nil {
		return application.Application{}, err
	}

	// Gate check first for a friendly conflict message. The partial
	// unique index behind Create is the authoritative backstop against
	// a concurrent duplicate slipping past this read.
	if existing, err := s.store.FindActiveByChatID(ctx, form.ChatID); err == nil {
		return application.Application{}, &ConflictError{Status: existing.Status}
	} else if !errors.Is(err, store.ErrNotFound) {
		return application.Application{}, fmt.Errorf("gate lookup: %w", err)
	}

	app := application.Application{
		ID:            uuid.NewString(),
		ChatID:        form.ChatID,
		GameID:        form.GameID,
		CharacterName: form.CharacterName,
		BirthDate:     birth,
		Backstory:     form.Backstory,
		Reason:        form.Reason,
		Status:        application.StatusPending,
		SubmittedAt:   now,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	}

	created, err := s.store.Create(ctx, app)
	if err != nil {
		var dup *store.DuplicateActiveError
		if errors.As(err, &dup) {
			return application.Application{}, &ConflictError{Status: dup.Status}
		}
		return application.Application{}, fmt.Errorf("create application: %w", err)
	}

	ref, err := s.notifier.Post(ctx, created)
	if err != nil {
		s.log.Warn("review notification failed, application stands",
			zap.String("application_id", created.ID), zap.Error(err))
		return created, nil
	}
	if err := s.store.SetNotificationRef(ctx, created.ID, ref.ChannelID, ref.MessageID); err != nil {
		s.log.Warn("could not record notification reference",
			zap.String("application_id", created.ID), zap.Error(err))
		return created, nil
	}
	created.ChannelID = ref.ChannelID
	created.MessageID = ref.MessageID
	return created, nil
}

// Status returns the newest application for a game identity.
func (s *Service) Status(ctx context.Context, gameID string) (application.Application, error) {
	return s.store.LatestByGameID(ctx, gameID)
}

// Pagination describes one page of history results.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// History is the paginated, filtered projection of one identity's
// applications, with unfiltered per-status counts alongside.
type History struct {
	Applications []application.Public `json:"applications"`
	Pagination   Pagination           `json:"pagination"`
	Summary      store.StatusCounts   `json:"summary"`
}

// History lists applications whose chat or game identity matches
// identifier. It returns store.ErrNotFound only when the identifier has
// no applications at all; a filter that narrows to an empty page is a
// normal empty result.
func (s *Service) History(ctx context.Context, identifier string, page, limit int, status *application.Status) (History, error) {
	counts, err := s.store.CountByStatus(ctx, identifier)
	if err != nil {
		return History{}, fmt.Errorf("count history: %w", err)
	}
	if counts.Total == 0 {
		return History{}, store.ErrNotFound
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	apps, filteredTotal, err := s.store.List(ctx, identifier, store.Filter{
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return History{}, fmt.Errorf("list history: %w", err)
	}

	out := History{
		Applications: make([]application.Public, 0, len(apps)),
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      filteredTotal,
			TotalPages: (filteredTotal + limit - 1) / limit,
		},
		Summary: counts,
	}
	for _, a := range apps {
		out.Applications = append(out.Applications, a.Public())
	}
	return out, nil
}

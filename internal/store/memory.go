package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tysmp/whitelist_portal/internal/application"
)

// Memory is a thread-safe in-memory ApplicationStore. It is intended for
// tests and deliberately keeps the implementation simple, but it enforces
// the same one-active-application-per-chat-identity constraint and the
// same conditional transition as the Postgres store.
type Memory struct {
	mu   sync.RWMutex
	apps map[string]application.Application
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{apps: make(map[string]application.Application)}
}

func (m *Memory) Create(_ context.Context, app application.Application) (application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.apps {
		if existing.ChatID != app.ChatID {
			continue
		}
		if existing.Status == application.StatusPending || existing.Status == application.StatusApproved {
			return application.Application{}, &DuplicateActiveError{Status: existing.Status}
		}
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	m.apps[app.ID] = app
	return app, nil
}

func (m *Memory) Get(_ context.Context, id string) (application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.apps[id]
	if !ok {
		return application.Application{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) FindActiveByChatID(_ context.Context, chatID string) (application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.apps {
		if a.ChatID == chatID && (a.Status == application.StatusPending || a.Status == application.StatusApproved) {
			return a, nil
		}
	}
	return application.Application{}, ErrNotFound
}

func (m *Memory) LatestByGameID(_ context.Context, gameID string) (application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *application.Application
	for _, a := range m.apps {
		if a.GameID != gameID {
			continue
		}
		a := a
		if latest == nil || a.SubmittedAt.After(latest.SubmittedAt) {
			latest = &a
		}
	}
	if latest == nil {
		return application.Application{}, ErrNotFound
	}
	return *latest, nil
}

func (m *Memory) List(_ context.Context, identifier string, f Filter) ([]application.Application, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []application.Application
	for _, a := range m.apps {
		if a.ChatID != identifier && a.GameID != identifier {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})

	total := len(matched)
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *Memory) CountByStatus(_ context.Context, identifier string) (StatusCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var counts StatusCounts
	for _, a := range m.apps {
		if a.ChatID != identifier && a.GameID != identifier {
			continue
		}
		counts.Total++
		switch a.Status {
		case application.StatusPending:
			counts.Pending++
		case application.StatusApproved:
			counts.Approved++
		case application.StatusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

func (m *Memory) SetNotificationRef(_ context.Context, id, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return ErrNotFound
	}
	if a.MessageID != "" {
		return nil
	}
	a.ChannelID = channelID
	a.MessageID = messageID
	m.apps[id] = a
	return nil
}

func (m *Memory) Transition(_ context.Context, id string, to application.Status, by application.Reviewer, feedback string, at time.Time) (application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.apps[id]
	if !ok {
		return application.Application{}, ErrNotFound
	}
	if a.Status != application.StatusPending {
		return application.Application{}, &AlreadyDecidedError{Status: a.Status}
	}
	a.Status = to
	a.Feedback = feedback
	at = at.UTC()
	a.ReviewedAt = &at
	reviewer := by
	a.ReviewedBy = &reviewer
	m.apps[id] = a
	return a, nil
}

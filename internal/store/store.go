// Package store persists whitelist applications. The Postgres
// implementation is authoritative; the in-memory one backs tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tysmp/whitelist_portal/internal/application"
)

var (
	// ErrNotFound is returned when no application matches the query.
	ErrNotFound = errors.New("application not found")

	// ErrUnavailable wraps persistence-layer outages so handlers can
	// answer 503 instead of a generic server error.
	ErrUnavailable = errors.New("store unavailable")
)

// AlreadyDecidedError is returned by Transition when the record has
// already left pending. The transition is not applied.
type AlreadyDecidedError struct {
	Status application.Status
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("application already %s", e.Status)
}

// DuplicateActiveError is returned by Create when the chat identity
// already has a pending or approved application.
type DuplicateActiveError struct {
	Status application.Status
}

func (e *DuplicateActiveError) Error() string {
	return fmt.Sprintf("active application already exists (%s)", e.Status)
}

// Filter narrows List results.
type Filter struct {
	Status *application.Status
	Page   int
	Limit  int
}

// StatusCounts aggregates an identifier's applications by status,
// regardless of any List filter.
type StatusCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ApplicationStore is the persistence contract for the application
// lifecycle. All methods are safe for concurrent use.
type ApplicationStore interface {
	// Create persists a new record. Returns DuplicateActiveError when the
	// chat identity already holds a pending or approved application; the
	// backing uniqueness constraint is the authoritative check.
	Create(ctx context.Context, app application.Application) (application.Application, error)

	Get(ctx context.Context, id string) (application.Application, error)

	// FindActiveByChatID returns the pending or approved application for
	// a chat identity, or ErrNotFound.
	FindActiveByChatID(ctx context.Context, chatID string) (application.Application, error)

	// LatestByGameID returns the newest application for a game identity.
	LatestByGameID(ctx context.Context, gameID string) (application.Application, error)

	// List returns applications whose chat or game identity equals
	// identifier, newest first, plus the total count under the filter.
	List(ctx context.Context, identifier string, f Filter) ([]application.Application, int, error)

	// CountByStatus aggregates all of an identifier's applications.
	CountByStatus(ctx context.Context, identifier string) (StatusCounts, error)

	// SetNotificationRef records the posted review message, once.
	SetNotificationRef(ctx context.Context, id, channelID, messageID string) error

	// Transition moves a pending record to a terminal status, stamping
	// reviewer and feedback, as a single conditional update. Returns
	// AlreadyDecidedError if the record is no longer pending, ErrNotFound
	// if it does not exist.
	Transition(ctx context.Context, id string, to application.Status, by application.Reviewer, feedback string, at time.Time) (application.Application, error)
}

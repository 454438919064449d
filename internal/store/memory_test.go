package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tysmp/whitelist_portal/internal/application"
)

func newApp(chatID, gameID string, status application.Status, submitted time.Time) application.Application {
	return application.Application{
		ChatID:        chatID,
		GameID:        gameID,
		CharacterName: "Anna",
		BirthDate:     time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Backstory:     "backstory",
		Reason:        "reason",
		Status:        status,
		SubmittedAt:   submitted,
	}
}

func TestMemoryCreateEnforcesActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	_, err := m.Create(ctx, newApp("u1", "g1000", application.StatusPending, now))
	require.NoError(t, err)

	_, err = m.Create(ctx, newApp("u1", "g1001", application.StatusPending, now))
	var dup *DuplicateActiveError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, application.StatusPending, dup.Status)

	// A rejected record does not block a new submission.
	m2 := NewMemory()
	rejected, err := m2.Create(ctx, newApp("u2", "g2000", application.StatusPending, now))
	require.NoError(t, err)
	_, err = m2.Transition(ctx, rejected.ID, application.StatusRejected, application.Reviewer{ID: "mod"}, "no", now)
	require.NoError(t, err)
	_, err = m2.Create(ctx, newApp("u2", "g2000", application.StatusPending, now))
	assert.NoError(t, err)
}

func TestMemoryTransition(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	created, err := m.Create(ctx, newApp("u1", "g1000", application.StatusPending, now))
	require.NoError(t, err)

	decided := now.Add(time.Minute)
	approved, err := m.Transition(ctx, created.ID, application.StatusApproved,
		application.Reviewer{ID: "mod1", DisplayName: "Mod"}, "", decided)
	require.NoError(t, err)
	assert.Equal(t, application.StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)
	assert.Equal(t, decided, *approved.ReviewedAt)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, "mod1", approved.ReviewedBy.ID)

	// Second activation is rejected with the current status, untouched.
	_, err = m.Transition(ctx, created.ID, application.StatusRejected,
		application.Reviewer{ID: "mod2"}, "late", decided.Add(time.Minute))
	var already *AlreadyDecidedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, application.StatusApproved, already.Status)

	stored, err := m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "mod1", stored.ReviewedBy.ID)
	assert.Equal(t, decided, *stored.ReviewedAt)

	_, err = m.Transition(ctx, "missing", application.StatusApproved, application.Reviewer{}, "", decided)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryListAndCounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Three records for u1, separated in time; one of them rejected.
	first, err := m.Create(ctx, newApp("u1", "g1000", application.StatusPending, base))
	require.NoError(t, err)
	_, err = m.Transition(ctx, first.ID, application.StatusRejected, application.Reviewer{ID: "mod"}, "no", base.Add(time.Hour))
	require.NoError(t, err)

	second, err := m.Create(ctx, newApp("u1", "g1000", application.StatusPending, base.Add(24*time.Hour)))
	require.NoError(t, err)
	_, err = m.Transition(ctx, second.ID, application.StatusApproved, application.Reviewer{ID: "mod"}, "", base.Add(25*time.Hour))
	require.NoError(t, err)

	_, err = m.Create(ctx, newApp("other", "g9999", application.StatusPending, base))
	require.NoError(t, err)

	apps, total, err := m.List(ctx, "u1", Filter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, apps, 2)
	assert.True(t, apps[0].SubmittedAt.After(apps[1].SubmittedAt), "newest first")

	// Identifier also matches the game identity.
	_, total, err = m.List(ctx, "g1000", Filter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	st := application.StatusApproved
	apps, total, err = m.List(ctx, "u1", Filter{Status: &st, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, apps, 1)
	assert.Equal(t, application.StatusApproved, apps[0].Status)

	counts, err := m.CountByStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusCounts{Total: 2, Approved: 1, Rejected: 1}, counts)

	// Page past the end is a normal empty page.
	apps, total, err = m.List(ctx, "u1", Filter{Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, apps)
}

func TestMemorySetNotificationRefOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.Create(ctx, newApp("u1", "g1000", application.StatusPending, time.Now()))
	require.NoError(t, err)

	require.NoError(t, m.SetNotificationRef(ctx, created.ID, "chan1", "msg1"))
	require.NoError(t, m.SetNotificationRef(ctx, created.ID, "chan2", "msg2"))

	got, err := m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "chan1", got.ChannelID)
	assert.Equal(t, "msg1", got.MessageID)

	assert.True(t, errors.Is(m.SetNotificationRef(ctx, "missing", "c", "m"), ErrNotFound))
}

package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/application"
	"tysmp/whitelist_portal/internal/notify"
	"tysmp/whitelist_portal/internal/store"
)

type fakeNotifier struct {
	updateErr error
	updated   []application.Application
}

func (f *fakeNotifier) Post(context.Context, application.Application) (notify.Ref, error) {
	return notify.Ref{}, nil
}

func (f *fakeNotifier) Update(_ context.Context, app application.Application) error {
	f.updated = append(f.updated, app)
	return f.updateErr
}

type fakeRoles struct {
	roles map[string][]string
	err   error
}

func (f *fakeRoles) MemberRoles(_ context.Context, userID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[userID], nil
}

const reviewerRole = "role-reviewer"

func pendingApp(t *testing.T, st *store.Memory) application.Application {
	t.Helper()
	app, err := st.Create(context.Background(), application.Application{
		ChatID:        "u1",
		GameID:        "g1000",
		CharacterName: "Anna",
		BirthDate:     time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Backstory:     "backstory",
		Reason:        "reason",
		Status:        application.StatusPending,
		SubmittedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	return app
}

func newProtocol(t *testing.T) (*Protocol, *store.Memory, *fakeNotifier) {
	t.Helper()
	st := store.NewMemory()
	n := &fakeNotifier{}
	p := New(st, n, &fakeRoles{}, reviewerRole, zap.NewNop())
	return p, st, n
}

func approveEvent(appID string, roles ...string) ControlActivated {
	return ControlActivated{
		Control: notify.ControlApprove,
		AppID:   appID,
		Actor:   Actor{ID: "mod1", DisplayName: "Mod"},
		Roles:   roles,
	}
}

func TestHandlePing(t *testing.T) {
	p, _, _ := newProtocol(t)
	resp := p.Handle(context.Background(), Ping{})
	assert.Equal(t, RespondPong, resp.Kind)
}

func TestApproveTransitionsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	p, st, n := newProtocol(t)
	app := pendingApp(t, st)

	resp := p.Handle(ctx, approveEvent(app.ID, reviewerRole))
	assert.Equal(t, RespondMessage, resp.Kind)
	assert.Contains(t, resp.Text, "approved")

	stored, err := st.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusApproved, stored.Status)
	require.NotNil(t, stored.ReviewedAt)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, "mod1", stored.ReviewedBy.ID)
	assert.Equal(t, "Mod", stored.ReviewedBy.DisplayName)

	// The notification was re-rendered with the decided record.
	require.Len(t, n.updated, 1)
	assert.Equal(t, application.StatusApproved, n.updated[0].Status)

	// Second activation: safe no-op with an informative ack.
	firstReviewedAt := *stored.ReviewedAt
	resp = p.Handle(ctx, approveEvent(app.ID, reviewerRole))
	assert.Equal(t, RespondMessage, resp.Kind)
	assert.Contains(t, resp.Text, "already approved")

	stored, err = st.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, firstReviewedAt, *stored.ReviewedAt, "reviewedAt never reapplied")
	assert.Len(t, n.updated, 1, "no re-render on a no-op")
}

func TestRejectCollectsReasonBeforeMutating(t *testing.T) {
	ctx := context.Background()
	p, st, _ := newProtocol(t)
	app := pendingApp(t, st)

	resp := p.Handle(ctx, ControlActivated{
		Control: notify.ControlReject,
		AppID:   app.ID,
		Actor:   Actor{ID: "mod1"},
		Roles:   []string{reviewerRole},
	})
	assert.Equal(t, RespondDialog, resp.Kind)
	assert.Equal(t, app.ID, resp.DialogAppID)

	// Opening the dialog must not touch the record.
	stored, err := st.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, stored.Status)
	assert.Nil(t, stored.ReviewedAt)

	resp = p.Handle(ctx, DialogSubmitted{
		AppID:  app.ID,
		Actor:  Actor{ID: "mod1", DisplayName: "Mod"},
		Roles:  []string{reviewerRole},
		Reason: "Thiếu thông tin",
	})
	assert.Equal(t, RespondMessage, resp.Kind)
	assert.Contains(t, resp.Text, "rejected")

	stored, err = st.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusRejected, stored.Status)
	assert.Equal(t, "Thiếu thông tin", stored.Feedback)
	require.NotNil(t, stored.ReviewedAt)
}

func TestRejectWithEmptyReason(t *testing.T) {
	ctx := context.Background()
	p, st, _ := newProtocol(t)
	app := pendingApp(t, st)

	resp := p.Handle(ctx, DialogSubmitted{
		AppID: app.ID,
		Actor: Actor{ID: "mod1"},
		Roles: []string{reviewerRole},
	})
	assert.Contains(t, resp.Text, "rejected")

	stored, err := st.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusRejected, stored.Status)
	assert.Equal(t, "", stored.Feedback)
}

func TestUnauthorizedActorMutatesNothing(t *testing.T) {
	ctx := context.Background()
	p, st, n := newProtocol(t)
	app := pendingApp(t, st)

	for _, ev := range []Event{
		approveEvent(app.ID, "some-other-role"),
		ControlActivated{Control: notify.ControlReject, AppID: app.ID, Actor: Actor{ID: "x"}, Roles: []string{"nope"}},
		DialogSubmitted{AppID: app.ID, Actor: Actor{ID: "x"}, Roles: []string{"nope"}, Reason: "r"},
	} {
		resp := p.Handle(ctx, ev)
		assert.Equal(t, RespondMessage, resp.Kind)
		assert.Contains(t, resp.Text, "permission")
	}

	stored, err := st.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, stored.Status)
	assert.Empty(t, n.updated)
}

func TestUnconfiguredRoleIsPermissive(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	p := New(st, &fakeNotifier{}, &fakeRoles{}, "", zap.NewNop())
	app := pendingApp(t, st)

	resp := p.Handle(ctx, approveEvent(app.ID))
	assert.Contains(t, resp.Text, "approved")
}

func TestRolesFetchedLiveWhenPayloadOmitsThem(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	roles := &fakeRoles{roles: map[string][]string{"mod1": {reviewerRole}}}
	p := New(st, &fakeNotifier{}, roles, reviewerRole, zap.NewNop())
	app := pendingApp(t, st)

	resp := p.Handle(ctx, approveEvent(app.ID))
	assert.Contains(t, resp.Text, "approved")

	// A failing lookup denies rather than allows.
	roles.err = errors.New("gateway down")
	resp = p.Handle(ctx, ControlActivated{Control: notify.ControlApprove, AppID: app.ID, Actor: Actor{ID: "mod1"}})
	assert.Contains(t, resp.Text, "permission")
}

func TestStaleControlAcksNotFound(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newProtocol(t)

	resp := p.Handle(ctx, approveEvent("stale-id", reviewerRole))
	assert.Equal(t, RespondMessage, resp.Kind)
	assert.Contains(t, resp.Text, "no longer exists")

	resp = p.Handle(ctx, ControlActivated{Control: notify.ControlReject, AppID: "stale-id", Actor: Actor{ID: "m"}, Roles: []string{reviewerRole}})
	assert.Contains(t, resp.Text, "no longer exists")
}

func TestRerenderFailureLeavesMutationStanding(t *testing.T) {
	ctx := context.Background()
	p, st, n := newProtocol(t)
	n.updateErr = errors.New("message deleted")
	app := pendingApp(t, st)

	resp := p.Handle(ctx, approveEvent(app.ID, reviewerRole))
	assert.Contains(t, resp.Text, "approved")

	stored, err := st.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusApproved, stored.Status, "record is the source of truth")
}

func TestRejectDialogOnDecidedRecord(t *testing.T) {
	ctx := context.Background()
	p, st, _ := newProtocol(t)
	app := pendingApp(t, st)

	p.Handle(ctx, approveEvent(app.ID, reviewerRole))

	resp := p.Handle(ctx, ControlActivated{
		Control: notify.ControlReject,
		AppID:   app.ID,
		Actor:   Actor{ID: "mod2"},
		Roles:   []string{reviewerRole},
	})
	assert.Equal(t, RespondMessage, resp.Kind)
	assert.Contains(t, resp.Text, "already approved")

	// A dialog submitted after another reviewer decided also no-ops.
	resp = p.Handle(ctx, DialogSubmitted{AppID: app.ID, Actor: Actor{ID: "mod2"}, Roles: []string{reviewerRole}, Reason: "late"})
	assert.Contains(t, resp.Text, "already approved")

	stored, err := st.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusApproved, stored.Status)
	assert.Empty(t, stored.Feedback)
}

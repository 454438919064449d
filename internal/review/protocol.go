package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/application"
	"tysmp/whitelist_portal/internal/notify"
	"tysmp/whitelist_portal/internal/store"
)

// RoleSource resolves a member's current roles when the interaction
// payload does not carry them (uncached members, some DM contexts).
type RoleSource interface {
	MemberRoles(ctx context.Context, userID string) ([]string, error)
}

// ResponseKind selects how the webhook handler answers the interaction.
type ResponseKind int

const (
	// RespondPong answers the platform's verification ping.
	RespondPong ResponseKind = iota
	// RespondMessage sends an ephemeral acknowledgment to the actor.
	RespondMessage
	// RespondDialog opens the rejection-reason dialog. No record
	// mutation has happened yet; the dialog state lives entirely in the
	// platform's interaction context.
	RespondDialog
)

// Response is the protocol's answer to one interaction event.
type Response struct {
	Kind        ResponseKind
	Text        string
	DialogAppID string
}

// Protocol is the review state machine. It authorizes the actor, applies
// the pending→terminal transition through the store's conditional update
// and re-renders the notification afterwards.
type Protocol struct {
	store        store.ApplicationStore
	notifier     notify.Notifier
	roles        RoleSource
	reviewerRole string
	log          *zap.Logger
	now          func() time.Time
}

// New builds the protocol. reviewerRole may be empty, which leaves the
// guard permissive; this is logged as a degraded security posture.
func New(st store.ApplicationStore, n notify.Notifier, roles RoleSource, reviewerRole string, log *zap.Logger) *Protocol {
	p := &Protocol{
		store:        st,
		notifier:     n,
		roles:        roles,
		reviewerRole: reviewerRole,
		log:          log.Named("review"),
		now:          time.Now,
	}
	if reviewerRole == "" {
		p.log.Warn("reviewer role not configured, review controls are open to everyone")
	}
	return p
}

func message(format string, args ...any) Response {
	return Response{Kind: RespondMessage, Text: fmt.Sprintf(format, args...)}
}

// Handle runs one interaction event through the state machine. It always
// produces a response for the actor; mutation failures below the
// transition itself never surface as actor-facing errors.
func (p *Protocol) Handle(ctx context.Context, ev Event) Response {
	switch e := ev.(type) {
	case Ping:
		return Response{Kind: RespondPong}

	case ControlActivated:
		if !p.authorized(ctx, e.Actor, e.Roles) {
			return message("You don't have permission to review applications.")
		}
		switch e.Control {
		case notify.ControlApprove:
			return p.approve(ctx, e)
		case notify.ControlReject:
			return p.openDialog(ctx, e)
		}
		return message("Unknown control.")

	case DialogSubmitted:
		// Re-checked: role membership may have changed while the dialog
		// was open.
		if !p.authorized(ctx, e.Actor, e.Roles) {
			return message("You don't have permission to review applications.")
		}
		return p.reject(ctx, e)
	}
	return message("Unsupported interaction.")
}

// authorized checks the reviewer role against the actor's memberships at
// the moment of the event, never from a cache.
func (p *Protocol) authorized(ctx context.Context, actor Actor, roles []string) bool {
	if p.reviewerRole == "" {
		return true
	}
	if len(roles) == 0 && p.roles != nil {
		live, err := p.roles.MemberRoles(ctx, actor.ID)
		if err != nil {
			p.log.Warn("role lookup failed, denying review action",
				zap.String("actor_id", actor.ID), zap.Error(err))
			return false
		}
		roles = live
	}
	for _, r := range roles {
		if r == p.reviewerRole {
			return true
		}
	}
	return false
}

func (p *Protocol) approve(ctx context.Context, e ControlActivated) Response {
	app, err := p.store.Transition(ctx, e.AppID, application.StatusApproved,
		application.Reviewer(e.Actor), "", p.now().UTC())
	if resp, handled := p.transitionFailure(err, e.AppID); handled {
		return resp
	}

	p.rerender(ctx, app)
	p.log.Info("application approved",
		zap.String("application_id", app.ID),
		zap.String("reviewer_id", e.Actor.ID))
	return message("Application for **%s** approved.", app.CharacterName)
}

// openDialog checks the record is still pending before opening the
// reason dialog; the record itself is not touched until the dialog is
// submitted.
func (p *Protocol) openDialog(ctx context.Context, e ControlActivated) Response {
	app, err := p.store.Get(ctx, e.AppID)
	if errors.Is(err, store.ErrNotFound) {
		return message("That application no longer exists.")
	}
	if err != nil {
		p.log.Error("record lookup failed", zap.String("application_id", e.AppID), zap.Error(err))
		return message("Something went wrong looking up that application, try again.")
	}
	if app.Status != application.StatusPending {
		return message("This application has already been %s.", app.Status)
	}
	return Response{Kind: RespondDialog, DialogAppID: e.AppID}
}

func (p *Protocol) reject(ctx context.Context, e DialogSubmitted) Response {
	app, err := p.store.Transition(ctx, e.AppID, application.StatusRejected,
		application.Reviewer(e.Actor), e.Reason, p.now().UTC())
	if resp, handled := p.transitionFailure(err, e.AppID); handled {
		return resp
	}

	p.rerender(ctx, app)
	p.log.Info("application rejected",
		zap.String("application_id", app.ID),
		zap.String("reviewer_id", e.Actor.ID))
	return message("Application for **%s** rejected.", app.CharacterName)
}

// transitionFailure maps store errors onto actor acknowledgments.
// Repeated activations on a decided record are a safe no-op.
func (p *Protocol) transitionFailure(err error, appID string) (Response, bool) {
	if err == nil {
		return Response{}, false
	}
	var decided *store.AlreadyDecidedError
	if errors.As(err, &decided) {
		return message("This application has already been %s.", decided.Status), true
	}
	if errors.Is(err, store.ErrNotFound) {
		return message("That application no longer exists."), true
	}
	p.log.Error("transition failed", zap.String("application_id", appID), zap.Error(err))
	return message("Something went wrong applying that decision, try again."), true
}

// rerender refreshes the review message after a successful mutation. The
// record is the source of truth; an edit failure is logged and dropped.
func (p *Protocol) rerender(ctx context.Context, app application.Application) {
	if err := p.notifier.Update(ctx, app); err != nil {
		p.log.Warn("notification re-render failed, record stands",
			zap.String("application_id", app.ID), zap.Error(err))
	}
}

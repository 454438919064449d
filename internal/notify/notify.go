// Package notify projects applications into Discord review messages and
// keeps them in step with the persisted record. Delivery failures are
// side-channel only: callers log them and move on, they never roll back
// an application mutation.
package notify

import (
	"context"
	"strings"

	"tysmp/whitelist_portal/internal/application"
)

// Ref locates a posted review message on the chat platform.
type Ref struct {
	ChannelID string
	MessageID string
}

// Notifier posts and re-renders application review messages. It is
// injected wherever review messages are produced so tests can substitute
// a fake.
type Notifier interface {
	// Post delivers the review message for a new application and returns
	// where it landed. Implementations may fall back to a degraded,
	// non-interactive delivery before reporting failure.
	Post(ctx context.Context, app application.Application) (Ref, error)

	// Update re-renders the message after a status change, removing the
	// interactive controls once the record is no longer pending.
	Update(ctx context.Context, app application.Application) error
}

// Disabled is the Notifier used when no delivery path is configured.
// Posting reports failure so callers log it; updates are a no-op.
type Disabled struct{}

func (Disabled) Post(context.Context, application.Application) (Ref, error) {
	return Ref{}, ErrNoDelivery
}

func (Disabled) Update(context.Context, application.Application) error {
	return nil
}

// Control custom-ID scheme shared by the rendered buttons, the rejection
// dialog and the interaction decoder.
const (
	customIDPrefix  = "app"
	ControlApprove  = "approve"
	ControlReject   = "reject"
	ControlReason   = "reason"
	ReasonInputID   = "app:reason_input"
	customIDZones   = 3
	customSeparator = ":"
)

// CustomID builds a component custom ID carrying the control kind and the
// application it targets.
func CustomID(control, appID string) string {
	return strings.Join([]string{customIDPrefix, control, appID}, customSeparator)
}

// ParseCustomID splits a component custom ID back into control kind and
// application ID. ok is false for IDs this system did not produce.
func ParseCustomID(id string) (control, appID string, ok bool) {
	parts := strings.SplitN(id, customSeparator, customIDZones)
	if len(parts) != customIDZones || parts[0] != customIDPrefix {
		return "", "", false
	}
	switch parts[1] {
	case ControlApprove, ControlReject, ControlReason:
		return parts[1], parts[2], true
	}
	return "", "", false
}

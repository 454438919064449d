// Package review interprets reviewer interactions against pending
// applications: the approve/reject controls, the rejection-reason dialog
// and the authorization guard around them.
package review

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"tysmp/whitelist_portal/internal/notify"
)

// ErrUnknownInteraction marks payloads this system did not produce, such
// as controls from stale or unrelated messages.
var ErrUnknownInteraction = errors.New("unrecognized interaction payload")

// Actor is the chat-platform user driving an interaction.
type Actor struct {
	ID          string
	DisplayName string
}

// Event is the decoded form of an inbound interaction. Handlers switch on
// the concrete type instead of inspecting raw platform payloads.
type Event interface {
	isEvent()
}

// Ping is the platform's webhook liveness probe.
type Ping struct{}

// ControlActivated is a press of the approve or reject button.
type ControlActivated struct {
	Control string // notify.ControlApprove or notify.ControlReject
	AppID   string
	Actor   Actor
	Roles   []string
}

// DialogSubmitted carries the rejection reason typed into the dialog.
// Reason may be empty; an empty reason is still a valid rejection.
type DialogSubmitted struct {
	AppID  string
	Actor  Actor
	Roles  []string
	Reason string
}

func (Ping) isEvent()             {}
func (ControlActivated) isEvent() {}
func (DialogSubmitted) isEvent()  {}

// DecodeInteraction converts a raw Discord interaction into an Event at
// the boundary, so protocol logic never touches untyped fields.
func DecodeInteraction(i *discordgo.Interaction) (Event, error) {
	switch i.Type {
	case discordgo.InteractionPing:
		return Ping{}, nil

	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		control, appID, ok := notify.ParseCustomID(data.CustomID)
		if !ok || control == notify.ControlReason {
			return nil, fmt.Errorf("%w: custom id %q", ErrUnknownInteraction, data.CustomID)
		}
		actor, roles := interactionActor(i)
		return ControlActivated{Control: control, AppID: appID, Actor: actor, Roles: roles}, nil

	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		control, appID, ok := notify.ParseCustomID(data.CustomID)
		if !ok || control != notify.ControlReason {
			return nil, fmt.Errorf("%w: dialog id %q", ErrUnknownInteraction, data.CustomID)
		}
		actor, roles := interactionActor(i)
		return DialogSubmitted{
			AppID:  appID,
			Actor:  actor,
			Roles:  roles,
			Reason: dialogText(data),
		}, nil
	}
	return nil, fmt.Errorf("%w: type %d", ErrUnknownInteraction, i.Type)
}

func interactionActor(i *discordgo.Interaction) (Actor, []string) {
	if i.Member != nil && i.Member.User != nil {
		name := i.Member.Nick
		if name == "" {
			name = i.Member.User.Username
		}
		return Actor{ID: i.Member.User.ID, DisplayName: name}, i.Member.Roles
	}
	if i.User != nil {
		return Actor{ID: i.User.ID, DisplayName: i.User.Username}, nil
	}
	return Actor{}, nil
}

// dialogText digs the reason text input out of the modal components.
func dialogText(data discordgo.ModalSubmitInteractionData) string {
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if in, ok := c.(*discordgo.TextInput); ok && in.CustomID == notify.ReasonInputID {
				return in.Value
			}
		}
	}
	return ""
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/notify"
	"tysmp/whitelist_portal/internal/review"
)

// interactions is the chat-platform webhook: signature check, ping
// handling, event decode and protocol dispatch. The interaction response
// is written straight back as the HTTP response body.
func (h *Handler) interactions(w http.ResponseWriter, r *http.Request) {
	if len(h.publicKey) == 0 {
		writeError(w, http.StatusServiceUnavailable, "interactions endpoint not configured")
		return
	}
	if !discordgo.VerifyInteraction(r, h.publicKey) {
		writeError(w, http.StatusUnauthorized, "invalid request signature")
		return
	}

	var interaction discordgo.Interaction
	if err := json.NewDecoder(r.Body).Decode(&interaction); err != nil {
		writeError(w, http.StatusBadRequest, "malformed interaction payload")
		return
	}

	ev, err := review.DecodeInteraction(&interaction)
	if err != nil {
		if errors.Is(err, review.ErrUnknownInteraction) {
			// Stale controls from old messages still deserve an answer.
			h.log.Warn("unrecognized interaction", zap.Error(err))
			writeInteraction(w, review.Response{
				Kind: review.RespondMessage,
				Text: "This control is not recognized; the message may be stale.",
			})
			return
		}
		writeError(w, http.StatusBadRequest, "malformed interaction payload")
		return
	}

	writeInteraction(w, h.protocol.Handle(r.Context(), ev))
}

// writeInteraction converts a protocol response into the platform's
// interaction-response wire format.
func writeInteraction(w http.ResponseWriter, resp review.Response) {
	var out discordgo.InteractionResponse

	switch resp.Kind {
	case review.RespondPong:
		out.Type = discordgo.InteractionResponsePong

	case review.RespondDialog:
		out.Type = discordgo.InteractionResponseModal
		out.Data = &discordgo.InteractionResponseData{
			CustomID: notify.CustomID(notify.ControlReason, resp.DialogAppID),
			Title:    "Reject application",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    notify.ReasonInputID,
							Label:       "Reason (optional)",
							Style:       discordgo.TextInputParagraph,
							Required:    false,
							MaxLength:   1000,
							Placeholder: "Shared with the applicant.",
						},
					},
				},
			},
		}

	default:
		out.Type = discordgo.InteractionResponseChannelMessageWithSource
		out.Data = &discordgo.InteractionResponseData{
			Content: resp.Text,
			Flags:   discordgo.MessageFlagsEphemeral,
		}
	}

	writeJSON(w, http.StatusOK, out)
}

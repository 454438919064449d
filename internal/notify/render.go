package notify

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"tysmp/whitelist_portal/internal/application"
)

// Display caps keep oversized free-text answers from blowing past
// Discord's embed limits.
const (
	backstoryDisplayMax = 1000
	reasonDisplayMax    = 500
)

const degradedNotice = "⚠️ Interactive controls unavailable — use manual commands to review this application."

var statusLines = map[application.Status]string{
	application.StatusPending:  "⏳ Pending review",
	application.StatusApproved: "✅ Approved",
	application.StatusRejected: "❌ Rejected",
}

var statusColors = map[application.Status]int{
	application.StatusPending:  0xf1c40f,
	application.StatusApproved: 0x2ecc71,
	application.StatusRejected: 0xe74c3c,
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// reviewEmbed renders the application into the embed shown to reviewers.
func reviewEmbed(app application.Application) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Whitelist application — %s", app.CharacterName),
		Color: statusColors[app.Status],
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Applicant", Value: fmt.Sprintf("<@%s>", app.ChatID), Inline: true},
			{Name: "Game ID", Value: app.GameID, Inline: true},
			{Name: "Age", Value: fmt.Sprintf("%d", app.Age(time.Now())), Inline: true},
			{Name: "Backstory", Value: truncate(app.Backstory, backstoryDisplayMax)},
			{Name: "Reason", Value: truncate(app.Reason, reasonDisplayMax)},
			{Name: "Status", Value: statusLines[app.Status]},
		},
		Timestamp: app.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if app.ReviewedBy != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Reviewed by",
			Value: app.ReviewedBy.DisplayName,
		})
	}
	if app.Status == application.StatusRejected && app.Feedback != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Feedback",
			Value: truncate(app.Feedback, reasonDisplayMax),
		})
	}
	return embed
}

// reviewComponents returns the approve/reject buttons while the record is
// pending and nothing once it is decided.
func reviewComponents(app application.Application) []discordgo.MessageComponent {
	if app.Status != application.StatusPending {
		return []discordgo.MessageComponent{}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: CustomID(ControlApprove, app.ID),
				},
				discordgo.Button{
					Label:    "Reject",
					Style:    discordgo.DangerButton,
					CustomID: CustomID(ControlReject, app.ID),
				},
			},
		},
	}
}

// fallbackContent renders the degraded plain-text form used when the
// interactive message cannot be posted.
func fallbackContent(app application.Application) string {
	return fmt.Sprintf(
		"%s\nWhitelist application `%s`\nApplicant: <@%s> (game ID %s)\nCharacter: %s, age %d\nBackstory: %s\nReason: %s\nStatus: %s",
		degradedNotice,
		app.ID, app.ChatID, app.GameID, app.CharacterName, app.Age(time.Now()),
		truncate(app.Backstory, backstoryDisplayMax),
		truncate(app.Reason, reasonDisplayMax),
		app.Status,
	)
}

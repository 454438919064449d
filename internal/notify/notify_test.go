package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tysmp/whitelist_portal/internal/application"
)

func sampleApp(status application.Status) application.Application {
	return application.Application{
		ID:            "11111111-2222-3333-4444-555555555555",
		ChatID:        "u1",
		GameID:        "g1000",
		CharacterName: "Anna",
		BirthDate:     time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Backstory:     strings.Repeat("b", 120),
		Reason:        strings.Repeat("r", 20),
		Status:        status,
		SubmittedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCustomIDRoundTrip(t *testing.T) {
	id := CustomID(ControlApprove, "abc-123")
	assert.Equal(t, "app:approve:abc-123", id)

	control, appID, ok := ParseCustomID(id)
	require.True(t, ok)
	assert.Equal(t, ControlApprove, control)
	assert.Equal(t, "abc-123", appID)

	for _, bad := range []string{"", "app", "app:approve", "other:approve:x", "app:frobnicate:x"} {
		_, _, ok := ParseCustomID(bad)
		assert.False(t, ok, "id %q should not parse", bad)
	}
}

func TestReviewComponentsOnlyWhilePending(t *testing.T) {
	comps := reviewComponents(sampleApp(application.StatusPending))
	require.Len(t, comps, 1)
	row, ok := comps[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 2)
	approve := row.Components[0].(discordgo.Button)
	reject := row.Components[1].(discordgo.Button)
	assert.Equal(t, "app:approve:11111111-2222-3333-4444-555555555555", approve.CustomID)
	assert.Equal(t, "app:reject:11111111-2222-3333-4444-555555555555", reject.CustomID)

	assert.Empty(t, reviewComponents(sampleApp(application.StatusApproved)))
	assert.Empty(t, reviewComponents(sampleApp(application.StatusRejected)))
}

func TestReviewEmbedTruncatesLongAnswers(t *testing.T) {
	app := sampleApp(application.StatusPending)
	app.Backstory = strings.Repeat("b", 1500)
	app.Reason = strings.Repeat("r", 800)

	embed := reviewEmbed(app)
	var backstory, reason string
	for _, f := range embed.Fields {
		switch f.Name {
		case "Backstory":
			backstory = f.Value
		case "Reason":
			reason = f.Value
		}
	}
	assert.Equal(t, 1000, len([]rune(backstory)))
	assert.Equal(t, 500, len([]rune(reason)))
	assert.True(t, strings.HasSuffix(backstory, "…"))
}

func TestReviewEmbedShowsDecision(t *testing.T) {
	app := sampleApp(application.StatusRejected)
	app.Feedback = "Thiếu thông tin"
	app.ReviewedBy = &application.Reviewer{ID: "mod1", DisplayName: "Mod"}

	embed := reviewEmbed(app)
	var found []string
	for _, f := range embed.Fields {
		found = append(found, f.Name+"="+f.Value)
	}
	assert.Contains(t, strings.Join(found, ";"), "Reviewed by=Mod")
	assert.Contains(t, strings.Join(found, ";"), "Feedback=Thiếu thông tin")
}

func TestFallbackContentFlagsDegradedMode(t *testing.T) {
	content := fallbackContent(sampleApp(application.StatusPending))
	assert.Contains(t, content, "Interactive controls unavailable")
	assert.Contains(t, content, "manual commands")
	assert.Contains(t, content, "11111111-2222-3333-4444-555555555555")
}

func TestParseWebhookURL(t *testing.T) {
	id, token, err := parseWebhookURL("https://discord.com/api/webhooks/123456/tok-en_value")
	require.NoError(t, err)
	assert.Equal(t, "123456", id)
	assert.Equal(t, "tok-en_value", token)

	for _, bad := range []string{"", "https://discord.com/api/channels/1/2", "https://discord.com/api/webhooks/onlyid"} {
		_, _, err := parseWebhookURL(bad)
		assert.Error(t, err, "url %q", bad)
	}
}

func TestDisabledNotifier(t *testing.T) {
	var n Notifier = Disabled{}
	_, err := n.Post(context.Background(), sampleApp(application.StatusPending))
	assert.ErrorIs(t, err, ErrNoDelivery)
	assert.NoError(t, n.Update(context.Background(), sampleApp(application.StatusApproved)))
}

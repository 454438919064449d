package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// GuildRoles resolves a member's current role IDs straight from the
// guild, for interactions whose payload omits them. Results are never
// cached; the reviewer guard must see the membership as of the action.
type GuildRoles struct {
	session *discordgo.Session
	guildID string
}

func NewGuildRoles(session *discordgo.Session, guildID string) *GuildRoles {
	return &GuildRoles{session: session, guildID: guildID}
}

func (g *GuildRoles) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	if g.session == nil || g.guildID == "" {
		return nil, fmt.Errorf("guild role lookup not configured")
	}
	member, err := g.session.GuildMember(g.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch guild member: %w", err)
	}
	return append([]string{}, member.Roles...), nil
}

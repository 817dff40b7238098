package handlers

import (
	"time"

	"guild-guardian/model"

	"github.com/bwmarrin/discordgo"
)

// joinEventFromMember converts a gateway member. A missing join time falls back to now.
func joinEventFromMember(m *discordgo.Member, now time.Time) model.JoinEvent {
	ev := model.JoinEvent{GuildID: m.GuildID, JoinedAt: m.JoinedAt}
	if ev.JoinedAt.IsZero() {
		ev.JoinedAt = now
	}
	if m.User != nil {
		ev.UserID = m.User.ID
		ev.UserTag = m.User.String()
		ev.AvatarURL = m.User.AvatarURL("")
		ev.Bot = m.User.Bot
		if created, err := discordgo.SnowflakeTimestamp(m.User.ID); err == nil {
			ev.AccountCreatedAt = created
		}
	}
	return ev
}

// messageEventFrom converts a gateway message. Mentioned users are deduplicated.
func messageEventFrom(m *discordgo.Message) model.MessageEvent {
	ev := model.MessageEvent{
		GuildID:        m.GuildID,
		ChannelID:      m.ChannelID,
		MessageID:      m.ID,
		WebhookID:      m.WebhookID,
		Content:        m.Content,
		MentionRoleIDs: m.MentionRoles,
	}
	if m.Author != nil {
		ev.AuthorID = m.Author.ID
		ev.AuthorTag = m.Author.String()
		ev.AuthorAvatarURL = m.Author.AvatarURL("")
		ev.Bot = m.Author.Bot
	}
	for _, a := range m.Attachments {
		if a != nil {
			ev.Attachments = append(ev.Attachments, model.Attachment{Name: a.Filename, URL: a.URL})
		}
	}
	seen := make(map[string]struct{}, len(m.Mentions))
	for _, u := range m.Mentions {
		if u == nil {
			continue
		}
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		ev.MentionUserIDs = append(ev.MentionUserIDs, u.ID)
	}
	return ev
}

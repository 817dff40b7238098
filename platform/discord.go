package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guild-guardian/model"
	"guild-guardian/utils"

	"github.com/bwmarrin/discordgo"
)

// Discord adapts a discordgo session to the dispatcher and reconciler platform interfaces.
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{session: s}
}

func (d *Discord) Session() *discordgo.Session {
	return d.session
}

// DeleteMessage removes a message. A message that is already gone is not an error.
func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if IsRESTCode(err, discordgo.ErrCodeUnknownMessage) {
		return nil
	}
	return err
}

func (d *Discord) SendDirectMessage(ctx context.Context, userID, content string) error {
	return utils.SendPrivateMessage(d.session, userID, content, discordgo.WithContext(ctx))
}

func (d *Discord) TimeoutMember(ctx context.Context, guildID, userID string, until *time.Time, reason string) error {
	return d.session.GuildMemberTimeout(guildID, userID, until,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (d *Discord) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return d.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (d *Discord) BanMember(ctx context.Context, guildID, userID, reason string) error {
	return d.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

func (d *Discord) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := d.session.State.Guild(guildID); err == nil {
		return g, nil
	}
	return d.session.Guild(guildID, discordgo.WithContext(ctx))
}

func (d *Discord) VerificationLevel(ctx context.Context, guildID string) (int, error) {
	g, err := d.guild(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch guild %s: %w", guildID, err)
	}
	return int(g.VerificationLevel), nil
}

func (d *Discord) SetVerificationLevel(ctx context.Context, guildID string, level int) error {
	lvl := discordgo.VerificationLevel(level)
	_, err := d.session.GuildEdit(guildID, &discordgo.GuildParams{VerificationLevel: &lvl}, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) SendAlert(ctx context.Context, channelID string, alert model.Alert) error {
	_, err := d.session.ChannelMessageSendEmbed(channelID, EmbedFromAlert(alert), discordgo.WithContext(ctx))
	return err
}

func (d *Discord) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		// canned replies must not ping everyone or arbitrary roles
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	return err
}

func (d *Discord) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleAdd(guildID, userID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason("Join role"))
}

// MemberTimeoutUntil returns when the member's timeout ends, or nil if none is set.
func (d *Discord) MemberTimeoutUntil(ctx context.Context, guildID, userID string) (*time.Time, error) {
	m, err := d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s in guild %s: %w", userID, guildID, err)
	}
	return m.CommunicationDisabledUntil, nil
}

func (d *Discord) BotUserID() string {
	if d.session.State == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

// EmbedFromAlert renders an alert as a Discord embed.
func EmbedFromAlert(alert model.Alert) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       alert.Title,
		Description: alert.Description,
		Color:       alert.Color,
	}
	if alert.AuthorName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: alert.AuthorName, IconURL: alert.AuthorIconURL}
	}
	if alert.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: alert.ThumbnailURL}
	}
	if !alert.Timestamp.IsZero() {
		embed.Timestamp = alert.Timestamp.Format(time.RFC3339)
	}
	for _, f := range alert.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}

// IsRESTCode reports whether err is a Discord API error with the given JSON error code.
func IsRESTCode(err error, code int) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == code
	}
	return false
}

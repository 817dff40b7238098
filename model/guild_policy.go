package model

import (
	"strings"
	"time"
)

// GuildPolicy is the per-guild protection configuration.
// The database table is named 'guild_policies'; times are unix milliseconds.
type GuildPolicy struct {
	GuildID string `db:"guild_id"`

	AntiRaidEnabled   bool       `db:"anti_raid_enabled"`
	RaidJoinThreshold int        `db:"anti_raid_join_threshold"`
	RaidJoinWindowMs  int64      `db:"anti_raid_join_time_window"`
	RaidAction        RaidAction `db:"anti_raid_action"`

	AntiSpamEnabled      bool          `db:"anti_spam_enabled"`
	SpamMessageThreshold int           `db:"anti_spam_message_threshold"`
	SpamWindowMs         int64         `db:"anti_spam_time_window"`
	SpamAction           ContentAction `db:"anti_spam_action"`

	AntiMentionEnabled bool          `db:"anti_mention_enabled"`
	MentionThreshold   int           `db:"anti_mention_threshold"`
	MentionAction      ContentAction `db:"anti_mention_action"`

	AntiLinkEnabled bool          `db:"anti_link_enabled"`
	LinkWhitelist   string        `db:"anti_link_whitelist"` // comma separated domains
	LinkAction      ContentAction `db:"anti_link_action"`

	AntiInviteEnabled bool          `db:"anti_invite_enabled"`
	InviteAction      ContentAction `db:"anti_invite_action"`

	AntiCapsEnabled bool          `db:"anti_caps_enabled"`
	CapsThreshold   int           `db:"anti_caps_threshold"`
	CapsMinLength   int           `db:"anti_caps_min_length"`
	CapsAction      ContentAction `db:"anti_caps_action"`

	AltDetectionEnabled bool      `db:"alt_detection_enabled"`
	AltMinAgeMs         int64     `db:"alt_min_age"`
	AltAction           AltAction `db:"alt_action"`

	AutomodLogChannel string `db:"automod_log_channel"`

	// Server setup. Manual moderation reports to ModLogChannel, joins to
	// MemberLogChannel and ordinary messages to MessageLogChannel.
	ModLogChannel     string `db:"mod_log_channel"`
	MemberLogChannel  string `db:"member_log_channel"`
	MessageLogChannel string `db:"message_log_channel"`
	JoinRoleID        string `db:"join_role"`
	AutoRoleEnabled   bool   `db:"auto_role_enabled"`

	CreatedAt int64 `db:"created_at"`
	UpdatedAt int64 `db:"updated_at"`
}

// DefaultGuildPolicy returns a policy with every feature disabled and the stock thresholds.
func DefaultGuildPolicy(guildID string) *GuildPolicy {
	return &GuildPolicy{
		GuildID:              guildID,
		RaidJoinThreshold:    10,
		RaidJoinWindowMs:     10_000,
		RaidAction:           RaidActionKick,
		SpamMessageThreshold: 5,
		SpamWindowMs:         3_000,
		SpamAction:           ContentActionMute,
		MentionThreshold:     5,
		MentionAction:        ContentActionMute,
		LinkAction:           ContentActionDelete,
		InviteAction:         ContentActionDelete,
		CapsThreshold:        70,
		CapsMinLength:        10,
		CapsAction:           ContentActionDelete,
		AltMinAgeMs:          int64(7 * 24 * time.Hour / time.Millisecond),
		AltAction:            AltActionKick,
	}
}

// Normalize replaces non-positive thresholds and windows with the defaults
// and maps unknown action names to alert.
func (p *GuildPolicy) Normalize() {
	d := DefaultGuildPolicy(p.GuildID)
	if p.RaidJoinThreshold <= 0 {
		p.RaidJoinThreshold = d.RaidJoinThreshold
	}
	if p.RaidJoinWindowMs <= 0 {
		p.RaidJoinWindowMs = d.RaidJoinWindowMs
	}
	if p.SpamMessageThreshold <= 0 {
		p.SpamMessageThreshold = d.SpamMessageThreshold
	}
	if p.SpamWindowMs <= 0 {
		p.SpamWindowMs = d.SpamWindowMs
	}
	if p.MentionThreshold <= 0 {
		p.MentionThreshold = d.MentionThreshold
	}
	if p.CapsThreshold <= 0 {
		p.CapsThreshold = d.CapsThreshold
	}
	if p.CapsMinLength <= 0 {
		p.CapsMinLength = d.CapsMinLength
	}
	if p.AltMinAgeMs <= 0 {
		p.AltMinAgeMs = d.AltMinAgeMs
	}
	p.RaidAction = ParseRaidAction(string(p.RaidAction))
	p.SpamAction = ParseContentAction(string(p.SpamAction))
	p.MentionAction = ParseContentAction(string(p.MentionAction))
	p.LinkAction = ParseContentAction(string(p.LinkAction))
	p.InviteAction = ParseContentAction(string(p.InviteAction))
	p.CapsAction = ParseContentAction(string(p.CapsAction))
	p.AltAction = ParseAltAction(string(p.AltAction))
}

func (p *GuildPolicy) RaidJoinWindow() time.Duration {
	return time.Duration(p.RaidJoinWindowMs) * time.Millisecond
}

func (p *GuildPolicy) SpamWindow() time.Duration {
	return time.Duration(p.SpamWindowMs) * time.Millisecond
}

func (p *GuildPolicy) AltMinAge() time.Duration {
	return time.Duration(p.AltMinAgeMs) * time.Millisecond
}

// Whitelist splits LinkWhitelist into trimmed, non-empty domains.
func (p *GuildPolicy) Whitelist() []string {
	if p.LinkWhitelist == "" {
		return nil
	}
	var domains []string
	for _, d := range strings.Split(p.LinkWhitelist, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

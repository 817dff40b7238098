package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guild-guardian/bot"
	"guild-guardian/model"
	"guild-guardian/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	maxRaidWindow = 5 * time.Minute
	maxSpamWindow = 30 * time.Second
)

func handleProtection(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "protection")
	if inv == nil {
		return
	}
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondError(s, i, b, "Choose a subcommand")
		return
	}
	sub := data.Options[0]

	policy, err := b.Store.EnsureGuildPolicy(ctx, inv.guild.ID)
	if err != nil {
		inv.log.Error("failed to load guild policy", zap.Error(err))
		respondError(s, i, b, "Failed to load protection settings")
		return
	}

	if sub.Name == "status" {
		if err := utils.RespondEmbed(s, i, policyStatusEmbed(policy), true); err != nil {
			inv.log.Warn("failed to respond", zap.Error(err))
		}
		return
	}

	if err := applyProtection(policy, sub.Name, optionMap(sub.Options)); err != nil {
		respondError(s, i, b, err.Error())
		return
	}
	if err := b.Store.UpsertGuildPolicy(ctx, policy); err != nil {
		inv.log.Error("failed to save guild policy", zap.Error(err))
		respondError(s, i, b, "Failed to save protection settings")
		return
	}
	inv.log.Info("protection updated", zap.String("feature", sub.Name))

	embed := utils.SuccessEmbed("Protection Updated", fmt.Sprintf("Updated **%s** settings.", sub.Name))
	embed.Fields = featureFields(policy, sub.Name)
	if err := utils.RespondEmbed(s, i, embed, true); err != nil {
		inv.log.Warn("failed to respond", zap.Error(err))
	}
}

func parseWindow(raw string, max time.Duration) (int64, error) {
	d, err := utils.ParseDuration(raw)
	if err != nil {
		return 0, userError("Invalid window. Examples: 3s, 10s, 1m")
	}
	if d < time.Second || d > max {
		return 0, userError(fmt.Sprintf("Window must be between 1 second and %s", utils.FormatDuration(max)))
	}
	return d.Milliseconds(), nil
}

// applyProtection writes one subcommand's options into p. Options that were
// not supplied keep their current value.
func applyProtection(p *model.GuildPolicy, feature string, opts options) error {
	enabled, hasEnabled := opts.getBool("enabled")
	action := opts.getString("action", "")
	threshold, hasThreshold := opts.getInt("threshold")
	window := opts.getString("window", "")

	switch feature {
	case "raid":
		if hasEnabled {
			p.AntiRaidEnabled = enabled
		}
		if action != "" {
			p.RaidAction = model.ParseRaidAction(action)
		}
		if hasThreshold {
			p.RaidJoinThreshold = threshold
		}
		if window != "" {
			ms, err := parseWindow(window, maxRaidWindow)
			if err != nil {
				return err
			}
			p.RaidJoinWindowMs = ms
		}
	case "spam":
		if hasEnabled {
			p.AntiSpamEnabled = enabled
		}
		if action != "" {
			p.SpamAction = model.ParseContentAction(action)
		}
		if hasThreshold {
			p.SpamMessageThreshold = threshold
		}
		if window != "" {
			ms, err := parseWindow(window, maxSpamWindow)
			if err != nil {
				return err
			}
			p.SpamWindowMs = ms
		}
	case "mention":
		if hasEnabled {
			p.AntiMentionEnabled = enabled
		}
		if action != "" {
			p.MentionAction = model.ParseContentAction(action)
		}
		if hasThreshold {
			p.MentionThreshold = threshold
		}
	case "link":
		if hasEnabled {
			p.AntiLinkEnabled = enabled
		}
		if action != "" {
			p.LinkAction = model.ParseContentAction(action)
		}
		if wl, ok := opts["whitelist"]; ok {
			p.LinkWhitelist = normalizeWhitelist(wl.StringValue())
		}
	case "invite":
		if hasEnabled {
			p.AntiInviteEnabled = enabled
		}
		if action != "" {
			p.InviteAction = model.ParseContentAction(action)
		}
	case "caps":
		if hasEnabled {
			p.AntiCapsEnabled = enabled
		}
		if action != "" {
			p.CapsAction = model.ParseContentAction(action)
		}
		if hasThreshold {
			if threshold < 1 || threshold > 100 {
				return userError("Caps threshold must be a percentage between 1 and 100")
			}
			p.CapsThreshold = threshold
		}
		if n, ok := opts.getInt("min_length"); ok {
			p.CapsMinLength = n
		}
	case "alt":
		if hasEnabled {
			p.AltDetectionEnabled = enabled
		}
		if action != "" {
			p.AltAction = model.ParseAltAction(action)
		}
		if raw := opts.getString("min_age", ""); raw != "" {
			d, err := utils.ParseDuration(raw)
			if err != nil {
				return userError("Invalid minimum age. Examples: 1d, 7d, 2w")
			}
			p.AltMinAgeMs = d.Milliseconds()
		}
	case "logchannel":
		channelID := opts.getID("channel")
		if channelID == "" {
			return userError("Choose a channel")
		}
		p.AutomodLogChannel = channelID
	default:
		return userError(fmt.Sprintf("Unknown protection feature %q", feature))
	}
	return nil
}

// normalizeWhitelist trims and lowercases a comma separated domain list.
func normalizeWhitelist(raw string) string {
	var domains []string
	for _, d := range strings.Split(raw, ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return strings.Join(domains, ",")
}

func onOff(enabled bool) string {
	if enabled {
		return "Enabled"
	}
	return "Disabled"
}

func featureFields(p *model.GuildPolicy, feature string) []*discordgo.MessageEmbedField {
	field := func(name, value string) *discordgo.MessageEmbedField {
		return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
	}
	switch feature {
	case "raid":
		return []*discordgo.MessageEmbedField{
			field("Anti-Raid", onOff(p.AntiRaidEnabled)),
			field("Threshold", fmt.Sprintf("%d joins in %s", p.RaidJoinThreshold, utils.FormatDuration(p.RaidJoinWindow()))),
			field("Action", string(p.RaidAction)),
		}
	case "spam":
		return []*discordgo.MessageEmbedField{
			field("Anti-Spam", onOff(p.AntiSpamEnabled)),
			field("Threshold", fmt.Sprintf("%d messages in %s", p.SpamMessageThreshold, utils.FormatDuration(p.SpamWindow()))),
			field("Action", string(p.SpamAction)),
		}
	case "mention":
		return []*discordgo.MessageEmbedField{
			field("Anti-Mention", onOff(p.AntiMentionEnabled)),
			field("Threshold", fmt.Sprintf("%d mentions", p.MentionThreshold)),
			field("Action", string(p.MentionAction)),
		}
	case "link":
		return []*discordgo.MessageEmbedField{
			field("Anti-Link", onOff(p.AntiLinkEnabled)),
			field("Whitelist", orDefault(p.LinkWhitelist, "None")),
			field("Action", string(p.LinkAction)),
		}
	case "invite":
		return []*discordgo.MessageEmbedField{
			field("Anti-Invite", onOff(p.AntiInviteEnabled)),
			field("Action", string(p.InviteAction)),
		}
	case "caps":
		return []*discordgo.MessageEmbedField{
			field("Anti-Caps", onOff(p.AntiCapsEnabled)),
			field("Threshold", fmt.Sprintf("%d%% of %d+ characters", p.CapsThreshold, p.CapsMinLength)),
			field("Action", string(p.CapsAction)),
		}
	case "alt":
		return []*discordgo.MessageEmbedField{
			field("Alt Detection", onOff(p.AltDetectionEnabled)),
			field("Minimum Age", utils.FormatDuration(p.AltMinAge())),
			field("Action", string(p.AltAction)),
		}
	case "logchannel":
		return []*discordgo.MessageEmbedField{field("Log Channel", channelMention(p.AutomodLogChannel))}
	}
	return nil
}

func channelMention(id string) string {
	if id == "" {
		return "Not set"
	}
	return "<#" + id + ">"
}

func policyStatusEmbed(p *model.GuildPolicy) *discordgo.MessageEmbed {
	embed := utils.InfoEmbed("Protection Settings", "")
	for _, feature := range []string{"raid", "spam", "mention", "link", "invite", "caps", "alt", "logchannel"} {
		embed.Fields = append(embed.Fields, featureFields(p, feature)...)
	}
	return embed
}

package handlers

import (
	"context"
	"fmt"

	"guild-guardian/bot"
	"guild-guardian/model"
	"guild-guardian/permissions"
	"guild-guardian/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// logSetup describes one of the log channels /setup manages.
type logSetup struct {
	label  string
	title  string
	notice string
	color  int
}

var logSetups = map[string]logSetup{
	"modlog": {
		label:  "Moderation Log",
		title:  "Moderation Log Setup",
		notice: "This channel will now receive moderation logs.",
		color:  model.ColorOrange,
	},
	"memberlog": {
		label:  "Member Log",
		title:  "Member Log Setup",
		notice: "This channel will now receive member join logs.",
		color:  model.ColorGreen,
	},
	"messagelog": {
		label:  "Message Log",
		title:  "Message Log Setup",
		notice: "This channel will now receive message logs.",
		color:  model.ColorBlue,
	},
}

func handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "setup")
	if inv == nil {
		return
	}
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondError(s, i, b, "Choose a subcommand")
		return
	}
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	policy, err := b.Store.EnsureGuildPolicy(ctx, inv.guild.ID)
	if err != nil {
		inv.log.Error("failed to load guild policy", zap.Error(err))
		respondError(s, i, b, "Failed to load server settings")
		return
	}

	if sub.Name == "status" {
		if err := utils.RespondEmbed(s, i, setupStatusEmbed(policy), true); err != nil {
			inv.log.Warn("failed to respond", zap.Error(err))
		}
		return
	}

	if sub.Name == "joinrole" {
		self, err := botMember(s, inv.guild.ID)
		if err != nil {
			inv.log.Error("failed to resolve bot member", zap.Error(err))
			respondError(s, i, b, errBotNotLoaded.Error())
			return
		}
		if err := checkJoinRole(inv.guild, opts.getID("role"), self.Roles); err != nil {
			respondError(s, i, b, err.Error())
			return
		}
	}

	if err := applySetup(policy, sub.Name, opts); err != nil {
		respondError(s, i, b, err.Error())
		return
	}
	if err := b.Store.UpsertGuildPolicy(ctx, policy); err != nil {
		inv.log.Error("failed to save guild policy", zap.Error(err))
		respondError(s, i, b, "Failed to save server settings")
		return
	}
	inv.log.Info("setup updated", zap.String("setting", sub.Name))

	description := setupSummary(policy, sub.Name)
	if ls, ok := logSetups[sub.Name]; ok {
		channelID := opts.getID("channel")
		notice := model.Alert{Title: ls.title, Description: ls.notice, Color: ls.color, Timestamp: b.Clock.Now()}
		if err := b.Platform.SendAlert(ctx, channelID, notice); err != nil {
			inv.log.Warn("failed to post setup notice", zap.String("channel_id", channelID), zap.Error(err))
			description += "\nI could not post in that channel. Check my permissions there."
		}
	}
	if err := utils.RespondEmbed(s, i, utils.SuccessEmbed("Setup Updated", description), true); err != nil {
		inv.log.Warn("failed to respond", zap.Error(err))
	}
}

// applySetup writes one /setup subcommand into p.
func applySetup(p *model.GuildPolicy, setting string, opts options) error {
	switch setting {
	case "modlog", "memberlog", "messagelog":
		channelID := opts.getID("channel")
		if channelID == "" {
			return userError("Choose a channel")
		}
		switch setting {
		case "modlog":
			p.ModLogChannel = channelID
		case "memberlog":
			p.MemberLogChannel = channelID
		case "messagelog":
			p.MessageLogChannel = channelID
		}
	case "joinrole":
		roleID := opts.getID("role")
		if roleID == "" {
			return userError("Choose a role")
		}
		enabled, ok := opts.getBool("enabled")
		if !ok {
			enabled = true
		}
		p.JoinRoleID = roleID
		p.AutoRoleEnabled = enabled
	default:
		return userError(fmt.Sprintf("Unknown setting %q", setting))
	}
	return nil
}

// checkJoinRole rejects roles the bot could not assign.
func checkJoinRole(guild *discordgo.Guild, roleID string, botRoles []string) error {
	if roleID == "" {
		return userError("Choose a role")
	}
	if roleID == guild.ID {
		return userError("Everyone already has the @everyone role")
	}
	var role *discordgo.Role
	for _, r := range guild.Roles {
		if r.ID == roleID {
			role = r
			break
		}
	}
	if role == nil {
		return userError("That role does not exist in this server")
	}
	if role.Managed {
		return userError("That role is managed by an integration and cannot be assigned")
	}
	if role.Position >= permissions.HighestRolePosition(guild, botRoles) {
		return userError("I cannot assign this role as it is higher than or equal to my highest role")
	}
	return nil
}

func setupSummary(p *model.GuildPolicy, setting string) string {
	switch setting {
	case "modlog":
		return "Moderation logs will now be sent to " + channelMention(p.ModLogChannel)
	case "memberlog":
		return "Member logs will now be sent to " + channelMention(p.MemberLogChannel)
	case "messagelog":
		return "Message logs will now be sent to " + channelMention(p.MessageLogChannel)
	case "joinrole":
		return fmt.Sprintf("New members will receive <@&%s> (%s)", p.JoinRoleID, onOff(p.AutoRoleEnabled))
	}
	return ""
}

func joinRoleStatus(p *model.GuildPolicy) string {
	if p.JoinRoleID == "" {
		return "Not configured"
	}
	return fmt.Sprintf("<@&%s> (%s)", p.JoinRoleID, onOff(p.AutoRoleEnabled))
}

func setupStatusEmbed(p *model.GuildPolicy) *discordgo.MessageEmbed {
	notConfigured := func(id string) string {
		if id == "" {
			return "Not configured"
		}
		return "<#" + id + ">"
	}
	embed := utils.InfoEmbed("Server Setup", "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: logSetups["modlog"].label, Value: notConfigured(p.ModLogChannel), Inline: true},
		{Name: logSetups["memberlog"].label, Value: notConfigured(p.MemberLogChannel), Inline: true},
		{Name: logSetups["messagelog"].label, Value: notConfigured(p.MessageLogChannel), Inline: true},
		{Name: "Automod Log", Value: notConfigured(p.AutomodLogChannel), Inline: true},
		{Name: "Join Role", Value: joinRoleStatus(p), Inline: true},
		{Name: "Security Features", Value: securityFeatures(p)},
	}
	return embed
}

func securityFeatures(p *model.GuildPolicy) string {
	features := []struct {
		name    string
		enabled bool
	}{
		{"Anti-Raid", p.AntiRaidEnabled},
		{"Anti-Spam", p.AntiSpamEnabled},
		{"Anti-Mention", p.AntiMentionEnabled},
		{"Anti-Link", p.AntiLinkEnabled},
		{"Anti-Invite", p.AntiInviteEnabled},
		{"Anti-Caps", p.AntiCapsEnabled},
		{"Alt Detection", p.AltDetectionEnabled},
	}
	out := ""
	for _, f := range features {
		out += fmt.Sprintf("%s: %s\n", f.name, onOff(f.enabled))
	}
	return out
}

package handlers

import (
	"testing"
	"time"

	"guild-guardian/model"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolOpt(name string, v bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func opts(o ...*discordgo.ApplicationCommandInteractionDataOption) options {
	return optionMap(o)
}

func TestApplyProtectionRaid(t *testing.T) {
	p := model.DefaultGuildPolicy("g1")

	err := applyProtection(p, "raid", opts(
		boolOpt("enabled", true),
		strOpt("action", "verification"),
		intOpt("threshold", 4),
		strOpt("window", "20s"),
	))
	require.NoError(t, err)

	assert.True(t, p.AntiRaidEnabled)
	assert.Equal(t, model.RaidActionVerification, p.RaidAction)
	assert.Equal(t, 4, p.RaidJoinThreshold)
	assert.Equal(t, 20*time.Second, p.RaidJoinWindow())
}

func TestApplyProtectionKeepsUnsetOptions(t *testing.T) {
	p := model.DefaultGuildPolicy("g1")
	p.AntiSpamEnabled = true

	require.NoError(t, applyProtection(p, "spam", opts(boolOpt("enabled", true), intOpt("threshold", 8))))

	assert.Equal(t, 8, p.SpamMessageThreshold)
	assert.Equal(t, model.ContentActionMute, p.SpamAction)
	assert.Equal(t, 3*time.Second, p.SpamWindow())
}

func TestApplyProtectionRejectsBadWindow(t *testing.T) {
	p := model.DefaultGuildPolicy("g1")

	assert.Error(t, applyProtection(p, "spam", opts(strOpt("window", "soon"))))
	assert.Error(t, applyProtection(p, "spam", opts(strOpt("window", "45s"))))
	assert.Error(t, applyProtection(p, "raid", opts(strOpt("window", "10m"))))
	assert.Equal(t, int64(3000), p.SpamWindowMs)
	assert.Equal(t, int64(10000), p.RaidJoinWindowMs)
}

func TestApplyProtectionLinkWhitelist(t *testing.T) {
	p := model.DefaultGuildPolicy("g1")

	require.NoError(t, applyProtection(p, "link", opts(
		boolOpt("enabled", true),
		strOpt("whitelist", " YouTube.com, ,github.com "),
	)))

	assert.True(t, p.AntiLinkEnabled)
	assert.Equal(t, "youtube.com,github.com", p.LinkWhitelist)
	assert.Equal(t, []string{"youtube.com", "github.com"}, p.Whitelist())
}

func TestApplyProtectionCapsAndAlt(t *testing.T) {
	p := model.DefaultGuildPolicy("g1")

	require.NoError(t, applyProtection(p, "caps", opts(intOpt("threshold", 60), intOpt("min_length", 15), strOpt("action", "warn"))))
	assert.Equal(t, 60, p.CapsThreshold)
	assert.Equal(t, 15, p.CapsMinLength)
	assert.Equal(t, model.ContentActionWarn, p.CapsAction)
	assert.Error(t, applyProtection(p, "caps", opts(intOpt("threshold", 150))))

	require.NoError(t, applyProtection(p, "alt", opts(boolOpt("enabled", true), strOpt("min_age", "2w"), strOpt("action", "ban"))))
	assert.True(t, p.AltDetectionEnabled)
	assert.Equal(t, 14*24*time.Hour, p.AltMinAge())
	assert.Equal(t, model.AltActionBan, p.AltAction)
	assert.Error(t, applyProtection(p, "alt", opts(strOpt("min_age", "old"))))
}

func TestApplyProtectionLogChannel(t *testing.T) {
	p := model.DefaultGuildPolicy("g1")
	channel := &discordgo.ApplicationCommandInteractionDataOption{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "c42"}

	require.NoError(t, applyProtection(p, "logchannel", opts(channel)))
	assert.Equal(t, "c42", p.AutomodLogChannel)
	assert.Error(t, applyProtection(p, "logchannel", opts()))
}

func TestApplyProtectionUnknownFeature(t *testing.T) {
	assert.Error(t, applyProtection(model.DefaultGuildPolicy("g1"), "nuke", opts()))
}

func TestPolicyStatusEmbedListsEveryFeature(t *testing.T) {
	p := model.DefaultGuildPolicy("g1")
	p.AntiRaidEnabled = true

	embed := policyStatusEmbed(p)

	names := make([]string, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	for _, want := range []string{"Anti-Raid", "Anti-Spam", "Anti-Mention", "Anti-Link", "Anti-Invite", "Anti-Caps", "Alt Detection", "Log Channel"} {
		assert.Contains(t, names, want)
	}
	assert.Equal(t, "Enabled", embed.Fields[0].Value)
	assert.Equal(t, "10 joins in 10 seconds", embed.Fields[1].Value)
}

package defs

import "github.com/bwmarrin/discordgo"

func floatPtr(f float64) *float64 { return &f }

var contentActionChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Alert only", Value: "alert"},
	{Name: "Delete message", Value: "delete"},
	{Name: "Warn user", Value: "warn"},
	{Name: "Mute user", Value: "mute"},
	{Name: "Kick user", Value: "kick"},
	{Name: "Ban user", Value: "ban"},
}

var raidActionChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Alert only", Value: "alert"},
	{Name: "Kick new members", Value: "kick"},
	{Name: "Ban new members", Value: "ban"},
	{Name: "Raise verification level", Value: "verification"},
}

var altActionChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Alert only", Value: "alert"},
	{Name: "Kick account", Value: "kick"},
	{Name: "Ban account", Value: "ban"},
}

func enabledOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "enabled",
		Description: "Turn the protection on or off",
		Required:    true,
	}
}

func actionOption(choices []*discordgo.ApplicationCommandOptionChoice) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "action",
		Description: "Action to take when triggered",
		Choices:     choices,
	}
}

func thresholdOption(description string, min, max float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "threshold",
		Description: description,
		MinValue:    floatPtr(min),
		MaxValue:    max,
	}
}

func windowOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "window",
		Description: description,
	}
}

var Protection = &discordgo.ApplicationCommand{
	Name:        "protection",
	Description: "Configure guild protection",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "raid",
			Description: "Join-rate raid detection",
			Options: []*discordgo.ApplicationCommandOption{
				enabledOption(),
				actionOption(raidActionChoices),
				thresholdOption("Joins inside the window that count as a raid", 2, 100),
				windowOption("Join window (e.g. 10s)"),
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "spam",
			Description: "Message-rate spam detection",
			Options: []*discordgo.ApplicationCommandOption{
				enabledOption(),
				actionOption(contentActionChoices),
				thresholdOption("Messages inside the window that count as spam", 3, 15),
				windowOption("Message window (e.g. 3s)"),
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "mention",
			Description: "Mass mention detection",
			Options: []*discordgo.ApplicationCommandOption{
				enabledOption(),
				actionOption(contentActionChoices),
				thresholdOption("Distinct mentions in one message", 1, 50),
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "link",
			Description: "Unauthorized link detection",
			Options: []*discordgo.ApplicationCommandOption{
				enabledOption(),
				actionOption(contentActionChoices),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "whitelist",
					Description: "Comma separated allowed domains",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "invite",
			Description: "Discord invite detection",
			Options: []*discordgo.ApplicationCommandOption{
				enabledOption(),
				actionOption(contentActionChoices),
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "caps",
			Description: "Excessive caps detection",
			Options: []*discordgo.ApplicationCommandOption{
				enabledOption(),
				actionOption(contentActionChoices),
				thresholdOption("Percentage of capital letters", 1, 100),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "min_length",
					Description: "Shortest message checked",
					MinValue:    floatPtr(1),
					MaxValue:    2000,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "alt",
			Description: "New account detection",
			Options: []*discordgo.ApplicationCommandOption{
				enabledOption(),
				actionOption(altActionChoices),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "min_age",
					Description: "Minimum account age (e.g. 7d)",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "logchannel",
			Description: "Set the channel that receives automod alerts",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Alert channel",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "status",
			Description: "View the current protection settings",
		},
	},
}

var Permission = &discordgo.ApplicationCommand{
	Name:        "permission",
	Description: "Manage who may use bot commands",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "grant",
			Description: "Allow or deny a role a command",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "command", Description: "Command name", Required: true},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "allowed", Description: "Allow (true) or deny (false)", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "revoke",
			Description: "Remove a role's explicit grant for a command",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "command", Description: "Command name", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "restrict",
			Description: "Stop administrators from bypassing role grants for a command",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "command", Description: "Command name", Required: true},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "restricted", Description: "Restricted for admins", Required: true},
			},
		},
	},
}

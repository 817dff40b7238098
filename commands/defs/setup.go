package defs

import "github.com/bwmarrin/discordgo"

func logChannelSubcommand(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Log channel",
				Required:     true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			},
		},
	}
}

var Setup = &discordgo.ApplicationCommand{
	Name:        "setup",
	Description: "Configure log channels and the join role",
	Options: []*discordgo.ApplicationCommandOption{
		logChannelSubcommand("modlog", "Set the channel for manual moderation logs"),
		logChannelSubcommand("memberlog", "Set the channel for member join logs"),
		logChannelSubcommand("messagelog", "Set the channel for message logs"),
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "joinrole",
			Description: "Set the role given to new members",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to assign", Required: true},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Assign the role on join (default true)"},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "status",
			Description: "View the current setup",
		},
	},
}

var AutoResponse = &discordgo.ApplicationCommand{
	Name:        "autoresponse",
	Description: "Manage automatic replies to keywords",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Reply when a message contains a keyword or matches a pattern",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "trigger", Description: "Keyword or regular expression", Required: true, MaxLength: 200},
				{Type: discordgo.ApplicationCommandOptionString, Name: "response", Description: "Reply text", Required: true, MaxLength: 2000},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "regex", Description: "Treat the trigger as a regular expression"},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Remove an auto response",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "Auto response ID", Required: true, MinValue: floatPtr(1)},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "List the configured auto responses",
		},
	},
}

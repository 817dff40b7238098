package defs

import "github.com/bwmarrin/discordgo"

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func reasonOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason for the action",
		Required:    required,
		MaxLength:   512,
	}
}

var Timeout = &discordgo.ApplicationCommand{
	Name:        "timeout",
	Description: "Timeout a user for a specified duration",
	Options: []*discordgo.ApplicationCommandOption{
		userOption("The user to timeout"),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duration",
			Description: "Duration of the timeout (e.g. 10m, 1h, 7d)",
			Required:    true,
		},
		reasonOption(false),
	},
}

var Warn = &discordgo.ApplicationCommand{
	Name:        "warn",
	Description: "Warn a user",
	Options: []*discordgo.ApplicationCommandOption{
		userOption("The user to warn"),
		reasonOption(true),
	},
}

var Kick = &discordgo.ApplicationCommand{
	Name:        "kick",
	Description: "Kick a user from the server",
	Options: []*discordgo.ApplicationCommandOption{
		userOption("The user to kick"),
		reasonOption(false),
	},
}

var Ban = &discordgo.ApplicationCommand{
	Name:        "ban",
	Description: "Ban a user from the server",
	Options: []*discordgo.ApplicationCommandOption{
		userOption("The user to ban"),
		reasonOption(false),
	},
}

var History = &discordgo.ApplicationCommand{
	Name:        "history",
	Description: "View moderation history for a user",
	Options: []*discordgo.ApplicationCommandOption{
		userOption("The user to check"),
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "detailed",
			Description: "Show the most recent actions",
			Required:    false,
		},
	},
}

var SysInfo = &discordgo.ApplicationCommand{
	Name:        "sysinfo",
	Description: "Show host and bot runtime information",
}

package commands

import (
	"guild-guardian/commands/defs"

	"github.com/bwmarrin/discordgo"
)

var noDM = false

// Definitions returns every slash command the bot registers. None are usable in DMs.
func Definitions() []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{
		defs.Timeout,
		defs.Warn,
		defs.Kick,
		defs.Ban,
		defs.History,
		defs.Protection,
		defs.Permission,
		defs.Setup,
		defs.AutoResponse,
		defs.SysInfo,
	}
	for _, c := range cmds {
		c.DMPermission = &noDM
	}
	return cmds
}

// Names returns the registered command names.
func Names() []string {
	cmds := Definitions()
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	return names
}

package permissions

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrTargetSelf     = errors.New("you cannot target yourself")
	ErrTargetOwner    = errors.New("you cannot target the server owner")
	ErrTargetOutranks = errors.New("target has an equal or higher role than you")
	ErrTargetAboveBot = errors.New("target has an equal or higher role than the bot")
)

// Member is a guild member reduced to what the target guard compares.
type Member struct {
	UserID string
	// HighestRole is the position of the member's highest role; 0 for @everyone only.
	HighestRole int
}

// CheckTarget returns the first failing check, or nil if actor may act on target.
func CheckTarget(actor, target, bot Member, guildOwnerID string) error {
	if actor.UserID == target.UserID {
		return ErrTargetSelf
	}
	if target.UserID == guildOwnerID {
		return ErrTargetOwner
	}
	if target.HighestRole >= actor.HighestRole {
		return ErrTargetOutranks
	}
	if target.HighestRole >= bot.HighestRole {
		return ErrTargetAboveBot
	}
	return nil
}

func CanTarget(actor, target, bot Member, guildOwnerID string) bool {
	return CheckTarget(actor, target, bot, guildOwnerID) == nil
}

// HighestRolePosition returns the highest position among roleIDs in the guild.
func HighestRolePosition(guild *discordgo.Guild, roleIDs []string) int {
	highest := 0
	for _, roleID := range roleIDs {
		for _, role := range guild.Roles {
			if role.ID == roleID && role.Position > highest {
				highest = role.Position
			}
		}
	}
	return highest
}

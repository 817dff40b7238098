package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"guild-guardian/bot"
	"guild-guardian/commands"
	"guild-guardian/model"
	"guild-guardian/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func handlePermission(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "permission")
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

	command, err := knownCommand(opts.getString("command", ""))
	if err != nil {
		respondError(s, i, b, err.Error())
		return
	}

	var message string
	switch sub.Name {
	case "grant":
		roleID := opts["role"].RoleValue(nil, "").ID
		allowed, _ := opts.getBool("allowed")
		err = b.Store.SetRolePermissionGrant(ctx, model.RolePermissionGrant{
			GuildID: inv.guild.ID,
			RoleID:  roleID,
			Command: command,
			Allowed: allowed,
		})
		verb := "denied"
		if allowed {
			verb = "allowed"
		}
		message = fmt.Sprintf("<@&%s> is now %s `/%s`.", roleID, verb, command)
	case "revoke":
		roleID := opts["role"].RoleValue(nil, "").ID
		err = b.Store.DeleteRolePermissionGrant(ctx, inv.guild.ID, roleID, command)
		message = fmt.Sprintf("Removed the grant for <@&%s> on `/%s`.", roleID, command)
	case "restrict":
		restricted, _ := opts.getBool("restricted")
		err = b.Store.SetCommandRestriction(ctx, inv.guild.ID, command, restricted)
		if restricted {
			message = fmt.Sprintf("Administrators now need an explicit grant for `/%s`.", command)
		} else {
			message = fmt.Sprintf("Administrators may use `/%s` again.", command)
		}
	default:
		respondError(s, i, b, "Unknown subcommand")
		return
	}
	if err != nil {
		inv.log.Error("failed to update permissions", zap.String("subcommand", sub.Name), zap.Error(err))
		respondError(s, i, b, "Failed to update permissions")
		return
	}
	inv.log.Info("permissions updated", zap.String("subcommand", sub.Name), zap.String("target_command", command))
	if err := utils.RespondEmbed(s, i, utils.SuccessEmbed("Permissions Updated", message), true); err != nil {
		inv.log.Warn("failed to respond", zap.Error(err))
	}
}

// knownCommand normalizes a command name typed by a moderator and rejects unknown ones.
func knownCommand(raw string) (string, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "/"))
	names := commands.Names()
	if !slices.Contains(names, name) {
		return "", userError(fmt.Sprintf("Unknown command %q. Known commands: %s", raw, strings.Join(names, ", ")))
	}
	return name, nil
}

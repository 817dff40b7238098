package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guild-guardian/bot"
	"guild-guardian/guildlog"
	"guild-guardian/model"
	"guild-guardian/utils"
	"guild-guardian/utils/database"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func handleAutoResponse(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "autoresponse")
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

	var embed *discordgo.MessageEmbed
	switch sub.Name {
	case "add":
		regex, _ := opts.getBool("regex")
		rule, err := newAutoResponse(inv.guild.ID, opts.getString("trigger", ""), opts.getString("response", ""), regex)
		if err != nil {
			respondError(s, i, b, err.Error())
			return
		}
		id, err := b.Store.InsertAutoResponse(ctx, rule)
		if errors.Is(err, database.ErrAutoResponseLimit) {
			respondError(s, i, b, fmt.Sprintf("This server already has the maximum of %d auto responses", database.MaxAutoResponses))
			return
		}
		if err != nil {
			inv.log.Error("failed to save auto response", zap.Error(err))
			respondError(s, i, b, "Failed to save the auto response")
			return
		}
		inv.log.Info("auto response added", zap.Int64("rule_id", id), zap.Bool("regex", regex))
		embed = utils.SuccessEmbed("Auto Response Added", fmt.Sprintf("Auto response **#%d** will reply to %s", id, describeTrigger(rule)))
	case "remove":
		id, _ := opts.getInt("id")
		if err := b.Store.DeleteAutoResponse(ctx, inv.guild.ID, int64(id)); err != nil {
			inv.log.Warn("failed to remove auto response", zap.Int("rule_id", id), zap.Error(err))
			respondError(s, i, b, fmt.Sprintf("No auto response with ID %d. Use /autoresponse list to see them.", id))
			return
		}
		inv.log.Info("auto response removed", zap.Int("rule_id", id))
		embed = utils.SuccessEmbed("Auto Response Removed", fmt.Sprintf("Removed auto response **#%d**", id))
	case "list":
		rules, err := b.Store.ListAutoResponses(ctx, inv.guild.ID)
		if err != nil {
			inv.log.Error("failed to list auto responses", zap.Error(err))
			respondError(s, i, b, "Failed to load auto responses")
			return
		}
		embed = autoResponseListEmbed(rules)
	default:
		respondError(s, i, b, fmt.Sprintf("Unknown subcommand %q", sub.Name))
		return
	}
	if err := utils.RespondEmbed(s, i, embed, true); err != nil {
		inv.log.Warn("failed to respond", zap.Error(err))
	}
}

// newAutoResponse validates a rule before it is stored. Regex triggers must compile.
func newAutoResponse(guildID, trigger, response string, regex bool) (model.AutoResponse, error) {
	trigger = strings.TrimSpace(trigger)
	response = strings.TrimSpace(response)
	if trigger == "" {
		return model.AutoResponse{}, userError("The trigger cannot be empty")
	}
	if response == "" {
		return model.AutoResponse{}, userError("The response cannot be empty")
	}
	if regex {
		if _, err := guildlog.CompileTrigger(trigger); err != nil {
			return model.AutoResponse{}, userError("Invalid regular expression: " + utils.Truncate(err.Error(), 200))
		}
	}
	return model.AutoResponse{GuildID: guildID, Trigger: trigger, Response: response, IsRegex: regex}, nil
}

func describeTrigger(r model.AutoResponse) string {
	if r.IsRegex {
		return fmt.Sprintf("messages matching `%s`", r.Trigger)
	}
	return fmt.Sprintf("messages containing `%s`", r.Trigger)
}

func autoResponseListEmbed(rules []model.AutoResponse) *discordgo.MessageEmbed {
	embed := utils.InfoEmbed("Auto Responses", "")
	if len(rules) == 0 {
		embed.Description = "No auto responses configured. Add one with /autoresponse add."
		return embed
	}
	embed.Description = fmt.Sprintf("%d of %d auto responses", len(rules), database.MaxAutoResponses)
	for _, r := range rules {
		if len(embed.Fields) == 25 {
			break
		}
		kind := "Keyword"
		if r.IsRegex {
			kind = "Regex"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  utils.Truncate(fmt.Sprintf("#%d %s: %s", r.ID, kind, r.Trigger), 256),
			Value: utils.Truncate(r.Response, 1024),
		})
	}
	return embed
}

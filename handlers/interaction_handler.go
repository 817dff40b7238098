package handlers

import (
	"context"
	"fmt"

	"guild-guardian/bot"
	"guild-guardian/permissions"
	"guild-guardian/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func (o options) getString(name, fallback string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return fallback
}

// getID returns the snowflake of a channel, role or user option.
func (o options) getID(name string) string {
	if opt, ok := o[name]; ok {
		if id, ok := opt.Value.(string); ok {
			return id
		}
	}
	return ""
}

func (o options) getBool(name string) (bool, bool) {
	if opt, ok := o[name]; ok {
		return opt.BoolValue(), true
	}
	return false, false
}

func (o options) getInt(name string) (int, bool) {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue()), true
	}
	return 0, false
}

// invocation is an authorized slash command call.
type invocation struct {
	ctx     context.Context
	actor   permissions.Actor
	guild   *discordgo.Guild
	options options
	log     *zap.Logger
}

func handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	h, ok := b.CommandHandlers[name]
	if !ok {
		b.Logger.Warn("command not found", zap.String("command", name))
		respondError(s, i, b, "This command is not currently available.")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.Logger.Error("recovered from panic in command", zap.String("command", name), zap.Any("panic", r))
			respondError(s, i, b, "An error occurred while executing this command.")
		}
	}()
	h(s, i)
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, message string) {
	if err := utils.SendErrorResponse(s, i, message); err != nil {
		b.Logger.Warn("failed to send error response", zap.Error(err))
	}
}

func lookupGuild(s *discordgo.Session, guildID string) (*discordgo.Guild, error) {
	if g, err := s.State.Guild(guildID); err == nil {
		return g, nil
	}
	return s.Guild(guildID)
}

// authorize resolves the invoking member and checks CanUse. On refusal it has
// already responded and returns nil.
func authorize(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, command string) *invocation {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		respondError(s, i, b, "This command can only be used in a server")
		return nil
	}
	guild, err := lookupGuild(s, i.GuildID)
	if err != nil {
		b.Logger.Error("failed to fetch guild", zap.String("guild_id", i.GuildID), zap.Error(err))
		respondError(s, i, b, "Could not load this server. Try again later.")
		return nil
	}

	actor := permissions.Actor{
		UserID:      i.Member.User.ID,
		GuildID:     i.GuildID,
		GuildOwner:  guild.OwnerID,
		RoleIDs:     i.Member.Roles,
		Permissions: i.Member.Permissions,
	}
	log := b.Logger.With(zap.String("command", command), zap.String("guild_id", i.GuildID), zap.String("user_id", actor.UserID))

	allowed, err := b.Resolver.CanUse(ctx, actor, command)
	if err != nil {
		log.Error("permission lookup failed", zap.Error(err))
	}
	if !allowed {
		respondError(s, i, b, "You do not have permission to use this command")
		return nil
	}
	log.Info("command invoked")

	return &invocation{
		ctx:     ctx,
		actor:   actor,
		guild:   guild,
		options: optionMap(i.ApplicationCommandData().Options),
		log:     log,
	}
}

// resolveTarget returns the target member, preferring the interaction's resolved data.
func resolveTarget(s *discordgo.Session, i *discordgo.InteractionCreate, userID string) (*discordgo.Member, error) {
	data := i.ApplicationCommandData()
	if data.Resolved != nil {
		if m, ok := data.Resolved.Members[userID]; ok && m != nil {
			member := *m
			if member.User == nil {
				member.User = data.Resolved.Users[userID]
			}
			if member.User == nil {
				member.User = &discordgo.User{ID: userID}
			}
			return &member, nil
		}
	}
	return s.GuildMember(i.GuildID, userID)
}

func botMember(s *discordgo.Session, guildID string) (*discordgo.Member, error) {
	if s.State == nil || s.State.User == nil {
		return nil, fmt.Errorf("bot user unknown")
	}
	if m, err := s.State.Member(guildID, s.State.User.ID); err == nil {
		return m, nil
	}
	return s.GuildMember(guildID, s.State.User.ID)
}

// checkTarget applies the target guard between the actor, target and bot.
func checkTarget(inv *invocation, target, self *discordgo.Member) error {
	return permissions.CheckTarget(
		permissions.Member{UserID: inv.actor.UserID, HighestRole: permissions.HighestRolePosition(inv.guild, inv.actor.RoleIDs)},
		permissions.Member{UserID: target.User.ID, HighestRole: permissions.HighestRolePosition(inv.guild, target.Roles)},
		permissions.Member{UserID: self.User.ID, HighestRole: permissions.HighestRolePosition(inv.guild, self.Roles)},
		inv.guild.OwnerID,
	)
}

package handlers

import (
	"context"
	"time"

	"guild-guardian/bot"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// eventTimeout bounds one gateway event, including paced raid removals.
const eventTimeout = 2 * time.Minute

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"timeout":      func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleTimeout(s, i, b) },
		"warn":         func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleWarn(s, i, b) },
		"kick":         func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleKick(s, i, b) },
		"ban":          func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleBan(s, i, b) },
		"history":      func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleHistory(s, i, b) },
		"protection":   func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleProtection(s, i, b) },
		"permission":   func(s *discordgo.Session, i *discordgo.InteractionCreate) { handlePermission(s, i, b) },
		"setup":        func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleSetup(s, i, b) },
		"autoresponse": func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleAutoResponse(s, i, b) },
		"sysinfo":      func(s *discordgo.Session, i *discordgo.InteractionCreate) { SystemInfoHandler(s, i, b) },
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.Logger.Info("logged in", zap.String("user", r.User.String()), zap.Int("guilds", len(r.Guilds)))
	})
	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if _, err := b.Store.EnsureGuildPolicy(ctx, g.ID); err != nil {
			b.Logger.Error("failed to ensure guild policy", zap.String("guild_id", g.ID), zap.Error(err))
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		ev := joinEventFromMember(m.Member, b.Clock.Now())
		if g, err := s.State.Guild(ev.GuildID); err == nil {
			ev.MemberCount = g.MemberCount
		}
		if err := b.GuildLog.HandleJoin(ctx, ev); err != nil {
			b.Logger.Warn("member log failed",
				zap.String("guild_id", ev.GuildID), zap.String("user_id", ev.UserID), zap.Error(err))
		}
		if err := b.Engine.HandleJoin(ctx, ev); err != nil {
			b.Logger.Error("join event dropped",
				zap.String("guild_id", ev.GuildID), zap.String("user_id", ev.UserID), zap.Error(err))
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		msg := messageEventFrom(m.Message)
		if err := b.GuildLog.HandleMessage(ctx, msg); err != nil {
			b.Logger.Warn("message log failed",
				zap.String("guild_id", msg.GuildID), zap.String("message_id", msg.MessageID), zap.Error(err))
		}
		if err := b.Engine.HandleMessage(ctx, msg); err != nil {
			b.Logger.Error("message event dropped",
				zap.String("guild_id", msg.GuildID), zap.String("message_id", msg.MessageID), zap.Error(err))
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleInteractionCreate(s, i, b)
	})
}

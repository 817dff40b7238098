package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guild-guardian/bot"
	"guild-guardian/dispatcher"
	"guild-guardian/model"
	"guild-guardian/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// MaxTimeout is the longest timeout the platform accepts.
const MaxTimeout = 28 * 24 * time.Hour

const noReason = "No reason provided"

// userError is shown to the invoking moderator as is.
type userError string

func (e userError) Error() string { return string(e) }

const (
	errBadDuration  userError = "Invalid duration format. Examples: 1m, 1h, 1d"
	errTooLong      userError = "Timeout duration cannot exceed 28 days"
	errNotInGuild   userError = "User is not in this server"
	errBotNotLoaded userError = "Could not resolve the bot's own member"
)

func parseTimeoutDuration(raw string) (time.Duration, error) {
	d, err := utils.ParseDuration(raw)
	if err != nil {
		return 0, errBadDuration
	}
	if d > MaxTimeout {
		return 0, errTooLong
	}
	return d, nil
}

// sanction describes one manual moderation command.
type sanction struct {
	command    string
	title      string
	verb       string
	actionType model.ModActionType
	// allowAbsent lets the command target users that are not in the guild.
	allowAbsent bool
	apply       func(ctx context.Context, b *bot.Bot, inv *invocation, user *discordgo.User, reason string) error
}

func handleTimeout(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "timeout")
	if inv == nil {
		return
	}
	d, err := parseTimeoutDuration(inv.options.getString("duration", ""))
	if err != nil {
		respondError(s, i, b, err.Error())
		return
	}
	moderate(s, i, b, inv, sanction{
		command:    "timeout",
		title:      "User Timed Out",
		verb:       "timed out",
		actionType: model.ModActionTimeout,
		apply: func(ctx context.Context, b *bot.Bot, inv *invocation, user *discordgo.User, reason string) error {
			until := b.Clock.Now().Add(d)
			return b.Platform.TimeoutMember(ctx, inv.guild.ID, user.ID, &until, auditReason(reason, "Timed out", i))
		},
	}, d)
}

func handleWarn(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "warn")
	if inv == nil {
		return
	}
	moderate(s, i, b, inv, sanction{
		command:    "warn",
		title:      "User Warned",
		verb:       "warned",
		actionType: model.ModActionWarn,
		apply: func(ctx context.Context, b *bot.Bot, inv *invocation, user *discordgo.User, reason string) error {
			msg := fmt.Sprintf("You have been warned in **%s**: %s", inv.guild.Name, reason)
			if err := b.Platform.SendDirectMessage(ctx, user.ID, msg); err != nil {
				dispatcher.Swallow(inv.log, "warn_dm", err)
			}
			return nil
		},
	}, 0)
}

func handleKick(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "kick")
	if inv == nil {
		return
	}
	moderate(s, i, b, inv, sanction{
		command:    "kick",
		title:      "User Kicked",
		verb:       "kicked",
		actionType: model.ModActionKick,
		apply: func(ctx context.Context, b *bot.Bot, inv *invocation, user *discordgo.User, reason string) error {
			return b.Platform.KickMember(ctx, inv.guild.ID, user.ID, auditReason(reason, "Kicked", i))
		},
	}, 0)
}

func handleBan(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "ban")
	if inv == nil {
		return
	}
	moderate(s, i, b, inv, sanction{
		command:     "ban",
		title:       "User Banned",
		verb:        "banned",
		actionType:  model.ModActionBan,
		allowAbsent: true,
		apply: func(ctx context.Context, b *bot.Bot, inv *invocation, user *discordgo.User, reason string) error {
			return b.Platform.BanMember(ctx, inv.guild.ID, user.ID, auditReason(reason, "Banned", i))
		},
	}, 0)
}

func auditReason(reason, verb string, i *discordgo.InteractionCreate) string {
	return fmt.Sprintf("%s (%s by %s)", reason, verb, i.Member.User.String())
}

// moderate resolves and guards the target, applies the sanction, records it
// in the ledger and reports to the automod log channel.
func moderate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, inv *invocation, sc sanction, d time.Duration) {
	opt, ok := inv.options["user"]
	if !ok {
		respondError(s, i, b, "User not found")
		return
	}
	user := opt.UserValue(nil)
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil && resolved.Users[user.ID] != nil {
		user = resolved.Users[user.ID]
	}
	reason := inv.options.getString("reason", noReason)
	if strings.TrimSpace(reason) == "" {
		reason = noReason
	}

	if err := guardTarget(s, i, inv, user.ID, sc.allowAbsent); err != nil {
		respondError(s, i, b, err.Error())
		return
	}

	if err := sc.apply(inv.ctx, b, inv, user, reason); err != nil {
		inv.log.Error("sanction failed", zap.String("target_id", user.ID), zap.Error(err))
		respondError(s, i, b, fmt.Sprintf("Failed to %s user: %v", sc.command, err))
		return
	}

	now := b.Clock.Now()
	action := model.ModAction{
		GuildID:     inv.guild.ID,
		UserID:      user.ID,
		ModeratorID: inv.actor.UserID,
		ActionType:  sc.actionType,
		Reason:      reason,
		CreatedAt:   now.UnixMilli(),
	}
	if sc.actionType == model.ModActionTimeout {
		action = model.NewTimeoutAction(inv.guild.ID, user.ID, inv.actor.UserID, reason, d, now)
	}
	if _, err := b.Store.InsertModAction(inv.ctx, action); err != nil {
		inv.log.Error("failed to record mod action", zap.String("target_id", user.ID), zap.Error(err))
	}

	description := fmt.Sprintf("Successfully %s %s (%s)", sc.verb, user.String(), user.ID)
	if d > 0 {
		description += " for " + utils.FormatDuration(d)
	}
	if err := utils.RespondEmbed(s, i, utils.SuccessEmbed(sc.title, description), false); err != nil {
		inv.log.Warn("failed to respond", zap.Error(err))
	}

	alert := modLogAlert(sc.title, i.Member.User.String(), user, reason, d, now)
	if err := b.GuildLog.ModLog(inv.ctx, inv.guild.ID, alert); err != nil {
		inv.log.Warn("failed to post mod log", zap.Error(err))
	}
}

func guardTarget(s *discordgo.Session, i *discordgo.InteractionCreate, inv *invocation, userID string, allowAbsent bool) error {
	target, err := resolveTarget(s, i, userID)
	if err != nil {
		if allowAbsent && userID != inv.actor.UserID {
			return nil
		}
		return errNotInGuild
	}
	self, err := botMember(s, inv.guild.ID)
	if err != nil {
		inv.log.Error("failed to resolve bot member", zap.Error(err))
		return errBotNotLoaded
	}
	return checkTarget(inv, target, self)
}

func modLogAlert(title, moderator string, target *discordgo.User, reason string, d time.Duration, now time.Time) model.Alert {
	alert := model.Alert{
		Title: title,
		Color: model.ColorOrange,
		Fields: []model.AlertField{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", target.String(), target.ID), Inline: true},
			{Name: "Moderator", Value: moderator, Inline: true},
			{Name: "Reason", Value: reason},
		},
		Timestamp: now,
	}
	if d > 0 {
		alert.Fields = append(alert.Fields,
			model.AlertField{Name: "Duration", Value: utils.FormatDuration(d), Inline: true},
			model.AlertField{Name: "Expires At", Value: fmt.Sprintf("<t:%d:F>", now.Add(d).Unix()), Inline: true})
	}
	return alert
}

const historyDetailLimit = 10

func handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "history")
	if inv == nil {
		return
	}
	opt, ok := inv.options["user"]
	if !ok {
		respondError(s, i, b, "User not found")
		return
	}
	user := opt.UserValue(nil)
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil && resolved.Users[user.ID] != nil {
		user = resolved.Users[user.ID]
	}
	detailed, _ := inv.options.getBool("detailed")

	actions, err := b.Store.QueryModActions(ctx, inv.guild.ID, user.ID)
	if err != nil {
		inv.log.Error("failed to query history", zap.Error(err))
		respondError(s, i, b, "Failed to fetch user history")
		return
	}
	counts, err := b.Store.CountModActionsByType(ctx, inv.guild.ID, user.ID)
	if err != nil {
		inv.log.Error("failed to count history", zap.Error(err))
		respondError(s, i, b, "Failed to fetch user history")
		return
	}

	if err := utils.RespondEmbed(s, i, historyEmbed(user, actions, counts, detailed), true); err != nil {
		inv.log.Warn("failed to respond", zap.Error(err))
	}
}

var historyOrder = []model.ModActionType{model.ModActionWarn, model.ModActionTimeout, model.ModActionKick, model.ModActionBan}

// historyEmbed renders a user's ledger: per-type counts and, when detailed, the latest entries.
func historyEmbed(user *discordgo.User, actions []model.ModAction, counts map[model.ModActionType]int, detailed bool) *discordgo.MessageEmbed {
	if len(actions) == 0 {
		return utils.InfoEmbed("Moderation History", fmt.Sprintf("%s has no moderation history in this server", user.String()))
	}

	var summary []string
	for _, t := range historyOrder {
		if n := counts[t]; n > 0 {
			summary = append(summary, fmt.Sprintf("**%s**: %d", t, n))
		}
	}
	embed := &discordgo.MessageEmbed{
		Title:  "Moderation History for " + user.String(),
		Color:  model.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{{Name: "Summary", Value: strings.Join(summary, "\n")}},
		Footer: &discordgo.MessageEmbedFooter{Text: "User ID: " + user.ID},
	}
	if !detailed {
		return embed
	}

	latest := actions
	if len(latest) > historyDetailLimit {
		latest = latest[:historyDetailLimit]
		embed.Footer.Text = fmt.Sprintf("User ID: %s | Showing %d/%d actions", user.ID, historyDetailLimit, len(actions))
	}
	var sb strings.Builder
	for _, a := range latest {
		fmt.Fprintf(&sb, "**%s** - <t:%d:R>\n", a.ActionType, a.CreatedAt/1000)
		if a.Duration > 0 {
			fmt.Fprintf(&sb, "Duration: %s\n", utils.FormatDuration(time.Duration(a.Duration)*time.Millisecond))
		}
		fmt.Fprintf(&sb, "By: <@%s>\nReason: %s\n\n", a.ModeratorID, orDefault(a.Reason, noReason))
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Recent Actions",
		Value: utils.Truncate(sb.String(), 1024),
	})
	return embed
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

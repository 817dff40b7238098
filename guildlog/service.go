package guildlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"guild-guardian/dispatcher"
	"guild-guardian/model"
	"guild-guardian/utils"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	// messages shorter than this are not worth a log entry
	minLoggedMessageRunes = 5
	patternCacheSize      = 512
	patternCacheTTL       = time.Hour
)

// Platform is the chat surface the service posts to.
type Platform interface {
	SendAlert(ctx context.Context, channelID string, alert model.Alert) error
	SendMessage(ctx context.Context, channelID, content string) error
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
}

// Store is the part of the Policy Store the service reads.
type Store interface {
	GetGuildPolicy(ctx context.Context, guildID string) (*model.GuildPolicy, error)
	ListAutoResponses(ctx context.Context, guildID string) ([]model.AutoResponse, error)
}

// Service handles the non-protective side of joins and messages: member and
// message logs, the join role, auto responses and the manual moderation log.
type Service struct {
	platform Platform
	store    Store
	clock    utils.Clock
	logger   *zap.Logger
	patterns *patternCache
}

func New(platform Platform, store Store, clock utils.Clock, logger *zap.Logger) *Service {
	return &Service{
		platform: platform,
		store:    store,
		clock:    clock,
		logger:   logger,
		patterns: newPatternCache(expirable.NewLRU[string, compiledPattern](patternCacheSize, nil, patternCacheTTL)),
	}
}

// HandleJoin posts the member log entry and assigns the join role.
func (s *Service) HandleJoin(ctx context.Context, ev model.JoinEvent) error {
	if ev.GuildID == "" {
		return nil
	}
	policy, err := s.store.GetGuildPolicy(ctx, ev.GuildID)
	if err != nil {
		return fmt.Errorf("failed to load policy for guild %s: %w", ev.GuildID, err)
	}
	if policy == nil {
		return nil
	}
	log := s.logger.With(zap.String("guild_id", ev.GuildID), zap.String("user_id", ev.UserID))

	if policy.MemberLogChannel != "" {
		dispatcher.Swallow(log, "member_log",
			s.platform.SendAlert(ctx, policy.MemberLogChannel, memberJoinAlert(ev, s.clock.Now())))
	}
	if policy.AutoRoleEnabled && policy.JoinRoleID != "" {
		err := s.platform.AddMemberRole(ctx, ev.GuildID, ev.UserID, policy.JoinRoleID)
		dispatcher.Swallow(log, "join_role", err, zap.String("role_id", policy.JoinRoleID))
		if err == nil {
			log.Debug("assigned join role", zap.String("role_id", policy.JoinRoleID))
		}
	}
	return nil
}

// HandleMessage sends the first matching auto response and copies the
// message to the message log. Bot, webhook and direct messages are ignored.
func (s *Service) HandleMessage(ctx context.Context, msg model.MessageEvent) error {
	if msg.GuildID == "" || msg.Bot || msg.WebhookID != "" {
		return nil
	}

	var errs []error
	if msg.Content != "" {
		if err := s.autoRespond(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}

	policy, err := s.store.GetGuildPolicy(ctx, msg.GuildID)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to load policy for guild %s: %w", msg.GuildID, err))
	} else if policy != nil && shouldLogMessage(msg, policy.MessageLogChannel) {
		dispatcher.Swallow(s.logger, "message_log",
			s.platform.SendAlert(ctx, policy.MessageLogChannel, messageLogAlert(msg, s.clock.Now())),
			zap.String("guild_id", msg.GuildID))
	}
	return errors.Join(errs...)
}

// ModLog reports a manual moderation action to the guild's mod log channel.
func (s *Service) ModLog(ctx context.Context, guildID string, alert model.Alert) error {
	policy, err := s.store.GetGuildPolicy(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load policy for guild %s: %w", guildID, err)
	}
	if policy == nil || policy.ModLogChannel == "" {
		return nil
	}
	dispatcher.Swallow(s.logger, "mod_log", s.platform.SendAlert(ctx, policy.ModLogChannel, alert),
		zap.String("guild_id", guildID))
	return nil
}

func (s *Service) autoRespond(ctx context.Context, msg model.MessageEvent) error {
	rules, err := s.store.ListAutoResponses(ctx, msg.GuildID)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		matched, err := s.patterns.matches(rule, msg.Content)
		if err != nil {
			// a broken pattern only disables its own rule
			s.logger.Warn("invalid auto response pattern",
				zap.String("guild_id", msg.GuildID), zap.Int64("rule_id", rule.ID), zap.Error(err))
			continue
		}
		if !matched {
			continue
		}
		if err := s.platform.SendMessage(ctx, msg.ChannelID, rule.Response); err != nil {
			dispatcher.Swallow(s.logger, "auto_response", err,
				zap.String("guild_id", msg.GuildID), zap.Int64("rule_id", rule.ID))
			continue
		}
		return nil
	}
	return nil
}

func shouldLogMessage(msg model.MessageEvent, channelID string) bool {
	switch {
	case channelID == "" || msg.Content == "":
		return false
	case msg.ChannelID == channelID:
		return false
	case strings.HasPrefix(msg.Content, "!") || strings.HasPrefix(msg.Content, "/"):
		return false
	}
	return utf8.RuneCountInString(msg.Content) >= minLoggedMessageRunes
}

func memberJoinAlert(ev model.JoinEvent, now time.Time) model.Alert {
	count := "Unknown"
	if ev.MemberCount > 0 {
		count = fmt.Sprintf("%d", ev.MemberCount)
	}
	created := "Unknown"
	if !ev.AccountCreatedAt.IsZero() {
		created = fmt.Sprintf("<t:%d:R>", ev.AccountCreatedAt.Unix())
	}
	return model.Alert{
		Title:        "Member Joined",
		Description:  fmt.Sprintf("%s (%s)", ev.UserTag, ev.UserID),
		Color:        model.ColorGreen,
		ThumbnailURL: ev.AvatarURL,
		Fields: []model.AlertField{
			{Name: "Account Created", Value: created, Inline: true},
			{Name: "Member Count", Value: count, Inline: true},
		},
		Timestamp: now,
	}
}

func messageLogAlert(msg model.MessageEvent, now time.Time) model.Alert {
	alert := model.Alert{
		Description:   utils.Truncate(msg.Content, 4096),
		Color:         model.ColorBlue,
		AuthorName:    msg.AuthorTag,
		AuthorIconURL: msg.AuthorAvatarURL,
		Fields: []model.AlertField{
			{Name: "Channel", Value: "<#" + msg.ChannelID + ">", Inline: true},
			{Name: "User ID", Value: msg.AuthorID, Inline: true},
		},
		Timestamp: now,
	}
	if len(msg.Attachments) > 0 {
		links := make([]string, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			links = append(links, fmt.Sprintf("[%s](%s)", a.Name, a.URL))
		}
		alert.Fields = append(alert.Fields, model.AlertField{
			Name:  "Attachments",
			Value: utils.Truncate(strings.Join(links, "\n"), 1024),
		})
	}
	return alert
}

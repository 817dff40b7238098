package protection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guild-guardian/model"
	"guild-guardian/utils"

	"go.uber.org/zap"
)

// PolicySource loads a guild's policy. A nil policy means nothing is enabled.
type PolicySource interface {
	GetGuildPolicy(ctx context.Context, guildID string) (*model.GuildPolicy, error)
}

// Dispatcher applies the guild's configured response to a verdict.
type Dispatcher interface {
	Dispatch(ctx context.Context, v model.Verdict, p *model.GuildPolicy) (string, error)
	Alert(ctx context.Context, channelID string, alert model.Alert)
}

// Engine turns join and message events into verdicts and hands them to the dispatcher.
type Engine struct {
	policies   PolicySource
	raid       *RaidDetector
	spam       *SpamDetector
	dispatcher Dispatcher
	clock      utils.Clock
	logger     *zap.Logger
}

func NewEngine(policies PolicySource, raidStore RaidStore, dispatcher Dispatcher, clock utils.Clock, logger *zap.Logger) *Engine {
	return &Engine{
		policies:   policies,
		raid:       NewRaidDetector(clock, raidStore),
		spam:       NewSpamDetector(clock),
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

func (e *Engine) Raid() *RaidDetector { return e.raid }

func (e *Engine) Spam() *SpamDetector { return e.spam }

// Stop cancels the detectors' pending timers.
func (e *Engine) Stop() {
	e.spam.Stop()
}

// HandleJoin runs the raid and alt-account detectors for a member join.
func (e *Engine) HandleJoin(ctx context.Context, ev model.JoinEvent) (err error) {
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("join").Observe(time.Since(start).Seconds())
		eventProcessCount.WithLabelValues("join").Inc()
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic in join handler: %v", r)
		}
		if err != nil {
			eventErrorCount.WithLabelValues("join").Inc()
		}
	}()

	if ev.GuildID == "" {
		return nil
	}
	policy, err := e.policies.GetGuildPolicy(ctx, ev.GuildID)
	if err != nil {
		return fmt.Errorf("failed to load policy for guild %s: %w", ev.GuildID, err)
	}

	var errs []error
	raidVerdict, err := e.raid.OnJoin(ctx, ev, policy)
	if err != nil {
		errs = append(errs, fmt.Errorf("raid detection failed for guild %s: %w", ev.GuildID, err))
	}
	if raidVerdict != nil {
		verdictCount.WithLabelValues(string(raidVerdict.Kind)).Inc()
		e.logger.Warn("raid detected",
			zap.String("guild_id", ev.GuildID),
			zap.Int("joins", raidVerdict.Count),
			zap.Int64("episode_id", raidVerdict.EpisodeID))
		outcome, err := e.dispatcher.Dispatch(ctx, *raidVerdict, policy)
		if err != nil {
			errs = append(errs, err)
		}
		if policy.AutomodLogChannel != "" {
			e.dispatcher.Alert(ctx, policy.AutomodLogChannel, raidAlert(*raidVerdict, policy, outcome, e.clock.Now()))
		}
	}

	if altVerdict := CheckAltAccount(ev, policy, e.clock.Now()); altVerdict != nil {
		verdictCount.WithLabelValues(string(altVerdict.Kind)).Inc()
		e.logger.Info("alt account detected", zap.String("guild_id", ev.GuildID), zap.String("user_id", ev.UserID))
		outcome, err := e.dispatcher.Dispatch(ctx, *altVerdict, policy)
		if err != nil {
			errs = append(errs, err)
		}
		if policy.AutomodLogChannel != "" {
			e.dispatcher.Alert(ctx, policy.AutomodLogChannel, altAlert(ev, policy, outcome, e.clock.Now()))
		}
	}

	return errors.Join(errs...)
}

// HandleMessage runs the spam detector and the content classifiers for a
// guild message. Bot, webhook and direct messages are ignored.
func (e *Engine) HandleMessage(ctx context.Context, msg model.MessageEvent) (err error) {
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
		eventProcessCount.WithLabelValues("message").Inc()
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic in message handler: %v", r)
		}
		if err != nil {
			eventErrorCount.WithLabelValues("message").Inc()
		}
	}()

	if msg.GuildID == "" || msg.Bot || msg.WebhookID != "" {
		return nil
	}
	policy, err := e.policies.GetGuildPolicy(ctx, msg.GuildID)
	if err != nil {
		return fmt.Errorf("failed to load policy for guild %s: %w", msg.GuildID, err)
	}
	if policy == nil {
		return nil
	}

	var verdicts []model.Verdict
	if v := e.spam.OnMessage(msg, policy); v != nil {
		verdicts = append(verdicts, *v)
	}
	classified, classifyErrs := Classify(msg, policy)
	for _, cerr := range classifyErrs {
		e.logger.Error("classifier failed", zap.String("guild_id", msg.GuildID), zap.Error(cerr))
	}
	verdicts = append(verdicts, classified...)
	if len(verdicts) == 0 {
		return nil
	}

	var errs []error
	outcomes := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		verdictCount.WithLabelValues(string(v.Kind)).Inc()
		outcome, err := e.dispatcher.Dispatch(ctx, v, policy)
		if err != nil {
			errs = append(errs, err)
		}
		if outcome != "" {
			outcomes = append(outcomes, outcome)
		}
	}

	if policy.AutomodLogChannel != "" && len(outcomes) > 0 {
		e.dispatcher.Alert(ctx, policy.AutomodLogChannel, messageAlert(msg, outcomes, e.clock.Now()))
	}
	return errors.Join(errs...)
}

func raidAlert(v model.Verdict, p *model.GuildPolicy, outcome string, now time.Time) model.Alert {
	return model.Alert{
		Title:       "RAID ALERT",
		Description: fmt.Sprintf("Unusual join rate detected: %d members in %s", v.Count, utils.FormatDuration(p.RaidJoinWindow())),
		Color:       model.ColorRed,
		Fields: []model.AlertField{
			{Name: "Action Taken", Value: orNone(outcome), Inline: true},
			{Name: "Episode", Value: fmt.Sprintf("#%d", v.EpisodeID), Inline: true},
		},
		Timestamp: now,
	}
}

func altAlert(ev model.JoinEvent, p *model.GuildPolicy, outcome string, now time.Time) model.Alert {
	ageDays := now.Sub(ev.AccountCreatedAt).Hours() / 24
	return model.Alert{
		Title:       "Alt Account Detected",
		Description: fmt.Sprintf("%s (%s)", ev.UserTag, ev.UserID),
		Color:       model.ColorOrange,
		Fields: []model.AlertField{
			{Name: "Account Age", Value: fmt.Sprintf("%.1f days", ageDays), Inline: true},
			{Name: "Account Created", Value: fmt.Sprintf("<t:%d:R>", ev.AccountCreatedAt.Unix()), Inline: true},
			{Name: "Action Taken", Value: orNone(outcome), Inline: true},
		},
		Timestamp: now,
	}
}

func messageAlert(msg model.MessageEvent, outcomes []string, now time.Time) model.Alert {
	fields := []model.AlertField{
		{Name: "Channel", Value: fmt.Sprintf("<#%s>", msg.ChannelID), Inline: true},
		{Name: "Actions Taken", Value: strings.Join(outcomes, "\n")},
	}
	if msg.Content != "" {
		fields = append(fields, model.AlertField{Name: "Message Content", Value: utils.Truncate(msg.Content, 1024)})
	}
	return model.Alert{
		Title:       "AutoMod Action",
		Description: fmt.Sprintf("User: %s (%s)", msg.AuthorTag, msg.AuthorID),
		Color:       model.ColorYellow,
		Fields:      fields,
		Timestamp:   now,
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

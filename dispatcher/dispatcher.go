package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"guild-guardian/model"
	"guild-guardian/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	SpamMuteDuration    = 5 * time.Minute
	MentionMuteDuration = 10 * time.Minute

	// MaxVerificationLevel is the platform's strictest join verification level.
	MaxVerificationLevel    = 4
	VerificationRaise       = 2
	VerificationRevertDelay = 30 * time.Minute
)

var warnMessages = map[model.VerdictKind]string{
	model.VerdictSpam:    "Please slow down! You're sending messages too quickly.",
	model.VerdictMention: "Please avoid mass mentioning users or roles.",
	model.VerdictLink:    "Links are not allowed in this server.",
	model.VerdictInvite:  "Discord invites are not allowed in this server.",
	model.VerdictCaps:    "Please avoid using excessive caps.",
}

type Options struct {
	// PlatformRPS paces bulk raid kicks and bans. Zero or less disables pacing.
	PlatformRPS float64
}

// Dispatcher applies a guild's configured response to a verdict, records it
// in the ledger and reports what was done.
type Dispatcher struct {
	platform Platform
	store    Store
	clock    utils.Clock
	logger   *zap.Logger
	limiter  *rate.Limiter
	timers   *utils.TimerSet

	mu sync.Mutex
	// guilds with a raised verification level, mapped to the level to restore
	raised map[string]int
}

func New(platform Platform, store Store, clock utils.Clock, logger *zap.Logger, opts Options) *Dispatcher {
	limit := rate.Inf
	if opts.PlatformRPS > 0 {
		limit = rate.Limit(opts.PlatformRPS)
	}
	return &Dispatcher{
		platform: platform,
		store:    store,
		clock:    clock,
		logger:   logger,
		limiter:  rate.NewLimiter(limit, 1),
		timers:   utils.NewTimerSet(clock),
		raised:   make(map[string]int),
	}
}

// Stop cancels pending verification reverts.
func (d *Dispatcher) Stop() {
	d.timers.Stop()
}

// Dispatch applies the action the policy configures for the verdict's kind
// and returns a description of the outcome. Platform failures are swallowed;
// the returned error reports store failures only.
func (d *Dispatcher) Dispatch(ctx context.Context, v model.Verdict, p *model.GuildPolicy) (string, error) {
	if p == nil {
		return "", errors.New("dispatch without a guild policy")
	}
	switch v.Kind {
	case model.VerdictRaid:
		return d.DispatchRaid(ctx, v, p.RaidAction)
	case model.VerdictAlt:
		return d.DispatchAlt(ctx, v, p.AltAction)
	case model.VerdictSpam:
		taken, err := d.DispatchContent(ctx, v, p.SpamAction)
		return "Spam detected: " + taken, err
	case model.VerdictMention:
		taken, err := d.DispatchContent(ctx, v, p.MentionAction)
		return fmt.Sprintf("Mass mentions detected (%d): %s", v.Count, taken), err
	case model.VerdictLink:
		taken, err := d.DispatchContent(ctx, v, deleteOrWarn(p.LinkAction))
		return "Unauthorized links detected: " + taken, err
	case model.VerdictInvite:
		taken, err := d.DispatchContent(ctx, v, deleteOrWarn(p.InviteAction))
		return "Discord invite detected: " + taken, err
	case model.VerdictCaps:
		taken, err := d.DispatchContent(ctx, v, deleteOrWarn(p.CapsAction))
		return fmt.Sprintf("Excessive caps detected (%d%%): %s", v.Count, taken), err
	}
	return "", fmt.Errorf("unknown verdict kind %q", v.Kind)
}

// deleteOrWarn narrows the action set for link, invite and caps verdicts.
func deleteOrWarn(a model.ContentAction) model.ContentAction {
	if a == model.ContentActionDelete || a == model.ContentActionWarn {
		return a
	}
	return model.ContentActionAlert
}

func muteDuration(kind model.VerdictKind) time.Duration {
	if kind == model.VerdictMention {
		return MentionMuteDuration
	}
	return SpamMuteDuration
}

// DispatchContent applies a content action against the verdict's author and messages.
func (d *Dispatcher) DispatchContent(ctx context.Context, v model.Verdict, action model.ContentAction) (string, error) {
	actionCount.WithLabelValues(string(v.Kind), string(action)).Inc()
	log := d.logger.With(zap.String("guild_id", v.GuildID), zap.String("user_id", v.UserID), zap.String("kind", string(v.Kind)))

	switch action {
	case model.ContentActionAlert:
		return "Alert only", nil

	case model.ContentActionDelete:
		for _, ref := range v.Messages {
			Swallow(log, "delete_message", d.platform.DeleteMessage(ctx, ref.ChannelID, ref.MessageID),
				zap.String("message_id", ref.MessageID))
		}
		if len(v.Messages) > 1 {
			return "Messages deleted", nil
		}
		return "Message deleted", nil

	case model.ContentActionWarn:
		Swallow(log, "send_dm", d.platform.SendDirectMessage(ctx, v.UserID, warnMessages[v.Kind]))
		return "User warned", d.record(ctx, v, model.ModActionWarn, 0)

	case model.ContentActionMute:
		duration := muteDuration(v.Kind)
		until := d.clock.Now().Add(duration)
		Swallow(log, "timeout_member", d.platform.TimeoutMember(ctx, v.GuildID, v.UserID, &until, v.Reason))
		taken := "User timed out for " + utils.FormatDuration(duration)
		return taken, d.record(ctx, v, model.ModActionTimeout, duration)

	case model.ContentActionKick:
		Swallow(log, "kick_member", d.platform.KickMember(ctx, v.GuildID, v.UserID, v.Reason))
		return "User kicked", d.record(ctx, v, model.ModActionKick, 0)

	case model.ContentActionBan:
		Swallow(log, "ban_member", d.platform.BanMember(ctx, v.GuildID, v.UserID, v.Reason))
		return "User banned", d.record(ctx, v, model.ModActionBan, 0)
	}
	return "", fmt.Errorf("unknown content action %q", action)
}

// DispatchAlt applies the alt-account action to the joining member.
func (d *Dispatcher) DispatchAlt(ctx context.Context, v model.Verdict, action model.AltAction) (string, error) {
	actionCount.WithLabelValues(string(v.Kind), string(action)).Inc()
	log := d.logger.With(zap.String("guild_id", v.GuildID), zap.String("user_id", v.UserID))

	switch action {
	case model.AltActionAlert:
		return "Alert only", nil
	case model.AltActionKick:
		Swallow(log, "kick_member", d.platform.KickMember(ctx, v.GuildID, v.UserID, v.Reason))
		return "Kicked", d.record(ctx, v, model.ModActionKick, 0)
	case model.AltActionBan:
		Swallow(log, "ban_member", d.platform.BanMember(ctx, v.GuildID, v.UserID, v.Reason))
		return "Banned", d.record(ctx, v, model.ModActionBan, 0)
	}
	return "", fmt.Errorf("unknown alt action %q", action)
}

// DispatchRaid applies the raid action and writes its description onto the episode.
func (d *Dispatcher) DispatchRaid(ctx context.Context, v model.Verdict, action model.RaidAction) (string, error) {
	actionCount.WithLabelValues(string(v.Kind), string(action)).Inc()

	var taken string
	var err error
	switch action {
	case model.RaidActionAlert:
		taken = "Alert only"
	case model.RaidActionKick:
		var n int
		n, err = d.removeRaiders(ctx, v, model.ModActionKick)
		taken = fmt.Sprintf("Kicked %d members", n)
	case model.RaidActionBan:
		var n int
		n, err = d.removeRaiders(ctx, v, model.ModActionBan)
		taken = fmt.Sprintf("Banned %d members", n)
	case model.RaidActionVerification:
		taken = d.raiseVerification(ctx, v.GuildID)
	default:
		return "", fmt.Errorf("unknown raid action %q", action)
	}

	if v.EpisodeID != 0 {
		if serr := d.store.SetRaidEpisodeAction(ctx, v.EpisodeID, taken); serr != nil {
			err = errors.Join(err, serr)
		}
	}
	return taken, err
}

// removeRaiders kicks or bans every member in the raid window, paced by the
// limiter. It returns how many platform calls succeeded.
func (d *Dispatcher) removeRaiders(ctx context.Context, v model.Verdict, kind model.ModActionType) (int, error) {
	var errs []error
	removed := 0
	for _, userID := range v.Members {
		if err := d.limiter.Wait(ctx); err != nil {
			Swallow(d.logger, "raid_pacing", err, zap.String("guild_id", v.GuildID))
			break
		}
		var err error
		if kind == model.ModActionBan {
			err = d.platform.BanMember(ctx, v.GuildID, userID, v.Reason)
		} else {
			err = d.platform.KickMember(ctx, v.GuildID, userID, v.Reason)
		}
		if err != nil {
			Swallow(d.logger, "raid_"+string(kind), err, zap.String("guild_id", v.GuildID), zap.String("user_id", userID))
			continue
		}
		removed++
		target := v
		target.UserID = userID
		if err := d.record(ctx, target, kind, 0); err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// raiseVerification raises the guild's verification level and schedules the
// revert. A guild whose revert is still pending is left alone.
func (d *Dispatcher) raiseVerification(ctx context.Context, guildID string) string {
	d.mu.Lock()
	if _, pending := d.raised[guildID]; pending {
		d.mu.Unlock()
		return "Verification level already raised"
	}
	// claim the guild before the platform calls so a concurrent breach backs off
	d.raised[guildID] = -1
	d.mu.Unlock()

	release := func() {
		d.mu.Lock()
		delete(d.raised, guildID)
		d.mu.Unlock()
	}

	current, err := d.platform.VerificationLevel(ctx, guildID)
	if err != nil {
		release()
		Swallow(d.logger, "get_verification_level", err, zap.String("guild_id", guildID))
		return "Failed to read verification level"
	}
	if current >= MaxVerificationLevel {
		release()
		return "Verification level already at maximum"
	}

	raised := current + VerificationRaise
	if raised > MaxVerificationLevel {
		raised = MaxVerificationLevel
	}
	if err := d.platform.SetVerificationLevel(ctx, guildID, raised); err != nil {
		release()
		Swallow(d.logger, "set_verification_level", err, zap.String("guild_id", guildID))
		return "Failed to raise verification level"
	}
	verificationChanges.WithLabelValues("raise").Inc()

	d.mu.Lock()
	d.raised[guildID] = current
	d.mu.Unlock()
	d.timers.Schedule("verification:"+guildID, VerificationRevertDelay, func() { d.revertVerification(guildID) })

	d.logger.Info("raised verification level",
		zap.String("guild_id", guildID), zap.Int("from", current), zap.Int("to", raised))
	return "Increased verification level temporarily"
}

func (d *Dispatcher) revertVerification(guildID string) {
	d.mu.Lock()
	prior, ok := d.raised[guildID]
	delete(d.raised, guildID)
	d.mu.Unlock()
	if !ok || prior < 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.platform.SetVerificationLevel(ctx, guildID, prior); err != nil {
		Swallow(d.logger, "revert_verification_level", err, zap.String("guild_id", guildID))
		return
	}
	verificationChanges.WithLabelValues("revert").Inc()
	d.logger.Info("reverted verification level", zap.String("guild_id", guildID), zap.Int("level", prior))
}

// VerificationRaised reports whether a revert is pending for the guild.
func (d *Dispatcher) VerificationRaised(guildID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.raised[guildID]
	return ok
}

// Alert posts an alert to a channel. Failures are swallowed.
func (d *Dispatcher) Alert(ctx context.Context, channelID string, alert model.Alert) {
	if channelID == "" {
		return
	}
	Swallow(d.logger, "send_alert", d.platform.SendAlert(ctx, channelID, alert), zap.String("channel_id", channelID))
}

func (d *Dispatcher) record(ctx context.Context, v model.Verdict, kind model.ModActionType, duration time.Duration) error {
	now := d.clock.Now()
	a := model.ModAction{
		GuildID:     v.GuildID,
		UserID:      v.UserID,
		ModeratorID: d.platform.BotUserID(),
		ActionType:  kind,
		Reason:      v.Reason,
		CreatedAt:   now.UnixMilli(),
	}
	if kind == model.ModActionTimeout {
		a = model.NewTimeoutAction(v.GuildID, v.UserID, d.platform.BotUserID(), v.Reason, duration, now)
	}
	if _, err := d.store.InsertModAction(ctx, a); err != nil {
		return fmt.Errorf("failed to record %s for user %s: %w", kind, v.UserID, err)
	}
	return nil
}

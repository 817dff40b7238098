package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guild-guardian/dispatcher"
	"guild-guardian/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// EpisodeRetention is the age after which raid episodes are closed and, once resolved, purged.
const EpisodeRetention = 7 * 24 * time.Hour

var sweepCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_sweeps",
	Help: "Number of reconciler sweeps run",
}, []string{"sweep"})

var timeoutsLifted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guardian_timeouts_lifted",
	Help: "Number of expired timeouts lifted on the platform",
})

// Platform is what the timeout lifter needs from the chat platform.
type Platform interface {
	// MemberTimeoutUntil returns the member's current timeout end, or nil if not timed out.
	// It errors when the guild or member cannot be fetched.
	MemberTimeoutUntil(ctx context.Context, guildID, userID string) (*time.Time, error)
	TimeoutMember(ctx context.Context, guildID, userID string, until *time.Time, reason string) error
}

// Store is the ledger the reconciler sweeps.
type Store interface {
	QueryExpiredTimeouts(ctx context.Context, now time.Time) ([]model.ModAction, error)
	ClearModActionExpiry(ctx context.Context, actionID int64) error
	PurgeOldRaidEpisodes(ctx context.Context, before time.Time) (int64, error)
	ResolveStaleRaidEpisodes(ctx context.Context, before, now time.Time) (int64, error)
}

// SweepResult summarizes one timeout-lifter pass.
type SweepResult struct {
	Expired int
	Lifted  int
	// Skipped rows had no timeout left to lift or their member could not be fetched.
	Skipped int
	Failed  int
}

// ExpiryReconciler lifts expired timeouts and closes stale raid episodes.
type ExpiryReconciler struct {
	platform Platform
	store    Store
	logger   *zap.Logger
}

func NewExpiryReconciler(platform Platform, store Store, logger *zap.Logger) *ExpiryReconciler {
	return &ExpiryReconciler{platform: platform, store: store, logger: logger}
}

// SweepTimeouts processes every timeout row with 0 < expires_at <= now. Each
// row's expiry is zeroed after the attempt whether or not the lift succeeded,
// so a failed lift is not retried.
func (r *ExpiryReconciler) SweepTimeouts(ctx context.Context, now time.Time) (SweepResult, error) {
	sweepCount.WithLabelValues("timeouts").Inc()

	var result SweepResult
	actions, err := r.store.QueryExpiredTimeouts(ctx, now)
	if err != nil {
		return result, err
	}
	result.Expired = len(actions)

	var errs []error
	for _, action := range actions {
		switch r.liftTimeout(ctx, action, now) {
		case liftDone:
			result.Lifted++
		case liftSkipped:
			result.Skipped++
		case liftFailed:
			result.Failed++
		}
		if err := r.store.ClearModActionExpiry(ctx, action.ActionID); err != nil {
			errs = append(errs, err)
		}
	}

	if result.Expired > 0 {
		r.logger.Info("timeout sweep finished",
			zap.Int("expired", result.Expired),
			zap.Int("lifted", result.Lifted),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
	}
	return result, errors.Join(errs...)
}

type liftOutcome int

const (
	liftDone liftOutcome = iota
	liftSkipped
	liftFailed
)

func (r *ExpiryReconciler) liftTimeout(ctx context.Context, action model.ModAction, now time.Time) liftOutcome {
	log := r.logger.With(
		zap.Int64("action_id", action.ActionID),
		zap.String("guild_id", action.GuildID),
		zap.String("user_id", action.UserID))

	until, err := r.platform.MemberTimeoutUntil(ctx, action.GuildID, action.UserID)
	if err != nil {
		dispatcher.Swallow(log, "fetch_member", err)
		return liftSkipped
	}
	if until == nil || !until.After(now) {
		return liftSkipped
	}

	if err := r.platform.TimeoutMember(ctx, action.GuildID, action.UserID, nil, "Timeout expired"); err != nil {
		dispatcher.Swallow(log, "lift_timeout", err)
		return liftFailed
	}
	timeoutsLifted.Inc()
	log.Debug("lifted expired timeout")
	return liftDone
}

// SweepRaidEpisodes purges resolved episodes past retention and resolves
// unresolved ones past retention.
func (r *ExpiryReconciler) SweepRaidEpisodes(ctx context.Context, now time.Time) (purged, resolved int64, err error) {
	sweepCount.WithLabelValues("raid_episodes").Inc()
	cutoff := now.Add(-EpisodeRetention)

	purged, err = r.store.PurgeOldRaidEpisodes(ctx, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("raid episode purge failed: %w", err)
	}
	resolved, err = r.store.ResolveStaleRaidEpisodes(ctx, cutoff, now)
	if err != nil {
		return purged, 0, fmt.Errorf("raid episode resolve failed: %w", err)
	}
	if purged > 0 || resolved > 0 {
		r.logger.Info("raid episode sweep finished", zap.Int64("purged", purged), zap.Int64("resolved", resolved))
	}
	return purged, resolved, nil
}

package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guild-guardian/scanner"
	"guild-guardian/utils"

	"go.uber.org/zap"
)

// Sweeper is the reconciler work the scheduler drives.
type Sweeper interface {
	SweepTimeouts(ctx context.Context, now time.Time) (scanner.SweepResult, error)
	SweepRaidEpisodes(ctx context.Context, now time.Time) (purged, resolved int64, err error)
}

type SchedulerOptions struct {
	TimeoutInterval time.Duration
	RaidInterval    time.Duration
	// LogSender and LogChannelID receive sweep summaries when anything changed.
	LogSender    utils.AlertSender
	LogChannelID string
}

// Scheduler manages the periodic sweeps.
type Scheduler struct {
	sweeper Sweeper
	clock   utils.Clock
	logger  *zap.Logger
	opts    SchedulerOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewScheduler(sweeper Sweeper, clock utils.Clock, logger *zap.Logger, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sweeper: sweeper,
		clock:   clock,
		logger:  logger,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins both sweep loops. Each loop runs one sweep immediately.
func (s *Scheduler) Start() {
	s.wg.Add(2)
	go s.loop("timeouts", s.opts.TimeoutInterval, s.sweepTimeouts)
	go s.loop("raid_episodes", s.opts.RaidInterval, s.sweepRaidEpisodes)
}

// Stop terminates the loops and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.logger.Info("stopping scheduler")
		s.cancel()
		s.wg.Wait()
	})
}

// SweepOnce runs both sweeps a single time.
func (s *Scheduler) SweepOnce(ctx context.Context) error {
	if err := s.sweepTimeouts(ctx); err != nil {
		return err
	}
	return s.sweepRaidEpisodes(ctx)
}

func (s *Scheduler) loop(name string, interval time.Duration, sweep func(context.Context) error) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := sweep(s.ctx); err != nil && s.ctx.Err() == nil {
			s.logger.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
			if err := utils.LogError(s.ctx, s.opts.LogSender, s.opts.LogChannelID, "Scheduler", name, err.Error()); err != nil {
				s.logger.Warn("failed to post sweep error", zap.Error(err))
			}
		}
		select {
		case <-ticker.C:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) sweepTimeouts(ctx context.Context) error {
	result, err := s.sweeper.SweepTimeouts(ctx, s.clock.Now())
	if result.Lifted > 0 {
		s.report(ctx, "Timeout sweep", fmt.Sprintf("Lifted %d of %d expired timeouts (%d skipped, %d failed).",
			result.Lifted, result.Expired, result.Skipped, result.Failed))
	}
	return err
}

func (s *Scheduler) sweepRaidEpisodes(ctx context.Context) error {
	purged, resolved, err := s.sweeper.SweepRaidEpisodes(ctx, s.clock.Now())
	if purged > 0 || resolved > 0 {
		s.report(ctx, "Raid episode sweep", fmt.Sprintf("Purged %d and resolved %d raid episodes.", purged, resolved))
	}
	return err
}

func (s *Scheduler) report(ctx context.Context, operation, details string) {
	if err := utils.LogInfo(ctx, s.opts.LogSender, s.opts.LogChannelID, "Scheduler", operation, details); err != nil {
		s.logger.Warn("failed to post sweep summary", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"guild-guardian/bot"
	"guild-guardian/config"
	"guild-guardian/handlers"
	"guild-guardian/model"
	"guild-guardian/utils"
	"guild-guardian/utils/database"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cli.Command{
	Name:   "run",
	Usage:  "connect to the gateway and protect every guild the bot is in",
	Action: runBot,
}

var sweepCmd = &cli.Command{
	Name:   "sweep",
	Usage:  "lift expired timeouts and close stale raid episodes once, then exit",
	Action: runSweep,
}

// setup loads config and opens the logger and store shared by every command.
func setup(cctx *cli.Context) (*model.Config, *zap.Logger, *database.Store, error) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, nil, err
	}
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	store, err := database.Open(cfg.DatabasePath, cfg.PolicyCacheSize, cfg.PolicyCacheTTL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error initializing database: %w", err)
	}
	return cfg, logger, store, nil
}

func runBot(cctx *cli.Context) error {
	cfg, logger, store, err := setup(cctx)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer store.Close()

	b, err := bot.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("error creating bot: %w", err)
	}
	handlers.Register(b)

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(ctx)
	})
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, ReadHeaderTimeout: 5 * time.Second}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv.Handler = mux

		g.Go(func() error {
			logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("shut down", zap.Error(err))
	return err
}

func runSweep(cctx *cli.Context) error {
	cfg, logger, store, err := setup(cctx)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer store.Close()

	b, err := bot.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("error creating bot: %w", err)
	}
	defer b.Engine.Stop()
	defer b.Dispatcher.Stop()
	// REST calls need no gateway connection.
	return b.GetScheduler().SweepOnce(cctx.Context)
}

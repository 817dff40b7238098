package bot

import (
	"context"
	"fmt"

	"guild-guardian/commands"
	"guild-guardian/utils"

	"go.uber.org/zap"
)

// Run opens the gateway, registers the slash commands, starts the scheduler
// and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	defer b.Close()

	b.Logger.Info("registering application commands")
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", commands.Definitions())
	if err != nil {
		// Event protection still works without slash commands.
		b.Logger.Error("cannot register commands", zap.Error(err))
		if err := utils.LogWarn(ctx, b.Platform, b.GetConfig().LogChannelID, "System", "Register commands", err.Error()); err != nil {
			b.Logger.Warn("failed to send log", zap.Error(err))
		}
	} else {
		b.RegisteredCommands = registered
		b.Logger.Info("registered commands", zap.Int("count", len(registered)))
	}

	b.GetScheduler().Start()

	info := utils.CollectSystemInfo(0)
	b.Logger.Info("bot is now running",
		zap.String("user", b.Session.State.User.String()),
		zap.String("os", info.OS),
		zap.String("go", info.GoVersion))
	if err := utils.LogInfo(ctx, b.Platform, b.GetConfig().LogChannelID, "System", "Startup",
		fmt.Sprintf("Bot has started successfully on %s (%s).", info.OS, info.GoVersion)); err != nil {
		b.Logger.Warn("failed to send startup log", zap.Error(err))
	}

	<-ctx.Done()
	return nil
}

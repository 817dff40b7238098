package bot

import (
	"sync/atomic"

	"guild-guardian/dispatcher"
	"guild-guardian/guildlog"
	"guild-guardian/model"
	"guild-guardian/permissions"
	"guild-guardian/platform"
	"guild-guardian/protection"
	"guild-guardian/scanner"
	"guild-guardian/utils"
	"guild-guardian/utils/database"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	Session            *discordgo.Session
	Platform           *platform.Discord
	Store              *database.Store
	Engine             *protection.Engine
	Dispatcher         *dispatcher.Dispatcher
	GuildLog           *guildlog.Service
	Reconciler         *scanner.ExpiryReconciler
	Resolver           *permissions.Resolver
	Clock              utils.Clock
	Logger             *zap.Logger
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	config             atomic.Value // *model.Config
	scheduler          *Scheduler
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

// New builds the session and every protection component around store.
// The session is not opened until Run.
func New(cfg *model.Config, store *database.Store, logger *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent
	// Verification level and role positions are read from the state cache.
	dg.StateEnabled = true

	clock := utils.RealClock()
	discord := platform.NewDiscord(dg)
	disp := dispatcher.New(discord, store, clock, logger.Named("dispatcher"), dispatcher.Options{
		PlatformRPS: cfg.PlatformRPS,
	})

	b := &Bot{
		Session:    dg,
		Platform:   discord,
		Store:      store,
		Engine:     protection.NewEngine(store, store, disp, clock, logger.Named("engine")),
		Dispatcher: disp,
		GuildLog:   guildlog.New(discord, store, clock, logger.Named("guildlog")),
		Reconciler: scanner.NewExpiryReconciler(discord, store, logger.Named("reconciler")),
		Resolver:   permissions.NewResolver(store, cfg.OwnerIDs),
		Clock:      clock,
		Logger:     logger,
	}
	b.config.Store(cfg)
	b.scheduler = NewScheduler(b.Reconciler, clock, logger.Named("scheduler"), SchedulerOptions{
		TimeoutInterval: cfg.TimeoutSweepInterval,
		RaidInterval:    cfg.RaidSweepInterval,
		LogSender:       discord,
		LogChannelID:    cfg.LogChannelID,
	})
	return b, nil
}

func (b *Bot) GetScheduler() *Scheduler {
	return b.scheduler
}

// Close stops background work, cancels pending timers and closes the gateway.
// The store is owned by the caller.
func (b *Bot) Close() {
	b.Logger.Info("gracefully shutting down")
	b.scheduler.Stop()
	b.Engine.Stop()
	b.Dispatcher.Stop()
	if err := b.Session.Close(); err != nil {
		b.Logger.Warn("closing gateway session", zap.Error(err))
	}
}

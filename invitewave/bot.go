package invitewave

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/hyewave/invitewave/invitewave/allocation"
	"github.com/hyewave/invitewave/invitewave/database"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
	"github.com/hyewave/invitewave/invitewave/fraud"
	"github.com/hyewave/invitewave/invitewave/generation"
	"github.com/hyewave/invitewave/invitewave/pool"
	"github.com/hyewave/invitewave/invitewave/services"
	"github.com/hyewave/invitewave/invitewave/waitlist"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

type Bot struct {
	Cfg     Config
	Client  bot.Client
	Version string
	Commit  string
	DB      *database.DB

	ClaimantRepository    repositories.ClaimantRepository
	PoolRepository        repositories.PoolRepository
	QueueRepository       repositories.QueueRepository
	LeaseRepository       repositories.LeaseRepository
	TransactionRepository repositories.TransactionRepository
	SettingsRepository    repositories.SettingsRepository

	Pool       *pool.Manager
	Waitlist   *waitlist.Manager
	Scheduler  *allocation.Scheduler
	Reminder   *allocation.ReminderNotifier
	Fraud      *fraud.Manager
	Gatekeeper *fraud.Gatekeeper
	TaskQueue  *generation.TaskQueue
	Notifier   services.Notifier
	Spaces     *services.SpacesService
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMessages, gateway.IntentDirectMessages)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("InviteWave bot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the waitlist"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}

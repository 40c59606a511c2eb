package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/hyewave/invitewave/invitewave"
	"github.com/hyewave/invitewave/invitewave/allocation"
	"github.com/hyewave/invitewave/invitewave/commands"
	"github.com/hyewave/invitewave/invitewave/database"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
	"github.com/hyewave/invitewave/invitewave/fraud"
	"github.com/hyewave/invitewave/invitewave/generation"
	"github.com/hyewave/invitewave/invitewave/handlers"
	"github.com/hyewave/invitewave/invitewave/logger"
	"github.com/hyewave/invitewave/invitewave/pool"
	"github.com/hyewave/invitewave/invitewave/services"
	"github.com/hyewave/invitewave/invitewave/waitlist"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to the platform")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := invitewave.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting InviteWave bot",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dbStartTime := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := invitewave.New(*cfg, version, commit)
	b.DB = db

	b.ClaimantRepository = repositories.NewClaimantRepository(db.BunDB())
	b.PoolRepository = repositories.NewPoolRepository(db.BunDB())
	b.QueueRepository = repositories.NewQueueRepository(db.BunDB())
	b.LeaseRepository = repositories.NewLeaseRepository(db.BunDB())
	b.TransactionRepository = repositories.NewTransactionRepository(db.BunDB())
	b.SettingsRepository = repositories.NewSettingsRepository(db.BunDB())

	usageLimit := cfg.Pool.CodeUsageLimit
	if usageLimit <= 0 {
		usageLimit = 4
	}
	b.Pool = pool.NewManager(b.PoolRepository, b.SettingsRepository, usageLimit)
	b.Waitlist = waitlist.NewManager(b.QueueRepository)
	b.Gatekeeper = fraud.NewGatekeeper(b.ClaimantRepository)
	b.Spaces = services.NewSpacesService(
		cfg.Spaces.Key,
		cfg.Spaces.Secret,
		cfg.Spaces.Region,
		cfg.Spaces.Bucket,
		cfg.Spaces.ArtifactDir,
	)

	h := handler.New()
	h.Command("/join", handlers.WrapWithLogging("join", commands.JoinHandler(b)))
	h.Command("/submit", handlers.WrapWithLogging("submit", commands.SubmitHandler(b)))
	h.Command("/report", handlers.WrapWithLogging("report", commands.ReportHandler(b)))
	h.Command("/status", handlers.WrapWithLogging("status", commands.StatusHandler(b)))
	h.Command("/ban", handlers.WrapWithLogging("ban", commands.BanHandler(b)))
	h.Command("/donate", handlers.WrapWithLogging("donate", commands.DonateHandler(b)))
	h.Command("/reset", handlers.WrapWithLogging("reset", commands.ResetHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	b.Notifier = services.NewChatNotifier(b.Client, cfg.Bot.OperatorChannel)
	fraudOpts := []fraud.Option{}
	if cfg.Fraud.MaxComplaints > 0 {
		fraudOpts = append(fraudOpts, fraud.WithMaxComplaints(cfg.Fraud.MaxComplaints))
	}
	if cfg.Fraud.CooldownMinutes > 0 {
		fraudOpts = append(fraudOpts, fraud.WithCooldown(time.Duration(cfg.Fraud.CooldownMinutes)*time.Minute))
	}
	b.Fraud = fraud.NewManager(b.ClaimantRepository, b.PoolRepository, b.Pool, b.Waitlist, b.Notifier, fraudOpts...)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	b.Scheduler = allocation.NewScheduler(
		b.LeaseRepository,
		b.ClaimantRepository,
		b.Pool,
		b.Waitlist,
		b.Notifier,
		allocation.WithInterval(secondsOr(cfg.Allocation.IntervalSeconds, time.Minute)),
		allocation.WithLeaseTTL(secondsOr(cfg.Allocation.LeaseTTLSeconds, 60*time.Second)),
		allocation.WithSendDelay(millisOr(cfg.Allocation.SendDelayMillis, 500*time.Millisecond)),
	)
	b.Scheduler.Start(runCtx)

	b.Reminder = allocation.NewReminderNotifier(
		b.QueueRepository,
		b.Notifier,
		hoursOr(cfg.Allocation.ReminderHours, 12*time.Hour),
	)
	b.Reminder.Start(runCtx)

	provider := generation.NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey)
	biller := services.NewBillingClient(cfg.Billing.BaseURL, cfg.Billing.Token)
	runner := generation.NewRunner(provider, b.TransactionRepository, b.Spaces, b.Notifier, biller)
	b.TaskQueue = generation.NewTaskQueue(runner, int64(cfg.Generation.Concurrency), cfg.Generation.Backlog)
	b.TaskQueue.Start(runCtx)

	webhook := handlers.NewPaymentWebhook(
		handlers.NewPaymentHandler(b),
		cfg.Billing.WebhookAddr,
		cfg.Billing.WebhookSecret,
	)
	webhook.Start()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
	b.Scheduler.Stop()
	b.Reminder.Stop()
	b.TaskQueue.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webhook.Stop(shutdownCtx); err != nil {
		slog.Warn("Payment webhook shutdown failed", slog.Any("error", err))
	}
}

func secondsOr(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}

func millisOr(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Millisecond
}

func hoursOr(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Hour
}

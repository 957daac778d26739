package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	telegoBot "aichannel-bot/bot"
	"aichannel-bot/internal/auth"
	"aichannel-bot/internal/config"
	"aichannel-bot/internal/database"
	"aichannel-bot/internal/handlers"
	"aichannel-bot/internal/llm"
	"aichannel-bot/internal/locales"
	"aichannel-bot/internal/logging"
	"aichannel-bot/internal/news"
	"aichannel-bot/internal/postlog"
	"aichannel-bot/internal/publisher"
	"aichannel-bot/internal/scheduler"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "channelbot",
		Short:         "AI assistant for a Telegram channel",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
	cmd.AddCommand(newRunCmd(), newStatsCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
}

func runBot(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	logging.Setup(os.Stderr, "info", false)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Errorf("Configuration error: %v", err)
		return err
	}
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.Debug)

	if err := locales.Init(cfg.DefaultLanguage); err != nil {
		log.Errorf("Failed to initialize localization: %v", err)
		return err
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Errorf("sentry.Init: %s", err)
		return err
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := database.ConnectDB(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase)
	if err != nil {
		sentry.CaptureException(err)
		log.Errorf("MongoDB: %v", err)
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Errorf("Error disconnecting from MongoDB: %v", err)
			sentry.CaptureException(err)
		} else {
			log.Info("Disconnected from MongoDB.")
		}
	}()

	mongoLogger := database.NewMongoLogger(db)
	draftRepo := database.NewDraftRepository(db)
	scheduleRepo := database.NewMongoScheduleRepository(db)
	store := postlog.NewStore(cfg.LogFile, cfg.ChannelID, mongoLogger)

	drafter, images, err := newDrafter(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Errorf("LLM client: %v", err)
		return err
	}

	bot, err := telego.NewBot(cfg.BotToken, telego.WithLogger(logging.Component("telego")))
	if err != nil {
		sentry.CaptureException(err)
		log.Errorf("Failed to create telego bot: %v", err)
		return err
	}

	adminChecker, err := auth.NewAdminChecker(cfg.AdminID)
	if err != nil {
		sentry.CaptureException(err)
		log.Errorf("Failed to create admin checker: %v", err)
		return err
	}

	pub := publisher.New(bot, cfg.ChannelID, store)
	autoPoster := handlers.NewAutoPoster(bot, drafter, store, pub, cfg.AdminID, cfg.DefaultLanguage)
	sched := scheduler.New(scheduleRepo, cfg.DailyAutoPostJob, autoPoster.Run)

	messageHandler, err := handlers.NewMessageHandler(handlers.Deps{
		Config:       cfg,
		AdminChecker: adminChecker,
		Posts:        store,
		Drafter:      drafter,
		Images:       images,
		News:         news.NewFetcher(nil),
		Publisher:    pub,
		Scheduler:    sched,
		Drafts:       draftRepo,
		UserRepo:     mongoLogger,
		ActionLogger: mongoLogger,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Errorf("Failed to create message handler: %v", err)
		return err
	}

	if err := bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
		log.Warnf("Failed to delete webhook: %v", err)
	}
	if err := messageHandler.SetupCommands(ctx, bot); err != nil {
		log.Warnf("%v", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: telegoBot.AllowedUpdates,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Errorf("Failed to start long polling: %v", err)
		return err
	}

	if status, err := sched.Restore(ctx); err != nil {
		log.Errorf("Failed to restore auto-post schedule: %v", err)
		sentry.CaptureException(err)
	} else if status.Enabled {
		log.Infof("Auto-post active at %s UTC", status.Time)
	}
	sched.Start(ctx)
	defer sched.Shutdown()

	appBot, err := telegoBot.New(telegoBot.BotDeps{
		Bot:         bot,
		UpdatesChan: updates,
		Debug:       cfg.Debug,
		Language:    cfg.DefaultLanguage,
		Handler:     messageHandler,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Errorf("Failed to create bot: %v", err)
		return err
	}

	log.Infof("Bot started (version %s, channel %d, provider %s)", cfg.Version, cfg.ChannelID, cfg.LLMProvider)
	appBot.Start(ctx)

	log.Info("Shutting down bot...")
	return nil
}

// newDrafter builds the chat, research and image clients for the configured provider.
// The returned image generator is nil when image generation is off or unavailable.
func newDrafter(ctx context.Context, cfg *config.Config) (*llm.Drafter, handlers.ImageGenerator, error) {
	var openaiClient *llm.OpenAIClient
	if cfg.OpenAIAPIKey != "" {
		c, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIProxy)
		if err != nil {
			return nil, nil, err
		}
		openaiClient = c
	}

	var (
		chat      llm.Completer
		draftConf llm.DrafterConfig
	)
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		chat = gemini
		draftConf = llm.DrafterConfig{Model: cfg.GeminiModel}
	default:
		if openaiClient == nil {
			return nil, nil, errors.New("OPENAI_API_KEY is required for the openai provider")
		}
		chat = openaiClient
		draftConf = llm.DrafterConfig{Model: cfg.Model, FallbackModel: cfg.FallbackModel}
	}

	var research llm.Completer
	if cfg.PerplexityAPIKey != "" {
		research = llm.NewPerplexityClient(cfg.PerplexityAPIKey)
		draftConf.ResearchModel = cfg.PerplexityModel
	}

	var images handlers.ImageGenerator
	switch {
	case !cfg.ImageGenerationEnabled:
	case openaiClient == nil:
		log.Warn("IMAGE_GENERATION_ENABLED is set but OPENAI_API_KEY is missing, posts will be published as text")
	default:
		gen := llm.NewImageGenerator(openaiClient.API(), llm.ImageConfig{
			Model:           cfg.ImageModel,
			Size:            cfg.ImageSize,
			Quality:         cfg.ImageQuality,
			Style:           cfg.ImageStyle,
			PromptMaxLength: cfg.ImagePromptMaxLength,
		})
		c := gen.Config()
		log.Infof("Image generation enabled: %s %s (quality %q, style %q)", c.Model, c.Size, c.Quality, c.Style)
		images = gen
	}

	return llm.NewDrafter(chat, research, draftConf), images, nil
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"content_pipeline/internal/channel/mailer"
	"content_pipeline/internal/channel/twitter"
	"content_pipeline/internal/channel/wordpress"
	"content_pipeline/internal/config"
	"content_pipeline/internal/enrich"
	"content_pipeline/internal/events"
	"content_pipeline/internal/feed"
	"content_pipeline/internal/scheduler"
	"content_pipeline/internal/service"
	"content_pipeline/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generatePlanID := flag.Int64("generate-plan", 0, "generate a draft for the given plan id and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	rabbitMQ, err := events.NewRabbitMQ(events.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	sourceStore := postgres.NewSourceStore(db)
	contentStore := postgres.NewContentStore(db)
	planStore := postgres.NewPlanStore(db)
	taskStore := postgres.NewTaskStore(db)
	txManager := postgres.NewTransactionManager(db)

	fetcher := feed.New(feed.Config{
		Timeout:        cfg.Feed.Timeout,
		MaxAttempts:    cfg.Feed.MaxAttempts,
		InitialBackoff: cfg.Feed.InitialBackoff,
		MaxBackoff:     cfg.Feed.MaxBackoff,
		UserAgent:      cfg.Feed.UserAgent,
	}, logger)

	summarizer := enrich.NewSummarizer(
		cfg.Enrich.SummarizerURL,
		cfg.Enrich.SummarizerKey,
		cfg.Enrich.RequestTimeout,
		logger,
	)
	keywordExtractor := enrich.NewKeywordExtractor(
		cfg.Enrich.KeywordsURL,
		cfg.Enrich.KeywordsKey,
		cfg.Enrich.RequestTimeout,
		logger,
	)

	wpPublisher := wordpress.New(wordpress.Config{
		BaseURL:     cfg.Channels.WordPress.BaseURL,
		Username:    cfg.Channels.WordPress.Username,
		AppPassword: cfg.Channels.WordPress.AppPassword,
		Timeout:     cfg.Channels.WordPress.Timeout,
	}, logger)

	twitterPoster := twitter.New(twitter.Config{
		BearerToken: cfg.Channels.Twitter.BearerToken,
		Timeout:     cfg.Channels.Twitter.Timeout,
	}, logger)

	mailSender, err := mailer.New(mailer.Config{
		Host:     cfg.Channels.Mail.Host,
		Port:     cfg.Channels.Mail.Port,
		Username: cfg.Channels.Mail.Username,
		Password: cfg.Channels.Mail.Password,
		From:     cfg.Channels.Mail.From,
	}, logger)
	if err != nil {
		logger.Error("failed to create mail sender", "error", err)
		os.Exit(1)
	}

	ingestService := service.NewIngestService(
		sourceStore,
		contentStore,
		fetcher,
		rabbitMQ,
		logger,
	)

	generateService := service.NewGenerateService(
		planStore,
		contentStore,
		summarizer,
		keywordExtractor,
		rabbitMQ,
		logger,
		cfg.Enrich.KeywordLimit,
	)

	if *generatePlanID > 0 {
		item, err := generateService.GenerateDraft(context.Background(), *generatePlanID)
		if err != nil {
			logger.Error("draft generation failed", "plan_id", *generatePlanID, "error", err)
			os.Exit(1)
		}
		logger.Info("draft generated", "plan_id", *generatePlanID, "content_id", item.ID)
		return
	}

	distributeService := service.NewDistributeService(
		contentStore,
		taskStore,
		wpPublisher,
		twitterPoster,
		mailSender,
		txManager,
		rabbitMQ,
		logger,
		cfg.Pipeline.BatchConcurrency,
	)

	sched := scheduler.NewScheduler(
		sourceStore,
		taskStore,
		ingestService,
		distributeService,
		cfg.Pipeline.PollInterval,
		cfg.Pipeline.IngestTimeout,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting content pipeline",
		"poll_interval", cfg.Pipeline.PollInterval,
		"batch_concurrency", cfg.Pipeline.BatchConcurrency,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"news_tracker/internal/api"
	"news_tracker/internal/classify"
	"news_tracker/internal/config"
	"news_tracker/internal/dedup"
	"news_tracker/internal/domain"
	"news_tracker/internal/publisher"
	"news_tracker/internal/report"
	"news_tracker/internal/scheduler"
	"news_tracker/internal/service"
	"news_tracker/internal/source/googlerss"
	"news_tracker/internal/source/newscatcher"
	"news_tracker/internal/source/newsdata"
	"news_tracker/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	runOnce := flag.Bool("once", false, "run a single collection cycle and exit")
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

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
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

	articleStore := postgres.NewArticleStore(db)
	runStore := postgres.NewRunStore(db)
	txManager := postgres.NewTransactionManager(db)

	searchClient := newscatcher.New(newscatcher.Config{
		BaseURL:         cfg.API.BaseURL,
		APIKey:          cfg.API.APIKey,
		Timeout:         cfg.API.Timeout,
		PageSize:        cfg.API.PageSize,
		MaxAttempts:     cfg.API.Retry.MaxAttempts,
		InitialBackoff:  cfg.API.Retry.InitialBackoff,
		MaxBackoff:      cfg.API.Retry.MaxBackoff,
		MinInterval:     cfg.API.MinInterval,
		MaxLookbackDays: cfg.API.MaxLookbackDays,
	}, logger)

	extras := []service.Source{
		googlerss.New(googlerss.Config{}, logger),
	}
	if cfg.NewsData.APIKey != "" {
		extras = append(extras, newsdata.New(newsdata.Config{
			BaseURL: cfg.NewsData.BaseURL,
			APIKey:  cfg.NewsData.APIKey,
			Timeout: cfg.NewsData.Timeout,
		}, logger))
	}

	subjects := trackedSubjects(cfg.Subjects)
	channelSet := buildChannelSet(cfg.Channels)

	reporter := report.NewGenerator(articleStore, cfg.Report.OutputDir, logger)

	collector := service.NewCollectorService(
		searchClient,
		extras,
		dedup.New(articleStore),
		classify.New(channelSet, domain.DefaultLanguage),
		articleStore,
		runStore,
		txManager,
		rabbitMQ,
		reporter,
		subjects,
		channelSet,
		logger,
		cfg.Collect,
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

	sched := scheduler.New(collector, runStore, cfg.Collect.ScheduleHour, logger)

	if *runOnce {
		sched.RunNow(ctx)
		return
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: api.New(articleStore, runStore, logger).Handler(),
	}
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()
	defer httpServer.Shutdown(context.Background())

	logger.Info("starting news tracker",
		"subjects", len(subjects),
		"channels", len(channelSet.All()),
		"schedule_hour_utc", cfg.Collect.ScheduleHour,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func trackedSubjects(configs []config.SubjectConfig) []domain.TrackedSubject {
	subjects := make([]domain.TrackedSubject, 0, len(configs))
	for _, sc := range configs {
		subjects = append(subjects, domain.TrackedSubject{
			Name:  domain.Subject(sc.Name),
			Query: sc.Query,
		})
	}
	return subjects
}

func buildChannelSet(configs []config.ChannelConfig) *domain.ChannelSet {
	channels := make([]domain.Channel, 0, len(configs))
	for _, cc := range configs {
		channels = append(channels, domain.Channel{
			Name:     cc.Name,
			Domain:   cc.Domain,
			Language: domain.Language(cc.Language),
			Aliases:  cc.Aliases,
		})
	}
	return domain.NewChannelSet(channels)
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

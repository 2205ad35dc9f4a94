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

	"github.com/ogaillard63/lbcwatch/internal/config"
	"github.com/ogaillard63/lbcwatch/internal/domain"
	"github.com/ogaillard63/lbcwatch/internal/publisher"
	"github.com/ogaillard63/lbcwatch/internal/scanner"
	"github.com/ogaillard63/lbcwatch/internal/scheduler"
	"github.com/ogaillard63/lbcwatch/internal/source/leboncoin"
	"github.com/ogaillard63/lbcwatch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
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

	// Initialize stores
	searchStore := postgres.NewSearchStore(db)
	listingStore := postgres.NewListingStore(db)
	stateStore := postgres.NewStateStore(db)
	logStore := postgres.NewLogStore(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Optional listing publisher
	var pub scanner.Publisher
	if cfg.RabbitMQ.URL != "" {
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
		pub = rabbitMQ
	}

	// Initialize marketplace client and source
	client := leboncoin.NewClient(ctx, leboncoin.ClientConfig{
		SiteURL:    cfg.API.SiteURL,
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
	}, logStore, logger)

	source := leboncoin.NewSource(leboncoin.Config{
		BaseURL: cfg.API.BaseURL,
		Limit:   cfg.API.Limit,
	}, client, logger)

	scan := scanner.New(searchStore, listingStore, logStore, source, pub, logger, cfg.Scan)
	sched := scheduler.New(scan, stateStore, logStore, cfg.Scan, logger)

	// Announce the launch the way the front-end expects.
	if err := stateStore.RecordLaunch(ctx); err != nil {
		logger.Warn("failed to record launch time", "error", err)
	}
	if err := logStore.Append(ctx, "scanner started", domain.LevelSystem); err != nil {
		logger.Warn("failed to write startup log", "error", err)
	}

	logger.Info("starting lbcwatch scanner",
		"poll_interval", cfg.Scan.PollInterval,
		"night_pause_start", cfg.Scan.NightPauseStart,
		"night_pause_end", cfg.Scan.NightPauseEnd,
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

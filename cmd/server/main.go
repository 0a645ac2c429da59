// Package main provides the API server entry point for the portfolio dashboard.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/defi-dashboard/internal/api"
	"github.com/defi-dashboard/internal/chain"
	"github.com/defi-dashboard/internal/config"
	"github.com/defi-dashboard/internal/logging"
	"github.com/defi-dashboard/internal/pricing"
	"github.com/defi-dashboard/internal/realtime"
	"github.com/defi-dashboard/internal/service"
	"github.com/defi-dashboard/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() { _ = redis.Close() }()

	logger.Info("Database connections established")

	provider, err := chain.NewRPCProvider(cfg.Chain.RPCPrimary, cfg.Chain.RPCSecondary)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create RPC provider")
	}

	chainClient, err := chain.NewClient(&cfg.Chain, provider)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create chain client")
	}
	defer chainClient.Close()

	accountRepo := storage.NewAccountRepository(postgres)
	transactionRepo := storage.NewTransactionRepository(postgres)
	cacheService := storage.NewCacheService(redis, cfg.Cache.TTL)

	priceSource := pricing.NewCachedSource(pricing.NewStaticSource(&cfg.Pricing), cacheService)

	hub := realtime.NewHub()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	go hub.Run(rootCtx)

	engine := service.NewEngine(
		chainClient,
		accountRepo,
		transactionRepo,
		priceSource,
		cfg.Chain.NativeSymbol,
		cfg.Chain.TokenSymbol,
		service.WithCache(cacheService),
		service.WithNotifier(hub),
	)

	// The contract event watcher and its ClickHouse log are optional
	if cfg.Chain.RPCWebsocket != "" {
		var sinks []chain.EventSink
		if cfg.Database.ClickHouse.Enabled {
			clickhouseDB, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
			if err != nil {
				logger.WithError(err).Warn("Failed to connect to ClickHouse, event log disabled")
			} else {
				defer func() { _ = clickhouseDB.Close() }()
				eventLog := storage.NewEventLogRepository(clickhouseDB)
				if err := eventLog.EnsureSchema(rootCtx); err != nil {
					logger.WithError(err).Warn("Failed to prepare chain_events table, event log disabled")
				} else {
					sinks = append(sinks, eventLog)
				}
			}
		}

		watcher, err := chain.NewWatcher(&cfg.Chain, sinks...)
		if err != nil {
			logger.WithError(err).Warn("Event watcher disabled")
		} else {
			go watcher.Run(rootCtx)
			logger.Info("Contract event watcher started")
		}
	}

	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, engine, hub)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

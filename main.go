package main

import (
	"context"
	"fmt"
	"os"

	"cryptoPaperTrader/config"
	"cryptoPaperTrader/internal/adapters/binanceclient"
	"cryptoPaperTrader/internal/adapters/logger"
	"cryptoPaperTrader/internal/adapters/postgres"
	"cryptoPaperTrader/internal/adapters/sqlite"
	"cryptoPaperTrader/internal/analytics"
	"cryptoPaperTrader/internal/app"
	"cryptoPaperTrader/internal/ports"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()
	appLogger.Info(ctx, "Starting paper trading engine", map[string]interface{}{
		"dbDriver":  cfg.DBDriver,
		"isTestnet": cfg.IsTestnet,
		"logLevel":  cfg.LogLevel.String(),
	})

	var sessionRepo ports.SessionRepository
	var tradeRepo ports.TradeRepository
	var closeStore func()

	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.DefaultPoolConfig())
		if err != nil {
			return fmt.Errorf("error opening postgres pool: %w", err)
		}
		repo, err := postgres.NewRepository(ctx, pool, appLogger)
		if err != nil {
			pool.Close()
			return fmt.Errorf("error initializing postgres store: %w", err)
		}
		sessionRepo, tradeRepo = repo, repo
		closeStore = pool.Close
	default:
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			return fmt.Errorf("error initializing sqlite store: %w", err)
		}
		sessionRepo, tradeRepo = repo, repo
		closeStore = func() {
			if err := repo.Close(); err != nil {
				appLogger.Error(ctx, err, "Error closing sqlite store")
			}
		}
	}
	defer closeStore()

	oracle, err := binanceclient.New(binanceclient.Config{
		APIKey:         cfg.APIKey,
		SecretKey:      cfg.SecretKey,
		UseTestnet:     cfg.IsTestnet,
		Logger:         appLogger,
		RequestTimeout: cfg.PriceTimeout,
	})
	if err != nil {
		return fmt.Errorf("error creating price oracle: %w", err)
	}

	engine := analytics.New(analytics.Config{AnnualizationDays: cfg.SharpeAnnualizationDays})

	service, err := app.New(app.Config{
		SessionRepo:     sessionRepo,
		TradeRepo:       tradeRepo,
		Oracle:          oracle,
		Metrics:         engine,
		Logger:          appLogger,
		RefreshInterval: cfg.RefreshInterval,
	})
	if err != nil {
		return fmt.Errorf("error creating paper trading service: %w", err)
	}

	return service.Start(ctx)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cryptoPaperTrader/config"
	"cryptoPaperTrader/internal/adapters/binanceclient"
	"cryptoPaperTrader/internal/adapters/logger"
	"cryptoPaperTrader/internal/adapters/postgres"
	"cryptoPaperTrader/internal/adapters/sqlite"
	"cryptoPaperTrader/internal/analytics"
	"cryptoPaperTrader/internal/app"
	"cryptoPaperTrader/internal/ports"
)

var rootCmd = &cobra.Command{
	Use:   "papertrader",
	Short: "A paper trading session engine for crypto strategies",
	Long: `Papertrader manages simulated trading sessions against live market
prices without executing real orders.

It provides tools for:
  - Creating and managing paper trading sessions with isolated balances
  - Opening, closing and cancelling simulated trades
  - Mark-to-market refresh of open positions from live Binance prices
  - Performance metrics over closed trades (win rate, drawdown, Sharpe)
  - Risk-based position sizing and per-trade admission checks`,

	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// newService wires a PaperTradingService from the environment config.
// The returned cleanup closes the store.
func newService(ctx context.Context) (*app.PaperTradingService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)

	var sessionRepo ports.SessionRepository
	var tradeRepo ports.TradeRepository
	var cleanup func()

	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.DefaultPoolConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres pool: %w", err)
		}
		repo, err := postgres.NewRepository(ctx, pool, appLogger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("init postgres store: %w", err)
		}
		sessionRepo, tradeRepo = repo, repo
		cleanup = pool.Close
	default:
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		sessionRepo, tradeRepo = repo, repo
		cleanup = func() { _ = repo.Close() }
	}

	oracle, err := binanceclient.New(binanceclient.Config{
		APIKey:         cfg.APIKey,
		SecretKey:      cfg.SecretKey,
		UseTestnet:     cfg.IsTestnet,
		Logger:         appLogger,
		RequestTimeout: cfg.PriceTimeout,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create price oracle: %w", err)
	}

	service, err := app.New(app.Config{
		SessionRepo:     sessionRepo,
		TradeRepo:       tradeRepo,
		Oracle:          oracle,
		Metrics:         analytics.New(analytics.Config{AnnualizationDays: cfg.SharpeAnnualizationDays}),
		Logger:          appLogger,
		RefreshInterval: cfg.RefreshInterval,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create service: %w", err)
	}

	return service, cleanup, nil
}

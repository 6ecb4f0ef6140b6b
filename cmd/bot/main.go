// Package main provides the entry point for the trading bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/cross-book/internal/bot"
	"github.com/yourusername/cross-book/internal/config"
	"github.com/yourusername/cross-book/internal/database"
	"github.com/yourusername/cross-book/internal/exchange"
	"github.com/yourusername/cross-book/internal/exchange/betfair"
	"github.com/yourusername/cross-book/internal/exchange/paper"
	"github.com/yourusername/cross-book/internal/health"
	applogger "github.com/yourusername/cross-book/internal/logger"
	"github.com/yourusername/cross-book/internal/metrics"
	"github.com/yourusername/cross-book/internal/models"
	"github.com/yourusername/cross-book/internal/repository"
	"github.com/yourusername/cross-book/internal/scheduler"
	"github.com/yourusername/cross-book/internal/strategy"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile    string
	forcePractice bool
	cfg           *config.Config
	appLog        *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&forcePractice, "practice", false, "Force practice mode regardless of configuration")
}

var rootCmd = &cobra.Command{
	Use:   "cross-book",
	Short: "Cross-exchange trading bot",
	Long:  `Runs arbitrage and market-making strategies across two betting exchanges.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLog = applogger.NewLogger(cfg.App.LogLevel)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	// A local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if cfg.Secrets.Enabled {
		if err := config.LoadSecretsFromAWS(cfg, cfg.Secrets.Region, cfg.Secrets.SecretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if forcePractice {
		cfg.Features.PracticeModeEnabled = true
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	return config.ValidateEnvironment(cfg)
}

func run(ctx context.Context) error {
	practice := cfg.Practice()

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"practice":    practice,
	}).Info("Cross Book trading bot starting")

	metrics.InitRegistry()
	entry := logrus.NewEntry(appLog)
	audit := applogger.NewAuditLogger(appLog)

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	appLog.Info("Database connection established")

	selRepo := repository.NewPostgresSelectionRepository(db)
	orderRepo := repository.NewPostgresOrderRepository(db)
	balanceRepo := repository.NewPostgresBalanceRepository(db)
	matchRepo := repository.NewPostgresMatchRepository(db)

	priceServices, orderServices := buildExchanges(practice, entry)

	group := strategy.NewGroup()
	store := bot.NewPriceStore(cfg.PriceTTL())
	pricing := bot.NewPricingManager(group, priceServices, store, selRepo, entry)
	orders := bot.NewOrderManager(group, orderServices, orderRepo, practice, entry)
	orders.SetAuditLogger(audit)

	automation := bot.NewMarketAutomation(group, matchRepo, automationConfig(), entry)

	var monitor *health.Monitor
	var sink bot.StatusSink
	if cfg.Features.MonitorEnabled {
		monitor = health.NewMonitor(entry)
		sink = monitor
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        strconv.Itoa(cfg.Metrics.Port),
		Logger:      appLog,
		DB:          db,
		Monitor:     monitor,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	sched, err := buildScheduler(entry, orderServices, balanceRepo, matchRepo, audit)
	if err != nil {
		return err
	}
	if sched != nil {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	engine := bot.NewEngine(
		group,
		pricing,
		orders,
		store,
		[]bot.Automation{automation},
		sink,
		practice,
		cfg.TickInterval(),
		entry,
	)

	healthServer.SetReady(true)

	err = engine.Run(ctx)
	if errors.Is(err, context.Canceled) {
		appLog.Info("Shutdown signal received, bot stopped")
		return nil
	}
	return err
}

// buildExchanges wires the per-exchange price and order services. Betfair
// runs against the real API outside practice mode. BetDAQ is simulated in
// all modes until the SOAP client is available.
func buildExchanges(practice bool, entry *logrus.Entry) (map[models.ExchangeID]exchange.PriceService, map[models.ExchangeID]exchange.OrderService) {
	prices := make(map[models.ExchangeID]exchange.PriceService)
	orders := make(map[models.ExchangeID]exchange.OrderService)

	bdaq := paper.New(models.ExchangeBDAQ, cfg.Trading.PracticeStartBalance, entry)
	prices[models.ExchangeBDAQ] = bdaq
	orders[models.ExchangeBDAQ] = bdaq

	if practice {
		bf := paper.New(models.ExchangeBF, cfg.Trading.PracticeStartBalance, entry)
		prices[models.ExchangeBF] = bf
		orders[models.ExchangeBF] = bf
		return prices, orders
	}

	httpClient := exchange.NewThrottledClient(exchange.DefaultHTTPClientConfig(), entry)
	bf := betfair.NewClient(betfair.Config{
		APIURL:     cfg.Betfair.APIURL,
		AccountURL: cfg.Betfair.AccountURL,
		LoginURL:   cfg.Betfair.LoginURL,
		AppKey:     cfg.Betfair.AppKey,
		Username:   cfg.Betfair.Username,
		Password:   cfg.Betfair.Password,
		CertFile:   cfg.Betfair.CertFile,
		KeyFile:    cfg.Betfair.KeyFile,
	}, httpClient, entry)
	prices[models.ExchangeBF] = bf
	orders[models.ExchangeBF] = bf
	return prices, orders
}

func automationConfig() bot.MarketAutomationConfig {
	t := cfg.Trading
	return bot.MarketAutomationConfig{
		Lookahead:    time.Duration(t.MarketLookaheadMins) * time.Minute,
		Linger:       time.Duration(t.MarketLingerMins) * time.Minute,
		TickInterval: cfg.TickInterval(),
		CrossEnabled: t.CrossEnabled,
		MakerEnabled: t.MakerEnabled,
		Cross: strategy.CrossExchangeConfig{
			Commission: map[models.ExchangeID]float64{
				models.ExchangeBDAQ: cfg.Bdaq.Commission,
				models.ExchangeBF:   cfg.Betfair.Commission,
			},
			MinStake: map[models.ExchangeID]float64{
				models.ExchangeBDAQ: cfg.Bdaq.MinStake,
				models.ExchangeBF:   cfg.Betfair.MinStake,
			},
			LayCeiling: t.LayCeiling,
			Interval:   t.StrategyInterval,
		},
		Maker: strategy.MarketMakerConfig{
			Epsilon:       t.MakerEpsilon,
			BackStake:     t.MakerBackStake,
			CloseOutTicks: t.CloseOutTicks,
			Interval:      t.StrategyInterval,
		},
		RefreshEvery: int64(t.MarketRefreshTicks),
	}
}

// buildScheduler assembles the background jobs. Returns nil when no
// schedules are configured.
func buildScheduler(
	entry *logrus.Entry,
	orderServices map[models.ExchangeID]exchange.OrderService,
	balances repository.BalanceRepository,
	matches repository.MatchRepository,
	audit *applogger.AuditLogger,
) (*scheduler.Scheduler, error) {
	hasJobs := false
	sched := scheduler.NewScheduler(entry)

	if cfg.Trading.BalanceSchedule != "" {
		if err := sched.ScheduleBalanceSnapshots(cfg.Trading.BalanceSchedule, orderServices, balances, audit); err != nil {
			return nil, fmt.Errorf("failed to schedule balance snapshots: %w", err)
		}
		hasJobs = true
	}

	if cfg.Trading.MarketMatchSchedule != "" {
		lookahead := time.Duration(cfg.Trading.MarketLookaheadMins) * time.Minute
		refresh := func(ctx context.Context) error {
			now := time.Now()
			upcoming, err := matches.GetUpcoming(ctx, now, now.Add(lookahead))
			if err != nil {
				return err
			}
			entry.WithField("markets", len(upcoming)).Info("matched-market mapping refreshed")
			return nil
		}
		if err := sched.ScheduleMarketRefresh(cfg.Trading.MarketMatchSchedule, refresh); err != nil {
			return nil, fmt.Errorf("failed to schedule market refresh: %w", err)
		}
		hasJobs = true
	}

	if !hasJobs {
		return nil, nil
	}
	return sched, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"smmbridge/internal/auth"
	"smmbridge/internal/bootstrap"
	"smmbridge/internal/config"
	cronpkg "smmbridge/internal/cron"
	"smmbridge/internal/engine"
	"smmbridge/internal/limiter"
	"smmbridge/internal/middleware"
	"smmbridge/internal/panelapi"
	"smmbridge/internal/pipeline"
	"smmbridge/internal/pkg/httpclient"
	"smmbridge/internal/pkg/telegram"
	"smmbridge/internal/repository"
	"smmbridge/internal/router"
	tgtransport "smmbridge/internal/transport/telegram"
	"smmbridge/internal/transport/whatsapp"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.MigrateAndSeed(db); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}
	if hasArg("--bootstrap-db") {
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Repositories ---
	orderRepo := repository.NewOrderRepository(db)
	commandRepo := repository.NewCommandRepository(db)
	panelRepo := repository.NewPanelRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	userRepo := repository.NewUserRepository(db)

	// --- Shared lock store (Redis with in-memory fallback) ---
	locks, lockErr := limiter.New(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB)
	if lockErr != nil {
		logger.Warn("Redis unavailable, rate limits and cooldowns are process-local", zap.Error(lockErr))
	}

	// --- Panel API client ---
	throttle := limiter.NewThrottle(locks, cfg.Pipeline.PanelRequestsPerSecond)
	panelClient := panelapi.NewClient(httpclient.New(), throttle, panelRepo, logger)

	// --- Operator forwarder ---
	botAPI := telegram.NewBotAPI(cfg.Telegram.Token)
	forwarder := tgtransport.NewOperatorForwarder(botAPI, cfg.Telegram.OperatorChatID, logger)

	// --- Engine + pipeline ---
	chain := auth.NewChain(locks, mappingRepo, logger)
	eng := engine.New(orderRepo, commandRepo, panelRepo, policyRepo, serviceRepo,
		panelClient, forwarder, chain, locks, logger)
	pipe := pipeline.New(eng, mappingRepo, orderRepo, forwarder, logger)

	// --- Webhook deduper (Redis with in-memory fallback) ---
	deduper, dedupeErr := middleware.NewMessageDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		10*time.Minute,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for webhook dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- Transports ---
	teleBot, err := tgtransport.New(cfg, pipe, bootstrap.DefaultUserID, logger)
	if err != nil {
		logger.Fatal("Failed to create telegram transport", zap.Error(err))
	}
	waHandler := whatsapp.NewHandler(pipe, bootstrap.DefaultUserID, logger)

	// --- Echo + routes ---
	e := echo.New()
	e.HideBanner = true
	router.Setup(e, waHandler, cfg.WhatsApp.WebhookSecret, deduper, teleBot.WebhookHandler(), logger)

	// --- Cron scheduler ---
	scheduler := cronpkg.New(cfg.Pipeline.RefreshCron, &cronpkg.CronRepos{
		User:  userRepo,
		Order: orderRepo,
		Panel: panelRepo,
	}, panelClient, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// --- Start server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting smmbridge server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	go teleBot.Start()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	teleBot.Stop()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

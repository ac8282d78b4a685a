package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/database"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/holdings"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/ibkr"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logger"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/market"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/scheduler"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/version"
)

func fatal(msg string, err error) {
	logger.L.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fatal("Failed to load configuration", err)
	}
	logger.InitLogger(cfg.Log.Level)

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fatal("Failed to open database", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		fatal("Failed to migrate database", err)
	}
	logger.L.Info("Connected to database", "path", cfg.Database.Path, "version", version.Version)

	sessionKey := cfg.Session.Key
	if sessionKey == "" {
		if sessionKey, err = service.GenerateSessionKey(); err != nil {
			fatal("Failed to generate session key", err)
		}
		logger.L.Warn("SESSION_KEY not set, using a per-process key; sessions end on restart")
	}
	key, err := service.ParseSessionKey(sessionKey)
	if err != nil {
		fatal("Invalid SESSION_KEY", err)
	}

	resolver, err := market.NewResolverFromConfig(cfg.Quotes)
	if err != nil {
		fatal("Failed to configure quote providers", err)
	}

	// Create repositories
	transactionRepo := repository.NewTransactionRepository(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// Create services
	systemService := service.NewSystemService(db, map[string]bool{
		"quotes":       len(cfg.Quotes.Providers) > 0,
		"uniform_cost": cfg.Holdings.CostMethod == holdings.UniformCost,
		"quote_warmup": cfg.Quotes.RefreshSchedule != "",
		"ibkr_fetch":   cfg.IBKR.Token != "" && cfg.IBKR.QueryID != "",
	})
	transactionService := service.NewTransactionService(db, transactionRepo)
	holdingsService := service.NewHoldingsService(transactionRepo, resolver, cfg.Holdings.CostMethod)
	authService := service.NewAuthService(userRepo, sessionRepo, key, cfg.Session.TTL)
	ibkrService := service.NewIbkrService(
		db,
		transactionRepo,
		ibkr.NewFinanceClient(),
		cfg.IBKR.Token,
		cfg.IBKR.QueryID,
		cfg.IBKR.Broker,
	)

	sched, err := scheduler.New(cfg.Quotes.RefreshSchedule, holdingsService, resolver, authService)
	if err != nil {
		fatal("Failed to configure scheduler", err)
	}
	sched.Start()

	// Create router
	router := api.NewRouter(systemService, transactionService, holdingsService, authService, ibkrService, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.L.Info("Starting server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("Server failed to start", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L.Info("Shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop(ctx)
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Server forced to shutdown", "error", err)
	}

	logger.L.Info("Server exited")
}

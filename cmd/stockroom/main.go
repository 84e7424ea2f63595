package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockroom-pos/stockroom/internal/adjustments"
	"github.com/stockroom-pos/stockroom/internal/app"
	"github.com/stockroom-pos/stockroom/internal/auth"
	"github.com/stockroom-pos/stockroom/internal/dashboard"
	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/platform/cache"
	"github.com/stockroom-pos/stockroom/internal/platform/db"
	"github.com/stockroom-pos/stockroom/internal/purchases"
	"github.com/stockroom-pos/stockroom/internal/sales"
	"github.com/stockroom-pos/stockroom/internal/shared"
	"github.com/stockroom-pos/stockroom/internal/users"
	"github.com/stockroom-pos/stockroom/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "stockroom_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	usersRepo := users.NewRepository(dbpool)
	guard := shared.Guard{Roles: usersRepo, Logger: logger}

	mailClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardService := dashboard.NewService(dashboardRepo, redisClient, cfg.DashboardCacheTTL, int64(cfg.LowStockThreshold))
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, guard)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, redisClient, mailClient, cfg.PasswordResetTTL)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, guard)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, guard)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, auditLogger, idempotencyStore, dashboardService)
	salesHandler := sales.NewHandler(logger, salesService, guard)

	purchasesRepo := purchases.NewRepository(dbpool)
	purchasesService := purchases.NewService(purchasesRepo, auditLogger, idempotencyStore, dashboardService)
	purchasesHandler := purchases.NewHandler(logger, purchasesService, guard)

	adjustmentsRepo := adjustments.NewRepository(dbpool)
	adjustmentsService := adjustments.NewService(adjustmentsRepo, auditLogger, idempotencyStore, dashboardService)
	adjustmentsHandler := adjustments.NewHandler(logger, adjustmentsService, guard)

	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		DashboardHandler:   dashboardHandler,
		InventoryHandler:   inventoryHandler,
		SalesHandler:       salesHandler,
		PurchasesHandler:   purchasesHandler,
		AdjustmentsHandler: adjustmentsHandler,
		UsersHandler:       usersHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/vantage-intel/vantage-intel/internal/app"
	"github.com/vantage-intel/vantage-intel/internal/auth"
	"github.com/vantage-intel/vantage-intel/internal/observability"
	"github.com/vantage-intel/vantage-intel/internal/platform/cache"
	"github.com/vantage-intel/vantage-intel/internal/platform/db"
	"github.com/vantage-intel/vantage-intel/internal/session"
	"github.com/vantage-intel/vantage-intel/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Redis is an optimisation on the validation hot path, not the
		// source of truth; start degraded rather than refuse to start.
		logger.Warn("redis unavailable, sessions served from postgres only", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	sessionRepo := session.NewRepository(pool)
	sessionManager := session.NewManager(logger, sessionRepo, redisClient)

	credStore := auth.NewStore(pool)
	hasher := auth.NewHasher(cfg.BcryptCost)

	auditEmitter := jobs.NewAuditEmitter(logger, asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := auditEmitter.Close(); err != nil {
			logger.Warn("audit emitter close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(logger, credStore, hasher, sessionManager, auditEmitter, cfg.SessionTTL)

	if cfg.BootstrapAdmin {
		if err := auth.EnsureAdmin(ctx, logger, credStore, hasher, cfg.BootstrapAdminUser, cfg.BootstrapAdminPassword); err != nil {
			logger.Error("bootstrap admin", slog.Any("error", err))
			os.Exit(1)
		}
	}

	sessionMW := session.Middleware{Manager: sessionManager, Roles: credStore, Logger: logger, Metrics: metrics}
	authHandler := auth.NewHandler(logger, authService, metrics, sessionMW)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: authHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}

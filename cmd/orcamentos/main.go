package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"orcamentos/internal/auth"
	"orcamentos/internal/backend"
	"orcamentos/internal/cache"
	"orcamentos/internal/cli"
	apphttp "orcamentos/internal/http"
	applog "orcamentos/internal/log"
	"orcamentos/internal/services"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, "orcamentos")

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	lists := services.NewOwnerCache()
	caches := cache.NewManager(logger)
	caches.Register(lists)
	caches.StartCleanup(cacheSweepInterval)

	srv, err := apphttp.NewServer(cfg, apphttp.Dependencies{
		Accounts:  services.NewAccountService(res.Store, auth.NewHasher(auth.DefaultParams())),
		Budgets:   services.NewBudgetService(res.Store, res.Publisher, lists),
		Sessions:  auth.NewSessionManager([]byte(cfg.SessionSecret), cfg.SessionMaxAge, cfg.CookieSecure),
		Store:     res.Store,
		ListCache: lists,
		Caches:    caches,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting orcamentos server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

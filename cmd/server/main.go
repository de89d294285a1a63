package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrverify/internal/config"
	"qrverify/internal/handlers"
	"qrverify/internal/metrics"
	"qrverify/internal/repository"
	"qrverify/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context) error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Setup Logger
	var handler slog.Handler
	if cfg.AppEnv == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	adminUsers, err := config.ParseAdminCredentials(cfg.AdminCredentials)
	if err != nil {
		return fmt.Errorf("failed to parse admin credentials: %w", err)
	}
	if adminUsers.Len() == 0 {
		logger.Warn("No admin credentials configured, admin endpoints will reject every request")
	}

	// 3. Initialize Database
	db, err := repository.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// 4. Initialize Redis
	rdb, err := repository.InitRedis(cfg.RedisURL, cfg.RedisPassword, 0)
	if err != nil {
		logger.Warn("Failed to connect to Redis, caching disabled", "error", err)
	} else {
		defer rdb.Close()
	}

	// 5. Run Migrations
	logger.Info("Running database migrations...")
	if err := repository.Migrate(db, cfg.DatabaseURL, ""); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// 6. Initialize Services
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	registry := repository.NewRegistryStore(db, rdb, cfg.RegistryCacheTTL)
	accessLogStore := repository.NewAccessLogStore(db)
	geoIPService := services.NewGeoIPService(cfg, logger, rdb, m)
	accessLogWorker := services.NewAccessLogWorker(accessLogStore, geoIPService, logger, m, cfg.AuditQueueSize)
	verificationService := services.NewVerificationService(registry, accessLogWorker, logger, m)
	reportingService := services.NewReportingService(accessLogStore, registry)
	qrService := services.NewQRService(cfg.BaseURL)

	// 7. Initialize Handler
	h := handlers.NewHandler(cfg, logger, verificationService, reportingService, registry, qrService, reg)

	// 8. Setup Router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := h.SetupRouter(adminUsers, "web/templates/*", "./web/static")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Background workers outlive the server so requests still in flight
	// during shutdown can enqueue their access log.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var workers errgroup.Group
	for i := 0; i < cfg.AuditWorkers; i++ {
		workers.Go(func() error {
			accessLogWorker.Start(workerCtx)
			return nil
		})
	}
	workers.Go(func() error {
		geoIPService.Init()
		geoIPService.StartUpdater(workerCtx)
		return nil
	})

	// 9. Start Server with Graceful Shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	serveErr := g.Wait()

	workerCancel()
	workers.Wait()
	geoIPService.Close()

	logger.Info("Server exiting")
	return serveErr
}

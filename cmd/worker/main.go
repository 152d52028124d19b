package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appintegration "github.com/sneakerflash/backend/internal/application/integration"
	"github.com/sneakerflash/backend/internal/domain/shared"
	"github.com/sneakerflash/backend/internal/infrastructure/cache"
	"github.com/sneakerflash/backend/internal/infrastructure/config"
	"github.com/sneakerflash/backend/internal/infrastructure/ecommerce"
	"github.com/sneakerflash/backend/internal/infrastructure/logger"
	"github.com/sneakerflash/backend/internal/infrastructure/migration"
	"github.com/sneakerflash/backend/internal/infrastructure/persistence"
	"github.com/sneakerflash/backend/internal/infrastructure/scheduler"
	"github.com/sneakerflash/backend/internal/infrastructure/telemetry"
	"github.com/sneakerflash/backend/internal/interfaces/http/handler"
	"github.com/sneakerflash/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.FromAppConfig(cfg))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting inventory reconciler",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	bridgeLevel, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		bridgeLevel = zapcore.InfoLevel
	}
	log = lp.Bridge(log, bridgeLevel)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileMutex:      cfg.Profiling.ProfileMutex,
		ProfileBlock:      cfg.Profiling.ProfileBlock,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tp.EnableSpanProfiles()
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := lp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithIgnoreRecordNotFoundError(true),
	)
	db, err := persistence.NewDatabase(ctx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if stats, err := db.Stats(); err == nil {
			log.Info("Database pool at shutdown",
				zap.Int("max_open", stats.MaxOpenConnections),
				zap.Int("open", stats.OpenConnections),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration),
				zap.Bool("saturated", stats.Saturated()),
			)
		}
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   "postgresql",
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	ledgerRepo := persistence.NewGormSyncLedgerRepository(db.DB).WithBatchSize(cfg.Reconcile.ChunkSize)

	// Inventory platform client
	gineeConfig := ecommerce.NewGineeConfig(cfg.Ginee.AccessKey, cfg.Ginee.SecretKey)
	gineeConfig.APIBaseURL = cfg.Ginee.BaseURL
	gineeConfig.Country = cfg.Ginee.Country
	gineeConfig.ListTimeoutSeconds = int(cfg.Ginee.ListTimeout / time.Second)
	gineeConfig.UpdateTimeoutSeconds = int(cfg.Ginee.UpdateTimeout / time.Second)
	gineeClient, err := ecommerce.NewGineeClient(gineeConfig, log)
	if err != nil {
		log.Fatal("Failed to create Ginee client", zap.Error(err))
	}

	// Reconciliation service
	defaults := appintegration.ReconcileOptions{
		PageSize:      cfg.Reconcile.PageSize,
		MaxPages:      cfg.Reconcile.MaxPages,
		MaxRetries:    cfg.Reconcile.MaxRetries,
		RetryBackoff:  cfg.Reconcile.RetryBackoff,
		ChunkSize:     cfg.Reconcile.ChunkSize,
		Concurrency:   cfg.Reconcile.Concurrency,
		FallbackDelay: cfg.Reconcile.FallbackDelay,
	}
	reconcileService, err := appintegration.NewReconcileService(gineeClient, productRepo, ledgerRepo, appintegration.ReconcileServiceConfig{
		WarehouseID: cfg.Ginee.WarehouseID,
		Defaults:    defaults,
		Lookup:      appintegration.DefaultStockLookupConfig(),
		Lock: shared.BatchLockConfig{
			TTL:     cfg.Reconcile.LockTTL,
			Enabled: cfg.Reconcile.LockEnabled,
		},
	}, log)
	if err != nil {
		log.Fatal("Failed to create reconcile service", zap.Error(err))
	}

	reconcileMetrics, err := telemetry.NewReconcileMetrics(mp.Meter("inventory-reconciler"), log)
	if err != nil {
		log.Warn("Failed to create reconcile metrics, continuing without them", zap.Error(err))
	} else {
		reconcileService.SetMetrics(reconcileMetrics)
	}

	if cfg.Reconcile.LockEnabled {
		lockFactory := cache.NewBatchLockFactory(cfg.Redis, cache.WithLogger(log))
		batchLock, err := lockFactory.CreateLock(cfg.Reconcile.LockBackend)
		if err != nil {
			log.Fatal("Failed to create batch lock", zap.Error(err))
		}
		defer func() {
			if err := batchLock.Close(); err != nil {
				log.Error("Error closing batch lock", zap.Error(err))
			}
		}()
		reconcileService.SetBatchLock(batchLock)
	}

	// Probe and status endpoints
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	systemHandler.AddCheck("database", db.Ping)

	// Scheduled reconciliation
	var (
		reconcileScheduler *scheduler.ReconcileScheduler
		trigger            *scheduler.IntervalTrigger
	)
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewServiceExecutor(reconcileService, defaults, log)
		schedulerConfig := scheduler.DefaultReconcileSchedulerConfig()
		schedulerConfig.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
		schedulerConfig.JobTimeout = cfg.Scheduler.JobTimeout
		schedulerConfig.RetryAttempts = cfg.Scheduler.RetryAttempts
		schedulerConfig.RetryDelay = cfg.Scheduler.RetryDelay

		reconcileScheduler, err = scheduler.NewReconcileScheduler(schedulerConfig, executor, log)
		if err != nil {
			log.Fatal("Failed to create reconcile scheduler", zap.Error(err))
		}
		if err := reconcileScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start reconcile scheduler", zap.Error(err))
		}

		trigger, err = scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
			Interval:   cfg.Scheduler.Interval,
			RunOnStart: cfg.Scheduler.RunOnStart,
			DryRun:     cfg.Scheduler.DryRun,
		}, reconcileScheduler, productRepo, log)
		if err != nil {
			log.Fatal("Failed to create interval trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start interval trigger", zap.Error(err))
		}

		systemHandler.AddCheck("scheduler", func(context.Context) error {
			if !reconcileScheduler.IsRunning() {
				return scheduler.ErrSchedulerNotRunning
			}
			return nil
		})
		systemHandler.SetJobHistory(reconcileScheduler)
	} else {
		log.Info("Scheduled reconciliation disabled")
	}

	engine := router.NewEngine(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
	}, router.Handlers{
		System: systemHandler,
		Ledger: handler.NewLedgerHandler(appintegration.NewLedgerService(ledgerRepo, log)),
	}, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Probe server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		log.Error("Probe server failed", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping interval trigger", zap.Error(err))
		}
	}
	if reconcileScheduler != nil {
		if err := reconcileScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping reconcile scheduler", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Probe server forced to shutdown", zap.Error(err))
	}

	log.Info("Inventory reconciler stopped")
}

func runMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared connection pool
	return m.Up()
}

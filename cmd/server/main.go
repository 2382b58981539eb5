package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockmetrics/internal/config"
	"github.com/mamadbah2/stockmetrics/internal/repository/mongodb"
	redisrepo "github.com/mamadbah2/stockmetrics/internal/repository/redis"
	"github.com/mamadbah2/stockmetrics/internal/repository/sheets"
	"github.com/mamadbah2/stockmetrics/internal/scheduler"
	"github.com/mamadbah2/stockmetrics/internal/server/handlers"
	"github.com/mamadbah2/stockmetrics/internal/server/router"
	"github.com/mamadbah2/stockmetrics/internal/service/forecast"
	"github.com/mamadbah2/stockmetrics/internal/service/metrics"
	"github.com/mamadbah2/stockmetrics/internal/telemetry"
	"github.com/mamadbah2/stockmetrics/pkg/clients/webhook"
	"github.com/mamadbah2/stockmetrics/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Metrics.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Metrics.Timezone), zap.Error(err))
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	mongoRepo, err := mongodb.NewMongoDBRepository(startCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()
	if err := mongoRepo.EnsureIndexes(startCtx); err != nil {
		baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collectorSet := telemetry.New(registry)

	opts := []metrics.Option{
		metrics.WithLocation(loc),
		metrics.WithCollectors(collectorSet),
	}

	if cfg.Redis.Enabled() {
		locker, err := redisrepo.NewLocker(startCtx, cfg.Redis, cfg.Metrics.LockTTL, baseLogger.Named("repo.redis"))
		if err != nil {
			baseLogger.Fatal("failed to init redis locker", zap.Error(err))
		}
		defer func() { _ = locker.Close() }()
		opts = append(opts, metrics.WithLocker(locker))
		baseLogger.Info("redis metrics lock enabled")
	} else {
		baseLogger.Warn("redis address missing, using in-process metrics lock")
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(startCtx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		opts = append(opts, metrics.WithExporter(sheets.NewMetricsExporter(sheetsRepo, baseLogger.Named("repo.sheets"))))
		baseLogger.Info("google sheets export enabled")
	}

	metricsSvc := metrics.NewService(mongoRepo, baseLogger.Named("svc.metrics"), opts...)
	forecastSvc := forecast.NewService(mongoRepo, loc, baseLogger.Named("svc.forecast"))

	var notifier scheduler.Notifier
	if cfg.Notify.Enabled() {
		notifier = webhook.NewClient(cfg.Notify)
		baseLogger.Info("batch notifications enabled")
	}

	sched := scheduler.NewScheduler(cfg.Metrics, loc, metricsSvc, mongoRepo, notifier, collectorSet, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	metricsHandler := handlers.NewMetricsHandler(metricsSvc, forecastSvc, sched, mongoRepo, baseLogger.Named("handlers.metrics"))
	promHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	engine := router.New(metricsHandler, promHandler, cfg.Metrics.CronSecret, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Metrics.JobTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

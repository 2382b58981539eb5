package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/config"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
	"github.com/mamadbah2/stockmetrics/internal/service/metrics"
	"github.com/mamadbah2/stockmetrics/internal/telemetry"
)

const notifyTimeout = 30 * time.Second

// MetricsRunner computes the monthly metrics of one business.
type MetricsRunner interface {
	CalculateAndSyncMonthlyMetrics(ctx context.Context, business models.Business, dateFrom string) (*metrics.MonthlyResult, error)
}

// BusinessLister lists every business the scheduler should process.
type BusinessLister interface {
	ListBusinesses(ctx context.Context) ([]models.Business, error)
}

// Notifier receives the summary of each scheduled run.
type Notifier interface {
	NotifyBatch(ctx context.Context, summary models.BatchSummary) error
}

// Scheduler manages the periodic monthly metrics sync.
type Scheduler struct {
	cron       *cron.Cron
	runner     MetricsRunner
	businesses BusinessLister
	notifier   Notifier
	collectors *telemetry.Collectors
	cfg        config.MetricsConfig
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

// NewScheduler creates a new scheduler instance. notifier and collectors may be nil.
func NewScheduler(cfg config.MetricsConfig, loc *time.Location, runner MetricsRunner, businesses BusinessLister, notifier Notifier, collectors *telemetry.Collectors, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		runner:     runner,
		businesses: businesses,
		notifier:   notifier,
		collectors: collectors,
		cfg:        cfg,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// Start registers the monthly metrics job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule), zap.String("timezone", s.loc.String()))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runScheduled); err != nil {
		return fmt.Errorf("schedule monthly metrics sync: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// TargetPeriod returns the dateFrom the scheduler passes to every business: the start
// of the current month shifted by the configured month offset.
func (s *Scheduler) TargetPeriod() time.Time {
	now := s.now().In(s.loc)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	return current.AddDate(0, s.cfg.MonthOffset, 0)
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	summary, err := s.ScheduleMonthlyMetricsSync(ctx)
	if err != nil {
		s.logger.Error("scheduled monthly metrics sync failed", zap.Error(err))
		return
	}

	if s.notifier == nil {
		return
	}

	// The run may have used up its deadline; the summary still goes out.
	notifyCtx, cancelNotify := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancelNotify()
	if err := s.notifier.NotifyBatch(notifyCtx, *summary); err != nil {
		s.logger.Warn("failed to send batch summary", zap.Error(err))
	}
}

// ScheduleMonthlyMetricsSync runs the orchestrator for every business on a bounded
// worker pool. One business failing never stops the others; the error is only set
// when the business list itself cannot be read.
func (s *Scheduler) ScheduleMonthlyMetricsSync(ctx context.Context) (*models.BatchSummary, error) {
	start := time.Now()
	s.collectors.BatchStarted()
	defer func() { s.collectors.BatchFinished(time.Since(start)) }()

	period := s.TargetPeriod()
	summary := &models.BatchSummary{
		RunID:     uuid.NewString(),
		Period:    period.Format("2006-01-02"),
		StartedAt: s.now(),
	}
	logger := s.logger.With(zap.String("run_id", summary.RunID), zap.String("period", summary.Period))

	businesses, err := s.businesses.ListBusinesses(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabaseError, err, "list businesses")
	}
	summary.Total = len(businesses)
	logger.Info("monthly metrics sync started", zap.Int("businesses", len(businesses)), zap.Int("workers", s.cfg.Concurrency))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for _, business := range businesses {
		g.Go(func() error {
			err := s.process(ctx, business, summary.Period)
			s.collectors.BatchBusinessDone(err == nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, models.BatchFailure{
					BusinessID: business.ID,
					Code:       string(apperror.CodeOf(err)),
					Message:    err.Error(),
				})
				logger.Warn("monthly metrics failed for business", zap.String("business_id", business.ID), zap.Error(err))
				return nil
			}
			summary.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(summary.Failures, func(i, j int) bool { return summary.Failures[i].BusinessID < summary.Failures[j].BusinessID })
	summary.FinishedAt = s.now()

	logger.Info("monthly metrics sync finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", time.Since(start)))

	return summary, nil
}

func (s *Scheduler) process(ctx context.Context, business models.Business, dateFrom string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperror.New(apperror.CodeFailedRequest, fmt.Sprintf("panic: %v", r))
		}
	}()

	_, err = s.runner.CalculateAndSyncMonthlyMetrics(ctx, business, dateFrom)
	return err
}

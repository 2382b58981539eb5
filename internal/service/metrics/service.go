package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
	"github.com/mamadbah2/stockmetrics/internal/service/formulas"
	"github.com/mamadbah2/stockmetrics/internal/telemetry"
)

// Repository is the storage surface the orchestrator reads from and syncs into.
type Repository interface {
	TransactionsInInterval(ctx context.Context, businessID string, from, to time.Time) ([]models.PricedTransaction, error)
	ExpensesInInterval(ctx context.Context, businessID string, from, to time.Time) ([]models.Expense, error)
	WarehouseItems(ctx context.Context, businessID string) ([]models.WarehouseItem, error)
	GetMetric(ctx context.Context, businessID, name, periodType string, period time.Time) (*models.Metric, error)
	UpsertMetric(ctx context.Context, metric models.Metric) (models.Metric, error)
}

// Exporter receives every freshly computed record. Failures are logged only.
type Exporter interface {
	ExportMetrics(ctx context.Context, business models.Business, period time.Time, record models.MetricsRecord) error
}

// MonthlyResult is the outcome of one orchestrator run.
type MonthlyResult struct {
	BusinessID string               `json:"businessId"`
	Period     time.Time            `json:"period"`
	Record     models.MetricsRecord `json:"metrics"`
	Synced     []models.Metric      `json:"-"`
}

// Service computes and persists monthly business metrics.
type Service struct {
	repo      Repository
	locker    Locker
	exporter  Exporter
	collector *telemetry.Collectors
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLocker replaces the default in-process locker.
func WithLocker(l Locker) Option { return func(s *Service) { s.locker = l } }

// WithExporter enables exporting computed records.
func WithExporter(e Exporter) Option { return func(s *Service) { s.exporter = e } }

// WithCollectors enables Prometheus instrumentation.
func WithCollectors(c *telemetry.Collectors) Option { return func(s *Service) { s.collector = c } }

// WithLocation sets the timezone calendar months are computed in.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires a metrics service.
func NewService(repo Repository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:   repo,
		locker: NewLocalLocker(),
		loc:    time.UTC,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the timezone months are computed in.
func (s *Service) Location() *time.Location { return s.loc }

// CalculateAndSyncMonthlyMetrics computes the metrics of the calendar month containing
// dateFrom for business and persists them. dateFrom is snapped to the start of its
// month in the service location, so a mid-month date reads the whole month, from the
// first day through the last instant of the month.
//
// Validation failures return before any read. When the computation succeeds but some
// metric rows fail to persist, the result is returned together with a DATABASE_ERROR.
func (s *Service) CalculateAndSyncMonthlyMetrics(ctx context.Context, business models.Business, dateFrom string) (result *MonthlyResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("monthly metrics panicked",
				zap.String("business_id", business.ID),
				zap.String("date_from", dateFrom),
				zap.Any("panic", r))
			result = nil
			err = apperror.New(apperror.CodeFailedRequest, fmt.Sprintf("unexpected failure: %v", r))
		}
		s.collector.ComputationFinished(string(apperror.CodeOf(err)))
	}()

	parsed, perr := ParsePeriod(dateFrom, s.loc)
	if perr != nil {
		return nil, apperror.Wrap(apperror.CodeBadRequest, perr, "invalid dateFrom")
	}

	period, verr := s.validatePeriod(business, parsed)
	if verr != nil {
		return nil, verr
	}

	return s.computeAndSync(ctx, business, period)
}

func (s *Service) validatePeriod(business models.Business, parsed time.Time) (time.Time, error) {
	period := MonthStart(parsed, s.loc)
	current := MonthStart(s.now(), s.loc)
	if !period.Before(current) {
		return time.Time{}, apperror.New(apperror.CodeBadRequest,
			fmt.Sprintf("period %s is not closed yet; metrics are computed for months before %s", periodKey(period), periodKey(current)))
	}

	if period.Before(MonthStart(business.CreatedAt, s.loc)) {
		return time.Time{}, apperror.New(apperror.CodeBeforeBusinessCreation,
			fmt.Sprintf("period %s predates business creation", periodKey(period))).
			WithData(business.CreatedAt)
	}

	return period, nil
}

func (s *Service) computeAndSync(ctx context.Context, business models.Business, period time.Time) (*MonthlyResult, error) {
	logger := s.logger.With(zap.String("business_id", business.ID), zap.String("period", periodKey(period)))

	release, err := s.locker.Lock(ctx, lockKey(business.ID, periodKey(period)))
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeFailedRequest, err, "acquire metrics lock")
	}
	defer release()

	dateTo := MonthEnd(period)

	var (
		txs      []models.PricedTransaction
		expenses []models.Expense
		opening  decimal.Decimal
		closing  decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	safeGo(g, func() error {
		rows, err := s.repo.TransactionsInInterval(gctx, business.ID, period, dateTo)
		if err != nil {
			return apperror.Wrap(apperror.CodeDatabaseError, err, "load transactions")
		}
		txs = withProduct(rows)
		if dropped := len(rows) - len(txs); dropped > 0 {
			logger.Warn("skipping transactions without product", zap.Int("count", dropped))
		}
		return nil
	})
	safeGo(g, func() error {
		rows, err := s.repo.ExpensesInInterval(gctx, business.ID, period, dateTo)
		if err != nil {
			return apperror.Wrap(apperror.CodeDatabaseError, err, "load expenses")
		}
		expenses = rows
		return nil
	})
	safeGo(g, func() error {
		value, err := s.openingStock(gctx, business.ID, period)
		if err != nil {
			return err
		}
		opening = value
		return nil
	})
	safeGo(g, func() error {
		items, err := s.repo.WarehouseItems(gctx, business.ID)
		if err != nil {
			return apperror.Wrap(apperror.CodeDatabaseError, err, "load warehouse items")
		}
		closing = formulas.ClosingStockValue(items)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("monthly metrics read failed", zap.Error(err))
		return nil, err
	}

	record := formulas.CalculateAllMetrics(txs, expenses, opening, closing)
	result := &MonthlyResult{BusinessID: business.ID, Period: period, Record: record}

	synced, syncErr := s.SyncMetricsToDatabase(ctx, business.ID, period, record)
	result.Synced = synced

	if s.exporter != nil {
		if err := s.exporter.ExportMetrics(ctx, business, period, record); err != nil {
			logger.Warn("metrics export failed", zap.Error(err))
		}
	}

	logger.Info("monthly metrics computed",
		zap.Int("transactions", len(txs)),
		zap.Int("expenses", len(expenses)),
		zap.Int("synced", len(synced)),
		zap.String("net_income", record.NetIncome.String()))

	return result, syncErr
}

// openingStock reads the closing stock persisted for the month before period.
func (s *Service) openingStock(ctx context.Context, businessID string, period time.Time) (decimal.Decimal, error) {
	prev, err := s.repo.GetMetric(ctx, businessID, models.MetricClosingStock, models.PeriodTypeMonthly, PreviousMonthStart(period))
	if err != nil {
		return decimal.Zero, apperror.Wrap(apperror.CodeDatabaseError, err, "load previous closing stock")
	}
	if prev == nil {
		return decimal.Zero, nil
	}
	return decimal.Max(prev.Value, decimal.Zero), nil
}

// safeGo runs fn on g, turning a panic into a FAILED_REQUEST so it reaches the
// caller through Wait instead of killing the process.
func safeGo(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = apperror.New(apperror.CodeFailedRequest, fmt.Sprintf("unexpected failure: %v", r))
			}
		}()
		return fn()
	})
}

func withProduct(rows []models.PricedTransaction) []models.PricedTransaction {
	out := make([]models.PricedTransaction, 0, len(rows))
	for _, row := range rows {
		if row.Product != nil {
			out = append(out, row)
		}
	}
	return out
}

package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

// MetricReader lists persisted metric rows of a business within [from, to].
type MetricReader interface {
	ListMetrics(ctx context.Context, businessID, periodType string, from, to time.Time) ([]models.Metric, error)
}

// Service reads persisted monthly metrics and forecasts them.
type Service struct {
	repo   MetricReader
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewService wires a forecast service computing months in loc.
func NewService(repo MetricReader, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// Forecast loads the last months closed months of metricName for a business and
// projects periods more.
func (s *Service) Forecast(ctx context.Context, businessID, metricName string, months, periods int) ([]ChartPoint, error) {
	if !models.IsKnownMetric(metricName) {
		return nil, apperror.New(apperror.CodeBadRequest, fmt.Sprintf("unknown metric %q", metricName))
	}
	if months <= 0 {
		return nil, apperror.New(apperror.CodeBadRequest, "months must be positive")
	}

	now := s.now().In(s.loc)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	from := current.AddDate(0, -months, 0)
	to := current.Add(-time.Nanosecond)

	rows, err := s.repo.ListMetrics(ctx, businessID, models.PeriodTypeMonthly, from, to)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabaseError, err, "list metrics")
	}

	history := GroupByPeriod(rows, s.loc)
	s.logger.Debug("forecasting metric",
		zap.String("business_id", businessID),
		zap.String("metric", metricName),
		zap.Int("history", len(history)))

	return GetForecastedMetrics(history, metricName, periods), nil
}

// GroupByPeriod folds metric rows into per-period value maps ordered by period.
// Periods are expressed in loc so month names match the calendar they were
// computed in; the store hands them back in UTC.
func GroupByPeriod(rows []models.Metric, loc *time.Location) []PeriodValues {
	if loc == nil {
		loc = time.UTC
	}
	byPeriod := make(map[int64]*PeriodValues)
	for _, row := range rows {
		key := row.Period.UnixNano()
		pv, ok := byPeriod[key]
		if !ok {
			pv = &PeriodValues{Period: row.Period.In(loc), Values: make(map[string]float64)}
			byPeriod[key] = pv
		}
		pv.Values[row.Name] = row.Value.InexactFloat64()
	}

	out := make([]PeriodValues, 0, len(byPeriod))
	for _, pv := range byPeriod {
		out = append(out, *pv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}

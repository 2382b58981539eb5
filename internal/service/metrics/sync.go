package metrics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

// SyncMetricsToDatabase writes each field of record as its own monthly Metric row,
// one at a time. A failed write is logged and skipped; if any write failed the rows
// that did persist are returned with a DATABASE_ERROR.
func (s *Service) SyncMetricsToDatabase(ctx context.Context, businessID string, period time.Time, record models.MetricsRecord) ([]models.Metric, error) {
	synced := make([]models.Metric, 0, len(models.MetricFields))
	failed := 0

	for _, field := range models.MetricFields {
		row := models.Metric{
			BusinessID: businessID,
			Name:       field.Name,
			PeriodType: models.PeriodTypeMonthly,
			Period:     period,
			Value:      field.Value(record),
			UpdatedAt:  s.now(),
		}

		saved, err := s.repo.UpsertMetric(ctx, row)
		s.collector.MetricWritten(err == nil)
		if err != nil {
			failed++
			s.logger.Error("failed to persist metric",
				zap.String("business_id", businessID),
				zap.String("metric", field.Name),
				zap.Time("period", period),
				zap.Error(err))
			continue
		}
		synced = append(synced, saved)
	}

	if failed > 0 {
		return synced, apperror.New(apperror.CodeDatabaseError,
			fmt.Sprintf("failed to persist %d of %d metrics", failed, len(models.MetricFields)))
	}
	return synced, nil
}

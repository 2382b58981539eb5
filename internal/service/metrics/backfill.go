package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

// BackfillResult summarizes a multi-month recomputation.
type BackfillResult struct {
	BusinessID string           `json:"businessId"`
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Months     []*MonthlyResult `json:"months"`
	SyncErrors int              `json:"syncErrors"`
}

// BackfillMonthlyMetrics recomputes every closed month from the month of dateFrom
// onwards, oldest first, so each month's opening stock reads the closing stock the
// previous iteration just persisted. A dateFrom before the business existed is
// clamped to its creation month. Sync failures are counted and skipped; any other
// failure stops the backfill and is returned with the months completed so far.
func (s *Service) BackfillMonthlyMetrics(ctx context.Context, business models.Business, dateFrom string) (*BackfillResult, error) {
	parsed, err := ParsePeriod(dateFrom, s.loc)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeBadRequest, err, "invalid dateFrom")
	}

	from := MonthStart(parsed, s.loc)
	if created := MonthStart(business.CreatedAt, s.loc); from.Before(created) {
		s.logger.Info("clamping backfill to business creation month",
			zap.String("business_id", business.ID),
			zap.Time("requested", from),
			zap.Time("created", created))
		from = created
	}

	last := PreviousMonthStart(MonthStart(s.now(), s.loc))
	if from.After(last) {
		return nil, apperror.New(apperror.CodeBadRequest, "no closed month to backfill")
	}

	result := &BackfillResult{BusinessID: business.ID, From: from, To: last}
	for period := from; !period.After(last); period = period.AddDate(0, 1, 0) {
		if err := ctx.Err(); err != nil {
			return result, apperror.Wrap(apperror.CodeFailedRequest, err, "backfill cancelled")
		}

		monthly, err := s.CalculateAndSyncMonthlyMetrics(ctx, business, period.Format(time.RFC3339))
		if monthly != nil {
			result.Months = append(result.Months, monthly)
		}
		if err != nil {
			if monthly != nil && apperror.HasCode(err, apperror.CodeDatabaseError) {
				result.SyncErrors++
				continue
			}
			return result, err
		}
	}

	return result, nil
}

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
	"github.com/mamadbah2/stockmetrics/internal/service/forecast"
	"github.com/mamadbah2/stockmetrics/internal/service/metrics"
)

const (
	defaultForecastMonths = 12
	maxForecastMonths     = 60
	maxForecastPeriods    = 24
)

// MonthlyMetricsService computes metrics for one business.
type MonthlyMetricsService interface {
	CalculateAndSyncMonthlyMetrics(ctx context.Context, business models.Business, dateFrom string) (*metrics.MonthlyResult, error)
	BackfillMonthlyMetrics(ctx context.Context, business models.Business, dateFrom string) (*metrics.BackfillResult, error)
}

// ForecastService projects persisted metrics.
type ForecastService interface {
	Forecast(ctx context.Context, businessID, metricName string, months, periods int) ([]forecast.ChartPoint, error)
}

// BatchRunner runs the monthly sync for every business.
type BatchRunner interface {
	ScheduleMonthlyMetricsSync(ctx context.Context) (*models.BatchSummary, error)
}

// BusinessGetter resolves the business a request targets.
type BusinessGetter interface {
	GetBusiness(ctx context.Context, id string) (models.Business, error)
}

// MetricsHandler exposes the metrics engine over HTTP.
type MetricsHandler struct {
	metrics    MonthlyMetricsService
	forecasts  ForecastService
	batch      BatchRunner
	businesses BusinessGetter
	logger     *zap.Logger
}

// NewMetricsHandler constructs the HTTP handler adapter.
func NewMetricsHandler(metricsSvc MonthlyMetricsService, forecasts ForecastService, batch BatchRunner, businesses BusinessGetter, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{metrics: metricsSvc, forecasts: forecasts, batch: batch, businesses: businesses, logger: logger}
}

type periodRequest struct {
	DateFrom string `json:"dateFrom" binding:"required"`
}

// RunBatch triggers the monthly sync for all businesses, as the cron caller does.
func (h *MetricsHandler) RunBatch(c *gin.Context) {
	summary, err := h.batch.ScheduleMonthlyMetricsSync(c.Request.Context())
	if err != nil {
		h.logger.Error("batch metrics sync failed", zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// SyncMonthly computes and persists one month for one business.
func (h *MetricsHandler) SyncMonthly(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperror.Wrap(apperror.CodeBadRequest, err, "invalid request body"))
		return
	}

	business, err := h.businesses.GetBusiness(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.metrics.CalculateAndSyncMonthlyMetrics(c.Request.Context(), business, req.DateFrom)
	if result == nil {
		h.writeError(c, err)
		return
	}

	body := gin.H{"result": result}
	if err != nil {
		h.logger.Warn("metrics computed but not fully persisted", zap.String("business_id", business.ID), zap.Error(err))
		body["error"] = errorBody(err)
	}
	c.JSON(http.StatusOK, body)
}

// Backfill recomputes every closed month from dateFrom for one business.
func (h *MetricsHandler) Backfill(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperror.Wrap(apperror.CodeBadRequest, err, "invalid request body"))
		return
	}

	business, err := h.businesses.GetBusiness(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.metrics.BackfillMonthlyMetrics(c.Request.Context(), business, req.DateFrom)
	if err != nil {
		if result == nil {
			h.writeError(c, err)
			return
		}
		c.JSON(statusFor(apperror.CodeOf(err)), gin.H{"result": result, "error": errorBody(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Forecast returns chart points for one metric of one business.
func (h *MetricsHandler) Forecast(c *gin.Context) {
	metric := c.Query("metric")
	if metric == "" {
		h.writeError(c, apperror.New(apperror.CodeBadRequest, "metric query parameter is required"))
		return
	}

	months, err := intQuery(c, "months", defaultForecastMonths, maxForecastMonths)
	if err != nil {
		h.writeError(c, err)
		return
	}
	periods, err := intQuery(c, "periods", forecast.DefaultPeriods, maxForecastPeriods)
	if err != nil {
		h.writeError(c, err)
		return
	}

	points, err := h.forecasts.Forecast(c.Request.Context(), c.Param("businessId"), metric, months, periods)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"metric": metric, "points": points})
}

func intQuery(c *gin.Context, key string, fallback, max int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > max {
		return 0, apperror.New(apperror.CodeBadRequest, key+" must be an integer between 1 and "+strconv.Itoa(max))
	}
	return n, nil
}

func (h *MetricsHandler) writeError(c *gin.Context, err error) {
	code := apperror.CodeOf(err)
	if code == apperror.CodeFailedRequest || code == apperror.CodeDatabaseError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(statusFor(code), gin.H{"error": errorBody(err)})
}

func errorBody(err error) gin.H {
	body := gin.H{"code": apperror.CodeOf(err), "message": err.Error()}
	if data := apperror.DataOf(err); data != nil {
		if created, ok := data.(time.Time); ok {
			body["data"] = gin.H{"createdAt": created}
		} else {
			body["data"] = data
		}
	}
	return body
}

func statusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeBadRequest:
		return http.StatusBadRequest
	case apperror.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeBeforeBusinessCreation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

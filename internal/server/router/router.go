package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. metricsHandler
// serves the Prometheus scrape endpoint and may be nil.
func New(handler *handlers.MetricsHandler, metricsHandler http.Handler, secret string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	internal := r.Group("/internal", requireBearer(secret))
	internal.POST("/cron/monthly-metrics", handler.RunBatch)

	api := r.Group("/api", requireBearer(secret))
	api.POST("/businesses/:businessId/metrics/monthly", handler.SyncMonthly)
	api.POST("/businesses/:businessId/metrics/backfill", handler.Backfill)
	api.GET("/businesses/:businessId/forecast", handler.Forecast)

	logger.Info("router initialized")

	return r
}

func requireBearer(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{
				"code":    apperror.CodeUnauthorized,
				"message": "missing or invalid bearer token",
			}})
			return
		}
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/stockmetrics/internal/config"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

const metricsRange = "Metrics!A:AA"

// rowAppender is the part of the Sheets API the exporter uses.
type rowAppender interface {
	AppendRow(ctx context.Context, sheetRange string, values []interface{}) error
}

// MetricsExporter appends every computed monthly record as one spreadsheet row.
type MetricsExporter struct {
	sheet  rowAppender
	now    func() time.Time
	logger *zap.Logger
}

// GoogleSheetRepository appends rows through the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) AppendRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// NewMetricsExporter wraps a sheet as a metrics exporter.
func NewMetricsExporter(sheet rowAppender, logger *zap.Logger) *MetricsExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsExporter{sheet: sheet, now: time.Now, logger: logger}
}

// ExportMetrics appends record for business and period.
func (e *MetricsExporter) ExportMetrics(ctx context.Context, business models.Business, period time.Time, record models.MetricsRecord) error {
	if err := e.sheet.AppendRow(ctx, metricsRange, metricsRow(business, period, record, e.now())); err != nil {
		return fmt.Errorf("export metrics for %s: %w", business.ID, err)
	}
	return nil
}

// MetricsHeader is the header row matching the exported columns.
func MetricsHeader() []interface{} {
	header := []interface{}{"businessId", "businessName", "period", "exportedAt"}
	for _, f := range models.MetricFields {
		header = append(header, f.Name)
	}
	return header
}

func metricsRow(business models.Business, period time.Time, record models.MetricsRecord, exportedAt time.Time) []interface{} {
	row := []interface{}{business.ID, business.Name, period.Format("2006-01"), exportedAt.UTC().Format(time.RFC3339)}
	for _, f := range models.MetricFields {
		row = append(row, f.Value(record).String())
	}
	return row
}

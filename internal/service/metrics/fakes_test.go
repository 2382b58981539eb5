package metrics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

type fakeRepo struct {
	mu       sync.Mutex
	txs      []models.PricedTransaction
	expenses []models.Expense
	items    []models.WarehouseItem
	metrics  map[string]models.Metric

	reads   atomic.Int32
	upserts atomic.Int32

	txErr      error
	expenseErr error
	itemErr    error
	getErr     error
	failUpsert map[string]bool
	panicOnTx  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{metrics: make(map[string]models.Metric), failUpsert: make(map[string]bool)}
}

func metricKey(businessID, name, periodType string, period time.Time) string {
	return businessID + "|" + name + "|" + periodType + "|" + period.UTC().Format(time.RFC3339)
}

func (f *fakeRepo) TransactionsInInterval(_ context.Context, businessID string, from, to time.Time) ([]models.PricedTransaction, error) {
	f.reads.Add(1)
	if f.panicOnTx {
		panic("decode transaction")
	}
	if f.txErr != nil {
		return nil, f.txErr
	}
	var out []models.PricedTransaction
	for _, tx := range f.txs {
		if tx.BusinessID == businessID && !tx.CreatedAt.Before(from) && !tx.CreatedAt.After(to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeRepo) ExpensesInInterval(_ context.Context, businessID string, from, to time.Time) ([]models.Expense, error) {
	f.reads.Add(1)
	if f.expenseErr != nil {
		return nil, f.expenseErr
	}
	var out []models.Expense
	for _, e := range f.expenses {
		if e.BusinessID == businessID && !e.CreatedAt.Before(from) && !e.CreatedAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) WarehouseItems(_ context.Context, _ string) ([]models.WarehouseItem, error) {
	f.reads.Add(1)
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	return f.items, nil
}

func (f *fakeRepo) GetMetric(_ context.Context, businessID, name, periodType string, period time.Time) (*models.Metric, error) {
	f.reads.Add(1)
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.metrics[metricKey(businessID, name, periodType, period)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeRepo) UpsertMetric(_ context.Context, m models.Metric) (models.Metric, error) {
	f.upserts.Add(1)
	if f.failUpsert[m.Name] {
		return models.Metric{}, errors.New("write refused")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics[metricKey(m.BusinessID, m.Name, m.PeriodType, m.Period)] = m
	return m, nil
}

func (f *fakeRepo) metric(businessID, name string, period time.Time) (models.Metric, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.metrics[metricKey(businessID, name, models.PeriodTypeMonthly, period)]
	return m, ok
}

type fakeExporter struct {
	calls int
	err   error
}

func (e *fakeExporter) ExportMetrics(context.Context, models.Business, time.Time, models.MetricsRecord) error {
	e.calls++
	return e.err
}

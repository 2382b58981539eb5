package mongodb

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/stockmetrics/internal/apperror"
	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

func TestTransactionDocument_ToModel(t *testing.T) {
	created := time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC)
	doc := transactionDocument{
		ID: "t1", BusinessID: "b1", Type: "SALE", Quantity: 3, ProductID: "p1", CreatedAt: created,
		Product: []productDocument{{ID: "p1", Price: "19.90", CostPrice: "11.25"}},
	}

	tx, err := doc.toModel()
	if err != nil {
		t.Fatalf("toModel: %v", err)
	}
	if tx.Type != models.TransactionSale || tx.Quantity != 3 || !tx.CreatedAt.Equal(created) {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.Product == nil || !tx.Product.Price.Equal(decimal.RequireFromString("19.9")) || !tx.Product.CostPrice.Equal(decimal.RequireFromString("11.25")) {
		t.Fatalf("unexpected product %+v", tx.Product)
	}
}

func TestTransactionDocument_DanglingProduct(t *testing.T) {
	tx, err := transactionDocument{ID: "t1", Type: "PURCHASE", Quantity: 1, ProductID: "gone"}.toModel()
	if err != nil {
		t.Fatalf("toModel: %v", err)
	}
	if tx.Product != nil {
		t.Fatalf("expected nil product, got %+v", tx.Product)
	}
}

func TestDocuments_RejectMalformedDecimals(t *testing.T) {
	if _, err := (transactionDocument{Product: []productDocument{{ID: "p", Price: "abc", CostPrice: "1"}}}).toModel(); err == nil {
		t.Fatal("expected price error")
	}
	if _, err := (warehouseItemDocument{Product: []productDocument{{ID: "p", Price: "1", CostPrice: ""}}}).toModel(); err == nil {
		t.Fatal("expected cost price error")
	}
	if _, err := (expenseDocument{ID: "e", Amount: "12,50"}).toModel(); err == nil {
		t.Fatal("expected amount error")
	}
	if _, err := (metricDocument{Name: "netIncome", Value: "NaN"}).toModel(); err == nil {
		t.Fatal("expected metric value error")
	}
}

func TestMetricDocument_RoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+2", 7200)
	m := models.Metric{
		BusinessID: "b1",
		Name:       models.MetricGrossMargin,
		PeriodType: models.PeriodTypeMonthly,
		Period:     time.Date(2026, 9, 1, 0, 0, 0, 0, loc),
		Value:      decimal.RequireFromString("-12.3456789"),
		UpdatedAt:  time.Date(2026, 10, 2, 3, 4, 5, 0, time.UTC),
	}

	doc := newMetricDocument(m)
	if doc.Value != "-12.3456789" {
		t.Fatalf("expected decimal string, got %q", doc.Value)
	}
	if doc.Period.Location() != time.UTC || !doc.Period.Equal(m.Period) {
		t.Fatalf("period must be stored as the same instant in UTC, got %s", doc.Period)
	}

	back, err := doc.toModel()
	if err != nil {
		t.Fatalf("toModel: %v", err)
	}
	if !back.Value.Equal(m.Value) || !back.Period.Equal(m.Period) || back.Name != m.Name {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, m)
	}
}

func TestMetricFilter(t *testing.T) {
	period := time.Date(2026, 9, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	filter := metricFilter("b1", "closingStock", "monthly", period)

	want := []string{"businessId", "name", "periodType", "period"}
	if len(filter) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(filter))
	}
	for i, key := range want {
		if filter[i].Key != key {
			t.Fatalf("key %d: expected %s, got %s", i, key, filter[i].Key)
		}
	}
	if got := filter[3].Value.(time.Time); got.Location() != time.UTC || !got.Equal(period) {
		t.Fatalf("unexpected period value %v", got)
	}

	idx := metricIndexKeys()
	for i, key := range want {
		if idx[i].Key != key || idx[i].Value != 1 {
			t.Fatalf("index key %d: unexpected %v", i, idx[i])
		}
	}
}

func TestIntervalFilter(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	filter := intervalFilter("b1", from, to)
	bounds, ok := filter[1].Value.(bson.D)
	if !ok || filter[1].Key != "createdAt" {
		t.Fatalf("unexpected filter %v", filter)
	}
	if bounds[0].Key != "$gte" || bounds[1].Key != "$lte" {
		t.Fatalf("interval must be inclusive on both ends: %v", bounds)
	}
}

func TestDBError_KeepsExistingCode(t *testing.T) {
	err := dbError(errors.New("connection refused"), "find expenses")
	if !apperror.HasCode(err, apperror.CodeDatabaseError) {
		t.Fatalf("expected DATABASE_ERROR, got %v", err)
	}

	nf := apperror.New(apperror.CodeNotFound, "missing")
	if !apperror.HasCode(dbError(nf, "get"), apperror.CodeNotFound) {
		t.Fatal("coded errors must pass through untranslated")
	}
}

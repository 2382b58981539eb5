package formulas

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func priced(t models.TransactionType, qty int64, price, cost string) models.PricedTransaction {
	return models.PricedTransaction{
		Transaction: models.Transaction{Type: t, Quantity: qty, ProductID: "p1", CreatedAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)},
		Product:     &models.Product{ID: "p1", Price: dec(price), CostPrice: dec(cost)},
	}
}

func assertDec(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", field, want, got.String())
	}
}

func TestCalculateAllMetrics_EndToEndExample(t *testing.T) {
	txs := []models.PricedTransaction{priced(models.TransactionSale, 5, "20", "12")}
	expenses := []models.Expense{{Amount: dec("50")}}

	r := CalculateAllMetrics(txs, expenses, dec("100"), dec("40"))

	assertDec(t, "grossRevenue", r.GrossRevenue, "100")
	assertDec(t, "netRevenue", r.NetRevenue, "100")
	assertDec(t, "costOfGoodsSold", r.CostOfGoodsSold, "60")
	assertDec(t, "grossProfit", r.GrossProfit, "40")
	assertDec(t, "operatingExpenses", r.OperatingExpenses, "50")
	assertDec(t, "operatingIncome", r.OperatingIncome, "-10")
	assertDec(t, "netIncome", r.NetIncome, "-10")
	assertDec(t, "netMargin", r.NetMargin, "-10")
	assertDec(t, "operatingMargin", r.OperatingMargin, "-10")
	assertDec(t, "grossMargin", r.GrossMargin, "40")
	assertDec(t, "averageInventory", r.AverageInventory, "70")
	assertDec(t, "averageOrderValue", r.AverageOrderValue, "100")
	if r.TransactionCount != 1 {
		t.Fatalf("transactionCount: expected 1, got %d", r.TransactionCount)
	}
}

func TestCalculateAllMetrics_ReturnsAndPurchases(t *testing.T) {
	txs := []models.PricedTransaction{
		priced(models.TransactionSale, 10, "15", "9"),
		priced(models.TransactionSale, 2, "15", "9"),
		priced(models.TransactionReturnSale, 1, "15", "9"),
		priced(models.TransactionPurchase, 20, "15", "9"),
		priced(models.TransactionReturnPurchase, 3, "15", "9"),
		priced(models.TransactionDamage, 4, "15", "9"),
		priced(models.TransactionTransferIn, 7, "15", "9"),
	}

	r := CalculateAllMetrics(txs, nil, dec("0"), dec("45"))

	assertDec(t, "grossRevenue", r.GrossRevenue, "180")
	assertDec(t, "salesReturnsValue", r.SalesReturnsValue, "15")
	assertDec(t, "returns", r.Returns, "15")
	assertDec(t, "netRevenue", r.NetRevenue, "165")
	assertDec(t, "grossPurchases", r.GrossPurchases, "180")
	assertDec(t, "purchaseReturnsValue", r.PurchaseReturnsValue, "27")
	assertDec(t, "netPurchases", r.NetPurchases, "153")
	assertDec(t, "purchases", r.Purchases, "153")
	assertDec(t, "costOfGoodsSold", r.CostOfGoodsSold, "108")
	assertDec(t, "averageOrderValue", r.AverageOrderValue, "90")
	if r.TransactionCount != 2 {
		t.Fatalf("transactionCount: expected 2, got %d", r.TransactionCount)
	}
}

func TestCalculateAllMetrics_CostOfGoodsSoldIdentity(t *testing.T) {
	cases := []struct {
		name             string
		opening, closing string
		txs              []models.PricedTransaction
	}{
		{"no movement", "0", "0", nil},
		{"purchases only", "10", "5", []models.PricedTransaction{priced(models.TransactionPurchase, 3, "8", "2.5")}},
		{"mixed", "250.75", "99.10", []models.PricedTransaction{
			priced(models.TransactionPurchase, 11, "4", "1.33"),
			priced(models.TransactionSale, 6, "4", "1.33"),
			priced(models.TransactionPurchase, 1, "9.99", "7.01"),
		}},
	}

	for _, tc := range cases {
		r := CalculateAllMetrics(tc.txs, nil, dec(tc.opening), dec(tc.closing))
		want := dec(tc.opening).Add(r.Purchases).Sub(dec(tc.closing))
		if !r.CostOfGoodsSold.Equal(want) {
			t.Fatalf("%s: expected cogs %s, got %s", tc.name, want, r.CostOfGoodsSold)
		}
		avg := dec(tc.opening).Add(dec(tc.closing)).Div(decimal.NewFromInt(2))
		if !r.AverageInventory.Equal(avg) {
			t.Fatalf("%s: expected average inventory %s, got %s", tc.name, avg, r.AverageInventory)
		}
	}
}

func TestCalculateAllMetrics_ZeroDenominators(t *testing.T) {
	txs := []models.PricedTransaction{
		priced(models.TransactionPurchase, 4, "10", "5"),
		priced(models.TransactionSale, 1, "10", "5"),
		priced(models.TransactionReturnSale, 1, "10", "5"),
	}
	expenses := []models.Expense{{Amount: dec("12.5")}}

	r := CalculateAllMetrics(txs, expenses, decimal.Zero, decimal.Zero)

	assertDec(t, "netRevenue", r.NetRevenue, "0")
	assertDec(t, "grossMargin", r.GrossMargin, "0")
	assertDec(t, "netMargin", r.NetMargin, "0")
	assertDec(t, "operatingMargin", r.OperatingMargin, "0")
	assertDec(t, "averageInventory", r.AverageInventory, "0")
	assertDec(t, "inventoryTurnover", r.InventoryTurnover, "0")
	assertDec(t, "daysOnHand", r.DaysOnHand, "0")

	empty := CalculateAllMetrics(nil, nil, decimal.Zero, decimal.Zero)
	assertDec(t, "averageOrderValue", empty.AverageOrderValue, "0")
	if empty.TransactionCount != 0 {
		t.Fatalf("transactionCount: expected 0, got %d", empty.TransactionCount)
	}
}

func TestCalculateAllMetrics_TurnoverAndDaysOnHand(t *testing.T) {
	txs := []models.PricedTransaction{priced(models.TransactionPurchase, 10, "20", "10")}

	// cogs = 50 + 100 - 50 = 100, average inventory = 50
	r := CalculateAllMetrics(txs, nil, dec("50"), dec("50"))

	assertDec(t, "inventoryTurnover", r.InventoryTurnover, "2")
	assertDec(t, "daysOnHand", r.DaysOnHand, "182.5")
}

func TestCalculateAllMetrics_NegativeTurnoverHasNoDaysOnHand(t *testing.T) {
	r := CalculateAllMetrics(nil, nil, dec("10"), dec("30"))

	assertDec(t, "costOfGoodsSold", r.CostOfGoodsSold, "-20")
	assertDec(t, "inventoryTurnover", r.InventoryTurnover, "-1")
	assertDec(t, "daysOnHand", r.DaysOnHand, "0")
}

func TestCalculateAllMetrics_IgnoresUnresolvedProducts(t *testing.T) {
	orphan := models.PricedTransaction{Transaction: models.Transaction{Type: models.TransactionSale, Quantity: 3}}
	txs := []models.PricedTransaction{orphan, priced(models.TransactionSale, 1, "7", "3")}

	r := CalculateAllMetrics(txs, nil, decimal.Zero, decimal.Zero)

	assertDec(t, "grossRevenue", r.GrossRevenue, "7")
	if r.TransactionCount != 1 {
		t.Fatalf("transactionCount: expected 1, got %d", r.TransactionCount)
	}
}

func TestCalculateAllMetrics_Deterministic(t *testing.T) {
	txs := []models.PricedTransaction{
		priced(models.TransactionSale, 3, "19.99", "11.10"),
		priced(models.TransactionPurchase, 8, "19.99", "11.10"),
	}
	expenses := []models.Expense{{Amount: dec("13.37")}, {Amount: dec("0.63")}}

	first := CalculateAllMetrics(txs, expenses, dec("120"), dec("77.7"))
	second := CalculateAllMetrics(txs, expenses, dec("120"), dec("77.7"))

	for _, f := range models.MetricFields {
		if f.Value(first).String() != f.Value(second).String() {
			t.Fatalf("%s differs between runs: %s vs %s", f.Name, f.Value(first), f.Value(second))
		}
	}
}

func TestClosingStockValue(t *testing.T) {
	items := []models.WarehouseItem{
		{ProductID: "a", WarehouseID: "w1", Quantity: 4, Product: &models.Product{ID: "a", CostPrice: dec("2.5")}},
		{ProductID: "a", WarehouseID: "w2", Quantity: 2, Product: &models.Product{ID: "a", CostPrice: dec("2.5")}},
		{ProductID: "b", WarehouseID: "w1", Quantity: 0, Product: &models.Product{ID: "b", CostPrice: dec("100")}},
		{ProductID: "c", WarehouseID: "w1", Quantity: 9},
	}

	assertDec(t, "closingStock", ClosingStockValue(items), "15")
	assertDec(t, "empty", ClosingStockValue(nil), "0")
}

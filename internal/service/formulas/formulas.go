// Package formulas converts raw transactions, expenses and stock valuations into
// the monthly accounting metrics record. Every function here is pure.
package formulas

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

var (
	hundred    = decimal.NewFromInt(100)
	two        = decimal.NewFromInt(2)
	daysInYear = decimal.NewFromInt(365)
)

// FilterByType keeps the priced transactions of the given type that resolved a product.
func FilterByType(txs []models.PricedTransaction, t models.TransactionType) []models.PricedTransaction {
	out := make([]models.PricedTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == t && tx.Product != nil {
			out = append(out, tx)
		}
	}
	return out
}

// SumAtCost values transactions at the product cost price.
func SumAtCost(txs []models.PricedTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Product == nil {
			continue
		}
		total = total.Add(decimal.NewFromInt(tx.Quantity).Mul(tx.Product.CostPrice))
	}
	return total
}

// SumAtSalePrice values transactions at the product sale price.
func SumAtSalePrice(txs []models.PricedTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Product == nil {
			continue
		}
		total = total.Add(decimal.NewFromInt(tx.Quantity).Mul(tx.Product.Price))
	}
	return total
}

// SumExpenses totals expense amounts.
func SumExpenses(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// CalculateAllMetrics derives the full metrics record for one period. Ratios whose
// denominator is not positive are reported as zero.
func CalculateAllMetrics(txs []models.PricedTransaction, expenses []models.Expense, openingStock, closingStock decimal.Decimal) models.MetricsRecord {
	sales := FilterByType(txs, models.TransactionSale)

	grossRevenue := SumAtSalePrice(sales)
	salesReturns := SumAtSalePrice(FilterByType(txs, models.TransactionReturnSale))
	netRevenue := grossRevenue.Sub(salesReturns)

	grossPurchases := SumAtCost(FilterByType(txs, models.TransactionPurchase))
	purchaseReturns := SumAtCost(FilterByType(txs, models.TransactionReturnPurchase))
	netPurchases := grossPurchases.Sub(purchaseReturns)

	cogs := openingStock.Add(netPurchases).Sub(closingStock)
	grossProfit := netRevenue.Sub(cogs)
	opex := SumExpenses(expenses)
	operatingIncome := grossProfit.Sub(opex)
	netIncome := operatingIncome

	averageInventory := openingStock.Add(closingStock).Div(two)
	turnover := safeDiv(cogs, averageInventory)
	count := int64(len(sales))

	return models.MetricsRecord{
		GrossRevenue:         grossRevenue,
		SalesReturnsValue:    salesReturns,
		Returns:              salesReturns,
		NetRevenue:           netRevenue,
		GrossPurchases:       grossPurchases,
		PurchaseReturnsValue: purchaseReturns,
		NetPurchases:         netPurchases,
		Purchases:            netPurchases,
		OpeningStock:         openingStock,
		ClosingStock:         closingStock,
		CostOfGoodsSold:      cogs,
		GrossProfit:          grossProfit,
		OperatingExpenses:    opex,
		OperatingIncome:      operatingIncome,
		NetIncome:            netIncome,
		GrossMargin:          percentOf(grossProfit, netRevenue),
		NetMargin:            percentOf(netIncome, netRevenue),
		OperatingMargin:      percentOf(operatingIncome, netRevenue),
		AverageInventory:     averageInventory,
		InventoryTurnover:    turnover,
		DaysOnHand:           safeDiv(daysInYear, turnover),
		TransactionCount:     count,
		AverageOrderValue:    safeDiv(grossRevenue, decimal.NewFromInt(count)),
	}
}

func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den)
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

package formulas

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

// ClosingStockValue values the given warehouse snapshot at cost. Items without a
// resolved product contribute nothing.
//
// The snapshot is whatever the warehouses hold when this is called; it is not a
// valuation as of any past date.
func ClosingStockValue(items []models.WarehouseItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		total = total.Add(decimal.NewFromInt(item.Quantity).Mul(item.Product.CostPrice))
	}
	return total
}

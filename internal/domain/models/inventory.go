package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the inventory movement categories recorded for a business.
type TransactionType string

const (
	TransactionPurchase         TransactionType = "PURCHASE"
	TransactionSale             TransactionType = "SALE"
	TransactionDamage           TransactionType = "DAMAGE"
	TransactionStockAdjustment  TransactionType = "STOCK_ADJUSTMENT"
	TransactionTransferIn       TransactionType = "TRANSFER_IN"
	TransactionTransferOut      TransactionType = "TRANSFER_OUT"
	TransactionReturnSale       TransactionType = "RETURN_SALE"
	TransactionReturnPurchase   TransactionType = "RETURN_PURCHASE"
	TransactionProductionInput  TransactionType = "PRODUCTION_INPUT"
	TransactionProductionOutput TransactionType = "PRODUCTION_OUTPUT"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionSale, TransactionDamage, TransactionStockAdjustment,
		TransactionTransferIn, TransactionTransferOut, TransactionReturnSale, TransactionReturnPurchase,
		TransactionProductionInput, TransactionProductionOutput:
		return true
	}
	return false
}

// Product carries the pricing used when valuing transactions and stock.
type Product struct {
	ID        string          `json:"id"`
	Price     decimal.Decimal `json:"price"`
	CostPrice decimal.Decimal `json:"costPrice"`
}

// Transaction is an immutable inventory movement. Quantity is signed and never zero.
type Transaction struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"businessId"`
	Type       TransactionType `json:"type"`
	Quantity   int64           `json:"quantity"`
	ProductID  string          `json:"productId"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// PricedTransaction is a transaction joined with its product. Product is nil when the
// reference could not be resolved.
type PricedTransaction struct {
	Transaction
	Product *Product `json:"product,omitempty"`
}

// Expense is an operating expense booked by a business.
type Expense struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"businessId"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// WarehouseItem is the live stock level of one product in one warehouse.
type WarehouseItem struct {
	ProductID   string   `json:"productId"`
	WarehouseID string   `json:"warehouseId"`
	Quantity    int64    `json:"quantity"`
	Product     *Product `json:"product,omitempty"`
}

// Business is the tenant owning every record above.
type Business struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

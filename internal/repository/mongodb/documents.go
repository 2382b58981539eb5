package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/stockmetrics/internal/domain/models"
)

const (
	businessesCollection     = "businesses"
	productsCollection       = "products"
	transactionsCollection   = "transactions"
	expensesCollection       = "expenses"
	warehouseItemsCollection = "warehouse_items"
	metricsCollection        = "metrics"
)

type businessDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"createdAt"`
}

type productDocument struct {
	ID         string `bson:"_id"`
	BusinessID string `bson:"businessId"`
	Price      string `bson:"price"`
	CostPrice  string `bson:"costPrice"`
}

// transactionDocument is a transaction with its product joined by $lookup.
type transactionDocument struct {
	ID         string            `bson:"_id"`
	BusinessID string            `bson:"businessId"`
	Type       string            `bson:"type"`
	Quantity   int64             `bson:"quantity"`
	ProductID  string            `bson:"productId"`
	CreatedAt  time.Time         `bson:"createdAt"`
	Product    []productDocument `bson:"product,omitempty"`
}

type expenseDocument struct {
	ID         string    `bson:"_id"`
	BusinessID string    `bson:"businessId"`
	Amount     string    `bson:"amount"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type warehouseItemDocument struct {
	BusinessID  string            `bson:"businessId"`
	ProductID   string            `bson:"productId"`
	WarehouseID string            `bson:"warehouseId"`
	Quantity    int64             `bson:"quantity"`
	Product     []productDocument `bson:"product,omitempty"`
}

type metricDocument struct {
	BusinessID string    `bson:"businessId"`
	Name       string    `bson:"name"`
	PeriodType string    `bson:"periodType"`
	Period     time.Time `bson:"period"`
	Value      string    `bson:"value"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func (d businessDocument) toModel() models.Business {
	return models.Business{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt}
}

func (d productDocument) toModel() (*models.Product, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s price %q: %w", d.ID, d.Price, err)
	}
	cost, err := decimal.NewFromString(d.CostPrice)
	if err != nil {
		return nil, fmt.Errorf("product %s costPrice %q: %w", d.ID, d.CostPrice, err)
	}
	return &models.Product{ID: d.ID, Price: price, CostPrice: cost}, nil
}

// joinedProduct returns the first joined product, or nil when the reference dangled.
func joinedProduct(docs []productDocument) (*models.Product, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0].toModel()
}

func (d transactionDocument) toModel() (models.PricedTransaction, error) {
	product, err := joinedProduct(d.Product)
	if err != nil {
		return models.PricedTransaction{}, err
	}
	return models.PricedTransaction{
		Transaction: models.Transaction{
			ID:         d.ID,
			BusinessID: d.BusinessID,
			Type:       models.TransactionType(d.Type),
			Quantity:   d.Quantity,
			ProductID:  d.ProductID,
			CreatedAt:  d.CreatedAt,
		},
		Product: product,
	}, nil
}

func (d expenseDocument) toModel() (models.Expense, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return models.Expense{}, fmt.Errorf("expense %s amount %q: %w", d.ID, d.Amount, err)
	}
	return models.Expense{ID: d.ID, BusinessID: d.BusinessID, Amount: amount, CreatedAt: d.CreatedAt}, nil
}

func (d warehouseItemDocument) toModel() (models.WarehouseItem, error) {
	product, err := joinedProduct(d.Product)
	if err != nil {
		return models.WarehouseItem{}, err
	}
	return models.WarehouseItem{ProductID: d.ProductID, WarehouseID: d.WarehouseID, Quantity: d.Quantity, Product: product}, nil
}

func newMetricDocument(m models.Metric) metricDocument {
	return metricDocument{
		BusinessID: m.BusinessID,
		Name:       m.Name,
		PeriodType: m.PeriodType,
		Period:     m.Period.UTC(),
		Value:      m.Value.String(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

func (d metricDocument) toModel() (models.Metric, error) {
	value, err := decimal.NewFromString(d.Value)
	if err != nil {
		return models.Metric{}, fmt.Errorf("metric %s value %q: %w", d.Name, d.Value, err)
	}
	return models.Metric{
		BusinessID: d.BusinessID,
		Name:       d.Name,
		PeriodType: d.PeriodType,
		Period:     d.Period,
		Value:      value,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

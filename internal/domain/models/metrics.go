package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodTypeMonthly is the only period granularity currently computed.
const PeriodTypeMonthly = "monthly"

// Metric is one persisted metric value, unique per (BusinessID, Name, PeriodType, Period).
type Metric struct {
	BusinessID string          `json:"businessId"`
	Name       string          `json:"name"`
	PeriodType string          `json:"periodType"`
	Period     time.Time       `json:"period"`
	Value      decimal.Decimal `json:"value"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// MetricsRecord is the full set of accounting metrics computed for one period.
type MetricsRecord struct {
	GrossRevenue         decimal.Decimal `json:"grossRevenue"`
	SalesReturnsValue    decimal.Decimal `json:"salesReturnsValue"`
	Returns              decimal.Decimal `json:"returns"`
	NetRevenue           decimal.Decimal `json:"netRevenue"`
	GrossPurchases       decimal.Decimal `json:"grossPurchases"`
	PurchaseReturnsValue decimal.Decimal `json:"purchaseReturnsValue"`
	NetPurchases         decimal.Decimal `json:"netPurchases"`
	Purchases            decimal.Decimal `json:"purchases"`
	OpeningStock         decimal.Decimal `json:"openingStock"`
	ClosingStock         decimal.Decimal `json:"closingStock"`
	CostOfGoodsSold      decimal.Decimal `json:"costOfGoodsSold"`
	GrossProfit          decimal.Decimal `json:"grossProfit"`
	OperatingExpenses    decimal.Decimal `json:"operatingExpenses"`
	OperatingIncome      decimal.Decimal `json:"operatingIncome"`
	NetIncome            decimal.Decimal `json:"netIncome"`
	GrossMargin          decimal.Decimal `json:"grossMargin"`
	NetMargin            decimal.Decimal `json:"netMargin"`
	OperatingMargin      decimal.Decimal `json:"operatingMargin"`
	AverageInventory     decimal.Decimal `json:"averageInventory"`
	InventoryTurnover    decimal.Decimal `json:"inventoryTurnover"`
	DaysOnHand           decimal.Decimal `json:"daysOnHand"`
	TransactionCount     int64           `json:"transactionCount"`
	AverageOrderValue    decimal.Decimal `json:"averageOrderValue"`
}

// Metric names as persisted.
const (
	MetricGrossRevenue         = "grossRevenue"
	MetricSalesReturnsValue    = "salesReturnsValue"
	MetricReturns              = "returns"
	MetricNetRevenue           = "netRevenue"
	MetricGrossPurchases       = "grossPurchases"
	MetricPurchaseReturnsValue = "purchaseReturnsValue"
	MetricNetPurchases         = "netPurchases"
	MetricPurchases            = "purchases"
	MetricOpeningStock         = "openingStock"
	MetricClosingStock         = "closingStock"
	MetricCostOfGoodsSold      = "costOfGoodsSold"
	MetricGrossProfit          = "grossProfit"
	MetricOperatingExpenses    = "operatingExpenses"
	MetricOperatingIncome      = "operatingIncome"
	MetricNetIncome            = "netIncome"
	MetricGrossMargin          = "grossMargin"
	MetricNetMargin            = "netMargin"
	MetricOperatingMargin      = "operatingMargin"
	MetricAverageInventory     = "averageInventory"
	MetricInventoryTurnover    = "inventoryTurnover"
	MetricDaysOnHand           = "daysOnHand"
	MetricTransactionCount     = "transactionCount"
	MetricAverageOrderValue    = "averageOrderValue"
)

// MetricField pairs a metric name with the accessor reading it from a record.
type MetricField struct {
	Name  string
	Value func(MetricsRecord) decimal.Decimal
}

// MetricFields lists every field of MetricsRecord in persistence order.
var MetricFields = []MetricField{
	{MetricGrossRevenue, func(r MetricsRecord) decimal.Decimal { return r.GrossRevenue }},
	{MetricSalesReturnsValue, func(r MetricsRecord) decimal.Decimal { return r.SalesReturnsValue }},
	{MetricReturns, func(r MetricsRecord) decimal.Decimal { return r.Returns }},
	{MetricNetRevenue, func(r MetricsRecord) decimal.Decimal { return r.NetRevenue }},
	{MetricGrossPurchases, func(r MetricsRecord) decimal.Decimal { return r.GrossPurchases }},
	{MetricPurchaseReturnsValue, func(r MetricsRecord) decimal.Decimal { return r.PurchaseReturnsValue }},
	{MetricNetPurchases, func(r MetricsRecord) decimal.Decimal { return r.NetPurchases }},
	{MetricPurchases, func(r MetricsRecord) decimal.Decimal { return r.Purchases }},
	{MetricOpeningStock, func(r MetricsRecord) decimal.Decimal { return r.OpeningStock }},
	{MetricClosingStock, func(r MetricsRecord) decimal.Decimal { return r.ClosingStock }},
	{MetricCostOfGoodsSold, func(r MetricsRecord) decimal.Decimal { return r.CostOfGoodsSold }},
	{MetricGrossProfit, func(r MetricsRecord) decimal.Decimal { return r.GrossProfit }},
	{MetricOperatingExpenses, func(r MetricsRecord) decimal.Decimal { return r.OperatingExpenses }},
	{MetricOperatingIncome, func(r MetricsRecord) decimal.Decimal { return r.OperatingIncome }},
	{MetricNetIncome, func(r MetricsRecord) decimal.Decimal { return r.NetIncome }},
	{MetricGrossMargin, func(r MetricsRecord) decimal.Decimal { return r.GrossMargin }},
	{MetricNetMargin, func(r MetricsRecord) decimal.Decimal { return r.NetMargin }},
	{MetricOperatingMargin, func(r MetricsRecord) decimal.Decimal { return r.OperatingMargin }},
	{MetricAverageInventory, func(r MetricsRecord) decimal.Decimal { return r.AverageInventory }},
	{MetricInventoryTurnover, func(r MetricsRecord) decimal.Decimal { return r.InventoryTurnover }},
	{MetricDaysOnHand, func(r MetricsRecord) decimal.Decimal { return r.DaysOnHand }},
	{MetricTransactionCount, func(r MetricsRecord) decimal.Decimal { return decimal.NewFromInt(r.TransactionCount) }},
	{MetricAverageOrderValue, func(r MetricsRecord) decimal.Decimal { return r.AverageOrderValue }},
}

// IsKnownMetric reports whether name is one of the persisted metric names.
func IsKnownMetric(name string) bool {
	for _, f := range MetricFields {
		if f.Name == name {
			return true
		}
	}
	return false
}

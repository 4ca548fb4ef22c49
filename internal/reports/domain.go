// Package reports serves read-only aggregations over the ledger. Reports
// never mutate stock; they are cached briefly and deduplicated under load.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesLine is one sale in the sales report.
type SalesLine struct {
	EntryID      int64           `json:"entry_id"`
	Number       string          `json:"number"`
	Date         time.Time       `json:"date"`
	ItemName     string          `json:"item_name"`
	ItemSKU      string          `json:"item_sku"`
	CustomerName string          `json:"customer_name,omitempty"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
	Discount     decimal.Decimal `json:"discount"`
}

// SalesReport summarises sales over a period.
type SalesReport struct {
	From          time.Time       `json:"from,omitempty"`
	To            time.Time       `json:"to,omitempty"`
	Lines         []SalesLine     `json:"lines"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

// PurchaseLine is one purchase in the purchases report.
type PurchaseLine struct {
	EntryID      int64           `json:"entry_id"`
	Number       string          `json:"number"`
	Date         time.Time       `json:"date"`
	ItemName     string          `json:"item_name"`
	ItemSKU      string          `json:"item_sku"`
	SupplierName string          `json:"supplier_name,omitempty"`
	Quantity     int64           `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
}

// PurchasesReport summarises purchases over a period.
type PurchasesReport struct {
	From      time.Time       `json:"from,omitempty"`
	To        time.Time       `json:"to,omitempty"`
	Lines     []PurchaseLine  `json:"lines"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// StockLine is one item in the stock report.
type StockLine struct {
	ItemID       int64  `json:"item_id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Unit         string `json:"unit"`
	Category     string `json:"category,omitempty"`
	CurrentStock int64  `json:"current_stock"`
	ReorderPoint *int64 `json:"reorder_point,omitempty"`
	LowStock     bool   `json:"low_stock"`
}

// StockReport is a point-in-time snapshot of every item's stock level.
type StockReport struct {
	GeneratedAt  time.Time   `json:"generated_at"`
	Lines        []StockLine `json:"lines"`
	LowStockOnly bool        `json:"low_stock_only"`
}

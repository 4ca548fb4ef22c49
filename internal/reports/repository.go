package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the report queries. All queries are read-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func dateBounds(query string, args []any, column string, from, to time.Time) (string, []any) {
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(` AND %s >= $%d`, column, len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(` AND %s <= $%d`, column, len(args))
	}
	return query, args
}

// SalesLines returns each sale in the range with its discount against the
// item's selling price at query time.
func (r *Repository) SalesLines(ctx context.Context, from, to time.Time) ([]SalesLine, error) {
	query := `SELECT e.id, e.number, e.entry_date, i.name, i.sku, COALESCE(c.name, ''),
e.quantity, COALESCE(e.unit_value, 0),
COALESCE(e.unit_value, 0) * e.quantity,
GREATEST(COALESCE(i.selling_price - e.unit_value, 0) * e.quantity, 0)
FROM ledger_entries e
JOIN items i ON i.id = e.item_id
LEFT JOIN customers c ON c.id = e.counterparty_id
WHERE e.kind = 'SALE'`
	args := []any{}
	query, args = dateBounds(query, args, "e.entry_date", from, to)
	query += ` ORDER BY e.entry_date DESC, e.id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []SalesLine{}
	for rows.Next() {
		var l SalesLine
		if err := rows.Scan(&l.EntryID, &l.Number, &l.Date, &l.ItemName, &l.ItemSKU, &l.CustomerName,
			&l.Quantity, &l.UnitPrice, &l.Total, &l.Discount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// PurchaseLines returns each purchase in the range.
func (r *Repository) PurchaseLines(ctx context.Context, from, to time.Time) ([]PurchaseLine, error) {
	query := `SELECT e.id, e.number, e.entry_date, i.name, i.sku, COALESCE(s.name, ''),
e.quantity, COALESCE(e.unit_value, 0), COALESCE(e.unit_value, 0) * e.quantity
FROM ledger_entries e
JOIN items i ON i.id = e.item_id
LEFT JOIN suppliers s ON s.id = e.counterparty_id
WHERE e.kind = 'PURCHASE'`
	args := []any{}
	query, args = dateBounds(query, args, "e.entry_date", from, to)
	query += ` ORDER BY e.entry_date DESC, e.id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []PurchaseLine{}
	for rows.Next() {
		var l PurchaseLine
		if err := rows.Scan(&l.EntryID, &l.Number, &l.Date, &l.ItemName, &l.ItemSKU, &l.SupplierName,
			&l.Quantity, &l.UnitCost, &l.TotalCost); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// StockLines returns every item with its current level and low-stock flag.
func (r *Repository) StockLines(ctx context.Context, lowOnly bool) ([]StockLine, error) {
	query := `SELECT i.id, i.name, i.sku, u.name, COALESCE(cat.name, ''),
i.current_stock, i.reorder_point,
(i.reorder_point IS NOT NULL AND i.current_stock <= i.reorder_point)
FROM items i
JOIN units u ON u.id = i.unit_id
LEFT JOIN categories cat ON cat.id = i.category_id`
	if lowOnly {
		query += ` WHERE i.reorder_point IS NOT NULL AND i.current_stock <= i.reorder_point`
	}
	query += ` ORDER BY i.name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []StockLine{}
	for rows.Next() {
		var l StockLine
		if err := rows.Scan(&l.ItemID, &l.Name, &l.SKU, &l.Unit, &l.Category,
			&l.CurrentStock, &l.ReorderPoint, &l.LowStock); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func sumSales(lines []SalesLine) (revenue, discount decimal.Decimal) {
	for _, l := range lines {
		revenue = revenue.Add(l.Total)
		discount = discount.Add(l.Discount)
	}
	return revenue, discount
}

func sumPurchases(lines []PurchaseLine) decimal.Decimal {
	var total decimal.Decimal
	for _, l := range lines {
		total = total.Add(l.TotalCost)
	}
	return total
}

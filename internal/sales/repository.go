package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockflow-hq/stockflow/internal/inventory"
	"github.com/stockflow-hq/stockflow/internal/shared"
)

// Repository persists customers and reads the sales side of the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCustomer loads one customer.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), created_at FROM customers WHERE id=$1`,
		id).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// ListCustomers returns customers, optionally filtered by name search.
func (r *Repository) ListCustomers(ctx context.Context, search string, limit int) ([]Customer, error) {
	query := `SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), created_at FROM customers`
	args := []any{}
	if search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		query += ` WHERE LOWER(name) LIKE $1`
	}
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d`, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	customers := []Customer{}
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// CreateCustomer inserts a new customer.
func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, address) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Name, c.Email, c.Phone, c.Address).Scan(&id)
	return id, err
}

// UpdateCustomer updates a customer.
func (r *Repository) UpdateCustomer(ctx context.Context, c Customer) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE customers SET name=$2, email=$3, phone=$4, address=$5 WHERE id=$1`,
		c.ID, c.Name, c.Email, c.Phone, c.Address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteCustomer removes a customer. Sales keep their rows, the counterparty
// reference nulls out.
func (r *Repository) DeleteCustomer(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const saleSelect = `SELECT e.id, e.item_id, e.kind, e.quantity, e.unit_value, e.number, e.counterparty_id,
COALESCE(e.description, ''), e.entry_date, e.created_by, e.created_at,
i.name, i.sku, i.selling_price, COALESCE(c.name, '')
FROM ledger_entries e
JOIN items i ON i.id = e.item_id
LEFT JOIN customers c ON c.id = e.counterparty_id
WHERE e.kind = 'SALE'`

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s            Sale
		sellingPrice = inventory.Item{}
	)
	err := row.Scan(&s.Entry.ID, &s.Entry.ItemID, &s.Entry.Kind, &s.Entry.Quantity, &s.Entry.UnitValue,
		&s.Entry.Number, &s.Entry.CounterpartyID, &s.Entry.Description, &s.Entry.Date,
		&s.Entry.CreatedBy, &s.Entry.CreatedAt,
		&s.ItemName, &s.ItemSKU, &sellingPrice.SellingPrice, &s.CustomerName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, err
	}
	if s.Entry.UnitValue.Valid {
		s.Total = s.Entry.UnitValue.Decimal.Mul(decimal.NewFromInt(s.Entry.Quantity))
		s.Discount = Discount(sellingPrice, s.Entry.Quantity, s.Entry.UnitValue.Decimal)
	}
	return s, nil
}

// GetSale loads one sale with its item and customer context.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, saleSelect+` AND e.id=$1`, id)
	return scanSale(row)
}

// ListSales returns sales newest first, optionally bounded by date range.
func (r *Repository) ListSales(ctx context.Context, from, to time.Time, limit int) ([]Sale, error) {
	query := saleSelect
	args := []any{}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(` AND e.entry_date >= $%d`, len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(` AND e.entry_date <= $%d`, len(args))
	}
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY e.entry_date DESC, e.id DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sale)
	}
	return result, rows.Err()
}

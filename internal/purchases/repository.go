package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

// Repository persists suppliers and reads the purchase side of the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSupplier loads one supplier.
func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), created_at FROM suppliers WHERE id=$1`,
		id).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

// ListSuppliers returns suppliers, optionally filtered by name search.
func (r *Repository) ListSuppliers(ctx context.Context, search string, limit int) ([]Supplier, error) {
	query := `SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), created_at FROM suppliers`
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
	suppliers := []Supplier{}
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// CreateSupplier inserts a new supplier.
func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO suppliers (name, email, phone, address) VALUES ($1, $2, $3, $4) RETURNING id`,
		s.Name, s.Email, s.Phone, s.Address).Scan(&id)
	return id, err
}

// UpdateSupplier updates a supplier.
func (r *Repository) UpdateSupplier(ctx context.Context, s Supplier) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE suppliers SET name=$2, email=$3, phone=$4, address=$5 WHERE id=$1`,
		s.ID, s.Name, s.Email, s.Phone, s.Address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteSupplier removes a supplier. Purchases keep their rows, the
// counterparty reference nulls out.
func (r *Repository) DeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const purchaseSelect = `SELECT e.id, e.item_id, e.kind, e.quantity, e.unit_value, e.number, e.counterparty_id,
COALESCE(e.description, ''), e.entry_date, e.created_by, e.created_at,
i.name, i.sku, COALESCE(s.name, '')
FROM ledger_entries e
JOIN items i ON i.id = e.item_id
LEFT JOIN suppliers s ON s.id = e.counterparty_id
WHERE e.kind = 'PURCHASE'`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.Entry.ID, &p.Entry.ItemID, &p.Entry.Kind, &p.Entry.Quantity, &p.Entry.UnitValue,
		&p.Entry.Number, &p.Entry.CounterpartyID, &p.Entry.Description, &p.Entry.Date,
		&p.Entry.CreatedBy, &p.Entry.CreatedAt,
		&p.ItemName, &p.ItemSKU, &p.SupplierName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, shared.ErrNotFound
		}
		return Purchase{}, err
	}
	if p.Entry.UnitValue.Valid {
		p.TotalCost = p.Entry.UnitValue.Decimal.Mul(decimal.NewFromInt(p.Entry.Quantity))
	}
	return p, nil
}

// GetPurchase loads one purchase with its item and supplier context.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	row := r.pool.QueryRow(ctx, purchaseSelect+` AND e.id=$1`, id)
	return scanPurchase(row)
}

// ListPurchases returns purchases newest first, optionally date-bounded.
func (r *Repository) ListPurchases(ctx context.Context, from, to time.Time, limit int) ([]Purchase, error) {
	query := purchaseSelect
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
	result := []Purchase{}
	for rows.Next() {
		purchase, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, purchase)
	}
	return result, rows.Err()
}

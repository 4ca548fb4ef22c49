package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

// Repository persists items, ledger entries and alerts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the ledger,
// the item service and the CSV importer.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id int64) (Item, error)
	GetItemBySKUForUpdate(ctx context.Context, sku string) (Item, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	UpdateItem(ctx context.Context, item Item) error
	UpdateItemStock(ctx context.Context, id int64, stock int64) error

	GetEntryForUpdate(ctx context.Context, id int64) (Entry, error)
	InsertEntry(ctx context.Context, entry Entry) (int64, error)
	UpdateEntry(ctx context.Context, entry Entry) error
	DeleteEntry(ctx context.Context, id int64) error

	UnresolvedAlert(ctx context.Context, itemID int64, alertType string) (Alert, bool, error)
	InsertAlert(ctx context.Context, alert Alert) error
	ResolveAlerts(ctx context.Context, itemID int64, alertType string) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const itemColumns = `id, name, sku, unit_id, category_id, selling_price, purchase_price, opening_stock, reorder_point, current_stock, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.SKU, &item.UnitID, &item.CategoryID,
		&item.SellingPrice, &item.PurchasePrice, &item.OpeningStock, &item.ReorderPoint,
		&item.CurrentStock, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// GetItem loads one item by id.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id)
	return scanItem(row)
}

// GetItemBySKU loads one item by its unique SKU.
func (r *Repository) GetItemBySKU(ctx context.Context, sku string) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE sku=$1`, sku)
	return scanItem(row)
}

// ListItems returns items matching the filter, name-ordered.
func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var (
		clauses []string
		args    []any
	)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(sku) LIKE $%d)", len(args), len(args)))
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.LowStock {
		clauses = append(clauses, "reorder_point IS NOT NULL AND current_stock <= reorder_point")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY name ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateItem inserts a new item.
func (r *Repository) CreateItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO items (name, sku, unit_id, category_id, selling_price, purchase_price, opening_stock, reorder_point, current_stock)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		item.Name, item.SKU, item.UnitID, item.CategoryID, item.SellingPrice, item.PurchasePrice,
		item.OpeningStock, item.ReorderPoint, item.CurrentStock).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("sku %q: %w", item.SKU, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

// UpdateItem updates an item's descriptive fields. current_stock is owned by
// the ledger and deliberately not part of this statement.
func (r *Repository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE items SET name=$2, sku=$3, unit_id=$4, category_id=$5, selling_price=$6, purchase_price=$7, opening_stock=$8, reorder_point=$9, updated_at=NOW()
WHERE id=$1`,
		item.ID, item.Name, item.SKU, item.UnitID, item.CategoryID, item.SellingPrice,
		item.PurchasePrice, item.OpeningStock, item.ReorderPoint)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return fmt.Errorf("sku %q: %w", item.SKU, shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteItem removes an item. Ledger entries and alerts cascade with it.
func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const entryColumns = `id, item_id, kind, adjustment_type, quantity, unit_value, number, counterparty_id, reason, description, entry_date, created_by, created_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		entry          Entry
		adjustmentType *string
		number         *string
		reason         *string
		description    *string
	)
	err := row.Scan(&entry.ID, &entry.ItemID, &entry.Kind, &adjustmentType, &entry.Quantity,
		&entry.UnitValue, &number, &entry.CounterpartyID, &reason, &description,
		&entry.Date, &entry.CreatedBy, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.ErrNotFound
		}
		return Entry{}, err
	}
	if adjustmentType != nil {
		entry.AdjustmentType = AdjustmentType(*adjustmentType)
	}
	if number != nil {
		entry.Number = *number
	}
	if reason != nil {
		entry.Reason = *reason
	}
	if description != nil {
		entry.Description = *description
	}
	return entry, nil
}

// GetEntry loads one ledger entry.
func (r *Repository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id=$1`, id)
	return scanEntry(row)
}

// ListEntries returns entries matching the filter, newest first.
func (r *Repository) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries`
	var (
		clauses []string
		args    []any
	)
	if filter.ItemID != 0 {
		args = append(args, filter.ItemID)
		clauses = append(clauses, fmt.Sprintf("item_id=$%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		clauses = append(clauses, fmt.Sprintf("kind=$%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("entry_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("entry_date <= $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY entry_date DESC, id DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListAlerts returns alerts, optionally only unresolved, newest first.
func (r *Repository) ListAlerts(ctx context.Context, onlyUnresolved bool, limit int) ([]Alert, error) {
	query := `SELECT id, item_id, alert_type, message, is_resolved, notified_by_email, created_at FROM stock_alerts`
	if onlyUnresolved {
		query += ` WHERE is_resolved = FALSE`
	}
	if limit <= 0 {
		limit = 200
	}
	query += ` ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	alerts := []Alert{}
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.ItemID, &a.AlertType, &a.Message, &a.IsResolved, &a.NotifiedByEmail, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ListAlertsForEmail returns unresolved alerts that have not been emailed yet.
func (r *Repository) ListAlertsForEmail(ctx context.Context) ([]Alert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, alert_type, message, is_resolved, notified_by_email, created_at
FROM stock_alerts WHERE is_resolved = FALSE AND notified_by_email = FALSE ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	alerts := []Alert{}
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.ItemID, &a.AlertType, &a.Message, &a.IsResolved, &a.NotifiedByEmail, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MarkAlertsNotified flags alerts as emailed after a successful send.
func (r *Repository) MarkAlertsNotified(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE stock_alerts SET notified_by_email = TRUE WHERE id = ANY($1)`, ids)
	return err
}

// CountEntriesOnDate counts entries of a kind dated on the given day.
// Used by the numbering service to seed the daily sequence.
func (r *Repository) CountEntriesOnDate(ctx context.Context, kind string, date time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM ledger_entries WHERE kind=$1 AND entry_date::date = $2::date`,
		kind, date).Scan(&count)
	return count, err
}

// NumberExists reports whether a document number is already taken.
func (r *Repository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE number=$1)`, number).Scan(&exists)
	return exists, err
}

func (t *txRepository) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1 FOR UPDATE`, id)
	return scanItem(row)
}

func (t *txRepository) GetItemBySKUForUpdate(ctx context.Context, sku string) (Item, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE sku=$1 FOR UPDATE`, sku)
	return scanItem(row)
}

func (t *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO items (name, sku, unit_id, category_id, selling_price, purchase_price, opening_stock, reorder_point, current_stock)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		item.Name, item.SKU, item.UnitID, item.CategoryID, item.SellingPrice, item.PurchasePrice,
		item.OpeningStock, item.ReorderPoint, item.CurrentStock).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("sku %q: %w", item.SKU, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE items SET name=$2, sku=$3, unit_id=$4, category_id=$5, selling_price=$6, purchase_price=$7, opening_stock=$8, reorder_point=$9, current_stock=$10, updated_at=NOW()
WHERE id=$1`,
		item.ID, item.Name, item.SKU, item.UnitID, item.CategoryID, item.SellingPrice,
		item.PurchasePrice, item.OpeningStock, item.ReorderPoint, item.CurrentStock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) UpdateItemStock(ctx context.Context, id int64, stock int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE items SET current_stock=$2, updated_at=NOW() WHERE id=$1`, id, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id=$1 FOR UPDATE`, id)
	return scanEntry(row)
}

func (t *txRepository) InsertEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO ledger_entries (item_id, kind, adjustment_type, quantity, unit_value, number, counterparty_id, reason, description, entry_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		entry.ItemID, string(entry.Kind), nullString(string(entry.AdjustmentType)), entry.Quantity,
		entry.UnitValue, nullString(entry.Number), entry.CounterpartyID, nullString(entry.Reason),
		nullString(entry.Description), entry.Date, entry.CreatedBy).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("number %q: %w", entry.Number, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepository) UpdateEntry(ctx context.Context, entry Entry) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE ledger_entries SET item_id=$2, adjustment_type=$3, quantity=$4, unit_value=$5, number=$6, counterparty_id=$7, reason=$8, description=$9, entry_date=$10
WHERE id=$1`,
		entry.ID, entry.ItemID, nullString(string(entry.AdjustmentType)), entry.Quantity,
		entry.UnitValue, nullString(entry.Number), entry.CounterpartyID, nullString(entry.Reason),
		nullString(entry.Description), entry.Date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM ledger_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) UnresolvedAlert(ctx context.Context, itemID int64, alertType string) (Alert, bool, error) {
	var a Alert
	err := t.tx.QueryRow(ctx,
		`SELECT id, item_id, alert_type, message, is_resolved, notified_by_email, created_at
FROM stock_alerts WHERE item_id=$1 AND alert_type=$2 AND is_resolved = FALSE LIMIT 1`,
		itemID, alertType).Scan(&a.ID, &a.ItemID, &a.AlertType, &a.Message, &a.IsResolved, &a.NotifiedByEmail, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, false, nil
		}
		return Alert{}, false, err
	}
	return a, true, nil
}

func (t *txRepository) InsertAlert(ctx context.Context, alert Alert) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stock_alerts (item_id, alert_type, message) VALUES ($1, $2, $3)`,
		alert.ItemID, alert.AlertType, alert.Message)
	return err
}

func (t *txRepository) ResolveAlerts(ctx context.Context, itemID int64, alertType string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE stock_alerts SET is_resolved = TRUE WHERE item_id=$1 AND alert_type=$2 AND is_resolved = FALSE`,
		itemID, alertType)
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

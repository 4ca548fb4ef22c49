package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

// Repository persists units and categories in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUnit loads one unit by id.
func (r *Repository) GetUnit(ctx context.Context, id int64) (Unit, error) {
	var u Unit
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(abbreviation, ''), COALESCE(description, ''), created_at FROM units WHERE id=$1`,
		id).Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Description, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, shared.ErrNotFound
		}
		return Unit{}, err
	}
	return u, nil
}

// FindUnit matches a unit case-insensitively on name or abbreviation.
func (r *Repository) FindUnit(ctx context.Context, value string) (Unit, error) {
	var u Unit
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(abbreviation, ''), COALESCE(description, ''), created_at
FROM units WHERE LOWER(name)=LOWER($1) OR LOWER(abbreviation)=LOWER($1) LIMIT 1`,
		value).Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Description, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, shared.ErrNotFound
		}
		return Unit{}, err
	}
	return u, nil
}

// ListUnits returns all units, name-ordered.
func (r *Repository) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(abbreviation, ''), COALESCE(description, ''), created_at FROM units ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := []Unit{}
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Abbreviation, &u.Description, &u.CreatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// CreateUnit inserts a new unit.
func (r *Repository) CreateUnit(ctx context.Context, unit Unit) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO units (name, abbreviation, description) VALUES ($1, $2, $3) RETURNING id`,
		unit.Name, unit.Abbreviation, unit.Description).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("unit %q: %w", unit.Name, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

// UpdateUnit updates a unit.
func (r *Repository) UpdateUnit(ctx context.Context, unit Unit) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE units SET name=$2, abbreviation=$3, description=$4 WHERE id=$1`,
		unit.ID, unit.Name, unit.Abbreviation, unit.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteUnit removes a unit. Items referencing it block the delete.
func (r *Repository) DeleteUnit(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM units WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetCategory loads one category by id.
func (r *Repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM categories WHERE id=$1`,
		id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, shared.ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

// FindCategory matches a category case-insensitively on name.
func (r *Repository) FindCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM categories WHERE LOWER(name)=LOWER($1) LIMIT 1`,
		name).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, shared.ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

// ListCategories returns all categories, name-ordered.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a new category.
func (r *Repository) CreateCategory(ctx context.Context, category Category) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`,
		category.Name, category.Description).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("category %q: %w", category.Name, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

// UpdateCategory updates a category.
func (r *Repository) UpdateCategory(ctx context.Context, category Category) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name=$2, description=$3 WHERE id=$1`,
		category.ID, category.Name, category.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category. Items keep their rows, category_id nulls out.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

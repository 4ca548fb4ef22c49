package masterdata

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

// memoryRepo backs the service with maps and enforces the same name
// uniqueness the database schema does.
type memoryRepo struct {
	units      map[int64]Unit
	categories map[int64]Category
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{units: make(map[int64]Unit), categories: make(map[int64]Category)}
}

func (r *memoryRepo) GetUnit(_ context.Context, id int64) (Unit, error) {
	u, ok := r.units[id]
	if !ok {
		return Unit{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) FindUnit(_ context.Context, value string) (Unit, error) {
	for _, u := range r.units {
		if strings.EqualFold(u.Name, value) || (u.Abbreviation != "" && strings.EqualFold(u.Abbreviation, value)) {
			return u, nil
		}
	}
	return Unit{}, shared.ErrNotFound
}

func (r *memoryRepo) ListUnits(_ context.Context) ([]Unit, error) {
	out := []Unit{}
	for _, u := range r.units {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryRepo) CreateUnit(_ context.Context, unit Unit) (int64, error) {
	for _, u := range r.units {
		if strings.EqualFold(u.Name, unit.Name) {
			return 0, shared.ErrConflict
		}
	}
	r.nextID++
	unit.ID = r.nextID
	r.units[unit.ID] = unit
	return unit.ID, nil
}

func (r *memoryRepo) UpdateUnit(_ context.Context, unit Unit) error {
	if _, ok := r.units[unit.ID]; !ok {
		return shared.ErrNotFound
	}
	r.units[unit.ID] = unit
	return nil
}

func (r *memoryRepo) DeleteUnit(_ context.Context, id int64) error {
	if _, ok := r.units[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.units, id)
	return nil
}

func (r *memoryRepo) GetCategory(_ context.Context, id int64) (Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) FindCategory(_ context.Context, name string) (Category, error) {
	for _, c := range r.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Category{}, shared.ErrNotFound
}

func (r *memoryRepo) ListCategories(_ context.Context) ([]Category, error) {
	out := []Category{}
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepo) CreateCategory(_ context.Context, category Category) (int64, error) {
	for _, c := range r.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return 0, shared.ErrConflict
		}
	}
	r.nextID++
	category.ID = r.nextID
	r.categories[category.ID] = category
	return category.ID, nil
}

func (r *memoryRepo) UpdateCategory(_ context.Context, category Category) error {
	if _, ok := r.categories[category.ID]; !ok {
		return shared.ErrNotFound
	}
	r.categories[category.ID] = category
	return nil
}

func (r *memoryRepo) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := r.categories[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func TestUnitCRUD(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateUnit(ctx, UnitInput{Name: "  "})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "name")

	unit, err := svc.CreateUnit(ctx, UnitInput{Name: " Pieces ", Abbreviation: " pcs "})
	require.NoError(t, err)
	require.Equal(t, "Pieces", unit.Name)
	require.Equal(t, "pcs", unit.Abbreviation)

	_, err = svc.CreateUnit(ctx, UnitInput{Name: "pieces"})
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"A unit with this name or abbreviation already exists."}, vErr.Fields["name"])

	updated, err := svc.UpdateUnit(ctx, unit.ID, UnitInput{Name: "Piece", Abbreviation: "pc"})
	require.NoError(t, err)
	require.Equal(t, "Piece", updated.Name)

	require.NoError(t, svc.DeleteUnit(ctx, unit.ID))
	_, err = svc.GetUnit(ctx, unit.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveOrCreateUnit(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	existing, err := svc.CreateUnit(ctx, UnitInput{Name: "Kilogram", Abbreviation: "kg"})
	require.NoError(t, err)

	byName, err := svc.ResolveOrCreateUnit(ctx, "kilogram")
	require.NoError(t, err)
	require.Equal(t, existing.ID, byName.ID)

	byAbbrev, err := svc.ResolveOrCreateUnit(ctx, "KG")
	require.NoError(t, err)
	require.Equal(t, existing.ID, byAbbrev.ID)

	created, err := svc.ResolveOrCreateUnit(ctx, " Box ")
	require.NoError(t, err)
	require.NotEqual(t, existing.ID, created.ID)
	require.Equal(t, "Box", created.Name)
	require.Empty(t, created.Abbreviation)

	_, err = svc.ResolveOrCreateUnit(ctx, "")
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"Unit of Measure is required."}, vErr.Fields["unit"])
}

func TestCategoryCRUD(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, CategoryInput{Name: "Electronics"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "ELECTRONICS"})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"A category with this name already exists."}, vErr.Fields["name"])

	updated, err := svc.UpdateCategory(ctx, category.ID, CategoryInput{Name: "Consumer Electronics"})
	require.NoError(t, err)
	require.Equal(t, "Consumer Electronics", updated.Name)

	require.NoError(t, svc.DeleteCategory(ctx, category.ID))
	_, err = svc.GetCategory(ctx, category.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveOrCreateCategory(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	// Blank resolves to no category at all.
	_, err := svc.ResolveOrCreateCategory(ctx, "  ")
	require.ErrorIs(t, err, shared.ErrNotFound)

	created, err := svc.ResolveOrCreateCategory(ctx, "Hardware")
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	matched, err := svc.ResolveOrCreateCategory(ctx, "hardware")
	require.NoError(t, err)
	require.Equal(t, created.ID, matched.ID)
	require.Len(t, repo.categories, 1)
}

package masterdata

import (
	"context"
	"errors"
	"strings"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetUnit(ctx context.Context, id int64) (Unit, error)
	FindUnit(ctx context.Context, value string) (Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)
	CreateUnit(ctx context.Context, unit Unit) (int64, error)
	UpdateUnit(ctx context.Context, unit Unit) error
	DeleteUnit(ctx context.Context, id int64) error

	GetCategory(ctx context.Context, id int64) (Category, error)
	FindCategory(ctx context.Context, name string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, category Category) (int64, error)
	UpdateCategory(ctx context.Context, category Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

// Service coordinates master data operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// UnitInput carries unit create/update fields.
type UnitInput struct {
	Name         string
	Abbreviation string
	Description  string
}

// CreateUnit validates and persists a new unit.
func (s *Service) CreateUnit(ctx context.Context, input UnitInput) (Unit, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Unit{}, shared.FieldError("name", "Name is required.")
	}
	unit := Unit{Name: name, Abbreviation: strings.TrimSpace(input.Abbreviation), Description: input.Description}
	id, err := s.repo.CreateUnit(ctx, unit)
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return Unit{}, shared.FieldError("name", "A unit with this name or abbreviation already exists.")
		}
		return Unit{}, err
	}
	unit.ID = id
	return unit, nil
}

// UpdateUnit validates and persists unit changes.
func (s *Service) UpdateUnit(ctx context.Context, id int64, input UnitInput) (Unit, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Unit{}, shared.FieldError("name", "Name is required.")
	}
	unit := Unit{ID: id, Name: name, Abbreviation: strings.TrimSpace(input.Abbreviation), Description: input.Description}
	if err := s.repo.UpdateUnit(ctx, unit); err != nil {
		return Unit{}, err
	}
	return unit, nil
}

// GetUnit loads one unit.
func (s *Service) GetUnit(ctx context.Context, id int64) (Unit, error) {
	return s.repo.GetUnit(ctx, id)
}

// ListUnits lists all units.
func (s *Service) ListUnits(ctx context.Context) ([]Unit, error) {
	return s.repo.ListUnits(ctx)
}

// DeleteUnit removes a unit.
func (s *Service) DeleteUnit(ctx context.Context, id int64) error {
	return s.repo.DeleteUnit(ctx, id)
}

// ResolveOrCreateUnit matches value case-insensitively against unit names and
// abbreviations, creating a unit with a blank abbreviation when nothing
// matches. CSV import relies on this.
func (s *Service) ResolveOrCreateUnit(ctx context.Context, value string) (Unit, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Unit{}, shared.FieldError("unit", "Unit of Measure is required.")
	}
	unit, err := s.repo.FindUnit(ctx, value)
	if err == nil {
		return unit, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Unit{}, err
	}
	unit = Unit{Name: value, Abbreviation: ""}
	id, err := s.repo.CreateUnit(ctx, unit)
	if err != nil {
		// Lost a race with a concurrent import row: re-read the winner.
		if errors.Is(err, shared.ErrConflict) {
			return s.repo.FindUnit(ctx, value)
		}
		return Unit{}, err
	}
	unit.ID = id
	return unit, nil
}

// CategoryInput carries category create/update fields.
type CategoryInput struct {
	Name        string
	Description string
}

// CreateCategory validates and persists a new category.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Category{}, shared.FieldError("name", "Name is required.")
	}
	category := Category{Name: name, Description: input.Description}
	id, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return Category{}, shared.FieldError("name", "A category with this name already exists.")
		}
		return Category{}, err
	}
	category.ID = id
	return category, nil
}

// UpdateCategory validates and persists category changes.
func (s *Service) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Category{}, shared.FieldError("name", "Name is required.")
	}
	category := Category{ID: id, Name: name, Description: input.Description}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return Category{}, err
	}
	return category, nil
}

// GetCategory loads one category.
func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// ListCategories lists all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

// ResolveOrCreateCategory matches a category case-insensitively on name,
// creating it when absent. An empty name resolves to no category.
func (s *Service) ResolveOrCreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, shared.ErrNotFound
	}
	category, err := s.repo.FindCategory(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Category{}, err
	}
	category = Category{Name: name}
	id, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return s.repo.FindCategory(ctx, name)
		}
		return Category{}, err
	}
	category.ID = id
	return category, nil
}

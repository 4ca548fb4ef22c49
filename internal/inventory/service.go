package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockflow-hq/stockflow/internal/masterdata"
	"github.com/stockflow-hq/stockflow/internal/shared"
)

// MasterDataPort is the slice of master data the item flows need.
type MasterDataPort interface {
	GetUnit(ctx context.Context, id int64) (masterdata.Unit, error)
	GetCategory(ctx context.Context, id int64) (masterdata.Category, error)
	ResolveOrCreateUnit(ctx context.Context, value string) (masterdata.Unit, error)
	ResolveOrCreateCategory(ctx context.Context, name string) (masterdata.Category, error)
}

// Service coordinates item CRUD and manual stock adjustments. All stock
// mutation goes through the ledger; nothing here writes current_stock
// directly.
type Service struct {
	repo   RepositoryPort
	ledger *Ledger
	master MasterDataPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *Ledger, master MasterDataPort) *Service {
	return &Service{repo: repo, ledger: ledger, master: master}
}

// ItemInput carries item create/update fields. CurrentStock is honoured only
// at creation, as the initial balance; updates never touch it.
type ItemInput struct {
	Name          string
	SKU           string
	UnitID        int64
	CategoryID    *int64
	SellingPrice  decimal.NullDecimal
	PurchasePrice decimal.NullDecimal
	OpeningStock  *int64
	ReorderPoint  *int64
	CurrentStock  *int64
}

func (s *Service) validateItemInput(ctx context.Context, input ItemInput) *shared.ValidationError {
	vErr := shared.NewValidationError()
	if input.Name == "" {
		vErr.Add("name", "Name is required.")
	}
	if input.SKU == "" {
		vErr.Add("sku", "SKU is required.")
	}
	if input.UnitID == 0 {
		vErr.Add("unit", "Unit of Measure is required.")
	} else if _, err := s.master.GetUnit(ctx, input.UnitID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			vErr.Add("unit", "Selected unit does not exist.")
		} else {
			return shared.FieldError("unit", shared.UserSafeMessage(err))
		}
	}
	if input.CategoryID != nil {
		if _, err := s.master.GetCategory(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				vErr.Add("category", "Selected category does not exist.")
			} else {
				return shared.FieldError("category", shared.UserSafeMessage(err))
			}
		}
	}
	if input.SellingPrice.Valid && input.SellingPrice.Decimal.IsNegative() {
		vErr.Add("selling_price", "Selling price cannot be negative.")
	}
	if input.PurchasePrice.Valid && input.PurchasePrice.Decimal.IsNegative() {
		vErr.Add("purchase_price", "Purchase price cannot be negative.")
	}
	if input.OpeningStock != nil && *input.OpeningStock < 0 {
		vErr.Add("opening_stock", "Opening stock cannot be negative.")
	}
	if input.ReorderPoint != nil && *input.ReorderPoint < 0 {
		vErr.Add("reorder_point", "Reorder point cannot be negative.")
	}
	if input.CurrentStock != nil && *input.CurrentStock < 0 {
		vErr.Add("current_stock", "Current stock cannot be negative.")
	}
	return vErr
}

// CreateItem validates and creates an item.
func (s *Service) CreateItem(ctx context.Context, input ItemInput) (Item, error) {
	if vErr := s.validateItemInput(ctx, input); vErr.HasErrors() {
		return Item{}, vErr
	}
	item := Item{
		Name:          input.Name,
		SKU:           input.SKU,
		UnitID:        input.UnitID,
		CategoryID:    input.CategoryID,
		SellingPrice:  input.SellingPrice,
		PurchasePrice: input.PurchasePrice,
		OpeningStock:  input.OpeningStock,
		ReorderPoint:  input.ReorderPoint,
	}
	if input.CurrentStock != nil {
		item.CurrentStock = *input.CurrentStock
	}
	id, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return Item{}, shared.FieldError("sku", "An item with this SKU already exists.")
		}
		return Item{}, err
	}
	item.ID = id
	return item, nil
}

// UpdateItem validates and updates an item's descriptive fields.
func (s *Service) UpdateItem(ctx context.Context, id int64, input ItemInput) (Item, error) {
	existing, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if vErr := s.validateItemInput(ctx, input); vErr.HasErrors() {
		return Item{}, vErr
	}
	existing.Name = input.Name
	existing.SKU = input.SKU
	existing.UnitID = input.UnitID
	existing.CategoryID = input.CategoryID
	existing.SellingPrice = input.SellingPrice
	existing.PurchasePrice = input.PurchasePrice
	existing.OpeningStock = input.OpeningStock
	existing.ReorderPoint = input.ReorderPoint
	if err := s.repo.UpdateItem(ctx, existing); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return Item{}, shared.FieldError("sku", "An item with this SKU already exists.")
		}
		return Item{}, err
	}
	return existing, nil
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems lists items.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	return s.repo.ListItems(ctx, filter)
}

// DeleteItem removes an item together with its ledger entries and alerts.
// This is a destructive, non-recoverable operation.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}

// AdjustmentInput carries a manual stock adjustment request.
type AdjustmentInput struct {
	ItemID      int64
	Type        AdjustmentType
	Quantity    int64
	CostPrice   decimal.NullDecimal
	Reason      string
	Description string
	Date        time.Time
	ActorID     int64
}

func adjustmentEntry(input AdjustmentInput) Entry {
	reason := input.Reason
	if reason == "" {
		reason = ReasonStockCount
	}
	return Entry{
		ItemID:         input.ItemID,
		Kind:           KindAdjustment,
		AdjustmentType: input.Type,
		Quantity:       input.Quantity,
		UnitValue:      input.CostPrice,
		Reason:         reason,
		Description:    input.Description,
		Date:           input.Date,
		CreatedBy:      input.ActorID,
	}
}

// CreateAdjustment applies a new adjustment through the ledger.
func (s *Service) CreateAdjustment(ctx context.Context, input AdjustmentInput) (ApplyResult, error) {
	return s.ledger.Apply(ctx, adjustmentEntry(input))
}

// UpdateAdjustment reverses the stored adjustment and applies the new one.
func (s *Service) UpdateAdjustment(ctx context.Context, id int64, input AdjustmentInput) (ApplyResult, error) {
	return s.ledger.Edit(ctx, id, adjustmentEntry(input))
}

// DeleteAdjustment reverses and removes an adjustment.
func (s *Service) DeleteAdjustment(ctx context.Context, id int64) (int64, error) {
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return 0, err
	}
	if entry.Kind != KindAdjustment {
		return 0, shared.ErrNotFound
	}
	return s.ledger.Delete(ctx, id)
}

// GetAdjustment loads one adjustment entry.
func (s *Service) GetAdjustment(ctx context.Context, id int64) (Entry, error) {
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.Kind != KindAdjustment {
		return Entry{}, shared.ErrNotFound
	}
	return entry, nil
}

// ListAdjustments lists adjustment entries.
func (s *Service) ListAdjustments(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	filter.Kind = KindAdjustment
	return s.repo.ListEntries(ctx, filter)
}

// ListAlerts lists stock alerts.
func (s *Service) ListAlerts(ctx context.Context, onlyUnresolved bool, limit int) ([]Alert, error) {
	return s.repo.ListAlerts(ctx, onlyUnresolved, limit)
}

package purchases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockflow-hq/stockflow/internal/inventory"
	"github.com/stockflow-hq/stockflow/internal/shared"
)

// LedgerPort is the slice of the inventory ledger purchases drive.
type LedgerPort interface {
	Apply(ctx context.Context, entry inventory.Entry) (inventory.ApplyResult, error)
	Edit(ctx context.Context, entryID int64, updated inventory.Entry) (inventory.ApplyResult, error)
	Delete(ctx context.Context, entryID int64) (int64, error)
	GetEntry(ctx context.Context, id int64) (inventory.Entry, error)
}

// ItemPort looks up items for validation and cost defaulting.
type ItemPort interface {
	GetItem(ctx context.Context, id int64) (inventory.Item, error)
}

// NumberPort assigns purchase numbers.
type NumberPort interface {
	Next(ctx context.Context, date time.Time) (string, error)
}

// SupplierPort abstracts supplier storage for the service.
type SupplierPort interface {
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListSuppliers(ctx context.Context, search string, limit int) ([]Supplier, error)
	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
	UpdateSupplier(ctx context.Context, s Supplier) error
	DeleteSupplier(ctx context.Context, id int64) error
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListPurchases(ctx context.Context, from, to time.Time, limit int) ([]Purchase, error)
}

// Service coordinates purchase and supplier operations.
type Service struct {
	repo    SupplierPort
	ledger  LedgerPort
	items   ItemPort
	numbers NumberPort
}

// NewService builds Service.
func NewService(repo SupplierPort, ledger LedgerPort, items ItemPort, numbers NumberPort) *Service {
	return &Service{repo: repo, ledger: ledger, items: items, numbers: numbers}
}

const numberAttempts = 3

// resolveCost returns the effective unit cost: the explicit one when given,
// otherwise the item's purchase price. A purchase with neither is rejected.
func resolveCost(input PurchaseInput, item inventory.Item) (decimal.Decimal, error) {
	if input.UnitCost.Valid {
		return input.UnitCost.Decimal, nil
	}
	if !item.PurchasePrice.Valid {
		return decimal.Zero, shared.FieldError("unit_cost", "No purchasing price set for this item.")
	}
	return item.PurchasePrice.Decimal, nil
}

func (s *Service) validatePurchaseInput(ctx context.Context, input PurchaseInput) (inventory.Item, error) {
	vErr := shared.NewValidationError()
	item, err := s.items.GetItem(ctx, input.ItemID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			vErr.Add("item", "Selected item does not exist.")
		} else {
			return inventory.Item{}, err
		}
	}
	if input.Quantity <= 0 {
		vErr.Add("quantity", "Quantity must be greater than zero.")
	}
	if input.UnitCost.Valid && !input.UnitCost.Decimal.IsPositive() {
		vErr.Add("unit_cost", "Unit cost must be a positive number.")
	}
	if input.SupplierID != nil {
		if _, err := s.repo.GetSupplier(ctx, *input.SupplierID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				vErr.Add("supplier", "Selected supplier does not exist.")
			} else {
				return inventory.Item{}, err
			}
		}
	}
	if vErr.HasErrors() {
		return inventory.Item{}, vErr
	}
	return item, nil
}

func purchaseEntry(input PurchaseInput, cost decimal.Decimal, number string) inventory.Entry {
	return inventory.Entry{
		ItemID:         input.ItemID,
		Kind:           inventory.KindPurchase,
		Quantity:       input.Quantity,
		UnitValue:      decimal.NullDecimal{Decimal: cost, Valid: true},
		Number:         number,
		CounterpartyID: input.SupplierID,
		Description:    input.Description,
		Date:           input.Date,
		CreatedBy:      input.ActorID,
	}
}

// CreatePurchase assigns a purchase number and applies it through the ledger.
func (s *Service) CreatePurchase(ctx context.Context, input PurchaseInput) (Purchase, error) {
	item, err := s.validatePurchaseInput(ctx, input)
	if err != nil {
		return Purchase{}, err
	}
	cost, err := resolveCost(input, item)
	if err != nil {
		return Purchase{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
		input.Date = date
	}

	var result inventory.ApplyResult
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx, date)
		if err != nil {
			return Purchase{}, err
		}
		result, err = s.ledger.Apply(ctx, purchaseEntry(input, cost, number))
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrConflict) && attempt < numberAttempts-1 {
			continue
		}
		return Purchase{}, err
	}
	return s.buildPurchase(result.Entry, item), nil
}

// UpdatePurchase reverses the stored purchase and applies the new values.
// Shrinking a purchase whose stock has since been sold fails with an
// insufficient-stock validation error rather than leaving stock negative.
func (s *Service) UpdatePurchase(ctx context.Context, id int64, input PurchaseInput) (Purchase, error) {
	item, err := s.validatePurchaseInput(ctx, input)
	if err != nil {
		return Purchase{}, err
	}
	cost, err := resolveCost(input, item)
	if err != nil {
		return Purchase{}, err
	}
	result, err := s.ledger.Edit(ctx, id, purchaseEntry(input, cost, ""))
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return Purchase{}, shared.FieldError("quantity", "Stock received from this purchase has already been used.")
		}
		return Purchase{}, err
	}
	return s.buildPurchase(result.Entry, item), nil
}

// DeletePurchase reverses the purchase's effect (deducting stock) and
// removes it. The reversal is never skipped; if the received stock has
// already been consumed the delete fails.
func (s *Service) DeletePurchase(ctx context.Context, id int64) error {
	entry, err := s.ledger.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry.Kind != inventory.KindPurchase {
		return shared.ErrNotFound
	}
	if _, err := s.ledger.Delete(ctx, id); err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return shared.FieldError("quantity", "Stock received from this purchase has already been used.")
		}
		return err
	}
	return nil
}

// GetPurchase loads one purchase.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// ListPurchases lists purchases within an optional date range.
func (s *Service) ListPurchases(ctx context.Context, from, to time.Time, limit int) ([]Purchase, error) {
	return s.repo.ListPurchases(ctx, from, to, limit)
}

func (s *Service) buildPurchase(entry inventory.Entry, item inventory.Item) Purchase {
	purchase := Purchase{Entry: entry, ItemName: item.Name, ItemSKU: item.SKU}
	if entry.UnitValue.Valid {
		purchase.TotalCost = entry.UnitValue.Decimal.Mul(decimal.NewFromInt(entry.Quantity))
	}
	return purchase
}

// CreateSupplier validates and creates a supplier.
func (s *Service) CreateSupplier(ctx context.Context, input SupplierInput) (Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Supplier{}, shared.FieldError("name", "Name is required.")
	}
	supplier := Supplier{Name: name, Email: input.Email, Phone: input.Phone, Address: input.Address}
	id, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	supplier.ID = id
	return supplier, nil
}

// UpdateSupplier validates and updates a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, input SupplierInput) (Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Supplier{}, shared.FieldError("name", "Name is required.")
	}
	supplier := Supplier{ID: id, Name: name, Email: input.Email, Phone: input.Phone, Address: input.Address}
	if err := s.repo.UpdateSupplier(ctx, supplier); err != nil {
		return Supplier{}, err
	}
	return supplier, nil
}

// GetSupplier loads one supplier.
func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// ListSuppliers lists suppliers.
func (s *Service) ListSuppliers(ctx context.Context, search string, limit int) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx, search, limit)
}

// DeleteSupplier removes a supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	return s.repo.DeleteSupplier(ctx, id)
}

package sales

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stockflow-hq/stockflow/internal/inventory"
	"github.com/stockflow-hq/stockflow/internal/shared"
)

// LedgerPort is the slice of the inventory ledger sales drive.
type LedgerPort interface {
	Apply(ctx context.Context, entry inventory.Entry) (inventory.ApplyResult, error)
	Edit(ctx context.Context, entryID int64, updated inventory.Entry) (inventory.ApplyResult, error)
	Delete(ctx context.Context, entryID int64) (int64, error)
	GetEntry(ctx context.Context, id int64) (inventory.Entry, error)
}

// ItemPort looks up items for validation and discount math.
type ItemPort interface {
	GetItem(ctx context.Context, id int64) (inventory.Item, error)
}

// NumberPort assigns sale numbers.
type NumberPort interface {
	Next(ctx context.Context, date time.Time) (string, error)
}

// CustomerPort abstracts customer storage for the service.
type CustomerPort interface {
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	ListCustomers(ctx context.Context, search string, limit int) ([]Customer, error)
	CreateCustomer(ctx context.Context, c Customer) (int64, error)
	UpdateCustomer(ctx context.Context, c Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, from, to time.Time, limit int) ([]Sale, error)
}

// Service coordinates sale and customer operations.
type Service struct {
	repo    CustomerPort
	ledger  LedgerPort
	items   ItemPort
	numbers NumberPort
}

// NewService builds Service.
func NewService(repo CustomerPort, ledger LedgerPort, items ItemPort, numbers NumberPort) *Service {
	return &Service{repo: repo, ledger: ledger, items: items, numbers: numbers}
}

// numberAttempts bounds re-generation when a concurrent insert steals the
// candidate number between the existence check and our insert.
const numberAttempts = 3

func (s *Service) validateSaleInput(ctx context.Context, input SaleInput) (inventory.Item, error) {
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
	if input.UnitPrice.IsNegative() {
		vErr.Add("unit_price", "Unit price cannot be negative.")
	}
	if input.CustomerID != nil {
		if _, err := s.repo.GetCustomer(ctx, *input.CustomerID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				vErr.Add("customer", "Selected customer does not exist.")
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

func saleEntry(input SaleInput, number string) inventory.Entry {
	return inventory.Entry{
		ItemID:         input.ItemID,
		Kind:           inventory.KindSale,
		Quantity:       input.Quantity,
		UnitValue:      decimalNull(input.UnitPrice),
		Number:         number,
		CounterpartyID: input.CustomerID,
		Description:    input.Description,
		Date:           input.Date,
		CreatedBy:      input.ActorID,
	}
}

// CreateSale assigns a sale number and applies the sale through the ledger.
// A number collision under concurrent writers surfaces as a conflict from
// the unique constraint; the numbering loop then picks the next free slot.
func (s *Service) CreateSale(ctx context.Context, input SaleInput) (Sale, error) {
	item, err := s.validateSaleInput(ctx, input)
	if err != nil {
		return Sale{}, err
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
			return Sale{}, err
		}
		result, err = s.ledger.Apply(ctx, saleEntry(input, number))
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrConflict) && attempt < numberAttempts-1 {
			continue
		}
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return Sale{}, shared.FieldError("quantity", "Not enough stock available for this sale.")
		}
		return Sale{}, err
	}
	return s.buildSale(result.Entry, item), nil
}

// UpdateSale reverses the stored sale and applies the new values. Decrease
// validation runs against the restored stock level, so reducing a sale's
// quantity is never falsely rejected.
func (s *Service) UpdateSale(ctx context.Context, id int64, input SaleInput) (Sale, error) {
	item, err := s.validateSaleInput(ctx, input)
	if err != nil {
		return Sale{}, err
	}
	result, err := s.ledger.Edit(ctx, id, saleEntry(input, ""))
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return Sale{}, shared.FieldError("quantity", "Not enough stock available for this sale.")
		}
		return Sale{}, err
	}
	return s.buildSale(result.Entry, item), nil
}

// DeleteSale reverses the sale's effect (restoring stock) and removes it.
func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	entry, err := s.ledger.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry.Kind != inventory.KindSale {
		return shared.ErrNotFound
	}
	_, err = s.ledger.Delete(ctx, id)
	return err
}

// GetSale loads one sale.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales lists sales within an optional date range.
func (s *Service) ListSales(ctx context.Context, from, to time.Time, limit int) ([]Sale, error) {
	return s.repo.ListSales(ctx, from, to, limit)
}

func (s *Service) buildSale(entry inventory.Entry, item inventory.Item) Sale {
	sale := Sale{Entry: entry, ItemName: item.Name, ItemSKU: item.SKU}
	if entry.UnitValue.Valid {
		sale.Total = entry.UnitValue.Decimal.Mul(decimalFromInt(entry.Quantity))
		sale.Discount = Discount(item, entry.Quantity, entry.UnitValue.Decimal)
	}
	return sale
}

// CreateCustomer validates and creates a customer.
func (s *Service) CreateCustomer(ctx context.Context, input CustomerInput) (Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Customer{}, shared.FieldError("name", "Name is required.")
	}
	customer := Customer{Name: name, Email: input.Email, Phone: input.Phone, Address: input.Address}
	id, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return Customer{}, err
	}
	customer.ID = id
	return customer, nil
}

// UpdateCustomer validates and updates a customer.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, input CustomerInput) (Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Customer{}, shared.FieldError("name", "Name is required.")
	}
	customer := Customer{ID: id, Name: name, Email: input.Email, Phone: input.Phone, Address: input.Address}
	if err := s.repo.UpdateCustomer(ctx, customer); err != nil {
		return Customer{}, err
	}
	return customer, nil
}

// GetCustomer loads one customer.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// ListCustomers lists customers.
func (s *Service) ListCustomers(ctx context.Context, search string, limit int) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, search, limit)
}

// DeleteCustomer removes a customer.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	return s.repo.DeleteCustomer(ctx, id)
}

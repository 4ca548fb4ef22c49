package purchases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockflow-hq/stockflow/internal/inventory"
	"github.com/stockflow-hq/stockflow/internal/shared"
)

// fakeLedger mirrors the real ledger's stock effects for purchase tests.
type fakeLedger struct {
	items   map[int64]inventory.Item
	entries map[int64]inventory.Entry
	nextID  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{items: make(map[int64]inventory.Item), entries: make(map[int64]inventory.Entry)}
}

func (l *fakeLedger) addItem(item inventory.Item) inventory.Item {
	l.nextID++
	item.ID = l.nextID
	l.items[item.ID] = item
	return item
}

func (l *fakeLedger) GetItem(_ context.Context, id int64) (inventory.Item, error) {
	item, ok := l.items[id]
	if !ok {
		return inventory.Item{}, shared.ErrNotFound
	}
	return item, nil
}

func (l *fakeLedger) Apply(_ context.Context, entry inventory.Entry) (inventory.ApplyResult, error) {
	if err := entry.Validate(); err != nil {
		return inventory.ApplyResult{}, err
	}
	for _, existing := range l.entries {
		if entry.Number != "" && existing.Number == entry.Number {
			return inventory.ApplyResult{}, fmt.Errorf("number taken: %w", shared.ErrConflict)
		}
	}
	item := l.items[entry.ItemID]
	l.nextID++
	entry.ID = l.nextID
	item.CurrentStock += entry.EffectOnStock()
	l.items[item.ID] = item
	l.entries[entry.ID] = entry
	return inventory.ApplyResult{Entry: entry, NewStock: item.CurrentStock}, nil
}

func (l *fakeLedger) Edit(_ context.Context, entryID int64, updated inventory.Entry) (inventory.ApplyResult, error) {
	stored, ok := l.entries[entryID]
	if !ok {
		return inventory.ApplyResult{}, shared.ErrNotFound
	}
	item := l.items[stored.ItemID]
	item.CurrentStock -= stored.EffectOnStock()
	delta := updated.EffectOnStock()
	if item.CurrentStock+delta < 0 {
		return inventory.ApplyResult{}, &inventory.InsufficientStockError{ItemID: item.ID, Requested: updated.Quantity, Available: item.CurrentStock}
	}
	item.CurrentStock += delta
	updated.ID = stored.ID
	if updated.Number == "" {
		updated.Number = stored.Number
	}
	l.items[item.ID] = item
	l.entries[entryID] = updated
	return inventory.ApplyResult{Entry: updated, NewStock: item.CurrentStock}, nil
}

func (l *fakeLedger) Delete(_ context.Context, entryID int64) (int64, error) {
	stored, ok := l.entries[entryID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	item := l.items[stored.ItemID]
	item.CurrentStock -= stored.EffectOnStock()
	if item.CurrentStock < 0 {
		return 0, &inventory.InsufficientStockError{ItemID: item.ID, Requested: stored.Quantity, Available: item.CurrentStock + stored.EffectOnStock()}
	}
	l.items[item.ID] = item
	delete(l.entries, entryID)
	return item.CurrentStock, nil
}

func (l *fakeLedger) GetEntry(_ context.Context, id int64) (inventory.Entry, error) {
	entry, ok := l.entries[id]
	if !ok {
		return inventory.Entry{}, shared.ErrNotFound
	}
	return entry, nil
}

type sequenceNumbers struct {
	numbers []string
	calls   int
}

func (n *sequenceNumbers) Next(_ context.Context, _ time.Time) (string, error) {
	idx := n.calls
	if idx >= len(n.numbers) {
		idx = len(n.numbers) - 1
	}
	n.calls++
	return n.numbers[idx], nil
}

type fakeSuppliers struct {
	suppliers map[int64]Supplier
	nextID    int64
}

func newFakeSuppliers() *fakeSuppliers {
	return &fakeSuppliers{suppliers: make(map[int64]Supplier)}
}

func (f *fakeSuppliers) GetSupplier(_ context.Context, id int64) (Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (f *fakeSuppliers) ListSuppliers(_ context.Context, _ string, _ int) ([]Supplier, error) {
	out := []Supplier{}
	for _, s := range f.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSuppliers) CreateSupplier(_ context.Context, s Supplier) (int64, error) {
	f.nextID++
	s.ID = f.nextID
	f.suppliers[s.ID] = s
	return s.ID, nil
}

func (f *fakeSuppliers) UpdateSupplier(_ context.Context, s Supplier) error {
	if _, ok := f.suppliers[s.ID]; !ok {
		return shared.ErrNotFound
	}
	f.suppliers[s.ID] = s
	return nil
}

func (f *fakeSuppliers) DeleteSupplier(_ context.Context, id int64) error {
	if _, ok := f.suppliers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.suppliers, id)
	return nil
}

func (f *fakeSuppliers) GetPurchase(_ context.Context, _ int64) (Purchase, error) {
	return Purchase{}, shared.ErrNotFound
}

func (f *fakeSuppliers) ListPurchases(_ context.Context, _, _ time.Time, _ int) ([]Purchase, error) {
	return nil, nil
}

func dec(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func nullDec(v string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(v), Valid: true}
}

func TestCreatePurchaseWithExplicitCost(t *testing.T) {
	ledger := newFakeLedger()
	item := ledger.addItem(inventory.Item{Name: "Laptop", SKU: "SKU-001", CurrentStock: 2})
	numbers := &sequenceNumbers{numbers: []string{"PUR-20250615-001"}}
	svc := NewService(newFakeSuppliers(), ledger, ledger, numbers)

	purchase, err := svc.CreatePurchase(context.Background(), PurchaseInput{ItemID: item.ID, Quantity: 5, UnitCost: nullDec("80.00")})
	require.NoError(t, err)
	require.Equal(t, "PUR-20250615-001", purchase.Entry.Number)
	require.True(t, purchase.TotalCost.Equal(dec("400.00")))
	require.Equal(t, int64(7), ledger.items[item.ID].CurrentStock)
}

func TestCreatePurchaseDefaultsCostFromItem(t *testing.T) {
	ledger := newFakeLedger()
	item := ledger.addItem(inventory.Item{Name: "Laptop", SKU: "SKU-001", PurchasePrice: nullDec("75.25")})
	numbers := &sequenceNumbers{numbers: []string{"PUR-20250615-001"}}
	svc := NewService(newFakeSuppliers(), ledger, ledger, numbers)

	purchase, err := svc.CreatePurchase(context.Background(), PurchaseInput{ItemID: item.ID, Quantity: 2})
	require.NoError(t, err)
	require.True(t, purchase.Entry.UnitValue.Valid)
	require.True(t, purchase.Entry.UnitValue.Decimal.Equal(dec("75.25")))
	require.True(t, purchase.TotalCost.Equal(dec("150.50")))
}

func TestCreatePurchaseWithoutAnyCostFails(t *testing.T) {
	ledger := newFakeLedger()
	item := ledger.addItem(inventory.Item{Name: "Laptop", SKU: "SKU-001"})
	numbers := &sequenceNumbers{numbers: []string{"PUR-20250615-001"}}
	svc := NewService(newFakeSuppliers(), ledger, ledger, numbers)

	_, err := svc.CreatePurchase(context.Background(), PurchaseInput{ItemID: item.ID, Quantity: 2})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"No purchasing price set for this item."}, vErr.Fields["unit_cost"])
	require.Equal(t, int64(0), ledger.items[item.ID].CurrentStock)
}

func TestCreatePurchaseValidation(t *testing.T) {
	ledger := newFakeLedger()
	numbers := &sequenceNumbers{numbers: []string{"PUR-20250615-001"}}
	svc := NewService(newFakeSuppliers(), ledger, ledger, numbers)

	missing := int64(9)
	_, err := svc.CreatePurchase(context.Background(), PurchaseInput{ItemID: 1, SupplierID: &missing, Quantity: 0, UnitCost: nullDec("0")})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "item")
	require.Contains(t, vErr.Fields, "supplier")
	require.Contains(t, vErr.Fields, "quantity")
	require.Contains(t, vErr.Fields, "unit_cost")
}

func TestCreatePurchaseRetriesOnNumberConflict(t *testing.T) {
	ledger := newFakeLedger()
	item := ledger.addItem(inventory.Item{Name: "Laptop", SKU: "SKU-001"})
	_, err := ledger.Apply(context.Background(), inventory.Entry{ItemID: item.ID, Kind: inventory.KindPurchase, Quantity: 1, Number: "PUR-20250615-001"})
	require.NoError(t, err)

	numbers := &sequenceNumbers{numbers: []string{"PUR-20250615-001", "PUR-20250615-002"}}
	svc := NewService(newFakeSuppliers(), ledger, ledger, numbers)

	purchase, err := svc.CreatePurchase(context.Background(), PurchaseInput{ItemID: item.ID, Quantity: 1, UnitCost: nullDec("10.00")})
	require.NoError(t, err)
	require.Equal(t, "PUR-20250615-002", purchase.Entry.Number)
	require.Equal(t, 2, numbers.calls)
}

func TestUpdatePurchaseShrinkFailsWhenConsumed(t *testing.T) {
	ledger := newFakeLedger()
	item := ledger.addItem(inventory.Item{Name: "Laptop", SKU: "SKU-001"})
	numbers := &sequenceNumbers{numbers: []string{"PUR-20250615-001"}}
	svc := NewService(newFakeSuppliers(), ledger, ledger, numbers)

	purchase, err := svc.CreatePurchase(context.Background(), PurchaseInput{ItemID: item.ID, Quantity: 10, UnitCost: nullDec("10.00")})
	require.NoError(t, err)

	// Sell 8 of the 10 received, then try to shrink the purchase to 5.
	_, err = ledger.Apply(context.Background(), inventory.Entry{ItemID: item.ID, Kind: inventory.KindSale, Quantity: 8, Number: "SALE-20250615-001"})
	require.NoError(t, err)

	_, err = svc.UpdatePurchase(context.Background(), purchase.Entry.ID, PurchaseInput{ItemID: item.ID, Quantity: 5, UnitCost: nullDec("10.00")})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "quantity")
	require.Equal(t, int64(2), ledger.items[item.ID].CurrentStock)
}

func TestDeletePurchaseDeductsStock(t *testing.T) {
	ledger := newFakeLedger()
	item := ledger.addItem(inventory.Item{Name: "Laptop", SKU: "SKU-001"})
	numbers := &sequenceNumbers{numbers: []string{"PUR-20250615-001"}}
	svc := NewService(newFakeSuppliers(), ledger, ledger, numbers)

	purchase, err := svc.CreatePurchase(context.Background(), PurchaseInput{ItemID: item.ID, Quantity: 10, UnitCost: nullDec("10.00")})
	require.NoError(t, err)
	require.Equal(t, int64(10), ledger.items[item.ID].CurrentStock)

	require.NoError(t, svc.DeletePurchase(context.Background(), purchase.Entry.ID))
	require.Equal(t, int64(0), ledger.items[item.ID].CurrentStock)
}

func TestDeletePurchaseGuardsKindAndConsumption(t *testing.T) {
	ledger := newFakeLedger()
	item := ledger.addItem(inventory.Item{Name: "Laptop", SKU: "SKU-001", CurrentStock: 5})
	numbers := &sequenceNumbers{numbers: []string{"PUR-20250615-001"}}
	svc := NewService(newFakeSuppliers(), ledger, ledger, numbers)

	sale, err := ledger.Apply(context.Background(), inventory.Entry{ItemID: item.ID, Kind: inventory.KindSale, Quantity: 1, Number: "SALE-20250615-001"})
	require.NoError(t, err)
	require.ErrorIs(t, svc.DeletePurchase(context.Background(), sale.Entry.ID), shared.ErrNotFound)

	purchase, err := svc.CreatePurchase(context.Background(), PurchaseInput{ItemID: item.ID, Quantity: 10, UnitCost: nullDec("10.00")})
	require.NoError(t, err)
	_, err = ledger.Apply(context.Background(), inventory.Entry{ItemID: item.ID, Kind: inventory.KindSale, Quantity: 12, Number: "SALE-20250615-002"})
	require.NoError(t, err)

	err = svc.DeletePurchase(context.Background(), purchase.Entry.ID)
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "quantity")
}

func TestSupplierCRUD(t *testing.T) {
	svc := NewService(newFakeSuppliers(), newFakeLedger(), newFakeLedger(), &sequenceNumbers{numbers: []string{"PUR-1"}})
	ctx := context.Background()

	_, err := svc.CreateSupplier(ctx, SupplierInput{Name: ""})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "name")

	supplier, err := svc.CreateSupplier(ctx, SupplierInput{Name: "Parts Co", Phone: "555-0100"})
	require.NoError(t, err)
	require.NotZero(t, supplier.ID)

	updated, err := svc.UpdateSupplier(ctx, supplier.ID, SupplierInput{Name: "Parts Company"})
	require.NoError(t, err)
	require.Equal(t, "Parts Company", updated.Name)

	require.NoError(t, svc.DeleteSupplier(ctx, supplier.ID))
	_, err = svc.GetSupplier(ctx, supplier.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

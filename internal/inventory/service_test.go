package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	ledger := NewLedger(repo, nil)
	return NewService(repo, ledger, newFakeMaster()), repo
}

func TestCreateItemValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, ItemInput{})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "name")
	require.Contains(t, vErr.Fields, "sku")
	require.Contains(t, vErr.Fields, "unit")

	_, err = svc.CreateItem(ctx, ItemInput{Name: "Widget", SKU: "W-1", UnitID: 99})
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"Selected unit does not exist."}, vErr.Fields["unit"])

	bad := int64(-1)
	_, err = svc.CreateItem(ctx, ItemInput{Name: "Widget", SKU: "W-1", UnitID: 1, ReorderPoint: &bad})
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "reorder_point")
}

func TestCreateItemHonoursInitialStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	stock := int64(40)
	item, err := svc.CreateItem(ctx, ItemInput{Name: "Widget", SKU: "W-1", UnitID: 1, CurrentStock: &stock})
	require.NoError(t, err)
	require.Equal(t, int64(40), item.CurrentStock)

	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(40), stored.CurrentStock)
}

func TestCreateItemDuplicateSKU(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, ItemInput{Name: "Widget", SKU: "W-1", UnitID: 1})
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, ItemInput{Name: "Other", SKU: "W-1", UnitID: 1})
	var vErr *shared.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"An item with this SKU already exists."}, vErr.Fields["sku"])
}

func TestUpdateItemNeverTouchesStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	stock := int64(40)
	item, err := svc.CreateItem(ctx, ItemInput{Name: "Widget", SKU: "W-1", UnitID: 1, CurrentStock: &stock})
	require.NoError(t, err)

	// An update carrying a different stock value leaves the balance alone.
	sneaky := int64(999)
	updated, err := svc.UpdateItem(ctx, item.ID, ItemInput{Name: "Widget v2", SKU: "W-1", UnitID: 1, CurrentStock: &sneaky})
	require.NoError(t, err)
	require.Equal(t, "Widget v2", updated.Name)

	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(40), stored.CurrentStock)
}

func TestAdjustmentLifecycle(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	item := repo.addItem(Item{Name: "Widget", SKU: "W-1", CurrentStock: 10})

	result, err := svc.CreateAdjustment(ctx, AdjustmentInput{ItemID: item.ID, Type: AdjustmentIncrease, Quantity: 15})
	require.NoError(t, err)
	require.Equal(t, int64(25), result.NewStock)
	require.Equal(t, ReasonStockCount, result.Entry.Reason)

	result, err = svc.UpdateAdjustment(ctx, result.Entry.ID, AdjustmentInput{ItemID: item.ID, Type: AdjustmentIncrease, Quantity: 5, Reason: ReasonOther})
	require.NoError(t, err)
	require.Equal(t, int64(15), result.NewStock)

	newStock, err := svc.DeleteAdjustment(ctx, result.Entry.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), newStock)
}

func TestAdjustmentKindGuard(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	item := repo.addItem(Item{Name: "Widget", SKU: "W-1", CurrentStock: 10})

	ledger := NewLedger(repo, nil)
	sale, err := ledger.Apply(ctx, Entry{ItemID: item.ID, Kind: KindSale, Quantity: 2, Number: "SALE-20250101-001"})
	require.NoError(t, err)

	// Sale entries are invisible through the adjustment surface.
	_, err = svc.GetAdjustment(ctx, sale.Entry.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.DeleteAdjustment(ctx, sale.Entry.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	entries, err := svc.ListAdjustments(ctx, EntryFilter{})
	require.NoError(t, err)
	require.Empty(t, entries)
}

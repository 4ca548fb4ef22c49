package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stockflow-hq/stockflow/internal/masterdata"
	"github.com/stockflow-hq/stockflow/internal/shared"
)

// memoryRepo backs ledger and service tests without a database. WithTx
// snapshots state and restores it when the callback fails, mirroring a
// rollback.
type memoryRepo struct {
	items       map[int64]Item
	entries     map[int64]Entry
	alerts      map[int64]Alert
	nextItemID  int64
	nextEntryID int64
	nextAlertID int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:   make(map[int64]Item),
		entries: make(map[int64]Entry),
		alerts:  make(map[int64]Alert),
	}
}

func (r *memoryRepo) snapshot() *memoryRepo {
	clone := newMemoryRepo()
	for id, item := range r.items {
		clone.items[id] = item
	}
	for id, entry := range r.entries {
		clone.entries[id] = entry
	}
	for id, alert := range r.alerts {
		clone.alerts[id] = alert
	}
	clone.nextItemID = r.nextItemID
	clone.nextEntryID = r.nextEntryID
	clone.nextAlertID = r.nextAlertID
	return clone
}

func (r *memoryRepo) restore(snap *memoryRepo) {
	r.items = snap.items
	r.entries = snap.entries
	r.alerts = snap.alerts
	r.nextItemID = snap.nextItemID
	r.nextEntryID = snap.nextEntryID
	r.nextAlertID = snap.nextAlertID
}

func (r *memoryRepo) addItem(item Item) Item {
	r.nextItemID++
	item.ID = r.nextItemID
	r.items[item.ID] = item
	return item
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memoryRepo) GetItem(_ context.Context, id int64) (Item, error) {
	item, ok := r.items[id]
	if !ok {
		return Item{}, shared.ErrNotFound
	}
	return item, nil
}

func (r *memoryRepo) GetItemBySKU(_ context.Context, sku string) (Item, error) {
	for _, item := range r.items {
		if item.SKU == sku {
			return item, nil
		}
	}
	return Item{}, shared.ErrNotFound
}

func (r *memoryRepo) ListItems(_ context.Context, filter ItemFilter) ([]Item, error) {
	result := []Item{}
	for _, item := range r.items {
		if filter.Search != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.LowStock && (item.ReorderPoint == nil || item.CurrentStock > *item.ReorderPoint) {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memoryRepo) CreateItem(_ context.Context, item Item) (int64, error) {
	for _, existing := range r.items {
		if existing.SKU == item.SKU {
			return 0, fmt.Errorf("memory: sku taken: %w", shared.ErrConflict)
		}
	}
	return r.addItem(item).ID, nil
}

func (r *memoryRepo) UpdateItem(_ context.Context, item Item) error {
	stored, ok := r.items[item.ID]
	if !ok {
		return shared.ErrNotFound
	}
	// Pool-level update leaves the stock column alone.
	item.CurrentStock = stored.CurrentStock
	r.items[item.ID] = item
	return nil
}

func (r *memoryRepo) DeleteItem(_ context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) GetEntry(_ context.Context, id int64) (Entry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, shared.ErrNotFound
	}
	return entry, nil
}

func (r *memoryRepo) ListEntries(_ context.Context, filter EntryFilter) ([]Entry, error) {
	result := []Entry{}
	for _, entry := range r.entries {
		if filter.ItemID != 0 && entry.ItemID != filter.ItemID {
			continue
		}
		if filter.Kind != "" && entry.Kind != filter.Kind {
			continue
		}
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memoryRepo) ListAlerts(_ context.Context, onlyUnresolved bool, _ int) ([]Alert, error) {
	result := []Alert{}
	for _, alert := range r.alerts {
		if onlyUnresolved && alert.IsResolved {
			continue
		}
		result = append(result, alert)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tx *memoryTx) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	return tx.repo.GetItem(ctx, id)
}

func (tx *memoryTx) GetItemBySKUForUpdate(ctx context.Context, sku string) (Item, error) {
	return tx.repo.GetItemBySKU(ctx, sku)
}

func (tx *memoryTx) InsertItem(_ context.Context, item Item) (int64, error) {
	return tx.repo.addItem(item).ID, nil
}

func (tx *memoryTx) UpdateItem(_ context.Context, item Item) error {
	if _, ok := tx.repo.items[item.ID]; !ok {
		return shared.ErrNotFound
	}
	tx.repo.items[item.ID] = item
	return nil
}

func (tx *memoryTx) UpdateItemStock(_ context.Context, id int64, stock int64) error {
	item, ok := tx.repo.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	item.CurrentStock = stock
	tx.repo.items[id] = item
	return nil
}

func (tx *memoryTx) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	return tx.repo.GetEntry(ctx, id)
}

func (tx *memoryTx) InsertEntry(_ context.Context, entry Entry) (int64, error) {
	if entry.Number != "" {
		for _, existing := range tx.repo.entries {
			if existing.Number == entry.Number {
				return 0, fmt.Errorf("memory: number taken: %w", shared.ErrConflict)
			}
		}
	}
	tx.repo.nextEntryID++
	entry.ID = tx.repo.nextEntryID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	tx.repo.entries[entry.ID] = entry
	return entry.ID, nil
}

func (tx *memoryTx) UpdateEntry(_ context.Context, entry Entry) error {
	if _, ok := tx.repo.entries[entry.ID]; !ok {
		return shared.ErrNotFound
	}
	tx.repo.entries[entry.ID] = entry
	return nil
}

func (tx *memoryTx) DeleteEntry(_ context.Context, id int64) error {
	if _, ok := tx.repo.entries[id]; !ok {
		return shared.ErrNotFound
	}
	delete(tx.repo.entries, id)
	return nil
}

func (tx *memoryTx) UnresolvedAlert(_ context.Context, itemID int64, alertType string) (Alert, bool, error) {
	for _, alert := range tx.repo.alerts {
		if alert.ItemID == itemID && alert.AlertType == alertType && !alert.IsResolved {
			return alert, true, nil
		}
	}
	return Alert{}, false, nil
}

func (tx *memoryTx) InsertAlert(_ context.Context, alert Alert) error {
	tx.repo.nextAlertID++
	alert.ID = tx.repo.nextAlertID
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	tx.repo.alerts[alert.ID] = alert
	return nil
}

func (tx *memoryTx) ResolveAlerts(_ context.Context, itemID int64, alertType string) error {
	for id, alert := range tx.repo.alerts {
		if alert.ItemID == itemID && alert.AlertType == alertType && !alert.IsResolved {
			alert.IsResolved = true
			tx.repo.alerts[id] = alert
		}
	}
	return nil
}

// fakeMaster satisfies MasterDataPort with canned units and categories.
type fakeMaster struct {
	units      map[int64]masterdata.Unit
	categories map[int64]masterdata.Category
	nextID     int64
}

func newFakeMaster() *fakeMaster {
	m := &fakeMaster{
		units:      make(map[int64]masterdata.Unit),
		categories: make(map[int64]masterdata.Category),
		nextID:     100,
	}
	m.units[1] = masterdata.Unit{ID: 1, Name: "Pieces", Abbreviation: "pcs"}
	m.categories[1] = masterdata.Category{ID: 1, Name: "Electronics"}
	return m
}

func (m *fakeMaster) GetUnit(_ context.Context, id int64) (masterdata.Unit, error) {
	unit, ok := m.units[id]
	if !ok {
		return masterdata.Unit{}, shared.ErrNotFound
	}
	return unit, nil
}

func (m *fakeMaster) GetCategory(_ context.Context, id int64) (masterdata.Category, error) {
	category, ok := m.categories[id]
	if !ok {
		return masterdata.Category{}, shared.ErrNotFound
	}
	return category, nil
}

func (m *fakeMaster) ResolveOrCreateUnit(_ context.Context, value string) (masterdata.Unit, error) {
	for _, unit := range m.units {
		if strings.EqualFold(unit.Name, value) || strings.EqualFold(unit.Abbreviation, value) {
			return unit, nil
		}
	}
	m.nextID++
	unit := masterdata.Unit{ID: m.nextID, Name: value}
	m.units[unit.ID] = unit
	return unit, nil
}

func (m *fakeMaster) ResolveOrCreateCategory(_ context.Context, name string) (masterdata.Category, error) {
	if name == "" {
		return masterdata.Category{}, shared.ErrNotFound
	}
	for _, category := range m.categories {
		if strings.EqualFold(category.Name, name) {
			return category, nil
		}
	}
	m.nextID++
	category := masterdata.Category{ID: m.nextID, Name: name}
	m.categories[category.ID] = category
	return category, nil
}

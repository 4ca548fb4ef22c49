package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/stockflow-hq/stockflow/internal/audit"
)

// RepositoryPort abstracts repository usage for the ledger and services.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, id int64) (Item, error)
	GetItemBySKU(ctx context.Context, sku string) (Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	CreateItem(ctx context.Context, item Item) (int64, error)
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, id int64) error
	GetEntry(ctx context.Context, id int64) (Entry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	ListAlerts(ctx context.Context, onlyUnresolved bool, limit int) ([]Alert, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log audit.Log) error
}

// Ledger applies, reverses and re-applies entries against item stock under a
// transactional discipline. It owns the invariant that stock never goes
// negative and that current_stock always equals the sum of applied entries
// over the opening balance.
type Ledger struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewLedger builds a Ledger.
func NewLedger(repo RepositoryPort, auditor AuditPort) *Ledger {
	return &Ledger{repo: repo, audit: auditor}
}

// ApplyResult reports the persisted entry and the stock level after it.
type ApplyResult struct {
	Entry    Entry
	NewStock int64
}

// Apply validates and applies a new entry. Insert of the entry and the stock
// update are one transaction: either both persist or neither does.
func (l *Ledger) Apply(ctx context.Context, entry Entry) (ApplyResult, error) {
	if err := entry.Validate(); err != nil {
		return ApplyResult{}, err
	}
	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}

	var result ApplyResult
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, entry.ItemID)
		if err != nil {
			return err
		}
		delta := entry.EffectOnStock()
		if delta < 0 && item.CurrentStock+delta < 0 {
			return &InsufficientStockError{ItemID: item.ID, Requested: entry.Quantity, Available: item.CurrentStock}
		}
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		item.CurrentStock += delta
		if err := tx.UpdateItemStock(ctx, item.ID, item.CurrentStock); err != nil {
			return err
		}
		if err := EvaluateLowStock(ctx, tx, item); err != nil {
			return err
		}
		result = ApplyResult{Entry: entry, NewStock: item.CurrentStock}
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	l.record(ctx, entry.CreatedBy, "apply", result.Entry, result.NewStock)
	return result, nil
}

// Edit reverses the stored entry's effect on its original item, then applies
// the updated entry to its (possibly different) item, as one atomic step.
// Decrease validation runs against the already-reversed stock level, so
// shrinking an existing DECREASE is never falsely rejected.
func (l *Ledger) Edit(ctx context.Context, entryID int64, updated Entry) (ApplyResult, error) {
	var result ApplyResult
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stored, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if stored.Kind != updated.Kind {
			return fmt.Errorf("inventory: entry %d is a %s, not a %s", entryID, stored.Kind, updated.Kind)
		}

		origItem, err := tx.GetItemForUpdate(ctx, stored.ItemID)
		if err != nil {
			return err
		}
		// Reversal keys off the stored direction, never the incoming form.
		origItem.CurrentStock -= stored.EffectOnStock()

		target := origItem
		if updated.ItemID != stored.ItemID {
			target, err = tx.GetItemForUpdate(ctx, updated.ItemID)
			if err != nil {
				return err
			}
		}

		delta := updated.EffectOnStock()
		if delta < 0 && target.CurrentStock+delta < 0 {
			return &InsufficientStockError{ItemID: target.ID, Requested: updated.Quantity, Available: target.CurrentStock}
		}
		target.CurrentStock += delta
		// Moving a decrease off an item can never fail, but reversing an
		// increase may drive the original item negative.
		if origItem.ID != target.ID && origItem.CurrentStock < 0 {
			return &InsufficientStockError{ItemID: origItem.ID, Requested: stored.Quantity, Available: origItem.CurrentStock + stored.EffectOnStock()}
		}

		updated.ID = stored.ID
		updated.CreatedAt = stored.CreatedAt
		if updated.Number == "" {
			updated.Number = stored.Number
		}
		if updated.Date.IsZero() {
			updated.Date = stored.Date
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateEntry(ctx, updated); err != nil {
			return err
		}

		if origItem.ID != target.ID {
			if err := tx.UpdateItemStock(ctx, origItem.ID, origItem.CurrentStock); err != nil {
				return err
			}
			if err := EvaluateLowStock(ctx, tx, origItem); err != nil {
				return err
			}
		}
		if err := tx.UpdateItemStock(ctx, target.ID, target.CurrentStock); err != nil {
			return err
		}
		if err := EvaluateLowStock(ctx, tx, target); err != nil {
			return err
		}
		result = ApplyResult{Entry: updated, NewStock: target.CurrentStock}
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	l.record(ctx, updated.CreatedBy, "edit", result.Entry, result.NewStock)
	return result, nil
}

// Delete reverses the stored entry's effect and removes it. The reversal is
// never skipped; deleting an increase that the item's stock no longer covers
// fails rather than leaving a negative balance behind.
func (l *Ledger) Delete(ctx context.Context, entryID int64) (int64, error) {
	var (
		newStock int64
		deleted  Entry
	)
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stored, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		item, err := tx.GetItemForUpdate(ctx, stored.ItemID)
		if err != nil {
			return err
		}
		item.CurrentStock -= stored.EffectOnStock()
		if item.CurrentStock < 0 {
			return &InsufficientStockError{ItemID: item.ID, Requested: stored.Quantity, Available: item.CurrentStock + stored.EffectOnStock()}
		}
		if err := tx.DeleteEntry(ctx, stored.ID); err != nil {
			return err
		}
		if err := tx.UpdateItemStock(ctx, item.ID, item.CurrentStock); err != nil {
			return err
		}
		if err := EvaluateLowStock(ctx, tx, item); err != nil {
			return err
		}
		newStock = item.CurrentStock
		deleted = stored
		return nil
	})
	if err != nil {
		return 0, err
	}
	l.record(ctx, deleted.CreatedBy, "delete", deleted, newStock)
	return newStock, nil
}

// GetEntry loads one entry, mapping missing rows to shared.ErrNotFound.
func (l *Ledger) GetEntry(ctx context.Context, id int64) (Entry, error) {
	return l.repo.GetEntry(ctx, id)
}

func (l *Ledger) record(ctx context.Context, actorID int64, action string, entry Entry, newStock int64) {
	if l.audit == nil {
		return
	}
	_ = l.audit.Record(ctx, audit.Log{
		ActorID:  actorID,
		Action:   fmt.Sprintf("ledger:%s", action),
		Entity:   "ledger_entry",
		EntityID: fmt.Sprintf("%s:%d", entry.Kind, entry.ID),
		Meta: map[string]any{
			"item_id":   entry.ItemID,
			"kind":      string(entry.Kind),
			"quantity":  entry.Quantity,
			"new_stock": newStock,
		},
	})
}

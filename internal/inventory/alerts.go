package inventory

import (
	"context"
	"fmt"
)

// EvaluateLowStock reconciles an item's low-stock alert state with its
// current balance. It runs inside the same transaction as the stock change
// that triggered it, and is idempotent: at most one unresolved low_stock
// alert exists per item, and re-evaluating an unchanged state writes nothing.
func EvaluateLowStock(ctx context.Context, tx TxRepository, item Item) error {
	if item.ReorderPoint == nil {
		return nil
	}
	if item.CurrentStock <= *item.ReorderPoint {
		_, found, err := tx.UnresolvedAlert(ctx, item.ID, AlertTypeLowStock)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
		alert := Alert{
			ItemID:    item.ID,
			AlertType: AlertTypeLowStock,
			Message: fmt.Sprintf("Stock for '%s' is low (Current: %d, Reorder Point: %d)",
				item.Name, item.CurrentStock, *item.ReorderPoint),
		}
		return tx.InsertAlert(ctx, alert)
	}
	// Stock recovered: resolve, never delete, existing alerts.
	return tx.ResolveAlerts(ctx, item.ID, AlertTypeLowStock)
}

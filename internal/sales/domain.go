// Package sales manages customers and sale entries. Every sale's stock
// effect flows through the inventory ledger.
package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockflow-hq/stockflow/internal/inventory"
)

// NumberPrefix is the document number prefix for sales.
const NumberPrefix = "SALE"

// Customer is a sale counterparty. All contact fields are optional.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
}

// Sale is a SALE ledger entry enriched with the data callers display.
type Sale struct {
	Entry        inventory.Entry
	ItemName     string
	ItemSKU      string
	CustomerName string
	Total        decimal.Decimal
	Discount     decimal.Decimal
}

// SaleInput carries sale create/update fields.
type SaleInput struct {
	ItemID      int64
	CustomerID  *int64
	Quantity    int64
	UnitPrice   decimal.Decimal
	Description string
	Date        time.Time
	ActorID     int64
}

// Discount returns how far below the item's selling price this sale went,
// floored at zero. Items without a selling price never discount.
func Discount(item inventory.Item, quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	if !item.SellingPrice.Valid {
		return decimal.Zero
	}
	qty := decimal.NewFromInt(quantity)
	expected := item.SellingPrice.Decimal.Mul(qty)
	actual := unitPrice.Mul(qty)
	diff := expected.Sub(actual)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// CustomerInput carries customer create/update fields.
type CustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

func decimalNull(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func decimalFromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

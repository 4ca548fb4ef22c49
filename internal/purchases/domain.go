// Package purchases manages suppliers and purchase entries. Every
// purchase's stock effect flows through the inventory ledger.
package purchases

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockflow-hq/stockflow/internal/inventory"
)

// NumberPrefix is the document number prefix for purchases.
const NumberPrefix = "PUR"

// Supplier is a purchase counterparty. All contact fields are optional.
type Supplier struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
}

// Purchase is a PURCHASE ledger entry enriched with display context.
type Purchase struct {
	Entry        inventory.Entry
	ItemName     string
	ItemSKU      string
	SupplierName string
	TotalCost    decimal.Decimal
}

// PurchaseInput carries purchase create/update fields. UnitCost may be left
// unset, in which case the item's purchase price is used.
type PurchaseInput struct {
	ItemID      int64
	SupplierID  *int64
	Quantity    int64
	UnitCost    decimal.NullDecimal
	Description string
	Date        time.Time
	ActorID     int64
}

// SupplierInput carries supplier create/update fields.
type SupplierInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

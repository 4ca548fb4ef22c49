package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind enumerates the ledger entry variants.
type EntryKind string

const (
	// KindAdjustment is a manual stock correction.
	KindAdjustment EntryKind = "ADJUSTMENT"
	// KindSale decreases stock.
	KindSale EntryKind = "SALE"
	// KindPurchase increases stock.
	KindPurchase EntryKind = "PURCHASE"
)

// AdjustmentType gives an adjustment its direction.
type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "INCREASE"
	AdjustmentDecrease AdjustmentType = "DECREASE"
)

// Adjustment reasons carried over from the bookkeeping conventions.
const (
	ReasonPurchase   = "PURCHASE"
	ReasonSale       = "SALE"
	ReasonStockCount = "STOCK_COUNT"
	ReasonStolen     = "STOLEN"
	ReasonDamaged    = "DAMAGED"
	ReasonOther      = "OTHER"
)

// Item owns the authoritative running stock balance. CurrentStock is only
// ever mutated through the ledger, never written directly by callers.
type Item struct {
	ID            int64
	Name          string
	SKU           string
	UnitID        int64
	CategoryID    *int64
	SellingPrice  decimal.NullDecimal
	PurchasePrice decimal.NullDecimal
	OpeningStock  *int64
	ReorderPoint  *int64
	CurrentStock  int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Entry is one ledger record. Adjustments, sales and purchases share this
// shape; Kind plus AdjustmentType determine the signed effect on stock.
type Entry struct {
	ID             int64
	ItemID         int64
	Kind           EntryKind
	AdjustmentType AdjustmentType
	Quantity       int64
	UnitValue      decimal.NullDecimal
	Number         string
	CounterpartyID *int64
	Reason         string
	Description    string
	Date           time.Time
	CreatedBy      int64
	CreatedAt      time.Time
}

// EffectOnStock returns the signed stock delta this entry causes when
// applied. Reversal is always the negation of this value.
func (e Entry) EffectOnStock() int64 {
	switch e.Kind {
	case KindPurchase:
		return e.Quantity
	case KindSale:
		return -e.Quantity
	case KindAdjustment:
		if e.AdjustmentType == AdjustmentDecrease {
			return -e.Quantity
		}
		return e.Quantity
	}
	return 0
}

// Validate checks the structural invariants of an entry before it reaches
// the ledger.
func (e Entry) Validate() error {
	if e.ItemID == 0 {
		return ErrItemRequired
	}
	if e.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	switch e.Kind {
	case KindAdjustment:
		if e.AdjustmentType != AdjustmentIncrease && e.AdjustmentType != AdjustmentDecrease {
			return ErrInvalidAdjustmentType
		}
	case KindSale, KindPurchase:
		if e.Number == "" {
			return ErrNumberRequired
		}
	default:
		return fmt.Errorf("inventory: unknown entry kind %q", e.Kind)
	}
	if e.UnitValue.Valid && e.UnitValue.Decimal.IsNegative() {
		return ErrInvalidUnitValue
	}
	return nil
}

// Alert flags an item whose stock fell to or below its reorder point.
type Alert struct {
	ID              int64
	ItemID          int64
	AlertType       string
	Message         string
	IsResolved      bool
	NotifiedByEmail bool
	CreatedAt       time.Time
}

// AlertTypeLowStock is the only alert type currently raised.
const AlertTypeLowStock = "low_stock"

// ItemFilter narrows item listings.
type ItemFilter struct {
	Search     string
	CategoryID int64
	LowStock   bool
	Limit      int
	Offset     int
}

// EntryFilter narrows ledger entry listings.
type EntryFilter struct {
	ItemID int64
	Kind   EntryKind
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

var (
	// ErrItemRequired indicates the entry references no item.
	ErrItemRequired = errors.New("inventory: item required")
	// ErrInvalidQuantity indicates a zero or negative quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
	// ErrInvalidAdjustmentType indicates an unknown adjustment direction.
	ErrInvalidAdjustmentType = errors.New("inventory: adjustment type must be INCREASE or DECREASE")
	// ErrInvalidUnitValue indicates a negative price or cost.
	ErrInvalidUnitValue = errors.New("inventory: unit value must not be negative")
	// ErrNumberRequired indicates a sale or purchase without a document number.
	ErrNumberRequired = errors.New("inventory: document number required")
	// ErrInsufficientStock is matched by errors.Is against *InsufficientStockError.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// InsufficientStockError reports a decrease larger than the available stock.
// Nothing is persisted when it is returned.
type InsufficientStockError struct {
	ItemID    int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cannot decrease stock by %d, only %d in stock", e.Requested, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

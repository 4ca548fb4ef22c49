package inventory

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

// importColumns is the template header, in order.
var importColumns = []string{
	"name", "sku", "unit", "category",
	"selling_price", "purchase_price",
	"opening_stock", "reorder_point", "current_stock",
}

// RowError records why one CSV row failed.
type RowError struct {
	RowNum   int               `json:"row_num"`
	Data     map[string]string `json:"data"`
	Messages []string          `json:"messages"`
}

// ImportResult aggregates the outcome of a bulk import. BatchID identifies
// the run in logs and audit records.
type ImportResult struct {
	BatchID           string     `json:"batch_id"`
	TotalRows         int        `json:"total_rows"`
	SuccessfulImports int        `json:"successful_imports"`
	FailedImports     int        `json:"failed_imports"`
	Errors            []RowError `json:"errors"`
}

// Importer parses uploaded CSV files into item upserts. Rows are processed
// independently inside per-row transactions: one bad row never aborts the
// rest.
type Importer struct {
	repo   RepositoryPort
	master MasterDataPort
}

// NewImporter builds Importer.
func NewImporter(repo RepositoryPort, master MasterDataPort) *Importer {
	return &Importer{repo: repo, master: master}
}

// Template returns the CSV template: the header row plus one sample row.
func Template() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(importColumns)
	_ = w.Write([]string{
		"Sample Item A", "SKU-001", "Pieces", "Electronics",
		"100.50", "75.25", "100", "20", "100",
	})
	w.Flush()
	return buf.Bytes()
}

// ImportItems reads CSV rows from r and upserts items by SKU. The returned
// result carries per-row errors; the error return is reserved for problems
// that stop the whole import (unreadable input, missing headers).
func (imp *Importer) ImportItems(ctx context.Context, r io.Reader) (ImportResult, error) {
	batchID := uuid.NewString()
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ImportResult{BatchID: batchID, Errors: []RowError{{RowNum: 0, Data: map[string]string{}, Messages: []string{"The CSV file is empty."}}}}, nil
		}
		return ImportResult{}, fmt.Errorf("read csv header: %w", err)
	}

	colIndex := map[string]int{}
	for i, h := range header {
		colIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range importColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return ImportResult{}, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, row)
	}

	result := ImportResult{BatchID: batchID, TotalRows: len(rows)}
	if len(missing) > 0 {
		result.FailedImports = len(rows)
		result.Errors = []RowError{{
			RowNum:   0,
			Data:     map[string]string{},
			Messages: []string{"CSV headers do not match the template. Missing: " + strings.Join(missing, ", ")},
		}}
		return result, nil
	}

	for i, row := range rows {
		rowNum := i + 2 // header row is 1
		data := map[string]string{}
		for _, col := range importColumns {
			idx := colIndex[col]
			if idx < len(row) {
				data[col] = strings.TrimSpace(row[idx])
			} else {
				data[col] = ""
			}
		}
		messages := imp.importRow(ctx, data)
		if len(messages) > 0 {
			result.FailedImports++
			result.Errors = append(result.Errors, RowError{RowNum: rowNum, Data: data, Messages: messages})
			continue
		}
		result.SuccessfulImports++
	}
	return result, nil
}

// importRow validates one row and upserts the item. Returns user-facing
// messages when the row is rejected.
func (imp *Importer) importRow(ctx context.Context, data map[string]string) []string {
	var messages []string

	name := data["name"]
	if name == "" {
		messages = append(messages, "Name is required.")
	}
	sku := data["sku"]
	if sku == "" {
		messages = append(messages, "SKU is required.")
	}

	var unitID int64
	if data["unit"] == "" {
		messages = append(messages, "Unit of Measure is required.")
	} else {
		unit, err := imp.master.ResolveOrCreateUnit(ctx, data["unit"])
		if err != nil {
			messages = append(messages, fmt.Sprintf("Error processing Unit of Measure '%s': %s", data["unit"], shared.UserSafeMessage(err)))
		} else {
			unitID = unit.ID
		}
	}

	var categoryID *int64
	if data["category"] != "" {
		category, err := imp.master.ResolveOrCreateCategory(ctx, data["category"])
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			messages = append(messages, fmt.Sprintf("Error processing Category '%s': %s", data["category"], shared.UserSafeMessage(err)))
		} else if err == nil {
			categoryID = &category.ID
		}
	}

	sellingPrice := parsePrice(data["selling_price"], "Selling price", &messages)
	purchasePrice := parsePrice(data["purchase_price"], "Purchase price", &messages)
	openingStock := parseCount(data["opening_stock"], "Opening stock", &messages)
	reorderPoint := parseCount(data["reorder_point"], "Reorder point", &messages)

	var currentStock int64
	if v := parseCount(data["current_stock"], "Current stock", &messages); v != nil {
		currentStock = *v
	}

	if len(messages) > 0 {
		return messages
	}

	err := imp.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetItemBySKUForUpdate(ctx, sku)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		item := Item{
			Name:          name,
			SKU:           sku,
			UnitID:        unitID,
			CategoryID:    categoryID,
			SellingPrice:  sellingPrice,
			PurchasePrice: purchasePrice,
			OpeningStock:  openingStock,
			ReorderPoint:  reorderPoint,
			CurrentStock:  currentStock,
		}
		if errors.Is(err, shared.ErrNotFound) {
			_, err := tx.InsertItem(ctx, item)
			return err
		}
		item.ID = existing.ID
		return tx.UpdateItem(ctx, item)
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return []string{fmt.Sprintf("SKU '%s' already exists. Item not imported/updated to avoid duplication.", sku)}
		}
		return []string{"An unexpected error occurred: " + shared.UserSafeMessage(err)}
	}
	return nil
}

func parsePrice(value, label string, messages *[]string) decimal.NullDecimal {
	if value == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		*messages = append(*messages, "Invalid "+strings.ToLower(label)+" format.")
		return decimal.NullDecimal{}
	}
	if d.IsNegative() {
		*messages = append(*messages, label+" cannot be negative.")
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func parseCount(value, label string, messages *[]string) *int64 {
	if value == "" {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		*messages = append(*messages, "Invalid "+strings.ToLower(label)+" format (must be a whole number).")
		return nil
	}
	if n < 0 {
		*messages = append(*messages, label+" cannot be negative.")
		return nil
	}
	return &n
}

package inventory

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const importHeader = "name,sku,unit,category,selling_price,purchase_price,opening_stock,reorder_point,current_stock\n"

func newTestImporter() (*Importer, *memoryRepo) {
	repo := newMemoryRepo()
	return NewImporter(repo, newFakeMaster()), repo
}

func TestImportItemsCreatesAndUpdates(t *testing.T) {
	imp, repo := newTestImporter()
	ctx := context.Background()

	csvData := importHeader +
		"Laptop,SKU-001,Pieces,Electronics,1200.00,900.00,10,2,10\n" +
		"Mouse,SKU-002,Pieces,,25.50,15.00,,,40\n"
	result, err := imp.ImportItems(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalRows)
	require.Equal(t, 2, result.SuccessfulImports)
	require.Zero(t, result.FailedImports)

	laptop, err := repo.GetItemBySKU(ctx, "SKU-001")
	require.NoError(t, err)
	require.Equal(t, "Laptop", laptop.Name)
	require.Equal(t, int64(10), laptop.CurrentStock)
	require.NotNil(t, laptop.CategoryID)
	require.True(t, laptop.SellingPrice.Valid)
	require.True(t, laptop.SellingPrice.Decimal.Equal(decimal.NewFromInt(1200)))

	mouse, err := repo.GetItemBySKU(ctx, "SKU-002")
	require.NoError(t, err)
	require.Nil(t, mouse.CategoryID)

	// Re-importing the same SKU updates in place instead of duplicating.
	result, err = imp.ImportItems(ctx, strings.NewReader(importHeader+"Laptop Pro,SKU-001,Pieces,Electronics,1500.00,,10,2,7\n"))
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessfulImports)

	updated, err := repo.GetItemBySKU(ctx, "SKU-001")
	require.NoError(t, err)
	require.Equal(t, laptop.ID, updated.ID)
	require.Equal(t, "Laptop Pro", updated.Name)
	require.Equal(t, int64(7), updated.CurrentStock)
	items, err := repo.ListItems(ctx, ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestImportItemsPerRowErrors(t *testing.T) {
	imp, repo := newTestImporter()
	ctx := context.Background()

	csvData := importHeader +
		",SKU-001,Pieces,,,,,,\n" +
		"Widget,,Pieces,,,,,,\n" +
		"Widget,SKU-002,,,abc,,-1,,\n" +
		"Fine,SKU-003,Pieces,,,,,,\n"
	result, err := imp.ImportItems(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 4, result.TotalRows)
	require.Equal(t, 1, result.SuccessfulImports)
	require.Equal(t, 3, result.FailedImports)
	require.Len(t, result.Errors, 3)

	require.Equal(t, 2, result.Errors[0].RowNum)
	require.Contains(t, result.Errors[0].Messages, "Name is required.")
	require.Contains(t, result.Errors[1].Messages, "SKU is required.")
	require.Contains(t, result.Errors[2].Messages, "Unit of Measure is required.")
	require.Contains(t, result.Errors[2].Messages, "Invalid selling price format.")
	require.Contains(t, result.Errors[2].Messages, "Opening stock cannot be negative.")

	// Failed rows leave no partial items behind.
	_, err = repo.GetItemBySKU(ctx, "SKU-002")
	require.Error(t, err)
	_, err = repo.GetItemBySKU(ctx, "SKU-003")
	require.NoError(t, err)
}

func TestImportItemsMissingHeaders(t *testing.T) {
	imp, _ := newTestImporter()

	result, err := imp.ImportItems(context.Background(), strings.NewReader("name,sku\nWidget,SKU-001\n"))
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalRows)
	require.Equal(t, 1, result.FailedImports)
	require.Zero(t, result.SuccessfulImports)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0].Messages[0], "CSV headers do not match the template.")
}

func TestImportItemsEmptyFile(t *testing.T) {
	imp, _ := newTestImporter()

	result, err := imp.ImportItems(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	require.Zero(t, result.TotalRows)
	require.Len(t, result.Errors, 1)
	require.Equal(t, []string{"The CSV file is empty."}, result.Errors[0].Messages)
}

func TestImportTemplateRoundTrips(t *testing.T) {
	imp, _ := newTestImporter()

	result, err := imp.ImportItems(context.Background(), strings.NewReader(string(Template())))
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalRows)
	require.Equal(t, 1, result.SuccessfulImports)
}

package analytics

import (
	"time"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary    = "Summary"
	SheetOrders     = "Orders"
	SheetCategories = "Categories"
	SheetStock      = "Stock"
)

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// writeSummarySheet renames the default sheet so the summary opens first.
func writeSummarySheet(f *excelize.File, dash *Dashboard) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return err
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Generated at", dash.GeneratedAt.Format(time.RFC3339)},
		{"Total orders", dash.TotalOrders},
		{"Total products", dash.TotalProducts},
		{"Revenue", dash.Financials.Revenue.StringFixed(2)},
		{"Cost", dash.Financials.Cost.StringFixed(2)},
		{"Profit", dash.Financials.Profit.StringFixed(2)},
		{"Stock value", dash.StockValue.StringFixed(2)},
		{"Low stock items", dash.LowStockCount},
		{"Out of stock items", dash.OutOfStockCount},
	}
	return writeRows(f, SheetSummary, rows)
}

func writeOrdersSheet(f *excelize.File, orders []models.Order) error {
	if _, err := f.NewSheet(SheetOrders); err != nil {
		return err
	}
	rows := [][]any{{"Order ID", "Created At", "Lines", "Units", "Subtotal", "Tax", "Total"}}
	for _, order := range orders {
		units := 0
		for _, line := range order.Lines {
			units += line.Qty
		}
		rows = append(rows, []any{
			order.ID.String(),
			order.CreatedAt.UTC().Format(time.RFC3339),
			len(order.Lines),
			units,
			order.Subtotal.StringFixed(2),
			order.Tax.StringFixed(2),
			order.Total.StringFixed(2),
		})
	}
	return writeRows(f, SheetOrders, rows)
}

func writeCategoriesSheet(f *excelize.File, sales []CategorySales) error {
	if _, err := f.NewSheet(SheetCategories); err != nil {
		return err
	}
	rows := [][]any{{"Category", "Items", "Units Sold", "Revenue"}}
	for _, c := range sales {
		rows = append(rows, []any{c.Category, c.Items, c.Units, c.Revenue.StringFixed(2)})
	}
	return writeRows(f, SheetCategories, rows)
}

func writeStockSheet(f *excelize.File, catalog []models.Item) error {
	if _, err := f.NewSheet(SheetStock); err != nil {
		return err
	}
	rows := [][]any{{"Item", "Category", "Stock", "Band", "Sell Price", "Cost Price"}}
	for _, item := range catalog {
		rows = append(rows, []any{
			item.Name,
			item.Category,
			item.Stock,
			string(enums.BandForStock(item.Stock)),
			item.SellPrice.StringFixed(2),
			item.CostPrice.StringFixed(2),
		})
	}
	return writeRows(f, SheetStock, rows)
}

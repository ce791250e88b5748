// Package export renders order lists as Excel workbooks for couriers.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/nirvaan-oms/api/internal/cart"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet in every export.
const SheetName = "Orders"

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []any{
	"Order ID", "Date", "Customer", "Address", "Mobile", "Mobile 2",
	"Products", "Quantity", "Status", "Total",
}

var widths = map[string]float64{
	"A": 16, "B": 18, "C": 24, "D": 40, "E": 15, "F": 15,
	"G": 48, "H": 10, "I": 12, "J": 14,
}

// Filename names an export generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("courier-orders-%s.xlsx", t.Format("2006-01-02"))
}

// WriteOrders writes one row per order, newest first as given. Product
// columns are decoded against catalog, so multi-product orders show every
// line. Times are rendered in loc.
func WriteOrders(w io.Writer, orders []database.Order, catalog pricing.Catalog, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for col, width := range widths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("column width %s: %w", col, err)
		}
	}

	grand := decimal.Zero
	for i, o := range orders {
		decoded := cart.Decode(cart.Record{
			ProductID:   o.ProductID,
			ProductName: o.ProductName,
			Quantity:    o.Quantity,
			Notes:       o.Notes.String,
		}, catalog)

		qty := 0
		for _, l := range decoded.Lines {
			qty += l.Quantity
		}

		total := service.NumericToDecimal(o.TotalAmount)
		grand = grand.Add(total)

		row := []any{
			o.OrderCode,
			o.CreatedAt.Time.In(loc).Format("2006-01-02 15:04"),
			o.FullName,
			o.Address,
			o.Mobile,
			o.Mobile2.String,
			decoded.Describe(),
			qty,
			string(o.Status),
			total.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	footer := len(orders) + 2
	if err := f.SetCellValue(SheetName, fmt.Sprintf("I%d", footer), "Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, fmt.Sprintf("J%d", footer), grand.InexactFloat64()); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, footer, footer, bold); err != nil {
		return err
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Package export renders booking lists as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"staybook/internal/domain"
)

const bookingsSheet = "Bookings"

var bookingHeaders = []string{"ID", "Property", "Check-in", "Check-out", "Nights", "Guests", "Payment", "Subtotal", "Cleaning", "Service fee", "Discount", "Total", "Currency"}

// Bookings writes bs as a single-sheet xlsx workbook to w.
func Bookings(w io.Writer, bs []domain.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(bookingsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(bookingsSheet); err == nil {
		f.SetActiveSheet(index)
	}

	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(bookingsSheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
	if err := f.SetCellStyle(bookingsSheet, "A1", last, header); err != nil {
		return err
	}

	for i, b := range bs {
		row := []any{
			b.ID,
			propertyLabel(b),
			b.CheckIn.Format("2006-01-02"),
			b.CheckOut.Format("2006-01-02"),
			b.Nights(),
			b.Guests(),
			string(b.PaymentStatus),
			b.Totals.Subtotal,
			b.Totals.Cleaning,
			b.Totals.ServiceFee,
			b.Totals.Discount,
			b.Totals.Total,
			b.Totals.Currency,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(bookingsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 8)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 30)
	_ = f.SetColWidth(bookingsSheet, "C", "D", 12)
	_ = f.SetColWidth(bookingsSheet, "E", "M", 11)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func propertyLabel(b domain.Booking) string {
	if b.Property != nil && b.Property.Title != "" {
		return b.Property.Title
	}
	return fmt.Sprintf("#%d", b.PropertyID)
}

package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"lendit/internal/domain"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{"ID", "Item", "Booker", "Owner", "Start", "End", "Status", "Created"}

// Exporter renders booking ranges as XLSX reports.
type Exporter struct {
	repo domain.Repository
}

func NewExporter(repo domain.Repository) *Exporter {
	return &Exporter{repo: repo}
}

// WriteRange writes all bookings intersecting [from, to) as a spreadsheet.
func (e *Exporter) WriteRange(ctx context.Context, w io.Writer, from, to time.Time) error {
	bookings, err := e.repo.GetBookingsByDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to load bookings for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, b := range bookings {
		row := i + 2
		values := []interface{}{
			b.ID,
			b.ItemID,
			b.BookerID,
			b.OwnerID,
			b.StartTime.Format(time.RFC3339),
			b.EndTime.Format(time.RFC3339),
			b.Status.String(),
			b.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

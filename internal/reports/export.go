package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var dsrHeaders = []string{
	"Product",
	"Opening Full", "Opening Empty",
	"Received Full", "Received Empty", "Received Defective",
	"Load Assigned", "Delivered Full",
	"Empty Collected", "Unsold Full", "Defective Moved",
	"Closing Full", "Closing Empty",
}

// ExportDSR renders the daily sales register as an xlsx workbook.
func ExportDSR(report DSRReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "DSR"
	f.SetSheetName("Sheet1", sheet)

	if err := f.SetCellValue(sheet, "A1", fmt.Sprintf("Daily Sales Register %s", report.Date.Format("2006-01-02"))); err != nil {
		return nil, err
	}
	for i, h := range dsrHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, row := range report.Rows {
		name := row.ProductName
		if name == "" {
			name = fmt.Sprintf("#%d", row.ProductID)
		}
		values := []any{
			name,
			row.Opening.Full, row.Opening.Empty,
			row.ReceivedFull, row.ReceivedEmpty, row.ReceivedDefective,
			row.LoadAssigned, row.DeliveredFull,
			row.EmptyCollected, row.UnsoldFull, row.DefectiveMoved,
			row.Closing.Full, row.Closing.Empty,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+3)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "B", "M", 14); err != nil {
		return nil, err
	}
	return f, nil
}

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/referral-labels/internal/model"
)

// SheetName is the worksheet holding the label rows.
const SheetName = "Mailing Labels"

// ExcelHeader is the first row of the workbook.
var ExcelHeader = []string{"Name", "Address 1", "Address 2", "City", "State", "ZIP"}

// Column widths in characters, matching ExcelHeader.
var excelColumnWidths = []float64{30, 30, 20, 20, 8, 12}

// WriteExcel writes one row per label after the header and returns the
// number of label rows written.
func WriteExcel(w io.Writer, labels []model.MailingLabelData, format NameFormat) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(ExcelHeader))
	for i, h := range ExcelHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ExcelHeader))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return 0, fmt.Errorf("style header: %w", err)
	}

	for i, width := range excelColumnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return 0, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, l := range labels {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := []interface{}{LabelName(l, format), l.Address1, l.Address2, l.City, l.State, l.Zip}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return 0, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(labels), nil
}

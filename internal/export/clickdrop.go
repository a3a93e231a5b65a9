package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"labelops/internal/fsutil"
)

const clickDropSheet = "Sheet1"

// WriteClickDropImportXLSX writes rows verbatim to the first sheet of a new
// workbook at path. There is no header row.
func WriteClickDropImportXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		values := row
		if err := f.SetSheetRow(clickDropSheet, cell, &values); err != nil {
			return fmt.Errorf("set row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	if err := fsutil.WriteAtomic(path, buf.Bytes(), fsutil.FileOptions{}); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadClickDropRows returns the non-empty rows of the workbook's first sheet.
func ReadClickDropRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	return rows, nil
}

package export

import (
	"fmt"
	_ "image/jpeg"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/heimdex/heimdex-marks/internal/report"
)

const thumbnailRowHeight = 75

var xlsxColumns = []struct {
	name   string
	header string
	width  float64
}{
	{"A", "Location", 60},
	{"B", "Frames", 12},
	{"C", "Timecodes", 25},
	{"D", "Thumbnails", 20},
}

// WriteXLSX writes one spreadsheet row per enriched row with its thumbnail
// anchored in column D.
func WriteXLSX(path string, rows []report.EnrichedRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := make([]any, len(xlsxColumns))
	for i, col := range xlsxColumns {
		if err := f.SetColWidth(sheet, col.name, col.name, col.width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
		header[i] = col.header
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		n := i + 2
		if err := f.SetRowHeight(sheet, n, thumbnailRowHeight); err != nil {
			return fmt.Errorf("set row height: %w", err)
		}
		values := []any{row.Location, row.Range.String(), row.Timecode}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", n), &values); err != nil {
			return fmt.Errorf("write row %d: %w", n, err)
		}
		if row.Thumbnail == "" {
			continue
		}
		if err := f.AddPicture(sheet, fmt.Sprintf("D%d", n), row.Thumbnail, nil); err != nil {
			return fmt.Errorf("add thumbnail %s: %w", filepath.Base(row.Thumbnail), err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// WriteXLSXFile writes output.xlsx into dir.
func WriteXLSXFile(dir string, rows []report.EnrichedRow) (*Result, error) {
	path := filepath.Join(dir, fileNames[FormatXLS])
	if err := WriteXLSX(path, rows); err != nil {
		return nil, err
	}
	return &Result{Format: FormatXLS, OutputPath: path, RowCount: len(rows)}, nil
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/heimdex/heimdex-marks/internal/report"
)

// WriteCSV writes the work-order header, a spacer row, then for each work
// file its name followed by one "<location> <range>" row per range.
func WriteCSV(w io.Writer, rep *report.Report) error {
	cw := csv.NewWriter(w)
	h := rep.Header
	records := [][]string{
		{"Producer", "Operator", "Job", "Notes"},
		{h.Producer, h.Operator, h.Job, h.Notes},
		{" "},
	}
	for _, f := range rep.Files {
		records = append(records, []string{f.Path})
		for _, row := range f.Rows {
			records = append(records, []string{row.Location + " " + row.Range.String()})
		}
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes output.csv into dir.
func WriteCSVFile(dir string, rep *report.Report) (*Result, error) {
	path := filepath.Join(dir, fileNames[FormatCSV])
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, rep); err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close csv: %w", err)
	}
	return &Result{Format: FormatCSV, OutputPath: path, RowCount: len(rep.Rows())}, nil
}

package export

import (
	"fmt"
	"strings"
)

// Output formats accepted by --output.
const (
	FormatDB  = "DB"
	FormatCSV = "CSV"
	FormatXLS = "XLS"
	FormatEDL = "EDL"
)

// fileNames are the report files written into the output directory.
var fileNames = map[string]string{
	FormatCSV: "output.csv",
	FormatXLS: "output.xlsx",
	FormatEDL: "output.edl",
}

// ParseFormat normalizes an output format name.
func ParseFormat(s string) (string, error) {
	f := strings.ToUpper(strings.TrimSpace(s))
	switch f {
	case FormatDB, FormatCSV, FormatXLS, FormatEDL:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output type %q: want DB, CSV, XLS or EDL", s)
	}
}

// NeedsVideo reports whether the format is built from enriched rows.
func NeedsVideo(format string) bool {
	return format == FormatXLS || format == FormatEDL
}

// Result describes a written report file.
type Result struct {
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	RowCount   int    `json:"row_count"`
}

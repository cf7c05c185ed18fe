package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heimdex/heimdex-marks/internal/frames"
	"github.com/heimdex/heimdex-marks/internal/report"
)

const maxClipNameLen = 64

// Event is one EDL entry: a marked range on the review video.
type Event struct {
	ClipName string
	Location string
	Range    frames.Range
}

// EventsFromRows builds one event per enriched row, named after the last
// path element of its location.
func EventsFromRows(rows []report.EnrichedRow) []Event {
	events := make([]Event, len(rows))
	for i, row := range rows {
		name := row.WorkFile
		if row.Location != "" {
			name = filepath.Base(row.Location)
		}
		events[i] = Event{
			ClipName: SanitizeName(name+" "+row.Range.String(), maxClipNameLen),
			Location: row.Location,
			Range:    row.Range,
		}
	}
	return events
}

// GenerateEDL renders a CMX3600-style event list. Source out points are
// exclusive, so a range ends one frame after its last frame; record times
// accumulate from zero.
func GenerateEDL(events []Event, title string, fps int) string {
	if fps <= 0 {
		fps = 24
	}

	lines := []string{
		fmt.Sprintf("TITLE: %s", title),
		"FCM: NON-DROP FRAME",
		"",
	}

	record := 0
	for i, ev := range events {
		length := ev.Range.Len()
		srcIn := frames.Timecode(ev.Range.First, fps)
		srcOut := frames.Timecode(ev.Range.Last+1, fps)
		recIn := frames.Timecode(record, fps)
		recOut := frames.Timecode(record+length, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
		)
		if ev.Location != "" {
			lines = append(lines, fmt.Sprintf("* LOCATION:  %s", ev.Location))
		}

		record += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// WriteEDLFile writes output.edl into dir.
func WriteEDLFile(dir, title string, fps int, rows []report.EnrichedRow) (*Result, error) {
	path := filepath.Join(dir, fileNames[FormatEDL])
	content := GenerateEDL(EventsFromRows(rows), SanitizeName(title, maxClipNameLen), fps)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write edl: %w", err)
	}
	return &Result{Format: FormatEDL, OutputPath: path, RowCount: len(rows)}, nil
}

// Package report turns work files and a manifest into ordered report rows
// and enriches the rows that fall inside the review video.
package report

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/heimdex/heimdex-marks/internal/frames"
	"github.com/heimdex/heimdex-marks/internal/logging"
	"github.com/heimdex/heimdex-marks/internal/manifest"
	"github.com/heimdex/heimdex-marks/internal/metrics"
	"github.com/heimdex/heimdex-marks/internal/worklog"
)

// Row is one frame range with its canonical location.
type Row struct {
	WorkFile string       `json:"work_file"`
	Line     int          `json:"line"`
	Location string       `json:"location"`
	Range    frames.Range `json:"range"`
}

// FileReport holds the rows compiled from a single work file, in line order.
type FileReport struct {
	Path string       `json:"path"`
	Name worklog.Name `json:"name"`
	Rows []Row        `json:"rows"`
}

// Report is the full result of one compile, in argument order.
type Report struct {
	Header     manifest.Header `json:"header"`
	Files      []FileReport    `json:"files"`
	Unresolved int             `json:"unresolved"`
}

// Rows flattens the report: file order, then line order, then range order.
func (r *Report) Rows() []Row {
	var out []Row
	for _, f := range r.Files {
		out = append(out, f.Rows...)
	}
	return out
}

// Compiler resolves work-file lines against one manifest.
type Compiler struct {
	manifest *manifest.Manifest
	profiles worklog.Profiles
	logger   *slog.Logger
}

func NewCompiler(m *manifest.Manifest, profiles worklog.Profiles, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Compiler{manifest: m, profiles: profiles, logger: logger}
}

// Compile reads every work file before producing any rows, so an unreadable
// file or unknown kind aborts the run with nothing emitted.
func (c *Compiler) Compile(paths []string) (*Report, error) {
	files := make([]*worklog.File, 0, len(paths))
	for _, p := range paths {
		wf, err := worklog.Read(p, c.profiles)
		if err != nil {
			return nil, err
		}
		files = append(files, wf)
	}

	rep := &Report{Header: c.manifest.Header, Files: make([]FileReport, 0, len(files))}
	for _, wf := range files {
		fr, unresolved := c.compileFile(wf)
		rep.Files = append(rep.Files, fr)
		rep.Unresolved += unresolved
		metrics.WorkFilesProcessed.WithLabelValues(wf.Profile.Kind).Inc()
	}
	return rep, nil
}

func (c *Compiler) compileFile(wf *worklog.File) (FileReport, int) {
	name := filepath.Base(wf.Path)
	fr := FileReport{Path: wf.Path, Name: wf.Name}
	logger := logging.WithWorkFile(c.logger, wf.Path)

	var comp frames.Compressor
	unresolved := 0
	for _, line := range wf.Lines {
		for n := range frames.Numbers(line.Tokens) {
			comp.Next(n)
		}
		ranges := comp.End()
		if len(ranges) == 0 {
			continue
		}

		location := ""
		if line.HasPath() {
			location = c.manifest.Resolve(line.Fragment)
			if matches := c.manifest.Matches(line.Fragment); len(matches) > 1 {
				logger.Debug("ambiguous fragment, using last match",
					"line", line.Number, "fragment", line.Fragment, "matches", len(matches))
			}
		}
		if location == "" {
			unresolved++
			metrics.UnresolvedLines.Inc()
			logger.Warn("no manifest entry for line", "line", line.Number, "fragment", line.Fragment)
		}

		for _, r := range ranges {
			fr.Rows = append(fr.Rows, Row{WorkFile: name, Line: line.Number, Location: location, Range: r})
			metrics.RangesEmitted.WithLabelValues(shape(r)).Inc()
		}
	}

	logger.Info("compiled work file", "kind", wf.Profile.Kind, "lines", len(wf.Lines), "ranges", len(fr.Rows))
	return fr, unresolved
}

func shape(r frames.Range) string {
	if r.IsSingle() {
		return "single"
	}
	return "run"
}

// Compile is a convenience wrapper around a one-off Compiler.
func Compile(paths []string, m *manifest.Manifest, profiles worklog.Profiles, logger *slog.Logger) (*Report, error) {
	rep, err := NewCompiler(m, profiles, logger).Compile(paths)
	if err != nil {
		return nil, fmt.Errorf("compile report: %w", err)
	}
	return rep, nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-marks/internal/catalog"
	"github.com/heimdex/heimdex-marks/internal/config"
	"github.com/heimdex/heimdex-marks/internal/db"
	"github.com/heimdex/heimdex-marks/internal/export"
	"github.com/heimdex/heimdex-marks/internal/logging"
	"github.com/heimdex/heimdex-marks/internal/manifest"
	"github.com/heimdex/heimdex-marks/internal/pipeline"
	"github.com/heimdex/heimdex-marks/internal/report"
	"github.com/heimdex/heimdex-marks/internal/worklog"
)

// newFFmpeg is replaced in tests.
var newFFmpeg = func(cfg pipeline.Config) (pipeline.FFmpeg, error) {
	ff, err := pipeline.NewRealFFmpeg(cfg)
	if err != nil {
		return nil, err
	}
	return ff, nil
}

type reportOptions struct {
	files     []string
	xytech    string
	output    string
	video     string
	outputDir string
	fromStore bool
	runsOnly  bool
	verbose   bool
}

func newReportCmd(verbose *bool) *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compile work files into a frame-range report",
		Example: `  marks report -f 'logs/*.txt' -x Xytech.txt -o CSV
  marks report -f Baselight_GLord_20230323.txt -x Xytech.txt -o XLS -p twitch.mp4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.verbose = *verbose
			return runReport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.files, "files", "f", nil, "work files or glob patterns, in processing order")
	f.StringVarP(&opts.xytech, "xytech", "x", "", "storage manifest file")
	f.StringVarP(&opts.output, "output", "o", "", "output type: DB, CSV, XLS or EDL")
	f.StringVarP(&opts.video, "process", "p", "", "review video for XLS and EDL output")
	f.StringVar(&opts.outputDir, "output-dir", "", "directory for report files (overrides "+config.EnvOutputDir+")")
	f.BoolVar(&opts.fromStore, "from-store", false, "annotate every stored mark instead of this run's rows")
	f.BoolVar(&opts.runsOnly, "runs-only", false, "annotate multi-frame ranges only")
	return cmd
}

func (o reportOptions) validate() (string, error) {
	if len(o.files) == 0 {
		return "", usageErrorf("--files is required")
	}
	if o.xytech == "" {
		return "", usageErrorf("--xytech is required")
	}
	if o.output == "" {
		return "", usageErrorf("--output is required")
	}
	format, err := export.ParseFormat(o.output)
	if err != nil {
		return "", &UsageError{msg: err.Error()}
	}
	if export.NeedsVideo(format) && o.video == "" {
		return "", usageErrorf("--process is required for %s output", format)
	}
	if !export.NeedsVideo(format) && (o.fromStore || o.runsOnly) {
		return "", usageErrorf("--from-store and --runs-only apply to XLS and EDL output only")
	}
	return format, nil
}

func runReport(ctx context.Context, stdout, stderr io.Writer, opts reportOptions) error {
	format, err := opts.validate()
	if err != nil {
		return err
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.outputDir != "" {
		cfg.SetOutputDir(opts.outputDir)
	}
	if opts.verbose {
		cfg.SetLogLevel("debug")
	}
	logger := logging.WithComponent(logging.NewLoggerTo(stderr, cfg.LogLevel()), "report")

	profiles, err := worklog.LoadProfiles(cfg.ProfilesFile())
	if err != nil {
		return err
	}
	paths, err := expandFiles(opts.files)
	if err != nil {
		return usageErrorf("%v", err)
	}

	m, err := manifest.Load(opts.xytech)
	if err != nil {
		return err
	}
	rep, err := report.Compile(paths, m, profiles, logger)
	if err != nil {
		return err
	}

	var ff pipeline.FFmpeg
	if export.NeedsVideo(format) {
		ff, err = newFFmpeg(pipeline.Config{
			FFmpegPath:  cfg.FFmpegPath(),
			FFprobePath: cfg.FFprobePath(),
			Timeout:     cfg.RenderTimeout(),
			Logger:      logger,
		})
		if err != nil {
			return err
		}
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	svc := catalog.NewService(catalog.NewRepository(database.Conn()), logger)
	run, err := svc.StartRun(ctx, format, opts.xytech, opts.video)
	if err != nil {
		return err
	}
	logger = logging.WithRunID(logger, run.ID)

	w := &reportWriter{
		cfg:    cfg,
		svc:    svc,
		ff:     ff,
		opts:   opts,
		logger: logger,
		stderr: stderr,
	}
	result, runErr := w.write(ctx, format, run.ID, rep)
	if err := svc.FinishRun(ctx, run.ID, runErr); err != nil {
		logger.Error("failed to record run status", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	printSummary(stdout, run.ID, rep, result)
	return nil
}

type reportWriter struct {
	cfg    *config.EnvConfig
	svc    *catalog.Service
	ff     pipeline.FFmpeg
	opts   reportOptions
	logger *slog.Logger
	stderr io.Writer
}

func (w *reportWriter) write(ctx context.Context, format, runID string, rep *report.Report) (*export.Result, error) {
	if format == export.FormatDB {
		if err := w.svc.SaveReport(ctx, runID, rep); err != nil {
			return nil, err
		}
		return &export.Result{Format: format, OutputPath: w.cfg.DBPath(), RowCount: len(rep.Rows())}, nil
	}

	dir, err := export.PrepareOutputDir(w.cfg.OutputDir())
	if err != nil {
		return nil, err
	}
	if format == export.FormatCSV {
		return export.WriteCSVFile(dir, rep)
	}

	rows := rep.Rows()
	if w.opts.fromStore {
		if rows, err = w.svc.StoredRows(ctx); err != nil {
			return nil, err
		}
	}
	enriched, meta, err := report.Annotate(ctx, w.ff, rows, report.AnnotateOptions{
		VideoPath:    w.opts.video,
		ThumbnailDir: w.cfg.ThumbnailDir(),
		Width:        w.cfg.ThumbnailWidth(),
		Height:       w.cfg.ThumbnailHeight(),
		RunsOnly:     w.opts.runsOnly,
		Progress:     w.stderr,
		Logger:       w.logger,
	})
	if err != nil {
		return nil, err
	}

	if format == export.FormatXLS {
		return export.WriteXLSXFile(dir, enriched)
	}
	title := strings.TrimSuffix(filepath.Base(w.opts.video), filepath.Ext(w.opts.video))
	return export.WriteEDLFile(dir, title, meta.FrameRate, enriched)
}

// expandFiles resolves glob patterns in order. Plain paths pass through so
// a missing file is reported by the reader; a pattern matching nothing is
// an error. Duplicates keep their first position.
func expandFiles(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		if !hasMeta(arg) {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", arg)
		}
		for _, match := range matches {
			add(match)
		}
	}
	return paths, nil
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func printSummary(w io.Writer, runID string, rep *report.Report, result *export.Result) {
	fmt.Fprintln(w, styleSuccess.Render("Report complete"))
	printField(w, "Run", runID)
	printField(w, "Format", result.Format)
	printField(w, "Work files", len(rep.Files))
	printField(w, "Ranges", result.RowCount)
	printField(w, "Output", result.OutputPath)
	if rep.Unresolved > 0 {
		fmt.Fprintln(w, styleWarning.Render(fmt.Sprintf("  %d line(s) matched no manifest path", rep.Unresolved)))
	}
}

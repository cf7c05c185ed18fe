package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/heimdex/heimdex-marks/internal/frames"
	"github.com/heimdex/heimdex-marks/internal/logging"
	"github.com/heimdex/heimdex-marks/internal/pipeline"
	"github.com/heimdex/heimdex-marks/internal/thumbnail"
)

// VideoMeta bounds which rows are eligible for enrichment.
type VideoMeta struct {
	FrameRate  int `json:"frame_rate"`
	FrameCount int `json:"frame_count"`
}

// NewVideoMeta derives the metadata from a probe result.
func NewVideoMeta(p *pipeline.ProbeResult) (VideoMeta, error) {
	if p == nil || p.FrameRate <= 0 {
		return VideoMeta{}, fmt.Errorf("video frame rate must be positive")
	}
	return VideoMeta{FrameRate: p.FrameRate, FrameCount: p.FrameCount()}, nil
}

// EnrichedRow is a row inside the video bound with its timecode and,
// once aligned, its thumbnail.
type EnrichedRow struct {
	Row
	Timecode  string `json:"timecode"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Enrich keeps rows whose last frame is within the video and attaches
// timecodes. With runsOnly set, single-frame rows are skipped as well.
func Enrich(rows []Row, meta VideoMeta, runsOnly bool) []EnrichedRow {
	var out []EnrichedRow
	for _, row := range rows {
		if !row.Range.Within(meta.FrameCount) {
			continue
		}
		if runsOnly && row.Range.IsSingle() {
			continue
		}
		out = append(out, EnrichedRow{
			Row:      row,
			Timecode: frames.RangeTimecode(row.Range, meta.FrameRate),
		})
	}
	return out
}

// Ranges lists the ranges of enriched rows in order.
func Ranges(rows []EnrichedRow) []frames.Range {
	out := make([]frames.Range, len(rows))
	for i, row := range rows {
		out[i] = row.Range
	}
	return out
}

// AttachThumbnails aligns the registry's artifacts against the enriched
// rows and fills each row's thumbnail. It returns the aligned artifact list;
// artifacts that match no row are at its tail.
func AttachThumbnails(rows []EnrichedRow, reg *thumbnail.Registry) []string {
	ranges := Ranges(rows)
	aligned := thumbnail.Align(reg.Artifacts(), ranges)

	byRange := make(map[frames.Range]string, len(aligned))
	for _, artifact := range aligned {
		if rng, ok := thumbnail.ParseName(artifact); ok {
			byRange[rng] = artifact
		}
	}
	for i := range rows {
		rows[i].Thumbnail = byRange[rows[i].Range]
	}
	return aligned
}

// AnnotateOptions configure probing and thumbnail rendering.
type AnnotateOptions struct {
	VideoPath    string
	ThumbnailDir string
	Width        int
	Height       int
	RunsOnly     bool
	Progress     io.Writer
	Logger       *slog.Logger
}

// Annotate probes the video, enriches the in-bound rows, renders missing
// thumbnails, and attaches every artifact to its row.
func Annotate(ctx context.Context, ff pipeline.FFmpeg, rows []Row, opts AnnotateOptions) ([]EnrichedRow, VideoMeta, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	probe, err := ff.Probe(ctx, opts.VideoPath)
	if err != nil {
		return nil, VideoMeta{}, fmt.Errorf("probe video: %w", err)
	}
	meta, err := NewVideoMeta(probe)
	if err != nil {
		return nil, VideoMeta{}, err
	}
	logger.Info("probed video", "raw_frame_rate", probe.RawFrameRate, "frame_rate", meta.FrameRate, "frame_count", meta.FrameCount)

	enriched := Enrich(rows, meta, opts.RunsOnly)
	if skipped := len(rows) - len(enriched); skipped > 0 {
		logger.Debug("rows outside enrichment", "count", skipped)
	}

	reg := thumbnail.NewRegistry(opts.ThumbnailDir)
	if err := reg.Discover(); err != nil {
		return nil, meta, err
	}
	rendered, err := reg.Ensure(ctx, ff, Ranges(enriched), thumbnail.RenderOptions{
		VideoPath: opts.VideoPath,
		FrameRate: meta.FrameRate,
		Width:     opts.Width,
		Height:    opts.Height,
		Progress:  opts.Progress,
		Logger:    logger,
	})
	if err != nil {
		return nil, meta, err
	}
	logger.Info("thumbnails ready", "rendered", rendered, "reused", reg.Len()-rendered)

	AttachThumbnails(enriched, reg)
	return enriched, meta, nil
}

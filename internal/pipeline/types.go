// Package pipeline wraps the ffprobe and ffmpeg executables used to measure
// the review video and render range thumbnails.
package pipeline

import (
	"context"
	"math"
	"time"
)

// FFmpeg is the video collaborator the report pipeline depends on.
type FFmpeg interface {
	// Probe measures the video's integer frame rate and duration.
	Probe(ctx context.Context, filePath string) (*ProbeResult, error)

	// RenderThumbnail writes a single scaled still taken timeOffset seconds
	// into the video.
	RenderThumbnail(ctx context.Context, filePath, outputPath string, timeOffset float64, width, height int) error
}

type ProbeResult struct {
	Duration     float64
	FrameRate    int
	RawFrameRate string
}

// FrameCount is the number of whole frames in the video.
func (p ProbeResult) FrameCount() int {
	return int(math.Floor(p.Duration * float64(p.FrameRate)))
}

// RunResult is the structured outcome of one executable invocation.
type RunResult struct {
	ExitCode   int
	Stdout     string
	StderrTail string // last N bytes of stderr
	Duration   time.Duration
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

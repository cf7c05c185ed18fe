package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/heimdex/heimdex-marks/internal/logging"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

	DefaultTimeout = 2 * time.Minute
)

var ErrMissingExecutable = errors.New("required executable not found")

// Config holds the executable locations and per-call timeout.
type Config struct {
	FFmpegPath  string // empty = look up "ffmpeg" on PATH
	FFprobePath string // empty = look up "ffprobe" on PATH
	Timeout     time.Duration
	Logger      *slog.Logger
}

// RealFFmpeg shells out to the ffprobe and ffmpeg binaries.
type RealFFmpeg struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
}

// NewRealFFmpeg resolves both executables up front so a missing install is
// reported before any work starts.
func NewRealFFmpeg(cfg Config) (*RealFFmpeg, error) {
	ffmpeg, err := resolveExecutable(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveExecutable(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	cfg.Logger.Debug("video tools resolved", "ffmpeg", ffmpeg, "ffprobe", ffprobe)
	return &RealFFmpeg{cfg: cfg, ffmpeg: ffmpeg, ffprobe: ffprobe}, nil
}

func (f *RealFFmpeg) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("video file: %w", err)
	}

	rate := f.exec(ctx, f.ffprobe,
		"-v", "error",
		"-select_streams", "v",
		"-show_entries", "stream=r_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath,
	)
	if !rate.IsSuccess() {
		return nil, fmt.Errorf("ffprobe frame rate exited %d: %s", rate.ExitCode, truncate(rate.StderrTail, 512))
	}

	dur := f.exec(ctx, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath,
	)
	if !dur.IsSuccess() {
		return nil, fmt.Errorf("ffprobe duration exited %d: %s", dur.ExitCode, truncate(dur.StderrTail, 512))
	}

	rawRate := firstLine(rate.Stdout)
	fps, err := ParseFrameRate(rawRate)
	if err != nil {
		return nil, err
	}
	duration, err := ParseDuration(firstLine(dur.Stdout))
	if err != nil {
		return nil, err
	}

	return &ProbeResult{Duration: duration, FrameRate: fps, RawFrameRate: rawRate}, nil
}

func (f *RealFFmpeg) RenderThumbnail(ctx context.Context, filePath, outputPath string, timeOffset float64, width, height int) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	result := f.exec(ctx, f.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(timeOffset, 'f', 3, 64),
		"-i", filePath,
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		"-vframes", "1",
		"-y",
		outputPath,
	)
	if !result.IsSuccess() {
		return fmt.Errorf("ffmpeg exited %d: %s", result.ExitCode, truncate(result.StderrTail, 512))
	}
	return nil
}

// exec runs one executable with the configured timeout.
func (f *RealFFmpeg) exec(ctx context.Context, name string, args ...string) RunResult {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})

	f.cfg.Logger.Debug("executing video tool", "cmd", filepath.Base(name), "args", args)

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			stderrBuf.WriteString(err.Error())
		}
	}

	if exitCode != 0 {
		f.cfg.Logger.Warn("video tool failed",
			"cmd", filepath.Base(name),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrBuf.String(), 512),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		Stdout:     stdout.String(),
		StderrTail: stderrBuf.String(),
		Duration:   elapsed,
	}
}

// ParseFrameRate evaluates an ffprobe rate such as "24/1" or "30000/1001"
// and truncates it to an integer.
func ParseFrameRate(s string) (int, error) {
	s = strings.TrimSpace(s)
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	d := 1.0
	if found {
		d, err = strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
		}
	}
	if d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q: zero denominator", s)
	}
	fps := int(n / d)
	if fps <= 0 {
		return 0, fmt.Errorf("invalid frame rate %q: must be at least 1", s)
	}
	return fps, nil
}

// ParseDuration parses ffprobe's format=duration output in seconds.
func ParseDuration(s string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: negative", s)
	}
	return d, nil
}

// resolveExecutable finds a usable binary, preferring the configured path.
func resolveExecutable(preferred, name string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: configured %s %q", ErrMissingExecutable, name, preferred)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not on PATH", ErrMissingExecutable, name)
	}
	return p, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}

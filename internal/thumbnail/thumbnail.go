// Package thumbnail tracks rendered range thumbnails and orders them to
// match a list of frame ranges.
package thumbnail

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"

	"github.com/heimdex/heimdex-marks/internal/frames"
	"github.com/heimdex/heimdex-marks/internal/logging"
	"github.com/heimdex/heimdex-marks/internal/metrics"
	"github.com/heimdex/heimdex-marks/internal/pipeline"
)

const (
	namePrefix = "thumbnail_"
	nameExt    = ".jpg"
)

// Name is the artifact file name embedding a range's pair.
func Name(r frames.Range) string {
	return fmt.Sprintf("%s%d-%d%s", namePrefix, r.First, r.Last, nameExt)
}

// ParseName recovers the embedded pair from an artifact path.
func ParseName(path string) (frames.Range, bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, namePrefix) {
		return frames.Range{}, false
	}
	stem := strings.TrimSuffix(strings.TrimPrefix(base, namePrefix), filepath.Ext(base))
	if !strings.Contains(stem, "-") {
		return frames.Range{}, false
	}
	r, err := frames.ParseRange(stem)
	if err != nil {
		return frames.Range{}, false
	}
	return r, true
}

// Registry maps a range to the artifact rendered for it.
type Registry struct {
	dir       string
	artifacts map[frames.Range]string
}

func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, artifacts: make(map[frames.Range]string)}
}

// Discover registers every artifact already present in the directory.
func (r *Registry) Discover() error {
	matches, err := doublestar.Glob(os.DirFS(r.dir), namePrefix+"*"+nameExt, doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("failed to list thumbnails in %s: %w", r.dir, err)
	}
	for _, m := range matches {
		if rng, ok := ParseName(m); ok {
			r.artifacts[rng] = filepath.Join(r.dir, m)
		}
	}
	return nil
}

// Add records an artifact for a range.
func (r *Registry) Add(rng frames.Range, path string) {
	r.artifacts[rng] = path
}

func (r *Registry) Lookup(rng frames.Range) (string, bool) {
	path, ok := r.artifacts[rng]
	return path, ok
}

func (r *Registry) Len() int {
	return len(r.artifacts)
}

// Artifacts returns every registered artifact path sorted by name.
func (r *Registry) Artifacts() []string {
	out := make([]string, 0, len(r.artifacts))
	for _, p := range r.artifacts {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Missing lists ranges with no registered artifact, first occurrence only.
func (r *Registry) Missing(ranges []frames.Range) []frames.Range {
	seen := make(map[frames.Range]bool)
	var out []frames.Range
	for _, rng := range ranges {
		if _, ok := r.artifacts[rng]; ok || seen[rng] {
			continue
		}
		seen[rng] = true
		out = append(out, rng)
	}
	return out
}

// Align stable-sorts artifacts so each one takes the position of the first
// range equal to its embedded pair. Artifacts matching no range, or with no
// parseable pair, sort after every matched one.
func Align(artifacts []string, ranges []frames.Range) []string {
	key := sortKeys(ranges)
	keys := make(map[string]int, len(artifacts))
	for _, a := range artifacts {
		keys[a] = key(a)
	}

	out := make([]string, len(artifacts))
	copy(out, artifacts)
	sort.SliceStable(out, func(i, j int) bool {
		return keys[out[i]] < keys[out[j]]
	})
	return out
}

// SortKey is the position Align assigns to a single artifact.
func SortKey(artifact string, ranges []frames.Range) int {
	return sortKeys(ranges)(artifact)
}

func sortKeys(ranges []frames.Range) func(string) int {
	index := make(map[frames.Range]int, len(ranges))
	for i, rng := range ranges {
		if _, ok := index[rng]; !ok {
			index[rng] = i
		}
	}
	return func(artifact string) int {
		rng, ok := ParseName(artifact)
		if !ok {
			return len(ranges)
		}
		if i, ok := index[rng]; ok {
			return i
		}
		return len(ranges)
	}
}

// RenderOptions control thumbnail rendering.
type RenderOptions struct {
	VideoPath string
	FrameRate int
	Width     int
	Height    int
	// Progress receives the progress bar; nil disables it.
	Progress io.Writer
	Logger   *slog.Logger
}

// Ensure renders a thumbnail for every range missing from the registry,
// sampled at the range's midpoint, and registers it. Existing artifacts are
// reused.
func (r *Registry) Ensure(ctx context.Context, ff pipeline.FFmpeg, ranges []frames.Range, opts RenderOptions) (int, error) {
	missing := r.Missing(ranges)
	if len(missing) == 0 {
		return 0, nil
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(missing),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Rendering thumbnails"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	logger.Info("rendering thumbnails", "count", len(missing), "dir", r.dir)

	rendered := 0
	for _, rng := range missing {
		out := filepath.Join(r.dir, Name(rng))
		offset := frames.Seconds(rng.Midpoint(), opts.FrameRate)
		if err := ff.RenderThumbnail(ctx, opts.VideoPath, out, offset, opts.Width, opts.Height); err != nil {
			metrics.ThumbnailsRendered.WithLabelValues("failed").Inc()
			return rendered, fmt.Errorf("render thumbnail for %s: %w", rng, err)
		}
		metrics.ThumbnailsRendered.WithLabelValues("rendered").Inc()
		r.Add(rng, out)
		rendered++
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return rendered, nil
}

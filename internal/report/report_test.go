package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/heimdex-marks/internal/frames"
	"github.com/heimdex/heimdex-marks/internal/logging"
	"github.com/heimdex/heimdex-marks/internal/manifest"
	"github.com/heimdex/heimdex-marks/internal/pipeline"
	"github.com/heimdex/heimdex-marks/internal/thumbnail"
	"github.com/heimdex/heimdex-marks/internal/worklog"
)

const xytech = `Xytech Workorder 1109

Producer: Joan Jett
Operator: John Doe
Job: Dirtfixing
Notes:
Please clean files noted per Colorist

Location:
/hpsans13/production/starwars/reel1/partA/1920x1080
/hpsans12/production/starwars/reel1/VFX/Hydraulx
/hpsans17/production/starwars/reel1/partB/1920x1080
/hpsans20/production/starwars/reel1/partA/1920x1080
`

func loadManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse(strings.NewReader(xytech))
	require.NoError(t, err)
	return m
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompile_OrdersByFileLineRange(t *testing.T) {
	dir := t.TempDir()
	baselight := writeFile(t, dir, "Baselight_JJacobs_20230323.txt",
		"/images1/Avatar/reel1/partA/1920x1080 2 3 4 <err> 31 32 40\n"+
			"/images1/Avatar/reel1/partB/1920x1080 5\n"+
			"/images1/Avatar/reel1/partB/1920x1080 <null>\n")
	flame := writeFile(t, dir, "Flame_DFlowers_20230323.txt",
		"/net/flame-archive /Avatar/reel1/VFX/Hydraulx 1260 1261 1262 1264\n"+
			"/net/flame-archive /Avatar/reel9/unknown 7\n")

	rep, err := Compile([]string{baselight, flame}, loadManifest(t), worklog.DefaultProfiles(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Joan Jett", rep.Header.Producer)
	require.Len(t, rep.Files, 2)
	assert.Equal(t, "JJacobs", rep.Files[0].Name.User)

	partA := "/hpsans20/production/starwars/reel1/partA/1920x1080"
	partB := "/hpsans17/production/starwars/reel1/partB/1920x1080"
	hydraulx := "/hpsans12/production/starwars/reel1/VFX/Hydraulx"
	want := []Row{
		{"Baselight_JJacobs_20230323.txt", 1, partA, frames.Range{First: 2, Last: 4}},
		{"Baselight_JJacobs_20230323.txt", 1, partA, frames.Range{First: 31, Last: 32}},
		{"Baselight_JJacobs_20230323.txt", 1, partA, frames.Range{First: 40, Last: 40}},
		{"Baselight_JJacobs_20230323.txt", 2, partB, frames.Range{First: 5, Last: 5}},
		{"Flame_DFlowers_20230323.txt", 1, hydraulx, frames.Range{First: 1260, Last: 1262}},
		{"Flame_DFlowers_20230323.txt", 1, hydraulx, frames.Range{First: 1264, Last: 1264}},
		{"Flame_DFlowers_20230323.txt", 2, "", frames.Range{First: 7, Last: 7}},
	}
	assert.Equal(t, want, rep.Rows())
	assert.Equal(t, 1, rep.Unresolved)
}

func TestCompile_UnknownKindAbortsBeforeRows(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "Flame_a_20230323.txt", "/v /Avatar/reel1/VFX/Hydraulx 1 2\n")
	bad := writeFile(t, dir, "Resolve_a_20230323.txt", "/x 1 2\n")

	rep, err := Compile([]string{good, bad}, loadManifest(t), worklog.DefaultProfiles(), nil)
	assert.ErrorIs(t, err, worklog.ErrUnknownKind)
	assert.Nil(t, rep)
}

func TestCompile_MissingFile(t *testing.T) {
	_, err := Compile([]string{filepath.Join(t.TempDir(), "Flame_a_b.txt")}, loadManifest(t), worklog.DefaultProfiles(), nil)
	assert.Error(t, err)
}

func TestEnrich_BoundsAndTimecodes(t *testing.T) {
	rows := []Row{
		{Location: "/a", Range: frames.Range{First: 24, Last: 48}},
		{Location: "/b", Range: frames.Range{First: 100, Last: 100}},
		{Location: "/c", Range: frames.Range{First: 200, Last: 260}},
		{Location: "/d", Range: frames.Range{First: 240, Last: 240}},
	}
	meta := VideoMeta{FrameRate: 24, FrameCount: 240}

	got := Enrich(rows, meta, false)
	require.Len(t, got, 3)
	assert.Equal(t, "/a", got[0].Location)
	assert.Equal(t, "00:00:01:00 - 00:00:02:00", got[0].Timecode)
	assert.Equal(t, "/b", got[1].Location)
	assert.Equal(t, "/d", got[2].Location)

	runs := Enrich(rows, meta, true)
	require.Len(t, runs, 1)
	assert.Equal(t, "/a", runs[0].Location)
}

func TestNewVideoMeta(t *testing.T) {
	meta, err := NewVideoMeta(&pipeline.ProbeResult{FrameRate: 24, Duration: 10.5})
	require.NoError(t, err)
	assert.Equal(t, VideoMeta{FrameRate: 24, FrameCount: 252}, meta)

	_, err = NewVideoMeta(&pipeline.ProbeResult{})
	assert.Error(t, err)
}

func TestAttachThumbnails(t *testing.T) {
	dir := t.TempDir()
	reg := thumbnail.NewRegistry(dir)
	reg.Add(frames.Range{First: 30, Last: 40}, filepath.Join(dir, "thumbnail_30-40.jpg"))
	reg.Add(frames.Range{First: 10, Last: 20}, filepath.Join(dir, "thumbnail_10-20.jpg"))
	reg.Add(frames.Range{First: 99, Last: 100}, filepath.Join(dir, "thumbnail_99-100.jpg"))

	rows := []EnrichedRow{
		{Row: Row{Range: frames.Range{First: 10, Last: 20}}},
		{Row: Row{Range: frames.Range{First: 30, Last: 40}}},
		{Row: Row{Range: frames.Range{First: 50, Last: 60}}},
	}
	aligned := AttachThumbnails(rows, reg)

	assert.Equal(t, []string{
		filepath.Join(dir, "thumbnail_10-20.jpg"),
		filepath.Join(dir, "thumbnail_30-40.jpg"),
		filepath.Join(dir, "thumbnail_99-100.jpg"),
	}, aligned)
	assert.Equal(t, filepath.Join(dir, "thumbnail_10-20.jpg"), rows[0].Thumbnail)
	assert.Equal(t, filepath.Join(dir, "thumbnail_30-40.jpg"), rows[1].Thumbnail)
	assert.Empty(t, rows[2].Thumbnail)
}

type fakeFFmpeg struct {
	probe    *pipeline.ProbeResult
	probeErr error
	rendered []string
}

func (f *fakeFFmpeg) Probe(ctx context.Context, filePath string) (*pipeline.ProbeResult, error) {
	return f.probe, f.probeErr
}

func (f *fakeFFmpeg) RenderThumbnail(ctx context.Context, filePath, outputPath string, timeOffset float64, width, height int) error {
	f.rendered = append(f.rendered, filepath.Base(outputPath))
	return os.WriteFile(outputPath, []byte("jpeg"), 0o644)
}

func TestAnnotate(t *testing.T) {
	dir := t.TempDir()
	ff := &fakeFFmpeg{probe: &pipeline.ProbeResult{FrameRate: 24, Duration: 10}}
	rows := []Row{
		{Location: "/a", Range: frames.Range{First: 10, Last: 20}},
		{Location: "/b", Range: frames.Range{First: 5, Last: 5}},
		{Location: "/c", Range: frames.Range{First: 230, Last: 300}},
	}

	got, meta, err := Annotate(context.Background(), ff, rows, AnnotateOptions{
		VideoPath:    "review.mp4",
		ThumbnailDir: dir,
		Width:        96,
		Height:       74,
	})
	require.NoError(t, err)

	assert.Equal(t, 240, meta.FrameCount)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"thumbnail_10-20.jpg", "thumbnail_5-5.jpg"}, ff.rendered)
	assert.Equal(t, filepath.Join(dir, "thumbnail_10-20.jpg"), got[0].Thumbnail)
	assert.Equal(t, filepath.Join(dir, "thumbnail_5-5.jpg"), got[1].Thumbnail)

	ff.rendered = nil
	_, _, err = Annotate(context.Background(), ff, rows, AnnotateOptions{VideoPath: "review.mp4", ThumbnailDir: dir})
	require.NoError(t, err)
	assert.Empty(t, ff.rendered)
}

func TestAnnotate_ProbeFailure(t *testing.T) {
	ff := &fakeFFmpeg{probeErr: errors.New("no such file")}
	_, _, err := Annotate(context.Background(), ff, nil, AnnotateOptions{ThumbnailDir: t.TempDir()})
	assert.ErrorContains(t, err, "probe video")
}

func TestCompile_LogsWorkFileAndProbedRate(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerTo(&buf, "info")

	dir := t.TempDir()
	path := writeFile(t, dir, "Baselight_JJacobs_20230323.txt", "/images1/Avatar/reel1/partA/1920x1080 2 3\n")
	_, err := Compile([]string{path}, loadManifest(t), worklog.DefaultProfiles(), logger)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"work_file":"Baselight_JJacobs_20230323.txt"`)

	buf.Reset()
	ff := &fakeFFmpeg{probe: &pipeline.ProbeResult{FrameRate: 29, Duration: 1, RawFrameRate: "30000/1001"}}
	_, _, err = Annotate(context.Background(), ff, nil, AnnotateOptions{ThumbnailDir: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"raw_frame_rate":"30000/1001"`)
}

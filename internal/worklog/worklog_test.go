package worklog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		path string
		want Name
	}{
		{"Baselight_JJacobs_20230323.txt", Name{"Baselight", "JJacobs", "20230323"}},
		{"/in/logs/Flame_DFlowers_20230323.txt", Name{"Flame", "DFlowers", "20230323"}},
		{"Flame_DFlowers_20230323_v2.txt", Name{"Flame", "DFlowers", "20230323"}},
		{"Baselight.txt", Name{Kind: "Baselight"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseName(tt.path), tt.path)
	}
}

func TestProfile_ParseLine_Baselight(t *testing.T) {
	p := DefaultProfiles()[KindBaselight]
	line := p.ParseLine(1, "/images1/Avatar/reel1/partA/1920x1080 2 3 4 <err> 31 32")

	assert.Equal(t, "/images1/Avatar/reel1/partA/1920x1080", line.Path)
	assert.Equal(t, "/reel1/partA/1920x1080", line.Fragment)
	assert.Equal(t, []string{"2", "3", "4", "<err>", "31", "32"}, line.Tokens)
	assert.True(t, line.HasPath())
}

func TestProfile_ParseLine_Flame(t *testing.T) {
	p := DefaultProfiles()[KindFlame]
	line := p.ParseLine(7, "/net/flame-archive /Avatar/reel1/VFX/Hydraulx 1260 1261 1262 <null>")

	assert.Equal(t, 7, line.Number)
	assert.Equal(t, "/Avatar/reel1/VFX/Hydraulx", line.Path)
	assert.Equal(t, "/reel1/VFX/Hydraulx", line.Fragment)
	assert.Equal(t, []string{"/net/flame-archive", "1260", "1261", "1262", "<null>"}, line.Tokens)
}

func TestProfile_ParseLine_TooShort(t *testing.T) {
	p := DefaultProfiles()[KindFlame]
	line := p.ParseLine(1, "/net/flame-archive")
	assert.False(t, line.HasPath())
	assert.Equal(t, []string{"/net/flame-archive"}, line.Tokens)

	empty := p.ParseLine(2, "")
	assert.False(t, empty.HasPath())
	assert.Empty(t, empty.Tokens)
}

func TestProfiles_LookupUnknown(t *testing.T) {
	_, err := DefaultProfiles().Lookup("Nuke")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLoadProfiles_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	data := []byte(`profiles:
  - kind: Nuke
    path_field: 2
    prefix: /mnt/nuke
  - kind: Flame
    path_field: 1
    prefix: /Avatar2
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Baselight", "Flame", "Nuke"}, profiles.Kinds())
	assert.Equal(t, "/Avatar2", profiles[KindFlame].Prefix)
	assert.Equal(t, 2, profiles["Nuke"].PathField)
}

func TestLoadProfiles_Empty(t *testing.T) {
	profiles, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfiles(), profiles)
}

func TestLoadProfiles_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  - path_field: 1\n"), 0o644))

	_, err := LoadProfiles(path)
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Baselight_JJacobs_20230323.txt")
	content := "/images1/Avatar/reel1/partA/1920x1080 2 3 4\n\n/images1/Avatar/reel1/partB/1920x1080 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	wf, err := Read(path, DefaultProfiles())
	require.NoError(t, err)

	assert.Equal(t, Name{"Baselight", "JJacobs", "20230323"}, wf.Name)
	require.Len(t, wf.Lines, 3)
	assert.Equal(t, "/reel1/partA/1920x1080", wf.Lines[0].Fragment)
	assert.False(t, wf.Lines[1].HasPath())
	assert.Equal(t, 3, wf.Lines[2].Number)
}

func TestRead_UnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Resolve_user_20230323.txt")
	require.NoError(t, os.WriteFile(path, []byte("x 1 2\n"), 0o644))

	_, err := Read(path, DefaultProfiles())
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "Flame_a_b.txt"), DefaultProfiles())
	assert.Error(t, err)
}

// Package worklog reads facility work files: per-shot logs whose lines carry
// an internal path followed by the corrected frame numbers.
package worklog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	KindBaselight = "Baselight"
	KindFlame     = "Flame"
)

var ErrUnknownKind = errors.New("unrecognized source kind")

// Profile describes one facility's line layout.
type Profile struct {
	Kind string `yaml:"kind"`
	// PathField is the zero-based token index holding the internal path.
	PathField int `yaml:"path_field"`
	// Prefix is stripped from the path to form the manifest fragment.
	Prefix string `yaml:"prefix"`
}

// Profiles maps a source kind to its layout.
type Profiles map[string]Profile

// DefaultProfiles returns the builtin facility layouts.
func DefaultProfiles() Profiles {
	return Profiles{
		KindBaselight: {Kind: KindBaselight, PathField: 0, Prefix: "/images1/Avatar"},
		KindFlame:     {Kind: KindFlame, PathField: 1, Prefix: "/Avatar"},
	}
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads a YAML profile list and layers it over the defaults.
// An empty path returns the defaults unchanged.
func LoadProfiles(path string) (Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file %s: %w", path, err)
	}

	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse profiles from %s: %w", path, err)
	}

	for _, p := range pf.Profiles {
		if p.Kind == "" {
			return nil, fmt.Errorf("profile in %s is missing kind", path)
		}
		if p.PathField < 0 {
			return nil, fmt.Errorf("profile %s: path_field must not be negative", p.Kind)
		}
		profiles[p.Kind] = p
	}
	return profiles, nil
}

// Lookup returns the profile for kind or ErrUnknownKind.
func (p Profiles) Lookup(kind string) (Profile, error) {
	profile, ok := p[kind]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownKind, kind, p.Kinds())
	}
	return profile, nil
}

// Kinds lists the known kinds in sorted order.
func (p Profiles) Kinds() []string {
	kinds := make([]string, 0, len(p))
	for k := range p {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

package worklog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Name is the metadata encoded in a work file's name: Kind_user_date.ext.
type Name struct {
	Kind string `json:"kind"`
	User string `json:"user"`
	Date string `json:"date"`
}

// ParseName splits a work file's base name. Missing user or date parts are
// left empty.
func ParseName(path string) Name {
	base := filepath.Base(path)
	stem, _, _ := strings.Cut(base, ".")
	parts := strings.Split(stem, "_")

	n := Name{Kind: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		n.User = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		n.Date = strings.TrimSpace(parts[2])
	}
	return n
}

// Line is one parsed work-file line.
type Line struct {
	Number int
	Raw    string
	Kind   string
	// Path is the internal path token; empty when the line is too short.
	Path string
	// Fragment is Path with the facility prefix removed.
	Fragment string
	// Tokens are the remaining tokens after the path field is consumed.
	Tokens []string
}

// HasPath reports whether the line carried a path field.
func (l Line) HasPath() bool {
	return l.Path != ""
}

// ParseLine tokenizes raw on whitespace and consumes the path field.
func (p Profile) ParseLine(number int, raw string) Line {
	tokens := strings.Fields(raw)
	line := Line{Number: number, Raw: raw, Kind: p.Kind}

	if p.PathField >= len(tokens) {
		line.Tokens = tokens
		return line
	}

	line.Path = tokens[p.PathField]
	line.Fragment = strings.ReplaceAll(line.Path, p.Prefix, "")
	line.Tokens = make([]string, 0, len(tokens)-1)
	line.Tokens = append(line.Tokens, tokens[:p.PathField]...)
	line.Tokens = append(line.Tokens, tokens[p.PathField+1:]...)
	return line
}

// File is a fully read work file.
type File struct {
	Path    string
	Name    Name
	Profile Profile
	Lines   []Line
}

// Read resolves the file's kind from its name and parses every line. An
// unknown kind or unreadable file is an error.
func Read(path string, profiles Profiles) (*File, error) {
	name := ParseName(path)
	profile, err := profiles.Lookup(name.Kind)
	if err != nil {
		return nil, fmt.Errorf("work file %s: %w", filepath.Base(path), err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open work file: %w", err)
	}
	defer f.Close()

	wf := &File{Path: path, Name: name, Profile: profile}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		wf.Lines = append(wf.Lines, profile.ParseLine(n, scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read work file %s: %w", path, err)
	}
	return wf, nil
}

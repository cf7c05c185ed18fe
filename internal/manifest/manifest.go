// Package manifest reads the published-paths manifest (the Xytech work order)
// and resolves internal path fragments to canonical storage paths.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Header carries the work-order fields printed at the top of a CSV report.
type Header struct {
	Producer string `json:"producer"`
	Operator string `json:"operator"`
	Job      string `json:"job"`
	Notes    string `json:"notes"`
}

// Manifest is an ordered list of canonical paths. Order matters: Resolve
// prefers later entries.
type Manifest struct {
	Header  Header
	Entries []string
}

// Load opens and parses a manifest file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse reads a manifest line by line. A field line keeps the text between
// its first and second colon; the line after "Notes:" is the notes value;
// every line containing a slash is a path entry.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	scanner := bufio.NewScanner(r)
	prev := ""
	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "Producer:") {
			m.Header.Producer = fieldValue(line)
		}
		if strings.Contains(line, "Operator:") {
			m.Header.Operator = fieldValue(line)
		}
		if strings.Contains(line, "Job:") {
			m.Header.Job = fieldValue(line)
		}
		if strings.Contains(prev, "Notes:") {
			m.Header.Notes = strings.TrimSpace(line)
		}
		if strings.Contains(line, "/") {
			m.Entries = append(m.Entries, strings.TrimSpace(line))
		}
		prev = line
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func fieldValue(line string) string {
	parts := strings.Split(line, ":")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Resolve returns the last entry that contains fragment, or "" when none
// does. Every entry is examined.
func (m *Manifest) Resolve(fragment string) string {
	resolved := ""
	for _, entry := range m.Entries {
		if strings.Contains(entry, fragment) {
			resolved = entry
		}
	}
	return resolved
}

// Matches returns every entry containing fragment, in manifest order. It is
// used to report ambiguous fragments.
func (m *Manifest) Matches(fragment string) []string {
	var out []string
	for _, entry := range m.Entries {
		if strings.Contains(entry, fragment) {
			out = append(out, entry)
		}
	}
	return out
}

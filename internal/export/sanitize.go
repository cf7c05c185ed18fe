package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeName keeps letters, digits and a small punctuation set, replacing
// everything else with '_' and dropping control characters.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// PrepareOutputDir creates dir if needed and checks that it is a directory.
func PrepareOutputDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("output dir is required")
	}
	cleaned := filepath.Clean(dir)

	if err := os.MkdirAll(cleaned, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	info, err := os.Stat(cleaned)
	if err != nil {
		return "", fmt.Errorf("invalid output dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output dir %s is not a directory", cleaned)
	}
	return cleaned, nil
}

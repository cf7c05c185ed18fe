package frames

import (
	"iter"
	"strconv"
	"strings"
)

// IsNumeric reports whether tok consists only of ASCII digits.
func IsNumeric(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}

// Numbers lazily yields the numeric tokens of a line in encounter order.
// Sentinels such as <err> and <null> are skipped without affecting the
// tokens around them. Tokens too large for an int are skipped as well.
func Numbers(tokens []string) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, tok := range tokens {
			tok = strings.TrimSpace(tok)
			if !IsNumeric(tok) {
				continue
			}
			n, err := strconv.Atoi(tok)
			if err != nil {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

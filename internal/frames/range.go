// Package frames turns per-line frame tokens into contiguous frame ranges and
// converts frame indices to broadcast timecode.
package frames

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("invalid frame range")

// Range is an inclusive run of frames. A single frame has First == Last.
type Range struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

func (r Range) IsSingle() bool {
	return r.First == r.Last
}

func (r Range) Len() int {
	return r.Last - r.First + 1
}

// Midpoint is the frame sampled for the range's thumbnail.
func (r Range) Midpoint() int {
	return (r.First + r.Last) / 2
}

// Within reports whether the range ends at or before frameCount.
func (r Range) Within(frameCount int) bool {
	return r.Last <= frameCount
}

// Frames expands the range back into its constituent frame numbers.
func (r Range) Frames() []int {
	if r.Last < r.First {
		return nil
	}
	out := make([]int, 0, r.Len())
	for n := r.First; n <= r.Last; n++ {
		out = append(out, n)
	}
	return out
}

// String renders "first" for single frames and "first-last" for runs.
func (r Range) String() string {
	if r.IsSingle() {
		return strconv.Itoa(r.First)
	}
	return fmt.Sprintf("%d-%d", r.First, r.Last)
}

// ParseRange parses the String form back into a Range.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	first, last, found := strings.Cut(s, "-")
	if !found {
		last = first
	}

	a, err := parseFrame(first)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	b, err := parseFrame(last)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	if a > b {
		return Range{}, fmt.Errorf("%w: %q: first frame after last", ErrInvalidRange, s)
	}
	return Range{First: a, Last: b}, nil
}

func parseFrame(s string) (int, error) {
	if !IsNumeric(s) {
		return 0, ErrInvalidRange
	}
	return strconv.Atoi(s)
}

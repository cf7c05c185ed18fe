package frames

import "iter"

type compressorState int

const (
	stateIdle compressorState = iota
	stateOpen
)

// Compressor folds frame numbers into maximal contiguous runs. A number
// extends the open run only when it equals the previous number plus one, so
// repeated or descending values always start a new run.
type Compressor struct {
	state   compressorState
	first   int
	pointer int
	out     []Range
}

// Next feeds one frame number.
func (c *Compressor) Next(n int) {
	switch c.state {
	case stateIdle:
		c.first, c.pointer = n, n
		c.state = stateOpen
	case stateOpen:
		if n == c.pointer+1 {
			c.pointer = n
			return
		}
		c.emit()
		c.first, c.pointer = n, n
	}
}

// End closes the open run, if any, and returns every run emitted so far.
// The compressor is reset and can be reused for the next line.
func (c *Compressor) End() []Range {
	if c.state == stateOpen {
		c.emit()
	}
	out := c.out
	c.out = nil
	c.state = stateIdle
	return out
}

func (c *Compressor) emit() {
	c.out = append(c.out, Range{First: c.first, Last: c.pointer})
}

// Compress runs a full sequence through a fresh Compressor.
func Compress(seq iter.Seq[int]) []Range {
	var c Compressor
	for n := range seq {
		c.Next(n)
	}
	return c.End()
}

// CompressTokens scans tokens and compresses the numeric ones.
func CompressTokens(tokens []string) []Range {
	return Compress(Numbers(tokens))
}

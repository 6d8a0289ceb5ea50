package codex

import "strings"

// LineFramer incrementally splits a byte stream into complete LF-delimited
// lines. Chunks may end mid-line; the partial tail is retained and prepended
// to the next chunk. Emitted lines are trimmed and empty lines are dropped.
type LineFramer struct {
	remainder string
}

// Feed appends a chunk to the framer and returns the complete lines it
// produced, in arrival order.
func (f *LineFramer) Feed(chunk string) []string {
	data := f.remainder + chunk
	parts := strings.Split(data, "\n")
	f.remainder = parts[len(parts)-1]

	var lines []string
	for _, part := range parts[:len(parts)-1] {
		line := strings.TrimSpace(part)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Remainder returns the current partial-line tail without consuming it.
func (f *LineFramer) Remainder() string {
	return f.remainder
}

// Flush consumes and returns the trimmed partial tail. Used at stream EOF so
// a final line without a trailing newline is not lost.
func (f *LineFramer) Flush() string {
	line := strings.TrimSpace(f.remainder)
	f.remainder = ""
	return line
}

package codex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineFramerSplitsChunks(t *testing.T) {
	tests := []struct {
		name      string
		chunks    []string
		expected  [][]string
		remainder string
	}{
		{
			name:     "single complete line",
			chunks:   []string{"hello\n"},
			expected: [][]string{{"hello"}},
		},
		{
			name:      "line split across chunks",
			chunks:    []string{`{"type":"thr`, "ead.started\"}\n"},
			expected:  [][]string{nil, {`{"type":"thread.started"}`}},
			remainder: "",
		},
		{
			name:     "multiple lines in one chunk",
			chunks:   []string{"one\ntwo\nthree\n"},
			expected: [][]string{{"one", "two", "three"}},
		},
		{
			name:      "trailing partial retained",
			chunks:    []string{"complete\npartial"},
			expected:  [][]string{{"complete"}},
			remainder: "partial",
		},
		{
			name:     "empty lines dropped",
			chunks:   []string{"a\n\n\nb\n"},
			expected: [][]string{{"a", "b"}},
		},
		{
			name:     "crlf trimmed",
			chunks:   []string{"windows\r\nline\r\n"},
			expected: [][]string{{"windows", "line"}},
		},
		{
			name:     "whitespace-only lines dropped",
			chunks:   []string{"  \n\t\nreal\n"},
			expected: [][]string{{"real"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f LineFramer
			for i, chunk := range tt.chunks {
				assert.Equal(t, tt.expected[i], f.Feed(chunk))
			}
			assert.Equal(t, tt.remainder, f.Remainder())
		})
	}
}

func TestLineFramerFlush(t *testing.T) {
	var f LineFramer
	f.Feed("done\nleftover without newline")

	assert.Equal(t, "leftover without newline", f.Flush())
	assert.Equal(t, "", f.Remainder())
	assert.Equal(t, "", f.Flush())
}

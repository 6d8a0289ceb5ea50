package codex

import "unicode/utf8"

// DefaultTailCap is the per-stream retention limit for captured output.
const DefaultTailCap = 2 * 1024 * 1024 // 2 MiB

// TailBuffer is an append-only buffer that retains only the last maxBytes
// bytes of a stream. Truncation discards from the front and is aligned to a
// UTF-8 character boundary when one can be found nearby, so the retained
// tail stays valid text. The buffer never exceeds its cap.
type TailBuffer struct {
	maxBytes int
	buf      []byte
}

// NewTailBuffer creates a TailBuffer with the given byte cap. A cap of zero
// or less falls back to DefaultTailCap.
func NewTailBuffer(maxBytes int) *TailBuffer {
	if maxBytes <= 0 {
		maxBytes = DefaultTailCap
	}
	return &TailBuffer{maxBytes: maxBytes}
}

// Append adds chunk to the buffer, discarding from the front as needed to
// stay within the cap.
func (b *TailBuffer) Append(chunk []byte) {
	if len(chunk) >= b.maxBytes {
		// Chunk alone fills the buffer; keep only its tail.
		b.buf = append(b.buf[:0], alignStart(chunk[len(chunk)-b.maxBytes:])...)
		return
	}
	b.buf = append(b.buf, chunk...)
	if len(b.buf) > b.maxBytes {
		b.buf = append(b.buf[:0:0], alignStart(b.buf[len(b.buf)-b.maxBytes:])...)
	}
}

// Len returns the current byte length.
func (b *TailBuffer) Len() int {
	return len(b.buf)
}

// String returns the retained tail.
func (b *TailBuffer) String() string {
	return string(b.buf)
}

// alignStart skips any leading UTF-8 continuation bytes so the slice starts
// on a rune boundary. It may over-discard a few bytes but never grows the
// slice.
func alignStart(data []byte) []byte {
	for i := 0; i < len(data) && i < utf8.UTFMax; i++ {
		if !isContinuationByte(data[i]) {
			return data[i:]
		}
	}
	return data
}

func isContinuationByte(b byte) bool {
	return b&0xC0 == 0x80
}

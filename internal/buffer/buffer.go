package buffer

import (
	"errors"
	"io"
)

// InitialCapacity is the starting size of a receive buffer.
const InitialCapacity = 2 * 1024

// ErrNoProgress is returned by Fill when a read yields neither data nor an error.
var ErrNoProgress = errors.New("read returned no data")

// Span is an (offset, length) reference into a Buffer. It stays valid
// when the buffer grows because it never holds the backing array.
type Span struct {
	Off int
	Len int
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool {
	return s.Len == 0
}

// Buffer is a growable receive buffer with a high-water mark (filled) and a
// scan cursor (scanned). scanned <= filled <= Cap() always holds.
type Buffer struct {
	data    []byte
	filled  int
	scanned int
}

// New returns an empty buffer; a non-positive capacity means InitialCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = InitialCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

func (b *Buffer) Cap() int     { return len(b.data) }
func (b *Buffer) Filled() int  { return b.filled }
func (b *Buffer) Scanned() int { return b.scanned }

// Bytes returns the bytes a span refers to. The slice is only valid until the
// next Fill.
func (b *Buffer) Bytes(s Span) []byte {
	return b.data[s.Off : s.Off+s.Len]
}

// String copies the bytes a span refers to.
func (b *Buffer) String(s Span) string {
	return string(b.Bytes(s))
}

// At returns the byte at absolute offset i. i must be below Filled().
func (b *Buffer) At(i int) byte {
	return b.data[i]
}

// Unscanned returns the received bytes the scanner has not consumed yet.
func (b *Buffer) Unscanned() []byte {
	return b.data[b.scanned:b.filled]
}

// Advance moves the scan cursor forward by n bytes, never past filled.
func (b *Buffer) Advance(n int) {
	b.scanned += n
	if b.scanned > b.filled {
		b.scanned = b.filled
	}
}

// Grow doubles the capacity when less than half of it is free.
// It reports whether a reallocation happened.
func (b *Buffer) Grow() bool {
	if len(b.data)-b.filled >= len(b.data)/2 {
		return false
	}
	grown := make([]byte, len(b.data)*2)
	copy(grown, b.data[:b.filled])
	b.data = grown
	return true
}

// Fill grows the buffer if needed and performs exactly one Read into the
// free space. Bytes read are appended even when err is non-nil.
func (b *Buffer) Fill(r io.Reader) (int, error) {
	b.Grow()
	n, err := r.Read(b.data[b.filled:])
	if n > 0 {
		b.filled += n
	}
	if n == 0 && err == nil {
		return 0, ErrNoProgress
	}
	return n, err
}

package ecs

import "unsafe"

const (
	// ChunkSize is the fixed data capacity of one chunk.
	ChunkSize = 16 * 1024

	// chunkHeaderReserve is space held back at the front of every chunk for a
	// future chunk header. Layout offsets start after it.
	chunkHeaderReserve = 64

	cacheLine = 64
)

// Chunk is a fixed-size, cache-line-aligned byte buffer. It is pure storage:
// the owning archetype decides what lives where inside it.
type Chunk struct {
	buf  []byte
	base unsafe.Pointer
}

// NewChunk allocates a chunk whose data starts on a cache-line boundary. Go
// only guarantees pointer alignment on allocations, so the buffer is
// over-allocated and sliced to an aligned base.
func NewChunk() *Chunk {
	buf := make([]byte, ChunkSize+cacheLine)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	pad := (cacheLine - addr%cacheLine) % cacheLine
	return &Chunk{
		buf:  buf,
		base: unsafe.Pointer(&buf[pad]),
	}
}

// Pointer returns a pointer to the given byte offset inside the chunk.
func (c *Chunk) Pointer(offset uintptr) unsafe.Pointer {
	return unsafe.Add(c.base, offset)
}

// Bytes exposes the chunk's aligned data region.
func (c *Chunk) Bytes() []byte {
	return unsafe.Slice((*byte)(c.base), ChunkSize)
}

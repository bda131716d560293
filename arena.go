package callable

import (
	"unsafe"

	"go.uber.org/zap"
)

// DefaultChunkSize is the default chunk size for new arenas (64 KiB).
const DefaultChunkSize = 1 << 16

// chunk represents a single memory chunk within an arena.
type chunk struct {
	buf    []byte  // backing memory
	offset uintptr // allocation offset within buf
}

// Arena is a chunked bump allocator usable as a Storage backend.
// Freeing the most recent block rolls the offset back; other frees are
// only accounted and their bytes come back on Reset.
// Not goroutine-safe; use SafeAllocator for concurrent access.
type Arena struct {
	chunks       []chunk
	chunkSize    int
	maxBytes     int
	currentChunk *chunk
	stats        Stats
	log          *zap.Logger
}

// ArenaOption configures an Arena.
type ArenaOption func(*Arena)

// WithMaxBytes caps the total chunk capacity of the arena. Allocations that
// would grow it past n fail with ErrAllocation. n <= 0 means unlimited.
func WithMaxBytes(n int) ArenaOption {
	return func(a *Arena) { a.maxBytes = n }
}

// WithLogger sets the logger used for chunk growth and exhaustion events.
func WithLogger(l *zap.Logger) ArenaOption {
	return func(a *Arena) {
		if l != nil {
			a.log = l
		}
	}
}

// NewArena creates a new Arena with the specified chunk size.
// If chunkSize <= 0, DefaultChunkSize is used. The first chunk is
// allocated lazily so a budget smaller than the chunk size still works.
func NewArena(chunkSize int, opts ...ArenaOption) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &Arena{chunkSize: chunkSize, chunks: []chunk{}, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Alloc implements Allocator.
func (a *Arena) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	a.panicIfReleased()
	if align < wordSize {
		align = wordSize
	}
	n := size
	if n == 0 {
		n = 1
	}

	// Fast path: use cached current chunk
	if c := a.currentChunk; c != nil {
		if off, ok := c.fit(n, align); ok {
			c.offset = off + n
			a.stats.recordAlloc(size)
			return unsafe.Pointer(&c.buf[off]), nil
		}
	}

	// Slow path: need new chunk
	if err := a.grow(int(n + align)); err != nil {
		a.stats.Failures++
		a.log.Warn("arena exhausted",
			zap.Uintptr("size", size),
			zap.Int("capacity", a.Capacity()),
			zap.Int("max_bytes", a.maxBytes))
		return nil, err
	}
	c := a.currentChunk
	off, _ := c.fit(n, align)
	c.offset = off + n
	a.stats.recordAlloc(size)
	return unsafe.Pointer(&c.buf[off]), nil
}

// fit returns the offset at which n bytes aligned to align start, and
// whether they fit in the chunk. Alignment is applied to the address.
func (c *chunk) fit(n, align uintptr) (uintptr, bool) {
	if len(c.buf) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(&c.buf[0]))
	off := alignUp(base+c.offset, align) - base
	return off, off+n <= uintptr(len(c.buf))
}

// Free implements Allocator. Only the most recent block of the current
// chunk is actually reclaimed. Blocks allocated before a Reset were already
// dropped from BytesInUse, so the count never goes below zero.
func (a *Arena) Free(p unsafe.Pointer, size uintptr) {
	a.panicIfReleased()
	a.stats.recordFree(size)
	if a.stats.BytesInUse < 0 {
		a.stats.BytesInUse = 0
	}
	c := a.currentChunk
	if c == nil || len(c.buf) == 0 || size == 0 {
		return
	}
	start := uintptr(unsafe.Pointer(&c.buf[0]))
	if uintptr(p) >= start && uintptr(p)+size == start+c.offset {
		c.offset = uintptr(p) - start
	}
}

// Reset resets allocation offsets to zero but keeps allocated chunks for reuse.
// Any block still held by a Storage becomes invalid.
func (a *Arena) Reset() {
	a.panicIfReleased()
	for i := range a.chunks {
		a.chunks[i].offset = 0
	}
	// Reset cached chunk to first chunk
	if len(a.chunks) > 0 {
		a.currentChunk = &a.chunks[0]
	}
	a.stats.BytesInUse = 0
}

// Release drops all chunks and makes the arena unusable.
// Any subsequent operations will panic.
func (a *Arena) Release() {
	a.chunks = nil
	a.currentChunk = nil
	a.stats.BytesInUse = 0
}

// grow appends a new chunk of at least min bytes.
func (a *Arena) grow(min int) error {
	size := a.chunkSize
	if min > size {
		size = min
	}
	if a.maxBytes > 0 {
		room := a.maxBytes - a.Capacity()
		if min > room {
			return allocFailed(uintptr(min), wordSize, "arena budget exhausted")
		}
		if size > room {
			size = room
		}
	}
	buf := make([]byte, size)
	a.chunks = append(a.chunks, chunk{buf: buf, offset: 0})
	a.currentChunk = &a.chunks[len(a.chunks)-1]
	a.log.Debug("arena grew",
		zap.Int("chunk_bytes", size),
		zap.Int("chunks", len(a.chunks)))
	return nil
}

// panicIfReleased panics if the arena has been released.
func (a *Arena) panicIfReleased() {
	if a.chunks == nil {
		panic("arena: use after Release()")
	}
}

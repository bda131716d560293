package callable

import (
	"unsafe"
)

// Allocator is the backend a Storage asks for memory when a pointer-free
// value does not fit its inline buffer. The returned memory is never
// scanned by the garbage collector, so it only ever holds scalar data.
type Allocator interface {
	// Alloc returns at least size bytes aligned to align, or an error
	// wrapping ErrAllocation.
	Alloc(size, align uintptr) (unsafe.Pointer, error)
	// Free returns a block obtained from Alloc. size is the requested size.
	Free(p unsafe.Pointer, size uintptr)
}

// Stats is a snapshot of an allocator's activity.
type Stats struct {
	Allocs     uint64 // successful Alloc calls
	Frees      uint64 // Free calls
	Failures   uint64 // Alloc calls that returned an error
	BytesInUse int64  // requested bytes not yet freed
	PeakBytes  int64  // high-water mark of BytesInUse
}

// MetricsSource is implemented by allocators that keep Stats.
type MetricsSource interface {
	Stats() Stats
}

func (s *Stats) recordAlloc(size uintptr) {
	s.Allocs++
	s.BytesInUse += int64(size)
	if s.BytesInUse > s.PeakBytes {
		s.PeakBytes = s.BytesInUse
	}
}

func (s *Stats) recordFree(size uintptr) {
	s.Frees++
	s.BytesInUse -= int64(size)
}

var (
	_ Allocator     = (*HeapAllocator)(nil)
	_ Allocator     = (*Arena)(nil)
	_ Allocator     = (*SafeAllocator)(nil)
	_ Allocator     = (*MmapAllocator)(nil)
	_ MetricsSource = (*HeapAllocator)(nil)
	_ MetricsSource = (*Arena)(nil)
	_ MetricsSource = (*SafeAllocator)(nil)
	_ MetricsSource = (*MmapAllocator)(nil)
)

// HeapAllocator hands out word-aligned blocks from the Go heap. A positive
// Budget caps BytesInUse; requests past it fail with ErrAllocation.
// Not goroutine-safe; wrap it in a SafeAllocator to share it.
type HeapAllocator struct {
	Budget int64
	stats  Stats
}

// NewHeapAllocator returns a HeapAllocator capped at budget bytes.
// budget <= 0 means unlimited.
func NewHeapAllocator(budget int64) *HeapAllocator {
	return &HeapAllocator{Budget: budget}
}

// Alloc implements Allocator.
func (h *HeapAllocator) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	if h.Budget > 0 && h.stats.BytesInUse+int64(size) > h.Budget {
		h.stats.Failures++
		return nil, allocFailed(size, align, "heap budget exhausted")
	}
	h.stats.recordAlloc(size)
	return heapAlloc(size, align), nil
}

// Free implements Allocator. The block is reclaimed by the collector once
// the caller drops its last reference.
func (h *HeapAllocator) Free(_ unsafe.Pointer, size uintptr) {
	h.stats.recordFree(size)
}

// Stats implements MetricsSource.
func (h *HeapAllocator) Stats() Stats {
	return h.stats
}

// heapAlloc returns a zeroed block of at least size bytes. Blocks are
// backed by []uint64 so the collector never scans them.
func heapAlloc(size, align uintptr) unsafe.Pointer {
	if align < wordSize {
		align = wordSize
	}
	words := (size + align - 1 + wordSize - 1) / wordSize
	if words == 0 {
		words = 1
	}
	buf := make([]uint64, words)
	base := uintptr(unsafe.Pointer(&buf[0]))
	off := alignUp(base, align) - base
	return unsafe.Add(unsafe.Pointer(&buf[0]), off)
}

// alignUp rounds off up to a multiple of align, which must be a power of two.
func alignUp(off, align uintptr) uintptr {
	mask := align - 1
	return (off + mask) &^ mask
}

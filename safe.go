package callable

import (
	"sync"
	"unsafe"
)

// SafeAllocator is a mutex-protected wrapper around an Allocator so that
// wrappers owned by different goroutines can share one backend. Each Func
// is still owned by a single goroutine.
type SafeAllocator struct {
	mu sync.Mutex
	a  Allocator
}

// NewSafeAllocator wraps a.
func NewSafeAllocator(a Allocator) *SafeAllocator {
	return &SafeAllocator{a: a}
}

// NewSafeArena creates a thread-safe arena with the specified chunk size.
// If chunkSize <= 0, DefaultChunkSize is used.
func NewSafeArena(chunkSize int, opts ...ArenaOption) *SafeAllocator {
	return NewSafeAllocator(NewArena(chunkSize, opts...))
}

// Alloc thread-safely implements Allocator.
func (s *SafeAllocator) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Alloc(size, align)
}

// Free thread-safely implements Allocator.
func (s *SafeAllocator) Free(p unsafe.Pointer, size uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Free(p, size)
}

// Stats returns the wrapped allocator's Stats, or zero Stats if it keeps none.
func (s *SafeAllocator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.a.(MetricsSource); ok {
		return src.Stats()
	}
	return Stats{}
}

// Metrics returns arena metrics when the wrapped allocator is an arena.
func (s *SafeAllocator) Metrics() ArenaMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.a.(ArenaMetricsSource); ok {
		return src.Metrics()
	}
	return ArenaMetrics{}
}

// Reset thread-safely resets the wrapped allocator if it supports it.
func (s *SafeAllocator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.a.(interface{ Reset() }); ok {
		r.Reset()
	}
}

//go:build linux || darwin || freebsd

package callable

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapAllocator is a bump allocator over one anonymous memory mapping.
// The mapping lives outside the Go heap, so a fixed amount of memory can
// be reserved for out-of-line values up front. Freeing the most recent
// block rolls the offset back. Not goroutine-safe.
type MmapAllocator struct {
	mem    []byte
	offset uintptr
	stats  Stats
}

// NewMmapAllocator maps size bytes of anonymous memory.
func NewMmapAllocator(size int) (*MmapAllocator, error) {
	if size <= 0 {
		return nil, fmt.Errorf("callable: mmap size must be positive, got %d", size)
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("callable: mmap %d bytes: %w", size, err)
	}
	return &MmapAllocator{mem: mem}, nil
}

// Alloc implements Allocator.
func (m *MmapAllocator) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	if m.mem == nil {
		panic("mmap allocator: use after Close()")
	}
	if align < wordSize {
		align = wordSize
	}
	base := uintptr(unsafe.Pointer(&m.mem[0]))
	off := alignUp(base+m.offset, align) - base
	n := size
	if n == 0 {
		n = 1
	}
	if off+n > uintptr(len(m.mem)) {
		m.stats.Failures++
		return nil, allocFailed(size, align, "mapping exhausted")
	}
	m.offset = off + n
	m.stats.recordAlloc(size)
	p := unsafe.Pointer(&m.mem[off])
	clear(m.mem[off : off+n])
	return p, nil
}

// Free implements Allocator.
func (m *MmapAllocator) Free(p unsafe.Pointer, size uintptr) {
	m.stats.recordFree(size)
	if m.mem == nil || size == 0 {
		return
	}
	base := uintptr(unsafe.Pointer(&m.mem[0]))
	if uintptr(p) >= base && uintptr(p)+size == base+m.offset {
		m.offset = uintptr(p) - base
	}
}

// Stats implements MetricsSource.
func (m *MmapAllocator) Stats() Stats {
	return m.stats
}

// Remaining returns the bytes left past the current offset.
func (m *MmapAllocator) Remaining() int {
	return len(m.mem) - int(m.offset)
}

// Close unmaps the memory. Blocks still held by a Storage become invalid.
func (m *MmapAllocator) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	m.offset = 0
	return err
}

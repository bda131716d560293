//go:build !(linux || darwin || freebsd)

package callable

import (
	"errors"
	"unsafe"
)

// MmapAllocator is unavailable on this platform.
type MmapAllocator struct{}

// NewMmapAllocator always fails on this platform.
func NewMmapAllocator(size int) (*MmapAllocator, error) {
	return nil, errors.New("callable: mmap allocator not supported on this platform")
}

func (m *MmapAllocator) Alloc(size, align uintptr) (unsafe.Pointer, error) {
	return nil, allocFailed(size, align, "mmap unsupported")
}

func (m *MmapAllocator) Free(unsafe.Pointer, uintptr) {}

func (m *MmapAllocator) Stats() Stats { return Stats{} }

func (m *MmapAllocator) Remaining() int { return 0 }

func (m *MmapAllocator) Close() error { return nil }

package callable

import (
	"unsafe"
)

// Buffer is the set of inline buffer types. The buffer's size is the
// inline capacity of a Storage; its words are never scanned by the
// garbage collector.
type Buffer interface {
	~[1]uint64 | ~[2]uint64 | ~[4]uint64 | ~[8]uint64 | ~[16]uint64
}

// Inline buffer sizes.
type (
	Inline8   [1]uint64
	Inline16  [2]uint64
	Inline32  [4]uint64
	Inline64  [8]uint64
	Inline128 [16]uint64
)

// DefaultInline is the recommended inline capacity (32 bytes).
type DefaultInline = Inline32

// Mode reports where a Storage keeps its value.
type Mode uint8

const (
	ModeEmpty  Mode = iota
	ModeInline      // scalar value in the inline buffer
	ModeWord        // pointer-shaped value in the inline pointer slot
	ModeHeap        // scalar value in a block from the Allocator
	ModeObject      // pointer-bearing value in a typed heap object
)

func (m Mode) String() string {
	switch m {
	case ModeEmpty:
		return "empty"
	case ModeInline:
		return "inline"
	case ModeWord:
		return "word"
	case ModeHeap:
		return "heap"
	case ModeObject:
		return "object"
	}
	return "unknown"
}

// Storage is an inline buffer unioned with an owning heap address. The
// word field is either the pointer-shaped value itself (ModeWord) or the
// address of the heap block (ModeHeap, ModeObject).
//
// The zero value is empty and allocates from the Go heap.
type Storage[B Buffer] struct {
	buf     B
	word    unsafe.Pointer
	layout  Layout
	mode    Mode
	backend Allocator // used for new heap blocks
	owner   Allocator // owns the current ModeHeap block
}

// SetAllocator selects the backend for future heap blocks. A nil Allocator
// selects the Go heap.
func (s *Storage[B]) SetAllocator(a Allocator) {
	s.backend = a
}

// Capacity returns the inline capacity in bytes.
func (s *Storage[B]) Capacity() uintptr {
	return unsafe.Sizeof(s.buf)
}

// Size returns the size of the stored value, 0 when empty.
func (s *Storage[B]) Size() uintptr {
	return s.layout.Size
}

// Mode returns the active storage mode.
func (s *Storage[B]) Mode() Mode {
	return s.mode
}

// IsInline reports whether no heap memory is held. Values that contain
// pointers are inline only when they are a single pointer word; others,
// such as a 16-byte struct{ s string }, live in a typed heap object even
// when they are smaller than the buffer.
func (s *Storage[B]) IsInline() bool {
	return s.mode != ModeHeap && s.mode != ModeObject
}

// fits reports whether l would be placed inline.
func (s *Storage[B]) fits(l Layout) bool {
	switch l.Class {
	case ClassScalar:
		return l.Size <= s.Capacity() && l.Align <= wordSize
	case ClassPointer:
		return true
	}
	return false
}

// Acquire releases any held memory and returns zeroed storage for a value
// of layout l. The mode is recomputed from l on every call. On failure the
// Storage is left empty and the error wraps ErrAllocation.
func (s *Storage[B]) Acquire(l Layout) (unsafe.Pointer, error) {
	s.Release()
	switch {
	case s.fits(l) && l.Class == ClassScalar:
		var zero B
		s.buf = zero
		s.mode = ModeInline
	case s.fits(l):
		s.mode = ModeWord
	case l.Class == ClassScalar:
		backend := s.backend
		var (
			p   unsafe.Pointer
			err error
		)
		if backend == nil {
			p = heapAlloc(l.Size, l.Align)
		} else if p, err = backend.Alloc(l.Size, l.Align); err != nil {
			return nil, err
		}
		s.word = p
		s.owner = backend
		s.mode = ModeHeap
	default:
		s.word = l.New()
		s.mode = ModeObject
	}
	s.layout = l
	return s.Pointer(), nil
}

// Pointer returns the address of the stored value, nil when empty.
func (s *Storage[B]) Pointer() unsafe.Pointer {
	switch s.mode {
	case ModeInline:
		return unsafe.Pointer(&s.buf)
	case ModeWord:
		return unsafe.Pointer(&s.word)
	case ModeHeap, ModeObject:
		return s.word
	}
	return nil
}

// Release returns the Storage to empty. Idempotent.
func (s *Storage[B]) Release() {
	if s.mode == ModeHeap && s.owner != nil {
		s.owner.Free(s.word, s.layout.Size)
	}
	s.word = nil
	s.owner = nil
	s.layout = Layout{}
	s.mode = ModeEmpty
}

// adopt moves a heap-held value from src into dst without copying it.
// dst must be empty.
func adopt[D, S Buffer](dst *Storage[D], src *Storage[S]) {
	dst.word = src.word
	dst.owner = src.owner
	dst.layout = src.layout
	dst.mode = src.mode

	src.word = nil
	src.owner = nil
	src.layout = Layout{}
	src.mode = ModeEmpty
}

package callable

import (
	"reflect"
	"sync"
	"unsafe"
)

// Class describes how the garbage collector sees a type's memory.
type Class uint8

const (
	// ClassScalar types hold no pointers and may live in untyped words.
	ClassScalar Class = iota
	// ClassPointer types are exactly one pointer word (func, pointer,
	// map, chan, or a one-field wrapper of those).
	ClassPointer
	// ClassMixed types carry pointers alongside other data and must live
	// in typed memory.
	ClassMixed
)

func (c Class) String() string {
	switch c {
	case ClassScalar:
		return "scalar"
	case ClassPointer:
		return "pointer"
	case ClassMixed:
		return "mixed"
	}
	return "unknown"
}

// Layout is the storage request for one concrete type.
type Layout struct {
	Size  uintptr
	Align uintptr
	Class Class
	// New allocates a zeroed, collector-visible T. Used for ClassMixed.
	New func() unsafe.Pointer
}

// LayoutOf returns the storage layout of T.
func LayoutOf[T any]() Layout {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return Layout{
		Size:  t.Size(),
		Align: uintptr(t.Align()),
		Class: classOf(t),
		New:   func() unsafe.Pointer { return unsafe.Pointer(new(T)) },
	}
}

const wordSize = unsafe.Sizeof(uintptr(0))

var classes sync.Map // reflect.Type -> Class

func classOf(t reflect.Type) Class {
	if c, ok := classes.Load(t); ok {
		return c.(Class)
	}
	c := classify(t)
	classes.Store(t, c)
	return c
}

func classify(t reflect.Type) Class {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return ClassScalar
	case reflect.Pointer, reflect.UnsafePointer, reflect.Func, reflect.Map, reflect.Chan:
		return ClassPointer
	case reflect.Array:
		if t.Len() == 0 {
			return ClassScalar
		}
		elem := classify(t.Elem())
		if elem == ClassScalar {
			return ClassScalar
		}
		if t.Len() == 1 {
			return elem
		}
		return ClassMixed
	case reflect.Struct:
		inner := ClassScalar
		pointerFields := 0
		for i := 0; i < t.NumField(); i++ {
			c := classify(t.Field(i).Type)
			if c == ClassScalar {
				continue
			}
			pointerFields++
			inner = c
		}
		switch {
		case pointerFields == 0:
			return ClassScalar
		case pointerFields == 1 && inner == ClassPointer && t.Size() == wordSize:
			return ClassPointer
		}
		return ClassMixed
	}
	// string, slice, interface
	return ClassMixed
}

// Package callable implements small-buffer-optimized, type-erased,
// move-only callables.
//
// # Overview
//
// A Func[A, R, B] holds any value that can be called as func(A) R: a plain
// function, a closure, or any type whose pointer has an Invoke(A) R
// method. Small values are stored inside the Func itself, in an inline
// buffer of type B; larger values are stored on the heap. The concrete type
// is erased behind three functions bound at install time: invoke, destroy
// and relocate.
//
// # Basic Usage
//
//	var inc callable.Func[int, int, callable.DefaultInline]
//	inc.InstallFunc(func(x int) int { return x + 1 })
//	inc.Call(1) // 2
//
//	// Methods work too, including pointer receivers that mutate state.
//	c, err := callable.New[callable.Inline32, int, int](counter{})
//
//	// Ownership moves; it is never shared.
//	var next callable.Func[int, int, callable.DefaultInline]
//	next.MoveFrom(&inc) // inc is now empty
//
// Signatures with several arguments take a struct; arguments passed by
// reference are pointers. Void is the result type of procedures:
//
//	var bump callable.Func[*int, callable.Void, callable.Inline16]
//
// # Storage
//
// The inline capacity is the size of B: Inline8, Inline16, Inline32
// (DefaultInline), Inline64 or Inline128. Where a value lives depends on
// its size and on what the garbage collector needs to see:
//
//   - pointer-free values that fit B are stored in the inline buffer;
//   - single-pointer values (funcs, closures, pointers, maps, channels) are
//     stored in an inline pointer slot;
//   - pointer-free values larger than B are stored in a block from the
//     Func's Allocator (the Go heap by default, or an Arena,
//     HeapAllocator or MmapAllocator);
//   - any other value (strings, slices, interfaces, mixed structs) is stored
//     in a typed heap object.
//
// Fits reports the decision for a type without installing anything.
//
// # Errors
//
// Allocation failures from a backend are returned as errors wrapping
// ErrAllocation and leave the Func empty. Programmer errors (calling an
// empty Func, installing a nil func, moving into a smaller buffer) panic
// with a *ContractError.
//
// # Equality
//
// Equal and Holds compare the concrete type of the held values, plus the
// code pointer for funcs. Captured values are never compared, and since
// closures compare by code pointer, two closures from the same literal may
// compare unequal once the function creating them is inlined.
//
// # Thread Safety
//
// A Func is owned by one goroutine at a time. Allocators are not
// goroutine-safe; wrap a shared one in a SafeAllocator.
package callable

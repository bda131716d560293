package callable

import (
	"reflect"
	"unsafe"
)

// Void is the result type of callables that return nothing.
type Void = struct{}

// Invoker constrains T so that *T has an Invoke method with the call
// signature. Value receivers qualify too, since they are in *T's method set.
type Invoker[T, A, R any] interface {
	*T
	Invoke(A) R
}

// Destroyer is implemented by held values that need to release resources
// when their Func is reset, reassigned or moved out of.
type Destroyer interface {
	Destroy()
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Func is a move-only, type-erased callable with signature func(A) R and
// an inline buffer of type B. Small values live inside the Func; larger
// ones live on the heap. The zero value is empty.
//
// A Func must not be copied; transfer ownership with MoveFrom or Move.
// A Func is not safe for concurrent use.
type Func[A, R any, B Buffer] struct {
	_        noCopy
	store    Storage[B]
	invoke   func(p unsafe.Pointer, a A) R
	destroy  func(p unsafe.Pointer)
	relocate func(src, dst unsafe.Pointer)
	typ      reflect.Type
	code     uintptr // function code pointer for func-kinded values
}

// Option configures a Func built by New or NewFunc.
type Option func(*options)

type options struct {
	alloc Allocator
}

// WithAllocator selects the backend for values that do not fit inline.
func WithAllocator(a Allocator) Option {
	return func(o *options) { o.alloc = a }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns a Func holding v.
func New[B Buffer, A, R, T any, PT Invoker[T, A, R]](v T, opts ...Option) (*Func[A, R, B], error) {
	f := &Func[A, R, B]{}
	f.store.SetAllocator(buildOptions(opts).alloc)
	if err := Install[A, R, B, T, PT](f, v); err != nil {
		return nil, err
	}
	return f, nil
}

// NewFunc returns a Func holding fn. It never fails: a func value is a
// single pointer and always fits inline.
func NewFunc[B Buffer, A, R any](fn func(A) R, opts ...Option) *Func[A, R, B] {
	f := &Func[A, R, B]{}
	f.store.SetAllocator(buildOptions(opts).alloc)
	f.InstallFunc(fn)
	return f
}

// SetAllocator selects the backend for values that do not fit inline.
// It takes effect on the next install.
func (f *Func[A, R, B]) SetAllocator(a Allocator) {
	f.store.SetAllocator(a)
}

// Install destroys the value f holds, then stores v in f. If storage cannot
// be allocated the error wraps ErrAllocation and f is left empty.
func Install[A, R any, B Buffer, T any, PT Invoker[T, A, R]](f *Func[A, R, B], v T) error {
	code, isFunc := codeOf(v)
	if isFunc && code == 0 {
		panic(contract("install", "nil %T", v))
	}
	f.Reset()
	p, err := f.store.Acquire(LayoutOf[T]())
	if err != nil {
		return err
	}
	*(*T)(p) = v
	f.invoke = invokeValue[A, R, T, PT]
	f.destroy = destroyValue[T, PT]
	f.relocate = relocateValue[T]
	f.typ = reflect.TypeOf((*T)(nil)).Elem()
	f.code = code
	return nil
}

// InstallFunc destroys the value f holds, then stores fn in f. Installing
// a nil func panics with a *ContractError.
func (f *Func[A, R, B]) InstallFunc(fn func(A) R) {
	if fn == nil {
		panic(contract("install", "nil %T", fn))
	}
	f.Reset()
	// A func value always lands in the pointer slot; Acquire cannot fail.
	p, _ := f.store.Acquire(LayoutOf[func(A) R]())
	*(*func(A) R)(p) = fn
	f.invoke = invokeFunc[A, R]
	f.destroy = destroyFunc[A, R]
	f.relocate = relocateValue[func(A) R]
	f.typ = reflect.TypeOf((*func(A) R)(nil)).Elem()
	f.code = reflect.ValueOf(fn).Pointer()
}

// Call invokes the held value with a. Calling an empty Func panics with a
// *ContractError.
func (f *Func[A, R, B]) Call(a A) R {
	if f.invoke == nil {
		panic(contract("call", "empty %T", f))
	}
	return f.invoke(f.store.Pointer(), a)
}

// MoveFrom destroys the value f holds and takes ownership of src's value,
// leaving src empty. It never fails.
func (f *Func[A, R, B]) MoveFrom(src *Func[A, R, B]) {
	Move(f, src)
}

// Move transfers src's value into dst, which may use a different inline
// buffer. dst's previous value is destroyed first and src is left empty.
// Inline values are relocated; heap values change owner without copying.
// Move panics with a *ContractError if dst's inline capacity is smaller
// than src's, since an inline src value might then need an allocation.
func Move[A, R any, D, S Buffer](dst *Func[A, R, D], src *Func[A, R, S]) {
	if dst.store.Capacity() < src.store.Capacity() {
		panic(contract("move", "destination capacity %d < source capacity %d",
			dst.store.Capacity(), src.store.Capacity()))
	}
	if unsafe.Pointer(dst) == unsafe.Pointer(src) {
		return
	}
	dst.Reset()
	if src.IsEmpty() {
		return
	}
	if src.store.IsInline() {
		p, err := dst.store.Acquire(src.store.layout)
		if err != nil || !dst.store.IsInline() {
			panic(contract("move", "inline value did not fit inline: %v", err))
		}
		src.relocate(src.store.Pointer(), p)
		src.store.Release()
	} else {
		adopt(&dst.store, &src.store)
	}
	dst.invoke = src.invoke
	dst.destroy = src.destroy
	dst.relocate = src.relocate
	dst.typ = src.typ
	dst.code = src.code
	src.unbind()
}

// Reset destroys the held value and releases its storage. Resetting an
// empty Func is a no-op.
func (f *Func[A, R, B]) Reset() {
	if f.IsEmpty() {
		return
	}
	f.destroy(f.store.Pointer())
	f.store.Release()
	f.unbind()
}

func (f *Func[A, R, B]) unbind() {
	f.invoke = nil
	f.destroy = nil
	f.relocate = nil
	f.typ = nil
	f.code = 0
}

// IsEmpty reports whether f holds no value.
func (f *Func[A, R, B]) IsEmpty() bool {
	return f.invoke == nil
}

// Valid reports whether f holds a value and may be called.
func (f *Func[A, R, B]) Valid() bool {
	return f.invoke != nil
}

// IsInline reports whether f holds no heap memory. An empty Func is inline.
// Pointer-bearing values other than a single pointer word are never inline,
// whatever their size; see Storage.IsInline.
func (f *Func[A, R, B]) IsInline() bool {
	return f.store.IsInline()
}

// Mode returns where the held value is stored.
func (f *Func[A, R, B]) Mode() Mode {
	return f.store.Mode()
}

// Type returns the concrete type of the held value, nil when empty.
func (f *Func[A, R, B]) Type() reflect.Type {
	return f.typ
}

// Equal reports whether f and g hold values of the same concrete type.
// For func-kinded values the code pointers must match as well. Two empty
// Funcs are equal.
//
// Values are not compared: two struct values of one type compare equal
// whatever their fields hold, and one closure value installed twice
// compares equal. Closures compare by code pointer, so two closures built
// from the same literal may compare unequal when the function creating
// them has been inlined at different call sites.
func (f *Func[A, R, B]) Equal(g *Func[A, R, B]) bool {
	if f.IsEmpty() || g.IsEmpty() {
		return f.IsEmpty() == g.IsEmpty()
	}
	return f.typ == g.typ && f.code == g.code
}

// Holds reports whether f holds a value of v's concrete type, and for
// func-kinded values, the same function as v. See Equal for limits.
func Holds[A, R any, B Buffer, T any](f *Func[A, R, B], v T) bool {
	if f.IsEmpty() || f.typ != reflect.TypeOf((*T)(nil)).Elem() {
		return false
	}
	code, _ := codeOf(v)
	return f.code == code
}

// Fits reports whether a T would be stored inline in a Func with buffer B.
func Fits[T any, B Buffer]() bool {
	var s Storage[B]
	return s.fits(LayoutOf[T]())
}

func codeOf[T any](v T) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func {
		return 0, false
	}
	return rv.Pointer(), true
}

func invokeValue[A, R, T any, PT Invoker[T, A, R]](p unsafe.Pointer, a A) R {
	return PT((*T)(p)).Invoke(a)
}

func invokeFunc[A, R any](p unsafe.Pointer, a A) R {
	return (*(*func(A) R)(p))(a)
}

func destroyValue[T any, PT interface{ *T }](p unsafe.Pointer) {
	if d, ok := any(PT((*T)(p))).(Destroyer); ok {
		d.Destroy()
	}
	var zero T
	*(*T)(p) = zero
}

func destroyFunc[A, R any](p unsafe.Pointer) {
	*(*func(A) R)(p) = nil
}

func relocateValue[T any](src, dst unsafe.Pointer) {
	*(*T)(dst) = *(*T)(src)
	var zero T
	*(*T)(src) = zero
}

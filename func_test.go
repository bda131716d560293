package callable

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addOne(x int) int { return x + 1 }
func addTwo(x int) int { return x + 2 }

type adder struct{ n int }

func (a adder) Invoke(x int) int { return x + a.n }

type counter struct{ n int }

func (c *counter) Invoke(x int) int {
	c.n += x
	return c.n
}

// wide is 24 bytes of scalars.
type wide struct{ a, b, c uint64 }

func (w wide) Invoke(x int) int { return int(w.a+w.b+w.c) + x }

type fill32 [32]byte

func (f fill32) Invoke(x int) int { return int(f[0]) + int(f[31]) + x }

type fill33 [33]byte

func (f fill33) Invoke(x int) int { return int(f[0]) + int(f[32]) + x }

// banner is a large pointer-free callable.
type banner struct {
	text [96]byte
	n    int
}

func newBanner(s string) banner {
	var b banner
	b.n = copy(b.text[:], s)
	return b
}

func (b banner) Invoke(x int) int { return b.n + x }

func (b banner) String() string { return string(b.text[:b.n]) }

// named holds a string and so needs a typed heap object.
type named struct{ name string }

func (n named) Invoke(x int) int { return len(n.name) + x }

type adderFunc func(int) int

func (f adderFunc) Invoke(x int) int { return f(x) }

type tracked struct {
	id  int
	log *[]int
}

func (t *tracked) Invoke(x int) int { return t.id + x }

func (t *tracked) Destroy() { *t.log = append(*t.log, t.id) }

type fn32 = Func[int, int, Inline32]

func requireContractPanic(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		ce, ok := r.(*ContractError)
		require.Truef(t, ok, "panic value is %T, want *ContractError", r)
		assert.Equal(t, op, ce.Op)
	}()
	fn()
}

func TestFuncIncrement(t *testing.T) {
	var f fn32
	f.InstallFunc(func(x int) int { return x + 1 })

	assert.Equal(t, 2, f.Call(1))
	assert.Equal(t, 3, f.Call(f.Call(1)))
	assert.Equal(t, ModeWord, f.Mode())
	assert.True(t, f.IsInline())
}

func TestFuncReferenceArgument(t *testing.T) {
	var inc Func[*int, Void, Inline32]
	inc.InstallFunc(func(p *int) Void {
		*p++
		return Void{}
	})

	i := 1
	inc.Call(&i)
	inc.Call(&i)
	assert.Equal(t, 3, i)
}

func TestFuncReferenceArgumentString(t *testing.T) {
	var adda Func[*string, Void, Inline8]
	adda.InstallFunc(func(s *string) Void {
		*s += "a"
		return Void{}
	})

	s := "b"
	adda.Call(&s)
	adda.Call(&s)
	assert.Equal(t, "baa", s)
}

func TestFuncStringSignature(t *testing.T) {
	f := NewFunc[Inline8](func(s string) string { return s + "a" })
	assert.Equal(t, "a", f.Call(""))
	assert.Equal(t, "baa", f.Call(f.Call("b")))
}

func TestFuncCapturedState(t *testing.T) {
	i := 0
	var f Func[Void, Void, DefaultInline]
	f.InstallFunc(func(Void) Void {
		i++
		return Void{}
	})

	f.Call(Void{})
	f.Call(Void{})
	assert.Equal(t, 2, i)
}

func TestFuncLargeValueSurvivesMoves(t *testing.T) {
	text := strings.Repeat("0123456789", 8)

	t.Run("pointer-free value", func(t *testing.T) {
		var a, b, c, d fn32
		require.NoError(t, Install(&a, newBanner(text)))
		require.Equal(t, ModeHeap, a.Mode())
		require.False(t, a.IsInline())

		b.MoveFrom(&a)
		c.MoveFrom(&b)
		d.MoveFrom(&c)

		assert.True(t, a.IsEmpty())
		assert.True(t, b.IsEmpty())
		assert.True(t, c.IsEmpty())
		assert.Equal(t, len(text)+1, d.Call(1))
		got := (*banner)(d.store.Pointer())
		assert.Equal(t, text, got.String())
	})

	t.Run("closure capture", func(t *testing.T) {
		var a, b, c, d Func[Void, string, Inline32]
		a.InstallFunc(func(Void) string { return text })

		b.MoveFrom(&a)
		c.MoveFrom(&b)
		d.MoveFrom(&c)

		assert.True(t, a.IsEmpty())
		assert.Equal(t, text, d.Call(Void{}))
	})

	t.Run("string field", func(t *testing.T) {
		var a, b, c, d fn32
		require.NoError(t, Install(&a, named{name: text}))
		require.Equal(t, ModeObject, a.Mode())

		b.MoveFrom(&a)
		c.MoveFrom(&b)
		d.MoveFrom(&c)

		assert.True(t, a.IsEmpty())
		assert.Equal(t, len(text)+1, d.Call(1))
	})
}

func TestFuncMoveLeavesSourceEmpty(t *testing.T) {
	tests := []struct {
		name    string
		install func(f *fn32) error
		mode    Mode
	}{
		{"inline", func(f *fn32) error { return Install(f, adder{n: 5}) }, ModeInline},
		{"word", func(f *fn32) error { f.InstallFunc(addTwo); return nil }, ModeWord},
		{"heap", func(f *fn32) error { return Install(f, newBanner("hello")) }, ModeHeap},
		{"object", func(f *fn32) error { return Install(f, named{name: "hello"}) }, ModeObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src, dst fn32
			require.NoError(t, tt.install(&src))
			require.Equal(t, tt.mode, src.Mode())
			want := []int{src.Call(0), src.Call(10)}
			typ := src.Type()

			dst.MoveFrom(&src)

			assert.True(t, src.IsEmpty())
			assert.False(t, src.Valid())
			assert.Equal(t, ModeEmpty, src.Mode())
			assert.Nil(t, src.Type())
			assert.Equal(t, tt.mode, dst.Mode())
			assert.Equal(t, typ, dst.Type())
			assert.Equal(t, want, []int{dst.Call(0), dst.Call(10)})

			requireContractPanic(t, "call", func() { src.Call(0) })

			// A moved-from Func can be reused.
			src.InstallFunc(addOne)
			assert.Equal(t, 2, src.Call(1))
		})
	}
}

func TestFuncMoveHeapTransfersPointer(t *testing.T) {
	for _, v := range []any{newBanner("x"), named{name: "x"}} {
		var src, dst fn32
		switch v := v.(type) {
		case banner:
			require.NoError(t, Install(&src, v))
		case named:
			require.NoError(t, Install(&src, v))
		}
		p := src.store.Pointer()

		dst.MoveFrom(&src)
		assert.Equal(t, p, dst.store.Pointer(), "%T should not be relocated", v)
	}
}

func TestFuncMoveRelocatesInline(t *testing.T) {
	var src, dst fn32
	require.NoError(t, Install(&src, adder{n: 3}))
	srcPtr := src.store.Pointer()

	dst.MoveFrom(&src)
	assert.NotEqual(t, srcPtr, dst.store.Pointer())
	assert.Equal(t, adder{}, *(*adder)(srcPtr), "moved-from husk should be zeroed")
	assert.Equal(t, 4, dst.Call(1))
}

func TestFuncStatefulCallable(t *testing.T) {
	var f, g fn32
	require.NoError(t, Install(&f, counter{}))
	require.Equal(t, ModeInline, f.Mode())

	assert.Equal(t, 1, f.Call(1))
	assert.Equal(t, 3, f.Call(2))

	g.MoveFrom(&f)
	assert.Equal(t, 6, g.Call(3), "state should travel with the move")
}

func TestFuncCapacityBoundary(t *testing.T) {
	var exact, over fn32
	require.NoError(t, Install(&exact, fill32{0: 1, 31: 2}))
	require.NoError(t, Install(&over, fill33{0: 1, 32: 2}))

	assert.True(t, exact.IsInline())
	assert.Equal(t, ModeInline, exact.Mode())
	assert.False(t, over.IsInline())
	assert.Equal(t, ModeHeap, over.Mode())

	assert.Equal(t, 4, exact.Call(1))
	assert.Equal(t, 4, over.Call(1))

	assert.True(t, Fits[fill32, Inline32]())
	assert.False(t, Fits[fill33, Inline32]())
	assert.True(t, Fits[fill33, Inline64]())
	assert.True(t, Fits[func(int) int, Inline8]())
	assert.False(t, Fits[named, Inline128]())
}

func TestFuncEquality(t *testing.T) {
	newFn := func(fn func(int) int) *fn32 { return NewFunc[Inline32](fn) }
	makeAdder := func(n int) func(int) int { return func(x int) int { return x + n } }

	t.Run("same free function", func(t *testing.T) {
		assert.True(t, newFn(addOne).Equal(newFn(addOne)))
	})
	t.Run("distinct free functions", func(t *testing.T) {
		assert.False(t, newFn(addOne).Equal(newFn(addTwo)))
	})
	t.Run("distinct closure literals", func(t *testing.T) {
		a := newFn(func(x int) int { return x + 1 })
		b := newFn(func(x int) int { return x + 1 })
		assert.False(t, a.Equal(b))
	})
	t.Run("same closure value", func(t *testing.T) {
		add := makeAdder(1)
		assert.True(t, newFn(add).Equal(newFn(add)))
		assert.True(t, Holds(newFn(add), add))
	})
	t.Run("same value type", func(t *testing.T) {
		var a, b fn32
		require.NoError(t, Install(&a, adder{n: 1}))
		require.NoError(t, Install(&b, adder{n: 2}))
		assert.True(t, a.Equal(&b))
	})
	t.Run("distinct value types", func(t *testing.T) {
		var a, b fn32
		require.NoError(t, Install(&a, adder{n: 1}))
		require.NoError(t, Install(&b, counter{n: 1}))
		assert.False(t, a.Equal(&b))
	})
	t.Run("named func type", func(t *testing.T) {
		var a, b, c fn32
		require.NoError(t, Install(&a, adderFunc(addOne)))
		require.NoError(t, Install(&b, adderFunc(addOne)))
		require.NoError(t, Install(&c, adderFunc(addTwo)))
		assert.True(t, a.Equal(&b))
		assert.False(t, a.Equal(&c))
		assert.False(t, a.Equal(newFn(addOne)), "func(int) int and adderFunc are distinct types")
	})
	t.Run("empty", func(t *testing.T) {
		var a, b fn32
		assert.True(t, a.Equal(&b))
		assert.False(t, a.Equal(newFn(addOne)))
		assert.False(t, newFn(addOne).Equal(&a))
	})
}

func TestHolds(t *testing.T) {
	f := NewFunc[Inline32](addOne)
	assert.True(t, Holds(f, addOne))
	assert.False(t, Holds(f, addTwo))
	assert.False(t, Holds(f, adder{n: 1}))

	var g fn32
	assert.False(t, Holds(&g, addOne))
	require.NoError(t, Install(&g, adder{n: 1}))
	assert.True(t, Holds(&g, adder{n: 7}))
	assert.False(t, Holds(&g, counter{}))
}

func TestFuncEmpty(t *testing.T) {
	var f fn32
	assert.True(t, f.IsEmpty())
	assert.False(t, f.Valid())
	assert.True(t, f.IsInline())
	assert.Equal(t, ModeEmpty, f.Mode())

	requireContractPanic(t, "call", func() { f.Call(1) })

	f.Reset() // no-op
	assert.True(t, f.IsEmpty())
}

func TestInstallNilFuncPanics(t *testing.T) {
	var f fn32
	f.InstallFunc(addOne)

	requireContractPanic(t, "install", func() { f.InstallFunc(nil) })
	requireContractPanic(t, "install", func() { _ = Install(&f, adderFunc(nil)) })
	assert.Equal(t, 2, f.Call(1), "rejected install must not disturb the held value")
}

func TestMoveAcrossCapacities(t *testing.T) {
	t.Run("into larger buffer", func(t *testing.T) {
		var small fn32
		var large Func[int, int, Inline64]
		require.NoError(t, Install(&small, fill32{0: 4}))

		Move(&large, &small)
		assert.True(t, small.IsEmpty())
		assert.Equal(t, ModeInline, large.Mode())
		assert.Equal(t, 5, large.Call(1))
	})

	t.Run("heap value into larger buffer", func(t *testing.T) {
		var small fn32
		var large Func[int, int, Inline128]
		require.NoError(t, Install(&small, newBanner("abc")))

		Move(&large, &small)
		// Ownership is transferred; the value stays on the heap.
		assert.Equal(t, ModeHeap, large.Mode())
		assert.Equal(t, 4, large.Call(1))
	})

	t.Run("into smaller buffer", func(t *testing.T) {
		var src fn32
		var dst Func[int, int, Inline16]
		require.NoError(t, Install(&src, adder{n: 1}))

		requireContractPanic(t, "move", func() { Move(&dst, &src) })
		assert.Equal(t, 2, src.Call(1), "source must be untouched")
		assert.True(t, dst.IsEmpty())
	})
}

func TestSelfMove(t *testing.T) {
	var f fn32
	require.NoError(t, Install(&f, adder{n: 2}))
	f.MoveFrom(&f)
	assert.Equal(t, 3, f.Call(1))
}

func TestFuncDestroy(t *testing.T) {
	var log []int
	var f, g fn32

	require.NoError(t, Install(&f, tracked{id: 1, log: &log}))
	require.NoError(t, Install(&f, tracked{id: 2, log: &log}))
	assert.Equal(t, []int{1}, log, "reassignment destroys the old value first")

	require.NoError(t, Install(&g, tracked{id: 3, log: &log}))
	g.MoveFrom(&f)
	assert.Equal(t, []int{1, 3}, log, "move destroys only the destination's value")
	assert.Equal(t, 12, g.Call(10))

	g.Reset()
	assert.Equal(t, []int{1, 3, 2}, log)
	assert.True(t, g.IsEmpty())

	g.Reset()
	assert.Equal(t, []int{1, 3, 2}, log, "resetting an empty Func is a no-op")
}

func TestInstallAllocationFailure(t *testing.T) {
	h := NewHeapAllocator(64)
	var f fn32
	f.SetAllocator(h)
	f.InstallFunc(addOne)

	err := Install(&f, newBanner("too big for the budget"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllocation))
	assert.True(t, f.IsEmpty(), "failed install leaves the Func empty")
	assert.Equal(t, uint64(1), h.Stats().Failures)

	// Inline values never reach the backend.
	require.NoError(t, Install(&f, adder{n: 1}))
	assert.Equal(t, uint64(0), h.Stats().Allocs)
}

func TestReinstallReleasesHeapBlock(t *testing.T) {
	h := NewHeapAllocator(0)
	f, err := New[Inline32, int, int](newBanner("abc"), WithAllocator(h))
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.Stats().Allocs)

	require.NoError(t, Install(f, adder{n: 1}))
	st := h.Stats()
	assert.Equal(t, uint64(1), st.Frees)
	assert.Zero(t, st.BytesInUse)
	assert.Equal(t, ModeInline, f.Mode())
}

func TestNewWithArena(t *testing.T) {
	a := NewArena(1024, WithMaxBytes(1024))
	f, err := New[Inline16, int, int](wide{a: 1, b: 2, c: 3}, WithAllocator(a))
	require.NoError(t, err)
	assert.Equal(t, ModeHeap, f.Mode())
	assert.Equal(t, 7, f.Call(1))
	assert.Equal(t, int64(24), a.Stats().BytesInUse)

	f.Reset()
	assert.Zero(t, a.SizeInUse(), "freeing the last block rolls the arena back")
}

func TestNewReturnsAllocationError(t *testing.T) {
	f, err := New[Inline8, int, int](wide{}, WithAllocator(NewHeapAllocator(8)))
	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestFuncType(t *testing.T) {
	var f fn32
	require.NoError(t, Install(&f, counter{}))
	assert.Equal(t, reflect.TypeOf((*counter)(nil)).Elem(), f.Type())
}

func BenchmarkFuncCall(b *testing.B) {
	b.Run("inline", func(b *testing.B) {
		var f fn32
		_ = Install(&f, adder{n: 1})
		for i := 0; i < b.N; i++ {
			_ = f.Call(i)
		}
	})
	b.Run("func", func(b *testing.B) {
		f := NewFunc[Inline32](addOne)
		for i := 0; i < b.N; i++ {
			_ = f.Call(i)
		}
	})
	b.Run("heap", func(b *testing.B) {
		var f fn32
		_ = Install(&f, newBanner("benchmark"))
		for i := 0; i < b.N; i++ {
			_ = f.Call(i)
		}
	})
}

func BenchmarkFuncMove(b *testing.B) {
	b.Run("inline", func(b *testing.B) {
		var f, g fn32
		_ = Install(&f, wide{a: 1})
		for i := 0; i < b.N; i++ {
			g.MoveFrom(&f)
			f.MoveFrom(&g)
		}
	})
	b.Run("heap", func(b *testing.B) {
		var f, g fn32
		_ = Install(&f, newBanner("benchmark"))
		for i := 0; i < b.N; i++ {
			g.MoveFrom(&f)
			f.MoveFrom(&g)
		}
	})
}

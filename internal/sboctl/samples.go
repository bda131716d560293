package sboctl

import (
	"fmt"
	"strings"

	"github.com/pavanmanishd/callable"
)

// adder is a small pointer-free callable; it fits any inline buffer.
type adder struct{ n int }

func (a adder) Invoke(x int) int { return x + a.n }

// checksum carries a 40-byte table, more than the default inline buffer.
type checksum struct{ table [5]uint64 }

func (c *checksum) Invoke(x int) int {
	h := uint64(x)
	for i, t := range c.table {
		h = h*31 + t + uint64(i)
	}
	c.table[0] = h
	return int(h & 0x7fffffff)
}

// labeler holds a string, so it must live in collector-visible memory.
type labeler struct{ prefix string }

func (l labeler) Invoke(x int) int { return len(l.prefix) + x }

type sample struct {
	name   string
	layout callable.Layout
	fits   map[string]bool
}

func sampleOf[T any](name string) sample {
	return sample{
		name:   name,
		layout: callable.LayoutOf[T](),
		fits: map[string]bool{
			"8":   callable.Fits[T, callable.Inline8](),
			"16":  callable.Fits[T, callable.Inline16](),
			"32":  callable.Fits[T, callable.Inline32](),
			"64":  callable.Fits[T, callable.Inline64](),
			"128": callable.Fits[T, callable.Inline128](),
		},
	}
}

var capacities = []string{"8", "16", "32", "64", "128"}

func samples() []sample {
	return []sample{
		sampleOf[func(int) int]("func"),
		sampleOf[adder]("adder"),
		sampleOf[checksum]("checksum"),
		sampleOf[labeler]("labeler"),
		sampleOf[[32]byte]("bytes32"),
		sampleOf[[33]byte]("bytes33"),
	}
}

func (s sample) placement(capacity string) string {
	switch {
	case s.fits[capacity] && s.layout.Class == callable.ClassScalar:
		return callable.ModeInline.String()
	case s.fits[capacity]:
		return callable.ModeWord.String()
	case s.layout.Class == callable.ClassScalar:
		return callable.ModeHeap.String()
	}
	return callable.ModeObject.String()
}

func (s sample) row() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %5d %-8s", s.name, s.layout.Size, s.layout.Class)
	for _, c := range capacities {
		fmt.Fprintf(&b, " %-7s", s.placement(c))
	}
	return b.String()
}

package sboctl

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pavanmanishd/callable"
	"github.com/pavanmanishd/callable/internal/config"
)

// backend is an allocator together with the hook that tears it down.
type backend struct {
	alloc callable.Allocator
	stats callable.MetricsSource
	close func() error
}

func newBackend(cfg config.Config, log *zap.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendHeap:
		h := callable.NewHeapAllocator(int64(cfg.MaxBytes))
		return &backend{alloc: h, stats: h, close: func() error { return nil }}, nil
	case config.BackendArena:
		a := callable.NewArena(cfg.ChunkSize,
			callable.WithMaxBytes(cfg.MaxBytes),
			callable.WithLogger(log.Named("arena")))
		return &backend{alloc: a, stats: a, close: func() error { a.Release(); return nil }}, nil
	case config.BackendMmap:
		m, err := callable.NewMmapAllocator(cfg.MaxBytes)
		if err != nil {
			return nil, err
		}
		return &backend{alloc: m, stats: m, close: m.Close}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

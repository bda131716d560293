package sboctl

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavanmanishd/callable"
	"github.com/pavanmanishd/callable/collector"
	"github.com/pavanmanishd/callable/internal/config"
)

func newBenchCmd(cfg *config.Config, logger func() *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bench",
		Short:   "Install, move and call callables against an allocation backend",
		Example: "  sboctl bench --backend arena --iterations 100000",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runBench(cmd.OutOrStdout(), *cfg, logger())
		},
	}
	cmd.Flags().StringVar(&cfg.Backend, "backend", cfg.Backend, "allocation backend: heap, arena or mmap")
	cmd.Flags().IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "arena chunk size in bytes")
	cmd.Flags().IntVar(&cfg.MaxBytes, "max-bytes", cfg.MaxBytes, "backend byte budget (0 = unlimited, required for mmap)")
	cmd.Flags().IntVarP(&cfg.Iterations, "iterations", "n", cfg.Iterations, "install/move/call rounds")
	return cmd
}

// benchResult summarizes one bench run.
type benchResult struct {
	Iterations int
	Calls      int
	Failures   int
	Checksum   int
	Elapsed    time.Duration
}

func runBench(out io.Writer, cfg config.Config, log *zap.Logger) error {
	b, err := newBackend(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			log.Warn("closing backend", zap.Error(err))
		}
	}()

	res := benchLoop(cfg.Iterations, b.alloc, log)
	log.Info("bench finished",
		zap.String("backend", cfg.Backend),
		zap.Int("iterations", res.Iterations),
		zap.Int("failures", res.Failures),
		zap.Duration("elapsed", res.Elapsed))

	fmt.Fprintf(out, "backend:    %s\n", cfg.Backend)
	fmt.Fprintf(out, "iterations: %d\n", res.Iterations)
	fmt.Fprintf(out, "calls:      %d\n", res.Calls)
	fmt.Fprintf(out, "failures:   %d\n", res.Failures)
	fmt.Fprintf(out, "checksum:   %d\n", res.Checksum)
	if res.Calls > 0 {
		fmt.Fprintf(out, "ns/call:    %.1f\n", float64(res.Elapsed.Nanoseconds())/float64(res.Calls))
	}
	return writeMetrics(out, cfg.Backend, b.stats)
}

// benchLoop runs n rounds. Each round installs an inline and an
// out-of-line callable, moves both through two more wrappers, calls them
// and resets the last holder.
func benchLoop(n int, alloc callable.Allocator, log *zap.Logger) benchResult {
	var (
		small, smallNext, smallLast callable.Func[int, int, callable.DefaultInline]
		big, bigNext, bigLast       callable.Func[int, int, callable.DefaultInline]
		res                         = benchResult{Iterations: n}
	)
	big.SetAllocator(alloc)

	start := time.Now()
	for i := 0; i < n; i++ {
		_ = callable.Install(&small, adder{n: i})
		smallNext.MoveFrom(&small)
		smallLast.MoveFrom(&smallNext)
		res.Checksum ^= smallLast.Call(i)
		res.Calls++

		if err := callable.Install(&big, checksum{table: [5]uint64{uint64(i)}}); err != nil {
			res.Failures++
			log.Debug("install failed", zap.Int("round", i), zap.Error(err))
			continue
		}
		bigNext.MoveFrom(&big)
		bigLast.MoveFrom(&bigNext)
		res.Checksum ^= bigLast.Call(i)
		res.Calls++
		bigLast.Reset()
	}
	res.Elapsed = time.Since(start)
	return res
}

func writeMetrics(out io.Writer, name string, src callable.MetricsSource) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector.New(name, src)); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue() + m.GetGauge().GetValue()
			fmt.Fprintf(out, "%s %g\n", mf.GetName(), v)
		}
	}
	return nil
}

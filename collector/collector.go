// Package collector exports allocator statistics as Prometheus metrics.
package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavanmanishd/callable"
)

const namespace = "callable"

// Collector is a prometheus.Collector for one allocation backend. Arena
// gauges are exported when the source also implements
// callable.ArenaMetricsSource.
type Collector struct {
	src   callable.MetricsSource
	arena callable.ArenaMetricsSource

	allocs      *prometheus.Desc
	frees       *prometheus.Desc
	failures    *prometheus.Desc
	bytesInUse  *prometheus.Desc
	peakBytes   *prometheus.Desc
	arenaUsed   *prometheus.Desc
	arenaCap    *prometheus.Desc
	arenaChunks *prometheus.Desc
}

// New returns a Collector labelled with allocator=name.
func New(name string, src callable.MetricsSource) *Collector {
	labels := prometheus.Labels{"allocator": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, nil, labels)
	}
	c := &Collector{
		src:         src,
		allocs:      desc("alloc_total", "Successful backend allocations."),
		frees:       desc("free_total", "Blocks returned to the backend."),
		failures:    desc("alloc_failures_total", "Backend allocations that failed."),
		bytesInUse:  desc("alloc_bytes_in_use", "Requested bytes currently held."),
		peakBytes:   desc("alloc_bytes_peak", "High-water mark of bytes in use."),
		arenaUsed:   desc("arena_used_bytes", "Chunk bytes consumed, including padding."),
		arenaCap:    desc("arena_capacity_bytes", "Total chunk capacity."),
		arenaChunks: desc("arena_chunks", "Number of arena chunks."),
	}
	if a, ok := src.(callable.ArenaMetricsSource); ok {
		c.arena = a
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocs
	ch <- c.frees
	ch <- c.failures
	ch <- c.bytesInUse
	ch <- c.peakBytes
	if c.arena != nil {
		ch <- c.arenaUsed
		ch <- c.arenaCap
		ch <- c.arenaChunks
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.allocs, prometheus.CounterValue, float64(s.Allocs))
	ch <- prometheus.MustNewConstMetric(c.frees, prometheus.CounterValue, float64(s.Frees))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures))
	ch <- prometheus.MustNewConstMetric(c.bytesInUse, prometheus.GaugeValue, float64(s.BytesInUse))
	ch <- prometheus.MustNewConstMetric(c.peakBytes, prometheus.GaugeValue, float64(s.PeakBytes))
	if c.arena == nil {
		return
	}
	m := c.arena.Metrics()
	ch <- prometheus.MustNewConstMetric(c.arenaUsed, prometheus.GaugeValue, float64(m.SizeInUse))
	ch <- prometheus.MustNewConstMetric(c.arenaCap, prometheus.GaugeValue, float64(m.Capacity))
	ch <- prometheus.MustNewConstMetric(c.arenaChunks, prometheus.GaugeValue, float64(m.NumChunks))
}

package callable

// SizeInUse returns the number of chunk bytes consumed by allocations,
// including alignment padding.
func (a *Arena) SizeInUse() int {
	if a.chunks == nil {
		return 0
	}
	sum := 0
	for _, c := range a.chunks {
		sum += int(c.offset)
	}
	return sum
}

// NumChunks returns the number of chunks currently allocated by the arena.
func (a *Arena) NumChunks() int {
	return len(a.chunks)
}

// Capacity returns the total capacity (in bytes) of all chunks in the arena.
func (a *Arena) Capacity() int {
	sum := 0
	for _, c := range a.chunks {
		sum += len(c.buf)
	}
	return sum
}

// Utilization returns the ratio of bytes in use to total capacity (0.0 to 1.0).
// Returns 0.0 if the arena has no capacity.
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(capacity)
}

// ChunkSize returns the default chunk size used by this arena.
func (a *Arena) ChunkSize() int {
	return a.chunkSize
}

// MaxBytes returns the capacity budget, or 0 when unlimited.
func (a *Arena) MaxBytes() int {
	return a.maxBytes
}

// Stats implements MetricsSource.
func (a *Arena) Stats() Stats {
	return a.stats
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() ArenaMetrics {
	return ArenaMetrics{
		SizeInUse:   a.SizeInUse(),
		Capacity:    a.Capacity(),
		NumChunks:   a.NumChunks(),
		ChunkSize:   a.ChunkSize(),
		MaxBytes:    a.maxBytes,
		Utilization: a.Utilization(),
	}
}

// ArenaMetrics contains statistical information about an arena.
type ArenaMetrics struct {
	SizeInUse   int     // Bytes currently consumed
	Capacity    int     // Total capacity in bytes
	NumChunks   int     // Number of chunks
	ChunkSize   int     // Default chunk size
	MaxBytes    int     // Capacity budget, 0 if unlimited
	Utilization float64 // Ratio of used to total capacity (0.0-1.0)
}

// ArenaMetricsSource is implemented by Arena and by a SafeAllocator
// wrapping one.
type ArenaMetricsSource interface {
	Metrics() ArenaMetrics
}

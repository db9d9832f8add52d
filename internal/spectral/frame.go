// SPDX-License-Identifier: MIT
package spectral

import (
	"math"
	"sync"
	"sync/atomic"
)

// frameStore is where a finished cycle's bins become visible to readers.
type frameStore interface {
	publish(bins []float64)
	read(dst []float64) int
}

func newFrameStore(c Consistency, bins int) frameStore {
	if c == Relaxed {
		return &relaxedFrame{bins: make([]atomic.Uint64, bins)}
	}
	return &snapshotFrame{front: make([]float64, bins), back: make([]float64, bins)}
}

// relaxedFrame is a single frame updated bin by bin. Each value is stored
// as its IEEE bits so no read is ever torn, but a reader overlapping a
// publish may see bins from two cycles.
type relaxedFrame struct {
	bins []atomic.Uint64
}

func (f *relaxedFrame) publish(bins []float64) {
	for i, v := range bins {
		f.bins[i].Store(math.Float64bits(v))
	}
}

func (f *relaxedFrame) read(dst []float64) int {
	n := min(len(dst), len(f.bins))
	for i := range n {
		dst[i] = math.Float64frombits(f.bins[i].Load())
	}
	return n
}

// snapshotFrame fills a back buffer and swaps it in under the write lock.
// Readers copy the front buffer under the read lock and so always see one
// whole cycle.
type snapshotFrame struct {
	mu    sync.RWMutex
	front []float64
	back  []float64
}

func (f *snapshotFrame) publish(bins []float64) {
	copy(f.back, bins)
	f.mu.Lock()
	f.front, f.back = f.back, f.front
	f.mu.Unlock()
}

func (f *snapshotFrame) read(dst []float64) int {
	f.mu.RLock()
	n := copy(dst, f.front)
	f.mu.RUnlock()
	return n
}

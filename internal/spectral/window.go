// SPDX-License-Identifier: MIT
package spectral

// int16Scale maps int16 samples onto [-1, 1).
const int16Scale = 1.0 / 32768

// analysisWindow is the sliding buffer of the most recent samples, oldest
// first. Its length never changes.
type analysisWindow struct {
	samples []float64
}

func newAnalysisWindow(size int) *analysisWindow {
	return &analysisWindow{samples: make([]float64, size)}
}

// merge shifts out the oldest len(in) samples and appends in, scaled to
// float. Only the newest window's worth survives a longer input. It returns
// the appended tail, which aliases the window.
func (w *analysisWindow) merge(in []int16) []float64 {
	size := len(w.samples)
	n := len(in)
	if n >= size {
		in = in[n-size:]
		n = size
	} else {
		copy(w.samples, w.samples[n:])
	}
	tail := w.samples[size-n:]
	for i, s := range in {
		tail[i] = float64(s) * int16Scale
	}
	return tail
}

// SPDX-License-Identifier: MIT
package spectral

import "math"

// SmoothedMax tracking.
const (
	smoothedMaxFloor = 0.01
	attackKeep       = 0.8
	attackGain       = 0.2
	releaseKeep      = 0.995
	releaseGain      = 0.005
)

// updateSmoothedMax rises quickly towards a louder instantaneous maximum and
// falls slowly otherwise, never below smoothedMaxFloor.
func updateSmoothedMax(sm, inst float64) float64 {
	if inst > sm {
		sm = attackKeep*sm + attackGain*inst
	} else {
		sm = releaseKeep*sm + releaseGain*inst
	}
	return math.Max(sm, smoothedMaxFloor)
}

// postProcess holds the kernels for one cycle's shaping. The unrolled
// variants must match the scalar ones exactly.
type postProcess struct {
	max       func([]float64) float64
	normalize func(bins []float64, denom, floor float64)
}

func newPostProcess(unrolled bool) postProcess {
	if unrolled {
		return postProcess{max: maxUnrolled, normalize: normalizeUnrolled}
	}
	return postProcess{max: maxScalar, normalize: normalizeScalar}
}

func maxScalar(bins []float64) float64 {
	var m float64
	for _, v := range bins {
		if v > m {
			m = v
		}
	}
	return m
}

func maxUnrolled(bins []float64) float64 {
	var m0, m1, m2, m3 float64
	n := len(bins) &^ 3
	for i := 0; i < n; i += 4 {
		b := bins[i : i+4 : i+4]
		if b[0] > m0 {
			m0 = b[0]
		}
		if b[1] > m1 {
			m1 = b[1]
		}
		if b[2] > m2 {
			m2 = b[2]
		}
		if b[3] > m3 {
			m3 = b[3]
		}
	}
	for _, v := range bins[n:] {
		if v > m0 {
			m0 = v
		}
	}
	return max(m0, m1, m2, m3)
}

// normalizeScalar computes max(0, bin/denom - floor) in place, with denom
// being SmoothedMax times headroom.
func normalizeScalar(bins []float64, denom, floor float64) {
	for i, v := range bins {
		bins[i] = clampZero(v/denom - floor)
	}
}

func normalizeUnrolled(bins []float64, denom, floor float64) {
	n := len(bins) &^ 3
	for i := 0; i < n; i += 4 {
		b := bins[i : i+4 : i+4]
		b[0] = clampZero(b[0]/denom - floor)
		b[1] = clampZero(b[1]/denom - floor)
		b[2] = clampZero(b[2]/denom - floor)
		b[3] = clampZero(b[3]/denom - floor)
	}
	normalizeScalar(bins[n:], denom, floor)
}

func clampZero(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

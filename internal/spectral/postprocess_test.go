// SPDX-License-Identifier: MIT
package spectral

import (
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"spectrum/internal/simd"
)

func TestUpdateSmoothedMax(t *testing.T) {
	tests := []struct {
		name     string
		sm, inst float64
		want     float64
	}{
		{"attack", 1, 2, 0.8*1 + 0.2*2},
		{"release", 1, 0.5, 0.995*1 + 0.005*0.5},
		{"equal releases", 1, 1, 1},
		{"floor", 0.01, 0, 0.01},
		{"floor from above", 0.01005, 0, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := updateSmoothedMax(tt.sm, tt.inst); math.Abs(got-tt.want) > 1e-15 {
				t.Errorf("updateSmoothedMax(%v, %v) = %v, want %v", tt.sm, tt.inst, got, tt.want)
			}
		})
	}
}

func TestPostProcessPathsAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for n := range 40 {
		bins := make([]float64, n)
		for i := range bins {
			bins[i] = rng.Float64() * 3
		}

		if a, b := maxScalar(bins), maxUnrolled(bins); a != b {
			t.Fatalf("len %d: max scalar %v, unrolled %v", n, a, b)
		}

		a := append([]float64(nil), bins...)
		b := append([]float64(nil), bins...)
		normalizeScalar(a, 1.7*DefaultHeadroom, 0.05)
		normalizeUnrolled(b, 1.7*DefaultHeadroom, 0.05)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("len %d bin %d: normalize scalar %v, unrolled %v", n, i, a[i], b[i])
			}
			if a[i] < 0 {
				t.Fatalf("len %d bin %d: negative output %v", n, i, a[i])
			}
		}
	}
}

func TestEngineKeepsKernelsChosenAtNew(t *testing.T) {
	for _, on := range []bool{false, true} {
		restore := simd.Override(on)
		e, _ := newTestEngine(t, testConfig(External))
		simd.Override(!on)
		restore()

		want := reflect.ValueOf(normalizeScalar).Pointer()
		if on {
			want = reflect.ValueOf(normalizeUnrolled).Pointer()
		}
		if got := reflect.ValueOf(e.post.normalize).Pointer(); got != want {
			t.Errorf("simd %v at New: normalize kernel changed after a later Override", on)
		}
	}
}

func TestNormalizeNoiseFloor(t *testing.T) {
	bins := []float64{0, 0.45, 4.5, 9}
	normalizeScalar(bins, 4.5, 0.2)
	want := []float64{0, 0, 0.8, 1.8}
	for i := range bins {
		if d := bins[i] - want[i]; d > 1e-12 || d < -1e-12 {
			t.Errorf("bin %d = %v, want %v", i, bins[i], want[i])
		}
	}
}

func BenchmarkNormalize(b *testing.B) {
	bins := make([]float64, 513)
	for _, tc := range []struct {
		name string
		pp   postProcess
	}{
		{"scalar", newPostProcess(false)},
		{"unrolled", newPostProcess(true)},
	} {
		b.Run(tc.name, func(b *testing.B) {
			for b.Loop() {
				for i := range bins {
					bins[i] = float64(i)
				}
				m := tc.pp.max(bins)
				tc.pp.normalize(bins, m*DefaultHeadroom, 0)
			}
		})
	}
}

// SPDX-License-Identifier: MIT
package spectral

import (
	"math"
	"math/cmplx"
)

// resonatorBank is the incremental strategy: one damped complex resonator per
// published bin, stepped once per incoming sample. Its raw bins are the
// published bins, so the bin map reduces to the identity.
//
// Each resonator follows
//
//	state = state*decay*rot + x*(1-decay)
//
// where rot turns by the bin's centre frequency per sample and decay sets a
// bandwidth equal to the bin's width, never narrower than what one analysis
// window can resolve. A steady sine at the centre frequency settles at half
// its amplitude; gain restores the full value. Resonators at DC and Nyquist
// see the whole signal and keep unit gain.
type resonatorBank struct {
	freqs  []float64
	coeff  []complex128 // decay*rot
	input  []float64    // 1-decay
	gain   []complex128
	states []complex128
}

var _ Transform = (*resonatorBank)(nil)

const resonatorGain = 2

func newResonatorBank(l *layout, sampleRate float64, windowSize int) *resonatorBank {
	n := len(l.centres)
	r := &resonatorBank{
		freqs:  make([]float64, n),
		coeff:  make([]complex128, n),
		input:  make([]float64, n),
		gain:   make([]complex128, n),
		states: make([]complex128, n),
	}
	minWidth := sampleRate / float64(windowSize)
	for k, f := range l.centres {
		width := math.Max(l.bandwidth(k), minWidth)
		decay := math.Exp(-math.Pi * width / sampleRate)
		rot := cmplx.Rect(1, 2*math.Pi*f/sampleRate)
		r.freqs[k] = f
		r.coeff[k] = complex(decay, 0) * rot
		r.input[k] = 1 - decay
		r.gain[k] = resonatorGain
		if f <= 0 || f >= sampleRate/2 {
			r.gain[k] = 1
		}
	}
	return r
}

func (r *resonatorBank) Kind() TransformKind    { return Resonator }
func (r *resonatorBank) Frequencies() []float64 { return r.freqs }

func (r *resonatorBank) Feed(samples []float64) {
	for k := range r.states {
		s, c, in := r.states[k], r.coeff[k], r.input[k]
		for _, x := range samples {
			s = s*c + complex(x*in, 0)
		}
		r.states[k] = s
	}
}

func (r *resonatorBank) Compute(_ []float64, out []complex128) {
	for k, s := range r.states {
		out[k] = s * r.gain[k]
	}
}


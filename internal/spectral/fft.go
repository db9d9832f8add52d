// SPDX-License-Identifier: MIT
package spectral

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"spectrum/pkg/bitint"
)

// WindowFunc selects the taper applied to the analysis window before the FFT.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
	Rectangular
)

func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "BartlettHann"
	case Blackman:
		return "Blackman"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Lanczos:
		return "Lanczos"
	case Nuttall:
		return "Nuttall"
	case Rectangular:
		return "Rectangular"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	case "rectangular", "none":
		return Rectangular, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// windowCoefficients fills coeffs with the selected taper. Unknown types fall
// back to Hann.
func windowCoefficients(coeffs []float64, windowType WindowFunc) {
	// The gonum window functions scale the slice in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Rectangular:
	default:
		logger.Warnf("Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}

// fftTransform is the block strategy: taper the whole window, run a real
// FFT, scale so a full-scale sine reads close to 1.
type fftTransform struct {
	fft    *fourier.FFT
	size   int
	coeffs []float64
	input  []float64
	scale  complex128
	freqs  []float64
}

var _ Transform = (*fftTransform)(nil)

func newFFTTransform(size int, sampleRate float64, windowType WindowFunc) (*fftTransform, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: fft size must be a power of 2, got %d", ErrInvalidConfig, size)
	}

	coeffs := make([]float64, size)
	windowCoefficients(coeffs, windowType)
	var gain float64
	for _, c := range coeffs {
		gain += c
	}
	if gain <= 0 {
		return nil, fmt.Errorf("%w: window %v has no gain", ErrInvalidConfig, windowType)
	}

	t := &fftTransform{
		fft:    fourier.NewFFT(size),
		size:   size,
		coeffs: coeffs,
		input:  make([]float64, size),
		scale:  complex(2/gain, 0),
		freqs:  make([]float64, size/2+1),
	}
	for i := range t.freqs {
		t.freqs[i] = t.fft.Freq(i) * sampleRate
	}
	return t, nil
}

func (t *fftTransform) Kind() TransformKind    { return FFT }
func (t *fftTransform) Frequencies() []float64 { return t.freqs }
func (t *fftTransform) Feed([]float64)         {}

func (t *fftTransform) Compute(samples []float64, out []complex128) {
	for i, c := range t.coeffs {
		t.input[i] = samples[i] * c
	}
	t.fft.Coefficients(out, t.input)
	for i := range out {
		out[i] *= t.scale
	}
	// DC and Nyquist have no mirrored negative-frequency twin.
	out[0] /= 2
	out[t.size/2] /= 2
}

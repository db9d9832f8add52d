// SPDX-License-Identifier: MIT
package spectral

// Transform is the analysis strategy behind an Engine. Implementations own
// their scratch buffers and must not allocate in Feed or Compute.
type Transform interface {
	// Kind reports which strategy this is.
	Kind() TransformKind
	// Frequencies returns the centre frequency of every raw output bin,
	// ascending. The slice is shared and must not be modified.
	Frequencies() []float64
	// Feed is called with each chunk of newly merged samples, oldest first,
	// before Compute. Block transforms ignore it.
	Feed(samples []float64)
	// Compute writes one complex value per raw bin into out, derived from
	// the analysis window (len == window size).
	Compute(window []float64, out []complex128)
}

// newTransform builds the strategy selected by cfg. layout supplies the
// published bin centres for strategies that compute them directly.
func newTransform(cfg Config, l *layout) (Transform, error) {
	switch cfg.Transform {
	case FFT:
		return newFFTTransform(cfg.WindowSize, cfg.SampleRate, cfg.WindowFunc)
	case Resonator:
		return newResonatorBank(l, cfg.SampleRate, cfg.WindowSize), nil
	default:
		return nil, ErrUnknownTransform
	}
}

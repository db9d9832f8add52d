// SPDX-License-Identifier: MIT
package spectral

import (
	"fmt"
	"math"
	"strings"

	"spectrum/pkg/bitint"
)

// Engine limits and defaults.
const (
	MinWindowSize     = 64
	MaxWindowSize     = 16384
	DefaultWindowSize = 1024

	DefaultHeadroom         = 4.5
	DefaultNoiseFloor       = 0.0
	DefaultLoudnessStrength = 0.5
	DefaultBinsPerOctave    = 12
	DefaultMinFrequency     = 20.0
)

// TransformKind selects the analysis strategy. The set is closed.
type TransformKind int

const (
	// FFT runs a real-to-complex FFT over the whole analysis window once per
	// cycle.
	FFT TransformKind = iota
	// Resonator updates one complex resonator per published bin for every
	// incoming sample.
	Resonator
)

func (k TransformKind) String() string {
	switch k {
	case FFT:
		return "fft"
	case Resonator:
		return "resonator"
	default:
		return fmt.Sprintf("TransformKind(%d)", int(k))
	}
}

// ParseTransformKind converts a config name to a TransformKind, returning FFT
// and an error for unknown names.
func ParseTransformKind(name string) (TransformKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fft", "":
		return FFT, nil
	case "resonator", "resonators":
		return Resonator, nil
	default:
		return FFT, fmt.Errorf("unknown transform '%s'", name)
	}
}

// Scale is the frequency spacing of published bins.
type Scale int

const (
	// Linear spaces bins evenly from 0 Hz to Nyquist.
	Linear Scale = iota
	// Log spaces bins a fixed fraction of an octave apart.
	Log
)

func (s Scale) String() string {
	if s == Log {
		return "log"
	}
	return "linear"
}

// ParseScale converts a config name to a Scale.
func ParseScale(name string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear", "":
		return Linear, nil
	case "log", "logarithmic", "octave":
		return Log, nil
	default:
		return Linear, fmt.Errorf("unknown bin scale '%s'", name)
	}
}

// Consistency is the guarantee readers get when copying the published frame.
type Consistency int

const (
	// Snapshot double-buffers the frame; a reader always copies one whole
	// cycle's output.
	Snapshot Consistency = iota
	// Relaxed updates a single frame in place. Each bin is read atomically
	// but a reader racing a cycle may mix bins from two cycles.
	Relaxed
)

func (c Consistency) String() string {
	if c == Relaxed {
		return "relaxed"
	}
	return "snapshot"
}

// ParseConsistency converts a config name to a Consistency.
func ParseConsistency(name string) (Consistency, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "snapshot", "double", "double-buffered", "":
		return Snapshot, nil
	case "relaxed", "single", "in-place":
		return Relaxed, nil
	default:
		return Snapshot, fmt.Errorf("unknown frame consistency '%s'", name)
	}
}

// Mode decides who runs UpdateOutputs for the engine's lifetime.
type Mode int

const (
	// Autonomous engines own a goroutine woken by the buffer pool.
	Autonomous Mode = iota
	// External engines are stepped by a collaborator calling UpdateOutputs,
	// typically a renderer on its own frame clock.
	External
)

func (m Mode) String() string {
	if m == External {
		return "external"
	}
	return "autonomous"
}

// ParseMode converts a config name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "autonomous", "background", "":
		return Autonomous, nil
	case "external", "driven", "synchronous":
		return External, nil
	default:
		return Autonomous, fmt.Errorf("unknown engine mode '%s'", name)
	}
}

// Config holds everything an Engine needs at construction. It is consumed,
// not produced, by the engine: the config package fills it from YAML.
type Config struct {
	SampleRate float64
	WindowSize int // clamped to a power of two in [MinWindowSize, MaxWindowSize]

	Transform  TransformKind
	WindowFunc WindowFunc // FFT only

	Scale         Scale
	BinCount      int     // 0 picks the natural count for the scale
	BinsPerOctave int     // Log only
	MinFrequency  float64 // Log only, centre of bin 0

	LoudnessStrength float64 // 0 disables correction, 1 applies the full contour
	Headroom         float64
	NoiseFloor       float64

	Consistency Consistency
	Mode        Mode
}

// DefaultConfig returns the engine defaults for a sample rate.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:       sampleRate,
		WindowSize:       DefaultWindowSize,
		Transform:        FFT,
		WindowFunc:       Hann,
		Scale:            Linear,
		BinsPerOctave:    DefaultBinsPerOctave,
		MinFrequency:     DefaultMinFrequency,
		LoudnessStrength: DefaultLoudnessStrength,
		Headroom:         DefaultHeadroom,
		NoiseFloor:       DefaultNoiseFloor,
		Consistency:      Snapshot,
		Mode:             Autonomous,
	}
}

// normalize clamps recoverable values in place, logging a warning for each,
// and returns an error for values that leave no sensible engine to build.
func (c *Config) normalize() error {
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w: sample rate must be positive, got %f", ErrInvalidConfig, c.SampleRate)
	}
	if c.Transform != FFT && c.Transform != Resonator {
		return fmt.Errorf("%w: %v", ErrUnknownTransform, c.Transform)
	}

	if size := bitint.ClampPowerOfTwo(c.WindowSize, MinWindowSize, MaxWindowSize); size != c.WindowSize {
		logger.Warnf("Window size %d unsupported, using %d", c.WindowSize, size)
		c.WindowSize = size
	}
	if !(c.Headroom > 0) {
		logger.Warnf("Headroom %v must be positive, using %v", c.Headroom, DefaultHeadroom)
		c.Headroom = DefaultHeadroom
	}
	if c.NoiseFloor < 0 || math.IsNaN(c.NoiseFloor) {
		logger.Warnf("Noise floor %v must not be negative, using %v", c.NoiseFloor, DefaultNoiseFloor)
		c.NoiseFloor = DefaultNoiseFloor
	}
	if c.LoudnessStrength < 0 || c.LoudnessStrength > 1 || math.IsNaN(c.LoudnessStrength) {
		clamped := math.Max(0, math.Min(1, c.LoudnessStrength))
		if math.IsNaN(c.LoudnessStrength) {
			clamped = DefaultLoudnessStrength
		}
		logger.Warnf("Loudness strength %v outside [0,1], using %v", c.LoudnessStrength, clamped)
		c.LoudnessStrength = clamped
	}
	if c.BinCount < 0 {
		logger.Warnf("Bin count %d negative, using the default", c.BinCount)
		c.BinCount = 0
	}
	if c.Scale == Log {
		if c.BinsPerOctave < 1 {
			logger.Warnf("Bins per octave %d must be positive, using %d", c.BinsPerOctave, DefaultBinsPerOctave)
			c.BinsPerOctave = DefaultBinsPerOctave
		}
		if !(c.MinFrequency > 0) || c.MinFrequency >= c.SampleRate/2 {
			logger.Warnf("Minimum frequency %v outside (0, Nyquist), using %v", c.MinFrequency, DefaultMinFrequency)
			c.MinFrequency = DefaultMinFrequency
		}
	}
	return nil
}

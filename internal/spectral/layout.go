// SPDX-License-Identifier: MIT
package spectral

import (
	"fmt"
	"math"
	"sort"
)

// layout holds the centre and edge frequencies of the published bins.
// Bin k covers [lower[k], upper[k]).
type layout struct {
	scale         Scale
	binsPerOctave int
	centres       []float64
	lower         []float64
	upper         []float64
}

func newLayout(cfg Config) (*layout, error) {
	nyquist := cfg.SampleRate / 2
	l := &layout{scale: cfg.Scale}

	switch cfg.Scale {
	case Linear:
		count := cfg.BinCount
		if count == 0 {
			count = cfg.WindowSize/2 + 1
		}
		if count < 2 {
			return nil, fmt.Errorf("%w: linear layout needs at least 2 bins, got %d", ErrInvalidConfig, count)
		}
		spacing := nyquist / float64(count-1)
		l.alloc(count)
		for k := range l.centres {
			c := float64(k) * spacing
			l.centres[k] = c
			l.lower[k] = c - spacing/2
			l.upper[k] = c + spacing/2
		}

	case Log:
		bpo := cfg.BinsPerOctave
		octaves := math.Log2(nyquist / cfg.MinFrequency)
		fit := int(math.Floor(octaves*float64(bpo))) + 1
		count := cfg.BinCount
		switch {
		case count == 0:
			count = fit
		case count > fit:
			logger.Warnf("Bin count %d reaches past Nyquist, using %d", count, fit)
			count = fit
		}
		if count < 1 {
			return nil, fmt.Errorf("%w: no log bins fit below %.1f Hz", ErrInvalidConfig, nyquist)
		}
		l.binsPerOctave = bpo
		half := math.Exp2(1 / (2 * float64(bpo)))
		l.alloc(count)
		for k := range l.centres {
			c := cfg.MinFrequency * math.Exp2(float64(k)/float64(bpo))
			l.centres[k] = c
			l.lower[k] = c / half
			l.upper[k] = c * half
		}

	default:
		return nil, fmt.Errorf("%w: unknown scale %v", ErrInvalidConfig, cfg.Scale)
	}
	return l, nil
}

func (l *layout) alloc(n int) {
	l.centres = make([]float64, n)
	l.lower = make([]float64, n)
	l.upper = make([]float64, n)
}

// bandwidth returns the width in Hz of published bin k.
func (l *layout) bandwidth(k int) float64 {
	return l.upper[k] - l.lower[k]
}

// binRange is the half-open slice of raw bins reduced into one published bin.
type binRange struct {
	lo, hi int
}

// mapBins builds the raw to published reduction for ascending raw
// frequencies. A published bin whose range holds no raw bin takes the raw bin
// nearest its centre, so narrow low-frequency log bins never go dark.
func (l *layout) mapBins(raw []float64) []binRange {
	ranges := make([]binRange, len(l.centres))
	for k := range ranges {
		lo := sort.SearchFloat64s(raw, l.lower[k])
		hi := sort.SearchFloat64s(raw, l.upper[k])
		if hi <= lo {
			n := nearest(raw, l.centres[k])
			lo, hi = n, n+1
		}
		ranges[k] = binRange{lo: lo, hi: hi}
	}
	return ranges
}

func nearest(raw []float64, f float64) int {
	i := sort.SearchFloat64s(raw, f)
	switch {
	case i == 0:
		return 0
	case i == len(raw):
		return len(raw) - 1
	case f-raw[i-1] <= raw[i]-f:
		return i - 1
	default:
		return i
	}
}

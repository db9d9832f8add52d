// SPDX-License-Identifier: MIT
package transport

import (
	"math"
)

// FrequencyBand names a frequency range summarised on every frame.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range the way mixing engineers talk about it.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
}

// BandEnergy is the RMS of the normalised bins inside one band.
type BandEnergy struct {
	Name   string  `json:"name"`
	Energy float32 `json:"energy"`
}

// bandMap assigns each bin to at most one band by its centre frequency.
type bandMap struct {
	ranges [][2]int // [lo, hi) bin indices per band
}

// newBandMap maps bands onto ascending bin centres. Bands no centre falls
// into stay empty and always report zero energy.
func newBandMap(bands []FrequencyBand, centres []float64) bandMap {
	m := bandMap{ranges: make([][2]int, len(bands))}
	for b, band := range bands {
		lo, hi := len(centres), len(centres)
		for i, f := range centres {
			if f >= band.LowHz && lo == len(centres) {
				lo = i
			}
			if f >= band.HighHz {
				hi = i
				break
			}
		}
		if hi < lo {
			hi = lo
		}
		m.ranges[b] = [2]int{lo, hi}
	}
	return m
}

// compute writes the RMS of each band's bins into dst.
func (m bandMap) compute(bins []float32, dst []BandEnergy) {
	for b, r := range m.ranges {
		var sum float64
		for _, v := range bins[r[0]:r[1]] {
			sum += float64(v) * float64(v)
		}
		energy := 0.0
		if n := r[1] - r[0]; n > 0 {
			energy = math.Sqrt(sum / float64(n))
		}
		dst[b].Energy = float32(math.Min(energy, 1))
	}
}

// OnsetDetector flags sudden energy rises in one band, typically kick drums
// in the bass band.
type OnsetDetector struct {
	band      int
	threshold float64 // minimum energy for an onset
	ratio     float64 // minimum rise over the previous frame
	cooldown  int     // frames to ignore after an onset
	last      float64
	hold      int
}

// NewOnsetDetector watches band index band of the published band energies.
func NewOnsetDetector(band int, threshold, ratio float64, cooldown int) *OnsetDetector {
	return &OnsetDetector{band: band, threshold: threshold, ratio: ratio, cooldown: cooldown}
}

// Detect reports whether the current frame starts an onset.
func (d *OnsetDetector) Detect(bands []BandEnergy) bool {
	if d.band < 0 || d.band >= len(bands) {
		return false
	}
	e := float64(bands[d.band].Energy)
	prev := d.last
	d.last = e

	if d.hold > 0 {
		d.hold--
		return false
	}
	if e < d.threshold {
		return false
	}
	if prev > 0 && e/prev < d.ratio {
		return false
	}
	d.hold = d.cooldown
	return true
}

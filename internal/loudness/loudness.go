// SPDX-License-Identifier: MIT

// Package loudness approximates human loudness sensitivity across the audible
// range from the ISO 226:2003 equal-loudness contour at 50 phon.
//
// The contour is evaluated exactly at the 29 tabulated frequencies and
// interpolated linearly in between. That is an approximation of a nonlinear
// curve, good enough for driving a visual display.
package loudness

import "math"

// Phon is the loudness level of the reference contour.
const Phon = 50.0

// Point is one row of the ISO 226 parameter table.
type Point struct {
	Frequency float64 // Hz
	Alpha     float64 // exponent for loudness perception (αf)
	Lu        float64 // magnitude of the linear transfer function, dB
	Tf        float64 // threshold of hearing, dB
}

// table holds ISO 226:2003 table 1, ascending by frequency. Never mutated.
var table = [...]Point{
	{20, 0.532, -31.6, 78.5},
	{25, 0.506, -27.2, 68.7},
	{31.5, 0.480, -23.0, 59.5},
	{40, 0.455, -19.1, 51.1},
	{50, 0.432, -15.9, 44.0},
	{63, 0.409, -13.0, 37.5},
	{80, 0.387, -10.3, 31.5},
	{100, 0.367, -8.1, 26.5},
	{125, 0.349, -6.2, 22.1},
	{160, 0.330, -4.5, 17.9},
	{200, 0.315, -3.1, 14.4},
	{250, 0.301, -2.0, 11.4},
	{315, 0.288, -1.1, 8.6},
	{400, 0.276, -0.4, 6.2},
	{500, 0.267, 0.0, 4.4},
	{630, 0.259, 0.3, 3.0},
	{800, 0.253, 0.5, 2.2},
	{1000, 0.250, 0.0, 2.4},
	{1250, 0.246, -2.7, 3.5},
	{1600, 0.244, -4.1, 1.7},
	{2000, 0.243, -1.0, -1.3},
	{2500, 0.243, 1.7, -4.2},
	{3150, 0.243, 2.5, -6.0},
	{4000, 0.242, 1.2, -5.4},
	{5000, 0.242, -2.1, -1.5},
	{6300, 0.245, -7.1, 6.0},
	{8000, 0.254, -11.2, 12.6},
	{10000, 0.271, -10.7, 13.9},
	{12500, 0.301, -3.1, 12.3},
}

// levels caches the contour level at every table point; reference is the
// quietest of them (the ear's most sensitive region, around 3-4 kHz).
var (
	levels    [len(table)]float64
	reference float64
)

func init() {
	reference = math.Inf(1)
	for i, p := range table {
		levels[i] = soundPressureLevel(p)
		reference = math.Min(reference, levels[i])
	}
}

// soundPressureLevel inverts the ISO 226 loudness model: the SPL in dB at
// which a tone at p.Frequency is perceived as loud as Phon.
func soundPressureLevel(p Point) float64 {
	af := 4.47e-3*(math.Pow(10, 0.025*Phon)-1.15) +
		math.Pow(0.4*math.Pow(10, (p.Tf+p.Lu)/10-9), p.Alpha)
	return 10/p.Alpha*math.Log10(af) - p.Lu + 94
}

// Level returns the 50 phon contour level in dB SPL at frequency, linearly
// interpolated between table points and held flat outside the table.
func Level(frequency float64) float64 {
	last := len(table) - 1
	if frequency <= table[0].Frequency || math.IsNaN(frequency) {
		return levels[0]
	}
	if frequency >= table[last].Frequency {
		return levels[last]
	}

	// Table is short and sorted; a linear scan beats a binary search here.
	hi := 1
	for table[hi].Frequency < frequency {
		hi++
	}
	lo := hi - 1

	t := (frequency - table[lo].Frequency) / (table[hi].Frequency - table[lo].Frequency)
	return levels[lo] + t*(levels[hi]-levels[lo])
}

// Reference returns the contour minimum every correction is measured from.
func Reference() float64 {
	return reference
}

// Correction returns the linear gain that flattens the perceived loudness of
// an amplitude at frequency, scaled by strength in [0, 1]. The result is in
// (0, 1]; strength 0 yields exactly 1.
//
// The divisor is 40 rather than 20 because the values being corrected are
// already square-rooted magnitudes, halving the exponent.
func Correction(frequency, strength float64) float64 {
	if strength <= 0 || math.IsNaN(strength) {
		return 1
	}
	if strength > 1 {
		strength = 1
	}
	return math.Pow(10, (reference-Level(frequency))*strength/40)
}

// Table returns a copy of the contour parameters.
func Table() []Point {
	out := make([]Point, len(table))
	copy(out, table[:])
	return out
}

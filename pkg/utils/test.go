// SPDX-License-Identifier: MIT

// Package utils holds signal generators and assertions shared by tests.
package utils

import "math"

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics at
// 90% of int16 full scale.
func GenerateComplexWave(size int, sampleRate float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		buffer[i] = int16(signal * math.MaxInt16 * 0.9)
	}
	return buffer
}

// GenerateSineWave returns size mono samples of a sine at 90% of int16 full
// scale, starting at phase zero.
func GenerateSineWave(size int, sampleRate, frequency float64) []int16 {
	return GenerateSineWaveAt(size, 0, sampleRate, frequency)
}

// GenerateSineWaveAt continues a sine from sample offset, so consecutive
// chunks join without a phase jump.
func GenerateSineWaveAt(size, offset int, sampleRate, frequency float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(offset+i) / sampleRate
		buffer[i] = int16(math.Sin(2*math.Pi*frequency*t) * math.MaxInt16 * 0.9)
	}
	return buffer
}

// GenerateInterleavedFloat32 returns frames of a sine in [-0.9, 0.9] copied
// onto every one of channels.
func GenerateInterleavedFloat32(frames, channels int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, frames*channels)
	for i := range frames {
		v := float32(math.Sin(2*math.Pi*frequency*float64(i)/sampleRate) * 0.9)
		for c := range channels {
			buffer[i*channels+c] = v
		}
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

// SPDX-License-Identifier: MIT

/*
Package mixdown converts interleaved multi-channel sample frames into the mono
16-bit stream the buffer pool carries.

Numeric contract (identical on every code path):

	C=1 int16    copy
	C=2 int16    (left + right) >> 1, arithmetic shift (floors -0.5 to -1)
	C=1 float32  sample * 32767, saturated
	C=2 float32  (left + right) * 16383, saturated
	C>2          sum in int32/float32, divided by C (float: * 32767), truncated

Conversions from float truncate toward zero after saturating to the int16
range; NaN becomes 0.

The unrolled kernels are used when package simd reports vector support; they
unroll across frames only and keep the per-frame arithmetic order of the
scalar reference, so both paths agree bit for bit.
*/
package mixdown

import "spectrum/internal/simd"

// Int16 mixes len(src)/channels interleaved int16 frames into dst and returns
// the number of mono samples written. dst must hold at least that many
// samples. Channel counts below one write nothing.
func Int16(dst, src []int16, channels int) int {
	if channels < 1 {
		return 0
	}
	frames := len(src) / channels
	assertCapacity(len(dst), frames)

	in := src[:frames*channels]
	out := dst[:frames]
	if simd.Enabled() {
		int16Unrolled(out, in, channels)
	} else {
		int16Scalar(out, in, channels)
	}
	return frames
}

// Float32 mixes len(src)/channels interleaved float32 frames (nominal range
// [-1, 1]) into dst and returns the number of mono samples written.
func Float32(dst []int16, src []float32, channels int) int {
	if channels < 1 {
		return 0
	}
	frames := len(src) / channels
	assertCapacity(len(dst), frames)

	in := src[:frames*channels]
	out := dst[:frames]
	if simd.Enabled() {
		float32Unrolled(out, in, channels)
	} else {
		float32Scalar(out, in, channels)
	}
	return frames
}

// saturate converts x to int16, clamping to the representable range and
// truncating toward zero.
func saturate(x float32) int16 {
	switch {
	case x != x:
		return 0
	case x >= 32767:
		return 32767
	case x <= -32768:
		return -32768
	}
	return int16(x)
}

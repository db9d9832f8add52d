// SPDX-License-Identifier: MIT
package mixdown

// The unrolled kernels process four frames per iteration. Re-slicing to a
// fixed window up front lets the compiler drop the per-element bounds checks
// inside the block, which is where the speedup comes from on wide cores.

func int16Unrolled(dst, src []int16, channels int) {
	switch channels {
	case 1:
		copy(dst, src)
	case 2:
		n := len(dst) &^ 3
		for i := 0; i < n; i += 4 {
			s := src[2*i : 2*i+8 : 2*i+8]
			d := dst[i : i+4 : i+4]
			d[0] = int16((int32(s[0]) + int32(s[1])) >> 1)
			d[1] = int16((int32(s[2]) + int32(s[3])) >> 1)
			d[2] = int16((int32(s[4]) + int32(s[5])) >> 1)
			d[3] = int16((int32(s[6]) + int32(s[7])) >> 1)
		}
		int16Scalar(dst[n:], src[2*n:], 2)
	case 4:
		n := len(dst) &^ 3
		for i := 0; i < n; i += 4 {
			s := src[4*i : 4*i+16 : 4*i+16]
			d := dst[i : i+4 : i+4]
			d[0] = int16((int32(s[0]) + int32(s[1]) + int32(s[2]) + int32(s[3])) / 4)
			d[1] = int16((int32(s[4]) + int32(s[5]) + int32(s[6]) + int32(s[7])) / 4)
			d[2] = int16((int32(s[8]) + int32(s[9]) + int32(s[10]) + int32(s[11])) / 4)
			d[3] = int16((int32(s[12]) + int32(s[13]) + int32(s[14]) + int32(s[15])) / 4)
		}
		int16Scalar(dst[n:], src[4*n:], 4)
	default:
		int16Scalar(dst, src, channels)
	}
}

func float32Unrolled(dst []int16, src []float32, channels int) {
	switch channels {
	case 1:
		n := len(dst) &^ 3
		for i := 0; i < n; i += 4 {
			s := src[i : i+4 : i+4]
			d := dst[i : i+4 : i+4]
			d[0] = saturate(s[0] * 32767)
			d[1] = saturate(s[1] * 32767)
			d[2] = saturate(s[2] * 32767)
			d[3] = saturate(s[3] * 32767)
		}
		float32Scalar(dst[n:], src[n:], 1)
	case 2:
		n := len(dst) &^ 3
		for i := 0; i < n; i += 4 {
			s := src[2*i : 2*i+8 : 2*i+8]
			d := dst[i : i+4 : i+4]
			d[0] = saturate((s[0] + s[1]) * 16383)
			d[1] = saturate((s[2] + s[3]) * 16383)
			d[2] = saturate((s[4] + s[5]) * 16383)
			d[3] = saturate((s[6] + s[7]) * 16383)
		}
		float32Scalar(dst[n:], src[2*n:], 2)
	default:
		float32Scalar(dst, src, channels)
	}
}

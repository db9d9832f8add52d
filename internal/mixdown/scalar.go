// SPDX-License-Identifier: MIT
package mixdown

// int16Scalar is the reference implementation every other path is tested
// against. len(dst)*channels == len(src).
func int16Scalar(dst, src []int16, channels int) {
	switch channels {
	case 1:
		copy(dst, src)
	case 2:
		for i := range dst {
			dst[i] = int16((int32(src[2*i]) + int32(src[2*i+1])) >> 1)
		}
	default:
		c := int32(channels)
		for i := range dst {
			var sum int32
			base := i * channels
			for ch := range channels {
				sum += int32(src[base+ch])
			}
			dst[i] = int16(sum / c)
		}
	}
}

func float32Scalar(dst []int16, src []float32, channels int) {
	switch channels {
	case 1:
		for i, s := range src {
			dst[i] = saturate(s * 32767)
		}
	case 2:
		for i := range dst {
			dst[i] = saturate((src[2*i] + src[2*i+1]) * 16383)
		}
	default:
		c := float32(channels)
		for i := range dst {
			var sum float32
			base := i * channels
			for ch := range channels {
				sum += src[base+ch]
			}
			dst[i] = saturate(sum / c * 32767)
		}
	}
}

/*
Package bitint provides the power-of-two helpers used to size analysis
windows and sample buffers.

Design Principles:
- Zero Allocations: all operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: no locks, syscalls, or blocking operations

Usage:

	// Snap a configured window size onto the supported grid
	size := bitint.ClampPowerOfTwo(1000, 64, 16384) // Returns 1024

	// Verify a window size is valid before building an FFT plan
	ok := bitint.IsPowerOfTwo(size)

----------------------------------------------------------------------

NextPowerOfTwo subtracts one before measuring the bit length so that exact
powers of two map onto themselves:

	size = 8: size-1 = 0111, bits.Len = 3, 1<<3 = 8
	size = 9: size-1 = 1000, bits.Len = 4, 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Zero and negative sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size.
// Zero and negative sizes return 1.
func PrevPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// NearestPowerOfTwo returns the power of 2 closest to size. Ties resolve
// upwards, so 48 becomes 64 rather than 32.
//
//	Input  Output
//	1000   1024
//	700    512
//	768    1024
func NearestPowerOfTwo(size int) int {
	lo := PrevPowerOfTwo(size)
	if lo == size {
		return size
	}
	hi := NextPowerOfTwo(size)
	if size-lo < hi-size {
		return lo
	}
	return hi
}

// ClampPowerOfTwo snaps size to the nearest power of 2 and clamps the result
// to [min, max]. min and max must themselves be powers of 2.
func ClampPowerOfTwo(size, min, max int) int {
	n := NearestPowerOfTwo(size)
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

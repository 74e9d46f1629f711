// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used to validate and size
transform buffers. Everything here is allocation free and constant time, so
it is safe to call from the audio callback.

Usage:

	// Reject a transform length the radix-2 kernel cannot handle
	if !bitint.IsPowerOfTwo(fftLength) {
		hint := bitint.NextPowerOfTwo(fftLength) // 1000 -> 1024
	}

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map onto themselves:

	size = 8:  bits.Len(7) = 3, 1<<3 = 8
	size = 9:  bits.Len(8) = 4, 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size.
// Non-positive sizes return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
// A power of two has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the base-2 logarithm of a power of two, i.e. the number of
// butterfly stages a radix-2 transform of length n performs. The result is
// undefined when n is not a power of two.
func Log2(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.TrailingZeros(uint(n))
}

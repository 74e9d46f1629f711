// SPDX-License-Identifier: MIT

// Package dsp holds the allocation-free numeric kernels of the analyzer: the
// analysis window and an in-place radix-2 FFT. Nothing in here keeps state or
// takes locks; callers own every buffer.
package dsp

import (
	"math"
	"math/cmplx"
)

// Transform computes the unnormalized forward DFT of buf in place using the
// iterative radix-2 Cooley-Tukey algorithm:
//
//	X[k] = Σ x[j]·exp(-2πi·jk/n)
//
// len(buf) must be a power of two. Lengths 0 and 1 are left untouched. The
// function never allocates, so it is safe to call from the audio callback.
func Transform(buf []complex128) {
	n := len(buf)
	if n <= 1 {
		return
	}

	BitReverse(buf)

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		angle := -2 * math.Pi / float64(size)
		wLen := complex(math.Cos(angle), math.Sin(angle))
		for i := 0; i < n; i += size {
			w := complex(1, 0)
			for k := range half {
				u := buf[i+k]
				v := buf[i+k+half] * w
				buf[i+k] = u + v
				buf[i+k+half] = u - v
				w *= wLen
			}
		}
	}
}

// BitReverse reorders buf so that element i moves to the index whose bits are
// those of i reversed. Applying it twice restores the original order.
func BitReverse(buf []complex128) {
	n := len(buf)
	j := 0
	for i := 1; i < n; i++ {
		bit := n >> 1
		for j&bit != 0 {
			j ^= bit
			bit >>= 1
		}
		j ^= bit
		if i < j {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}
}

// Magnitudes writes |buf[i]| into dst for every i < len(dst). For a real input
// of length n only the first n/2 bins are meaningful, so dst is normally half
// the transform length.
func Magnitudes(dst []float64, buf []complex128) {
	n := min(len(dst), len(buf))
	for i := range n {
		dst[i] = cmplx.Abs(buf[i])
	}
}

// BinFrequency returns the centre frequency in Hz of bin for a transform of
// fftLength points at sampleRate.
func BinFrequency(bin, fftLength int, sampleRate float64) float64 {
	if fftLength <= 0 || bin < 0 {
		return 0
	}
	return float64(bin) * sampleRate / float64(fftLength)
}

// FrequencyBin returns the bin closest to freq.
func FrequencyBin(freq float64, fftLength int, sampleRate float64) int {
	if sampleRate <= 0 || freq <= 0 {
		return 0
	}
	return int(math.Round(freq * float64(fftLength) / sampleRate))
}

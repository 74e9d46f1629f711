// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the analysis window applied before the transform.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BlackmanNuttall
	BartlettHann
	Nuttall
	Lanczos
)

var windowNames = map[WindowFunc]string{
	Hann:            "Hann",
	Hamming:         "Hamming",
	Blackman:        "Blackman",
	BlackmanNuttall: "BlackmanNuttall",
	BartlettHann:    "BartlettHann",
	Nuttall:         "Nuttall",
	Lanczos:         "Lanczos",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a case-insensitive name to a WindowFunc. Unknown
// names return Hann together with an error so callers may choose to carry on.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "bartletthann":
		return BartlettHann, nil
	case "nuttall":
		return Nuttall, nil
	case "lanczos":
		return Lanczos, nil
	default:
		return Hann, fmt.Errorf("unknown window function %q", name)
	}
}

// NewWindow returns n precomputed coefficients for fn. All windows are the
// symmetric form, so Hann is 0.5*(1-cos(2πi/(n-1))) and both ends are zero.
// The slice is meant to be computed once and never written again.
func NewWindow(n int, fn WindowFunc) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	if n < 2 {
		return coeffs
	}

	switch fn {
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	default:
		window.Hann(coeffs)
	}
	return coeffs
}

// ApplyWindow writes samples[i]*coeffs[i] into the real part of dst and
// clears the imaginary part. It stops at the shortest of the three slices.
func ApplyWindow(dst []complex128, samples, coeffs []float64) {
	n := min(len(dst), len(samples), len(coeffs))
	for i := range n {
		dst[i] = complex(samples[i]*coeffs[i], 0)
	}
}

// SPDX-License-Identifier: MIT
package analysis

import "math"

// Band meter constants. The weighting edges are fractions of the spectrum
// length: bins below L/8 are halved and bins above 3L/4 are scaled by 0.3 so
// the bars are not dominated by bass or hiss.
const (
	DefaultBandCount = 32
	BandFloor        = 0.02

	lowWeight  = 0.5
	highWeight = 0.3

	logGain  = 9999.0
	logRange = 4.0

	smoothingRetain = 0.7
	smoothingGain   = 0.3

	decayFactor = 0.95
)

// Bands holds the persistent per-band display values. They carry the IIR
// smoothing history from tick to tick, so one Bands lives for the whole
// visualization session and is Reset when playback stops. Bands is not safe
// for concurrent use; Meter provides the locking.
type Bands struct {
	values []float64
}

// NewBands returns n bands at zero. n <= 0 selects DefaultBandCount.
func NewBands(n int) *Bands {
	if n <= 0 {
		n = DefaultBandCount
	}
	return &Bands{values: make([]float64, n)}
}

// Update folds one magnitude spectrum into the band values:
//
//  1. split the spectrum into len(bands) equal runs of max(1, L/B) bins
//  2. average each run with the low/high frequency weights applied
//  3. compress with log10(1 + raw*9999) / 4
//  4. smooth: v = v*0.7 + level*0.3
//  5. floor at BandFloor and clamp to [0,1]
//
// Runs past the end of a short spectrum contribute a level of zero.
func (b *Bands) Update(spectrum []float64) {
	l := len(spectrum)
	perBand := max(1, l/len(b.values))
	lowEdge := l / 8
	highEdge := l * 3 / 4

	for i := range b.values {
		start := i * perBand
		end := min(start+perBand, l)

		var raw float64
		count := 0
		for j := start; j < end; j++ {
			weight := 1.0
			if j < lowEdge {
				weight = lowWeight
			} else if j > highEdge {
				weight = highWeight
			}
			raw += spectrum[j] * weight
			count++
		}
		if count > 0 {
			raw /= float64(count)
		}

		level := math.Log10(1+raw*logGain) / logRange
		v := b.values[i]*smoothingRetain + level*smoothingGain
		if math.IsNaN(v) {
			v = BandFloor
		}
		b.values[i] = clamp(math.Max(BandFloor, v), 0, 1)
	}
}

// Decay fades every band toward the floor. It is the fallback when no
// spectrum can be read, so a stalled analyzer looks like silence instead of
// freezing the bars.
func (b *Bands) Decay() {
	for i, v := range b.values {
		b.values[i] = math.Max(BandFloor, v*decayFactor)
	}
}

// Reset zeroes every band. Called when playback stops so the next session does
// not start from stale bars.
func (b *Bands) Reset() {
	clear(b.values)
}

// Values returns a copy of the band values.
func (b *Bands) Values() []float64 {
	out := make([]float64, len(b.values))
	copy(out, b.values)
	return out
}

// Len returns the number of bands.
func (b *Bands) Len() int {
	return len(b.values)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

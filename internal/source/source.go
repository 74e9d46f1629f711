// SPDX-License-Identifier: MIT

// Package source provides the upstream sample providers the player pulls
// from: a sine tone, silence and WAV files. All of them hand out interleaved
// float32 samples in [-1, 1] and satisfy analysis.Source.
package source

import (
	"fmt"
	"strings"

	"spectra/internal/analysis"
	"spectra/internal/config"
)

// Source is an analysis.Source that also releases resources it holds.
type Source interface {
	analysis.Source
	Close() error
}

// Open builds the source selected by cfg.Source.
func Open(cfg *config.Config) (Source, error) {
	format := formatOf(cfg.Audio.Channels, cfg.Audio.SampleRate)
	frames := int64(cfg.Source.Duration.Seconds() * float64(cfg.Audio.SampleRate))

	switch strings.ToLower(cfg.Source.Kind) {
	case config.SourceTone:
		return NewTone(format, cfg.Source.ToneFrequency, cfg.Source.ToneAmplitude, frames)
	case config.SourceSilence:
		return NewSilence(format, frames)
	case config.SourceWAV:
		return OpenWAV(cfg.Source.Path)
	default:
		return nil, fmt.Errorf("source: unknown kind %q", cfg.Source.Kind)
	}
}

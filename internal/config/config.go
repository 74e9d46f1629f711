// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits for the player, analyzer and transports.
const (
	// Playback
	DefaultDeviceID        = MinDeviceID // System default output device
	DefaultChannels        = 2           // Stereo
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultSampleRate      = 44100       // CD-quality audio

	// Analysis
	DefaultFFTSize         = 4096
	DefaultWindow          = "Hann"
	DefaultBands           = 32
	DefaultRefreshInterval = 30 * time.Millisecond

	// Source
	DefaultSourceKind    = SourceTone
	DefaultToneFrequency = 440.0
	DefaultToneAmplitude = 0.5

	// Transport
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultWebSocketAddress = ":8080"
	DefaultLogEvery         = 30 // Roughly once a second at the default refresh

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxChannels     = 8
	MaxBufferFrames = 8192
	MinFFTSize      = 2
	MaxFFTSize      = 1 << 16
	MaxBands        = 256
)

// Source kinds.
const (
	SourceTone    = "tone"
	SourceWAV     = "wav"
	SourceSilence = "silence"
)

// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"spectra/internal/dsp"
	applog "spectra/internal/log"
	"spectra/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Output device settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Spectrum analyzer and band meter settings.
	Source    SourceConfig    `yaml:"source"`    // What to play.
	Transport TransportConfig `yaml:"transport"` // Where band frames are sent besides the TUI.
}

// AudioConfig holds settings related to audio output.
type AudioConfig struct {
	OutputDevice    int  `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	SampleRate      int  `yaml:"sample_rate"`       // Sample rate in Hz for generated sources. WAV files use their own.
	Channels        int  `yaml:"channels"`          // Channel count for generated sources. WAV files use their own.
	FramesPerBuffer int  `yaml:"frames_per_buffer"` // Frames per device callback.
	LowLatency      bool `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
}

// AnalysisConfig holds settings for the analyzer and the band meter.
type AnalysisConfig struct {
	FFTSize         int           `yaml:"fft_size"`         // Transform length, a power of two.
	Window          string        `yaml:"window"`           // Window function name (e.g., "Hann", "Hamming").
	Bands           int           `yaml:"bands"`            // Number of visualization bands.
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Period of the band meter tick.
}

// SourceConfig selects and parameterizes the sample source.
type SourceConfig struct {
	Kind          string        `yaml:"kind"`           // "tone", "wav" or "silence".
	Path          string        `yaml:"path"`           // WAV file path when kind is "wav".
	ToneFrequency float64       `yaml:"tone_frequency"` // Tone frequency in Hz.
	ToneAmplitude float64       `yaml:"tone_amplitude"` // Tone peak amplitude in [0,1].
	Duration      time.Duration `yaml:"duration"`       // Play length for generated sources (0 for unlimited).
}

// TransportConfig holds settings related to sending band frames over the network.
type TransportConfig struct {
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send band frames as UDP packets.
	UDPTargetAddress string `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Serve band frames to WebSocket clients.
	WebSocketAddress string `yaml:"websocket_address"`  // Listen address for the WebSocket server.
	LogEvery         int    `yaml:"log_every"`          // Headless mode logs one frame out of this many.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			Channels:        DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Analysis: AnalysisConfig{
			FFTSize:         DefaultFFTSize,
			Window:          DefaultWindow,
			Bands:           DefaultBands,
			RefreshInterval: DefaultRefreshInterval,
		},
		Source: SourceConfig{
			Kind:          DefaultSourceKind,
			ToneFrequency: DefaultToneFrequency,
			ToneAmplitude: DefaultToneAmplitude,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			WebSocketAddress: DefaultWebSocketAddress,
			LogEvery:         DefaultLogEvery,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml", "spectra.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: Loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		add("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel)
	}

	// Audio
	if c.Audio.OutputDevice < MinDeviceID {
		add("audio.output_device must be >= %d, got %d", MinDeviceID, c.Audio.OutputDevice)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		add("audio.sample_rate must be in [%d, %d], got %d", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > MaxChannels {
		add("audio.channels must be in [1, %d], got %d", MaxChannels, c.Audio.Channels)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		add("audio.frames_per_buffer must be in [1, %d], got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}

	// Analysis
	if n := c.Analysis.FFTSize; n < MinFFTSize || n > MaxFFTSize || !bitint.IsPowerOfTwo(n) {
		add("analysis.fft_size must be a power of two in [%d, %d], got %d (nearest valid: %d)",
			MinFFTSize, MaxFFTSize, n, min(MaxFFTSize, max(MinFFTSize, bitint.NextPowerOfTwo(n))))
	}
	if _, err := dsp.ParseWindowFunc(c.Analysis.Window); err != nil {
		add("analysis.window: %w", err)
	}
	if c.Analysis.Bands < 1 || c.Analysis.Bands > MaxBands {
		add("analysis.bands must be in [1, %d], got %d", MaxBands, c.Analysis.Bands)
	}
	if c.Analysis.RefreshInterval <= 0 {
		add("analysis.refresh_interval must be positive, got %s", c.Analysis.RefreshInterval)
	}

	// Source
	switch strings.ToLower(c.Source.Kind) {
	case SourceTone:
		if c.Source.ToneFrequency <= 0 || c.Source.ToneFrequency >= float64(c.Audio.SampleRate)/2 {
			add("source.tone_frequency must be in (0, %d), got %g", c.Audio.SampleRate/2, c.Source.ToneFrequency)
		}
		if c.Source.ToneAmplitude < 0 || c.Source.ToneAmplitude > 1 {
			add("source.tone_amplitude must be in [0, 1], got %g", c.Source.ToneAmplitude)
		}
	case SourceWAV:
		if c.Source.Path == "" {
			add("source.path must be set when source.kind is %q", SourceWAV)
		}
	case SourceSilence:
	default:
		add("source.kind %q is not one of %s, %s, %s", c.Source.Kind, SourceTone, SourceWAV, SourceSilence)
	}
	if c.Source.Duration < 0 {
		add("source.duration must not be negative, got %s", c.Source.Duration)
	}

	// Transport
	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			add("transport.udp_target_address %q: %w", c.Transport.UDPTargetAddress, err)
		}
	}
	if c.Transport.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.WebSocketAddress); err != nil {
			add("transport.websocket_address %q: %w", c.Transport.WebSocketAddress, err)
		}
	}
	if c.Transport.LogEvery < 0 {
		add("transport.log_every must not be negative, got %d", c.Transport.LogEvery)
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets ENV_* variables replace individual settings. Values
// that fail to parse are ignored with a warning.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	envBool("ENV_DEBUG", &cfg.Debug)
	// ENV_LOG_LEVEL
	envString("ENV_LOG_LEVEL", &cfg.LogLevel)

	// ENV_AUDIO_{...}
	envInt("ENV_OUTPUT_DEVICE", &cfg.Audio.OutputDevice)
	envInt("ENV_FRAMES_PER_BUFFER", &cfg.Audio.FramesPerBuffer)

	// ENV_ANALYSIS_{...}
	envInt("ENV_FFT_SIZE", &cfg.Analysis.FFTSize)
	envString("ENV_WINDOW", &cfg.Analysis.Window)
	envInt("ENV_BANDS", &cfg.Analysis.Bands)
	envDuration("ENV_REFRESH_INTERVAL", &cfg.Analysis.RefreshInterval)

	// ENV_SOURCE_{...}
	envString("ENV_SOURCE", &cfg.Source.Kind)
	envString("ENV_WAV_PATH", &cfg.Source.Path)

	// ENV_UDP_{...} / ENV_WS_{...}
	// These are specific to the transport layer.
	envBool("ENV_UDP_ENABLED", &cfg.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", &cfg.Transport.UDPTargetAddress)
	envBool("ENV_WS_ENABLED", &cfg.Transport.WebSocketEnabled)
	envString("ENV_WS_ADDRESS", &cfg.Transport.WebSocketAddress)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		applog.Infof("configuration: Overriding %s from env: %s", key, val)
	}
}

func envBool(key string, dst *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = b
	applog.Infof("configuration: Overriding %s from env: %v", key, b)
}

func envInt(key string, dst *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = n
	applog.Infof("configuration: Overriding %s from env: %d", key, n)
}

func envDuration(key string, dst *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = d
	applog.Infof("configuration: Overriding %s from env: %s", key, d)
}

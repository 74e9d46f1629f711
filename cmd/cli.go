// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"spectra/internal/config"
	"spectra/pkg/build"

	"github.com/spf13/cobra"
)

// Commands
const (
	CommandPlay = "play"
	CommandList = "list"
)

// Options is the result of parsing the command line.
type Options struct {
	Command     string
	Config      *config.Config
	Headless    bool // Log band frames instead of drawing them
	PickDevice  bool // Choose the output device interactively before playing
	Interactive bool // Browse devices in the TUI instead of printing them
	ShowVersion bool
}

// flagValues holds the raw flag targets. Only flags the user actually set are
// applied on top of the loaded configuration.
type flagValues struct {
	configPath      string
	device          int
	framesPerBuffer int
	lowLatency      bool
	source          string
	toneFrequency   float64
	duration        time.Duration
	fftSize         int
	bands           int
	window          string
	refresh         time.Duration
	udpTarget       string
	wsAddress       string
	verbose         bool
}

// ParseArgs parses args (without the program name) and loads the
// configuration they point at.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [file.wav]",
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadPlay(cmd, args, &flags, options)
		},
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Play command, also the default
	playCmd := &cobra.Command{
		Use:   "play [file.wav]",
		Short: "Play a source and show its spectrum",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadPlay(cmd, args, &flags, options)
		},
	}
	playCmd.Flags().BoolVar(&options.Headless, "headless", false,
		"Do not draw the spectrum; log frames and serve the network transports only")
	playCmd.Flags().BoolVar(&options.PickDevice, "pick-device", false,
		"Choose the output device interactively before playing")
	rootCmd.Flags().AddFlagSet(playCmd.Flags())
	rootCmd.AddCommand(playCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandList
			cfg, err := load(cmd, &flags, "")
			options.Config = cfg
			return err
		},
	}
	listCmd.Flags().BoolVarP(&options.Interactive, "interactive", "i", false,
		"Browse devices in a terminal UI")
	rootCmd.AddCommand(listCmd)

	// Configuration file
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "C", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify output device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&flags.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time playback")

	// Source Configuration
	rootCmd.PersistentFlags().StringVarP(&flags.source, "source", "s", config.DefaultSourceKind,
		"Sample source: tone, wav or silence (a file argument implies wav)")
	rootCmd.PersistentFlags().Float64VarP(&flags.toneFrequency, "tone", "f", config.DefaultToneFrequency,
		"Tone frequency in Hz")
	rootCmd.PersistentFlags().DurationVar(&flags.duration, "duration", 0,
		"Play length for generated sources (0 plays until interrupted)")

	// Analysis Configuration
	rootCmd.PersistentFlags().IntVarP(&flags.fftSize, "fft-size", "n", config.DefaultFFTSize,
		"FFT length, a power of two")
	rootCmd.PersistentFlags().IntVarP(&flags.bands, "bands", "B", config.DefaultBands,
		"Number of visualization bands")
	rootCmd.PersistentFlags().StringVarP(&flags.window, "window", "w", config.DefaultWindow,
		"Window function (Hann, Hamming, Blackman, BlackmanNuttall, BartlettHann, Nuttall, Lanczos)")
	rootCmd.PersistentFlags().DurationVarP(&flags.refresh, "refresh", "r", config.DefaultRefreshInterval,
		"Band refresh interval")

	// Transport Configuration
	rootCmd.PersistentFlags().StringVar(&flags.udpTarget, "udp", "",
		"Send band frames as UDP packets to host:port")
	rootCmd.PersistentFlags().StringVar(&flags.wsAddress, "ws", "",
		"Serve band frames to WebSocket clients on this address (path /bands)")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options.Command == "" {
		// --version and --help end here without running a command.
		options.ShowVersion = true
	}
	return options, nil
}

func loadPlay(cmd *cobra.Command, args []string, flags *flagValues, options *Options) error {
	options.Command = CommandPlay
	wavPath := ""
	if len(args) == 1 {
		wavPath = args[0]
	}
	cfg, err := load(cmd, flags, wavPath)
	if err != nil {
		return err
	}
	options.Config = cfg
	return nil
}

// load reads the configuration file and applies the flags that were set. A
// non-empty wavPath selects the WAV source.
func load(cmd *cobra.Command, flags *flagValues, wavPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("device") {
		cfg.Audio.OutputDevice = flags.device
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = flags.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = flags.lowLatency
	}
	if changed("source") {
		cfg.Source.Kind = flags.source
	}
	if changed("tone") {
		cfg.Source.ToneFrequency = flags.toneFrequency
	}
	if changed("duration") {
		cfg.Source.Duration = flags.duration
	}
	if changed("fft-size") {
		cfg.Analysis.FFTSize = flags.fftSize
	}
	if changed("bands") {
		cfg.Analysis.Bands = flags.bands
	}
	if changed("window") {
		cfg.Analysis.Window = flags.window
	}
	if changed("refresh") {
		cfg.Analysis.RefreshInterval = flags.refresh
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = flags.udpTarget
	}
	if changed("ws") {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddress = flags.wsAddress
	}
	if wavPath != "" {
		cfg.Source.Kind = config.SourceWAV
		cfg.Source.Path = wavPath
	}
	if changed("verbose") && flags.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

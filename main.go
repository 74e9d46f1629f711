// SPDX-License-Identifier: MIT
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"spectra/cmd"
	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/session"
	"spectra/internal/source"
	"spectra/internal/transport"
	"spectra/internal/transport/udp"
	"spectra/internal/tui"
	"spectra/pkg/build"

	tea "github.com/charmbracelet/bubbletea"
)

// logFile receives log output while the spectrum TUI owns the terminal.
const logFile = "spectra.log"

// main is the entry point for the spectrum analyzer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load configuration
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Open the sample source and build the playback session
//   - Start the output stream with the analyzer tapped inline
//   - Start the band poller and its transports
//   - Run the spectrum UI, or wait headless
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or end of stream
//   - Stop the poller, then the session
//   - Close transports
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Initialize build information including version, commit hash, and build time
	if err := build.Initialize(); err != nil {
		applog.Fatal(err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the output callback (time-critical)
	// - One thread for UI and I/O operations
	runtime.GOMAXPROCS(2)

	// Parse command line arguments and build configuration
	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.ShowVersion {
		return
	}
	if level, ok := applog.ParseLevel(opts.Config.LogLevel); ok {
		applog.SetLevel(level)
	}
	if opts.Config.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	// Initialize PortAudio subsystem
	if err := audio.Initialize(); err != nil {
		applog.Fatal(err)
	}
	defer audio.Terminate()

	// Handle one-off commands that don't require playback
	if opts.Command == cmd.CommandList {
		if err := listDevices(opts.Interactive); err != nil {
			applog.Fatal(err)
		}
		return
	}

	if err := run(opts); err != nil {
		applog.Errorf("%v", err)
		audio.Terminate()
		os.Exit(1)
	}
}

// listDevices prints the output devices, or browses them in the TUI.
func listDevices(interactive bool) error {
	if !interactive {
		return audio.ListDevices(os.Stdout)
	}
	id, ok, err := tui.PickOutputDevice(audio.HostDevices)
	if err != nil {
		return err
	}
	if ok {
		fmt.Printf("Selected output device %d. Use '--device %d' to play on it.\n", id, id)
	}
	return nil
}

func run(opts *cmd.Options) error {
	cfg := opts.Config

	if opts.PickDevice {
		id, ok, err := tui.PickOutputDevice(audio.HostDevices)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cfg.Audio.OutputDevice = id
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	src, err := source.Open(cfg)
	if err != nil {
		return err
	}

	meter := analysis.NewMeter(cfg.Analysis.Bands)
	sess, err := session.New(src, meter, cfg.Analysis, func(s analysis.Source) (session.Output, error) {
		return audio.NewEngine(s, cfg.Audio)
	})
	if err != nil {
		src.Close()
		return err
	}

	sinks, err := openTransports(cfg.Transport, opts.Headless)
	if err != nil {
		sess.Stop()
		return err
	}

	var program *tea.Program
	if !opts.Headless {
		restoreLog, err := redirectLog(cfg.Debug)
		if err != nil {
			sess.Stop()
			sinks.Close()
			return err
		}
		defer restoreLog()

		title := fmt.Sprintf("%s %s  %s  fft %d  %s", build.GetBuildFlags().Name,
			build.GetBuildFlags().Version, describeSource(cfg), cfg.Analysis.FFTSize, cfg.Analysis.Window)
		model := tui.NewSpectrumModel(title, cfg.Analysis.Bands, meter.Reset)
		program = tea.NewProgram(model, tea.WithAltScreen())
		sinks = append(sinks, tui.NewTransport(program))
	}

	poller, err := analysis.NewPoller(meter, sinks, cfg.Analysis.RefreshInterval)
	if err != nil {
		sess.Stop()
		sinks.Close()
		return err
	}

	// CRITICAL: Start of real-time audio processing
	// Once the stream starts, PortAudio calls the engine callback, which
	// pulls through the analyzer tap.
	if err := sess.Start(); err != nil {
		sess.Stop()
		sinks.Close()
		return err
	}
	poller.Start()

	// Setup signal handling for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	var runErr error
	if program != nil {
		go func() {
			select {
			case <-signals:
			case <-sess.Done():
			}
			program.Quit()
		}()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			runErr = fmt.Errorf("tui: %w", err)
		}
	} else {
		applog.Infof("Playing %s. Press Ctrl+C to stop.", describeSource(cfg))
		select {
		case sig := <-signals:
			applog.Infof("Received %s, shutting down", sig)
		case <-sess.Done():
			applog.Info("End of stream")
		}
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	// The poller goes first so no frame is sent to a closing transport.
	if err := poller.Stop(); err != nil {
		applog.Errorf("Error stopping poller: %v", err)
	}
	if err := sess.Stop(); err != nil {
		applog.Errorf("Error stopping session: %v", err)
	}
	if err := sinks.Close(); err != nil {
		applog.Errorf("Error closing transports: %v", err)
	}
	return runErr
}

// openTransports builds the frame sinks enabled in cfg. Headless runs also
// log a sample of the frames.
func openTransports(cfg config.TransportConfig, headless bool) (transport.Fanout, error) {
	var sinks transport.Fanout

	if headless {
		sinks = append(sinks, transport.NewLoggingTransport(cfg.LogEvery))
	}

	if cfg.UDPEnabled {
		sender, err := udp.NewSender(cfg.UDPTargetAddress)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		publisher, err := udp.NewPublisher(sender)
		if err != nil {
			sender.Close()
			sinks.Close()
			return nil, err
		}
		applog.Infof("UDP: Sending band frames to %s", cfg.UDPTargetAddress)
		sinks = append(sinks, publisher)
	}

	if cfg.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.WebSocketAddress)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		applog.Infof("WebSocket: Serving band frames on ws://%s%s", ws.Addr(), transport.WebSocketPath)
		sinks = append(sinks, ws)
	}

	return sinks, nil
}

// redirectLog keeps log lines from tearing the full screen UI. With debug
// enabled they go to logFile, otherwise they are discarded.
func redirectLog(debug bool) (restore func(), err error) {
	restore = func() { applog.SetOutput(os.Stderr) }
	if !debug {
		applog.SetOutput(io.Discard)
		return restore, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	applog.SetOutput(f)
	return func() {
		applog.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func describeSource(cfg *config.Config) string {
	switch cfg.Source.Kind {
	case config.SourceTone:
		return fmt.Sprintf("tone %.0f Hz", cfg.Source.ToneFrequency)
	case config.SourceWAV:
		return cfg.Source.Path
	default:
		return cfg.Source.Kind
	}
}

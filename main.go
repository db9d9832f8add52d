// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spectrum/cmd"
	"spectrum/internal/capture"
	"spectrum/internal/config"
	"spectrum/internal/log"
	"spectrum/internal/pipeline"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
	"spectrum/internal/tui"
	"spectrum/pkg/build"
)

const (
	shutdownTimeout = 2 * time.Second
	tuiLogFile      = "spectrum.log"
)

// main is the entry point for the spectrum analyser.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//   - Open the capture source, pipeline, recorder and transports
//
// 2. Concurrent Phase (Hot Path):
//   - Start the analysis engine and frame publisher
//   - Run the capture source into the pipeline
//   - Render the terminal view if enabled
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or end of input
//   - Stop capture, publishing and analysis within a deadline
//   - Close recordings and devices
func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("Development build: %v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg == nil {
		return
	}
	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	if cfg.Debug {
		log.SetLevel(log.LevelDebug)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	switch cfg.Command {
	case cmd.CommandVersion:
		fmt.Print(cmd.Version())
		return nil
	case cmd.CommandList:
		if err := capture.Initialize(); err != nil {
			return err
		}
		defer capture.Terminate()
		return capture.ListDevices(os.Stdout)
	}

	source, cleanup, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// The terminal owns the screen; keep logs out of it.
	if cfg.TUI {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		defer func() {
			log.SetOutput(os.Stderr)
			f.Close()
		}()
	}

	pl, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	var recorder *capture.Recorder
	if cfg.Recording.Enabled {
		maxDur := time.Duration(cfg.Recording.MaxDuration) * time.Second
		recorder = capture.NewRecorder(cfg.Recording.OutputDir, cfg.Audio.SampleRate, maxDur)
		if err := recorder.Start(); err != nil {
			return err
		}
		pl.Producer.SetTap(recorder)
	}

	publisher, err := openPublisher(cfg, pl)
	if err != nil {
		if recorder != nil {
			recorder.Stop()
		}
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pl.Start(); err != nil {
		return err
	}
	if publisher != nil {
		publisher.Start()
	}

	srcErr := make(chan error, 1)
	go func() { srcErr <- source.Run(ctx, pl.Producer) }()

	var runErr error
	if cfg.TUI {
		title := fmt.Sprintf("%s %s", build.GetBuildFlags().Name, describeSource(cfg))
		runErr = tui.RunSpectrum(pl.Engine, title, cfg.Transport.Interval)
		stop()
		err := <-srcErr
		runErr = errors.Join(runErr, err)
	} else {
		log.Infof("Analysing %s, press Ctrl+C to stop", describeSource(cfg))
		select {
		case <-ctx.Done():
			log.Infof("Shutdown signal received")
			stop()
			runErr = <-srcErr
		case runErr = <-srcErr:
			if runErr == nil {
				log.Infof("Input finished")
			}
			stop()
		}
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Warnf("Closing publisher: %v", err)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := pl.Stop(stopCtx); err != nil {
		log.Errorf("Stopping pipeline: %v", err)
	}

	if recorder != nil {
		if err := recorder.Stop(); err != nil {
			log.Errorf("Error stopping recording: %v", err)
		}
		for _, f := range recorder.Files() {
			fmt.Printf("Recording saved to: %s\n", f)
		}
	}
	return runErr
}

// openSource opens the configured file or device. For files the pipeline
// sample rate follows the file.
func openSource(cfg *config.Config) (capture.Source, func(), error) {
	if cfg.Audio.File != "" {
		src, err := capture.OpenFile(cfg.Audio.File, cfg.Audio.FramesPerBuffer, cfg.Audio.Loop)
		if err != nil {
			return nil, nil, err
		}
		cfg.Audio.SampleRate = src.SampleRate()
		return src, func() { src.Close() }, nil
	}

	if err := capture.Initialize(); err != nil {
		return nil, nil, err
	}
	if cfg.Audio.Pick {
		sel, err := tui.PickDevice()
		if err != nil || !sel.Ok {
			capture.Terminate()
			if err == nil {
				err = errors.New("no input device chosen")
			}
			return nil, nil, err
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.SampleRate = sel.SampleRate
	}

	src, err := capture.OpenDevice(cfg.Audio)
	if err != nil {
		capture.Terminate()
		return nil, nil, err
	}
	return src, func() {
		src.Close()
		capture.Terminate()
	}, nil
}

// openPublisher builds the enabled transports. A transport that cannot start
// is skipped with a warning; nil means nothing is published.
func openPublisher(cfg *config.Config, pl *pipeline.Pipeline) (*transport.Publisher, error) {
	tc := cfg.Transport
	var transports []transport.Transport

	if tc.LogEnabled {
		transports = append(transports, transport.NewLoggingTransport(int(time.Second/tc.Interval)))
	}
	if tc.UDPEnabled {
		if t, err := udp.NewTransport(tc.UDPTargetAddress); err != nil {
			log.Warnf("UDP disabled: %v", err)
		} else {
			transports = append(transports, t)
		}
	}
	if tc.WebSocketEnabled {
		if t, err := transport.NewWebSocketTransport(tc.WebSocketAddress); err != nil {
			log.Warnf("WebSocket disabled: %v", err)
		} else {
			transports = append(transports, t)
		}
	}
	if tc.RedisEnabled {
		if t, err := transport.NewRedisTransport(context.Background(), tc.RedisAddress, tc.RedisChannel); err != nil {
			log.Warnf("Redis disabled: %v", err)
		} else {
			transports = append(transports, t)
		}
	}

	if len(transports) == 0 {
		return nil, nil
	}
	return transport.NewPublisher(tc.Interval, pl.Engine, build.Instance(), transports...)
}

func describeSource(cfg *config.Config) string {
	if cfg.Audio.File != "" {
		return fmt.Sprintf("%s (%.0f Hz)", cfg.Audio.File, cfg.Audio.SampleRate)
	}
	if cfg.Audio.InputDevice == config.DefaultDeviceID {
		return fmt.Sprintf("default input (%.0f Hz)", cfg.Audio.SampleRate)
	}
	return fmt.Sprintf("device %d (%.0f Hz)", cfg.Audio.InputDevice, cfg.Audio.SampleRate)
}

// SPDX-License-Identifier: MIT
package capture

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/gordonklaus/portaudio"

	"spectrum/internal/config"
)

// DeviceSource reads float32 frames from a PortAudio input stream in
// blocking mode. PortAudio must stay initialized while it is in use.
type DeviceSource struct {
	stream     *portaudio.Stream
	device     *portaudio.DeviceInfo
	buffer     []float32 // interleaved, FramesPerBuffer * channels
	channels   int
	sampleRate float64
	latency    time.Duration
}

var _ Source = (*DeviceSource)(nil)

// OpenDevice opens the configured input device. The channel count is capped
// to what the device offers.
func OpenDevice(cfg config.AudioConfig) (*DeviceSource, error) {
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	channels := cfg.InputChannels
	if channels > device.MaxInputChannels {
		logger.Warnf("%s has %d input channels, capturing %d instead of %d",
			device.Name, device.MaxInputChannels, device.MaxInputChannels, channels)
		channels = device.MaxInputChannels
	}

	s := &DeviceSource{
		device:     device,
		buffer:     make([]float32, cfg.FramesPerBuffer*channels),
		channels:   channels,
		sampleRate: cfg.SampleRate,
		latency:    device.DefaultHighInputLatency,
	}
	if cfg.LowLatency {
		s.latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  s.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, &s.buffer)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device.Name, err)
	}
	s.stream = stream

	logger.Infof("Opened %s: %d channels at %.0f Hz, %d frames per buffer, latency %s",
		device.Name, channels, cfg.SampleRate, cfg.FramesPerBuffer, s.latency)
	return s, nil
}

func (s *DeviceSource) SampleRate() float64 { return s.sampleRate }
func (s *DeviceSource) Channels() int       { return s.channels }

// Run starts the stream and forwards every buffer to sink. It runs on a
// locked OS thread since every iteration blocks in PortAudio.
func (s *DeviceSource) Run(ctx context.Context, sink Sink) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer func() {
		if err := s.stream.Stop(); err != nil {
			logger.Warnf("Stop stream: %v", err)
		}
	}()

	var overflows int
	for ctx.Err() == nil {
		if err := s.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				overflows++
				logger.Debugf("Input overflowed (%d so far)", overflows)
			} else {
				return fmt.Errorf("read stream: %w", err)
			}
		}
		if err := sink.WriteFloat32(ctx, s.buffer, s.channels); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	if overflows > 0 {
		logger.Warnf("Input overflowed %d times", overflows)
	}
	return nil
}

// Close releases the stream.
func (s *DeviceSource) Close() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

// SPDX-License-Identifier: MIT
package config

import (
	"strings"

	"spectrum/internal/log"
	"spectrum/internal/spectral"
)

// Sanitize replaces out-of-range values with their defaults, logging a
// warning for each. It never fails: a malformed field is not worth refusing
// to start over.
func (c *Config) Sanitize() {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		logger.Warnf("Unknown log_level %q, using info", c.LogLevel)
		c.LogLevel = "info"
	}

	a := &c.Audio
	if a.InputDevice < MinDeviceID {
		logger.Warnf("audio.input_device %d invalid, using the default device", a.InputDevice)
		a.InputDevice = DefaultDeviceID
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		logger.Warnf("audio.sample_rate %v outside [%d, %d], using %d", a.SampleRate, MinSampleRate, MaxSampleRate, DefaultSampleRate)
		a.SampleRate = DefaultSampleRate
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		logger.Warnf("audio.frames_per_buffer %d outside [1, %d], using %d", a.FramesPerBuffer, MaxBufferFrames, DefaultFramesPerBuffer)
		a.FramesPerBuffer = DefaultFramesPerBuffer
	}
	if a.InputChannels < 1 || a.InputChannels > MaxChannels {
		logger.Warnf("audio.input_channels %d outside [1, %d], using %d", a.InputChannels, MaxChannels, DefaultInputChannels)
		a.InputChannels = DefaultInputChannels
	}

	if c.Pool.Buffers < 2 {
		logger.Warnf("pool.buffers %d too small, using %d", c.Pool.Buffers, DefaultPoolBuffers)
		c.Pool.Buffers = DefaultPoolBuffers
	}
	if c.Pool.RetryDelay <= 0 {
		logger.Warnf("pool.retry_delay %s must be positive, using %s", c.Pool.RetryDelay, DefaultRetryDelay)
		c.Pool.RetryDelay = DefaultRetryDelay
	}

	r := &c.Recording
	if !strings.EqualFold(r.Format, DefaultFormat) {
		logger.Warnf("recording.format %q unsupported, using %s", r.Format, DefaultFormat)
		r.Format = DefaultFormat
	}
	if r.BitDepth != DefaultBitDepth {
		logger.Warnf("recording.bit_depth %d unsupported, using %d", r.BitDepth, DefaultBitDepth)
		r.BitDepth = DefaultBitDepth
	}
	if r.OutputDir == "" {
		r.OutputDir = DefaultOutputDir
	}
	if r.MaxDuration < 0 {
		logger.Warnf("recording.max_duration_seconds %d negative, recording without limit", r.MaxDuration)
		r.MaxDuration = 0
	}

	t := &c.Transport
	if t.Interval <= 0 {
		logger.Warnf("transport.interval %s must be positive, using %s", t.Interval, DefaultPublishInterval)
		t.Interval = DefaultPublishInterval
	}
	if t.UDPEnabled && t.UDPTargetAddress == "" {
		logger.Warnf("transport.udp_target_address empty, using %s", DefaultUDPTarget)
		t.UDPTargetAddress = DefaultUDPTarget
	}
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		logger.Warnf("transport.websocket_address empty, using %s", DefaultWebSocketAddress)
		t.WebSocketAddress = DefaultWebSocketAddress
	}
	if t.RedisEnabled && t.RedisAddress == "" {
		logger.Warnf("transport.redis_address empty, using %s", DefaultRedisAddress)
		t.RedisAddress = DefaultRedisAddress
	}
	if t.RedisEnabled && t.RedisChannel == "" {
		t.RedisChannel = DefaultRedisChannel
	}
}

// Engine converts the analysis section into a spectral.Config. Unknown names
// fall back to the parser's default with a warning; numeric ranges are
// enforced by the engine itself.
func (c *Config) Engine() spectral.Config {
	a := c.Analysis
	cfg := spectral.DefaultConfig(c.Audio.SampleRate)
	cfg.WindowSize = a.WindowSize
	cfg.BinCount = a.BinCount
	cfg.BinsPerOctave = a.BinsPerOctave
	cfg.MinFrequency = a.MinFrequency
	cfg.LoudnessStrength = a.LoudnessStrength
	cfg.Headroom = a.Headroom
	cfg.NoiseFloor = a.NoiseFloor

	var err error
	if cfg.Transform, err = spectral.ParseTransformKind(a.Transform); err != nil {
		logger.Warnf("analysis.transform: %v, using %v", err, cfg.Transform)
	}
	if cfg.WindowFunc, err = spectral.ParseWindowFunc(a.FFTWindow); err != nil {
		logger.Warnf("analysis.fft_window: %v, using %v", err, cfg.WindowFunc)
	}
	if cfg.Scale, err = spectral.ParseScale(a.Scale); err != nil {
		logger.Warnf("analysis.scale: %v, using %v", err, cfg.Scale)
	}
	if cfg.Consistency, err = spectral.ParseConsistency(a.Consistency); err != nil {
		logger.Warnf("analysis.consistency: %v, using %v", err, cfg.Consistency)
	}
	if cfg.Mode, err = spectral.ParseMode(a.Mode); err != nil {
		logger.Warnf("analysis.mode: %v, using %v", err, cfg.Mode)
	}
	// The terminal view steps the engine on its own frame clock. Nothing
	// else calls UpdateOutputs, so without it the engine must run itself.
	if c.TUI {
		cfg.Mode = spectral.External
	} else if cfg.Mode == spectral.External {
		logger.Warnf("analysis.mode external needs the terminal view to drive it, using %v", spectral.Autonomous)
		cfg.Mode = spectral.Autonomous
	}
	return cfg
}

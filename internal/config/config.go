// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"spectrum/internal/spectral"
)

// Core configuration constants that define the boundaries and defaults
// for the analysis pipeline.
const (
	// Audio input.
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultSampleRate      = 48000
	DefaultFramesPerBuffer = 512 // Balanced latency/performance
	DefaultInputChannels   = 2

	// Buffer pool.
	DefaultPoolBuffers = 8
	DefaultRetryDelay  = 10 * time.Millisecond

	// Recording.
	DefaultOutputDir = "./recordings"
	DefaultFormat    = "wav"
	DefaultBitDepth  = 16

	// Frame publishing.
	DefaultPublishInterval  = 33 * time.Millisecond // ~30Hz
	DefaultUDPTarget        = "127.0.0.1:9090"
	DefaultWebSocketAddress = ":8080"
	DefaultRedisAddress     = "127.0.0.1:6379"
	DefaultRedisChannel     = "spectrum:frames"

	// Hardware and processing limits.
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MaxChannels     = 32
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // Logging level (e.g., "debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the pipeline (e.g., "list").
	TUI       bool            `yaml:"tui"`               // Render the spectrum in the terminal instead of logging.
	Audio     AudioConfig     `yaml:"audio"`             // Capture settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`          // Spectral engine settings.
	Pool      PoolConfig      `yaml:"pool"`              // Producer/engine buffer exchange.
	Recording RecordingConfig `yaml:"recording"`         // Mono capture recording.
	Transport TransportConfig `yaml:"transport"`         // Frame publishing.
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	Pick            bool    `yaml:"pick"`              // Choose the input device and rate interactively before starting.
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture read and per pool buffer.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Number of input channels to capture, mixed down to mono.
	File            string  `yaml:"file,omitempty"`    // Decode this file (wav, aiff, mp3, ogg) instead of opening a device.
	Loop            bool    `yaml:"loop"`              // Restart file playback at EOF.
}

// AnalysisConfig holds the spectral engine settings. Names are parsed by the
// spectral package; unknown names fall back to defaults with a warning.
type AnalysisConfig struct {
	WindowSize       int     `yaml:"window_size"`       // Analysis window in samples, snapped to a power of two.
	Transform        string  `yaml:"transform"`         // "fft" or "resonator".
	FFTWindow        string  `yaml:"fft_window"`        // Window function for the FFT (e.g., "Hann", "Hamming").
	Scale            string  `yaml:"scale"`             // "linear" or "log".
	BinCount         int     `yaml:"bin_count"`         // Published bins, 0 for the natural count.
	BinsPerOctave    int     `yaml:"bins_per_octave"`   // Log scale resolution.
	MinFrequency     float64 `yaml:"min_frequency"`     // Log scale lowest centre in Hz.
	LoudnessStrength float64 `yaml:"loudness_strength"` // 0 disables equal-loudness correction, 1 applies it fully.
	Headroom         float64 `yaml:"headroom"`          // Divisor above the smoothed maximum.
	NoiseFloor       float64 `yaml:"noise_floor"`       // Subtracted after normalization.
	Consistency      string  `yaml:"consistency"`       // "snapshot" or "relaxed".
	Mode             string  `yaml:"mode"`              // "autonomous" or "external".
}

// PoolConfig sizes the sample buffer pool.
type PoolConfig struct {
	Buffers    int           `yaml:"buffers"`     // Number of buffers, each FramesPerBuffer long.
	RetryDelay time.Duration `yaml:"retry_delay"` // Producer wait when every buffer is in use.
}

// RecordingConfig holds settings related to recording the mixed-down input.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Enable recording to file.
	OutputDir   string `yaml:"output_dir"`           // Directory to save recorded audio files.
	Format      string `yaml:"format"`               // File format for recordings ("wav" only).
	BitDepth    int    `yaml:"bit_depth"`            // Bit depth for recorded audio (16).
	MaxDuration int    `yaml:"max_duration_seconds"` // Maximum duration of a single recording file in seconds (0 for unlimited).
}

// TransportConfig holds settings related to sending published frames.
type TransportConfig struct {
	Interval time.Duration `yaml:"interval"` // Interval between published frames.

	LogEnabled bool `yaml:"log_enabled"` // Log a one-line summary of each frame.

	UDPEnabled       bool   `yaml:"udp_enabled"`        // Enable sending frames over UDP.
	UDPTargetAddress string `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").

	WebSocketEnabled bool   `yaml:"websocket_enabled"` // Serve frames to WebSocket clients.
	WebSocketAddress string `yaml:"websocket_address"` // Listen address (e.g., ":8080").

	RedisEnabled bool   `yaml:"redis_enabled"` // Publish frames to a Redis channel.
	RedisAddress string `yaml:"redis_address"` // Redis server address.
	RedisChannel string `yaml:"redis_channel"` // Pub/sub channel name.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
		},
		Analysis: AnalysisConfig{
			WindowSize:       spectral.DefaultWindowSize,
			Transform:        "fft",
			FFTWindow:        "Hann",
			Scale:            "linear",
			BinsPerOctave:    spectral.DefaultBinsPerOctave,
			MinFrequency:     spectral.DefaultMinFrequency,
			LoudnessStrength: spectral.DefaultLoudnessStrength,
			Headroom:         spectral.DefaultHeadroom,
			NoiseFloor:       spectral.DefaultNoiseFloor,
			Consistency:      "snapshot",
			Mode:             "autonomous",
		},
		Pool: PoolConfig{
			Buffers:    DefaultPoolBuffers,
			RetryDelay: DefaultRetryDelay,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultOutputDir,
			Format:    DefaultFormat,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			Interval:         DefaultPublishInterval,
			UDPTargetAddress: DefaultUDPTarget,
			WebSocketAddress: DefaultWebSocketAddress,
			RedisAddress:     DefaultRedisAddress,
			RedisChannel:     DefaultRedisChannel,
		},
	}
}

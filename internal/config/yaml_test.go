// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spectrum/internal/spectral"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
tui: true
audio:
  sample_rate: 44100
  input_channels: 1
analysis:
  window_size: 2048
  transform: resonator
  scale: log
  bins_per_octave: 24
  mode: external
transport:
  interval: 50ms
  udp_enabled: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.Audio.SampleRate != 44100 || cfg.Audio.InputChannels != 1 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Audio.FramesPerBuffer != DefaultFramesPerBuffer {
		t.Errorf("FramesPerBuffer = %d, want default %d kept", cfg.Audio.FramesPerBuffer, DefaultFramesPerBuffer)
	}
	if cfg.Transport.Interval != 50*time.Millisecond {
		t.Errorf("Interval = %s, want 50ms", cfg.Transport.Interval)
	}
	if cfg.Transport.UDPTargetAddress != DefaultUDPTarget {
		t.Errorf("UDPTargetAddress = %q, want %q", cfg.Transport.UDPTargetAddress, DefaultUDPTarget)
	}

	ec := cfg.Engine()
	if ec.SampleRate != 44100 || ec.WindowSize != 2048 || ec.BinsPerOctave != 24 {
		t.Errorf("Engine() = %+v", ec)
	}
	if ec.Transform != spectral.Resonator || ec.Scale != spectral.Log || ec.Mode != spectral.External {
		t.Errorf("Engine() names not parsed: %+v", ec)
	}
}

func TestSanitizeFallsBack(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.LogLevel = "chatty"
	cfg.Audio.SampleRate = 1
	cfg.Audio.FramesPerBuffer = 0
	cfg.Audio.InputChannels = 99
	cfg.Audio.InputDevice = -7
	cfg.Pool.Buffers = 0
	cfg.Pool.RetryDelay = -time.Second
	cfg.Recording.Format = "flac"
	cfg.Recording.BitDepth = 24
	cfg.Transport.Interval = 0
	cfg.Transport.RedisEnabled = true
	cfg.Transport.RedisAddress = ""

	cfg.Sanitize()

	want := Default()
	want.Transport.RedisEnabled = true
	if cfg.LogLevel != want.LogLevel ||
		cfg.Audio != want.Audio ||
		cfg.Pool != want.Pool ||
		cfg.Recording != want.Recording ||
		cfg.Transport != want.Transport {
		t.Errorf("Sanitize() = %+v, want %+v", cfg, want)
	}
}

func TestEngineUnknownNames(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Analysis.Transform = "wavelet"
	cfg.Analysis.FFTWindow = "kaiser"
	cfg.Analysis.Consistency = "eventual"

	ec := cfg.Engine()
	if ec.Transform != spectral.FFT || ec.WindowFunc != spectral.Hann || ec.Consistency != spectral.Snapshot {
		t.Errorf("Engine() fallbacks = %+v", ec)
	}
}

func TestEngineTUIForcesExternal(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.TUI = true
	if got := cfg.Engine().Mode; got != spectral.External {
		t.Errorf("Mode = %v, want external", got)
	}
}

func TestEngineExternalWithoutTUI(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Analysis.Mode = "external"
	if got := cfg.Engine().Mode; got != spectral.Autonomous {
		t.Errorf("Mode = %v, want autonomous", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_WINDOW_SIZE", "4096")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_PUBLISH_INTERVAL", "20ms")
	t.Setenv("ENV_SAMPLE_RATE", "not-a-number")

	cfg, err := LoadConfig(writeTempConfig(t, "analysis:\n  window_size: 512\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Analysis.WindowSize != 4096 {
		t.Errorf("WindowSize = %d, want env override 4096", cfg.Analysis.WindowSize)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.Interval != 20*time.Millisecond {
		t.Errorf("transport overrides not applied: %+v", cfg.Transport)
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %v, want default after unparsable override", cfg.Audio.SampleRate)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ENV_REDIS_CHANNEL=test:frames\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_REDIS_CHANNEL", "")
	os.Unsetenv("ENV_REDIS_CHANNEL")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Transport.RedisChannel != "test:frames" {
		t.Errorf("RedisChannel = %q, want value from env file", cfg.Transport.RedisChannel)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file error = %v, want nil", err)
	}
}

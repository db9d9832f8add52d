// SPDX-License-Identifier: MIT
package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// collectSink records everything written to it.
type collectSink struct {
	mu       sync.Mutex
	floats   []float32
	channels int
	writes   int
}

func (c *collectSink) WriteInt16(_ context.Context, src []int16, channels int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range src {
		c.floats = append(c.floats, float32(s)/32768)
	}
	c.channels = channels
	c.writes++
	return nil
}

func (c *collectSink) WriteFloat32(_ context.Context, src []float32, channels int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.floats = append(c.floats, src...)
	c.channels = channels
	c.writes++
	return nil
}

func (c *collectSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.floats)
}

// writeWAV encodes interleaved 16-bit samples to a new file.
func writeWAV(t *testing.T, path string, rate, channels int, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

func rampSamples(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = (i%200 - 100) * 300
	}
	return s
}

func TestFileSourceWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.wav")
	samples := rampSamples(1000 * 2)
	writeWAV(t, path, 48000, 2, samples)

	src, err := OpenFile(path, 256, false)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 48000 || src.Channels() != 2 {
		t.Fatalf("format = %v Hz, %d channels, want 48000 Hz stereo", src.SampleRate(), src.Channels())
	}

	sink := &collectSink{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := src.Run(ctx, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sink.floats) != len(samples) {
		t.Fatalf("decoded %d values, want %d", len(sink.floats), len(samples))
	}
	if sink.channels != 2 {
		t.Errorf("channels = %d, want 2", sink.channels)
	}
	for i, want := range samples {
		if got := sink.floats[i]; got != float32(want)/32768 {
			t.Fatalf("value %d = %v, want %v", i, got, float32(want)/32768)
		}
	}
	// 2000 frames in chunks of 256.
	if sink.writes != 8 {
		t.Errorf("writes = %d, want 8", sink.writes)
	}
}

func TestFileSourceLoops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	writeWAV(t, path, 48000, 1, rampSamples(300))

	src, err := OpenFile(path, 128, true)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer src.Close()

	sink := &collectSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, sink) }()

	deadline := time.Now().Add(5 * time.Second)
	for sink.len() < 900 {
		if time.Now().After(deadline) {
			t.Fatalf("looping source produced only %d samples", sink.len())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() after cancel error = %v", err)
	}
}

func TestOpenFileErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	garbage := bytes.Repeat([]byte{0x13, 0x37}, 512)
	tests := []struct {
		name string
		path string
		want error
	}{
		{"unknown extension", write("notes.txt", garbage), ErrUnsupportedFormat},
		{"bad wav", write("bad.wav", garbage), ErrInvalidFile},
		{"bad aiff", write("bad.aiff", garbage), ErrInvalidFile},
		{"bad ogg", write("bad.ogg", garbage), ErrInvalidFile},
		{"missing", filepath.Join(dir, "missing.wav"), os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenFile(tt.path, 256, false); !errors.Is(err, tt.want) {
				t.Errorf("OpenFile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// mockPCM simulates a go-audio decoder that ends with a short read.
type mockPCM struct {
	samples []int
	offset  int
}

func (m *mockPCM) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}
	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	if m.offset >= len(m.samples) {
		return n, io.EOF
	}
	return n, nil
}

func TestPCMDecoderScales(t *testing.T) {
	tests := []struct {
		bitDepth int
		sample   int
		want     float32
	}{
		{8, 64, 0.5},
		{16, -16384, -0.5},
		{24, 1 << 22, 0.5},
		{32, -1 << 31, -1},
	}
	for _, tt := range tests {
		format := &goaudio.Format{NumChannels: 1, SampleRate: 8000}
		d, err := newPCMDecoder(&mockPCM{samples: []int{tt.sample}}, format, tt.bitDepth)
		if err != nil {
			t.Fatalf("%d-bit: newPCMDecoder() error = %v", tt.bitDepth, err)
		}
		dst := make([]float32, 4)
		n, err := d.read(dst)
		if n != 1 || err != nil || dst[0] != tt.want {
			t.Errorf("%d-bit read = %d, %v, %v; want 1, nil, %v", tt.bitDepth, n, err, dst[0], tt.want)
		}
		if n, err := d.read(dst); n != 0 || !errors.Is(err, io.EOF) {
			t.Errorf("%d-bit read after end = %d, %v; want 0, EOF", tt.bitDepth, n, err)
		}
	}

	if _, err := newPCMDecoder(&mockPCM{}, &goaudio.Format{NumChannels: 1, SampleRate: 8000}, 12); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("12-bit error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestPCMDecoderWholeFrames(t *testing.T) {
	format := &goaudio.Format{NumChannels: 2, SampleRate: 8000}
	d, _ := newPCMDecoder(&mockPCM{samples: make([]int, 10)}, format, 16)
	if n, _ := d.read(make([]float32, 5)); n != 4 {
		t.Errorf("read into 5 values = %d, want 4 (two whole frames)", n)
	}
}

func TestRecorder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rec")
	r := NewRecorder(dir, 8000, 0)

	if err := r.WriteMono([]int16{1, 2, 3}); err != nil {
		t.Errorf("WriteMono() while idle error = %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRecording", err)
	}

	want := []int16{0, 1000, -1000, 32767, -32768}
	if err := r.WriteMono(want); err != nil {
		t.Fatalf("WriteMono() error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	files := r.Files()
	if len(files) != 1 {
		t.Fatalf("Files() = %v, want one file", files)
	}
	got := readWAV(t, files[0])
	if len(got) != len(want) {
		t.Fatalf("recorded %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != int(want[i]) {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRecorderRollsOver(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, 1000, 10*time.Millisecond) // 10 samples per file

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.WriteMono(make([]int16, 25)); err != nil {
		t.Fatalf("WriteMono() error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	files := r.Files()
	if len(files) != 3 {
		t.Fatalf("Files() = %d files, want 3", len(files))
	}
	for i, want := range []int{10, 10, 5} {
		if got := len(readWAV(t, files[i])); got != want {
			t.Errorf("file %d holds %d samples, want %d", i, got, want)
		}
	}
}

func TestRecorderInvalidDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRecorder(filepath.Join(blocker, "sub"), 8000, 0)
	if err := r.Start(); err == nil {
		t.Error("Start() under a regular file succeeded")
	}
}

func readWAV(t *testing.T, path string) []int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	if dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("%s: %d channels %d-bit, want mono 16-bit", path, dec.NumChans, dec.BitDepth)
	}
	return buf.Data
}

func TestFormatDevices(t *testing.T) {
	devices := []Device{
		{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000},
		{ID: 1, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{ID: 2, Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
	}
	var b strings.Builder
	if err := FormatDevices(&b, devices); err != nil {
		t.Fatalf("FormatDevices() error = %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"[1] Speakers (Output)",
		"[2] Interface (Input/Output)",
		"Default sample rate: 96000 Hz",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if (Device{}).Kind() != "Unknown" {
		t.Errorf("Kind() of a device without channels = %q", (Device{}).Kind())
	}
}

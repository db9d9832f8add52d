// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrAlreadyRecording = errors.New("already recording")

// Recorder writes the mono stream the pool receives to 16-bit WAV files.
// With a maximum duration it starts a new file each time the limit is
// reached. WriteMono runs on the producer goroutine; Start and Stop must not
// race it.
type Recorder struct {
	dir         string
	sampleRate  int
	maxSamples  int // 0 for unlimited
	isRecording atomic.Bool

	file      *os.File
	encoder   *wav.Encoder
	sampleBuf *goaudio.IntBuffer // Reusable buffer for format conversion
	written   int                // samples in the current file
	files     []string
}

// NewRecorder prepares a recorder writing into dir. maxDuration 0 means one
// file per Start.
func NewRecorder(dir string, sampleRate float64, maxDuration time.Duration) *Recorder {
	return &Recorder{
		dir:        dir,
		sampleRate: int(sampleRate),
		maxSamples: int(maxDuration.Seconds() * sampleRate),
		sampleBuf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: int(sampleRate)},
			SourceBitDepth: 16,
		},
	}
}

// Start creates the output directory and the first file.
func (r *Recorder) Start() error {
	if r.isRecording.Load() {
		return ErrAlreadyRecording
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	if err := r.openFile(); err != nil {
		return err
	}
	r.isRecording.Store(true)
	return nil
}

func (r *Recorder) openFile() error {
	name := filepath.Join(r.dir, fmt.Sprintf("capture-%s-%03d.wav",
		time.Now().Format("20060102-150405"), len(r.files)))
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	r.file = file
	r.encoder = wav.NewEncoder(file, r.sampleRate, 16, 1, 1)
	r.written = 0
	r.files = append(r.files, name)
	logger.Infof("Recording to %s", name)
	return nil
}

func (r *Recorder) closeFile() error {
	var errs []error
	if r.encoder != nil {
		errs = append(errs, r.encoder.Close())
		r.encoder = nil
	}
	if r.file != nil {
		errs = append(errs, r.file.Close())
		r.file = nil
	}
	return errors.Join(errs...)
}

// WriteMono appends samples, rolling over to a new file at the duration
// limit.
func (r *Recorder) WriteMono(samples []int16) error {
	if !r.isRecording.Load() {
		return nil
	}
	for len(samples) > 0 {
		n := len(samples)
		if r.maxSamples > 0 {
			if r.written == r.maxSamples {
				if err := r.closeFile(); err != nil {
					return err
				}
				if err := r.openFile(); err != nil {
					return err
				}
			}
			n = min(n, r.maxSamples-r.written)
		}

		if cap(r.sampleBuf.Data) < n {
			r.sampleBuf.Data = make([]int, n)
		}
		r.sampleBuf.Data = r.sampleBuf.Data[:n]
		for i, s := range samples[:n] {
			r.sampleBuf.Data[i] = int(s)
		}
		if err := r.encoder.Write(r.sampleBuf); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
		r.written += n
		samples = samples[n:]
	}
	return nil
}

// Stop finalizes the current file. Stopping an idle recorder is a no-op.
func (r *Recorder) Stop() error {
	if !r.isRecording.Load() {
		return nil
	}
	r.isRecording.Store(false)
	return r.closeFile()
}

// Files lists every file written since the recorder was created.
func (r *Recorder) Files() []string {
	return append([]string(nil), r.files...)
}

// SPDX-License-Identifier: MIT
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio file format")
	ErrInvalidFile       = errors.New("invalid audio file")
)

// decoder yields interleaved float32 samples in [-1, 1].
type decoder interface {
	// read fills dst with whole frames and returns the number of values
	// written. It returns io.EOF once the stream is exhausted.
	read(dst []float32) (int, error)
	sampleRate() int
	channels() int
}

// FileSource decodes a wav, aiff, mp3 or ogg vorbis file and plays it into
// the sink at its own sample rate.
type FileSource struct {
	path   string
	frames int
	loop   bool

	file *os.File
	dec  decoder
	buf  []float32
}

var _ Source = (*FileSource)(nil)

// OpenFile opens path and reads its header. framesPerBuffer sets the chunk
// handed to the sink per tick; loop restarts playback at EOF.
func OpenFile(path string, framesPerBuffer int, loop bool) (*FileSource, error) {
	s := &FileSource{path: path, frames: framesPerBuffer, loop: loop}
	if err := s.open(); err != nil {
		return nil, err
	}
	s.buf = make([]float32, framesPerBuffer*s.dec.channels())
	logger.Infof("Opened %s: %d channels at %d Hz", filepath.Base(path), s.dec.channels(), s.dec.sampleRate())
	return s, nil
}

func (s *FileSource) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	dec, err := newDecoder(f, strings.ToLower(filepath.Ext(s.path)))
	if err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", s.path, err)
	}
	if dec.channels() < 1 || dec.sampleRate() < 1 {
		f.Close()
		return fmt.Errorf("%s: %w: %d channels at %d Hz", s.path, ErrInvalidFile, dec.channels(), dec.sampleRate())
	}
	s.file, s.dec = f, dec
	return nil
}

func newDecoder(r io.ReadSeeker, ext string) (decoder, error) {
	switch ext {
	case ".wav", ".wave":
		return newWAVDecoder(r)
	case ".aif", ".aiff", ".aifc":
		return newAIFFDecoder(r)
	case ".mp3":
		return newMP3Decoder(r)
	case ".ogg", ".oga":
		return newVorbisDecoder(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func (s *FileSource) SampleRate() float64 { return float64(s.dec.sampleRate()) }
func (s *FileSource) Channels() int       { return s.dec.channels() }

// Duration of one chunk at the file's sample rate.
func (s *FileSource) chunkDuration() time.Duration {
	return time.Duration(s.frames) * time.Second / time.Duration(s.dec.sampleRate())
}

// Run decodes the file chunk by chunk, one chunk per tick. Without loop it
// returns nil at EOF.
func (s *FileSource) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(s.chunkDuration())
	defer ticker.Stop()

	channels := s.dec.channels()
	for {
		n, err := s.dec.read(s.buf)
		if n > 0 {
			if werr := sink.WriteFloat32(ctx, s.buf[:n], channels); werr != nil {
				if ctx.Err() != nil {
					return nil
				}
				return werr
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			if !s.loop {
				logger.Infof("Reached end of %s", filepath.Base(s.path))
				return nil
			}
			if err := s.rewind(); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("decode %s: %w", s.path, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// rewind reopens the file; not every decoder can seek back to the first
// frame.
func (s *FileSource) rewind() error {
	s.file.Close()
	if err := s.open(); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	logger.Debugf("Looping %s", filepath.Base(s.path))
	return nil
}

func (s *FileSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// --- PCM (wav, aiff) ---

// pcmReader is the part of the go-audio decoders the PCM decoder needs.
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type pcmDecoder struct {
	dec      pcmReader
	rate     int
	chans    int
	scale    float32 // 1 / full scale for the bit depth
	intBuf   *goaudio.IntBuffer
	finished bool
}

func newPCMDecoder(dec pcmReader, format *goaudio.Format, bitDepth int) (*pcmDecoder, error) {
	if format == nil {
		return nil, ErrInvalidFile
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedFormat, bitDepth)
	}
	return &pcmDecoder{
		dec:    dec,
		rate:   format.SampleRate,
		chans:  format.NumChannels,
		scale:  1 / float32(int64(1)<<(bitDepth-1)),
		intBuf: &goaudio.IntBuffer{Format: format},
	}, nil
}

func newWAVDecoder(r io.ReadSeeker) (decoder, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a wav file", ErrInvalidFile)
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return newPCMDecoder(dec, dec.Format(), int(dec.BitDepth))
}

func newAIFFDecoder(r io.ReadSeeker) (decoder, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an aiff file", ErrInvalidFile)
	}
	dec.ReadInfo()
	return newPCMDecoder(dec, dec.Format(), int(dec.BitDepth))
}

func (d *pcmDecoder) sampleRate() int { return d.rate }
func (d *pcmDecoder) channels() int   { return d.chans }

func (d *pcmDecoder) read(dst []float32) (int, error) {
	if d.finished {
		return 0, io.EOF
	}
	want := len(dst) - len(dst)%d.chans
	if cap(d.intBuf.Data) < want {
		d.intBuf.Data = make([]int, want)
	}
	d.intBuf.Data = d.intBuf.Data[:want]

	n, err := d.dec.PCMBuffer(d.intBuf)
	n -= n % d.chans
	for i, v := range d.intBuf.Data[:n] {
		dst[i] = float32(v) * d.scale
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	// go-audio signals the end with an empty read.
	if n == 0 {
		d.finished = true
		return 0, io.EOF
	}
	return n, nil
}

// --- MP3 ---

// mp3Decoder wraps go-mp3, which always produces 16-bit little-endian
// stereo regardless of the source layout.
type mp3Decoder struct {
	dec *gomp3.Decoder
	buf []byte
}

func newMP3Decoder(r io.Reader) (decoder, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) sampleRate() int { return d.dec.SampleRate() }
func (d *mp3Decoder) channels() int   { return 2 }

func (d *mp3Decoder) read(dst []float32) (int, error) {
	want := (len(dst) &^ 1) * 2 // whole stereo frames, two bytes per value
	if cap(d.buf) < want {
		d.buf = make([]byte, want)
	}
	buf := d.buf[:want]

	n, err := io.ReadFull(d.dec, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	n &^= 3
	for i := 0; i < n/2; i++ {
		dst[i] = float32(int16(uint16(buf[2*i])|uint16(buf[2*i+1])<<8)) / 32768
	}
	return n / 2, err
}

// --- Ogg Vorbis ---

type vorbisDecoder struct {
	dec *oggvorbis.Reader
}

func newVorbisDecoder(r io.Reader) (decoder, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &vorbisDecoder{dec: dec}, nil
}

func (d *vorbisDecoder) sampleRate() int { return d.dec.SampleRate() }
func (d *vorbisDecoder) channels() int   { return d.dec.Channels() }

func (d *vorbisDecoder) read(dst []float32) (int, error) {
	want := len(dst) - len(dst)%d.dec.Channels()
	var n int
	for n < want {
		m, err := d.dec.Read(dst[n:want])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			break
		}
	}
	return n, nil
}

// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spectrum/internal/mixdown"
	"spectrum/internal/pool"
)

// ErrChannels is returned for a write with fewer than one channel.
var ErrChannels = errors.New("channel count must be positive")

// Tap receives every mono chunk after it is written to the pool, on the
// producer's goroutine. A recorder is the usual tap.
type Tap interface {
	WriteMono(samples []int16) error
}

// Producer is the write side of the pool: it mixes interleaved capture
// frames down to mono, splits them across as many buffers as needed and
// retries when every buffer is in use. A Producer belongs to one goroutine.
type Producer struct {
	pool  *pool.Pool
	retry time.Duration
	timer *time.Timer
	tap   Tap

	// Telemetry, read by the owning goroutine only.
	written int
	retries int
}

// NewProducer returns a Producer writing into p that waits retry between
// attempts when p is exhausted.
func NewProducer(p *pool.Pool, retry time.Duration) *Producer {
	t := time.NewTimer(retry)
	t.Stop()
	return &Producer{pool: p, retry: retry, timer: t}
}

// SetTap installs t, or removes the tap when t is nil.
func (pr *Producer) SetTap(t Tap) { pr.tap = t }

// WriteInt16 queues interleaved int16 frames. It blocks only while the pool
// is exhausted and returns the context error if ctx ends first; frames
// queued before that stay queued.
func (pr *Producer) WriteInt16(ctx context.Context, src []int16, channels int) error {
	if channels < 1 {
		return ErrChannels
	}
	for len(src) >= channels {
		h, err := pr.acquire(ctx)
		if err != nil {
			return err
		}
		buf := pr.pool.Buffer(h)
		frames := min(len(buf), len(src)/channels)
		n := mixdown.Int16(buf, src[:frames*channels], channels)
		if err := pr.finish(h, buf[:n]); err != nil {
			return err
		}
		src = src[frames*channels:]
	}
	return nil
}

// WriteFloat32 queues interleaved float32 frames in [-1, 1].
func (pr *Producer) WriteFloat32(ctx context.Context, src []float32, channels int) error {
	if channels < 1 {
		return ErrChannels
	}
	for len(src) >= channels {
		h, err := pr.acquire(ctx)
		if err != nil {
			return err
		}
		buf := pr.pool.Buffer(h)
		frames := min(len(buf), len(src)/channels)
		n := mixdown.Float32(buf, src[:frames*channels], channels)
		if err := pr.finish(h, buf[:n]); err != nil {
			return err
		}
		src = src[frames*channels:]
	}
	return nil
}

// acquire returns a free buffer, waiting pr.retry between attempts. The timer
// is reused so a stalled consumer costs no allocation per retry.
func (pr *Producer) acquire(ctx context.Context) (pool.Handle, error) {
	for {
		if h, ok := pr.pool.AcquireForWrite(); ok {
			return h, nil
		}
		pr.retries++
		pr.timer.Reset(pr.retry)
		select {
		case <-ctx.Done():
			pr.timer.Stop()
			return -1, ctx.Err()
		case <-pr.timer.C:
		}
	}
}

func (pr *Producer) finish(h pool.Handle, mono []int16) error {
	if pr.tap != nil {
		if err := pr.tap.WriteMono(mono); err != nil {
			logger.Errorf("Tap write failed, removing tap: %v", err)
			pr.tap = nil
		}
	}
	if err := pr.pool.FinishWrite(h, len(mono)); err != nil {
		return fmt.Errorf("queue buffer: %w", err)
	}
	pr.written += len(mono)
	return nil
}

// Written is the number of mono samples queued so far.
func (pr *Producer) Written() int { return pr.written }

// Retries counts how often the producer found the pool exhausted.
func (pr *Producer) Retries() int { return pr.retries }

// SPDX-License-Identifier: MIT

/*
Package pool implements the fixed-size sample buffer exchange between the
capture producer and the analysis consumer.

Every buffer is in exactly one state at a time:

	Free --AcquireForWrite--> CheckedOut --FinishWrite--> Filled
	Filled --AcquireForRead--> CheckedOut --FinishRead--> Free

Filled buffers queue in a FIFO and are handed to the consumer strictly in the
order they were written. Samples never cross goroutines by copy: the holder of
a Handle owns the buffer's memory until it hands it back.

Thread Safety:
- State transitions and the FIFO are guarded by a single mutex
- The wake signal is a one-slot channel, so signalling never blocks
- Exhaustion is reported, not waited on; producers retry (see pipeline)
*/
package pool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle tag of a SampleBuffer.
type State uint8

const (
	Free State = iota
	Filled
	CheckedOut
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Filled:
		return "filled"
	case CheckedOut:
		return "checked-out"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidHandle = errors.New("invalid buffer handle")
	ErrInvalidState  = errors.New("buffer in wrong state for transition")
	ErrTooManyFrames = errors.New("frame count exceeds buffer capacity")
)

// Handle identifies a buffer checked out of a Pool.
type Handle int

// Read describes a buffer handed to the consumer.
type Read struct {
	Handle  Handle
	Frames  int    // valid samples at the start of the buffer
	Seq     uint64 // write sequence number, 1-based, increasing in FIFO order
	HasMore bool   // more filled buffers were queued behind this one
}

// SampleBuffer is one fixed-capacity mono buffer.
type SampleBuffer struct {
	samples []int16
	frames  int
	seq     uint64
	state   State
}

// Stats is a point-in-time count of buffers per state.
type Stats struct {
	Free       int
	Filled     int
	CheckedOut int
}

// Pool is a fixed set of SampleBuffers plus the FIFO of filled indices.
type Pool struct {
	mu      sync.Mutex
	buffers []SampleBuffer

	// Ring of filled buffer indices; head is the oldest.
	fifo  []int
	head  int
	count int

	written   uint64 // sequence of the last FinishWrite, guarded by mu
	lastWrite atomic.Int64
	wake      chan struct{}
}

// New allocates count buffers of capacity mono samples each.
func New(count, capacity int) (*Pool, error) {
	if count < 1 {
		return nil, fmt.Errorf("pool: buffer count must be positive, got %d", count)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("pool: buffer capacity must be positive, got %d", capacity)
	}

	p := &Pool{
		buffers: make([]SampleBuffer, count),
		fifo:    make([]int, count),
		wake:    make(chan struct{}, 1),
	}
	for i := range p.buffers {
		p.buffers[i].samples = make([]int16, capacity)
	}
	return p, nil
}

// Len returns the number of buffers K.
func (p *Pool) Len() int { return len(p.buffers) }

// Capacity returns the sample capacity of each buffer.
func (p *Pool) Capacity() int { return len(p.buffers[0].samples) }

// Buffer returns the full-capacity sample slice behind h. Only the current
// holder of h may touch it.
func (p *Pool) Buffer(h Handle) []int16 {
	return p.buffers[h].samples
}

// AcquireForWrite checks out a Free buffer for the producer. It never blocks;
// ok is false when every buffer is Filled or CheckedOut.
func (p *Pool) AcquireForWrite() (h Handle, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.buffers {
		if p.buffers[i].state == Free {
			p.buffers[i].state = CheckedOut
			p.buffers[i].frames = 0
			return Handle(i), true
		}
	}
	return -1, false
}

// FinishWrite marks h Filled with frames valid samples, queues it behind
// every earlier write and sets the wake signal.
func (p *Pool) FinishWrite(h Handle, frames int) error {
	p.mu.Lock()
	if err := p.check(h, CheckedOut); err != nil {
		p.mu.Unlock()
		return err
	}
	b := &p.buffers[h]
	if frames < 0 || frames > len(b.samples) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d > %d", ErrTooManyFrames, frames, len(b.samples))
	}

	p.written++
	b.frames = frames
	b.seq = p.written
	b.state = Filled
	p.fifo[(p.head+p.count)%len(p.fifo)] = int(h)
	p.count++
	p.mu.Unlock()

	p.lastWrite.Store(time.Now().UnixNano())
	p.Signal()
	return nil
}

// AcquireForRead pops the oldest Filled buffer. ok is false when the queue is
// empty.
func (p *Pool) AcquireForRead() (Read, bool) {
	return p.AcquireForReadUpTo(^uint64(0))
}

// AcquireForReadUpTo pops the oldest Filled buffer only if it was written at
// or before sequence seq (see Written). Later buffers stay queued. HasMore
// reports any queued buffer, including ones past seq.
func (p *Pool) AcquireForReadUpTo(seq uint64) (Read, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 {
		return Read{Handle: -1}, false
	}
	idx := p.fifo[p.head]
	b := &p.buffers[idx]
	if b.seq > seq {
		return Read{Handle: -1, HasMore: true}, false
	}

	p.head = (p.head + 1) % len(p.fifo)
	p.count--
	b.state = CheckedOut
	return Read{
		Handle:  Handle(idx),
		Frames:  b.frames,
		Seq:     b.seq,
		HasMore: p.count > 0,
	}, true
}

// FinishRead returns a consumed buffer to the Free state.
func (p *Pool) FinishRead(h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(h, CheckedOut); err != nil {
		return err
	}
	b := &p.buffers[h]
	b.state = Free
	b.frames = 0
	return nil
}

// Release hands a write-side buffer back without queueing it, for producers
// that acquired a buffer and then had nothing to write.
func (p *Pool) Release(h Handle) error {
	return p.FinishRead(h)
}

func (p *Pool) check(h Handle, want State) error {
	if h < 0 || int(h) >= len(p.buffers) {
		return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	if got := p.buffers[h].state; got != want {
		return fmt.Errorf("%w: buffer %d is %s, want %s", ErrInvalidState, h, got, want)
	}
	return nil
}

// Signal sets the wake event. Setting an already set event is a no-op.
func (p *Pool) Signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Wake returns the channel the consumer blocks on. A receive consumes the
// event (auto-reset).
func (p *Pool) Wake() <-chan struct{} {
	return p.wake
}

// Written returns the sequence number of the most recent FinishWrite.
func (p *Pool) Written() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// LastWrite returns when the producer last completed a buffer, or the zero
// time if it never has.
func (p *Pool) LastWrite() time.Time {
	ns := p.lastWrite.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Stats counts buffers per state.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s Stats
	for i := range p.buffers {
		switch p.buffers[i].state {
		case Free:
			s.Free++
		case Filled:
			s.Filled++
		case CheckedOut:
			s.CheckedOut++
		}
	}
	return s
}

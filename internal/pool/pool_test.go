// SPDX-License-Identifier: MIT
package pool

import (
	"errors"
	"testing"
	"time"
)

const (
	testBuffers  = 4
	testCapacity = 256
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p, err := New(testBuffers, testCapacity)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 10); err == nil {
		t.Error("expected error for zero buffers")
	}
	if _, err := New(2, 0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestExhaustionAndRecovery(t *testing.T) {
	p := newTestPool(t)

	handles := make([]Handle, 0, testBuffers)
	for i := range testBuffers {
		h, ok := p.AcquireForWrite()
		if !ok {
			t.Fatalf("AcquireForWrite #%d failed, want success", i+1)
		}
		handles = append(handles, h)
	}
	if _, ok := p.AcquireForWrite(); ok {
		t.Fatal("AcquireForWrite succeeded with every buffer checked out")
	}

	// Filling buffers does not free them.
	for _, h := range handles {
		if err := p.FinishWrite(h, 10); err != nil {
			t.Fatalf("FinishWrite(%d) error = %v", h, err)
		}
	}
	if _, ok := p.AcquireForWrite(); ok {
		t.Fatal("AcquireForWrite succeeded with every buffer filled")
	}

	// Checking one out for reading still does not free it.
	r, ok := p.AcquireForRead()
	if !ok {
		t.Fatal("AcquireForRead failed with filled buffers queued")
	}
	if _, ok := p.AcquireForWrite(); ok {
		t.Fatal("AcquireForWrite succeeded before FinishRead")
	}

	if err := p.FinishRead(r.Handle); err != nil {
		t.Fatalf("FinishRead error = %v", err)
	}
	if _, ok := p.AcquireForWrite(); !ok {
		t.Fatal("AcquireForWrite failed after FinishRead")
	}
	if _, ok := p.AcquireForWrite(); ok {
		t.Fatal("more than one AcquireForWrite succeeded after a single FinishRead")
	}
}

func TestFIFOOrder(t *testing.T) {
	p := newTestPool(t)

	for round := 0; round < 3; round++ {
		for i := range testBuffers {
			h, ok := p.AcquireForWrite()
			if !ok {
				t.Fatalf("round %d: AcquireForWrite failed", round)
			}
			p.Buffer(h)[0] = int16(round*100 + i)
			if err := p.FinishWrite(h, i+1); err != nil {
				t.Fatalf("FinishWrite error = %v", err)
			}
		}

		for i := range testBuffers {
			r, ok := p.AcquireForRead()
			if !ok {
				t.Fatalf("round %d: AcquireForRead #%d failed", round, i)
			}
			if got := p.Buffer(r.Handle)[0]; got != int16(round*100+i) {
				t.Errorf("round %d: read %d out of order (got marker %d)", round, i, got)
			}
			if r.Frames != i+1 {
				t.Errorf("Frames = %d, want %d", r.Frames, i+1)
			}
			if wantMore := i < testBuffers-1; r.HasMore != wantMore {
				t.Errorf("HasMore = %v, want %v", r.HasMore, wantMore)
			}
			if err := p.FinishRead(r.Handle); err != nil {
				t.Fatalf("FinishRead error = %v", err)
			}
		}

		if _, ok := p.AcquireForRead(); ok {
			t.Fatalf("round %d: AcquireForRead succeeded on empty queue", round)
		}
	}
}

func TestAcquireForReadUpTo(t *testing.T) {
	p := newTestPool(t)

	write := func() {
		h, _ := p.AcquireForWrite()
		if err := p.FinishWrite(h, 1); err != nil {
			t.Fatalf("FinishWrite error = %v", err)
		}
	}

	write()
	write()
	limit := p.Written()
	write()

	for i := 0; i < 2; i++ {
		r, ok := p.AcquireForReadUpTo(limit)
		if !ok {
			t.Fatalf("read %d within limit failed", i)
		}
		if r.Seq > limit {
			t.Errorf("read seq %d past limit %d", r.Seq, limit)
		}
		_ = p.FinishRead(r.Handle)
	}

	r, ok := p.AcquireForReadUpTo(limit)
	if ok {
		t.Fatal("read past limit succeeded")
	}
	if !r.HasMore {
		t.Error("HasMore = false with a buffer queued past the limit")
	}
	if _, ok := p.AcquireForRead(); !ok {
		t.Error("unbounded read failed with a buffer queued")
	}
}

func TestInvalidTransitions(t *testing.T) {
	p := newTestPool(t)

	if err := p.FinishWrite(Handle(99), 1); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("FinishWrite(99) error = %v, want ErrInvalidHandle", err)
	}
	if err := p.FinishRead(Handle(0)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("FinishRead on free buffer error = %v, want ErrInvalidState", err)
	}

	h, _ := p.AcquireForWrite()
	if err := p.FinishWrite(h, testCapacity+1); !errors.Is(err, ErrTooManyFrames) {
		t.Errorf("FinishWrite overflow error = %v, want ErrTooManyFrames", err)
	}
	if err := p.FinishWrite(h, testCapacity); err != nil {
		t.Fatalf("FinishWrite at capacity error = %v", err)
	}
	if err := p.FinishWrite(h, 1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double FinishWrite error = %v, want ErrInvalidState", err)
	}

	if s := p.Stats(); s.Filled != 1 || s.Free != testBuffers-1 || s.CheckedOut != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestWakeIsBinary(t *testing.T) {
	p := newTestPool(t)

	for range 3 {
		h, _ := p.AcquireForWrite()
		_ = p.FinishWrite(h, 1)
	}

	select {
	case <-p.Wake():
	default:
		t.Fatal("wake not set after FinishWrite")
	}
	select {
	case <-p.Wake():
		t.Fatal("wake counted multiple writes; want a single binary event")
	default:
	}

	p.Signal()
	select {
	case <-p.Wake():
	default:
		t.Fatal("Signal did not set wake")
	}
}

func TestLastWrite(t *testing.T) {
	p := newTestPool(t)
	if !p.LastWrite().IsZero() {
		t.Error("LastWrite set before any write")
	}

	before := time.Now()
	h, _ := p.AcquireForWrite()
	_ = p.FinishWrite(h, 1)
	if lw := p.LastWrite(); lw.Before(before.Add(-time.Millisecond)) {
		t.Errorf("LastWrite %v earlier than write at %v", lw, before)
	}
}

func TestConcurrentHandoffPreservesOrder(t *testing.T) {
	p := newTestPool(t)
	const total = 2000

	go func() {
		for i := 0; i < total; {
			h, ok := p.AcquireForWrite()
			if !ok {
				time.Sleep(50 * time.Microsecond)
				continue
			}
			buf := p.Buffer(h)
			buf[0] = int16(i % 30000)
			if err := p.FinishWrite(h, 1); err != nil {
				t.Errorf("FinishWrite error = %v", err)
				return
			}
			i++
		}
	}()

	next := 0
	deadline := time.After(10 * time.Second)
	for next < total {
		select {
		case <-p.Wake():
		case <-deadline:
			t.Fatalf("timed out after %d buffers", next)
		}
		for {
			r, ok := p.AcquireForRead()
			if !ok {
				break
			}
			if got := p.Buffer(r.Handle)[0]; got != int16(next%30000) {
				t.Fatalf("received marker %d, want %d", got, next%30000)
			}
			next++
			_ = p.FinishRead(r.Handle)
			if !r.HasMore {
				break
			}
		}
	}
}

func BenchmarkHandoff(b *testing.B) {
	p, _ := New(8, 512)
	b.ReportAllocs()
	for b.Loop() {
		h, _ := p.AcquireForWrite()
		_ = p.FinishWrite(h, 512)
		r, _ := p.AcquireForRead()
		_ = p.FinishRead(r.Handle)
		select {
		case <-p.Wake():
		default:
		}
	}
}

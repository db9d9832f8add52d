// SPDX-License-Identifier: MIT
/*
Package spectral turns the mono samples queued in a pool.Pool into a
normalized magnitude per frequency bin, republished every cycle.

A cycle drains every buffer written before the wake that started it into the
analysis window, runs the configured Transform once, reduces raw bins onto
the published layout, applies loudness correction, then normalizes against a
slowly tracked maximum (SmoothedMax) before publishing the frame.

Thread Safety:
- One goroutine (the engine's own, or the external caller) runs cycles
- Readers may call the read surface from any goroutine
- Pre-allocates every buffer; a cycle performs no allocation
*/
package spectral

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"spectrum/internal/loudness"
	"spectrum/internal/pool"
	"spectrum/internal/simd"
)

// State is the engine lifecycle: Stopped → Running → Stopping → Stopped.
type State int32

const (
	Stopped State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// cycleTimeKeep weights the running cycle time against each new sample.
const cycleTimeKeep = 0.97

type Engine struct {
	cfg  Config
	pool *pool.Pool

	// Analysis.
	transform Transform
	layout    *layout
	binMap    []binRange
	gains     []float64 // loudness factor per published bin
	window    *analysisWindow
	coeffs    []complex128
	raw       []float64 // magnitude per raw bin
	bins      []float64 // published bins, scratch for the current cycle
	post      postProcess
	frame     frameStore

	mu sync.Mutex // serializes cycles

	smoothedMax atomic.Uint64 // float64 bits
	cycles      atomic.Uint64
	cycleTime   atomic.Uint64 // float64 bits, nanoseconds

	// Lifecycle.
	lifeMu   sync.Mutex // guards transitions out of Stopped and Running
	state    atomic.Int32
	shutdown atomic.Bool
	done     chan struct{}
}

// New builds an engine reading from p. Recoverable config values are clamped
// with a warning; anything else fails construction.
func New(cfg Config, p *pool.Pool) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrInvalidConfig)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	l, err := newLayout(cfg)
	if err != nil {
		return nil, err
	}
	t, err := newTransform(cfg, l)
	if err != nil {
		return nil, err
	}

	rawFreqs := t.Frequencies()
	e := &Engine{
		cfg:       cfg,
		pool:      p,
		transform: t,
		layout:    l,
		binMap:    l.mapBins(rawFreqs),
		gains:     make([]float64, len(l.centres)),
		window:    newAnalysisWindow(cfg.WindowSize),
		coeffs:    make([]complex128, len(rawFreqs)),
		raw:       make([]float64, len(rawFreqs)),
		bins:      make([]float64, len(l.centres)),
		post:      newPostProcess(simd.Enabled()),
		frame:     newFrameStore(cfg.Consistency, len(l.centres)),
	}
	for k, f := range l.centres {
		e.gains[k] = loudness.Correction(f, cfg.LoudnessStrength)
	}
	e.smoothedMax.Store(math.Float64bits(smoothedMaxFloor))

	logger.Infof("%v transform, %d %v bins, window %d at %.0f Hz, %v frames, %v mode",
		cfg.Transform, len(l.centres), cfg.Scale, cfg.WindowSize, cfg.SampleRate, cfg.Consistency, cfg.Mode)
	return e, nil
}

// Start launches the processing goroutine of an autonomous engine.
func (e *Engine) Start() error {
	if e.cfg.Mode == External {
		return ErrExternalMode
	}
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.State() != Stopped {
		return ErrAlreadyRunning
	}
	e.shutdown.Store(false)
	e.done = make(chan struct{})
	e.state.Store(int32(Running))
	go e.run(e.done)
	logger.Debugf("started")
	return nil
}

// Stop asks the processing goroutine to exit and waits for it until ctx
// expires. Callers that arrive while a stop is in flight wait for the same
// exit. On timeout the engine keeps stopping in the background and Stop
// returns the context error.
func (e *Engine) Stop(ctx context.Context) error {
	e.lifeMu.Lock()
	switch e.State() {
	case Stopped:
		e.lifeMu.Unlock()
		return nil
	case Running:
		e.state.Store(int32(Stopping))
		e.shutdown.Store(true)
	}
	done := e.done
	e.lifeMu.Unlock()

	e.pool.Signal()

	select {
	case <-done:
		if e.state.CompareAndSwap(int32(Stopping), int32(Stopped)) {
			logger.Debugf("stopped after %d cycles", e.cycles.Load())
		}
		return nil
	case <-ctx.Done():
		go func() {
			<-done
			e.state.CompareAndSwap(int32(Stopping), int32(Stopped))
		}()
		return fmt.Errorf("engine stop: %w", ctx.Err())
	}
}

// run is the autonomous loop. Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Blocks only on the pool's wake channel
func (e *Engine) run(done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	wake := e.pool.Wake()
	for {
		<-wake
		if e.shutdown.Load() {
			return
		}
		e.cycle(false)
	}
}

// UpdateOutputs runs one cycle on the caller's goroutine. Only externally
// driven engines accept it; a call with no new samples is a silent cycle, so
// the published frame decays when input stalls.
func (e *Engine) UpdateOutputs() error {
	if e.cfg.Mode != External {
		return ErrAutonomousMode
	}
	e.cycle(true)
	return nil
}

// cycle drains, analyses and publishes. It reports whether a frame was
// published; without new samples it publishes only when silent is set.
func (e *Engine) cycle(silent bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	drained := e.drain(e.pool.Written())
	if drained == 0 && !silent {
		return false
	}

	if drained == 0 {
		clear(e.bins)
	} else {
		e.compute()
	}
	e.shape()
	e.frame.publish(e.bins)

	e.cycles.Add(1)
	elapsed := float64(time.Since(start))
	prev := math.Float64frombits(e.cycleTime.Load())
	if prev == 0 {
		prev = elapsed
	}
	e.cycleTime.Store(math.Float64bits(cycleTimeKeep*prev + (1-cycleTimeKeep)*elapsed))
	return true
}

// drain merges every queued buffer written at or before limit into the
// analysis window, oldest first, and returns how many buffers it took.
func (e *Engine) drain(limit uint64) int {
	var n int
	for {
		r, ok := e.pool.AcquireForReadUpTo(limit)
		if !ok {
			return n
		}
		fresh := e.window.merge(e.pool.Buffer(r.Handle)[:r.Frames])
		e.transform.Feed(fresh)
		if err := e.pool.FinishRead(r.Handle); err != nil {
			logger.Errorf("release buffer %d: %v", r.Handle, err)
		}
		n++
	}
}

// compute fills e.bins with loudness-corrected published magnitudes. A panic
// here is logged and re-raised, never swallowed.
func (e *Engine) compute() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("compute panicked: %v", r)
			panic(r)
		}
	}()

	e.transform.Compute(e.window.samples, e.coeffs)
	for i, c := range e.coeffs {
		e.raw[i] = cmplx.Abs(c)
	}
	for k, r := range e.binMap {
		var m float64
		for _, v := range e.raw[r.lo:r.hi] {
			if v > m {
				m = v
			}
		}
		e.bins[k] = m * e.gains[k]
	}
}

// shape updates SmoothedMax from the cycle's bins and normalizes them.
func (e *Engine) shape() {
	inst := e.post.max(e.bins)
	sm := updateSmoothedMax(math.Float64frombits(e.smoothedMax.Load()), inst)
	e.smoothedMax.Store(math.Float64bits(sm))
	e.post.normalize(e.bins, sm*e.cfg.Headroom, e.cfg.NoiseFloor)
}

// --- Read surface ---

func (e *Engine) BinCount() int { return len(e.layout.centres) }

// BinsPerOctave is the log layout's resolution, or 0 for linear layouts.
func (e *Engine) BinsPerOctave() int { return e.layout.binsPerOctave }

// Frequency returns the centre frequency of published bin k.
func (e *Engine) Frequency(k int) float64 { return e.layout.centres[k] }

// Frequencies returns a copy of every bin's centre frequency.
func (e *Engine) Frequencies() []float64 {
	return append([]float64(nil), e.layout.centres...)
}

func (e *Engine) SampleRate() float64       { return e.cfg.SampleRate }
func (e *Engine) WindowSize() int           { return e.cfg.WindowSize }
func (e *Engine) Transform() TransformKind  { return e.cfg.Transform }
func (e *Engine) Consistency() Consistency  { return e.cfg.Consistency }
func (e *Engine) Mode() Mode                { return e.cfg.Mode }
func (e *Engine) State() State              { return State(e.state.Load()) }
func (e *Engine) Cycles() uint64            { return e.cycles.Load() }
func (e *Engine) SmoothedMax() float64      { return math.Float64frombits(e.smoothedMax.Load()) }
func (e *Engine) CycleTime() time.Duration  { return time.Duration(math.Float64frombits(e.cycleTime.Load())) }

// ReadFrame copies the latest frame into dst and returns the number of bins
// copied.
func (e *Engine) ReadFrame(dst []float64) int {
	return e.frame.read(dst)
}

// Frame returns a freshly allocated copy of the latest frame.
func (e *Engine) Frame() []float64 {
	dst := make([]float64, e.BinCount())
	e.frame.read(dst)
	return dst
}

// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"sync"
	"time"
)

// DefaultInterval is used when a publisher is built with a non-positive
// interval (~30Hz).
const DefaultInterval = 33 * time.Millisecond

// Bass onset detection.
const (
	onsetThreshold = 0.3
	onsetRatio     = 1.5
	onsetCooldown  = 150 * time.Millisecond
	bassBand       = 1 // index in DefaultBands
)

// Publisher periodically reads the latest frame from a FrameSource and sends
// it to every transport. It runs in its own goroutine between Start and Stop.
type Publisher struct {
	source     FrameSource
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // guards ticker and doneChan across Start/Stop

	lastCycle uint64
	failures  []uint64
	bands     bandMap
	onset     *OnsetDetector

	// Reused on every tick.
	frame []float64
	msg   FrameMessage
}

// NewPublisher builds a publisher for source. instance is copied into every
// message so consumers can tell several analysers apart.
func NewPublisher(interval time.Duration, source FrameSource, instance string, transports ...Transport) (*Publisher, error) {
	if source == nil {
		return nil, errors.New("publisher: frame source cannot be nil")
	}
	if len(transports) == 0 {
		return nil, errors.New("publisher: at least one transport is required")
	}
	if interval <= 0 {
		interval = DefaultInterval
		logger.Warnf("Invalid publish interval, defaulting to %s", interval)
	}

	n := source.BinCount()
	centres := source.Frequencies()
	freqs := make([]float32, n)
	for i, f := range centres {
		freqs[i] = float32(f)
	}
	bands := make([]BandEnergy, len(DefaultBands))
	for i, b := range DefaultBands {
		bands[i].Name = b.Name
	}

	logger.Infof("Publisher ready (interval %s, %d bins, %d transports)", interval, n, len(transports))
	return &Publisher{
		source:     source,
		transports: transports,
		interval:   interval,
		failures:   make([]uint64, len(transports)),
		bands:      newBandMap(DefaultBands, centres),
		onset:      NewOnsetDetector(bassBand, onsetThreshold, onsetRatio, int(onsetCooldown/interval)),
		frame:      make([]float64, n),
		msg: FrameMessage{
			Instance:    instance,
			SampleRate:  source.SampleRate(),
			Frequencies: freqs,
			Bins:        make([]float32, n),
			Bands:       bands,
		},
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Publisher Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker := p.ticker
	done := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop halts the goroutine and waits for it. Safe to call repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	logger.Infof("Publisher stopped after %d frames", p.msg.Seq)
	return nil
}

// Close stops the publisher and closes every transport.
func (p *Publisher) Close() error {
	err := p.Stop()
	for _, t := range p.transports {
		err = errors.Join(err, t.Close())
	}
	return err
}

// Seq returns the sequence number of the last published frame. Only
// meaningful once the publisher has stopped.
func (p *Publisher) Seq() uint32 { return p.msg.Seq }

// publish sends the current frame unless the engine has not completed a cycle
// since the last one.
func (p *Publisher) publish() bool {
	cycle := p.source.Cycles()
	if cycle == p.lastCycle {
		return false
	}
	p.lastCycle = cycle

	n := p.source.ReadFrame(p.frame)
	for i, v := range p.frame[:n] {
		p.msg.Bins[i] = float32(v)
	}

	p.msg.Seq++
	p.msg.Timestamp = time.Now().UnixNano()
	p.msg.Cycle = cycle
	p.msg.SmoothedMax = p.source.SmoothedMax()
	p.bands.compute(p.msg.Bins, p.msg.Bands)
	p.msg.Onset = p.onset.Detect(p.msg.Bands)

	for i, t := range p.transports {
		if err := t.Send(&p.msg); err != nil {
			p.failures[i]++
			if p.failures[i] == 1 || p.failures[i]%100 == 0 {
				logger.Warnf("Transport %T failed %d times, last error: %v", t, p.failures[i], err)
			}
		}
	}
	return true
}

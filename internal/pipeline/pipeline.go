// SPDX-License-Identifier: MIT

/*
Package pipeline wires the pool, the spectral engine and the producer that
feeds them. A Pipeline replaces process-wide state: everything a capture
source or a renderer needs is reached through the value passed to it.

	capture → Producer → pool.Pool → spectral.Engine → frame readers
*/
package pipeline

import (
	"context"
	"fmt"

	"spectrum/internal/config"
	"spectrum/internal/log"
	"spectrum/internal/pool"
	"spectrum/internal/spectral"
)

var logger = log.For("Pipeline")

type Pipeline struct {
	Pool     *pool.Pool
	Engine   *spectral.Engine
	Producer *Producer
}

// New builds a pipeline from a sanitized config. The engine is not started.
func New(cfg *config.Config) (*Pipeline, error) {
	p, err := pool.New(cfg.Pool.Buffers, cfg.Audio.FramesPerBuffer)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	e, err := spectral.New(cfg.Engine(), p)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	logger.Debugf("%d buffers of %d frames", cfg.Pool.Buffers, cfg.Audio.FramesPerBuffer)
	return &Pipeline{
		Pool:     p,
		Engine:   e,
		Producer: NewProducer(p, cfg.Pool.RetryDelay),
	}, nil
}

// Start launches the engine goroutine. Externally driven engines have none,
// so Start is a no-op for them.
func (p *Pipeline) Start() error {
	if p.Engine.Mode() == spectral.External {
		return nil
	}
	return p.Engine.Start()
}

// Stop joins the engine goroutine, bounded by ctx.
func (p *Pipeline) Stop(ctx context.Context) error {
	if err := p.Engine.Stop(ctx); err != nil {
		return err
	}
	s := p.Pool.Stats()
	logger.Debugf("Stopped after %d cycles, %d samples queued, %d retries (pool free=%d filled=%d out=%d)",
		p.Engine.Cycles(), p.Producer.Written(), p.Producer.Retries(), s.Free, s.Filled, s.CheckedOut)
	return nil
}

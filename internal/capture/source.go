// SPDX-License-Identifier: MIT

/*
Package capture reads audio from a PortAudio input device or a decoded file
and hands interleaved frames to a Sink, normally the pipeline's Producer.

Sources pace themselves: a device blocks on the hardware, a file sleeps one
buffer's duration per chunk so the analysis sees it in real time.
*/
package capture

import (
	"context"

	"spectrum/internal/log"
)

var logger = log.For("Capture")

// Sink accepts interleaved frames. Writes may block while the consumer
// catches up and must return when ctx ends.
type Sink interface {
	WriteInt16(ctx context.Context, src []int16, channels int) error
	WriteFloat32(ctx context.Context, src []float32, channels int) error
}

// Source produces audio until its context ends or the input is exhausted.
type Source interface {
	// Run blocks, writing to sink until ctx ends (returning nil) or the
	// source fails.
	Run(ctx context.Context, sink Sink) error
	SampleRate() float64
	Channels() int
	Close() error
}

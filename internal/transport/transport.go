// SPDX-License-Identifier: MIT

// Package transport publishes analysis frames to the outside world. A
// Publisher samples a FrameSource on a fixed interval and hands the same
// FrameMessage to every configured Transport.
package transport

import (
	"spectrum/internal/log"
)

var logger = log.For("Transport")

// Transport delivers frames to one destination. Send must not retain msg or
// any slice inside it after returning; the publisher reuses them.
type Transport interface {
	Send(msg *FrameMessage) error
	Close() error
}

// FrameSource is the read side of the spectral engine.
type FrameSource interface {
	BinCount() int
	Frequencies() []float64
	SampleRate() float64
	Cycles() uint64
	SmoothedMax() float64
	ReadFrame(dst []float64) int
}

// FrameMessage is one published frame. Frequencies is the same slice for
// every message of a publisher and carries the bin centres in Hz.
type FrameMessage struct {
	Seq         uint32       `json:"seq"`
	Timestamp   int64        `json:"timestamp"`
	Instance    string       `json:"instance,omitempty"`
	SampleRate  float64      `json:"sampleRate"`
	Cycle       uint64       `json:"cycle"`
	SmoothedMax float64      `json:"smoothedMax"`
	Frequencies []float32    `json:"frequencies,omitempty"`
	Bins        []float32    `json:"bins"`
	Bands       []BandEnergy `json:"bands,omitempty"`
	Onset       bool         `json:"onset"` // bass onset, see OnsetDetector
}

// Peak returns the index and value of the loudest bin, or -1 for an empty
// frame.
func (m *FrameMessage) Peak() (int, float32) {
	idx, peak := -1, float32(0)
	for i, v := range m.Bins {
		if idx < 0 || v > peak {
			idx, peak = i, v
		}
	}
	return idx, peak
}

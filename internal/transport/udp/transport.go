// SPDX-License-Identifier: MIT
package udp

import (
	"spectrum/internal/transport"
)

// Transport adapts a Sender to transport.Transport using the binary packet
// layout.
type Transport struct {
	sender *Sender
	packet []byte
}

// NewTransport dials targetAddress.
func NewTransport(targetAddress string) (*Transport, error) {
	s, err := NewSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return &Transport{sender: s}, nil
}

// Send encodes msg into a reused buffer and sends it.
func (t *Transport) Send(msg *transport.FrameMessage) error {
	pkt, err := AppendPacket(t.packet[:0], msg.Seq, msg.Timestamp, msg.Bins)
	if err != nil {
		return err
	}
	t.packet = pkt
	if err := t.sender.Send(pkt); err != nil {
		return err
	}
	logger.Debugf("Sent packet %d (%d bytes)", msg.Seq, len(pkt))
	return nil
}

func (t *Transport) Close() error { return t.sender.Close() }

var _ transport.Transport = (*Transport)(nil)

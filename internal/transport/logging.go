// SPDX-License-Identifier: MIT
package transport

// LoggingTransport writes a one-line summary of every Nth frame to the log.
type LoggingTransport struct {
	every uint32
}

// NewLoggingTransport logs one frame in every. Values below 1 log each frame.
func NewLoggingTransport(every int) *LoggingTransport {
	if every < 1 {
		every = 1
	}
	logger.Infof("Using LoggingTransport (every %d frames)", every)
	return &LoggingTransport{every: uint32(every)}
}

// Send never fails.
func (lt *LoggingTransport) Send(msg *FrameMessage) error {
	if msg.Seq%lt.every != 0 {
		return nil
	}
	idx, peak := msg.Peak()
	hz := 0.0
	if idx >= 0 && idx < len(msg.Frequencies) {
		hz = float64(msg.Frequencies[idx])
	}
	onset := ""
	if msg.Onset {
		onset = " [onset]"
	}
	logger.Infof("Frame %d: %d bins, peak bin %d (%.1f Hz) = %.3f, smoothed max %.4f%s",
		msg.Seq, len(msg.Bins), idx, hz, peak, msg.SmoothedMax, onset)
	return nil
}

func (lt *LoggingTransport) Close() error {
	logger.Debugf("LoggingTransport closed")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)

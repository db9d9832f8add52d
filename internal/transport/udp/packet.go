// SPDX-License-Identifier: MIT

/*
Package udp sends analysis frames as compact binary datagrams.

Packet Structure (BigEndian)

	+-----------------------------------------------------------------------------+
	| Field             | Data Type      | Size (Bytes) | Description             |
	|-------------------|----------------|--------------|-------------------------|
	| Sequence Number   | uint32         | 4            | Monotonically increasing|
	| Timestamp         | int64          | 8            | Nanoseconds since epoch |
	| Bin Count         | uint16         | 2            | Number of floats (N)    |
	| Bins              | []float32      | N * 4        | Normalised magnitudes   |
	+-----------------------------------------------------------------------------+

Visual Layout:

	|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
	+-------------------+-----------------------+---------------+-------------------------+
	|  Sequence Number  |       Timestamp       |   Bin Count   |          Bins           |
	|      (uint32)     |        (int64)        |    (uint16)   |      (N * float32)      |
	+-------------------+-----------------------+---------------+-------------------------+
*/
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// HeaderSize is the fixed prefix before the bins.
	HeaderSize = 4 + 8 + 2
	// MaxBins is the largest frame that fits one IPv4 UDP datagram.
	MaxBins = (65507 - HeaderSize) / 4
)

var (
	ErrPacketTooLarge = errors.New("frame does not fit in one datagram")
	ErrShortPacket    = errors.New("packet shorter than its header claims")
)

// Packet is a decoded datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Bins      []float32
}

// AppendPacket encodes one frame onto dst and returns the extended slice.
func AppendPacket(dst []byte, seq uint32, timestamp int64, bins []float32) ([]byte, error) {
	if len(bins) > MaxBins {
		return dst, fmt.Errorf("%w: %d bins > %d", ErrPacketTooLarge, len(bins), MaxBins)
	}
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(bins)))
	for _, v := range bins {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst, nil
}

// DecodePacket parses a datagram produced by AppendPacket. Bins is reused
// from bins when it has enough capacity.
func DecodePacket(data []byte, bins []float32) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}
	p := Packet{
		Seq:       binary.BigEndian.Uint32(data[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(data[4:12])),
	}
	n := int(binary.BigEndian.Uint16(data[12:14]))
	body := data[HeaderSize:]
	if len(body) < n*4 {
		return Packet{}, fmt.Errorf("%w: %d bins in %d bytes", ErrShortPacket, n, len(body))
	}
	if cap(bins) < n {
		bins = make([]float32, n)
	}
	bins = bins[:n]
	for i := range bins {
		bins[i] = math.Float32frombits(binary.BigEndian.Uint32(body[i*4:]))
	}
	p.Bins = bins
	return p, nil
}

// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "spectra/internal/log"
	"spectra/internal/transport"
)

/*
Packet layout (BigEndian):

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |  Band Count   |       Band Values       |
|      (uint32)     |  (int64, unix nanos)  |   (uint16)    |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// HeaderSize is the fixed part of a packet before the band values.
const HeaderSize = 4 + 8 + 2

// ErrShortPacket is returned by Unpack for truncated datagrams.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is the decoded form of a datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Values    []float32
}

// Publisher packs band frames into the binary layout above and sends them
// through a Sender. It implements transport.Transport.
type Publisher struct {
	sender *Sender

	mu     sync.Mutex // Serializes packing into the shared buffers.
	f32    []float32
	packet *bytes.Buffer
	seq    uint32
}

// NewPublisher wraps sender. The publisher owns it from here on and closes
// it on Close.
func NewPublisher(sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	return &Publisher{
		sender: sender,
		packet: new(bytes.Buffer),
	}, nil
}

// Send accepts a transport.Frame, a *transport.Frame or a bare []float64.
// Frames without a sequence number get the publisher's own counter.
func (p *Publisher) Send(data any) error {
	var (
		values []float64
		seq    uint32
		ts     time.Time
	)

	switch v := data.(type) {
	case transport.Frame:
		values, seq, ts = v.Bands, uint32(v.Sequence), v.Timestamp
	case *transport.Frame:
		if v == nil {
			return fmt.Errorf("UDPPublisher: nil frame")
		}
		values, seq, ts = v.Bands, uint32(v.Sequence), v.Timestamp
	case []float64:
		values = v
	default:
		return fmt.Errorf("UDPPublisher: unsupported payload %T", data)
	}

	if len(values) > math.MaxUint16 {
		return fmt.Errorf("UDPPublisher: %d values exceed packet limit", len(values))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	if seq == 0 {
		seq = p.seq
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	if cap(p.f32) < len(values) {
		p.f32 = make([]float32, len(values))
	}
	p.f32 = p.f32[:len(values)]
	for i, v := range values {
		p.f32[i] = float32(v)
	}

	p.packet.Reset()
	err := binary.Write(p.packet, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(p.packet, binary.BigEndian, ts.UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packet, binary.BigEndian, uint16(len(p.f32)))
	}
	if err == nil {
		err = binary.Write(p.packet, binary.BigEndian, p.f32)
	}
	if err != nil {
		return fmt.Errorf("UDPPublisher: packing packet %d: %w", seq, err)
	}

	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		return err
	}
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", seq, p.packet.Len())
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	applog.Debugf("UDPPublisher: Close called")
	return p.sender.Close()
}

// Unpack decodes a datagram produced by Publisher.
func Unpack(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrShortPacket
	}
	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) < HeaderSize+count*4 {
		return Packet{}, fmt.Errorf("%w: want %d values, have %d bytes", ErrShortPacket, count, len(b)-HeaderSize)
	}
	pkt.Values = make([]float32, count)
	for i := range pkt.Values {
		off := HeaderSize + i*4
		pkt.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return pkt, nil
}

// Ensure Publisher satisfies the interface
var _ transport.Transport = (*Publisher)(nil)

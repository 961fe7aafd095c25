// Package net implements the wire framing shared by the game client and
// server: an 8 byte big-endian length, a 4 byte big-endian opcode, then the
// payload. The length covers the opcode and payload.
package net

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPacketSize bounds a frame's declared length so a corrupt or hostile
// peer cannot make the reader allocate gigabytes.
const MaxPacketSize = 1 << 20

const (
	lengthSize = 8
	opcodeSize = 4
)

// ServerboundOpcode identifies packets sent from client to server.
type ServerboundOpcode uint32

const (
	ServerboundLogin ServerboundOpcode = iota
	ServerboundMove
	ServerboundHeartbeat
	ServerboundDisconnect
)

// ClientboundOpcode identifies packets sent from server to client.
type ClientboundOpcode uint32

const (
	ClientboundSpawnPlayer ClientboundOpcode = iota
	ClientboundMove
	ClientboundDespawnPlayer
	ClientboundNotifyDisconnection
	ClientboundKick
)

type Packet struct {
	Opcode  uint32
	Payload []byte
}

// Encode frames the packet.
func (p *Packet) Encode() []byte {
	buf := make([]byte, 0, lengthSize+opcodeSize+len(p.Payload))
	buf = binary.BigEndian.AppendUint64(buf, uint64(opcodeSize+len(p.Payload)))
	buf = binary.BigEndian.AppendUint32(buf, p.Opcode)
	return append(buf, p.Payload...)
}

// Decode reads one framed packet from r.
func Decode(r io.Reader) (*Packet, error) {
	var header [lengthSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint64(header[:])
	if length < opcodeSize {
		return nil, fmt.Errorf("packet length %d shorter than opcode", length)
	}
	if length > MaxPacketSize {
		return nil, fmt.Errorf("packet length %d exceeds limit %d", length, MaxPacketSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return &Packet{
		Opcode:  binary.BigEndian.Uint32(body[:opcodeSize]),
		Payload: body[opcodeSize:],
	}, nil
}

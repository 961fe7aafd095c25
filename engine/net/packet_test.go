package net

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrameLayout(t *testing.T) {
	p := &Packet{Opcode: uint32(ServerboundMove), Payload: []byte{1, 2, 3}}
	buf := p.Encode()

	require.Len(t, buf, 8+4+3)
	assert.Equal(t, uint64(7), binary.BigEndian.Uint64(buf[:8]), "length covers opcode and payload")
	assert.Equal(t, uint32(ServerboundMove), binary.BigEndian.Uint32(buf[8:12]))
	assert.Equal(t, []byte{1, 2, 3}, buf[12:])
}

func TestDecodeRoundTrip(t *testing.T) {
	p := &Packet{Opcode: uint32(ClientboundKick), Payload: []byte("go away")}

	got, err := Decode(bytes.NewReader(p.Encode()))
	require.NoError(t, err)
	assert.Equal(t, p.Opcode, got.Opcode)
	assert.Equal(t, p.Payload, got.Payload)
}

func TestDecodeEmptyPayload(t *testing.T) {
	p := &Packet{Opcode: uint32(ServerboundHeartbeat)}

	got, err := Decode(bytes.NewReader(p.Encode()))
	require.NoError(t, err)
	assert.Equal(t, uint32(ServerboundHeartbeat), got.Opcode)
	assert.Empty(t, got.Payload)
}

func TestDecodeRejectsShortLength(t *testing.T) {
	var buf []byte
	buf = binary.BigEndian.AppendUint64(buf, 2)
	buf = append(buf, 0, 0)

	_, err := Decode(bytes.NewReader(buf))
	assert.Error(t, err)
}

func TestDecodeRejectsOversizedLength(t *testing.T) {
	var buf []byte
	buf = binary.BigEndian.AppendUint64(buf, MaxPacketSize+1)

	_, err := Decode(bytes.NewReader(buf))
	assert.Error(t, err)
}

func TestDecodeTruncatedBody(t *testing.T) {
	p := &Packet{Opcode: uint32(ServerboundLogin), Payload: []byte("user")}
	frame := p.Encode()

	_, err := Decode(bytes.NewReader(frame[:len(frame)-2]))
	assert.Error(t, err)
}

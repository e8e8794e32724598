package canframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albireox/jaeger-core/internal/registry"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	arbID, data, err := Encode(42, registry.GetStatus, 7, 0, true, []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	f, err := Decode(arbID, data)
	require.NoError(t, err)

	assert.Equal(t, uint16(42), f.PositionerID)
	assert.Equal(t, registry.GetStatus, f.CommandID)
	assert.Equal(t, uint8(7), f.UID)
	assert.Equal(t, uint8(ResponseOK), f.ResponseCode)
	assert.Equal(t, 0, f.SeqIndex)
	assert.True(t, f.Last)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, f.Payload)
}

func TestEncodeBroadcastPositionerID(t *testing.T) {
	t.Parallel()

	arbID, _, err := Encode(0, registry.GetID, 1, 0, true, nil)
	require.NoError(t, err)

	f, err := Decode(arbID, []byte{0x80})
	require.NoError(t, err)
	assert.Equal(t, uint16(0), f.PositionerID)
}

func TestEncodeRejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	_, _, err := Encode(1, registry.CommandID(0xff), 1, 0, true, nil)
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, UnknownCommand, decErr.Reason)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	_, _, err := Encode(1, registry.GetStatus, 1, 0, true, make([]byte, MaxPayloadBytes))
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, BadPayloadLength, decErr.Reason)
}

func TestEncodeRejectsOutOfRangePositionerID(t *testing.T) {
	t.Parallel()

	_, _, err := Encode(1<<9, registry.GetStatus, 1, 0, true, nil)
	require.Error(t, err)
}

func TestDecodeRejectsBadArbitrationID(t *testing.T) {
	t.Parallel()

	_, err := Decode(MaxArbitrationID+1, []byte{0x80})
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, BadArbitration, decErr.Reason)
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	arbID, _, err := Encode(1, registry.GetStatus, 1, 0, true, nil)
	require.NoError(t, err)

	_, err = Decode(arbID, nil)
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, BadPayloadLength, decErr.Reason)
}

func TestReassemblerOrdersOutOfOrderFrames(t *testing.T) {
	t.Parallel()

	var r Reassembler

	out, done := r.Add(Frame{SeqIndex: 1, Last: true, Payload: []byte{0x05, 0x06}})
	assert.False(t, done)
	assert.Nil(t, out)

	out, done = r.Add(Frame{SeqIndex: 0, Last: false, Payload: []byte{0x01, 0x02}})
	require.True(t, done)
	assert.Equal(t, []byte{0x01, 0x02, 0x05, 0x06}, out)
}

func TestReassemblerSingleFrame(t *testing.T) {
	t.Parallel()

	var r Reassembler
	out, done := r.Add(Frame{SeqIndex: 0, Last: true, Payload: []byte{0xaa}})
	require.True(t, done)
	assert.Equal(t, []byte{0xaa}, out)
}

package chunk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := Chunk{RemainingChunks: 3, Bytes: []byte("payload")}
	decoded, err := Decode(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestDecodeEmptyWireIsMalformed(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestToChunksRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	chunks, err := ToChunks(data, 64)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var reassembled []byte
	for i, c := range chunks {
		reassembled = append(reassembled, c.Bytes...)
		wantRemaining := uint8(len(chunks) - 1 - i)
		assert.Equal(t, wantRemaining, c.RemainingChunks)
	}
	assert.Equal(t, data, reassembled)
	assert.Equal(t, uint8(0), chunks[len(chunks)-1].RemainingChunks)
}

func TestToChunksEmptyMessageEmitsOneTerminalChunk(t *testing.T) {
	chunks, err := ToChunks(nil, 16)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, uint8(0), chunks[0].RemainingChunks)
	assert.Empty(t, chunks[0].Bytes)
}

func TestToChunksRejectsTooSmallChunkSize(t *testing.T) {
	_, err := ToChunks([]byte("x"), 1)
	assert.Error(t, err)
}

func TestToChunksMessageTooLong(t *testing.T) {
	data := bytes.Repeat([]byte("y"), MaxChunks*10+1)
	_, err := ToChunks(data, 2)
	require.ErrorIs(t, err, ErrMessageTooLong)
}

func TestToChunksExactlyAtMaxChunksSucceeds(t *testing.T) {
	// chunkSize 2 => 1 payload byte per chunk; MaxChunks bytes fit exactly.
	data := bytes.Repeat([]byte("z"), MaxChunks)
	chunks, err := ToChunks(data, 2)
	require.NoError(t, err)
	assert.Len(t, chunks, MaxChunks)
}

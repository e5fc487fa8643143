package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTextDecodesBack(t *testing.T) {
	wire := EncodeText("hello")

	env, err := DecodeEnvelope(wire)
	require.NoError(t, err)
	require.True(t, env.Recognized())

	text, ok := env.Text()
	require.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestDecodeEnvelope_DiscriminantIsLittleEndian(t *testing.T) {
	env, err := DecodeEnvelope([]byte{1, 0, 0, 0, 'h', 'i'})
	require.NoError(t, err)
	assert.Equal(t, KindText, env.Kind)
	assert.Equal(t, "hi", string(env.Body))
}

func TestDecodeEnvelope_UnknownKindIsNotAnError(t *testing.T) {
	env, err := DecodeEnvelope([]byte{0xFF, 0xFF, 0, 0, 1, 2, 3})
	require.NoError(t, err)
	assert.False(t, env.Recognized())

	_, ok := env.Text()
	assert.False(t, ok)
}

func TestDecodeEnvelope_ShortInputIsMalformed(t *testing.T) {
	_, err := DecodeEnvelope([]byte{1, 0})
	assert.Error(t, err)
}

func TestDecodeEnvelope_EmptyBody(t *testing.T) {
	env, err := DecodeEnvelope(EncodeText(""))
	require.NoError(t, err)
	text, ok := env.Text()
	require.True(t, ok)
	assert.Empty(t, text)
}

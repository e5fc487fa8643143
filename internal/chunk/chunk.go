// Package chunk splits oversize cleartext into ordered fragments for
// publishing across multiple slots, and reassembles them on the read
// side. Wire format: 1 byte remaining_chunks (0-254) followed by
// payload; the chunk carrying remaining_chunks == 0 ends the message.
package chunk

import (
	"errors"
	"fmt"
)

// MaxChunks is the largest number of fragments a single message may be
// split into: remaining_chunks is a single byte, so indices 0..254 are
// addressable (255 total).
const MaxChunks = 255

// ErrMessageTooLong is returned when the input would require more than
// MaxChunks fragments.
var ErrMessageTooLong = fmt.Errorf("chunk: message requires more than %d chunks", MaxChunks)

// ErrDecodeFailure is returned for a malformed wire chunk. Fatal for the
// read stream that hit it: the slot cannot be skipped without breaking
// ordering.
var ErrDecodeFailure = errors.New("chunk: malformed wire payload")

// Chunk is one wire-format fragment: a countdown header plus payload.
type Chunk struct {
	RemainingChunks uint8
	Bytes           []byte
}

// Encode serializes a Chunk to its wire form: byte[0] = RemainingChunks,
// byte[1:] = Bytes.
func (c Chunk) Encode() []byte {
	out := make([]byte, 1+len(c.Bytes))
	out[0] = c.RemainingChunks
	copy(out[1:], c.Bytes)
	return out
}

// Decode parses a wire-format chunk. A zero-length input is malformed:
// even an empty message carries its countdown byte.
func Decode(wire []byte) (Chunk, error) {
	if len(wire) == 0 {
		return Chunk{}, fmt.Errorf("%w: empty", ErrDecodeFailure)
	}
	payload := make([]byte, len(wire)-1)
	copy(payload, wire[1:])
	return Chunk{RemainingChunks: wire[0], Bytes: payload}, nil
}

// ToChunks splits bytes into pieces of length chunkSize-1 (the last piece
// may be shorter), in source order, with RemainingChunks counting down to
// zero on the final chunk. chunkSize must be >= 2.
func ToChunks(data []byte, chunkSize int) ([]Chunk, error) {
	if chunkSize < 2 {
		return nil, fmt.Errorf("chunk: chunk size must be >= 2, got %d", chunkSize)
	}

	payloadSize := chunkSize - 1
	total := (len(data) + payloadSize - 1) / payloadSize
	if total == 0 {
		total = 1 // a zero-length message still emits one (empty) terminal chunk.
	}
	if total > MaxChunks {
		return nil, ErrMessageTooLong
	}

	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		start := i * payloadSize
		end := start + payloadSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, Chunk{
			RemainingChunks: uint8(total - 1 - i),
			Bytes:           data[start:end],
		})
	}
	return chunks, nil
}

package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/ledgerchat/channelengine/internal/chunk"
	"github.com/ledgerchat/channelengine/internal/message"
)

// partialMessage is the read-side chunker's in-progress reassembly
// state, reset after every emitted message.
type partialMessage struct {
	buffer    []byte
	timestamp uint64
	haveStamp bool
}

func (p *partialMessage) reset() {
	p.buffer = p.buffer[:0]
	p.timestamp = 0
	p.haveStamp = false
}

// ChunkedReadStream wraps a raw per-sender Receiver, reassembling the
// countdown-framed chunk wire format into complete Cleartext messages.
// Only one reassembly call may progress at a time per instance; the
// internal mutex makes sharing one across goroutines safe.
type ChunkedReadStream struct {
	mu      sync.Mutex
	inner   Receiver
	partial partialMessage
}

// NewChunkedReadStream wraps inner with chunk reassembly.
func NewChunkedReadStream(inner Receiver) *ChunkedReadStream {
	return &ChunkedReadStream{inner: inner}
}

// ReceiveNext pulls and reassembles chunks from the inner stream until a
// terminal chunk (RemainingChunks == 0) completes a message. State is
// preserved across calls that return "nothing available" so a later
// call resumes mid-message. The emitted timestamp is the first nonzero
// block timestamp seen among the message's chunks.
func (s *ChunkedReadStream) ReceiveNext(ctx context.Context) (message.Cleartext, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		raw, ok, err := s.inner.ReceiveNext(ctx)
		if err != nil {
			return message.Cleartext{}, false, err
		}
		if !ok {
			return message.Cleartext{}, false, nil
		}

		c, err := chunk.Decode(raw.Bytes)
		if err != nil {
			return message.Cleartext{}, false, fmt.Errorf("stream: decode chunk: %w", err)
		}

		if !s.partial.haveStamp && raw.BlockTimestampMs != 0 {
			s.partial.timestamp = raw.BlockTimestampMs
			s.partial.haveStamp = true
		}
		s.partial.buffer = append(s.partial.buffer, c.Bytes...)

		if c.RemainingChunks == 0 {
			out := message.Cleartext{
				Bytes:            append([]byte(nil), s.partial.buffer...),
				BlockTimestampMs: s.partial.timestamp,
			}
			s.partial.reset()
			return out, true, nil
		}
		// More chunks expected; loop to pull the next one immediately.
	}
}

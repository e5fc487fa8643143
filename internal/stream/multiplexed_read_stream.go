package stream

import (
	"context"
	"sync"

	"github.com/ledgerchat/channelengine/internal/channel"
	"github.com/ledgerchat/channelengine/internal/message"
)

// Labeled pairs a member id with the stream that reassembles its
// messages, the per-member input to NewMultiplexedReadStream.
type Labeled struct {
	ID     channel.CorrespondentID
	Stream Receiver
}

type lookahead struct {
	pending bool
	msg     message.Cleartext
}

// MultiplexedReadStream merges N per-sender streams into one
// timestamp-ordered stream with a 1-message lookahead per sender. All
// progress on one instance is serialized by a single mutex across the
// whole stream set.
type MultiplexedReadStream struct {
	mu      sync.Mutex
	members []Labeled
	ahead   []lookahead
}

// NewMultiplexedReadStream builds a merged stream over members, in the
// given order; ties in block timestamp are broken in favor of the
// earliest-scanned member, i.e. the order members are passed in here
// (callers pass canonical member-set order).
func NewMultiplexedReadStream(members []Labeled) *MultiplexedReadStream {
	return &MultiplexedReadStream{
		members: members,
		ahead:   make([]lookahead, len(members)),
	}
}

// ReceiveNext fills each empty lookahead slot at most once, then returns
// the sender whose pending message has the smallest BlockTimestampMs.
// Returns (zero id, zero Cleartext, false, nil) when no sender has data.
func (s *MultiplexedReadStream) ReceiveNext(ctx context.Context) (channel.CorrespondentID, message.Cleartext, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.members {
		if s.ahead[i].pending {
			continue
		}
		msg, ok, err := s.members[i].Stream.ReceiveNext(ctx)
		if err != nil {
			return channel.CorrespondentID{}, message.Cleartext{}, false, err
		}
		if ok {
			s.ahead[i] = lookahead{pending: true, msg: msg}
		}
	}

	winner := -1
	for i := range s.ahead {
		if !s.ahead[i].pending {
			continue
		}
		if winner == -1 || s.ahead[i].msg.BlockTimestampMs < s.ahead[winner].msg.BlockTimestampMs {
			winner = i
		}
	}

	if winner == -1 {
		return channel.CorrespondentID{}, message.Cleartext{}, false, nil
	}

	out := s.ahead[winner].msg
	s.ahead[winner] = lookahead{}
	return s.members[winner].ID, out, true, nil
}

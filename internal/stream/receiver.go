// Package stream implements the chunk-reassembling and multi-sender
// merging wrappers that compose over any raw per-correspondent read
// cursor. It never constructs a cursor itself —
// that is package group's job — it only consumes the Receiver contract.
package stream

import (
	"context"

	"github.com/ledgerchat/channelengine/internal/message"
)

// Receiver is the pull contract a raw per-correspondent read cursor
// exposes: pull the next item, or report nothing is available yet.
// Structurally identical to group.Receiver, so a *group.Group's
// per-correspondent receivers satisfy this interface with no adapter.
type Receiver interface {
	ReceiveNext(ctx context.Context) (message.Cleartext, bool, error)
}

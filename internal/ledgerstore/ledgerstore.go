// Package ledgerstore defines the engine's view of the ledger: an
// opaque, address-keyed blob store with publish/fetch and a per-publish
// block timestamp. The channel engine never depends on a concrete
// backend, only on this interface; redisledger and s3ledger provide two
// real implementations.
package ledgerstore

import (
	"context"
	"errors"
)

// ErrTransportFailure wraps backend I/O errors (network, auth to the
// backend itself, etc). Retryable by the caller: a failed fetch moves no
// read cursor, while a failed publish from group.Send still consumes its
// send index (the slot is treated as burned).
var ErrTransportFailure = errors.New("ledgerstore: transport failure")

// Record is the payload and timing metadata recovered from a successful
// fetch. BlockTimestampMs == 0 means "unknown".
type Record struct {
	Payload          []byte
	BlockTimestampMs uint64
}

// Store is the channel engine's sole view of the ledger: an
// address-keyed blob store. Slots are opaque byte strings (32-byte
// SHA-256 outputs from the reference channel derivation, but the
// interface makes no assumption about their shape).
type Store interface {
	// Publish durably writes payload at slot. The protocol assumes at
	// most one successful publish per slot; overwrite semantics beyond
	// that are backend-defined.
	Publish(ctx context.Context, slot []byte, payload []byte) error

	// Fetch returns the record published at slot, or (nil, false, nil)
	// if the slot has never been written.
	Fetch(ctx context.Context, slot []byte) (*Record, bool, error)
}

// Package group implements the channel engine's sender/receiver core:
// it binds a member set and shared secret to a Channel, owns the
// per-member read/write cursors, and exposes the per-correspondent read
// stream and the self send path. Generic
// multi-sender merging and chunk reassembly live in package stream,
// which composes over the Receiver this package exposes.
package group

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerchat/channelengine/internal/channel"
	"github.com/ledgerchat/channelengine/internal/chunk"
	stdcipher "github.com/ledgerchat/channelengine/internal/cipher"
	"github.com/ledgerchat/channelengine/internal/discovery"
	"github.com/ledgerchat/channelengine/internal/ledgerstore"
	"github.com/ledgerchat/channelengine/internal/message"
	"github.com/ledgerchat/channelengine/internal/stream"
)

// Group binds an immutable member set and shared secret to a Channel and
// owns the cursors, cipher, and ledger handle needed to send and receive
// on it.
type Group struct {
	ch        channel.Channel
	selfIndex int
	cursors   *cursors
	ledger    ledgerstore.Store
	aead      stdcipher.AEAD
	chunkSize int
	observer  Observer
}

// Config bundles a Group's constructor inputs: a ledger handle, this
// process's own id, the rest of the channel's members (may be empty for
// a self-channel), the shared secret, and a context byte string
// distinguishing channel purposes.
type Config struct {
	Ledger       ledgerstore.Store
	Cipher       stdcipher.AEAD
	SelfID       channel.CorrespondentID
	Others       []channel.CorrespondentID
	SharedSecret [32]byte
	Context      []byte
	ChunkSize    int
	Observer     Observer
}

// New constructs a Group: sorts self+others into the canonical member
// set, locates self's correspondent index, derives the channel
// identifier, and initializes every cursor at its member's own index
// (the protocol's domain-separating initial offset).
func New(cfg Config) (*Group, error) {
	ids := make([]channel.CorrespondentID, 0, len(cfg.Others)+1)
	ids = append(ids, cfg.SelfID)
	ids = append(ids, cfg.Others...)

	members, err := channel.NewMemberSet(ids)
	if err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}

	selfIndex, ok := members.IndexOf(cfg.SelfID)
	if !ok {
		// NewMemberSet only dedupes; SelfID is always in ids, so this
		// can only happen if CorrespondentID's zero value collided
		// unexpectedly — defensive, not reachable in practice.
		return nil, fmt.Errorf("group: self id missing from canonicalized member set")
	}

	ch := channel.New(members, cfg.SharedSecret, cfg.Context)

	chunkSize := cfg.ChunkSize
	if chunkSize < 2 {
		chunkSize = 256
	}

	observer := cfg.Observer
	if observer == nil {
		observer = defaultObserver
	}

	return &Group{
		ch:        ch,
		selfIndex: selfIndex,
		cursors:   newCursors(members.Len()),
		ledger:    cfg.Ledger,
		aead:      cfg.Cipher,
		chunkSize: chunkSize,
		observer:  observer,
	}, nil
}

// Resync rediscovers this process's own write cursor after a cold start:
// a freshly constructed Group always starts
// next_write_index[selfIndex] at its domain-separating offset, with no
// idea what the ledger already holds. Against a fail-closed backend
// (e.g. redisledger's SETNX), sending without resyncing first means
// every publish collides with a slot occupied by a prior run until the
// naive index happens to catch up — there is no other recovery path.
// Resync runs the exponential-then-binary probe and raises the write
// cursor via setWriteIndex. Peer read cursors need no equivalent step:
// they resume at their own initial offset and converge on their own as
// the caller drains ReadStream/ReceiveNextFor — that ordinary read loop
// converges them without a separate scan.
func (g *Group) Resync(ctx context.Context) error {
	idx, err := discovery.DiscoverFirstUnused(ctx, g.ledger, g.ch, g.selfIndex, func(probes int) {
		g.observer.OnNonceDiscoveryProbe(g.selfIndex, probes)
	})
	if err != nil {
		if errors.Is(err, discovery.ErrCursorExhausted) {
			return ErrCursorExhausted
		}
		return fmt.Errorf("group: resync write cursor: %w", err)
	}
	g.cursors.setWriteIndex(g.selfIndex, idx)
	return nil
}

// Channel returns the group's derived channel identity.
func (g *Group) Channel() channel.Channel { return g.ch }

// SelfIndex returns this process's correspondent index within the
// channel's member set.
func (g *Group) SelfIndex() int { return g.selfIndex }

// CorrespondentIndex resolves a member id to its position in the
// channel's member set.
func (g *Group) CorrespondentIndex(id channel.CorrespondentID) (int, bool) {
	return g.ch.Members().IndexOf(id)
}

// NonceFor computes the nonce for a given message index and
// correspondent index.
func (g *Group) NonceFor(messageIndex uint32, correspondentIndex int) uint32 {
	return g.ch.Nonce(messageIndex, uint32(correspondentIndex))
}

// CursorSnapshot returns copies of next_read_index[] and
// next_write_index[], for admin-API introspection.
func (g *Group) CursorSnapshot() (read, write []uint32) {
	return g.cursors.snapshot()
}

// ReceiveNextFor drives the per-correspondent read cursor for ci one
// step: fetch at the expected slot, decrypt, and —
// together in one critical section — advance the read cursor and raise
// the write cursor. Returns (msg, true, nil) on success, (zero, false,
// nil) when nothing is published yet, or a non-nil error (wrapping
// ErrAuthFailure or ledgerstore.ErrTransportFailure) on failure.
func (g *Group) ReceiveNextFor(ctx context.Context, ci int) (message.Cleartext, bool, error) {
	if _, ok := g.ch.Members().At(ci); !ok {
		return message.Cleartext{}, false, fmt.Errorf("%w: index %d", ErrUnknownCorrespondent, ci)
	}

	idx := g.cursors.nextReadIndex(ci)
	nonce := g.NonceFor(idx, ci)
	slot := g.ch.SequenceHash(nonce)

	record, ok, err := g.ledger.Fetch(ctx, slot)
	if err != nil {
		return message.Cleartext{}, false, fmt.Errorf("group: fetch slot for correspondent %d: %w", ci, err)
	}
	if !ok {
		return message.Cleartext{}, false, nil
	}

	plaintext, err := g.aead.Decrypt(nonce, g.ch.Identifier().AssociatedData(), record.Payload)
	if err != nil {
		g.observer.OnAuthFailure(ci, nonce)
		return message.Cleartext{}, false, fmt.Errorf("%w (correspondent %d, nonce %d): %v", ErrAuthFailure, ci, nonce, err)
	}

	g.cursors.advanceRead(ci, idx)
	g.observer.OnReceive(ci, nonce, record.BlockTimestampMs)

	return message.Cleartext{Bytes: plaintext, BlockTimestampMs: record.BlockTimestampMs}, true, nil
}

// Send chunks bytes and publishes one ciphertext per chunk, each
// consuming its own send index and nonce, from this process's own
// correspondent index. Returns ErrMessageTooLong (with
// no publish) if the payload needs more than chunk.MaxChunks fragments.
func (g *Group) Send(ctx context.Context, data []byte) error {
	chunks, err := chunk.ToChunks(data, g.chunkSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMessageTooLong, err)
	}

	for _, c := range chunks {
		if err := g.publishChunk(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (g *Group) publishChunk(ctx context.Context, c chunk.Chunk) error {
	idx := g.cursors.allocateWrite(g.selfIndex)
	nonce := g.NonceFor(idx, g.selfIndex)
	slot := g.ch.SequenceHash(nonce)

	ciphertext, err := g.aead.Encrypt(nonce, g.ch.Identifier().AssociatedData(), c.Encode())
	if err != nil {
		return fmt.Errorf("group: encrypt chunk at nonce %d: %w", nonce, err)
	}

	// The cursor bump above is not rolled back on publish failure: the
	// slot is considered burned.
	if err := g.ledger.Publish(ctx, slot, ciphertext); err != nil {
		return fmt.Errorf("group: publish at nonce %d: %w", nonce, err)
	}

	g.observer.OnSend(g.selfIndex, nonce, 1)
	return nil
}

// receiverFor adapts ReceiveNextFor into the stream.Receiver shape for
// correspondent ci, for use by package stream's chunk-reassembling and
// multiplexing wrappers.
type receiverFor struct {
	g  *Group
	ci int
}

func (r receiverFor) ReceiveNext(ctx context.Context) (message.Cleartext, bool, error) {
	return r.g.ReceiveNextFor(ctx, r.ci)
}

// Receiver is the minimal pull contract a correspondent's raw read
// cursor exposes; package stream's wrappers are written against this
// shape so they never import package group directly.
type Receiver interface {
	ReceiveNext(ctx context.Context) (message.Cleartext, bool, error)
}

// Receiver returns a Receiver bound to correspondent ci's raw
// (non-reassembled) read cursor.
func (g *Group) Receiver(ci int) Receiver {
	return receiverFor{g: g, ci: ci}
}

// ReadStream builds the merged, chunk-reassembling, timestamp-ordered
// read stream over every member of the channel, including self.
func (g *Group) ReadStream() *stream.MultiplexedReadStream {
	members := g.ch.Members().All()
	labeled := make([]stream.Labeled, len(members))
	for i, id := range members {
		labeled[i] = stream.Labeled{
			ID:     id,
			Stream: stream.NewChunkedReadStream(g.Receiver(i)),
		}
	}
	return stream.NewMultiplexedReadStream(labeled)
}

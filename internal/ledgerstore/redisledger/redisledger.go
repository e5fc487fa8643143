// Package redisledger implements ledgerstore.Store on Redis, for a
// low-latency local/devnet backend: a slot becomes a Redis key, and SET
// with NX semantics gives the at-most-one-successful-publish-per-slot
// property the protocol assumes.
package redisledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerchat/channelengine/internal/ledgerstore"
)

const keyPrefix = "ledgerchat:slot:"

// Store is a Redis-backed ledgerstore.Store. Records are stored as an
// 8-byte little-endian millisecond timestamp followed by the payload,
// since Redis has no native block-timestamp concept; the timestamp
// recorded is wall-clock time of the publish call.
type Store struct {
	client *redis.Client
}

// New wraps an existing go-redis client. The caller owns the client's
// lifecycle (connection pool, TLS, auth) — this package only issues
// GET/SET commands against it.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(slot []byte) string {
	return keyPrefix + hex.EncodeToString(slot)
}

// Publish writes payload at slot using SETNX so a second publish at an
// already-occupied slot fails closed rather than silently clobbering —
// overwrite semantics are backend-defined, and this backend chooses
// "first writer wins".
func (s *Store) Publish(ctx context.Context, slot []byte, payload []byte) error {
	record := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(record[:8], uint64(time.Now().UnixMilli()))
	copy(record[8:], payload)

	ok, err := s.client.SetNX(ctx, key(slot), record, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: redis setnx: %v", ledgerstore.ErrTransportFailure, err)
	}
	if !ok {
		return fmt.Errorf("%w: redis: slot already occupied", ledgerstore.ErrTransportFailure)
	}
	return nil
}

// Fetch returns the record at slot, or (nil, false, nil) if unset.
func (s *Store) Fetch(ctx context.Context, slot []byte) (*ledgerstore.Record, bool, error) {
	data, err := s.client.Get(ctx, key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis get: %v", ledgerstore.ErrTransportFailure, err)
	}
	if len(data) < 8 {
		return nil, false, fmt.Errorf("%w: redis: malformed record at slot", ledgerstore.ErrTransportFailure)
	}

	ts := binary.LittleEndian.Uint64(data[:8])
	payload := make([]byte, len(data)-8)
	copy(payload, data[8:])

	return &ledgerstore.Record{Payload: payload, BlockTimestampMs: ts}, true, nil
}

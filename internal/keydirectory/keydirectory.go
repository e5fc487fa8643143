// Package keydirectory maps an account/address to its public key and
// publishes this process's own key. The lookup itself is an on-chain
// registry call the channel engine never makes; this package provides
// the in-process shape so a caller can wire in a real registry client
// later without touching the engine.
package keydirectory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ledgerchat/channelengine/internal/channel"
)

// Directory is the client-side key directory: set_my_key / get_key_for.
type Directory interface {
	SetMyKey(ctx context.Context, pub channel.CorrespondentID) error
	GetKeyFor(ctx context.Context, account string) (channel.CorrespondentID, error)
}

// RemoteRegistry is the shape a real on-chain registry client would
// implement; Local below delegates to it when a lookup isn't cached.
// No concrete RemoteRegistry ships here — wiring one in is the
// enclosing messenger's responsibility.
type RemoteRegistry interface {
	Publish(ctx context.Context, pub channel.CorrespondentID) error
	Lookup(ctx context.Context, account string) (channel.CorrespondentID, error)
}

// Local is an in-process KeyDirectory: an LRU-free cache in front of an
// optional RemoteRegistry. Without a registry it degenerates to a local
// address book the caller populates directly via Remember.
type Local struct {
	mu       sync.RWMutex
	cache    map[string]channel.CorrespondentID
	registry RemoteRegistry
	mine     channel.CorrespondentID
	haveMine bool
}

// New builds a Local directory, optionally backed by a remote registry
// for cache misses.
func New(registry RemoteRegistry) *Local {
	return &Local{cache: map[string]channel.CorrespondentID{}, registry: registry}
}

// Remember caches a known (account, public key) pair without consulting
// the remote registry, e.g. from an out-of-band contact exchange.
func (d *Local) Remember(account string, pub channel.CorrespondentID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[account] = pub
}

// SetMyKey records this process's own public key and, if a remote
// registry is configured, publishes it.
func (d *Local) SetMyKey(ctx context.Context, pub channel.CorrespondentID) error {
	d.mu.Lock()
	d.mine = pub
	d.haveMine = true
	d.mu.Unlock()

	if d.registry != nil {
		if err := d.registry.Publish(ctx, pub); err != nil {
			return fmt.Errorf("keydirectory: publish own key: %w", err)
		}
	}
	return nil
}

// GetKeyFor resolves account to a public key, preferring the local
// cache and falling back to the remote registry (if any) on a miss.
func (d *Local) GetKeyFor(ctx context.Context, account string) (channel.CorrespondentID, error) {
	d.mu.RLock()
	id, ok := d.cache[account]
	d.mu.RUnlock()
	if ok {
		return id, nil
	}

	if d.registry == nil {
		return channel.CorrespondentID{}, fmt.Errorf("keydirectory: no key known for %q", account)
	}

	id, err := d.registry.Lookup(ctx, account)
	if err != nil {
		return channel.CorrespondentID{}, fmt.Errorf("keydirectory: lookup %q: %w", account, err)
	}

	d.mu.Lock()
	d.cache[account] = id
	d.mu.Unlock()
	return id, nil
}

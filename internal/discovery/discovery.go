// Package discovery implements cold-start cursor recovery: after a
// restart, the in-memory send cursor is unknown, so it must be
// rediscovered by probing the ledger for the first unoccupied slot.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ledgerchat/channelengine/internal/channel"
	"github.com/ledgerchat/channelengine/internal/ledgerstore"
)

// ErrCursorExhausted signals that all slots up to the 32-bit nonce
// ceiling are occupied. Astronomically unlikely, and fatal when it
// happens: there is no index left to publish at.
var ErrCursorExhausted = errors.New("discovery: nonce space exhausted")

// occupied reports whether the slot at message index idx for
// correspondent ci is populated.
func occupied(ctx context.Context, ledger ledgerstore.Store, ch channel.Channel, ci int, idx uint32) (bool, error) {
	nonce := ch.Nonce(idx, uint32(ci))
	slot := ch.SequenceHash(nonce)
	_, ok, err := ledger.Fetch(ctx, slot)
	if err != nil {
		return false, fmt.Errorf("discovery: fetch probe at index %d: %w", idx, err)
	}
	return ok, nil
}

// Probe counts the number of ledger fetches a discovery run performed,
// surfaced for the nonce_discovery_probes_total metric.
type Probe func(probes int)

// DiscoverFirstUnused finds the first unused message index for
// correspondent ci in channel ch, starting the scan at n = ci — cursors
// initialize at their member's own index, so message index 0 is never
// correspondent ci's first message unless ci == 0. It uses an
// exponential probe to find an occupied/unoccupied boundary, then a
// binary search to pin it down exactly; DiscoverFirstUnusedLinear is
// the simpler equivalent for callers that prefer it.
func DiscoverFirstUnused(ctx context.Context, ledger ledgerstore.Store, ch channel.Channel, ci int, onProbe Probe) (uint32, error) {
	probes := 0
	check := func(idx uint32) (bool, error) {
		probes++
		return occupied(ctx, ledger, ch, ci, idx)
	}
	report := func() {
		if onProbe != nil {
			onProbe(probes)
		}
	}

	start := uint32(ci)

	// start itself empty: done in one probe.
	ok, err := check(start)
	if err != nil {
		report()
		return 0, err
	}
	if !ok {
		report()
		return start, nil
	}

	// Exponential search for an upper bound that is unoccupied.
	var lo, hi uint32 = start, 0
	step := uint32(1)
	for {
		candidate, overflow := addOverflows(start, step)
		if overflow {
			report()
			return 0, ErrCursorExhausted
		}
		occ, err := check(candidate)
		if err != nil {
			report()
			return 0, err
		}
		if !occ {
			hi = candidate
			break
		}
		lo = candidate
		if step > math.MaxUint32/2 {
			report()
			return 0, ErrCursorExhausted
		}
		step *= 2
	}

	// Binary search the boundary in (lo, hi]: lo is occupied, hi is not.
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		occ, err := check(mid)
		if err != nil {
			report()
			return 0, err
		}
		if occ {
			lo = mid
		} else {
			hi = mid
		}
	}

	report()
	return hi, nil
}

func addOverflows(a, b uint32) (uint32, bool) {
	sum := a + b
	return sum, sum < a
}

// DiscoverFirstUnusedLinear probes slot after slot — nonces n, n+M,
// n+2M, ... where M is the channel's member count — until an empty slot
// is found. Slower than DiscoverFirstUnused but trivially auditable.
func DiscoverFirstUnusedLinear(ctx context.Context, ledger ledgerstore.Store, ch channel.Channel, ci int, onProbe Probe) (uint32, error) {
	probes := 0
	for idx := uint32(ci); ; idx++ {
		probes++
		occ, err := occupied(ctx, ledger, ch, ci, idx)
		if err != nil {
			if onProbe != nil {
				onProbe(probes)
			}
			return 0, err
		}
		if !occ {
			if onProbe != nil {
				onProbe(probes)
			}
			return idx, nil
		}
		if idx == math.MaxUint32 {
			if onProbe != nil {
				onProbe(probes)
			}
			return 0, ErrCursorExhausted
		}
	}
}

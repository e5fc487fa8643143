package discovery

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerchat/channelengine/internal/channel"
	"github.com/ledgerchat/channelengine/internal/ledgerstore"
)

// memStore is a minimal in-memory ledgerstore.Store for exercising
// discovery without a real backend.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Publish(ctx context.Context, slot []byte, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(slot)] = payload
	return nil
}

func (m *memStore) Fetch(ctx context.Context, slot []byte) (*ledgerstore.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.data[string(slot)]
	if !ok {
		return nil, false, nil
	}
	return &ledgerstore.Record{Payload: payload}, true, nil
}

func testChannel(t *testing.T) channel.Channel {
	t.Helper()
	members, err := channel.NewMemberSet([]channel.CorrespondentID{{1}, {2}, {3}})
	require.NoError(t, err)
	return channel.New(members, [32]byte{9}, []byte("ctx"))
}

func publishAt(t *testing.T, ledger ledgerstore.Store, ch channel.Channel, ci int, idx uint32) {
	t.Helper()
	slot := ch.SequenceHash(ch.Nonce(idx, uint32(ci)))
	require.NoError(t, ledger.Publish(context.Background(), slot, []byte("x")))
}

func TestDiscoverFirstUnused_EmptyLedgerReturnsStartOffset(t *testing.T) {
	ledger := newMemStore()
	ch := testChannel(t)

	idx, err := DiscoverFirstUnused(context.Background(), ledger, ch, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx, "first message index for correspondent ci is ci itself")
}

func TestDiscoverFirstUnused_MatchesLinearAfterSeveralMessages(t *testing.T) {
	ledger := newMemStore()
	ch := testChannel(t)
	ci := 2

	for _, idx := range []uint32{2, 5, 8, 11, 14} {
		publishAt(t, ledger, ch, ci, idx)
	}

	got, err := DiscoverFirstUnused(context.Background(), ledger, ch, ci, nil)
	require.NoError(t, err)

	want, err := DiscoverFirstUnusedLinear(context.Background(), ledger, ch, ci, nil)
	require.NoError(t, err)

	assert.Equal(t, want, got, "exponential+binary search must agree with the linear floor behavior")
	assert.Equal(t, uint32(3), got, "index 2 is occupied, index 3 is the first gap")
}

func TestDiscoverFirstUnused_ReportsProbeCount(t *testing.T) {
	ledger := newMemStore()
	ch := testChannel(t)
	ci := 0

	for idx := uint32(0); idx < 40; idx += 3 {
		publishAt(t, ledger, ch, ci, idx)
	}

	var probes int
	_, err := DiscoverFirstUnused(context.Background(), ledger, ch, ci, func(n int) { probes = n })
	require.NoError(t, err)
	assert.Greater(t, probes, 0)
}

func TestDiscoverFirstUnusedLinear_StopsAtFirstGap(t *testing.T) {
	ledger := newMemStore()
	ch := testChannel(t)
	ci := 1

	publishAt(t, ledger, ch, ci, 1)
	// index 2 deliberately left empty; index 7 must not be reached.
	publishAt(t, ledger, ch, ci, 7)

	idx, err := DiscoverFirstUnusedLinear(context.Background(), ledger, ch, ci, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), idx)
}

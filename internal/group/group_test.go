package group

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerchat/channelengine/internal/channel"
	"github.com/ledgerchat/channelengine/internal/cipher"
	"github.com/ledgerchat/channelengine/internal/ledgerstore"
)

// memStore is a minimal shared in-memory ledgerstore.Store, standing in
// for redisledger/s3ledger in tests that only need the Publish/Fetch
// contract, not a real backend.
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
	if _, exists := m.data[string(slot)]; exists {
		return ledgerstore.ErrTransportFailure
	}
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
	return &ledgerstore.Record{Payload: payload, BlockTimestampMs: 1000}, true, nil
}

func testSecret() [32]byte {
	var s [32]byte
	copy(s[:], []byte("0123456789abcdef0123456789abcde"))
	return s
}

func newPair(t *testing.T, ledger ledgerstore.Store) (alice, bob *Group) {
	t.Helper()
	secret := testSecret()
	aead, err := cipher.NewChaCha20Poly1305(secret)
	require.NoError(t, err)

	var aliceID, bobID channel.CorrespondentID
	aliceID[0] = 1
	bobID[0] = 2

	alice, err = New(Config{
		Ledger: ledger, Cipher: aead,
		SelfID: aliceID, Others: []channel.CorrespondentID{bobID},
		SharedSecret: secret, Context: []byte("test"),
	})
	require.NoError(t, err)

	bob, err = New(Config{
		Ledger: ledger, Cipher: aead,
		SelfID: bobID, Others: []channel.CorrespondentID{aliceID},
		SharedSecret: secret, Context: []byte("test"),
	})
	require.NoError(t, err)

	return alice, bob
}

func TestSendReceiveSymmetry(t *testing.T) {
	ledger := newMemStore()
	alice, bob := newPair(t, ledger)

	require.NoError(t, alice.Send(context.Background(), []byte("hello bob")))

	msg, ok, err := bob.ReceiveNextFor(context.Background(), alice.SelfIndex())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello bob", string(msg.Bytes))
}

func TestReceiveNextFor_NothingPublishedYet(t *testing.T) {
	ledger := newMemStore()
	alice, bob := newPair(t, ledger)

	_, ok, err := bob.ReceiveNextFor(context.Background(), alice.SelfIndex())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReceiveNextFor_UnknownCorrespondentErrors(t *testing.T) {
	ledger := newMemStore()
	alice, _ := newPair(t, ledger)

	_, _, err := alice.ReceiveNextFor(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUnknownCorrespondent)
}

func TestReceiveNextFor_TamperedCiphertextIsAuthFailure(t *testing.T) {
	ledger := newMemStore()
	alice, bob := newPair(t, ledger)

	require.NoError(t, alice.Send(context.Background(), []byte("hello bob")))

	// Tamper with the published ciphertext directly, remembering the
	// original so the slot can be repaired below.
	original := map[string][]byte{}
	for k, v := range ledger.data {
		original[k] = v
		tampered := append([]byte(nil), v...)
		tampered[0] ^= 0xFF
		ledger.data[k] = tampered
	}

	_, ok, err := bob.ReceiveNextFor(context.Background(), alice.SelfIndex())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrAuthFailure)

	// The read cursor must not have advanced past the bad slot: once the
	// slot is restored, the same call succeeds.
	read, _ := bob.CursorSnapshot()
	assert.Equal(t, uint32(alice.SelfIndex()), read[alice.SelfIndex()])

	for k, v := range original {
		ledger.data[k] = v
	}
	msg, ok, err := bob.ReceiveNextFor(context.Background(), alice.SelfIndex())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello bob", string(msg.Bytes))
}

func TestSend_MultipleMessagesAdvanceCursorsInOrder(t *testing.T) {
	ledger := newMemStore()
	alice, bob := newPair(t, ledger)

	require.NoError(t, alice.Send(context.Background(), []byte("one")))
	require.NoError(t, alice.Send(context.Background(), []byte("two")))

	first, ok, err := bob.ReceiveNextFor(context.Background(), alice.SelfIndex())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", string(first.Bytes))

	second, ok, err := bob.ReceiveNextFor(context.Background(), alice.SelfIndex())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(second.Bytes))
}

func TestSend_MessageTooLongIsRejectedWithoutPublishing(t *testing.T) {
	ledger := newMemStore()
	alice, _ := newPair(t, ledger)

	huge := make([]byte, 1<<20)
	err := alice.Send(context.Background(), huge)
	// chunkSize defaults to 256 => payload 255 bytes/chunk; 1<<20 bytes
	// needs far more than 255 chunks.
	assert.ErrorIs(t, err, ErrMessageTooLong)
	assert.Empty(t, ledger.data)
}

func TestReadStream_MergesBothMembers(t *testing.T) {
	ledger := newMemStore()
	alice, bob := newPair(t, ledger)

	require.NoError(t, alice.Send(context.Background(), []byte("from alice")))
	require.NoError(t, bob.Send(context.Background(), []byte("from bob")))

	stream := alice.ReadStream()
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		_, msg, ok, err := stream.ReceiveNext(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		seen[string(msg.Bytes)] = true
	}
	assert.True(t, seen["from alice"])
	assert.True(t, seen["from bob"])
}

func TestResync_RecoversWriteCursorAfterColdStart(t *testing.T) {
	ledger := newMemStore()
	secret := testSecret()
	aead, err := cipher.NewChaCha20Poly1305(secret)
	require.NoError(t, err)

	var aliceID, bobID channel.CorrespondentID
	aliceID[0] = 1
	bobID[0] = 2

	alice, err := New(Config{
		Ledger: ledger, Cipher: aead,
		SelfID: aliceID, Others: []channel.CorrespondentID{bobID},
		SharedSecret: secret, Context: []byte("test"),
	})
	require.NoError(t, err)

	require.NoError(t, alice.Send(context.Background(), []byte("one")))
	require.NoError(t, alice.Send(context.Background(), []byte("two")))

	// Simulate a restart: a fresh Group over the same ledger starts its
	// write cursor back at the naive offset.
	restarted, err := New(Config{
		Ledger: ledger, Cipher: aead,
		SelfID: aliceID, Others: []channel.CorrespondentID{bobID},
		SharedSecret: secret, Context: []byte("test"),
	})
	require.NoError(t, err)

	_, beforeWrite := restarted.CursorSnapshot()
	assert.Equal(t, uint32(restarted.SelfIndex()), beforeWrite[restarted.SelfIndex()])

	require.NoError(t, restarted.Resync(context.Background()))

	_, afterWrite := restarted.CursorSnapshot()
	assert.Equal(t, uint32(2), afterWrite[restarted.SelfIndex()])

	// Sending now must not collide with the two slots already published.
	require.NoError(t, restarted.Send(context.Background(), []byte("three")))
}

func TestCursorSnapshot_ReflectsSendsAndReceives(t *testing.T) {
	ledger := newMemStore()
	alice, bob := newPair(t, ledger)

	require.NoError(t, alice.Send(context.Background(), []byte("x")))
	_, _, err := bob.ReceiveNextFor(context.Background(), alice.SelfIndex())
	require.NoError(t, err)

	read, write := alice.CursorSnapshot()
	require.Len(t, read, 2)
	require.Len(t, write, 2)
	assert.Equal(t, uint32(1), write[alice.SelfIndex()])
}

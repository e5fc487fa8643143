package keydirectory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerchat/channelengine/internal/channel"
)

type fakeRegistry struct {
	published  []channel.CorrespondentID
	lookups    map[string]channel.CorrespondentID
	lookupErr  error
	publishErr error
}

func (f *fakeRegistry) Publish(ctx context.Context, pub channel.CorrespondentID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, pub)
	return nil
}

func (f *fakeRegistry) Lookup(ctx context.Context, account string) (channel.CorrespondentID, error) {
	if f.lookupErr != nil {
		return channel.CorrespondentID{}, f.lookupErr
	}
	id, ok := f.lookups[account]
	if !ok {
		return channel.CorrespondentID{}, errors.New("not found")
	}
	return id, nil
}

func TestRemember_ServesFromCacheWithoutRegistry(t *testing.T) {
	d := New(nil)
	var want channel.CorrespondentID
	want[0] = 7

	d.Remember("alice", want)

	got, err := d.GetKeyFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetKeyFor_UnknownAccountWithoutRegistryErrors(t *testing.T) {
	d := New(nil)
	_, err := d.GetKeyFor(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestGetKeyFor_FallsBackToRegistryOnCacheMiss(t *testing.T) {
	var want channel.CorrespondentID
	want[0] = 9
	reg := &fakeRegistry{lookups: map[string]channel.CorrespondentID{"bob": want}}
	d := New(reg)

	got, err := d.GetKeyFor(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetKeyFor_CachesRegistryLookupResult(t *testing.T) {
	var want channel.CorrespondentID
	want[0] = 11
	reg := &fakeRegistry{lookups: map[string]channel.CorrespondentID{"carol": want}}
	d := New(reg)

	_, err := d.GetKeyFor(context.Background(), "carol")
	require.NoError(t, err)

	// Remove from the registry entirely; a second lookup must still
	// succeed because the first call cached the result locally.
	reg.lookups = nil
	got, err := d.GetKeyFor(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetKeyFor_RegistryLookupErrorPropagates(t *testing.T) {
	reg := &fakeRegistry{lookupErr: errors.New("registry unreachable")}
	d := New(reg)

	_, err := d.GetKeyFor(context.Background(), "dave")
	assert.Error(t, err)
}

func TestSetMyKey_PublishesToRegistry(t *testing.T) {
	reg := &fakeRegistry{}
	d := New(reg)

	var mine channel.CorrespondentID
	mine[0] = 42
	require.NoError(t, d.SetMyKey(context.Background(), mine))
	assert.Equal(t, []channel.CorrespondentID{mine}, reg.published)
}

func TestSetMyKey_WithoutRegistryJustRecordsLocally(t *testing.T) {
	d := New(nil)
	var mine channel.CorrespondentID
	mine[0] = 3
	assert.NoError(t, d.SetMyKey(context.Background(), mine))
}

func TestSetMyKey_PublishErrorPropagates(t *testing.T) {
	reg := &fakeRegistry{publishErr: errors.New("chain congested")}
	d := New(reg)

	var mine channel.CorrespondentID
	err := d.SetMyKey(context.Background(), mine)
	assert.Error(t, err)
}

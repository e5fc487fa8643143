// Package channel derives a channel's address space from a member set and
// shared secret: the 256-byte domain-separating identifier and the
// per-nonce slot hash used as the ledger key.
package channel

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
)

// CorrespondentID is the 32-byte public identity of a participant.
type CorrespondentID [32]byte

// Less gives the total ordering over CorrespondentIDs used for canonical
// member-set sorting: plain lexicographic byte order.
func (c CorrespondentID) Less(other CorrespondentID) bool {
	return bytes.Compare(c[:], other[:]) < 0
}

func (c CorrespondentID) String() string {
	return fmt.Sprintf("%x", c[:])
}

// MemberSet is a non-empty, ascending-sorted, duplicate-free sequence of
// CorrespondentIDs. A member's position in the sequence is its
// correspondent index.
type MemberSet struct {
	members []CorrespondentID
}

// NewMemberSet canonicalizes an arbitrary, possibly unordered, possibly
// duplicated slice of ids into a MemberSet. It errors on an empty input.
func NewMemberSet(ids []CorrespondentID) (MemberSet, error) {
	if len(ids) == 0 {
		return MemberSet{}, fmt.Errorf("channel: member set must not be empty")
	}

	sorted := make([]CorrespondentID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	deduped := sorted[:1]
	for _, id := range sorted[1:] {
		if id != deduped[len(deduped)-1] {
			deduped = append(deduped, id)
		}
	}

	return MemberSet{members: deduped}, nil
}

// Len returns the number of distinct members (M in the nonce formula).
func (m MemberSet) Len() int { return len(m.members) }

// At returns the member at the given correspondent index.
func (m MemberSet) At(index int) (CorrespondentID, bool) {
	if index < 0 || index >= len(m.members) {
		return CorrespondentID{}, false
	}
	return m.members[index], true
}

// IndexOf returns the correspondent index of id, or false if absent.
func (m MemberSet) IndexOf(id CorrespondentID) (int, bool) {
	// MemberSet is small in practice (handful of participants); a linear
	// scan avoids maintaining a parallel map just for this lookup.
	for i, candidate := range m.members {
		if candidate == id {
			return i, true
		}
	}
	return 0, false
}

// All returns the canonical member slice. Callers must not mutate it.
func (m MemberSet) All() []CorrespondentID {
	return m.members
}

// concatenated returns the sorted concatenation of all member ids, used as
// input to the identifier's membership digest.
func (m MemberSet) concatenated() []byte {
	buf := make([]byte, 0, len(m.members)*len(CorrespondentID{}))
	for _, id := range m.members {
		buf = append(buf, id[:]...)
	}
	return buf
}

// Identifier is the 256-byte canonical fingerprint of a channel, bound as
// AEAD associated data and used as a domain separator for slot derivation.
type Identifier [256]byte

// AssociatedData returns the identifier's bytes for use as AEAD
// associated data, so ciphertexts are not portable across channels even
// when two channels share key material.
func (id Identifier) AssociatedData() []byte {
	return id[:]
}

// Channel derives a deterministic address space from a shared secret,
// caller-supplied context, and immutable member set.
type Channel struct {
	identifier   Identifier
	sharedSecret [32]byte
	members      MemberSet
}

// New builds a Channel's identity per the identifier formula:
//
//	[0,32)   SHA-256(sorted concatenation of member ids)
//	[32,64)  reserved, zero
//	[64,96)  shared secret
//	[96,128) SHA-256(context)
//	[128,256) reserved, zero
func New(members MemberSet, sharedSecret [32]byte, context []byte) Channel {
	var id Identifier

	membersDigest := sha256.Sum256(members.concatenated())
	copy(id[0:32], membersDigest[:])
	// id[32:64] left zero: reserved for future domain-separation fields.
	copy(id[64:96], sharedSecret[:])
	contextDigest := sha256.Sum256(context)
	copy(id[96:128], contextDigest[:])
	// id[128:256] left zero: reserved.

	return Channel{identifier: id, sharedSecret: sharedSecret, members: members}
}

// Identifier returns the 256-byte channel fingerprint.
func (c Channel) Identifier() Identifier { return c.identifier }

// SharedSecret returns the channel's symmetric key material.
func (c Channel) SharedSecret() [32]byte { return c.sharedSecret }

// Members returns the channel's immutable member set.
func (c Channel) Members() MemberSet { return c.members }

// Nonce computes the globally-unique-within-channel 32-bit counter for a
// sender's message index and correspondent index: M*messageIndex + ci.
func (c Channel) Nonce(messageIndex uint32, correspondentIndex uint32) uint32 {
	return uint32(c.members.Len())*messageIndex + correspondentIndex
}

// SequenceHash derives the ledger slot address for a nonce:
// SHA-256(identifier || little_endian_u32(nonce)).
func (c Channel) SequenceHash(nonce uint32) []byte {
	var nonceBytes [4]byte
	binary.LittleEndian.PutUint32(nonceBytes[:], nonce)

	h := sha256.New()
	h.Write(c.identifier[:])
	h.Write(nonceBytes[:])
	return h.Sum(nil)
}

// Package cipher provides the channel engine's authenticated-encryption
// contract: a 32-bit nonce expanded deterministically into the underlying
// AEAD's nonce width, with the channel identifier bound as associated data.
package cipher

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrAuthFailure is returned when decryption fails authentication —
// fatal for the calling read stream, which cannot advance past an
// unverifiable slot without breaking ordering.
var ErrAuthFailure = errors.New("cipher: authentication failed")

// AEAD is the channel engine's encryption contract. A nonce is a 32-bit
// counter, unique per (shared secret, nonce) pair by construction of the
// channel's nonce formula; reuse across distinct plaintexts is a protocol
// violation, not a condition this interface detects.
type AEAD interface {
	// Encrypt authenticates and encrypts plaintext under the given 32-bit
	// nonce and associated data, returning ciphertext with the AEAD's
	// overhead appended.
	Encrypt(nonce uint32, associatedData, plaintext []byte) ([]byte, error)

	// Decrypt authenticates and decrypts ciphertext produced by Encrypt
	// with the same nonce and associated data. Returns ErrAuthFailure on
	// tamper or key mismatch.
	Decrypt(nonce uint32, associatedData, ciphertext []byte) ([]byte, error)
}

// expandNonce zero-pads a 32-bit counter into the low-order bytes of an
// AEAD nonce of the given width, little-endian.
func expandNonce(nonce uint32, width int) []byte {
	out := make([]byte, width)
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], nonce)
	copy(out, n[:])
	return out
}

// stdAEAD adapts any crypto/cipher.AEAD (AES-GCM, ChaCha20-Poly1305, ...)
// into this package's 32-bit-nonce contract.
type stdAEAD struct {
	aead cipher.AEAD
}

func newStdAEAD(aead cipher.AEAD) AEAD {
	return &stdAEAD{aead: aead}
}

func (s *stdAEAD) Encrypt(nonce uint32, associatedData, plaintext []byte) ([]byte, error) {
	n := expandNonce(nonce, s.aead.NonceSize())
	return s.aead.Seal(nil, n, plaintext, associatedData), nil
}

func (s *stdAEAD) Decrypt(nonce uint32, associatedData, ciphertext []byte) ([]byte, error) {
	n := expandNonce(nonce, s.aead.NonceSize())
	plaintext, err := s.aead.Open(nil, n, ciphertext, associatedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	return plaintext, nil
}

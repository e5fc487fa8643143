package cipher

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NewChaCha20Poly1305 builds the software cipher path, used when the
// runtime CPU lacks hardware AES acceleration (see HardwareConfig in
// chooser.go). ChaCha20-Poly1305 is constant-time without hardware
// support, unlike table-based AES.
func NewChaCha20Poly1305(sharedSecret [32]byte) (AEAD, error) {
	aead, err := chacha20poly1305.New(sharedSecret[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: chacha20poly1305 init: %w", err)
	}
	return newStdAEAD(aead), nil
}

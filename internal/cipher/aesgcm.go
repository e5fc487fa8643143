package cipher

import (
	stdaes "crypto/aes"
	stdcipher "crypto/cipher"
	"fmt"
)

// NewAESGCM builds the hardware-accelerated cipher path: AES-256-GCM over
// the channel's 32-byte shared secret, used when the runtime CPU reports
// AES-NI / ARMv8 AES support (see HardwareConfig in chooser.go).
func NewAESGCM(sharedSecret [32]byte) (AEAD, error) {
	block, err := stdaes.NewCipher(sharedSecret[:])
	if err != nil {
		return nil, fmt.Errorf("cipher: aes-gcm key setup: %w", err)
	}
	gcm, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: aes-gcm init: %w", err)
	}
	return newStdAEAD(gcm), nil
}

// Package keyvault protects the process's local at-rest key material —
// the caller's own long-lived keypair and any known channel shared
// secrets — behind a pluggable KeyManager, so plaintext secrets never
// touch disk outside dev mode.
package keyvault

import "context"

// KeyManager abstracts an external key-wrapping service. Implementations
// must never expose plaintext master keys and must perform the actual
// wrap/unwrap operation inside the KMS (e.g. via KMIP, a cloud KMS, or
// Vault Transit).
//
// Current implementations:
//   - KMIP (github.com/ovh/kmip-go): see kmipmanager.go.
//   - Transparent (no wrapping, dev/test only): see transparent.go.
type KeyManager interface {
	// Provider returns a short identifier (e.g. "kmip") for diagnostics.
	Provider() string

	// WrapKey encrypts plaintext (a shared secret or identity key) and
	// returns an envelope suitable for persisting to the local vault file.
	WrapKey(ctx context.Context, plaintext []byte, metadata map[string]string) (*Envelope, error)

	// UnwrapKey decrypts the ciphertext in envelope back to plaintext.
	UnwrapKey(ctx context.Context, envelope *Envelope, metadata map[string]string) ([]byte, error)

	// HealthCheck verifies the KMS is reachable without performing an
	// actual wrap/unwrap. Used by the admin API's readiness endpoint.
	HealthCheck(ctx context.Context) error

	// Close releases underlying resources (connections, sessions).
	Close(ctx context.Context) error
}

// Envelope captures what is needed to unwrap a protected key.
type Envelope struct {
	KeyID      string
	Provider   string
	Ciphertext []byte
}

// MetaPurpose records what kind of secret an envelope protects, so a
// vault file can mix channel secrets and the identity key.
const MetaPurpose = "ledgerchat-purpose"

const (
	PurposeChannelSecret = "channel-shared-secret"
	PurposeIdentityKey   = "identity-key"
)

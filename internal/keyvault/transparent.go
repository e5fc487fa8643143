package keyvault

import "context"

// transparentManager performs no wrapping — it is the dev/test
// KeyManager, so local development and unit tests don't require a KMIP
// server. It must never be selected outside dev/test: config.Load
// rejects a config whose key_manager.provider is "" or "transparent"
// unless CHANNELD_DEV_MODE=true is set.
type transparentManager struct{}

// NewTransparent returns a KeyManager that stores plaintext verbatim in
// the envelope. Dev/test only.
func NewTransparent() KeyManager {
	return transparentManager{}
}

func (transparentManager) Provider() string { return "transparent" }

func (transparentManager) WrapKey(_ context.Context, plaintext []byte, _ map[string]string) (*Envelope, error) {
	ciphertext := make([]byte, len(plaintext))
	copy(ciphertext, plaintext)
	return &Envelope{KeyID: "transparent", Provider: "transparent", Ciphertext: ciphertext}, nil
}

func (transparentManager) UnwrapKey(_ context.Context, envelope *Envelope, _ map[string]string) ([]byte, error) {
	plaintext := make([]byte, len(envelope.Ciphertext))
	copy(plaintext, envelope.Ciphertext)
	return plaintext, nil
}

func (transparentManager) HealthCheck(context.Context) error { return nil }

func (transparentManager) Close(context.Context) error { return nil }

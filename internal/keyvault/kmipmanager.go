package keyvault

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/ovh/kmip-go/kmipclient"
)

// KeyReference names one wrapping key known to the KMIP server.
type KeyReference struct {
	ID      string
	Version int
}

// KMIPOptions configures a KMIP-backed KeyManager.
type KMIPOptions struct {
	Endpoint  string
	Keys      []KeyReference
	TLSConfig *tls.Config
	Timeout   time.Duration
	Provider  string
}

// kmipManager implements KeyManager by delegating wrap/unwrap to a KMIP
// server's Encrypt/Decrypt operations against a configured wrapping key.
type kmipManager struct {
	client   *kmipclient.Client
	endpoint string
	provider string
	timeout  time.Duration

	mu       sync.RWMutex
	activeID string
}

// NewKMIPManager dials a KMIP server and returns a KeyManager that wraps
// local secrets via its Encrypt/Decrypt operations.
func NewKMIPManager(opts KMIPOptions) (KeyManager, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("keyvault: at least one KMIP key reference is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	provider := opts.Provider
	if provider == "" {
		provider = "kmip"
	}

	dialOpts := []kmipclient.Option{}
	if opts.TLSConfig != nil {
		dialOpts = append(dialOpts, kmipclient.WithTlsConfig(opts.TLSConfig))
	}
	client, err := kmipclient.Dial(opts.Endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("keyvault: dial kmip server %s: %w", opts.Endpoint, err)
	}

	return &kmipManager{
		client:   client,
		endpoint: opts.Endpoint,
		provider: provider,
		timeout:  opts.Timeout,
		activeID: opts.Keys[0].ID,
	}, nil
}

func (m *kmipManager) Provider() string { return m.provider }

func (m *kmipManager) WrapKey(ctx context.Context, plaintext []byte, metadata map[string]string) (*Envelope, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("keyvault: refusing to wrap empty plaintext")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.RLock()
	keyID := m.activeID
	m.mu.RUnlock()

	resp, err := m.client.Encrypt(keyID).Data(plaintext).ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("keyvault: kmip encrypt: %w", err)
	}

	return &Envelope{KeyID: keyID, Provider: m.provider, Ciphertext: resp.Data}, nil
}

func (m *kmipManager) UnwrapKey(ctx context.Context, envelope *Envelope, metadata map[string]string) ([]byte, error) {
	keyID := envelope.KeyID
	if keyID == "" {
		m.mu.RLock()
		keyID = m.activeID
		m.mu.RUnlock()
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.Decrypt(keyID).Data(envelope.Ciphertext).ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("keyvault: kmip decrypt: %w", err)
	}

	return resp.Data, nil
}

func (m *kmipManager) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.RLock()
	keyID := m.activeID
	m.mu.RUnlock()

	if _, err := m.client.Get(keyID).ExecContext(ctx); err != nil {
		return fmt.Errorf("keyvault: kmip health check: %w", err)
	}
	return nil
}

func (m *kmipManager) Close(context.Context) error {
	return m.client.Close()
}

package keyvault

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// entryFile is the on-disk shape of one wrapped secret, base64-encoding
// the envelope's ciphertext for a human-diffable YAML file.
type entryFile struct {
	KeyID      string `yaml:"key_id"`
	Provider   string `yaml:"provider"`
	Ciphertext string `yaml:"ciphertext"`
}

type vaultFile struct {
	IdentityKey *entryFile            `yaml:"identity_key,omitempty"`
	Channels    map[string]*entryFile `yaml:"channels,omitempty"` // keyed by caller-chosen channel label
}

// Vault is a local at-rest cache of wrapped secrets, unwrapped on demand
// through a KeyManager and optionally hot-reloaded on file change.
type Vault struct {
	mu      sync.RWMutex
	path    string
	manager KeyManager
	data    vaultFile
	watcher *fsnotify.Watcher
}

// Open loads path (creating an empty vault file if absent) and begins
// watching it for external edits via fsnotify, so a secret added by an
// operator tool shows up without a restart.
func Open(path string, manager KeyManager) (*Vault, error) {
	v := &Vault{path: path, manager: manager, data: vaultFile{Channels: map[string]*entryFile{}}}

	if err := v.reload(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("keyvault: load %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("keyvault: create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		// A not-yet-created vault file can't be watched; the caller's
		// first Put call will create and persist it.
		_ = watcher.Close()
		watcher = nil
	}
	v.watcher = watcher

	if watcher != nil {
		go v.watchLoop()
	}

	return v, nil
}

func (v *Vault) watchLoop() {
	for event := range v.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
			_ = v.reload()
		}
	}
}

func (v *Vault) reload() error {
	raw, err := os.ReadFile(v.path)
	if err != nil {
		return err
	}
	var parsed vaultFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("keyvault: parse %s: %w", v.path, err)
	}
	if parsed.Channels == nil {
		parsed.Channels = map[string]*entryFile{}
	}

	v.mu.Lock()
	v.data = parsed
	v.mu.Unlock()
	return nil
}

func (v *Vault) persist() error {
	out, err := yaml.Marshal(v.data)
	if err != nil {
		return fmt.Errorf("keyvault: marshal vault: %w", err)
	}
	return os.WriteFile(v.path, out, 0o600)
}

// PutChannelSecret wraps and stores the shared secret for channel label.
func (v *Vault) PutChannelSecret(ctx context.Context, label string, secret [32]byte) error {
	env, err := v.manager.WrapKey(ctx, secret[:], map[string]string{MetaPurpose: PurposeChannelSecret})
	if err != nil {
		return fmt.Errorf("keyvault: wrap channel secret %q: %w", label, err)
	}

	v.mu.Lock()
	v.data.Channels[label] = toEntry(env)
	err = v.persist()
	v.mu.Unlock()
	return err
}

// ChannelSecret unwraps and returns the shared secret for channel label.
func (v *Vault) ChannelSecret(ctx context.Context, label string) ([32]byte, error) {
	v.mu.RLock()
	entry, ok := v.data.Channels[label]
	v.mu.RUnlock()
	if !ok {
		return [32]byte{}, fmt.Errorf("keyvault: no secret stored for channel %q", label)
	}

	env, err := fromEntry(entry)
	if err != nil {
		return [32]byte{}, err
	}

	plaintext, err := v.manager.UnwrapKey(ctx, env, map[string]string{MetaPurpose: PurposeChannelSecret})
	if err != nil {
		return [32]byte{}, fmt.Errorf("keyvault: unwrap channel secret %q: %w", label, err)
	}
	if len(plaintext) != 32 {
		return [32]byte{}, fmt.Errorf("keyvault: unwrapped secret for %q has length %d, want 32", label, len(plaintext))
	}

	var out [32]byte
	copy(out[:], plaintext)
	return out, nil
}

// Close stops the file watcher and the underlying KeyManager.
func (v *Vault) Close(ctx context.Context) error {
	if v.watcher != nil {
		_ = v.watcher.Close()
	}
	return v.manager.Close(ctx)
}

func toEntry(env *Envelope) *entryFile {
	return &entryFile{
		KeyID:      env.KeyID,
		Provider:   env.Provider,
		Ciphertext: base64.StdEncoding.EncodeToString(env.Ciphertext),
	}
}

func fromEntry(e *entryFile) (*Envelope, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(e.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("keyvault: decode stored ciphertext: %w", err)
	}
	return &Envelope{KeyID: e.KeyID, Provider: e.Provider, Ciphertext: ciphertext}, nil
}

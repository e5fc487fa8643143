package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// devModeEnv, set to "true", is the only way to load a config whose
// key_manager.provider selects the transparent (no-op) KeyManager: it
// stores channel secrets and the vault's own keypair unwrapped, so
// outside dev/test it must be rejected rather than silently honored.
const devModeEnv = "CHANNELD_DEV_MODE"

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := validateKeyManager(cfg.KeyManager); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateKeyManager(cfg KeyManagerConfig) error {
	if cfg.Provider == "" || cfg.Provider == "transparent" {
		if os.Getenv(devModeEnv) != "true" {
			return fmt.Errorf("config: key_manager.provider %q is not permitted unless %s=true", cfg.Provider, devModeEnv)
		}
	}
	return nil
}

// Watcher hot-reloads a config file on change, the same fsnotify idiom
// the keyvault package uses for its vault file.
type Watcher struct {
	mu      sync.RWMutex
	path    string
	current *Config
	watcher *fsnotify.Watcher
	onError func(error)
}

// WatchFile loads path once and begins watching it for external edits.
// onError, if non-nil, is called with any reload error; a failed reload
// leaves the previously loaded config in place.
func WatchFile(path string, onError func(error)) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	w := &Watcher{path: path, current: cfg, watcher: fw, onError: onError}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for event := range w.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		cfg, err := Load(w.path)
		if err != nil {
			if w.onError != nil {
				w.onError(err)
			}
			continue
		}
		w.mu.Lock()
		w.current = cfg
		w.mu.Unlock()
	}
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops watching the file.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

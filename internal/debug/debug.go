// Package debug holds the process-wide debug-logging toggle, settable
// from the environment before main runs so it also takes effect in
// tests that never parse flags.
package debug

import (
	"os"
	"sync"
)

var (
	enabled bool
	mu      sync.RWMutex
)

func init() {
	InitFromEnv()
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled sets whether debug logging is enabled.
func SetEnabled(value bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = value
}

// InitFromEnv initializes the toggle from CHANNELD_DEBUG=true or
// CHANNELD_LOG_LEVEL=debug, the same env-var naming scheme as the
// CHANNELD_DEV_MODE gate in package config.
func InitFromEnv() {
	if os.Getenv("CHANNELD_DEBUG") == "true" {
		SetEnabled(true)
		return
	}
	if os.Getenv("CHANNELD_LOG_LEVEL") == "debug" {
		SetEnabled(true)
		return
	}
	SetEnabled(false)
}

// InitFromLogLevel sets the toggle from a log level string, unless one
// of the environment variables already decided it.
func InitFromLogLevel(logLevel string) {
	if os.Getenv("CHANNELD_DEBUG") == "" && os.Getenv("CHANNELD_LOG_LEVEL") == "" {
		SetEnabled(logLevel == "debug")
	}
}

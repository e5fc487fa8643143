package cipher

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// HardwareConfig holds per-architecture opt-in flags layered on top of
// actual CPU support, so an operator can force the software path even
// on capable hardware.
type HardwareConfig struct {
	EnableAESNI    bool
	EnableARMv8AES bool
}

// HasAESHardwareSupport reports whether the running CPU has a hardware
// AES path.
func HasAESHardwareSupport() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	case "s390x":
		return cpu.S390X.HasAES
	default:
		return false
	}
}

// hardwareAccelerationEnabled reports whether hardware AES is both
// supported by the CPU and enabled by configuration.
func hardwareAccelerationEnabled(cfg HardwareConfig) bool {
	if !HasAESHardwareSupport() {
		return false
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		return cfg.EnableAESNI
	case "arm64":
		return cfg.EnableARMv8AES
	default:
		return true
	}
}

// Select builds the channel's AEAD using AES-256-GCM when hardware
// acceleration is available and enabled, falling back to
// ChaCha20-Poly1305 otherwise. This is the channel engine's one point of
// cipher-primitive choice; everything above it only sees the AEAD
// interface.
func Select(sharedSecret [32]byte, cfg HardwareConfig) (AEAD, error) {
	if hardwareAccelerationEnabled(cfg) {
		return NewAESGCM(sharedSecret)
	}
	return NewChaCha20Poly1305(sharedSecret)
}

// Info reports hardware-acceleration diagnostics (CPU support, config
// flags, and whether the AES-GCM path is active) for logging.
func Info(cfg HardwareConfig) map[string]interface{} {
	return map[string]interface{}{
		"aes_hardware_support":         HasAESHardwareSupport(),
		"architecture":                 runtime.GOARCH,
		"goos":                         runtime.GOOS,
		"go_version":                   runtime.Version(),
		"aes_ni_enabled":               cfg.EnableAESNI,
		"armv8_aes_enabled":            cfg.EnableARMv8AES,
		"hardware_acceleration_active": hardwareAccelerationEnabled(cfg),
	}
}

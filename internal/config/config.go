// Package config decodes the channel engine's YAML configuration file:
// ledger backend selection, cipher hardware preferences, key manager
// wiring, audit sink configuration, and the set of channels this process
// participates in.
package config

import "time"

// LedgerBackend selects which ledgerstore.Store implementation backs
// every configured channel.
type LedgerBackend string

const (
	LedgerBackendRedis LedgerBackend = "redis"
	LedgerBackendS3    LedgerBackend = "s3"
)

// RedisConfig configures the redisledger backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// S3Config configures the s3ledger backend (region/credentials, plus an
// endpoint override for non-AWS providers).
type S3Config struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
	Provider  string `yaml:"provider"`
	Bucket    string `yaml:"bucket"`
}

// LedgerConfig picks and configures one backend.
type LedgerConfig struct {
	Backend LedgerBackend `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
	S3      S3Config      `yaml:"s3"`
}

// CipherConfig maps to cipher.HardwareConfig.
type CipherConfig struct {
	EnableAESNI    bool `yaml:"enable_aesni"`
	EnableARMv8AES bool `yaml:"enable_armv8_aes"`
}

// KMIPKeyRef names one wrapping key known to the KMIP server.
type KMIPKeyRef struct {
	ID      string `yaml:"id"`
	Version int    `yaml:"version"`
}

// KMIPConfig configures keyvault.NewKMIPManager.
type KMIPConfig struct {
	Endpoint       string       `yaml:"endpoint"`
	Keys           []KMIPKeyRef `yaml:"keys"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
}

// KeyManagerConfig selects the keyvault.KeyManager implementation.
// "transparent" (or an empty Provider) is rejected by Load unless
// CHANNELD_DEV_MODE=true is set in the environment.
type KeyManagerConfig struct {
	Provider string     `yaml:"provider"`
	KMIP     KMIPConfig `yaml:"kmip"`
}

// AuditSinkConfig configures where audit.Logger writes events.
type AuditSinkConfig struct {
	Type          string            `yaml:"type"` // "http", "file", "stdout"
	Endpoint      string            `yaml:"endpoint"`
	Headers       map[string]string `yaml:"headers"`
	FilePath      string            `yaml:"file_path"`
	BatchSize     int               `yaml:"batch_size"`
	FlushInterval time.Duration     `yaml:"flush_interval"`
	RetryCount    int               `yaml:"retry_count"`
	RetryBackoff  time.Duration     `yaml:"retry_backoff"`
}

// AuditConfig configures audit.NewLoggerFromConfig. Channel metadata
// keys are caller-supplied, not a fixed schema, so RedactMetadataGlobs
// matches glob patterns (e.g. "*secret*") rather than literal key
// names.
type AuditConfig struct {
	Enabled             bool            `yaml:"enabled"`
	MaxEvents           int             `yaml:"max_events"`
	RedactMetadataGlobs []string        `yaml:"redact_metadata_globs"`
	Sink                AuditSinkConfig `yaml:"sink"`
}

// ChannelConfig describes one channel this process participates in.
// Members are hex-encoded 32-byte correspondent public keys; SelfIndex
// is this process's position within Members as listed here, before the
// member set is sorted.
type ChannelConfig struct {
	Label     string   `yaml:"label"`
	Context   string   `yaml:"context"`
	Members   []string `yaml:"members"`
	SelfIndex int      `yaml:"self_index"`
}

// AdminAPIConfig configures the read-only introspection HTTP server.
type AdminAPIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// TracingConfig selects an OpenTelemetry span exporter.
type TracingConfig struct {
	Exporter       string `yaml:"exporter"` // "otlp", "stdout", "jaeger", "none"
	ServiceName    string `yaml:"service_name"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
}

// Config is the top-level shape of the engine's YAML config file.
type Config struct {
	Ledger     LedgerConfig     `yaml:"ledger"`
	Cipher     CipherConfig     `yaml:"cipher"`
	KeyManager KeyManagerConfig `yaml:"key_manager"`
	VaultPath  string           `yaml:"vault_path"`
	Audit      AuditConfig      `yaml:"audit"`
	Channels   []ChannelConfig  `yaml:"channels"`
	AdminAPI   AdminAPIConfig   `yaml:"admin_api"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

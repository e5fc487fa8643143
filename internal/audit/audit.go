package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ryanuber/go-glob"

	"github.com/ledgerchat/channelengine/internal/config"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeSend represents an outgoing message publish.
	EventTypeSend EventType = "send"
	// EventTypeReceive represents an incoming message read.
	EventTypeReceive EventType = "receive"
	// EventTypeAuthFailure represents a failed AEAD authentication on receive.
	EventTypeAuthFailure EventType = "auth_failure"
	// EventTypeNonceDiscovery represents a cursor-recovery probe run.
	EventTypeNonceDiscovery EventType = "nonce_discovery"
)

// AuditEvent represents a single audit log event, addressed by channel
// identifier and correspondent index rather than any flat namespace.
type AuditEvent struct {
	Timestamp          time.Time              `json:"timestamp"`
	EventType          EventType              `json:"event_type"`
	Operation          string                 `json:"operation"`
	ChannelID          string                 `json:"channel_id,omitempty"`
	CorrespondentIndex int                    `json:"correspondent_index,omitempty"`
	Nonce              uint32                 `json:"nonce,omitempty"`
	Success            bool                   `json:"success"`
	Error              string                 `json:"error,omitempty"`
	Duration           time.Duration          `json:"duration_ms"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log logs an audit event.
	Log(event *AuditEvent) error

	// LogSend logs an outgoing publish against a channel.
	LogSend(channelID string, correspondentIndex int, nonce uint32, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogReceive logs a successful inbound decrypt.
	LogReceive(channelID string, correspondentIndex int, nonce uint32, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogAuthFailure logs a failed AEAD authentication on receive.
	LogAuthFailure(channelID string, correspondentIndex int, nonce uint32, err error)

	// LogNonceDiscovery logs a cursor-recovery probe run.
	LogNonceDiscovery(channelID string, correspondentIndex int, probes int, success bool, err error, duration time.Duration)

	// GetEvents returns all audit events (for testing/querying).
	GetEvents() []*AuditEvent

	// Close closes the logger and its underlying writer.
	Close() error
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu         sync.Mutex
	events     []*AuditEvent
	maxEvents  int
	writer     EventWriter
	redactGlob []string
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *AuditEvent) error
}

// NewLogger creates a new audit logger.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction creates a new audit logger, redacting any
// metadata key matching one of the given glob patterns (e.g.
// "*secret*"). Channel metadata keys are caller-supplied, not a fixed
// set, so redaction matches patterns rather than literal names.
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactGlobs []string) Logger {
	if writer == nil {
		writer = &defaultWriter{}
	}

	return &auditLogger{
		events:     make([]*AuditEvent, 0, maxEvents),
		maxEvents:  maxEvents,
		writer:     writer,
		redactGlob: redactGlobs,
	}
}

// NewLoggerFromConfig creates a new audit logger from configuration.
func NewLoggerFromConfig(cfg config.AuditConfig) (Logger, error) {
	var writer EventWriter

	switch cfg.Sink.Type {
	case "http":
		writer = NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Headers)
	case "file":
		writer = NewFileSink(cfg.Sink.FilePath)
	case "stdout", "":
		writer = &StdoutSink{}
	default:
		return nil, fmt.Errorf("audit: unknown sink type: %s", cfg.Sink.Type)
	}

	if cfg.Sink.BatchSize > 0 || cfg.Sink.FlushInterval > 0 {
		writer = NewBatchSink(writer, cfg.Sink.BatchSize, cfg.Sink.FlushInterval, cfg.Sink.RetryCount, cfg.Sink.RetryBackoff)
	}

	return NewLoggerWithRedaction(cfg.MaxEvents, writer, cfg.RedactMetadataGlobs), nil
}

// Log logs an audit event.
func (l *auditLogger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		_ = l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return nil
}

// Close closes the logger and its underlying writer.
func (l *auditLogger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// redactMetadata replaces the value of any metadata key matching a
// configured glob pattern with a fixed placeholder.
func (l *auditLogger) redactMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(l.redactGlob) == 0 || len(metadata) == 0 {
		return metadata
	}

	needsRedaction := false
	for key := range metadata {
		for _, pattern := range l.redactGlob {
			if glob.Glob(pattern, key) {
				needsRedaction = true
				break
			}
		}
		if needsRedaction {
			break
		}
	}
	if !needsRedaction {
		return metadata
	}

	clone := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	for key := range clone {
		for _, pattern := range l.redactGlob {
			if glob.Glob(pattern, key) {
				clone[key] = "[REDACTED]"
				break
			}
		}
	}
	return clone
}

// LogSend logs an outgoing publish against a channel.
func (l *auditLogger) LogSend(channelID string, correspondentIndex int, nonce uint32, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:          time.Now(),
		EventType:          EventTypeSend,
		Operation:          "send",
		ChannelID:          channelID,
		CorrespondentIndex: correspondentIndex,
		Nonce:              nonce,
		Success:            success,
		Duration:           duration,
		Metadata:           l.redactMetadata(metadata),
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogReceive logs a successful inbound decrypt.
func (l *auditLogger) LogReceive(channelID string, correspondentIndex int, nonce uint32, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:          time.Now(),
		EventType:          EventTypeReceive,
		Operation:          "receive",
		ChannelID:          channelID,
		CorrespondentIndex: correspondentIndex,
		Nonce:              nonce,
		Success:            success,
		Duration:           duration,
		Metadata:           l.redactMetadata(metadata),
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogAuthFailure logs a failed AEAD authentication on receive.
func (l *auditLogger) LogAuthFailure(channelID string, correspondentIndex int, nonce uint32, err error) {
	event := &AuditEvent{
		Timestamp:          time.Now(),
		EventType:          EventTypeAuthFailure,
		Operation:          "auth_failure",
		ChannelID:          channelID,
		CorrespondentIndex: correspondentIndex,
		Nonce:              nonce,
		Success:            false,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogNonceDiscovery logs a cursor-recovery probe run.
func (l *auditLogger) LogNonceDiscovery(channelID string, correspondentIndex int, probes int, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp:          time.Now(),
		EventType:          EventTypeNonceDiscovery,
		Operation:          "nonce_discovery",
		ChannelID:          channelID,
		CorrespondentIndex: correspondentIndex,
		Success:            success,
		Duration:           duration,
		Metadata:           map[string]interface{}{"probes": probes},
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// GetEvents returns all audit events (for testing/querying).
func (l *auditLogger) GetEvents() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*AuditEvent, len(l.events))
	copy(events, l.events)
	return events
}

// defaultWriter is a default implementation that writes to stdout as JSON.
type defaultWriter struct{}

func (w *defaultWriter) WriteEvent(event *AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	fmt.Printf("%s\n", string(data))
	return nil
}

// Package telemetry wires a running Group's group.Observer callbacks
// into the ambient metrics and audit stack, keeping internal/group free
// of any dependency on Prometheus, logrus, or the audit log.
package telemetry

import (
	"fmt"
	"time"

	"github.com/ledgerchat/channelengine/internal/audit"
	"github.com/ledgerchat/channelengine/internal/group"
	"github.com/ledgerchat/channelengine/internal/metrics"
)

// Observer implements group.Observer, recording every callback as both a
// Prometheus metric and an audit event.
type Observer struct {
	ChannelID string
	Metrics   *metrics.Metrics
	Audit     audit.Logger

	discoveryStart time.Time
}

var _ group.Observer = (*Observer)(nil)

// OnSend is invoked after a chunk is successfully published.
func (o *Observer) OnSend(correspondentIndex int, nonce uint32, chunkCount int) {
	o.Metrics.RecordSend(o.ChannelID, "ok")
	o.Metrics.RecordChunkFragment(o.ChannelID, "send")
	o.Audit.LogSend(o.ChannelID, correspondentIndex, nonce, true, nil, 0, nil)
}

// OnReceive is invoked after a chunk is successfully decrypted.
func (o *Observer) OnReceive(correspondentIndex int, nonce uint32, blockTimestampMs uint64) {
	o.Metrics.RecordReceive(o.ChannelID, "ok")
	o.Metrics.RecordChunkFragment(o.ChannelID, "receive")
	o.Audit.LogReceive(o.ChannelID, correspondentIndex, nonce, true, nil, 0, map[string]interface{}{
		"block_timestamp_ms": blockTimestampMs,
	})
}

// OnAuthFailure is invoked when AEAD authentication fails on receive.
func (o *Observer) OnAuthFailure(correspondentIndex int, nonce uint32) {
	o.Metrics.RecordReceive(o.ChannelID, "auth_failure")
	o.Audit.LogAuthFailure(o.ChannelID, correspondentIndex, nonce, fmt.Errorf("aead authentication failed"))
}

// OnNonceDiscoveryProbe is invoked once a cursor-recovery probe run
// finishes, with the total number of ledger probes it issued.
func (o *Observer) OnNonceDiscoveryProbe(correspondentIndex int, probes int) {
	duration := time.Duration(0)
	if !o.discoveryStart.IsZero() {
		duration = time.Since(o.discoveryStart)
	}
	o.Metrics.RecordNonceDiscovery(o.ChannelID, probes, duration)
	o.Audit.LogNonceDiscovery(o.ChannelID, correspondentIndex, probes, true, nil, duration)
}

// Package message defines the plaintext value produced by the read path
// and consumed by the write path of the channel engine.
package message

// Cleartext is a decrypted (and, where applicable, reassembled) message
// together with the ledger block timestamp it was observed at.
// BlockTimestampMs == 0 means "unknown/not yet supplied".
type Cleartext struct {
	Bytes            []byte
	BlockTimestampMs uint64
}

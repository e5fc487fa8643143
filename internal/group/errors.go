package group

import "errors"

// Sentinel errors for the engine's failure classes. Each is
// errors.Is-compatible so callers can branch on failure class without
// parsing messages.
var (
	// ErrAuthFailure signals a tampered or undecryptable slot. Fatal for
	// the stream that hit it; the read cursor is left unadvanced.
	ErrAuthFailure = errors.New("group: authentication failed at slot")

	// ErrMessageTooLong signals a send whose payload would require more
	// than chunk.MaxChunks fragments. No publish occurs.
	ErrMessageTooLong = errors.New("group: message too long to chunk")

	// ErrCursorExhausted signals nonce discovery exhausting the 32-bit
	// nonce space without finding a free slot.
	ErrCursorExhausted = errors.New("group: nonce space exhausted")

	// ErrUnknownCorrespondent signals an operation referencing a
	// correspondent id outside the channel's member set.
	ErrUnknownCorrespondent = errors.New("group: unknown correspondent")
)

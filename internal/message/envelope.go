package message

import (
	"encoding/binary"
	"fmt"
)

// Kind is the 4-byte little-endian discriminant prefixing a structured
// message payload.
type Kind uint32

// KindText marks a UTF-8 text message; the body is the raw UTF-8 bytes.
const KindText Kind = 1

// Envelope is the optional typed inner format carried inside a channel
// payload: a Kind discriminant followed by the variant body. Kinds this
// build does not recognize still decode — Recognized reports false and
// the application layer drops them, so an older client skips newer
// message types instead of failing the stream.
type Envelope struct {
	Kind Kind
	Body []byte
}

// Recognized reports whether this build understands the envelope's Kind.
func (e Envelope) Recognized() bool {
	return e.Kind == KindText
}

// Text returns the body as UTF-8 text. Only valid for KindText.
func (e Envelope) Text() (string, bool) {
	if e.Kind != KindText {
		return "", false
	}
	return string(e.Body), true
}

// Encode serializes the envelope: 4 bytes little-endian Kind, then body.
func (e Envelope) Encode() []byte {
	out := make([]byte, 4+len(e.Body))
	binary.LittleEndian.PutUint32(out[:4], uint32(e.Kind))
	copy(out[4:], e.Body)
	return out
}

// EncodeText wraps a UTF-8 string as a KindText envelope's wire form.
func EncodeText(text string) []byte {
	return Envelope{Kind: KindText, Body: []byte(text)}.Encode()
}

// DecodeEnvelope parses a structured payload. Inputs shorter than the
// discriminant are malformed; an unknown discriminant is not an error.
func DecodeEnvelope(wire []byte) (Envelope, error) {
	if len(wire) < 4 {
		return Envelope{}, fmt.Errorf("message: envelope shorter than discriminant: %d bytes", len(wire))
	}
	body := make([]byte, len(wire)-4)
	copy(body, wire[4:])
	return Envelope{Kind: Kind(binary.LittleEndian.Uint32(wire[:4])), Body: body}, nil
}

package ragclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xxxsen/pdfchat/internal/sse"
)

type EnvelopeType string

const (
	TypeChunk EnvelopeType = "chunk"
	TypeError EnvelopeType = "error"
	TypeEnd   EnvelopeType = "end"
)

const EndEventName = "end"

// Envelope is the single event shape every stream is decoded into.
type Envelope struct {
	Type    EnvelopeType `json:"type"`
	Content string       `json:"content,omitempty"`
}

// Format names the wire format spoken by a backend stream endpoint.
type Format int

const (
	// FormatLegacy: unnamed events carry raw chunk text, a named "end" event terminates.
	FormatLegacy Format = iota
	// FormatEnvelope: unnamed events carry a JSON Envelope, a named "end" event terminates.
	FormatEnvelope
)

var (
	ErrMalformedEnvelope = errors.New("malformed stream envelope")
	errSkipEvent         = errors.New("skip event")
)

// Translate maps one raw SSE event onto an Envelope.
func Translate(format Format, ev sse.Event) (Envelope, error) {
	switch ev.Name {
	case EndEventName:
		return Envelope{Type: TypeEnd}, nil
	case "error":
		msg := ev.Data
		if msg == "" {
			msg = "stream error"
		}
		return Envelope{Type: TypeError, Content: msg}, nil
	case sse.DefaultEventName:
	default:
		return Envelope{}, errSkipEvent
	}
	if format == FormatLegacy {
		return Envelope{Type: TypeChunk, Content: ev.Data}, nil
	}
	var env Envelope
	if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	switch env.Type {
	case TypeChunk, TypeError, TypeEnd:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEnvelope, env.Type)
	}
}

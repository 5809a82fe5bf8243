package provider

import "fmt"

// DecodeError is malformed JSON inside an otherwise well-framed event. It is
// fatal for the stream: it indicates a wire-format incompatibility, unlike a
// well-formed payload of unknown shape, which becomes a NotSupported chunk.
type DecodeError struct {
	Payload string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid JSON in SSE data: %v", e.Cause)
	}
	return fmt.Sprintf("invalid JSON in SSE data: %q", e.Payload)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ProtocolError is a vendor contract breach, such as a delta referencing a
// content block that was never opened. It is fatal for the stream and never
// masked as a dropped event.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol violation: " + e.Reason
}

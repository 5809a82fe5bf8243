package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/chorus/messages"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// StreamChunk is the closed set of normalized chunks emitted by a provider.
// Implementations are the delta variants (Start, Text, Reasoning, ToolCall,
// End, Failed, Incomplete, NotSupported) and Done.
type StreamChunk interface {
	streamChunk()
}

// Delta marks the incremental chunk variants, as opposed to the terminal
// Done chunk.
type Delta interface {
	StreamChunk
	deltaChunk()
}

// Start signals that the vendor opened the turn. It is emitted only when
// StreamOptions.SendStart is set.
type Start struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Start) streamChunk() {}
func (Start) deltaChunk()  {}

// Text is one increment of output text.
type Text struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Text      string          `json:"text"`
}

func (Text) streamChunk() {}
func (Text) deltaChunk()  {}

// Reasoning is one increment of extended-thinking text. It is emitted only
// when StreamOptions.SendReasoning is set.
type Reasoning struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Text      string          `json:"text"`
}

func (Reasoning) streamChunk() {}
func (Reasoning) deltaChunk()  {}

// ToolCall is one increment of a tool call's argument JSON. Fragments are
// only valid JSON once fully concatenated; consumers must not parse them
// individually.
type ToolCall struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Fragment  string          `json:"fragment"`
}

func (ToolCall) streamChunk() {}
func (ToolCall) deltaChunk()  {}

// End signals that the vendor reported a stop reason for the turn. It is
// emitted only when StreamOptions.SendFinish is set and does not replace the
// Done chunk(s).
type End struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

func (End) streamChunk() {}
func (End) deltaChunk()  {}

// Failed carries a vendor-reported error event as "<type>: <message>". The
// chunk sequence ends immediately after a Failed delta.
type Failed struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Reason    string          `json:"reason"`
}

func (Failed) streamChunk() {}
func (Failed) deltaChunk()  {}

// Incomplete signals that the vendor ended the turn without completing it,
// for example by hitting an output-token ceiling.
type Incomplete struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Reason    string          `json:"reason"`
}

func (Incomplete) streamChunk() {}
func (Incomplete) deltaChunk()  {}

// NotSupported carries a well-formed vendor payload the adapter does not
// recognize, verbatim, so callers can detect protocol drift without the
// stream failing.
type NotSupported struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Raw       string          `json:"raw"`
}

func (NotSupported) streamChunk() {}
func (NotSupported) deltaChunk()  {}

// Error is an engine failure: a mid-stream transport error, a decode error,
// or a protocol violation. It is the error arm of the chunk sequence; the
// sequence ends immediately after it. Vendor-reported error events surface
// as Failed instead.
type Error struct {
	TurnID    uuid.UUID       `json:"turn_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Err       error           `json:"error"`
}

func (Error) streamChunk() {}

func (e Error) Error() string {
	return fmt.Sprintf("turn_id: %s, timestamp: %s, error: %v", e.TurnID, e.Timestamp, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements custom JSON marshaling for Error.
func (e Error) MarshalJSON() ([]byte, error) {
	result := []byte(`{}`)

	var err error
	result, err = sjson.SetBytes(result, "turn_id", e.TurnID.String())
	if err != nil {
		return nil, err
	}
	if !time.Time(e.Timestamp).IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", e.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}
	if e.Err != nil {
		result, err = sjson.SetBytes(result, "error", e.Err.Error())
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Error.
func (e *Error) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	turnID := gjson.GetBytes(data, "turn_id")
	if !turnID.Exists() {
		return fmt.Errorf("missing required field 'turn_id'")
	}
	if err := e.TurnID.UnmarshalText([]byte(turnID.String())); err != nil {
		return fmt.Errorf("invalid turn_id: %w", err)
	}
	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := e.Timestamp.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	if errMsg := gjson.GetBytes(data, "error"); errMsg.Exists() {
		e.Err = errors.New(errMsg.String())
	}
	return nil
}

// Done carries one finalized content item of the completed turn together
// with the turn's usage record. A turn with several content blocks produces
// several Done chunks, one per block, in the order the blocks were opened.
type Done struct {
	TurnID    uuid.UUID          `json:"turn_id"`
	Timestamp strfmt.DateTime    `json:"timestamp,omitempty"`
	Message   messages.Assistant `json:"message"`
}

func (Done) streamChunk() {}

// MarshalChunk serializes a chunk with a "type" discriminator, suitable for
// fan-out over a broker or persistence.
func MarshalChunk(chunk StreamChunk) ([]byte, error) {
	var tag string
	switch chunk.(type) {
	case Start:
		tag = "start"
	case Text:
		tag = "text"
	case Reasoning:
		tag = "reasoning"
	case ToolCall:
		tag = "tool_call"
	case End:
		tag = "end"
	case Error:
		tag = "error"
	case Failed:
		tag = "failed"
	case Incomplete:
		tag = "incomplete"
	case NotSupported:
		tag = "not_supported"
	case Done:
		tag = "done"
	default:
		return nil, fmt.Errorf("unknown chunk type: %T", chunk)
	}
	body, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chunk: %w", err)
	}
	return sjson.SetBytes(body, "type", tag)
}

// UnmarshalChunk deserializes a chunk previously produced by MarshalChunk.
func UnmarshalChunk(data []byte) (StreamChunk, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}
	tpe := gjson.GetBytes(data, "type")
	if !tpe.Exists() {
		return nil, fmt.Errorf("missing required field 'type'")
	}

	switch tpe.String() {
	case "start":
		return decodeChunk[Start](data)
	case "text":
		return decodeChunk[Text](data)
	case "reasoning":
		return decodeChunk[Reasoning](data)
	case "tool_call":
		return decodeChunk[ToolCall](data)
	case "end":
		return decodeChunk[End](data)
	case "error":
		return decodeChunk[Error](data)
	case "failed":
		return decodeChunk[Failed](data)
	case "incomplete":
		return decodeChunk[Incomplete](data)
	case "not_supported":
		return decodeChunk[NotSupported](data)
	case "done":
		return decodeChunk[Done](data)
	default:
		return nil, fmt.Errorf("chunk has an unknown type %q", tpe.String())
	}
}

func decodeChunk[T StreamChunk](data []byte) (StreamChunk, error) {
	var chunk T
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("invalid chunk: %w", err)
	}
	return chunk, nil
}

package anthropic

import (
	"github.com/casualjim/chorus/messages"
	"github.com/casualjim/chorus/provider"
	"github.com/tidwall/gjson"
)

// streamEvent is the closed set of events on the Anthropic messages wire.
// Payloads that are valid JSON but match no known shape decode into
// unsupportedEvent carrying the raw payload; they are never dropped.
type streamEvent interface {
	streamEvent()
}

type messageStartEvent struct {
	Usage *messages.Usage
}

type blockStartEvent struct {
	Index int
	Block accumulatedBlock
}

type blockDeltaEvent struct {
	Index int
	Delta blockDelta
}

type blockStopEvent struct {
	Index int
}

type messageDeltaEvent struct {
	StopReason string
	Usage      *messages.Usage
}

type messageStopEvent struct{}

type errorEvent struct {
	Type    string
	Message string
}

type unsupportedEvent struct {
	Raw string
}

func (messageStartEvent) streamEvent() {}
func (blockStartEvent) streamEvent()   {}
func (blockDeltaEvent) streamEvent()   {}
func (blockStopEvent) streamEvent()    {}
func (messageDeltaEvent) streamEvent() {}
func (messageStopEvent) streamEvent()  {}
func (errorEvent) streamEvent()        {}
func (unsupportedEvent) streamEvent()  {}

// blockDelta is the closed set of content_block_delta payloads.
type blockDelta interface {
	blockDelta()
}

type textDelta struct{ Text string }
type thinkingDelta struct{ Text string }
type signatureDelta struct{ Signature string }
type inputJSONDelta struct{ Partial string }

func (textDelta) blockDelta()      {}
func (thinkingDelta) blockDelta()  {}
func (signatureDelta) blockDelta() {}
func (inputJSONDelta) blockDelta() {}

// decodeEvent maps one frame's joined data payload to a stream event.
// Malformed JSON is a fatal *provider.DecodeError; well-formed JSON of
// unknown shape becomes unsupportedEvent.
func decodeEvent(data string) (streamEvent, error) {
	if !gjson.Valid(data) {
		return nil, &provider.DecodeError{Payload: data}
	}

	payload := gjson.Parse(data)
	switch payload.Get("type").String() {
	case "message_start":
		return messageStartEvent{Usage: decodeUsage(payload.Get("message.usage"))}, nil

	case "content_block_start":
		block, ok := decodeBlock(payload.Get("content_block"))
		if !ok {
			return unsupportedEvent{Raw: data}, nil
		}
		return blockStartEvent{
			Index: int(payload.Get("index").Int()),
			Block: block,
		}, nil

	case "content_block_delta":
		delta, ok := decodeDelta(payload.Get("delta"))
		if !ok {
			return unsupportedEvent{Raw: data}, nil
		}
		return blockDeltaEvent{
			Index: int(payload.Get("index").Int()),
			Delta: delta,
		}, nil

	case "content_block_stop":
		return blockStopEvent{Index: int(payload.Get("index").Int())}, nil

	case "message_delta":
		return messageDeltaEvent{
			StopReason: payload.Get("delta.stop_reason").String(),
			Usage:      decodeUsage(payload.Get("usage")),
		}, nil

	case "message_stop":
		return messageStopEvent{}, nil

	case "error":
		return errorEvent{
			Type:    payload.Get("error.type").String(),
			Message: payload.Get("error.message").String(),
		}, nil

	default:
		return unsupportedEvent{Raw: data}, nil
	}
}

func decodeBlock(cb gjson.Result) (accumulatedBlock, bool) {
	switch cb.Get("type").String() {
	case "text":
		return &textBlock{}, true
	case "thinking":
		// The wire sends an empty signature here; real signatures arrive in
		// signature_delta events.
		return &thinkingBlock{}, true
	case "redacted_thinking":
		// Complete at open, no deltas follow.
		return &redactedThinkingBlock{data: cb.Get("data").String()}, true
	case "tool_use":
		return &toolUseBlock{
			id:   cb.Get("id").String(),
			name: cb.Get("name").String(),
		}, true
	default:
		return nil, false
	}
}

func decodeDelta(d gjson.Result) (blockDelta, bool) {
	switch d.Get("type").String() {
	case "text_delta":
		return textDelta{Text: d.Get("text").String()}, true
	case "thinking_delta":
		return thinkingDelta{Text: d.Get("thinking").String()}, true
	case "signature_delta":
		return signatureDelta{Signature: d.Get("signature").String()}, true
	case "input_json_delta":
		return inputJSONDelta{Partial: d.Get("partial_json").String()}, true
	default:
		return nil, false
	}
}

func decodeUsage(u gjson.Result) *messages.Usage {
	if !u.Exists() {
		return nil
	}
	return &messages.Usage{
		InputTokens:  u.Get("input_tokens").Int(),
		OutputTokens: u.Get("output_tokens").Int(),
	}
}

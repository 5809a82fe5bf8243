package openai

import (
	"github.com/casualjim/chorus/messages"
	"github.com/casualjim/chorus/provider"
	"github.com/tidwall/gjson"
)

// streamEvent is the closed set of events on the responses wire. Progress
// bookkeeping events (output_item.added, content_part.done and friends)
// decode into progressEvent and produce no chunk; valid JSON of unknown
// shape becomes unsupportedEvent.
type streamEvent interface {
	streamEvent()
}

type createdEvent struct{}

type progressEvent struct{}

type textDeltaEvent struct {
	Delta string
}

type reasoningDeltaEvent struct {
	Delta string
}

type toolDeltaEvent struct {
	Delta string
}

type completedEvent struct {
	Output []outputItem
	Usage  *messages.Usage
}

type incompleteEvent struct {
	Reason string
}

type failedEvent struct {
	Code    string
	Message string
}

type unsupportedEvent struct {
	Raw string
}

func (createdEvent) streamEvent()        {}
func (progressEvent) streamEvent()       {}
func (textDeltaEvent) streamEvent()      {}
func (reasoningDeltaEvent) streamEvent() {}
func (toolDeltaEvent) streamEvent()      {}
func (completedEvent) streamEvent()      {}
func (incompleteEvent) streamEvent()     {}
func (failedEvent) streamEvent()         {}
func (unsupportedEvent) streamEvent()    {}

// outputItem is one finalized item from response.completed.
type outputItem struct {
	kind      string
	text      string
	callID    string
	name      string
	arguments string
}

func decodeEvent(data string) (streamEvent, error) {
	if !gjson.Valid(data) {
		return nil, &provider.DecodeError{Payload: data}
	}

	payload := gjson.Parse(data)
	switch payload.Get("type").String() {
	case "response.created":
		return createdEvent{}, nil

	case "response.in_progress",
		"response.output_item.added",
		"response.output_item.done",
		"response.content_part.added",
		"response.content_part.done",
		"response.output_text.done",
		"response.reasoning_summary_part.added",
		"response.reasoning_summary_part.done",
		"response.reasoning_summary_text.done",
		"response.function_call_arguments.done":
		return progressEvent{}, nil

	case "response.output_text.delta":
		return textDeltaEvent{Delta: payload.Get("delta").String()}, nil

	case "response.reasoning_summary_text.delta":
		return reasoningDeltaEvent{Delta: payload.Get("delta").String()}, nil

	case "response.function_call_arguments.delta":
		return toolDeltaEvent{Delta: payload.Get("delta").String()}, nil

	case "response.completed":
		return decodeCompleted(payload.Get("response")), nil

	case "response.incomplete":
		reason := payload.Get("response.incomplete_details.reason").String()
		if reason == "" {
			reason = "unknown"
		}
		return incompleteEvent{Reason: reason}, nil

	case "response.failed":
		return failedEvent{
			Code:    payload.Get("response.error.code").String(),
			Message: payload.Get("response.error.message").String(),
		}, nil

	case "error":
		return failedEvent{
			Code:    payload.Get("code").String(),
			Message: payload.Get("message").String(),
		}, nil

	default:
		return unsupportedEvent{Raw: data}, nil
	}
}

func decodeCompleted(response gjson.Result) completedEvent {
	var items []outputItem
	for _, out := range response.Get("output").Array() {
		switch out.Get("type").String() {
		case "message":
			for _, part := range out.Get("content").Array() {
				if part.Get("type").String() != "output_text" {
					continue
				}
				items = append(items, outputItem{kind: "text", text: part.Get("text").String()})
				break
			}
		case "reasoning":
			for _, part := range out.Get("summary").Array() {
				if part.Get("type").String() != "summary_text" {
					continue
				}
				items = append(items, outputItem{kind: "reasoning", text: part.Get("text").String()})
				break
			}
		case "function_call":
			items = append(items, outputItem{
				kind:      "function_call",
				callID:    out.Get("call_id").String(),
				name:      out.Get("name").String(),
				arguments: out.Get("arguments").String(),
			})
		}
	}

	return completedEvent{
		Output: items,
		Usage:  decodeUsage(response.Get("usage")),
	}
}

func decodeUsage(u gjson.Result) *messages.Usage {
	if !u.Exists() {
		return nil
	}
	return &messages.Usage{
		InputTokens:  u.Get("input_tokens").Int(),
		OutputTokens: u.Get("output_tokens").Int(),
		TotalTokens:  u.Get("total_tokens").Int(),
	}
}

func (i outputItem) content() (messages.ContentItem, bool) {
	switch i.kind {
	case "text":
		return messages.Text{Text: i.text}, true
	case "reasoning":
		return messages.Reasoning{Text: i.text}, true
	case "function_call":
		return messages.NewToolCall(i.callID, i.name, i.arguments), true
	default:
		return nil, false
	}
}

package messages

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ContentItem is the closed set of finalized content produced by a model
// turn. Implementations are Text, Reasoning, ToolCall, and Unsupported.
type ContentItem interface {
	contentItem()
}

// Text is plain model output text.
type Text struct {
	Text string `json:"text"`
	_    struct{}
}

func (Text) contentItem() {}

// Reasoning is extended-thinking output. Signature carries the vendor's
// integrity signature when one was streamed; redacted reasoning arrives as
// an opaque payload in Text with an empty signature.
type Reasoning struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
	_         struct{}
}

func (Reasoning) contentItem() {}

// ToolCall is a fully-assembled tool invocation. Input holds the complete
// argument object; it is only ever set to valid JSON.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
	_     struct{}
}

func (ToolCall) contentItem() {}

// Unsupported preserves a payload the engine could not map into any other
// content item, such as a tool-call argument fragment that never became
// valid JSON.
type Unsupported struct {
	Raw string `json:"raw"`
	_   struct{}
}

func (Unsupported) contentItem() {}

// Assistant is one finalized content item of a completed turn together with
// the turn's usage accounting. A turn that produced several content blocks
// finalizes into several Assistant values sharing the same Usage.
type Assistant struct {
	Content ContentItem `json:"content"`
	Usage   *Usage      `json:"usage,omitempty"`
	_       struct{}
}

// MarshalJSON implements json.Marshaler for Assistant, tagging the content
// item with its variant so it can round-trip.
func (a Assistant) MarshalJSON() ([]byte, error) {
	cj, err := MarshalContent(a.Content)
	if err != nil {
		return nil, err
	}
	result, err := sjson.SetRawBytes([]byte(`{}`), "content", cj)
	if err != nil {
		return nil, err
	}
	if a.Usage != nil {
		uj, err := json.Marshal(a.Usage)
		if err != nil {
			return nil, err
		}
		result, err = sjson.SetRawBytes(result, "usage", uj)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON implements json.Unmarshaler for Assistant.
func (a *Assistant) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	content := gjson.GetBytes(data, "content")
	if !content.Exists() {
		return fmt.Errorf("missing required field 'content'")
	}
	item, err := UnmarshalContent([]byte(content.Raw))
	if err != nil {
		return err
	}
	a.Content = item
	if usage := gjson.GetBytes(data, "usage"); usage.Exists() {
		a.Usage = &Usage{}
		if err := json.Unmarshal([]byte(usage.Raw), a.Usage); err != nil {
			return fmt.Errorf("invalid usage: %w", err)
		}
	}
	return nil
}

// MarshalContent serializes a content item with a "type" discriminator.
func MarshalContent(item ContentItem) ([]byte, error) {
	var tag string
	switch item.(type) {
	case Text:
		tag = "text"
	case Reasoning:
		tag = "reasoning"
	case ToolCall:
		tag = "tool_call"
	case Unsupported:
		tag = "unsupported"
	default:
		return nil, fmt.Errorf("unknown content item type: %T", item)
	}
	body, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "type", tag)
}

// UnmarshalContent deserializes a content item previously produced by
// MarshalContent, dispatching on the "type" discriminator.
func UnmarshalContent(data []byte) (ContentItem, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}
	tpe := gjson.GetBytes(data, "type")
	if !tpe.Exists() {
		return nil, fmt.Errorf("missing required field 'type'")
	}
	switch tpe.String() {
	case "text":
		var item Text
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("invalid text item: %w", err)
		}
		return item, nil
	case "reasoning":
		var item Reasoning
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("invalid reasoning item: %w", err)
		}
		return item, nil
	case "tool_call":
		var item ToolCall
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("invalid tool_call item: %w", err)
		}
		return item, nil
	case "unsupported":
		var item Unsupported
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("invalid unsupported item: %w", err)
		}
		return item, nil
	default:
		return nil, fmt.Errorf("content item has an unknown type %q", tpe.String())
	}
}

// NewToolCall builds a ToolCall from an accumulated argument fragment. An
// empty or blank fragment is treated as the empty object. A fragment that
// is not valid JSON yields an Unsupported item instead of an error: one
// unparseable tool call must not abort the rest of the turn.
func NewToolCall(id, name, fragment string) ContentItem {
	input := fragment
	if strings.TrimSpace(input) == "" {
		input = "{}"
	}
	if !gjson.Valid(input) {
		return Unsupported{Raw: fmt.Sprintf("invalid tool json: %s", fragment)}
	}
	return ToolCall{ID: id, Name: name, Input: json.RawMessage(input)}
}

package google

import (
	"github.com/casualjim/chorus/messages"
	"github.com/casualjim/chorus/provider"
	"github.com/tidwall/gjson"
)

// The generateContent stream repeats a single wrapper shape per event, so
// the wire model is one event kind plus the unsupported fallback.

type streamEvent interface {
	streamEvent()
}

type responseEvent struct {
	Candidates []candidate
	Usage      *messages.Usage
}

type unsupportedEvent struct {
	Raw string
}

func (responseEvent) streamEvent()    {}
func (unsupportedEvent) streamEvent() {}

type candidate struct {
	Parts        []part
	FinishReason string
}

// part is one content part of a candidate. Thought parts carry reasoning
// summaries and are excluded from the finalized text.
type part struct {
	Text         string
	Thought      bool
	FunctionCall *functionCall
}

type functionCall struct {
	Name string
	Args string
	Raw  string
}

func decodeEvent(data string) (streamEvent, error) {
	if !gjson.Valid(data) {
		return nil, &provider.DecodeError{Payload: data}
	}

	payload := gjson.Parse(data)
	if !payload.Get("candidates").Exists() && !payload.Get("usageMetadata").Exists() {
		return unsupportedEvent{Raw: data}, nil
	}

	event := responseEvent{Usage: decodeUsage(payload.Get("usageMetadata"))}
	for _, cand := range payload.Get("candidates").Array() {
		c := candidate{FinishReason: cand.Get("finishReason").String()}
		for _, p := range cand.Get("content.parts").Array() {
			item := part{
				Text:    p.Get("text").String(),
				Thought: p.Get("thought").Bool(),
			}
			if fc := p.Get("functionCall"); fc.Exists() {
				item.FunctionCall = &functionCall{
					Name: fc.Get("name").String(),
					Args: fc.Get("args").Raw,
					Raw:  fc.Raw,
				}
			}
			c.Parts = append(c.Parts, item)
		}
		event.Candidates = append(event.Candidates, c)
	}
	return event, nil
}

func decodeUsage(u gjson.Result) *messages.Usage {
	if !u.Exists() {
		return nil
	}
	return &messages.Usage{
		InputTokens:  u.Get("promptTokenCount").Int(),
		OutputTokens: u.Get("candidatesTokenCount").Int(),
		TotalTokens:  u.Get("totalTokenCount").Int(),
	}
}

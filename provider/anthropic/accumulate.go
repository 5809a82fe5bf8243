package anthropic

import (
	"fmt"
	"strings"

	"github.com/casualjim/chorus/messages"
	"github.com/casualjim/chorus/provider"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// accumulatedBlock collects one content block's deltas between its
// content_block_start and message_stop. Kinds are fixed at open; a delta of
// the wrong kind is a protocol violation.
type accumulatedBlock interface {
	apply(delta blockDelta) error
	finalize() messages.ContentItem
}

type textBlock struct {
	text strings.Builder
}

func (b *textBlock) apply(delta blockDelta) error {
	d, ok := delta.(textDelta)
	if !ok {
		return kindMismatch("text", delta)
	}
	b.text.WriteString(d.Text)
	return nil
}

func (b *textBlock) finalize() messages.ContentItem {
	return messages.Text{Text: b.text.String()}
}

type thinkingBlock struct {
	text      strings.Builder
	signature string
}

func (b *thinkingBlock) apply(delta blockDelta) error {
	switch d := delta.(type) {
	case thinkingDelta:
		b.text.WriteString(d.Text)
	case signatureDelta:
		b.signature = d.Signature
	default:
		return kindMismatch("thinking", delta)
	}
	return nil
}

func (b *thinkingBlock) finalize() messages.ContentItem {
	return messages.Reasoning{Text: b.text.String(), Signature: b.signature}
}

// redactedThinkingBlock is complete at open; the wire never sends deltas
// for it.
type redactedThinkingBlock struct {
	data string
}

func (b *redactedThinkingBlock) apply(delta blockDelta) error {
	return kindMismatch("redacted_thinking", delta)
}

func (b *redactedThinkingBlock) finalize() messages.ContentItem {
	return messages.Reasoning{Text: b.data}
}

type toolUseBlock struct {
	id    string
	name  string
	input strings.Builder
}

func (b *toolUseBlock) apply(delta blockDelta) error {
	d, ok := delta.(inputJSONDelta)
	if !ok {
		return kindMismatch("tool_use", delta)
	}
	b.input.WriteString(d.Partial)
	return nil
}

func (b *toolUseBlock) finalize() messages.ContentItem {
	return messages.NewToolCall(b.id, b.name, b.input.String())
}

func kindMismatch(kind string, delta blockDelta) error {
	return &provider.ProtocolError{
		Reason: fmt.Sprintf("%T delta for %s block", delta, kind),
	}
}

// streamState tracks the open and closed blocks of one message turn. Blocks
// finalize in opening order regardless of when they closed.
type streamState struct {
	blocks *orderedmap.OrderedMap[int, accumulatedBlock]
	usage  messages.Usage
}

func newStreamState() *streamState {
	return &streamState{
		blocks: orderedmap.New[int, accumulatedBlock](),
	}
}

func (s *streamState) open(index int, block accumulatedBlock) error {
	if _, present := s.blocks.Get(index); present {
		return &provider.ProtocolError{
			Reason: fmt.Sprintf("content block %d opened twice", index),
		}
	}
	s.blocks.Set(index, block)
	return nil
}

func (s *streamState) applyDelta(index int, delta blockDelta) error {
	block, present := s.blocks.Get(index)
	if !present {
		return &provider.ProtocolError{
			Reason: fmt.Sprintf("delta for content block %d before content_block_start", index),
		}
	}
	return block.apply(delta)
}

// addUsage folds a vendor usage report into the turn's record. The wire
// reports running totals (message_start carries input tokens, each
// message_delta the cumulative output count), so later values replace
// earlier ones.
func (s *streamState) addUsage(u *messages.Usage) {
	if u == nil {
		return
	}
	if u.InputTokens > 0 {
		s.usage.InputTokens = u.InputTokens
	}
	if u.OutputTokens > 0 {
		s.usage.OutputTokens = u.OutputTokens
	}
}

// finalize drains every accumulated block into content items in opening
// order, together with the turn's aggregated usage.
func (s *streamState) finalize() ([]messages.ContentItem, *messages.Usage) {
	items := make([]messages.ContentItem, 0, s.blocks.Len())
	for pair := s.blocks.Oldest(); pair != nil; pair = pair.Next() {
		items = append(items, pair.Value.finalize())
	}
	usage := s.usage
	return items, &usage
}

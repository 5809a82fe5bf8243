package chorus

import (
	"context"
	"errors"
	"fmt"

	"github.com/casualjim/chorus/internal/broker"
	"github.com/casualjim/chorus/messages"
	"github.com/casualjim/chorus/provider"
)

// Stream invokes the registered provider with the given name. Providers
// register themselves through provider.Add after construction.
func Stream(ctx context.Context, vendor string, completion provider.Completion) (<-chan provider.StreamChunk, error) {
	p, found := provider.Get(vendor)
	if !found {
		return nil, fmt.Errorf("no provider registered for %q (have %v)", vendor, provider.Names())
	}
	return p.StreamCompletion(ctx, completion)
}

// Collect drains a chunk sequence and returns the turn's finalized assistant
// messages. A Failed or Incomplete delta, or an Error chunk, surfaces as the
// returned error; deltas before it are discarded with the partial turn.
func Collect(ctx context.Context, chunks <-chan provider.StreamChunk) ([]messages.Assistant, error) {
	var collected []messages.Assistant
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return collected, nil
			}
			switch c := chunk.(type) {
			case provider.Done:
				collected = append(collected, c.Message)
			case provider.Error:
				return nil, c
			case provider.Failed:
				return nil, errors.New(c.Reason)
			case provider.Incomplete:
				return nil, fmt.Errorf("turn incomplete: %s", c.Reason)
			}
		}
	}
}

// Fanout republishes every chunk of a turn on the given topic while also
// collecting the finalized messages, so observers on the topic follow the
// stream live and the caller still gets the turn's result.
func Fanout(ctx context.Context, chunks <-chan provider.StreamChunk, topic broker.Topic) ([]messages.Assistant, error) {
	var collected []messages.Assistant
	var failure error
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return collected, failure
			}
			if err := topic.Publish(ctx, chunk); err != nil {
				return nil, fmt.Errorf("failed to publish chunk: %w", err)
			}
			switch c := chunk.(type) {
			case provider.Done:
				collected = append(collected, c.Message)
			case provider.Error:
				collected, failure = nil, c
			case provider.Failed:
				collected, failure = nil, errors.New(c.Reason)
			case provider.Incomplete:
				collected, failure = nil, fmt.Errorf("turn incomplete: %s", c.Reason)
			}
		}
	}
}

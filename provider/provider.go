package provider

import (
	"context"

	"github.com/casualjim/chorus/messages"
	"github.com/google/uuid"
)

// Provider is implemented by every vendor adapter. StreamCompletion opens a
// streaming connection for one turn and returns an ordered channel of
// normalized chunks. The channel is closed after exactly one terminal
// signal: the last Done chunk, a Failed delta, or natural exhaustion of the
// transport. Establishment failures (including an exhausted rate-limit retry
// budget) are returned as the error before any chunk is produced.
type Provider interface {
	// Name identifies the adapter, e.g. "anthropic".
	Name() string

	StreamCompletion(context.Context, Completion) (<-chan StreamChunk, error)
}

// Completer is implemented by adapters whose vendor supports a
// non-streaming completion call.
type Completer interface {
	Complete(context.Context, Completion) (*Response, error)
}

// Completion is the per-turn input to a provider. Body is the serialized
/// vendor request payload, built by the caller: request construction is out
// of the engine's scope and adapters pass Body through untouched apart from
// the stream-mode flag they are documented to set.
type Completion struct {
	// TurnID uniquely identifies this turn; chunks echo it. A zero value is
	// replaced by a fresh UUID.
	TurnID uuid.UUID

	// Model is the vendor model identifier; adapters that encode the model
	// in the URL (Google) read it from here.
	Model string

	// Body is the serialized vendor request body.
	Body []byte

	// Stream controls which optional chunks the normalizer emits.
	Stream StreamOptions

	_ struct{}
}

// StreamOptions is the caller's chunk inclusion policy. Chunks excluded by
// policy are dropped, not surfaced as NotSupported.
type StreamOptions struct {
	// SendStart emits a Start delta when the vendor opens the turn.
	SendStart bool

	// SendReasoning emits Reasoning deltas; when unset, reasoning output the
	// vendor streams is dropped.
	SendReasoning bool

	// SendFinish emits an End delta carrying the vendor's stop reason.
	SendFinish bool

	_ struct{}
}

// Response is a complete, non-streamed turn result: the finalized content
// items in vendor order and the turn's usage record.
type Response struct {
	Contents []messages.ContentItem
	Usage    *messages.Usage

	_ struct{}
}

package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/casualjim/chorus/messages"
	"github.com/casualjim/chorus/pkg/slogx"
	"github.com/casualjim/chorus/pkg/sse"
	"github.com/casualjim/chorus/pkg/uuidx"
	"github.com/casualjim/chorus/provider"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

const (
	// Name is the registry key for this adapter.
	Name = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
)

var (
	// WithAPIKey sets the bearer credential.
	WithAPIKey = opts.ForName[Provider, string]("apiKey")
	// WithBaseURL overrides the endpoint root.
	WithBaseURL = opts.ForName[Provider, string]("baseURL")
	// WithInstructions injects system instructions into every request body.
	WithInstructions = opts.ForName[Provider, string]("instructions")
	// WithTransport replaces the SSE transport, including its retry policy.
	WithTransport = opts.ForName[Provider, *sse.Transport]("transport")
)

// Provider streams OpenAI responses-API completions as normalized chunks.
// The responses wire is streaming only; there is no non-streaming call.
type Provider struct {
	apiKey       string
	baseURL      string
	instructions string
	transport    *sse.Transport
}

// New creates an OpenAI provider. A credential must be supplied through
// WithAPIKey or taken from the environment via FromEnv.
func New(options ...opts.Option[Provider]) (*Provider, error) {
	p := &Provider{
		baseURL: defaultBaseURL,
	}
	if err := opts.Apply(p, options); err != nil {
		return nil, err
	}
	if p.apiKey == "" {
		return nil, errors.New("openai: missing API key")
	}
	if p.transport == nil {
		transport, err := sse.New()
		if err != nil {
			return nil, err
		}
		p.transport = transport
	}
	return p, nil
}

// FromEnv creates a provider from OPENAI_API_KEY. Extra options apply on
// top.
func FromEnv(options ...opts.Option[Provider]) (*Provider, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("openai: OPENAI_API_KEY is not set")
	}
	return New(append([]opts.Option[Provider]{WithAPIKey(key)}, options...)...)
}

func (p *Provider) Name() string { return Name }

func (p *Provider) adapter() provider.Adapter {
	return provider.Adapter{
		Name:    Name,
		BaseURL: p.baseURL,
		Method:  http.MethodPost,
		Path:    func(string) string { return "responses" },
		Headers: p.headers,
	}
}

func (p *Provider) headers() http.Header {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+p.apiKey)
	return header
}

// StreamCompletion connects to the responses endpoint with stream mode on
// and normalizes the event stream. Responses are not persisted on the
// vendor side; every request sets store to false.
func (p *Provider) StreamCompletion(ctx context.Context, completion provider.Completion) (<-chan provider.StreamChunk, error) {
	if completion.TurnID == uuid.Nil {
		completion.TurnID = uuidx.New()
	}

	body, err := sjson.SetBytes(completion.Body, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("failed to set stream flag: %w", err)
	}
	body, err = sjson.SetBytes(body, "store", false)
	if err != nil {
		return nil, fmt.Errorf("failed to set store flag: %w", err)
	}
	if p.instructions != "" {
		body, err = sjson.SetBytes(body, "instructions", p.instructions)
		if err != nil {
			return nil, fmt.Errorf("failed to set instructions: %w", err)
		}
	}

	req, err := p.adapter().Request(completion.Model, body)
	if err != nil {
		return nil, err
	}

	events, err := p.transport.Connect(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan provider.StreamChunk, 10)
	go p.run(ctx, completion, events, chunks)
	return chunks, nil
}

func (p *Provider) run(ctx context.Context, completion provider.Completion, events <-chan sse.Event, chunks chan<- provider.StreamChunk) {
	defer close(chunks)

	emit := func(chunk provider.StreamChunk) bool {
		select {
		case <-ctx.Done():
			return false
		case chunks <- chunk:
			return true
		}
	}

	for ev := range events {
		if ev.Err != nil {
			emit(provider.Error{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Err:       ev.Err,
			})
			return
		}
		if ev.Frame.End {
			// [DONE] sentinel; response.completed already carried the
			// terminal chunks.
			return
		}

		event, err := decodeEvent(ev.Frame.Data)
		if err != nil {
			emit(provider.Error{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Err:       err,
			})
			return
		}

		switch e := event.(type) {
		case createdEvent:
			if completion.Stream.SendStart {
				if !emit(provider.Start{TurnID: completion.TurnID, Timestamp: strfmt.DateTime(time.Now())}) {
					return
				}
			}

		case progressEvent:
			// Bookkeeping only.

		case textDeltaEvent:
			if !emit(provider.Text{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Text:      e.Delta,
			}) {
				return
			}

		case reasoningDeltaEvent:
			if !completion.Stream.SendReasoning {
				continue
			}
			if !emit(provider.Reasoning{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Text:      e.Delta,
			}) {
				return
			}

		case toolDeltaEvent:
			if !emit(provider.ToolCall{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Fragment:  e.Delta,
			}) {
				return
			}

		case completedEvent:
			if completion.Stream.SendFinish {
				if !emit(provider.End{
					TurnID:    completion.TurnID,
					Timestamp: strfmt.DateTime(time.Now()),
					Reason:    "completed",
				}) {
					return
				}
			}
			items := make([]messages.ContentItem, 0, len(e.Output))
			for _, out := range e.Output {
				if item, ok := out.content(); ok {
					items = append(items, item)
				}
			}
			for _, item := range items {
				done := provider.Done{
					TurnID:    completion.TurnID,
					Timestamp: strfmt.DateTime(time.Now()),
					Message:   messages.Assistant{Content: item, Usage: e.Usage},
				}
				if !emit(done) {
					return
				}
			}
			return

		case incompleteEvent:
			emit(provider.Incomplete{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Reason:    e.Reason,
			})
			return

		case failedEvent:
			code := e.Code
			if code == "" {
				code = "unknown"
			}
			emit(provider.Failed{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Reason:    code + ": " + e.Message,
			})
			return

		case unsupportedEvent:
			slog.DebugContext(ctx, "unsupported event", slogx.Vendor(Name), slogx.Stringer("turn_id", completion.TurnID), slog.String("payload", e.Raw))
			if !emit(provider.NotSupported{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Raw:       e.Raw,
			}) {
				return
			}
		}
	}
}

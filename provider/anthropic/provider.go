package anthropic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
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
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// Name is the registry key for this adapter.
	Name = "anthropic"

	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
	oauthBeta      = "oauth-2025-04-20"
)

var (
	// WithAPIKey sets the x-api-key credential.
	WithAPIKey = opts.ForName[Provider, string]("apiKey")
	// WithBaseURL overrides the endpoint root, e.g. for a proxy or a test
	// server.
	WithBaseURL = opts.ForName[Provider, string]("baseURL")
	// WithOAuth switches authentication to a bearer token with the oauth
	// beta header instead of x-api-key.
	WithOAuth = opts.ForName[Provider, bool]("oauth")
	// WithTransport replaces the SSE transport, including its retry policy.
	WithTransport = opts.ForName[Provider, *sse.Transport]("transport")
)

// Provider streams Anthropic messages-API completions as normalized chunks.
type Provider struct {
	apiKey    string
	baseURL   string
	oauth     bool
	transport *sse.Transport
}

// New creates an Anthropic provider. A credential must be supplied through
// WithAPIKey or taken from the environment via FromEnv.
func New(options ...opts.Option[Provider]) (*Provider, error) {
	p := &Provider{
		baseURL: defaultBaseURL,
	}
	if err := opts.Apply(p, options); err != nil {
		return nil, err
	}
	if p.apiKey == "" {
		return nil, errors.New("anthropic: missing API key")
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

// FromEnv creates a provider from ANTHROPIC_API_KEY, or falls back to
// CLAUDE_CODE_API_KEY in OAuth mode. Extra options apply on top.
func FromEnv(options ...opts.Option[Provider]) (*Provider, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return New(append([]opts.Option[Provider]{WithAPIKey(key)}, options...)...)
	}
	if key := os.Getenv("CLAUDE_CODE_API_KEY"); key != "" {
		return New(append([]opts.Option[Provider]{WithAPIKey(key), WithOAuth(true)}, options...)...)
	}
	return nil, errors.New("anthropic: neither ANTHROPIC_API_KEY nor CLAUDE_CODE_API_KEY is set")
}

func (p *Provider) Name() string { return Name }

func (p *Provider) adapter() provider.Adapter {
	return provider.Adapter{
		Name:    Name,
		BaseURL: p.baseURL,
		Method:  http.MethodPost,
		Path:    func(string) string { return "messages" },
		Headers: p.headers,
	}
}

func (p *Provider) headers() http.Header {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Anthropic-Version", apiVersion)
	if p.oauth {
		header.Set("Authorization", "Bearer "+p.apiKey)
		header.Set("Anthropic-Beta", oauthBeta)
	} else {
		header.Set("X-Api-Key", p.apiKey)
	}
	return header
}

// StreamCompletion connects to the messages endpoint with stream mode on and
// normalizes the event stream. The returned channel closes after the last
// chunk; establishment failures, including an exhausted rate-limit retry
// budget, return an error instead.
func (p *Provider) StreamCompletion(ctx context.Context, completion provider.Completion) (<-chan provider.StreamChunk, error) {
	if completion.TurnID == uuid.Nil {
		completion.TurnID = uuidx.New()
	}

	body, err := sjson.SetBytes(completion.Body, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("failed to set stream flag: %w", err)
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
	fail := func(err error) {
		emit(provider.Error{
			TurnID:    completion.TurnID,
			Timestamp: strfmt.DateTime(time.Now()),
			Err:       err,
		})
	}

	state := newStreamState()
	for ev := range events {
		if ev.Err != nil {
			fail(ev.Err)
			return
		}
		if ev.Frame.End {
			continue
		}

		event, err := decodeEvent(ev.Frame.Data)
		if err != nil {
			fail(err)
			return
		}

		switch e := event.(type) {
		case messageStartEvent:
			state.addUsage(e.Usage)
			if completion.Stream.SendStart {
				if !emit(provider.Start{TurnID: completion.TurnID, Timestamp: strfmt.DateTime(time.Now())}) {
					return
				}
			}

		case blockStartEvent:
			if err := state.open(e.Index, e.Block); err != nil {
				fail(err)
				return
			}

		case blockDeltaEvent:
			if err := state.applyDelta(e.Index, e.Delta); err != nil {
				fail(err)
				return
			}
			if chunk := deltaChunk(completion, e.Delta); chunk != nil {
				if !emit(chunk) {
					return
				}
			}

		case blockStopEvent:
			// Blocks finalize at message_stop; nothing to emit here.

		case messageDeltaEvent:
			state.addUsage(e.Usage)
			if e.StopReason != "" && completion.Stream.SendFinish {
				if !emit(provider.End{
					TurnID:    completion.TurnID,
					Timestamp: strfmt.DateTime(time.Now()),
					Reason:    e.StopReason,
				}) {
					return
				}
			}

		case messageStopEvent:
			items, usage := state.finalize()
			for _, item := range items {
				done := provider.Done{
					TurnID:    completion.TurnID,
					Timestamp: strfmt.DateTime(time.Now()),
					Message:   messages.Assistant{Content: item, Usage: usage},
				}
				if !emit(done) {
					return
				}
			}
			return

		case errorEvent:
			emit(provider.Failed{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Reason:    e.Type + ": " + e.Message,
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

// deltaChunk maps one applied block delta to its outgoing chunk, or nil when
// the delta produces nothing, such as a signature or suppressed reasoning.
func deltaChunk(completion provider.Completion, delta blockDelta) provider.StreamChunk {
	switch d := delta.(type) {
	case textDelta:
		return provider.Text{
			TurnID:    completion.TurnID,
			Timestamp: strfmt.DateTime(time.Now()),
			Text:      d.Text,
		}
	case thinkingDelta:
		if !completion.Stream.SendReasoning {
			return nil
		}
		return provider.Reasoning{
			TurnID:    completion.TurnID,
			Timestamp: strfmt.DateTime(time.Now()),
			Text:      d.Text,
		}
	case inputJSONDelta:
		return provider.ToolCall{
			TurnID:    completion.TurnID,
			Timestamp: strfmt.DateTime(time.Now()),
			Fragment:  d.Partial,
		}
	default:
		return nil
	}
}

// Complete performs a non-streaming completion against the same endpoint.
func (p *Provider) Complete(ctx context.Context, completion provider.Completion) (*provider.Response, error) {
	body, err := sjson.DeleteBytes(completion.Body, "stream")
	if err != nil {
		return nil, fmt.Errorf("failed to clear stream flag: %w", err)
	}
	req, err := p.adapter().Request(completion.Model, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	hreq.Header = req.Header

	resp, err := http.DefaultClient.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &sse.StatusError{Code: resp.StatusCode, Body: string(payload)}
	}
	return decodeResponse(payload)
}

func decodeResponse(payload []byte) (*provider.Response, error) {
	if !gjson.ValidBytes(payload) {
		return nil, &provider.DecodeError{Payload: string(payload)}
	}
	doc := gjson.ParseBytes(payload)

	var contents []messages.ContentItem
	for _, cb := range doc.Get("content").Array() {
		switch cb.Get("type").String() {
		case "text":
			contents = append(contents, messages.Text{Text: cb.Get("text").String()})
		case "thinking":
			contents = append(contents, messages.Reasoning{
				Text:      cb.Get("thinking").String(),
				Signature: cb.Get("signature").String(),
			})
		case "redacted_thinking":
			contents = append(contents, messages.Reasoning{Text: cb.Get("data").String()})
		case "tool_use":
			contents = append(contents, messages.NewToolCall(
				cb.Get("id").String(),
				cb.Get("name").String(),
				cb.Get("input").Raw,
			))
		default:
			contents = append(contents, messages.Unsupported{Raw: cb.Raw})
		}
	}

	return &provider.Response{
		Contents: contents,
		Usage:    decodeUsage(doc.Get("usage")),
	}, nil
}

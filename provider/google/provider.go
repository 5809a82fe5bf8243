package google

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
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
)

const (
	// Name is the registry key for this adapter.
	Name = "google"

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

var (
	// WithAPIKey sets the x-goog-api-key credential.
	WithAPIKey = opts.ForName[Provider, string]("apiKey")
	// WithBaseURL overrides the endpoint root.
	WithBaseURL = opts.ForName[Provider, string]("baseURL")
	// WithTransport replaces the SSE transport, including its retry policy.
	WithTransport = opts.ForName[Provider, *sse.Transport]("transport")
)

// Provider streams Gemini generateContent completions as normalized chunks.
// Unlike the other vendors the model rides in the URL path and stream mode
// is a separate endpoint selected per call, so request bodies pass through
// byte for byte.
type Provider struct {
	apiKey    string
	baseURL   string
	transport *sse.Transport
}

// New creates a Google provider. A credential must be supplied through
// WithAPIKey or taken from the environment via FromEnv.
func New(options ...opts.Option[Provider]) (*Provider, error) {
	p := &Provider{
		baseURL: defaultBaseURL,
	}
	if err := opts.Apply(p, options); err != nil {
		return nil, err
	}
	if p.apiKey == "" {
		return nil, errors.New("google: missing API key")
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

// FromEnv creates a provider from GEMINI_API_KEY, or falls back to
// GOOGLE_API_KEY. Extra options apply on top.
func FromEnv(options ...opts.Option[Provider]) (*Provider, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return New(append([]opts.Option[Provider]{WithAPIKey(key)}, options...)...)
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		return New(append([]opts.Option[Provider]{WithAPIKey(key)}, options...)...)
	}
	return nil, errors.New("google: neither GEMINI_API_KEY nor GOOGLE_API_KEY is set")
}

func (p *Provider) Name() string { return Name }

func (p *Provider) adapter(stream bool) provider.Adapter {
	verb := "generateContent"
	if stream {
		verb = "streamGenerateContent"
	}
	a := provider.Adapter{
		Name:    Name,
		BaseURL: p.baseURL,
		Method:  http.MethodPost,
		Path: func(model string) string {
			return "models/" + model + ":" + verb
		},
		Headers: p.headers,
	}
	if stream {
		a.Query = func(string) url.Values {
			return url.Values{"alt": []string{"sse"}}
		}
	}
	return a
}

func (p *Provider) headers() http.Header {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("X-Goog-Api-Key", p.apiKey)
	return header
}

// StreamCompletion connects to the streamGenerateContent endpoint and
// normalizes the event stream. The stream ends with the first event whose
// candidate carries a finish reason.
func (p *Provider) StreamCompletion(ctx context.Context, completion provider.Completion) (<-chan provider.StreamChunk, error) {
	if completion.TurnID == uuid.Nil {
		completion.TurnID = uuidx.New()
	}

	req, err := p.adapter(true).Request(completion.Model, completion.Body)
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

	var started bool
	var usage *messages.Usage
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
			continue
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
		case responseEvent:
			if !started {
				started = true
				if completion.Stream.SendStart {
					if !emit(provider.Start{TurnID: completion.TurnID, Timestamp: strfmt.DateTime(time.Now())}) {
						return
					}
				}
			}
			if e.Usage != nil {
				usage = e.Usage
			}
			finished, ok := p.emitCandidates(completion, e, usage, emit)
			if !ok || finished {
				return
			}

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

// emitCandidates streams each candidate's parts as deltas and, when a
// candidate reports a finish reason, its finalized content as a Done chunk.
// It reports whether the turn finished and whether emission may continue.
func (p *Provider) emitCandidates(completion provider.Completion, event responseEvent, usage *messages.Usage, emit func(provider.StreamChunk) bool) (finished, ok bool) {
	for _, cand := range event.Candidates {
		for _, pt := range cand.Parts {
			switch {
			case pt.FunctionCall != nil:
				if !emit(provider.ToolCall{
					TurnID:    completion.TurnID,
					Timestamp: strfmt.DateTime(time.Now()),
					Fragment:  pt.FunctionCall.Raw,
				}) {
					return false, false
				}
			case pt.Thought:
				if !completion.Stream.SendReasoning {
					continue
				}
				if !emit(provider.Reasoning{
					TurnID:    completion.TurnID,
					Timestamp: strfmt.DateTime(time.Now()),
					Text:      pt.Text,
				}) {
					return false, false
				}
			case pt.Text != "":
				if !emit(provider.Text{
					TurnID:    completion.TurnID,
					Timestamp: strfmt.DateTime(time.Now()),
					Text:      pt.Text,
				}) {
					return false, false
				}
			}
		}

		if cand.FinishReason == "" {
			continue
		}
		if completion.Stream.SendFinish {
			if !emit(provider.End{
				TurnID:    completion.TurnID,
				Timestamp: strfmt.DateTime(time.Now()),
				Reason:    cand.FinishReason,
			}) {
				return false, false
			}
		}
		if !emit(provider.Done{
			TurnID:    completion.TurnID,
			Timestamp: strfmt.DateTime(time.Now()),
			Message: messages.Assistant{
				Content: finalContent(cand),
				Usage:   usage,
			},
		}) {
			return false, false
		}
		return true, true
	}
	return false, true
}

// finalContent picks the finishing candidate's content: the function call
// when one is present, otherwise its visible text parts joined together.
func finalContent(cand candidate) messages.ContentItem {
	for _, pt := range cand.Parts {
		if pt.FunctionCall != nil {
			return messages.NewToolCall("", pt.FunctionCall.Name, pt.FunctionCall.Args)
		}
	}
	var text strings.Builder
	for _, pt := range cand.Parts {
		if !pt.Thought {
			text.WriteString(pt.Text)
		}
	}
	return messages.Text{Text: text.String()}
}

// Complete performs a non-streaming generateContent call.
func (p *Provider) Complete(ctx context.Context, completion provider.Completion) (*provider.Response, error) {
	req, err := p.adapter(false).Request(completion.Model, completion.Body)
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

	event, err := decodeEvent(string(payload))
	if err != nil {
		return nil, err
	}
	response, ok := event.(responseEvent)
	if !ok {
		return nil, &provider.ProtocolError{Reason: "response has no candidates"}
	}

	var contents []messages.ContentItem
	for _, cand := range response.Candidates {
		for _, pt := range cand.Parts {
			switch {
			case pt.FunctionCall != nil:
				contents = append(contents, messages.NewToolCall("", pt.FunctionCall.Name, pt.FunctionCall.Args))
			case pt.Text != "":
				if pt.Thought {
					contents = append(contents, messages.Reasoning{Text: pt.Text})
				} else {
					contents = append(contents, messages.Text{Text: pt.Text})
				}
			}
		}
	}

	return &provider.Response{
		Contents: contents,
		Usage:    response.Usage,
	}, nil
}

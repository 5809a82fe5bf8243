package sse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/casualjim/chorus/pkg/slogx"
	"github.com/fogfish/opts"
)

const (
	// DefaultMaxAttempts bounds how many establishment attempts are made
	// when the endpoint keeps rate limiting before the failure is surfaced.
	DefaultMaxAttempts = 5

	// DefaultBackoff is the first retry wait; it doubles on every attempt.
	DefaultBackoff = time.Second

	// Limit on how much of an error response body is retained.
	maxErrorBodyBytes = 1 << 20

	eventBufferSize = 10
)

// Request describes one streaming establishment attempt. All fields are
// supplied by the vendor adapter; the transport adds nothing but the SSE
// accept header.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
	Body   []byte

	_ struct{}
}

// StatusError is a non-2xx establishment response. It carries the status
// code and the response body text, surfaced before any frames are produced.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Transport establishes SSE connections with bounded retry on rate limits.
type Transport struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error
}

var (
	// WithHTTPClient overrides the HTTP client used for establishment.
	WithHTTPClient = opts.ForName[Transport, *http.Client]("client")
	// WithMaxAttempts overrides the rate-limit attempt budget.
	WithMaxAttempts = opts.ForName[Transport, int]("attempts")
	// WithBackoff overrides the initial backoff interval.
	WithBackoff = opts.ForName[Transport, time.Duration]("backoff")
	// WithSleep replaces the backoff sleeper, mainly so tests can record
	// wait durations instead of spending them.
	WithSleep = opts.ForName[Transport, func(context.Context, time.Duration) error]("sleep")
)

// New creates a Transport with the default client, retry budget, and
// backoff, then applies the provided options.
func New(options ...opts.Option[Transport]) (*Transport, error) {
	t := &Transport{
		client:   http.DefaultClient,
		attempts: DefaultMaxAttempts,
		backoff:  DefaultBackoff,
		sleep:    sleepContext,
	}
	if err := opts.Apply(t, options); err != nil {
		return nil, err
	}
	return t, nil
}

// Connect performs the establishment handshake and, on success, starts a
// reader goroutine that decodes frames into the returned channel.
//
// An HTTP 429 is retried with exponential backoff (1, 2, 4, 8 seconds by
// default) until the attempt budget runs out. Any other failure, or an
// exhausted budget, is returned immediately. Once the stream is open no
// retries happen: a mid-stream failure is delivered as a final Event with
// Err set, and the channel is closed. Cancelling ctx stops the reader
// promptly.
func (t *Transport) Connect(ctx context.Context, req Request) (<-chan Event, error) {
	wait := t.backoff

	for attempt := 1; ; attempt++ {
		resp, err := t.establish(ctx, req)
		if err != nil {
			if isRateLimited(err) && attempt < t.attempts {
				slog.DebugContext(ctx, "rate limited, backing off",
					slog.Duration("wait", wait),
					slog.Int("attempt", attempt),
				)
				if serr := t.sleep(ctx, wait); serr != nil {
					return nil, serr
				}
				wait *= 2
				continue
			}
			return nil, err
		}

		events := make(chan Event, eventBufferSize)
		go readFrames(ctx, resp.Body, events)
		return events, nil
	}
}

func (t *Transport) establish(ctx context.Context, req Request) (*http.Response, error) {
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			hreq.Header.Add(key, value)
		}
	}
	if hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "text/event-stream")
	}
	if len(req.Query) > 0 {
		q := hreq.URL.Query()
		for key, values := range req.Query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		hreq.URL.RawQuery = q.Encode()
	}

	resp, err := t.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		if rerr != nil {
			body = []byte(fmt.Sprintf("<failed to read body: %v>", rerr))
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

func readFrames(ctx context.Context, body io.ReadCloser, events chan<- Event) {
	defer close(events)
	defer body.Close()

	dec := NewDecoder(body)
	for {
		frame, err := dec.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			// Cancellation surfaces as a read error on the response body;
			// the consumer is gone, so don't report it as a stream failure.
			if ctx.Err() != nil {
				return
			}
			slog.DebugContext(ctx, "stream read failed", slogx.Error(err))
			select {
			case events <- Event{Err: fmt.Errorf("stream read failed: %w", err)}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case events <- Event{Frame: frame}:
		case <-ctx.Done():
			return
		}
	}
}

func isRateLimited(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

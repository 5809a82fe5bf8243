package provider

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/casualjim/chorus/pkg/sse"
)

// Adapter describes the vendor-specific surface of one endpoint: where to
// connect and how to authenticate. One Adapter value per vendor replaces
// per-vendor builder glue; the streaming engine itself is shared.
type Adapter struct {
	// Name identifies the vendor, e.g. "anthropic".
	Name string

	// BaseURL is the endpoint root, e.g. "https://api.anthropic.com/v1".
	BaseURL string

	// Method is the HTTP method for completion calls, normally POST.
	Method string

	// Path returns the endpoint path for the given model. Most vendors
	// ignore the model here; Google encodes it in the path.
	Path func(model string) string

	// Headers builds the request headers, including authentication. It is
	// called per request so rotated credentials take effect.
	Headers func() http.Header

	// Query returns extra query parameters for the given model, or nil.
	Query func(model string) url.Values

	_ struct{}
}

// Request assembles the transport request for one turn.
func (a Adapter) Request(model string, body []byte) (sse.Request, error) {
	base, err := url.Parse(a.BaseURL)
	if err != nil {
		return sse.Request{}, fmt.Errorf("invalid base url %q: %w", a.BaseURL, err)
	}

	var path string
	if a.Path != nil {
		path = a.Path(model)
	}
	joined := *base
	joined.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(path, "/")

	req := sse.Request{
		Method: a.Method,
		URL:    joined.String(),
		Body:   body,
	}
	if a.Headers != nil {
		req.Header = a.Headers()
	}
	if a.Query != nil {
		req.Query = a.Query(model)
	}
	if req.Method == "" {
		req.Method = http.MethodPost
	}
	return req, nil
}

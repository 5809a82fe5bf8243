package provider

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterRequest(t *testing.T) {
	t.Parallel()

	adapter := Adapter{
		Name:    "testvendor",
		BaseURL: "https://api.example.com/v1",
		Path:    func(string) string { return "messages" },
		Headers: func() http.Header {
			h := make(http.Header)
			h.Set("X-Api-Key", "secret")
			return h
		},
	}

	req, err := adapter.Request("some-model", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://api.example.com/v1/messages", req.URL)
	assert.Equal(t, "secret", req.Header.Get("X-Api-Key"))
	assert.Equal(t, []byte(`{"a":1}`), req.Body)
	assert.Nil(t, req.Query)
}

func TestAdapterRequestModelInPath(t *testing.T) {
	t.Parallel()

	adapter := Adapter{
		Name:    "testvendor",
		BaseURL: "https://api.example.com/v1beta/",
		Path:    func(model string) string { return "models/" + model + ":streamGenerateContent" },
		Query: func(string) url.Values {
			return url.Values{"alt": []string{"sse"}}
		},
	}

	req, err := adapter.Request("gemini-2.5-pro", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1beta/models/gemini-2.5-pro:streamGenerateContent", req.URL)
	assert.Equal(t, "sse", req.Query.Get("alt"))
}

func TestAdapterRequestInvalidBaseURL(t *testing.T) {
	t.Parallel()

	adapter := Adapter{Name: "testvendor", BaseURL: "://nope"}
	_, err := adapter.Request("m", nil)
	require.Error(t, err)
}

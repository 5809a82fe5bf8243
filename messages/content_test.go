package messages

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMarshalContent(t *testing.T) {
	tests := []struct {
		name string
		item ContentItem
		want string
	}{
		{
			name: "text",
			item: Text{Text: "hello"},
			want: `{"text":"hello","type":"text"}`,
		},
		{
			name: "reasoning with signature",
			item: Reasoning{Text: "thinking...", Signature: "sig123"},
			want: `{"text":"thinking...","signature":"sig123","type":"reasoning"}`,
		},
		{
			name: "reasoning without signature",
			item: Reasoning{Text: "redacted-payload"},
			want: `{"text":"redacted-payload","type":"reasoning"}`,
		},
		{
			name: "tool call",
			item: ToolCall{ID: "t1", Name: "get_weather", Input: json.RawMessage(`{"city":"SF"}`)},
			want: `{"id":"t1","name":"get_weather","input":{"city":"SF"},"type":"tool_call"}`,
		},
		{
			name: "unsupported",
			item: Unsupported{Raw: "???"},
			want: `{"raw":"???","type":"unsupported"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalContent(tt.item)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestUnmarshalContent_RoundTrip(t *testing.T) {
	items := []ContentItem{
		Text{Text: "hello"},
		Reasoning{Text: "hmm", Signature: "abc"},
		ToolCall{ID: "t1", Name: "f", Input: json.RawMessage(`{"a":1}`)},
		Unsupported{Raw: "raw payload"},
	}

	for _, item := range items {
		data, err := MarshalContent(item)
		require.NoError(t, err)

		got, err := UnmarshalContent(data)
		require.NoError(t, err)

		switch want := item.(type) {
		case ToolCall:
			gotTC, ok := got.(ToolCall)
			require.True(t, ok)
			assert.Equal(t, want.ID, gotTC.ID)
			assert.Equal(t, want.Name, gotTC.Name)
			assert.JSONEq(t, string(want.Input), string(gotTC.Input))
		default:
			assert.Equal(t, item, got)
		}
	}
}

func TestUnmarshalContent_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid json", input: `{"type":`},
		{name: "missing type", input: `{"text":"hi"}`},
		{name: "unknown type", input: `{"type":"video"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalContent([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestNewToolCall(t *testing.T) {
	t.Run("valid json", func(t *testing.T) {
		item := NewToolCall("t1", "f", `{"a":1}`)
		tc, ok := item.(ToolCall)
		require.True(t, ok)
		assert.Equal(t, "t1", tc.ID)
		assert.Equal(t, "f", tc.Name)
		assert.JSONEq(t, `{"a":1}`, string(tc.Input))
	})

	t.Run("empty fragment becomes empty object", func(t *testing.T) {
		item := NewToolCall("t1", "f", "")
		tc, ok := item.(ToolCall)
		require.True(t, ok)
		assert.JSONEq(t, `{}`, string(tc.Input))
	})

	t.Run("blank fragment becomes empty object", func(t *testing.T) {
		item := NewToolCall("t1", "f", "  \n ")
		tc, ok := item.(ToolCall)
		require.True(t, ok)
		assert.JSONEq(t, `{}`, string(tc.Input))
	})

	t.Run("invalid json becomes unsupported", func(t *testing.T) {
		item := NewToolCall("t1", "f", `{"a":1`)
		unsupported, ok := item.(Unsupported)
		require.True(t, ok)
		assert.Contains(t, unsupported.Raw, `{"a":1`)
	})
}

func TestAssistant_JSON(t *testing.T) {
	a := Assistant{
		Content: Text{Text: "hello"},
		Usage:   &Usage{InputTokens: 10, OutputTokens: 5},
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.True(t, gjson.ValidBytes(data))
	assert.Equal(t, "text", gjson.GetBytes(data, "content.type").String())
	assert.Equal(t, int64(10), gjson.GetBytes(data, "usage.input_tokens").Int())

	var back Assistant
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a.Content, back.Content)
	require.NotNil(t, back.Usage)
	assert.Equal(t, int64(5), back.Usage.OutputTokens)
}

func TestAssistant_UnmarshalMissingContent(t *testing.T) {
	var a Assistant
	err := json.Unmarshal([]byte(`{"usage":{"input_tokens":1}}`), &a)
	assert.Error(t, err)
}

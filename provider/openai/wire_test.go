package openai

import (
	"testing"

	"github.com/casualjim/chorus/messages"
	"github.com/casualjim/chorus/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want streamEvent
	}{
		{
			name: "created",
			data: `{"type":"response.created","response":{"id":"resp_1"}}`,
			want: createdEvent{},
		},
		{
			name: "in progress is bookkeeping",
			data: `{"type":"response.in_progress"}`,
			want: progressEvent{},
		},
		{
			name: "output item added is bookkeeping",
			data: `{"type":"response.output_item.added","output_index":0}`,
			want: progressEvent{},
		},
		{
			name: "text delta",
			data: `{"type":"response.output_text.delta","delta":"Hel"}`,
			want: textDeltaEvent{Delta: "Hel"},
		},
		{
			name: "reasoning summary delta",
			data: `{"type":"response.reasoning_summary_text.delta","delta":"hmm"}`,
			want: reasoningDeltaEvent{Delta: "hmm"},
		},
		{
			name: "function call arguments delta",
			data: `{"type":"response.function_call_arguments.delta","delta":"{\"q\""}`,
			want: toolDeltaEvent{Delta: `{"q"`},
		},
		{
			name: "incomplete with reason",
			data: `{"type":"response.incomplete","response":{"incomplete_details":{"reason":"max_output_tokens"}}}`,
			want: incompleteEvent{Reason: "max_output_tokens"},
		},
		{
			name: "incomplete without reason",
			data: `{"type":"response.incomplete","response":{}}`,
			want: incompleteEvent{Reason: "unknown"},
		},
		{
			name: "failed",
			data: `{"type":"response.failed","response":{"error":{"code":"server_error","message":"boom"}}}`,
			want: failedEvent{Code: "server_error", Message: "boom"},
		},
		{
			name: "error",
			data: `{"type":"error","code":"rate_limit_exceeded","message":"slow down"}`,
			want: failedEvent{Code: "rate_limit_exceeded", Message: "slow down"},
		},
		{
			name: "unknown event",
			data: `{"type":"response.audio.delta","delta":"..."}`,
			want: unsupportedEvent{Raw: `{"type":"response.audio.delta","delta":"..."}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event, err := decodeEvent(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, event)
		})
	}
}

func TestDecodeEventCompleted(t *testing.T) {
	t.Parallel()

	event, err := decodeEvent(`{
		"type":"response.completed",
		"response":{
			"output":[
				{"type":"reasoning","summary":[{"type":"summary_text","text":"thought"}]},
				{"type":"message","content":[{"type":"output_text","text":"Hello"}]},
				{"type":"function_call","call_id":"call_1","name":"lookup","arguments":"{\"q\":\"go\"}"},
				{"type":"web_search_call","id":"ws_1"}
			],
			"usage":{"input_tokens":9,"output_tokens":21,"total_tokens":30}
		}
	}`)
	require.NoError(t, err)

	completed, ok := event.(completedEvent)
	require.True(t, ok)
	require.Len(t, completed.Output, 3)

	item, ok := completed.Output[0].content()
	require.True(t, ok)
	assert.Equal(t, messages.Reasoning{Text: "thought"}, item)

	item, ok = completed.Output[1].content()
	require.True(t, ok)
	assert.Equal(t, messages.Text{Text: "Hello"}, item)

	item, ok = completed.Output[2].content()
	require.True(t, ok)
	tool := item.(messages.ToolCall)
	assert.Equal(t, "call_1", tool.ID)
	assert.Equal(t, "lookup", tool.Name)
	assert.JSONEq(t, `{"q":"go"}`, string(tool.Input))

	require.NotNil(t, completed.Usage)
	assert.Equal(t, int64(30), completed.Usage.TotalTokens)
}

func TestDecodeEventInvalidJSON(t *testing.T) {
	t.Parallel()

	event, err := decodeEvent(`{"type":`)
	require.Nil(t, event)

	var decodeErr *provider.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

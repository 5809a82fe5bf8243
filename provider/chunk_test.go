package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/casualjim/chorus/messages"
	"github.com/casualjim/chorus/pkg/uuidx"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMarshalUnmarshalChunkRoundTrip(t *testing.T) {
	t.Parallel()

	turnID := uuidx.New()
	timestamp := strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond))

	tests := []struct {
		name  string
		chunk StreamChunk
		tag   string
	}{
		{
			name:  "start",
			chunk: Start{TurnID: turnID, Timestamp: timestamp},
			tag:   "start",
		},
		{
			name:  "text",
			chunk: Text{TurnID: turnID, Timestamp: timestamp, Text: "Hello"},
			tag:   "text",
		},
		{
			name:  "reasoning",
			chunk: Reasoning{TurnID: turnID, Timestamp: timestamp, Text: "hmm"},
			tag:   "reasoning",
		},
		{
			name:  "tool call",
			chunk: ToolCall{TurnID: turnID, Timestamp: timestamp, Fragment: `{"city":`},
			tag:   "tool_call",
		},
		{
			name:  "end",
			chunk: End{TurnID: turnID, Timestamp: timestamp, Reason: "end_turn"},
			tag:   "end",
		},
		{
			name:  "failed",
			chunk: Failed{TurnID: turnID, Timestamp: timestamp, Reason: "overloaded_error: Overloaded"},
			tag:   "failed",
		},
		{
			name:  "incomplete",
			chunk: Incomplete{TurnID: turnID, Timestamp: timestamp, Reason: "max_output_tokens"},
			tag:   "incomplete",
		},
		{
			name:  "not supported",
			chunk: NotSupported{TurnID: turnID, Timestamp: timestamp, Raw: `{"type":"ping"}`},
			tag:   "not_supported",
		},
		{
			name: "done",
			chunk: Done{
				TurnID:    turnID,
				Timestamp: timestamp,
				Message: messages.Assistant{
					Content: messages.Text{Text: "Hello, world"},
					Usage:   &messages.Usage{InputTokens: 3, OutputTokens: 9},
				},
			},
			tag: "done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := MarshalChunk(tt.chunk)
			require.NoError(t, err)
			assert.Equal(t, tt.tag, gjson.GetBytes(data, "type").String())
			assert.Equal(t, turnID.String(), gjson.GetBytes(data, "turn_id").String())

			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestMarshalChunkError(t *testing.T) {
	t.Parallel()

	turnID := uuidx.New()
	chunk := Error{TurnID: turnID, Err: errors.New("stream read failed")}

	data, err := MarshalChunk(chunk)
	require.NoError(t, err)
	assert.Equal(t, "error", gjson.GetBytes(data, "type").String())
	assert.Equal(t, "stream read failed", gjson.GetBytes(data, "error").String())

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	errChunk, ok := decoded.(Error)
	require.True(t, ok)
	assert.Equal(t, turnID, errChunk.TurnID)
	assert.EqualError(t, errChunk.Err, "stream read failed")
}

func TestErrorChunkUnwrap(t *testing.T) {
	t.Parallel()

	cause := &ProtocolError{Reason: "delta for content block 0 before content_block_start"}
	chunk := Error{TurnID: uuidx.New(), Err: cause}

	var protoErr *ProtocolError
	require.ErrorAs(t, chunk, &protoErr)
	assert.Contains(t, chunk.Error(), "protocol violation")
}

func TestUnmarshalChunkErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "invalid json", data: `{"type":`},
		{name: "missing type", data: `{"turn_id":"0198da3f-0000-7000-8000-000000000000"}`},
		{name: "unknown type", data: `{"type":"telemetry"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := UnmarshalChunk([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestDeltaMarkers(t *testing.T) {
	t.Parallel()

	deltas := []StreamChunk{Start{}, Text{}, Reasoning{}, ToolCall{}, End{}, Failed{}, Incomplete{}, NotSupported{}}
	for _, chunk := range deltas {
		_, ok := chunk.(Delta)
		assert.True(t, ok, "%T should be a delta", chunk)
	}

	_, ok := StreamChunk(Done{}).(Delta)
	assert.False(t, ok, "Done is terminal, not a delta")
	_, ok = StreamChunk(Error{}).(Delta)
	assert.False(t, ok, "Error is terminal, not a delta")
}

package wire

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

func jsonDelta(t *testing.T, index int, fragment string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"index": index,
		"delta": map[string]any{"type": "input_json_delta", "partial_json": fragment},
	})
	require.NoError(t, err)
	return b
}

func TestAnthropicToolUseArgumentsConcatenate(t *testing.T) {
	t.Parallel()

	cases := [][]string{
		{`{"path": "a.txt"}`},
		{`{"pa`, `th": "src/`, `main.go", "start_line"`, `: 3}`},
		{``, `{}`},
		{`{"content": "line1\nline2"`, `, "path": "x"}`},
	}

	for _, fragments := range cases {
		codec := DialectAnthropic.NewCodec()

		start := codec.Decode([]byte(`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"write_file","input":{}}}`))
		require.Equal(t, []chat.StreamEvent{chat.ToolCallDelta{Index: 1, ID: "toolu_1", Name: "write_file"}}, start)

		for _, f := range fragments {
			events := codec.Decode(jsonDelta(t, 1, f))
			require.Equal(t, []chat.StreamEvent{chat.ToolCallDelta{Index: 1, Arguments: f}}, events)
		}

		events := codec.Decode([]byte(`{"type":"content_block_stop","index":1}`))
		require.Len(t, events, 1)
		complete, ok := events[0].(chat.ToolCallComplete)
		require.True(t, ok)
		assert.Equal(t, "toolu_1", complete.ToolCall.ID)
		assert.Equal(t, "write_file", complete.ToolCall.Name)
		assert.Equal(t, strings.Join(fragments, ""), complete.ToolCall.Arguments)
	}
}

func TestAnthropicFullMessage(t *testing.T) {
	t.Parallel()

	payloads := []string{
		`{"type":"message_start","message":{"id":"msg_1","usage":{"input_tokens":25,"output_tokens":1}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"let me think"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"text","text":""}}`,
		`{"type":"ping"}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"Hello"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":" world"}}`,
		`{"type":"content_block_stop","index":1}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":12}}`,
		`{"type":"message_stop"}`,
	}

	codec := DialectAnthropic.NewCodec()
	var events []chat.StreamEvent
	for _, p := range payloads {
		events = append(events, codec.Decode([]byte(p))...)
	}

	assert.Equal(t, []chat.StreamEvent{
		chat.Usage{InputTokens: 25},
		chat.TextDelta{Text: "Hello"},
		chat.TextDelta{Text: " world"},
		chat.Usage{OutputTokens: 12},
		chat.Done{},
	}, events)
}

func TestAnthropicErrorEvent(t *testing.T) {
	t.Parallel()

	events := DialectAnthropic.NewCodec().Decode([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	assert.Equal(t, []chat.StreamEvent{chat.Error{Message: "Overloaded", Code: "overloaded_error"}}, events)
}

func TestAnthropicMalformed(t *testing.T) {
	t.Parallel()

	events := DialectAnthropic.NewCodec().Decode([]byte(`{"type":"message_start",`))
	require.Len(t, events, 1)
	assert.IsType(t, chat.Error{}, events[0])
}

func TestAnthropicFinishFlushesOpenCalls(t *testing.T) {
	t.Parallel()

	codec := DialectAnthropic.NewCodec()
	codec.Decode([]byte(`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_9","name":"list_directory"}}`))

	events := codec.Finish()
	assert.Equal(t, []chat.StreamEvent{chat.ToolCallComplete{ToolCall: chat.ToolCall{ID: "toolu_9", Name: "list_directory", Arguments: "{}"}}}, events)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Preview("short"))

	exact := strings.Repeat("a", 200)
	assert.Equal(t, exact, Preview(exact))

	long := strings.Repeat("é", 300)
	p := Preview(long)
	assert.Equal(t, 200, utf8.RuneCountInString(p))
	assert.Equal(t, strings.Repeat("é", 197)+"...", p)
	assert.True(t, utf8.ValidString(p))
}

package anthropic

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/base"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/options"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

const toolStream = "event: message_start\n" +
	"data: {\"type\":\"message_start\",\"message\":{\"usage\":{\"input_tokens\":12}}}\n\n" +
	"data: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n" +
	"data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Reading.\"}}\n\n" +
	"data: {\"type\":\"content_block_stop\",\"index\":0}\n\n" +
	"data: {\"type\":\"content_block_start\",\"index\":1,\"content_block\":{\"type\":\"tool_use\",\"id\":\"toolu_1\",\"name\":\"read_file\",\"input\":{}}}\n\n" +
	"data: {\"type\":\"content_block_delta\",\"index\":1,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"path\\\":\"}}\n\n" +
	"data: {\"type\":\"content_block_delta\",\"index\":1,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"\\\"a.txt\\\"}\"}}\n\n" +
	"data: {\"type\":\"content_block_stop\",\"index\":1}\n\n" +
	"data: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"tool_use\"},\"usage\":{\"output_tokens\":30}}\n\n" +
	"data: {\"type\":\"message_stop\"}\n\n"

func TestSendMessage(t *testing.T) {
	t.Parallel()

	type request struct {
		header http.Header
		body   map[string]any
	}
	requests := make(chan request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		requests <- request{header: r.Header.Clone(), body: body}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, toolStream)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(base.Config{ProviderID: "anthropic", BaseURL: srv.URL, Credential: "sk-ant"})
	require.NoError(t, err)

	messages := []chat.Message{
		chat.SystemMessage("project rules"),
		chat.UserMessage("what is in a.txt?"),
		chat.AssistantMessage("checking", []chat.ToolCall{
			{ID: "toolu_0", Name: "list_directory", Arguments: `{}`},
			{ID: "toolu_00", Name: "search_files", Arguments: `{"pattern":"x"}`},
		}),
		chat.ToolResultMessage("toolu_0", "FILE a.txt"),
		chat.ToolResultMessage("toolu_00", "No matches found for pattern: x"),
	}

	var events []chat.StreamEvent
	for ev := range client.SendMessage(t.Context(), messages, "claude-sonnet-4-5", tools.Catalog(), options.New(options.WithSystemPrompt("be terse"))) {
		events = append(events, ev)
	}

	assert.Equal(t, []chat.StreamEvent{
		chat.Usage{InputTokens: 12},
		chat.TextDelta{Text: "Reading."},
		chat.ToolCallDelta{Index: 1, ID: "toolu_1", Name: "read_file"},
		chat.ToolCallDelta{Index: 1, Arguments: `{"path":`},
		chat.ToolCallDelta{Index: 1, Arguments: `"a.txt"}`},
		chat.ToolCallComplete{ToolCall: chat.ToolCall{ID: "toolu_1", Name: "read_file", Arguments: `{"path":"a.txt"}`}},
		chat.Usage{OutputTokens: 30},
		chat.Done{},
	}, events)

	req := <-requests
	header, body := req.header, req.body
	assert.Equal(t, "sk-ant", header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", header.Get("anthropic-version"))

	assert.Equal(t, "claude-sonnet-4-5", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.InDelta(t, defaultMaxTokens, body["max_tokens"], 1e-9)

	system := body["system"].([]any)
	require.Len(t, system, 2)
	assert.Equal(t, "be terse", system[0].(map[string]any)["text"])
	assert.Equal(t, "project rules", system[1].(map[string]any)["text"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3, "tool results must be grouped into one user turn")
	last := msgs[2].(map[string]any)
	assert.Equal(t, "user", last["role"])
	results := last["content"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "tool_result", results[0].(map[string]any)["type"])
	assert.Equal(t, "toolu_00", results[1].(map[string]any)["tool_use_id"])

	toolDefs := body["tools"].([]any)
	require.Len(t, toolDefs, 7)
	schema := toolDefs[0].(map[string]any)["input_schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["required"], "path")
}

func TestValidateCredentials(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		assert.InDelta(t, 1, body["max_tokens"], 1e-9)
		assert.NotContains(t, body, "stream")

		if r.Header.Get("x-api-key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","content":[]}`)
	}))
	t.Cleanup(srv.Close)

	models := []base.Model{{ID: "claude-haiku-4-5"}}

	good, err := NewClient(base.Config{ProviderID: "anthropic", BaseURL: srv.URL, Credential: "good", Models: models})
	require.NoError(t, err)
	assert.True(t, good.ValidateCredentials(t.Context()))

	bad, err := NewClient(base.Config{ProviderID: "anthropic", BaseURL: srv.URL, Credential: "bad", Models: models})
	require.NoError(t, err)
	assert.False(t, bad.ValidateCredentials(t.Context()))
}

func TestSendMessageRequiresContent(t *testing.T) {
	t.Parallel()

	client, err := NewClient(base.Config{ProviderID: "anthropic", BaseURL: "http://unused"})
	require.NoError(t, err)

	var events []chat.StreamEvent
	for ev := range client.SendMessage(t.Context(), []chat.Message{chat.SystemMessage("only system")}, "m", nil, options.New()) {
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.IsType(t, chat.Error{}, events[0])
}

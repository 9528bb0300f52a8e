package wire

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

func responseOf(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func collect(ch <-chan chat.StreamEvent) []chat.StreamEvent {
	var events []chat.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestStreamOpenAIWithTrailingUsage(t *testing.T) {
	t.Parallel()

	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n" +
		"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":3,\"completion_tokens\":1}}\n\n" +
		"data: [DONE]\n\n"

	events := collect(Stream(t.Context(), responseOf(body), DialectOpenAI.NewCodec()))

	assert.Equal(t, []chat.StreamEvent{
		chat.TextDelta{Text: "Hi"},
		chat.Usage{InputTokens: 3, OutputTokens: 1},
		chat.Done{},
	}, events)
}

func TestStreamSynthesizesDoneWithoutTerminator(t *testing.T) {
	t.Parallel()

	body := "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"

	events := collect(Stream(t.Context(), responseOf(body), DialectOpenAI.NewCodec()))
	assert.Equal(t, []chat.StreamEvent{chat.TextDelta{Text: "partial"}, chat.Done{}}, events)
}

func TestStreamDoneSentinelFlushesPendingCalls(t *testing.T) {
	t.Parallel()

	body := "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"c1\",\"function\":{\"name\":\"list_directory\",\"arguments\":\"{}\"}}]}}]}\n\n" +
		"data: [DONE]\n\n"

	events := collect(Stream(t.Context(), responseOf(body), DialectOpenAI.NewCodec()))
	require.Len(t, events, 3)
	assert.IsType(t, chat.ToolCallDelta{}, events[0])
	assert.Equal(t, chat.ToolCallComplete{ToolCall: chat.ToolCall{ID: "c1", Name: "list_directory", Arguments: "{}"}}, events[1])
	assert.Equal(t, chat.Done{}, events[2])
}

func TestStreamAnthropicEventLines(t *testing.T) {
	t.Parallel()

	body := "event: message_start\n" +
		"data: {\"type\":\"message_start\",\"message\":{\"usage\":{\"input_tokens\":4}}}\n\n" +
		"event: content_block_delta\n" +
		"data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"ok\"}}\n\n" +
		"event: message_stop\n" +
		"data: {\"type\":\"message_stop\"}\n\n"

	events := collect(Stream(t.Context(), responseOf(body), DialectAnthropic.NewCodec()))
	assert.Equal(t, []chat.StreamEvent{chat.Usage{InputTokens: 4}, chat.TextDelta{Text: "ok"}, chat.Done{}}, events)
}

func TestStreamStopsAtFirstError(t *testing.T) {
	t.Parallel()

	body := "data: not json\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"never\"}}]}\n\n"

	events := collect(Stream(t.Context(), responseOf(body), DialectOpenAI.NewCodec()))
	require.Len(t, events, 1)
	e, ok := events[0].(chat.Error)
	require.True(t, ok)
	assert.Contains(t, e.Message, "not json")
}

func TestStreamNilBody(t *testing.T) {
	t.Parallel()

	events := collect(Stream(t.Context(), &http.Response{StatusCode: http.StatusOK}, DialectOpenAI.NewCodec()))
	require.Len(t, events, 1)
	assert.IsType(t, chat.Error{}, events[0])
}

func TestStreamCancelledEndsWithoutTerminal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(t.Context())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	events := Stream(ctx, resp, DialectOpenAI.NewCodec())

	first := <-events
	assert.Equal(t, chat.TextDelta{Text: "first"}, first)

	cancel()

	var rest []chat.StreamEvent
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case ev, ok := <-events:
			if !ok {
				done = true
				continue
			}
			rest = append(rest, ev)
		case <-timeout:
			t.Fatal("stream did not close after cancellation")
		}
	}
	for _, ev := range rest {
		assert.False(t, chat.IsTerminal(ev), "unexpected terminal event %#v", ev)
	}
}

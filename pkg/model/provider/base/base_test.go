package base

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
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/wire"
)

func drain(ch <-chan chat.StreamEvent) []chat.StreamEvent {
	var out []chat.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestErrorFromResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"openai object", 401, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, "HTTP 401: Incorrect API key provided"},
		{"anthropic envelope", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, "HTTP 529: Overloaded"},
		{"string error", 400, `{"error":"bad model"}`, "HTTP 400: bad model"},
		{"plain text", 502, "upstream down", "HTTP 502: upstream down"},
		{"empty", 503, "", "HTTP 503: Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := &http.Response{StatusCode: tt.status, Body: io.NopCloser(strings.NewReader(tt.body))}
			e := ErrorFromResponse(resp)
			assert.Equal(t, tt.want, e.Message)
		})
	}
}

func TestNewRequestAddsHeaders(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{BaseURL: "https://example.com/v1/", Headers: map[string]string{"X-Test": "1"}})
	req, err := c.NewRequest(t.Context(), http.MethodPost, "/chat/completions", []byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/v1/chat/completions", req.URL.String())
	assert.Equal(t, "1", req.Header.Get("X-Test"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestStreamNon2xxIsErrorEvent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down"}}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL})
	events := drain(c.Stream(t.Context(), wire.DialectOpenAI, func(ctx context.Context) (*http.Request, error) {
		return c.NewRequest(ctx, http.MethodPost, "/", []byte(`{}`))
	}))

	require.Len(t, events, 1)
	assert.Equal(t, chat.Error{Message: "HTTP 429: slow down", Code: "http_429"}, events[0])
}

func TestStreamTransportFailure(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	events := drain(c.Stream(t.Context(), wire.DialectOpenAI, func(ctx context.Context) (*http.Request, error) {
		return c.NewRequest(ctx, http.MethodPost, "/", []byte(`{}`))
	}))

	require.Len(t, events, 1)
	e, ok := events[0].(chat.Error)
	require.True(t, ok)
	assert.Equal(t, "transport", e.Code)
}

func TestCancelRequestEndsStreamWithoutTerminal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL})
	events := c.Stream(t.Context(), wire.DialectOpenAI, func(ctx context.Context) (*http.Request, error) {
		return c.NewRequest(ctx, http.MethodPost, "/", []byte(`{}`))
	})

	assert.Equal(t, chat.TextDelta{Text: "a"}, <-events)
	c.CancelRequest()

	done := make(chan []chat.StreamEvent)
	go func() { done <- drain(events) }()

	select {
	case rest := <-done:
		for _, ev := range rest {
			assert.False(t, chat.IsTerminal(ev))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream not closed after CancelRequest")
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL})

	req, err := c.NewRequest(t.Context(), http.MethodGet, "/models", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer good")
	assert.True(t, c.Check(req))

	req, err = c.NewRequest(t.Context(), http.MethodGet, "/models", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer bad")
	assert.False(t, c.Check(req))
}

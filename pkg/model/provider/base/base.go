package base

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/wire"
)

// Model is one entry of a provider's static model catalog.
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextWindow int    `json:"context_window,omitempty"`
}

// Config is shared by all provider clients.
type Config struct {
	ProviderID string
	BaseURL    string
	// Dialect is the wire format of streaming responses.
	Dialect wire.Dialect
	// ChatPath is appended to BaseURL for streaming requests.
	ChatPath string
	// Credential is an API key or OAuth access token.
	Credential string
	// Headers are added to every request.
	Headers        map[string]string
	SkipValidation bool
	// StreamOptions asks OpenAI-dialect servers to append a usage chunk.
	StreamOptions bool
	Models        []Model
	HTTPClient    *http.Client
}

func (c *Config) ID() string {
	return c.ProviderID
}

func (c *Config) URL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

// Client holds the plumbing common to every ProviderClient: the HTTP
// client and the cancel function of the request in flight.
type Client struct {
	Config

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{Config: cfg}
}

func (c *Client) ListModels() []Model {
	return c.Models
}

// CancelRequest aborts the request in flight, if any. The stream of that
// request ends without a terminal event.
func (c *Client) CancelRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// beginRequest derives a cancellable context for a new request and
// registers it as the one CancelRequest aborts.
func (c *Client) beginRequest(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return ctx, cancel
}

// NewRequest builds a request against BaseURL with the configured headers.
func (c *Client) NewRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Stream sends a streaming request built by build and decodes the response
// with a fresh codec for dialect. All failures are reported as events.
func (c *Client) Stream(ctx context.Context, dialect wire.Dialect, build func(context.Context) (*http.Request, error)) <-chan chat.StreamEvent {
	ctx, cancel := c.beginRequest(ctx)

	req, err := build(ctx)
	if err != nil {
		cancel()
		return Single(chat.Error{Message: fmt.Sprintf("building request: %v", err), Code: "request"})
	}
	req.Header.Set("Accept", "text/event-stream")

	slog.Debug("Sending streaming request", "provider", c.ProviderID, "url", req.URL.String())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			cancel()
			return closed()
		}
		cancel()
		return Single(chat.Error{Message: fmt.Sprintf("request failed: %v", err), Code: "transport"})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		return Single(ErrorFromResponse(resp))
	}

	events := wire.Stream(ctx, resp, dialect.NewCodec())

	out := make(chan chat.StreamEvent)
	go func() {
		defer close(out)
		defer cancel()
		for ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				// Drain so the reader goroutine can exit.
				for range events {
				}
				return
			}
		}
	}()
	return out
}

// ErrorFromResponse turns a non-2xx response into an Error event, using the
// vendor error message when the body carries one.
func ErrorFromResponse(resp *http.Response) chat.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && len(payload.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		var str string
		switch {
		case json.Unmarshal(payload.Error, &obj) == nil && obj.Message != "":
			msg = obj.Message
		case json.Unmarshal(payload.Error, &str) == nil && str != "":
			msg = str
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return chat.Error{
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, wire.Preview(msg)),
		Code:    fmt.Sprintf("http_%d", resp.StatusCode),
	}
}

// Single returns a closed channel holding only ev.
func Single(ev chat.StreamEvent) <-chan chat.StreamEvent {
	ch := make(chan chat.StreamEvent, 1)
	ch <- ev
	close(ch)
	return ch
}

func closed() <-chan chat.StreamEvent {
	ch := make(chan chat.StreamEvent)
	close(ch)
	return ch
}

// Check performs a validation request and reports whether it succeeded.
func (c *Client) Check(req *http.Request) bool {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		slog.Debug("Credential validation failed", "provider", c.ProviderID, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if !ok {
		slog.Debug("Credential validation rejected", "provider", c.ProviderID, "status", resp.StatusCode)
	}
	return ok
}

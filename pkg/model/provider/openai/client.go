package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/tidwall/sjson"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/base"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/options"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/wire"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

const (
	defaultChatPath      = "/chat/completions"
	defaultResponsesPath = "/responses"
)

// Client speaks the OpenAI chat completions dialect, or the Responses
// dialect when configured with wire.DialectResponses. It serves OpenAI and
// every compatible endpoint (OpenRouter, Groq, Copilot, Codex, Ollama...).
type Client struct {
	*base.Client
}

func NewClient(cfg base.Config) (*Client, error) {
	if cfg.BaseURL == "" {
		slog.Error("OpenAI client creation failed", "provider", cfg.ProviderID, "error", "base URL is required")
		return nil, errors.New("base URL is required")
	}
	if cfg.ChatPath == "" {
		cfg.ChatPath = defaultChatPath
		if cfg.Dialect == wire.DialectResponses {
			cfg.ChatPath = defaultResponsesPath
		}
	}
	return &Client{Client: base.NewClient(cfg)}, nil
}

func (c *Client) SendMessage(ctx context.Context, messages []chat.Message, model string, requestTools []tools.Tool, gen options.Generation) <-chan chat.StreamEvent {
	dialect, encode := wire.DialectOpenAI, c.requestBody
	if c.Dialect == wire.DialectResponses {
		dialect, encode = wire.DialectResponses, c.responsesBody
	}

	slog.Debug("Creating OpenAI chat completion stream",
		"provider", c.ProviderID,
		"dialect", dialect.String(),
		"model", model,
		"message_count", len(messages),
		"tool_count", len(requestTools),
	)

	body, err := encode(messages, model, requestTools, gen)
	if err != nil {
		return base.Single(chat.Error{Message: fmt.Sprintf("encoding request: %v", err), Code: "request"})
	}

	return c.Stream(ctx, dialect, func(ctx context.Context) (*http.Request, error) {
		req, err := c.NewRequest(ctx, http.MethodPost, c.ChatPath, body)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		return req, nil
	})
}

func (c *Client) requestBody(messages []chat.Message, model string, requestTools []tools.Tool, gen options.Generation) ([]byte, error) {
	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: convertMessages(gen.SystemPrompt(), messages),
		Tools:    convertTools(requestTools),
	}
	if c.StreamOptions {
		params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		}
	}
	if t := gen.Temperature(); t != nil {
		params.Temperature = openai.Float(*t)
	}
	if p := gen.TopP(); p != nil {
		params.TopP = openai.Float(*p)
	}
	if n := gen.MaxTokens(); n != nil {
		params.MaxTokens = openai.Int(*n)
	}
	if stop := gen.StopSequences(); len(stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: stop}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "stream", true)
}

func (c *Client) authorize(req *http.Request) {
	if c.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.Credential)
	}
}

// ValidateCredentials lists models, the cheapest authenticated call the
// dialect offers. Providers flagged SkipValidation report true offline.
func (c *Client) ValidateCredentials(ctx context.Context) bool {
	if c.SkipValidation {
		return true
	}
	req, err := c.NewRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return false
	}
	c.authorize(req)
	return c.Check(req)
}

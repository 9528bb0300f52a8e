package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/tidwall/sjson"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/base"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/options"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/wire"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

const (
	defaultChatPath  = "/v1/messages"
	defaultMaxTokens = 8192
	apiVersion       = "2023-06-01"
)

// Client speaks the Anthropic Messages dialect.
type Client struct {
	*base.Client
}

func NewClient(cfg base.Config) (*Client, error) {
	if cfg.BaseURL == "" {
		slog.Error("Anthropic client creation failed", "error", "base URL is required")
		return nil, errors.New("base URL is required")
	}
	if cfg.ChatPath == "" {
		cfg.ChatPath = defaultChatPath
	}
	return &Client{Client: base.NewClient(cfg)}, nil
}

func (c *Client) SendMessage(ctx context.Context, messages []chat.Message, model string, requestTools []tools.Tool, gen options.Generation) <-chan chat.StreamEvent {
	slog.Debug("Creating Anthropic chat completion stream",
		"provider", c.ProviderID,
		"model", model,
		"message_count", len(messages),
		"tool_count", len(requestTools),
	)

	converted := convertMessages(messages)
	if len(converted) == 0 {
		return base.Single(chat.Error{Message: "no messages to send", Code: "request"})
	}

	body, err := c.requestBody(converted, systemBlocks(gen.SystemPrompt(), messages), model, requestTools, gen)
	if err != nil {
		return base.Single(chat.Error{Message: fmt.Sprintf("encoding request: %v", err), Code: "request"})
	}

	return c.Stream(ctx, wire.DialectAnthropic, func(ctx context.Context) (*http.Request, error) {
		return c.newMessagesRequest(ctx, body)
	})
}

func (c *Client) requestBody(messages []anthropic.MessageParam, system []anthropic.TextBlockParam, model string, requestTools []tools.Tool, gen options.Generation) ([]byte, error) {
	maxTokens := int64(defaultMaxTokens)
	if n := gen.MaxTokens(); n != nil {
		maxTokens = *n
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
		Tools:     convertTools(requestTools),
	}
	if t := gen.Temperature(); t != nil {
		params.Temperature = param.NewOpt(*t)
	}
	if p := gen.TopP(); p != nil {
		params.TopP = param.NewOpt(*p)
	}
	if stop := gen.StopSequences(); len(stop) > 0 {
		params.StopSequences = stop
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "stream", true)
}

func (c *Client) newMessagesRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, c.ChatPath, body)
	if err != nil {
		return nil, err
	}
	if req.Header.Get("anthropic-version") == "" {
		req.Header.Set("anthropic-version", apiVersion)
	}
	if c.Credential != "" {
		req.Header.Set("x-api-key", c.Credential)
	}
	return req, nil
}

// ValidateCredentials sends a one-token message to the first catalog model.
func (c *Client) ValidateCredentials(ctx context.Context) bool {
	if c.SkipValidation {
		return true
	}
	if len(c.Models) == 0 {
		slog.Debug("Skipping Anthropic validation without a model catalog", "provider", c.ProviderID)
		return false
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.Models[0].ID),
		MaxTokens: 1,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("ping"))},
	}
	body, err := json.Marshal(params)
	if err != nil {
		return false
	}
	req, err := c.newMessagesRequest(ctx, body)
	if err != nil {
		return false
	}
	return c.Check(req)
}

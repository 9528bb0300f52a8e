package wire

import (
	"encoding/json"
	"fmt"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

type openAIChunk struct {
	Choices []openAIChoice `json:"choices"`
	Usage   *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *openAIError `json:"error"`
}

type openAIChoice struct {
	Delta struct {
		Content   *string `json:"content"`
		ToolCalls []struct {
			Index    *int   `json:"index"`
			ID       string `json:"id"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

type openAICodec struct {
	calls assembly
}

func (c *openAICodec) Decode(payload []byte) []chat.StreamEvent {
	var chunk openAIChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return []chat.StreamEvent{malformed(payload, err)}
	}

	if chunk.Error != nil {
		code := chunk.Error.Type
		if chunk.Error.Code != nil {
			code = fmt.Sprint(chunk.Error.Code)
		}
		return []chat.StreamEvent{chat.Error{Message: chunk.Error.Message, Code: code}}
	}

	var events []chat.StreamEvent
	if chunk.Usage != nil {
		events = append(events, chat.Usage{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
		})
	}

	if len(chunk.Choices) == 0 {
		return events
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != nil {
		events = append(events, chat.TextDelta{Text: *choice.Delta.Content})
	}

	for pos, tc := range choice.Delta.ToolCalls {
		index := pos
		if tc.Index != nil {
			index = *tc.Index
		}
		b := c.calls.get(index)
		if b.id == "" {
			b.id = tc.ID
		}
		if b.name == "" {
			b.name = tc.Function.Name
		}
		b.args.WriteString(tc.Function.Arguments)

		events = append(events, chat.ToolCallDelta{
			Index:     index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		events = append(events, c.calls.flush()...)
		events = append(events, chat.Done{})
	}

	return events
}

func (c *openAICodec) Finish() []chat.StreamEvent {
	return c.calls.flush()
}

package wire

import (
	"encoding/json"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

type anthropicEvent struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Message *struct {
		Usage struct {
			InputTokens int64 `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
	Usage *struct {
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type anthropicCodec struct {
	calls assembly
}

func (c *anthropicCodec) Decode(payload []byte) []chat.StreamEvent {
	var ev anthropicEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return []chat.StreamEvent{malformed(payload, err)}
	}

	switch ev.Type {
	case "message_start":
		if ev.Message != nil {
			return []chat.StreamEvent{chat.Usage{InputTokens: ev.Message.Usage.InputTokens}}
		}

	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			b := c.calls.get(ev.Index)
			b.id = ev.ContentBlock.ID
			b.name = ev.ContentBlock.Name
			return []chat.StreamEvent{chat.ToolCallDelta{
				Index: ev.Index,
				ID:    ev.ContentBlock.ID,
				Name:  ev.ContentBlock.Name,
			}}
		}

	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return []chat.StreamEvent{chat.TextDelta{Text: ev.Delta.Text}}
		case "input_json_delta":
			b, ok := c.calls[ev.Index]
			if !ok {
				return nil
			}
			b.args.WriteString(ev.Delta.PartialJSON)
			return []chat.StreamEvent{chat.ToolCallDelta{Index: ev.Index, Arguments: ev.Delta.PartialJSON}}
		}
		// thinking_delta and signature_delta are not surfaced.

	case "content_block_stop":
		if done, ok := c.calls.complete(ev.Index); ok {
			return []chat.StreamEvent{done}
		}

	case "message_delta":
		if ev.Usage != nil {
			return []chat.StreamEvent{chat.Usage{OutputTokens: ev.Usage.OutputTokens}}
		}

	case "message_stop":
		return []chat.StreamEvent{chat.Done{}}

	case "error":
		e := chat.Error{Message: "unknown stream error"}
		if ev.Error != nil {
			e.Message = ev.Error.Message
			e.Code = ev.Error.Type
		}
		return []chat.StreamEvent{e}
	}

	return nil
}

func (c *anthropicCodec) Finish() []chat.StreamEvent {
	return c.calls.flush()
}

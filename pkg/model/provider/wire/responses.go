package wire

import (
	"cmp"
	"encoding/json"
	"log/slog"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

type responsesEvent struct {
	Type        string           `json:"type"`
	Delta       string           `json:"delta"`
	OutputIndex int              `json:"output_index"`
	Item        responsesItem    `json:"item"`
	Response    responsesPayload `json:"response"`

	// Set on top-level "error" events.
	Code    string `json:"code"`
	Message string `json:"message"`
}

type responsesItem struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type responsesPayload struct {
	Usage *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// responsesCodec decodes the typed events of the Responses API. Function
// calls are keyed by their output index.
type responsesCodec struct {
	calls assembly
}

func (c *responsesCodec) Decode(payload []byte) []chat.StreamEvent {
	var ev responsesEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return []chat.StreamEvent{malformed(payload, err)}
	}

	switch ev.Type {
	case "response.output_text.delta":
		if ev.Delta == "" {
			return nil
		}
		return []chat.StreamEvent{chat.TextDelta{Text: ev.Delta}}

	case "response.output_item.added":
		if ev.Item.Type != "function_call" {
			return nil
		}
		b := c.calls.get(ev.OutputIndex)
		b.id = cmp.Or(ev.Item.CallID, ev.Item.ID)
		b.name = ev.Item.Name
		b.args.WriteString(ev.Item.Arguments)
		return []chat.StreamEvent{chat.ToolCallDelta{
			Index:     ev.OutputIndex,
			ID:        b.id,
			Name:      b.name,
			Arguments: ev.Item.Arguments,
		}}

	case "response.function_call_arguments.delta":
		c.calls.get(ev.OutputIndex).args.WriteString(ev.Delta)
		return []chat.StreamEvent{chat.ToolCallDelta{Index: ev.OutputIndex, Arguments: ev.Delta}}

	case "response.output_item.done":
		if ev.Item.Type != "function_call" {
			return nil
		}
		b := c.calls.get(ev.OutputIndex)
		if b.id == "" {
			b.id = cmp.Or(ev.Item.CallID, ev.Item.ID)
		}
		if b.name == "" {
			b.name = ev.Item.Name
		}
		if b.args.Len() == 0 {
			b.args.WriteString(ev.Item.Arguments)
		}
		done, _ := c.calls.complete(ev.OutputIndex)
		return []chat.StreamEvent{done}

	case "response.completed", "response.incomplete":
		var events []chat.StreamEvent
		if u := ev.Response.Usage; u != nil {
			events = append(events, chat.Usage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens})
		}
		events = append(events, c.calls.flush()...)
		return append(events, chat.Done{})

	case "response.failed":
		if e := ev.Response.Error; e != nil {
			return []chat.StreamEvent{chat.Error{Message: e.Message, Code: e.Code}}
		}
		return []chat.StreamEvent{chat.Error{Message: "response failed", Code: "response_failed"}}

	case "error":
		return []chat.StreamEvent{chat.Error{Message: ev.Message, Code: ev.Code}}

	default:
		slog.Debug("Ignoring responses stream event", "type", ev.Type)
		return nil
	}
}

func (c *responsesCodec) Finish() []chat.StreamEvent {
	return c.calls.flush()
}

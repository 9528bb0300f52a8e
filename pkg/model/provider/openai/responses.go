package openai

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/sjson"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/options"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

// responsesBody encodes a Responses API request. Nothing is stored server
// side, so every request carries the whole transcript.
func (c *Client) responsesBody(messages []chat.Message, model string, requestTools []tools.Tool, gen options.Generation) ([]byte, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: convertInput(messages)},
		Tools: convertResponseTools(requestTools),
		Store: openai.Bool(false),
	}
	if prompt := gen.SystemPrompt(); prompt != "" {
		params.Instructions = openai.String(prompt)
	}
	if t := gen.Temperature(); t != nil {
		params.Temperature = openai.Float(*t)
	}
	if p := gen.TopP(); p != nil {
		params.TopP = openai.Float(*p)
	}
	if n := gen.MaxTokens(); n != nil {
		params.MaxOutputTokens = openai.Int(*n)
	}
	if stop := gen.StopSequences(); len(stop) > 0 {
		slog.Debug("Responses API has no stop sequences, ignoring them", "provider", c.ProviderID, "count", len(stop))
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "stream", true)
}

// convertInput maps the transcript onto Responses input items. Tool calls
// and their results become function_call and function_call_output items.
func convertInput(messages []chat.Message) responses.ResponseInputParam {
	out := make(responses.ResponseInputParam, 0, len(messages))
	for i := range messages {
		msg := &messages[i]

		switch msg.Role {
		case chat.MessageRoleSystem:
			out = append(out, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleSystem))

		case chat.MessageRoleUser:
			out = append(out, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))

		case chat.MessageRoleAssistant:
			if strings.TrimSpace(msg.Content) != "" {
				out = append(out, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
			}
			for _, call := range msg.ToolCalls {
				out = append(out, responses.ResponseInputItemParamOfFunctionCall(call.Arguments, call.ID, call.Name))
			}

		case chat.MessageRoleTool:
			out = append(out, responses.ResponseInputItemParamOfFunctionCallOutput(msg.ToolCallID, msg.Content))
		}
	}
	return out
}

func convertResponseTools(requestTools []tools.Tool) []responses.ToolUnionParam {
	if len(requestTools) == 0 {
		return nil
	}
	out := make([]responses.ToolUnionParam, len(requestTools))
	for i, tool := range requestTools {
		out[i] = responses.ToolParamOfFunction(tool.Name, tool.Parameters, false)
		out[i].OfFunction.Description = openai.String(tool.Description)
	}
	return out
}
